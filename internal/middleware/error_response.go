// Package middleware はHTTPミドルウェアとドメインエラーのHTTP変換を提供する。
package middleware

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hitoshi/projectboard/internal/auth"
	"github.com/hitoshi/projectboard/internal/model"
)

// ErrorBody はAPIエラーレスポンスの統一フォーマット。
// Errorは通常メッセージ文字列、バリデーションエラー時は詳細オブジェクト。
type ErrorBody struct {
	Error any `json:"error"`
}

// エラーレスポンスの固定メッセージ
const (
	msgNotFound         = "resource not found"
	msgNotAuthenticated = "not authenticated"
	msgNoAccess         = "no access"
	msgInvalidRequest   = "invalid request"
	msgInternal         = "internal error"
)

// TranslateError はエラーをHTTPステータスとレスポンスボディに変換する。
// 変換表にないタグやDomainError以外のエラーはすべて500として扱う。
func TranslateError(err error) (int, ErrorBody) {
	var de *model.DomainError
	if !errors.As(err, &de) {
		return http.StatusInternalServerError, ErrorBody{Error: msgInternal}
	}

	switch de.Tag {
	case model.TagNotFound:
		return http.StatusNotFound, ErrorBody{Error: msgNotFound}
	case model.TagNotAuthenticated:
		return http.StatusUnauthorized, ErrorBody{Error: msgNotAuthenticated}
	case model.TagNoAccess:
		return http.StatusForbidden, ErrorBody{Error: msgNoAccess}
	case model.TagValidator:
		if de.Detail == nil {
			return http.StatusBadRequest, ErrorBody{Error: msgInvalidRequest}
		}
		return http.StatusBadRequest, ErrorBody{Error: de.Detail}
	default:
		return http.StatusInternalServerError, ErrorBody{Error: msgInternal}
	}
}

// WriteError はエラーをログに記録してから変換し、JSONレスポンスを書き込む。
// 500の場合のみ原因エラーの全文をログに残し、クライアントには固定メッセージを返す。
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	if err == nil {
		err = errors.New("nil error written")
	}

	status, body := TranslateError(err)

	attrs := []any{
		slog.Int("status", status),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("error", err.Error()),
	}
	if tag := model.TagOf(err); tag != "" {
		attrs = append(attrs, slog.String("tag", string(tag)))
	}
	if userID, idErr := auth.UserIDFromContext(r.Context()); idErr == nil {
		attrs = append(attrs, slog.String("user_id", userID))
	}

	switch {
	case status >= http.StatusInternalServerError:
		slog.ErrorContext(r.Context(), "request failed", attrs...)
	case status == http.StatusBadRequest:
		slog.InfoContext(r.Context(), "request rejected", attrs...)
	default:
		slog.WarnContext(r.Context(), "request rejected", attrs...)
	}

	WriteJSON(w, status, body)
}

// WriteJSON はJSONレスポンスを書き込む。204の場合はボディを書き込まない。
func WriteJSON(w http.ResponseWriter, status int, v any) {
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", slog.String("error", err.Error()))
	}
}
