// Package auth はリクエストの資格情報から外部IDプロバイダーのセッションを解決する。
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/hitoshi/projectboard/internal/model"
)

// DefaultCookieName はセッショントークンを運ぶCookieの既定名。
const DefaultCookieName = "session_token"

var errNoCredentials = errors.New("no credentials in request")

// Credentials はリクエストヘッダーから抽出した資格情報。
// ボディやクエリからは決して読み取らない。
type Credentials struct {
	// Token はBearerトークン、またはCookieのトークン部分
	Token string
	// Header はプロバイダーへ転送するヘッダー（Cookie, Authorization）
	Header http.Header
}

// SessionProvider はIDプロバイダーへのセッション問い合わせを抽象化する。
// セッションが存在しない場合は (nil, nil) を返す。
type SessionProvider interface {
	FindSession(ctx context.Context, creds Credentials) (*model.Session, error)
}

// Result は解決結果。成功時はSession、失敗時はErrのどちらか一方のみを持つ。
type Result struct {
	Session *model.Session
	Err     error
}

// OK は解決に成功した場合にtrueを返す。
func (r Result) OK() bool {
	return r.Session != nil && r.Err == nil
}

// Resolver はリクエストからセッションを解決する。
// キャッシュを持たず、呼び出しごとにプロバイダーへ問い合わせる。
type Resolver struct {
	provider   SessionProvider
	cookieName string
}

// ResolverOption はResolverの構築オプション。
type ResolverOption func(*Resolver)

// WithCookieName はセッションCookie名を変更する。
func WithCookieName(name string) ResolverOption {
	return func(r *Resolver) {
		if name != "" {
			r.cookieName = name
		}
	}
}

// NewResolver はResolverを生成する。
func NewResolver(provider SessionProvider, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		provider:   provider,
		cookieName: DefaultCookieName,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve はリクエストのセッションを解決する。
// プロバイダーのエラー、panic、セッション不在はすべて失敗結果に変換され、呼び出し元へは伝播しない。
func (r *Resolver) Resolve(req *http.Request) (res Result) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("session provider panicked", slog.Any("panic", rec))
			res = failure(fmt.Errorf("session provider panicked: %v", rec))
		}
	}()

	creds := r.credentials(req)
	if creds.Token == "" {
		return failure(errNoCredentials)
	}

	session, err := r.provider.FindSession(req.Context(), creds)
	if err != nil {
		slog.Warn("session lookup failed", slog.String("error", err.Error()))
		return failure(err)
	}
	if session == nil {
		return failure(errors.New("session not found"))
	}
	if session.UserID == "" {
		return failure(errors.New("session has no user"))
	}

	return Result{Session: session}
}

// credentials はAuthorizationヘッダーまたはCookieから資格情報を取り出す。Bearerを優先する。
func (r *Resolver) credentials(req *http.Request) Credentials {
	creds := Credentials{Header: make(http.Header)}
	if v := req.Header.Get("Authorization"); v != "" {
		creds.Header.Set("Authorization", v)
	}
	if v := req.Header.Get("Cookie"); v != "" {
		creds.Header.Set("Cookie", v)
	}

	if token, ok := bearerToken(req.Header.Get("Authorization")); ok {
		creds.Token = token
		return creds
	}
	if c, err := req.Cookie(r.cookieName); err == nil {
		creds.Token = cookieToken(c.Value)
	}
	return creds
}

func bearerToken(header string) (string, bool) {
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(prefix):])
	return token, token != ""
}

// cookieToken は署名付きCookie値（"token.signature"）からトークン部分を取り出す。
func cookieToken(value string) string {
	if unescaped, err := url.QueryUnescape(value); err == nil {
		value = unescaped
	}
	if i := strings.IndexByte(value, '.'); i >= 0 {
		return value[:i]
	}
	return value
}

func failure(err error) Result {
	return Result{Err: model.NewDomainError(model.TagNotAuthenticated, err)}
}
