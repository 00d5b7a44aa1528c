// Package pipeline はルートごとの認証・入力検証・ハンドラー呼び出しを
// 1つの順序付きゲートとして合成する。
//
// 評価順は常に auth → params → query → body → handler で固定され、
// 最初の失敗で打ち切られる。設定されていないステップは存在しないものとして扱う。
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"github.com/hitoshi/projectboard/internal/auth"
	"github.com/hitoshi/projectboard/internal/middleware"
	"github.com/hitoshi/projectboard/internal/model"
	"github.com/hitoshi/projectboard/internal/validate"
)

// DefaultMaxBodyBytes はリクエストボディとして読み込む既定の上限。
const DefaultMaxBodyBytes = 1 << 20

// Stage はゲートの各ステップの名前。拒否時の詳細やメトリクスのラベルに使う。
type Stage string

// ゲートのステップ
const (
	StageAuth    Stage = "auth"
	StageParams  Stage = "params"
	StageQuery   Stage = "query"
	StageBody    Stage = "body"
	StageHandler Stage = "handler"
)

// None はボディやクエリを持たないルートの型引数に使う。
type None struct{}

// Authenticator はリクエストのセッションを解決する。auth.Resolverが実装する。
type Authenticator interface {
	Resolve(r *http.Request) auth.Result
}

// Spec はルートごとの検証設定。ルート登録時に1度だけ構築し、以降は変更しない。
// nilのスロットは制約なしを意味する。
type Spec[B, Q any] struct {
	Auth   Authenticator
	Params validate.Checker
	Query  *validate.Schema[Q]
	Body   *validate.Schema[B]
}

// Request はゲートを通過したリクエスト。
// Body/Queryはスキーマ未設定の場合nil、Sessionは認証未設定の場合nil。
type Request[B, Q any] struct {
	Body    *B
	Query   *Q
	Params  map[string]string
	Session *model.Session
	HTTP    *http.Request
}

// Param はパスパラメータを返す。
func (r *Request[B, Q]) Param(name string) string {
	return r.Params[name]
}

// UserID は認証済みユーザーのIDを返す。認証未設定のルートでは空文字。
func (r *Request[B, Q]) UserID() string {
	if r.Session == nil {
		return ""
	}
	return r.Session.UserID
}

// HandlerFunc はゲート通過後に呼ばれる業務ハンドラー。
// 返したエラーはエラー変換を経てレスポンスになる。
type HandlerFunc[B, Q any] func(w http.ResponseWriter, r *Request[B, Q]) error

// ValidationDetail は400レスポンスのerrorフィールドに入る検証詳細。
type ValidationDetail struct {
	Source Stage                `json:"source"`
	Issues []validate.Violation `json:"issues"`
}

// Observer はゲートの拒否とハンドラーのエラーを観測する。
type Observer interface {
	ObserveRejection(stage string)
	ObserveHandlerError(tag string)
}

// Option はHandleのオプション。
type Option func(*options)

type options struct {
	observer     Observer
	paramsFunc   func(*http.Request) map[string]string
	maxBodyBytes int64
}

// WithObserver は拒否・エラーの観測先を設定する。
func WithObserver(o Observer) Option {
	return func(opts *options) {
		opts.observer = o
	}
}

// WithParamsFunc はパスパラメータの取得方法を差し替える。既定はchiのURLパラメータ。
func WithParamsFunc(fn func(*http.Request) map[string]string) Option {
	return func(opts *options) {
		opts.paramsFunc = fn
	}
}

// WithMaxBodyBytes はボディの読み込み上限を変更する。
func WithMaxBodyBytes(n int64) Option {
	return func(opts *options) {
		if n > 0 {
			opts.maxBodyBytes = n
		}
	}
}

// Handle はSpecとハンドラーから1つのhttp.Handlerを生成する。
func Handle[B, Q any](spec Spec[B, Q], handler HandlerFunc[B, Q], opts ...Option) http.Handler {
	o := options{
		paramsFunc:   chiParams,
		maxBodyBytes: DefaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(&o)
	}

	return &gate[B, Q]{spec: spec, handler: handler, opts: o}
}

type gate[B, Q any] struct {
	spec    Spec[B, Q]
	handler HandlerFunc[B, Q]
	opts    options
}

func (g *gate[B, Q]) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	req := &Request[B, Q]{HTTP: r}

	// 1. 認証
	if g.spec.Auth != nil {
		res := g.spec.Auth.Resolve(r)
		if !res.OK() {
			err := res.Err
			if err == nil {
				err = model.ErrNotAuthenticated
			}
			g.reject(w, r, StageAuth, err)
			return
		}
		req.Session = res.Session

		ctx := auth.ContextWithSession(r.Context(), res.Session)
		middleware.AnnotateUserID(ctx, res.Session.UserID)
		r = r.WithContext(ctx)
		req.HTTP = r
	}

	// 2. パスパラメータ（検証のみ、値は置き換えない）
	req.Params = g.opts.paramsFunc(r)
	if g.spec.Params != nil {
		if violations := g.spec.Params.Check(req.Params); len(violations) > 0 {
			g.reject(w, r, StageParams, validationError(StageParams, violations))
			return
		}
	}

	// 3. クエリ
	if g.spec.Query != nil {
		res := g.spec.Query.Validate(r.URL.Query())
		if !res.OK {
			g.reject(w, r, StageQuery, validationError(StageQuery, res.Errors))
			return
		}
		req.Query = &res.Value
	}

	// 4. ボディ
	if g.spec.Body != nil {
		raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, g.opts.maxBodyBytes))
		if err != nil {
			g.reject(w, r, StageBody, validationError(StageBody, []validate.Violation{bodyReadViolation(err)}))
			return
		}
		res := g.spec.Body.Validate(raw)
		if !res.OK {
			g.reject(w, r, StageBody, validationError(StageBody, res.Errors))
			return
		}
		req.Body = &res.Value
	}

	// 5. ハンドラー
	if err := g.invoke(w, req); err != nil {
		if g.opts.observer != nil {
			g.opts.observer.ObserveHandlerError(tagLabel(err))
		}
		middleware.WriteError(w, r, err)
	}
}

// invoke はハンドラーを呼び出し、panicをエラーに変換する。
func (g *gate[B, Q]) invoke(w http.ResponseWriter, req *Request[B, Q]) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			slog.Error("handler panicked",
				slog.Any("panic", rec),
				slog.String("path", req.HTTP.URL.Path),
				slog.String("stack", string(debug.Stack())),
			)
			err = fmt.Errorf("handler panicked: %v", rec)
		}
	}()
	return g.handler(w, req)
}

func (g *gate[B, Q]) reject(w http.ResponseWriter, r *http.Request, stage Stage, err error) {
	if g.opts.observer != nil {
		g.opts.observer.ObserveRejection(string(stage))
	}
	middleware.WriteError(w, r, err)
}

func validationError(stage Stage, violations []validate.Violation) error {
	return model.NewValidationError(ValidationDetail{Source: stage, Issues: violations})
}

func bodyReadViolation(err error) validate.Violation {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return validate.Violation{Message: fmt.Sprintf("must not exceed %d bytes", maxErr.Limit)}
	}
	return validate.Violation{Message: "could not be read"}
}

func tagLabel(err error) string {
	if tag := model.TagOf(err); tag != "" {
		return string(tag)
	}
	return "unclassified"
}

// chiParams はchiのルーティング結果からパスパラメータを取り出す。
func chiParams(r *http.Request) map[string]string {
	params := make(map[string]string)
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return params
	}
	for i, key := range rctx.URLParams.Keys {
		if key == "*" {
			continue
		}
		params[key] = rctx.URLParams.Values[i]
	}
	return params
}
