package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/hitoshi/projectboard/internal/metrics"
	"github.com/hitoshi/projectboard/internal/middleware"
	"github.com/hitoshi/projectboard/internal/model"
	"github.com/hitoshi/projectboard/internal/pipeline"
	"github.com/prometheus/client_golang/prometheus"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	// ミドルウェア依存
	Logger            *slog.Logger
	CORSAllowedOrigin string
	RateLimiter       *middleware.RateLimiter
	Metrics           *metrics.Collector
	Gatherer          prometheus.Gatherer

	// 認証。AuthProxyがnilの場合 /api/auth/* は404を返す
	Authenticator pipeline.Authenticator
	AuthProxy     http.Handler

	HealthChecker HealthChecker
	Projects      ProjectService
	Milestones    MilestoneService
}

// NewRouter は全APIエンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	RequestID → RealIP → Recovery → Logging → Metrics → SecurityHeaders → CORS → RateLimit
//
// 認証と入力検証はルートごとのゲート（pipeline.Handle）で行う。
func NewRouter(deps *RouterDeps) http.Handler {
	if deps.Authenticator == nil {
		panic("handler: RouterDeps.Authenticator is required")
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.NewRecoveryMiddleware())
	r.Use(middleware.NewLoggingMiddleware(logger))
	if deps.Metrics != nil {
		r.Use(deps.Metrics.Middleware())
	}
	r.Use(middleware.NewSecurityHeadersMiddleware())
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	if deps.RateLimiter != nil {
		r.Use(deps.RateLimiter.Middleware())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteError(w, r, model.NewDomainError(model.TagNotFound, nil))
	})

	// --- 認証不要のルート ---

	r.Get("/health", NewHealthHandler(deps.HealthChecker))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}
	if deps.AuthProxy != nil {
		r.Handle("/api/auth/*", deps.AuthProxy)
	}

	// --- ゲート経由のルート ---

	var opts []pipeline.Option
	if deps.Metrics != nil {
		opts = append(opts, pipeline.WithObserver(deps.Metrics))
	}

	authOnly := pipeline.Spec[pipeline.None, pipeline.None]{Auth: deps.Authenticator}
	withProject := pipeline.Spec[pipeline.None, pipeline.None]{Auth: deps.Authenticator, Params: projectParamsSchema}
	withMilestone := pipeline.Spec[pipeline.None, pipeline.None]{Auth: deps.Authenticator, Params: milestoneParamsSchema}

	ph := NewProjectHandler(deps.Projects)
	mh := NewMilestoneHandler(deps.Milestones)

	r.Route("/project", func(r chi.Router) {
		r.Method(http.MethodGet, "/", pipeline.Handle(authOnly, ph.List, opts...))
		r.Method(http.MethodPost, "/", pipeline.Handle(pipeline.Spec[ProjectInput, pipeline.None]{
			Auth: deps.Authenticator,
			Body: projectInputSchema,
		}, ph.Create, opts...))

		r.Route("/{projectId}", func(r chi.Router) {
			r.Method(http.MethodGet, "/", pipeline.Handle(withProject, ph.Get, opts...))
			r.Method(http.MethodPut, "/", pipeline.Handle(pipeline.Spec[ProjectInput, pipeline.None]{
				Auth:   deps.Authenticator,
				Params: projectParamsSchema,
				Body:   projectInputSchema,
			}, ph.Update, opts...))
			r.Method(http.MethodDelete, "/", pipeline.Handle(withProject, ph.Delete, opts...))

			r.Method(http.MethodPost, "/users", pipeline.Handle(pipeline.Spec[MembersInput, pipeline.None]{
				Auth:   deps.Authenticator,
				Params: projectParamsSchema,
				Body:   membersInputSchema,
			}, ph.UpdateMembers, opts...))

			r.Method(http.MethodGet, "/milestones", pipeline.Handle(withProject, mh.List, opts...))
			r.Method(http.MethodPost, "/milestones", pipeline.Handle(pipeline.Spec[MilestoneInput, pipeline.None]{
				Auth:   deps.Authenticator,
				Params: projectParamsSchema,
				Body:   milestoneInputSchema,
			}, mh.Create, opts...))
		})
	})

	r.Route("/milestones/{milestoneId}", func(r chi.Router) {
		r.Method(http.MethodGet, "/", pipeline.Handle(withMilestone, mh.Get, opts...))
		r.Method(http.MethodPut, "/", pipeline.Handle(pipeline.Spec[MilestoneInput, pipeline.None]{
			Auth:   deps.Authenticator,
			Params: milestoneParamsSchema,
			Body:   milestoneInputSchema,
		}, mh.Update, opts...))
		r.Method(http.MethodDelete, "/", pipeline.Handle(withMilestone, mh.Delete, opts...))
	})

	return r
}
