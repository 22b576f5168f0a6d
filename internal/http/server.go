package http

import (
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"quill/app/internal/article"
	"quill/app/internal/auth"
	"quill/app/internal/category"
	"quill/app/internal/faults"
	"quill/app/internal/user"
)

// Options configures the HTTP server wiring.
type Options struct {
	Users       user.Service
	Articles    article.Service
	Categories  category.Service
	Tokens      *auth.TokenManager
	Faults      *faults.Manager
	Database    *gorm.DB
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	RateLimiter RateLimiterSettings
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the JSON API via Huma on a plain net/http mux.
type Server struct {
	api         huma.API
	mux         *stdhttp.ServeMux
	users       user.Service
	articles    article.Service
	categories  category.Service
	tokens      *auth.TokenManager
	faults      *faults.Manager
	logger      *logrus.Logger
	sentry      *sentry.Hub
	db          *gorm.DB
	rateLimiter *RateLimiter
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Users == nil {
		return nil, eris.New("user service is required")
	}
	if opts.Articles == nil {
		return nil, eris.New("article service is required")
	}
	if opts.Categories == nil {
		return nil, eris.New("category service is required")
	}
	if opts.Tokens == nil {
		return nil, eris.New("token manager is required")
	}
	if opts.Faults == nil {
		return nil, eris.New("fault manager is required")
	}
	if opts.Database == nil {
		return nil, eris.New("database is required")
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Quill CMS API", "1.0.0")
	// No $schema link injection; response bodies carry the envelope fields only.
	config.CreateHooks = nil

	api := humago.New(mux, config)

	srv := &Server{
		api:         api,
		mux:         mux,
		users:       opts.Users,
		articles:    opts.Articles,
		categories:  opts.Categories,
		tokens:      opts.Tokens,
		faults:      opts.Faults,
		logger:      opts.Logger,
		sentry:      opts.SentryHub,
		db:          opts.Database,
		rateLimiter: NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL),
	}

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

// API exposes the underlying Huma API instance.
func (s *Server) API() huma.API {
	return s.api
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	s.registerAuthRoutes()
	s.registerArticleRoutes()
	s.registerCategoryRoutes()
	s.registerHealthRoute()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
