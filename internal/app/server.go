package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/markdave123-py/outreach/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/outreach/internal/api/middlewares"
	"github.com/markdave123-py/outreach/internal/api/response"
	"github.com/markdave123-py/outreach/internal/config"
	"github.com/markdave123-py/outreach/internal/core"
	"github.com/markdave123-py/outreach/internal/logger"
	"github.com/markdave123-py/outreach/internal/services"
)

// Services are the domain services the router exposes.
type Services struct {
	Contacts  *services.ContactService
	Templates *services.TemplateService
	Prompts   *services.PromptService
	Users     *services.UserService
}

// RouterDeps carries everything NewRouter wires into the routes.
type RouterDeps struct {
	Services Services
	Tokens   core.TokenManager

	// LoginLimiter and RegisterLimiter may be nil to disable rate limiting.
	LoginLimiter    core.RateLimiter
	RegisterLimiter core.RateLimiter

	// Uploads serves stored attachments under the public prefix when the
	// filesystem store is active. Nil disables static serving.
	Uploads http.Handler

	Logger *logger.Logger
}

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
	logger     *logger.Logger
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, deps RouterDeps) *Server {
	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(cfg, deps),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return &Server{httpServer: httpSrv, logger: deps.Logger}
}

// NewRouter builds the chi router serving the /api surface.
func NewRouter(cfg *config.Config, deps RouterDeps) chi.Router {
	contactHandler := handlers.NewContactHandler(deps.Services.Contacts, deps.Logger)
	templateHandler := handlers.NewTemplateHandler(deps.Services.Templates, deps.Logger)
	promptHandler := handlers.NewPromptHandler(deps.Services.Prompts, deps.Logger)
	userHandler := handlers.NewUserHandler(deps.Services.Users, deps.Logger)

	requireAuth := appMiddleware.JWTMiddleware(deps.Tokens)
	// guarded wraps routes that need a token only when AUTH_REQUIRED is set.
	guarded := func(r chi.Router) chi.Router {
		if cfg.AuthRequired {
			return r.With(requireAuth)
		}
		return r
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(appMiddleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.RequestTimeout))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	if deps.Uploads != nil {
		prefix := "/" + strings.Trim(cfg.Storage.PublicPrefix, "/")
		r.Handle(prefix+"/*", http.StripPrefix(prefix, deps.Uploads))
	}

	r.Route("/api", func(api chi.Router) {
		api.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			response.Message(w, http.StatusOK, "API is running")
		})

		api.Route("/contacts", func(c chi.Router) {
			c.Get("/", contactHandler.List)
			c.Get("/export/all", contactHandler.Export)
			c.Get("/{id}", contactHandler.Get)

			w := guarded(c)
			w.Post("/upsert", contactHandler.Upsert)
			w.Post("/upload", contactHandler.Upload)
			w.Delete("/{id}", contactHandler.Delete)
		})

		api.Route("/templates", func(t chi.Router) {
			t.Get("/", templateHandler.List)
			t.Get("/names", templateHandler.Names)
			t.Get("/search/templates", templateHandler.Search)
			t.Get("/stats/overview", templateHandler.Stats)
			t.Get("/{id}", templateHandler.Get)
			t.Get("/{id}/download", templateHandler.Download)

			w := guarded(t)
			w.Post("/", templateHandler.Create)
			w.Put("/{id}", templateHandler.Update)
			w.Delete("/{id}", templateHandler.Delete)
		})

		api.Route("/ai-prompt-templates", func(p chi.Router) {
			p.Get("/", promptHandler.List)
			p.Get("/names", promptHandler.Names)
			p.Get("/{id}", promptHandler.Get)
			p.Get("/{id}/download", promptHandler.Download)

			w := guarded(p)
			w.Post("/", promptHandler.Create)
			w.Post("/upsert", promptHandler.Upsert)
			w.Post("/file", promptHandler.Upsert)
			w.Put("/{id}", promptHandler.Update)
			w.Delete("/{id}", promptHandler.Delete)
		})

		api.Route("/users", func(u chi.Router) {
			u.With(appMiddleware.RateLimit(deps.RegisterLimiter, "register")).Post("/register", userHandler.Register)
			u.With(appMiddleware.RateLimit(deps.LoginLimiter, "login")).Post("/login", userHandler.Login)
			u.With(requireAuth).Get("/me", userHandler.Me)

			w := guarded(u)
			w.Post("/{userId}/profile-image", userHandler.UpdateProfileImage)
			w.Get("/{userId}/profile-image", userHandler.GetProfileImage)
		})
	})

	return r
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("HTTP server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	return s.httpServer.Shutdown(ctx)
}
