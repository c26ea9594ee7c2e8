package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mewilker/jwt-pizza-service/internal/auth"
	"github.com/mewilker/jwt-pizza-service/internal/config"
	"github.com/mewilker/jwt-pizza-service/internal/http/handlers"
	"github.com/mewilker/jwt-pizza-service/internal/http/respond"
	"github.com/mewilker/jwt-pizza-service/internal/middleware"
	"github.com/mewilker/jwt-pizza-service/internal/storage"
)

// Version is stamped at build time.
var Version = "dev"

// Server wraps an http.Server with configured routes.
type Server struct {
	inner *http.Server
}

// New wires up middleware, routes, and returns a ready server.
func New(cfg config.Config, store storage.Store, log *zap.Logger) *Server {
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddress(),
		Handler:           Routes(cfg, store, log),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	return &Server{inner: httpServer}
}

// Routes builds the full middleware and routing stack.
func Routes(cfg config.Config, store storage.Store, log *zap.Logger) http.Handler {
	router := mux.NewRouter()
	router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "unknown endpoint")
	})

	tokens := auth.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer)

	handlers.NewHealthHandler(time.Now(), Version).Register(router)
	handlers.NewAuthHandler(store, tokens, log).Register(router)
	handlers.NewFranchiseHandler(store, log).Register(router)
	handlers.NewOrderHandler(store, log).Register(router)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	var handler http.Handler = router
	handler = middleware.Authenticate(tokens, store, handler)
	handler = middleware.Metrics(handler)
	handler = middleware.Logging(log, handler)
	handler = middleware.Recover(log, handler)
	handler = middleware.CORS(cfg.CORS.Origins, handler)

	return handler
}

// Start begins serving HTTP traffic.
func (s *Server) Start() error {
	return s.inner.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.inner.Shutdown(ctx)
}
