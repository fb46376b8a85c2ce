// Package server wires the HTTP surface: chi routing and middleware, CORS,
// the Connect services, health and metrics endpoints.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mmynk/groupledger/internal/auth"
	"github.com/mmynk/groupledger/internal/metrics"
	"github.com/mmynk/groupledger/internal/middleware"
	"github.com/mmynk/groupledger/internal/service"
	"github.com/mmynk/groupledger/internal/storage"
	"github.com/mmynk/groupledger/pkg/api"
)

// Options configures NewRouter.
type Options struct {
	Store          storage.Store
	JWT            *auth.JWTManager
	Metrics        *metrics.Metrics
	Logger         *slog.Logger
	AllowedOrigins []string
}

// NewRouter builds the root handler.
//
// Interceptor order, outermost first: metrics, auth, logging. Rejected
// credentials are still counted, and log lines carry the member ID.
func NewRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(requestLogger(logger))
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: opts.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept", "Authorization", "Content-Type",
			"Connect-Protocol-Version", "Connect-Timeout-Ms",
		},
		ExposedHeaders: []string{"Connect-Protocol-Version", "Connect-Timeout-Ms"},
		MaxAge:         300,
	}))

	interceptors := connect.WithInterceptors(
		middleware.MetricsInterceptor(opts.Metrics),
		middleware.RequireAuth(opts.JWT),
		middleware.LoggingInterceptor(logger),
	)

	groupPath, groupHandler := api.NewGroupServiceHandler(service.NewGroupService(opts.Store), interceptors)
	r.Mount(groupPath, groupHandler)

	ledgerPath, ledgerHandler := api.NewLedgerServiceHandler(service.NewLedgerService(opts.Store, opts.Metrics), interceptors)
	r.Mount(ledgerPath, ledgerHandler)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("ok"))
	})

	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	return r
}

// requestLogger logs every HTTP request with its chi request ID.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			logger.Debug("Request completed",
				"request_id", chimw.GetReqID(r.Context()),
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"bytes", ww.BytesWritten(),
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}
