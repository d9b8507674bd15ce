package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/webitel/broadcast-delivery-service/internal/config"
	"go.uber.org/fx"
)

// AdminModule serves the broadcast lifecycle and DLT management API on
// cfg.HTTP.AdminAddr. The Admin Service has only this one route contributor,
// so it owns starting its own server.
var AdminModule = fx.Module("http-admin",
	fx.Provide(NewAdminHandler),
	fx.Invoke(func(lc fx.Lifecycle, h *AdminHandler, cfg *config.Config, logger *slog.Logger) {
		router := newRouter()
		h.Routes(router)
		startServer(lc, cfg.HTTP.AdminAddr, router, logger, "admin")
	}),
)

// UserModule provides the shared User Service mux and registers the
// connection-management/read-receipt routes on it. internal/handler/sse
// registers the stream route on the same mux; internal/app starts the
// listener last, via StartUserServer, once every route contributor has run.
var UserModule = fx.Module("http-user",
	fx.Provide(
		newRouter,
		NewUserHandler,
	),
	fx.Invoke(func(router *chi.Mux, h *UserHandler) {
		h.Routes(router)
	}),
)

func newRouter() *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	return r
}

// StartUserServer begins listening on cfg.HTTP.UserAddr. internal/app calls
// this as the final fx.Invoke for the User Service, after both this package
// and internal/handler/sse have registered their routes on router.
func StartUserServer(lc fx.Lifecycle, router *chi.Mux, cfg *config.Config, logger *slog.Logger) {
	startServer(lc, cfg.HTTP.UserAddr, router, logger, "user")
}

func startServer(lc fx.Lifecycle, addr string, handler http.Handler, logger *slog.Logger, name string) {
	srv := &http.Server{Addr: addr, Handler: handler}
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					logger.Error("http: server stopped", "name", name, "error", err)
				}
			}()
			logger.Info("http: server listening", "name", name, "addr", addr)
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
