package sse

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/fx"
)

// Module registers the stream route on the User Service's shared mux. It
// runs as an fx.Invoke alongside internal/handler/http's UserModule; the
// server itself is started afterward, by internal/app calling
// http.StartUserServer once every route contributor above has had a chance
// to register.
var Module = fx.Module("handler-sse",
	fx.Provide(NewHandler),
	fx.Invoke(func(router *chi.Mux, h *Handler) {
		h.Routes(router)
	}),
)
