package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/antonpetrovs/whisperline/internal/common"
)

// Routes configures and returns the chi router.
func (h *Handler) Routes(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", common.AuthorizationHeaderName, "Content-Type", common.DeviceIDHeaderName},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", h.handleRegister)
		r.Post("/login", h.handleLogin)
		r.Post("/refresh", h.handleRefresh)
		r.Post("/qr-login", h.handleQRLogin)

		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)
			r.Post("/logout", h.handleLogout)
			r.Post("/qr-init", h.handleQRInit)
		})
	})

	r.Route("/messages", func(r chi.Router) {
		r.Use(h.AuthMiddleware)
		r.Post("/send", h.handleSendMessage)
		r.Get("/since", h.handleMessagesSince)
	})

	return r
}
