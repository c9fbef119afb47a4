package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"

	httphandler "messaging-service/internal/handler/http"
	wshandler "messaging-service/internal/handler/ws"
	"messaging-service/internal/middleware"
	"messaging-service/pkg/idempotency"

	"go.uber.org/zap"
)

// SetupRoutes wires the HTTP surface. All unsafe-verb routes sit behind the
// idempotency guard; everything business-facing requires auth.
func SetupRoutes(
	r chi.Router,
	chat *httphandler.ChatHandler,
	notif *httphandler.NotificationHandler,
	admin *httphandler.AdminHandler,
	wsh *wshandler.WSHandler,
	auth *middleware.Auth,
	idemStore idempotency.Store,
	rdb *redis.Client,
	logger *zap.Logger,
) chi.Router {
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			idempotency.HeaderKey,
		},
		ExposedHeaders:   []string{"Link", idempotency.HeaderKey},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Use(middleware.RateLimiter(rdb, 100, time.Minute, 10*time.Minute, "global"))

	guard := idempotency.Guard(idemStore, logger)

	r.Route("/api/v1/messages", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/ws", wsh.HandleChat)
		r.Get("/{peerID}", chat.History)
		r.Get("/{peerID}/unread", chat.Unread)

		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Post("/", chat.SendMessage)
			r.Post("/{peerID}/read", chat.MarkRead)
		})
	})

	r.Route("/api/v1/notifications", func(r chi.Router) {
		r.Use(auth.Middleware)

		r.Get("/", notif.ListMine)

		r.Group(func(r chi.Router) {
			r.Use(guard)
			r.Post("/", notif.Dispatch)
		})
	})

	r.Route("/api/v1/admin", func(r chi.Router) {
		r.Use(auth.Middleware)
		r.Use(middleware.RequireManager)

		r.Post("/maskfilter/reload", admin.ReloadMaskFilter)
	})

	return r
}
