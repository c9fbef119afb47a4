package server

import (
	"context"
	"net/http"

	"messaging-service/internal/config"
	httphandler "messaging-service/internal/handler/http"
	wshandler "messaging-service/internal/handler/ws"
	"messaging-service/internal/maskfilter"
	"messaging-service/internal/middleware"
	"messaging-service/internal/repository"
	"messaging-service/internal/router"
	"messaging-service/internal/usecase"
	"messaging-service/internal/ws"
	"messaging-service/pkg/idempotency"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func NewServer(ctx context.Context, cfg config.AppConfig, logger *zap.Logger) (*http.Server, error) {
	dbpool, err := config.ConnectDB()
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})

	// --- Repositories ---
	chatRepo := repository.NewChatRepository(dbpool)
	partyRepo := repository.NewPartyRepository(dbpool)
	wordRepo := repository.NewWordRepository(dbpool)
	notifRepo := repository.NewNotificationRepository(dbpool)

	// --- Mask filter ---
	filter := maskfilter.New(wordRepo, cfg.MaskFilterTTL, logger)

	// --- Broadcast layer ---
	manager := ws.NewManager(rdb, logger)
	go manager.Run(ctx)

	// --- Usecases ---
	chatUC := usecase.NewChatUsecase(chatRepo, partyRepo, filter, manager, logger)
	notifUC := usecase.NewNotificationUsecase(notifRepo, partyRepo, logger)

	// --- Handlers ---
	chatHandler := httphandler.NewChatHandler(chatUC, logger)
	notifHandler := httphandler.NewNotificationHandler(notifUC, logger)
	adminHandler := httphandler.NewAdminHandler(filter, logger)
	wsHandler := wshandler.NewWSHandler(manager, chatUC, logger)

	// --- Middleware ---
	auth := middleware.NewAuth(cfg.JWTSecret)
	idemStore := idempotency.NewRedisStore(rdb, cfg.IdempotencyTTL)

	r := chi.NewRouter()
	router.SetupRoutes(r, chatHandler, notifHandler, adminHandler, wsHandler, auth, idemStore, rdb, logger)

	return &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}, nil
}
