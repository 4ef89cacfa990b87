package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"taskpay_backend/internal/api"
	"taskpay_backend/internal/middleware"
	"taskpay_backend/internal/model"
	"taskpay_backend/internal/notifier"
	"taskpay_backend/internal/repository"
	"taskpay_backend/internal/service"
	"taskpay_backend/pkg/auth"
	"taskpay_backend/pkg/logger"
	"go.uber.org/zap"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
)

func main() {
	cfg, err := LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	err = logger.Initialize(cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	zapLogger := logger.Logger()

	repo, err := repository.New(cfg.Database)
	if err != nil {
		zapLogger.Fatal("Failed to initialize repository", zap.Error(err))
	}
	defer repo.Close()

	adminBot, err := notifier.NewAdminBot(notifier.AdminBotConfig{
		BotToken: cfg.AdminBot.BotToken,
		ChatID:   cfg.AdminBot.ChatID,
		Debug:    cfg.AdminBot.Debug,
	})
	if err != nil {
		zapLogger.Fatal("Failed to initialize admin bot", zap.Error(err))
	}

	hub := notifier.NewHub(adminBot)
	services := service.NewService(repo, hub)

	jwtAuth := auth.NewJWTAuth(cfg.Auth.JWTSecret, time.Duration(cfg.Auth.SessionTTLHours)*time.Hour)
	authz := middleware.NewAuthorization(services.UserService)

	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{
		http.MethodHead,
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodPatch,
		http.MethodDelete,
	}
	corsConfig.AllowHeaders = []string{"*"}
	corsConfig.AllowCredentials = true
	corsConfig.MaxAge = 12 * time.Hour

	router.Use(cors.New(corsConfig))

	a := router.Group("/api/v1")
	api.NewUserRoutes(a, services.UserService, jwtAuth)
	api.NewRequestRoutes(a, services.RequestService, jwtAuth)
	api.NewClaimRoutes(a, services.ClaimService, jwtAuth)
	api.NewEventRoutes(a, hub, jwtAuth)
	api.NewAdminRoutes(a, services.ApprovalService, services.RequestService, services.UserService, services.SettingsService, jwtAuth, authz)

	jobs := cron.New()
	_, err = jobs.AddFunc("@hourly", func() {
		removed := services.ClaimService.ExpireStale(2 * time.Hour)
		if removed > 0 {
			zapLogger.Info("expired stale claim challenges", zap.Int("count", removed))
		}
	})
	if err != nil {
		zapLogger.Fatal("Failed to schedule claim sweep", zap.Error(err))
	}

	_, err = jobs.AddFunc("@daily", func() {
		status := model.RequestStatusPending
		pending, err := services.RequestService.ListRequests(context.Background(), nil, &status)
		if err != nil {
			zapLogger.Error("failed to build pending digest", zap.Error(err))
			return
		}

		byKind := make(map[model.RequestKind]int)
		for _, req := range pending {
			byKind[req.Kind]++
		}
		adminBot.SendDigest(byKind)
	})
	if err != nil {
		zapLogger.Fatal("Failed to schedule pending digest", zap.Error(err))
	}

	jobs.Start()
	defer jobs.Stop()

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting server", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
