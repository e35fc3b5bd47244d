package main

import (
	"fmt"
	stdlog "log"

	"github.com/gin-gonic/gin"

	"github.com/fikri221/linking-up/internal/cache"
	"github.com/fikri221/linking-up/internal/config"
	"github.com/fikri221/linking-up/internal/domain"
	"github.com/fikri221/linking-up/internal/handler"
	"github.com/fikri221/linking-up/internal/repository"
	"github.com/fikri221/linking-up/internal/service"
	"github.com/fikri221/linking-up/pkg/database"
	"github.com/fikri221/linking-up/pkg/jwt"
	"github.com/fikri221/linking-up/pkg/log"
	"github.com/fikri221/linking-up/pkg/middleware"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger (also bridges stdlib log to zerolog)
	log.Init(cfg.Log)
	logger := log.L()

	// Connect to database using GORM
	db, err := database.New(&database.Config{
		Driver:          cfg.Database.Driver,
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		DBName:          cfg.Database.DBName,
		SSLMode:         cfg.Database.SSLMode,
		FilePath:        cfg.Database.FilePath,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}

	// Auto-migrate
	if err := database.AutoMigrate(db,
		&domain.UserModel{},
		&domain.ChatRoomModel{},
		&domain.MessageModel{},
	); err != nil {
		logger.Fatal().Err(err).Msg("failed to auto-migrate")
	}
	logger.Info().Msg("database migration completed")

	// User cache is best-effort: the service runs without it if redis
	// is unreachable.
	var userCache cache.UserCache
	if redisCache, err := cache.NewRedisUserCache(cfg.Redis, cfg.Cache.Prefix); err != nil {
		logger.Warn().Err(err).Msg("redis unavailable, running without user cache")
	} else {
		userCache = redisCache
		defer redisCache.Close()
	}

	// Session token manager
	tokens := jwt.NewManager(cfg.Auth.Secret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)

	// Repositories
	userRepo := repository.NewGormUserRepository(db)
	roomRepo := repository.NewGormChatRoomRepository(db)
	messageRepo := repository.NewGormMessageRepository(db)

	// Services
	userService := service.NewUserService(userRepo, userCache, tokens, cfg.Auth.BcryptCost)
	chatService := service.NewChatService(messageRepo, roomRepo, userRepo, userCache, cfg.Cache.TTL)

	// Auth middleware and HTTP handler
	authMiddleware := middleware.NewAuthMiddleware(tokens)
	httpHandler := handler.NewHandler(userService, chatService, authMiddleware)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(log.GinMiddleware(logger))
	r.Use(gin.Recovery())

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Register routes
	httpHandler.RegisterRoutes(r)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info().Str("addr", addr).Str("driver", cfg.Database.Driver).Msg("linking-up server starting")
	if err := r.Run(addr); err != nil {
		logger.Fatal().Err(err).Msg("failed to start server")
	}
}
