package main

import (
	"log"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/chu-duc-anh/imnovelteam/auth"
	"github.com/chu-duc-anh/imnovelteam/config"
	"github.com/chu-duc-anh/imnovelteam/database"
	"github.com/chu-duc-anh/imnovelteam/handlers"
	"github.com/chu-duc-anh/imnovelteam/middleware"
	"github.com/chu-duc-anh/imnovelteam/models"
	"github.com/chu-duc-anh/imnovelteam/repository"
	"github.com/chu-duc-anh/imnovelteam/services"
	"github.com/chu-duc-anh/imnovelteam/websocket"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Printf("Configuration loaded - Frontend: %s, Backend: %s", cfg.FrontendURL, cfg.BackendURL)

	// Initialize database
	if err := database.Init(cfg); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("WebSocket hub started")

	// Initialize repositories
	userRepo := repository.NewUserRepository()
	storyRepo := repository.NewStoryRepository()
	commentRepo := repository.NewCommentRepository()
	chatRepo := repository.NewChatRepository()
	settingsRepo := repository.NewSettingsRepository()

	// Initialize services
	quotaService := services.NewQuotaService(cfg.ChatDailyLimit, chatRepo)
	coverCache := services.NewCoverCacheService()

	// Create the bootstrap admin account if configured
	if err := ensureAdminAccount(cfg, userRepo); err != nil {
		log.Fatalf("Failed to ensure admin account: %v", err)
	}

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(cfg, userRepo)
	userHandler := handlers.NewUserHandler(userRepo)
	storyHandler := handlers.NewStoryHandler(storyRepo, userRepo, coverCache)
	commentHandler := handlers.NewCommentHandler(commentRepo, storyRepo, userRepo, wsHub)
	chatHandler := handlers.NewChatHandler(chatRepo, userRepo, quotaService, wsHub)
	settingsHandler := handlers.NewSettingsHandler(settingsRepo, wsHub)
	wsHandler := handlers.NewWebSocketHandler(wsHub, cfg.FrontendURL)

	jwtService := authHandler.GetJWTService()
	rateLimit := middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)

	r := gin.Default()

	// CORS configuration
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.FrontendURL}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
		})
	})

	// Cached story covers
	r.Static("/covers", coverCache.GetBaseDir())

	// API routes
	api := r.Group("/api")
	{
		// Auth endpoints (public)
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", rateLimit, authHandler.Register)
			authGroup.POST("/login", rateLimit, authHandler.Login)
		}

		// Public reads; viewer annotations appear when a token is present
		public := api.Group("")
		public.Use(middleware.OptionalAuthMiddleware(jwtService))
		{
			public.GET("/stories", storyHandler.List)
			public.GET("/stories/:id", storyHandler.Get)
			public.GET("/stories/:id/chapters", storyHandler.ListChapters)
			public.GET("/chapters/:id", storyHandler.GetChapter)
			public.GET("/stories/:id/comments", commentHandler.List)
			public.GET("/leaderboard", userHandler.Leaderboard)
			public.GET("/settings", settingsHandler.List)
		}

		// WebSocket endpoint (token passed as query param)
		api.GET("/ws", middleware.AuthMiddleware(jwtService), wsHandler.Connect)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthMiddleware(jwtService))
		{
			// Auth
			protected.GET("/auth/me", authHandler.Me)
			protected.PUT("/auth/password", rateLimit, authHandler.ChangePassword)

			// Stories and chapters
			protected.POST("/stories", rateLimit, storyHandler.Create)
			protected.PUT("/stories/:id", rateLimit, storyHandler.Update)
			protected.DELETE("/stories/:id", rateLimit, storyHandler.Delete)
			protected.POST("/stories/:id/like", rateLimit, storyHandler.ToggleLike)
			protected.PUT("/stories/:id/bookmark", rateLimit, storyHandler.ToggleBookmark)
			protected.POST("/stories/:id/rate", rateLimit, storyHandler.Rate)
			protected.POST("/stories/:id/chapters", rateLimit, storyHandler.CreateChapter)

			// Comments
			protected.POST("/stories/:id/comments", rateLimit, commentHandler.Create)
			protected.POST("/comments/:id/like", rateLimit, commentHandler.ToggleLike)
			protected.DELETE("/comments/:id", rateLimit, commentHandler.Delete)

			// Support chat
			protected.GET("/chats", chatHandler.GetThreads)
			protected.GET("/chats/limit", chatHandler.GetLimit)
			protected.GET("/chats/:id", chatHandler.GetThread)
			protected.POST("/chats", rateLimit, chatHandler.Send)
			protected.PUT("/chats/:id/read", chatHandler.MarkRead)

			// Admin routes (require admin privileges)
			admin := protected.Group("/admin")
			admin.Use(middleware.RequireAdmin())
			{
				admin.GET("/users", userHandler.List)
				admin.PUT("/users/:id/role", userHandler.UpdateRole)
				admin.PUT("/users/:id/ally", userHandler.UpdateAlly)
				admin.PUT("/comments/:id/pin", commentHandler.TogglePin)
				admin.DELETE("/chats/:id", chatHandler.DeleteThread)
				admin.PUT("/settings", settingsHandler.Update)
			}
		}
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// ensureAdminAccount creates the configured admin user on first start
func ensureAdminAccount(cfg *config.Config, userRepo *repository.UserRepository) error {
	if cfg.AdminUsername == "" {
		return nil
	}

	existing, err := userRepo.GetByUsername(cfg.AdminUsername)
	if err != nil {
		return err
	}
	if existing != nil {
		return nil
	}

	hash, err := auth.HashPassword(cfg.AdminPassword)
	if err != nil {
		return err
	}

	admin := &models.User{
		Username:     cfg.AdminUsername,
		PasswordHash: hash,
		Role:         models.RoleAdmin,
	}
	if err := userRepo.Create(admin); err != nil {
		return err
	}
	log.Printf("Created bootstrap admin account %q", cfg.AdminUsername)
	return nil
}
