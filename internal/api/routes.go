package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"docksign/internal/api/middleware"
	"docksign/internal/auth"
	"docksign/internal/config"
	"docksign/internal/storage"
)

// RegisterRoutes 注册全部 API 路由。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	authService *auth.AuthService,
	redisClient *redis.Client,
	logger *slog.Logger,
	storageClient *storage.Client,
) {
	authHandler := NewAuthHandler(
		db, authService, redisClient, logger,
		cfg.Auth.LoginRateLimitPerHour,
		cfg.Auth.LoginLockThreshold,
		cfg.Auth.LoginLockTTL(),
		cfg.API.CookieDomain,
	)
	categoryHandler := NewCategoryHandler(db)
	templateHandler := NewTemplateHandler(db)
	documentHandler := NewDocumentHandler(db, storageClient, asynqClient, cfg.Upload, logger)
	wsHandler := NewWsHandler(redisClient, authService, logger, cfg.API.AllowedOrigins)
	authMiddleware := middleware.AuthMiddleware(authService)

	v1 := router.Group("/v1")
	{
		v1.GET("/ws", wsHandler.HandleConnection)

		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/register", authHandler.Register)
			authGroup.POST("/login", authHandler.Login)
			authGroup.POST("/refresh", authHandler.Refresh)
			authGroup.POST("/logout", authHandler.Logout)
			authGroup.POST("/change-password", authMiddleware, authHandler.ChangePassword)
		}

		categoryGroup := v1.Group("/categories")
		categoryGroup.Use(authMiddleware)
		{
			categoryGroup.POST("", categoryHandler.CreateCategory)
			categoryGroup.GET("", categoryHandler.ListCategories)
			categoryGroup.PUT("/:id", categoryHandler.UpdateCategory)
			categoryGroup.DELETE("/:id", categoryHandler.DeleteCategory)
		}

		templateGroup := v1.Group("/templates")
		templateGroup.Use(authMiddleware)
		{
			templateGroup.POST("", templateHandler.CreateTemplate)
			templateGroup.GET("", templateHandler.ListTemplates)
			templateGroup.GET("/:id", templateHandler.GetTemplate)
			templateGroup.PUT("/:id", templateHandler.UpdateTemplate)
			templateGroup.DELETE("/:id", templateHandler.DeleteTemplate)
		}

		documentGroup := v1.Group("/documents")
		documentGroup.Use(authMiddleware)
		{
			documentGroup.POST("", documentHandler.UploadDocument)
			documentGroup.POST("/from-template/:templateId", documentHandler.CreateFromTemplate)
			documentGroup.GET("", documentHandler.ListDocuments)
			documentGroup.GET("/:id", documentHandler.GetDocument)
			documentGroup.PATCH("/:id", documentHandler.UpdateDocument)
			documentGroup.POST("/:id/submit", documentHandler.SubmitDocument)
			documentGroup.DELETE("/:id", documentHandler.DeleteDocument)
			documentGroup.GET("/:id/download", documentHandler.DownloadDocument)
			documentGroup.POST("/:id/export", documentHandler.ExportDocument)
			documentGroup.GET("/:id/download-link", documentHandler.GetDownloadLink)
		}
	}
}
