package handler

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/uninotes-api/internal/middleware"
	"github.com/noah-isme/uninotes-api/internal/models"
	"github.com/noah-isme/uninotes-api/internal/service"
	"github.com/noah-isme/uninotes-api/pkg/config"
	"github.com/noah-isme/uninotes-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/uninotes-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/uninotes-api/pkg/middleware/requestid"
)

// Services bundles what the router needs to mount every endpoint.
type Services struct {
	Auth    *service.AuthService
	Users   *service.UserService
	Notes   *service.NoteService
	Admin   *service.AdminService
	Stats   *service.StatsService
	Export  *service.ExportService
	Metrics *service.MetricsService
	Ready   ReadinessCheck
}

// NewRouter builds the gin engine with the middleware chain and all routes.
func NewRouter(cfg *config.Config, svc Services, logr *zap.Logger) *gin.Engine {
	if logr == nil {
		logr = zap.NewNop()
	}
	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// multipart bodies beyond this spill to temp files
	r.MaxMultipartMemory = cfg.Uploads.MaxFileSizeBytes + 1<<20
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(svc.Metrics))
	r.Use(middleware.WithResponseMeta())

	metricsHandler := NewMetricsHandler(svc.Metrics, svc.Ready)
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)
	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	authHandler := NewAuthHandler(svc.Auth, svc.Users)
	noteHandler := NewNoteHandler(svc.Notes, cfg.Uploads.MaxFileSizeBytes)
	userHandler := NewUserHandler(svc.Users)
	adminHandler := NewAdminHandler(svc.Admin, svc.Users, svc.Stats, svc.Export)
	requireAuth := middleware.JWT(svc.Auth)

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	auth.POST("/register", authHandler.Register)
	auth.POST("/login", authHandler.Login)
	auth.POST("/logout", requireAuth, authHandler.Logout)
	auth.GET("/me", requireAuth, authHandler.Me)

	notes := api.Group("/notes")
	notes.GET("", noteHandler.List)
	notes.GET("/timeline", noteHandler.Timeline)
	notes.GET("/mine", requireAuth, noteHandler.Mine)
	notes.GET("/:id", noteHandler.Get)
	notes.POST("", requireAuth, noteHandler.Upload)
	notes.POST("/drafts", requireAuth, noteHandler.CreateDraft)
	notes.PUT("/:id/file", requireAuth, noteHandler.AttachFile)
	notes.PATCH("/:id", requireAuth, noteHandler.Update)
	notes.DELETE("/:id", requireAuth, noteHandler.Delete)
	notes.GET("/:id/download-url", requireAuth, noteHandler.DownloadURL)

	api.GET("/downloads/:token", noteHandler.Download)
	api.PUT("/users/me", requireAuth, userHandler.UpdateMe)

	admin := api.Group("/admin")
	admin.Use(requireAuth, middleware.RequireRoles(models.RoleAdmin))
	admin.GET("/stats", adminHandler.Stats)
	admin.GET("/posts", adminHandler.Posts)
	admin.DELETE("/posts", adminHandler.ClearPosts)
	admin.DELETE("/posts/:id", adminHandler.DeletePost)
	admin.POST("/posts/cleanup", adminHandler.Cleanup)
	admin.GET("/quarantine", adminHandler.Quarantine)
	admin.POST("/quarantine/:id/restore", adminHandler.Restore)
	admin.GET("/users", adminHandler.Users)
	admin.POST("/users/:email/promote", adminHandler.Promote)
	admin.POST("/users/:email/demote", adminHandler.Demote)
	admin.GET("/logs", adminHandler.Logs)
	admin.GET("/exports/notes", adminHandler.ExportNotes)

	return r
}
