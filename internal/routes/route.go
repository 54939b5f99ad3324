package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joshua-takyi/gigboard/internal/container"
	"github.com/joshua-takyi/gigboard/internal/handlers"
	"github.com/joshua-takyi/gigboard/internal/middleware"
	"github.com/joshua-takyi/gigboard/internal/models"
)

// SetupRoutes configures all routes with the dependency container
func SetupRoutes(container *container.Container) *gin.Engine {
	if container.Config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(cors.New(cors.Config{
		AllowOrigins:     container.Config.AllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: true,
	}))

	r.Use(middleware.RequestID())
	r.Use(middleware.StructuredLogger(container.Logger))
	r.Use(middleware.Metrics(container.Metrics))
	r.Use(middleware.ErrorHandler(container.Logger))
	r.Use(gin.Recovery())

	r.GET("/metrics", gin.WrapH(container.Metrics.Handler()))

	auth := middleware.AuthMiddleware(container.Tokens, container.AuthService, container.Logger)
	optionalAuth := middleware.OptionalAuth(container.Tokens, container.AuthService)

	// API version 1
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", handlers.Health(container.Repo, container.Config.Environment, time.Now()))
		v1.GET("/health/db", handlers.DatabaseHealth(container.Repo))
	}

	authRoutes := v1.Group("/auth")
	{
		authRoutes.POST("/send-verification", handlers.SendVerification(container.VerificationService))
		authRoutes.POST("/resend-verification", handlers.SendVerification(container.VerificationService))
		authRoutes.POST("/verify-phone", handlers.VerifyPhone(container.VerificationService))
		authRoutes.POST("/register", handlers.Register(container.AuthService))
		authRoutes.POST("/login", handlers.Login(container.AuthService))
		authRoutes.POST("/check-phone", handlers.CheckPhone(container.AuthService))

		authRoutes.GET("/me", auth, handlers.Me(container.AuthService))
		authRoutes.PUT("/complete-profile", auth, handlers.CompleteProfile(container.AuthService))
		authRoutes.PUT("/change-pin", auth, handlers.ChangePin(container.AuthService))
	}

	jobRoutes := v1.Group("/jobs")
	{
		jobRoutes.GET("", handlers.ListJobs(container.JobService))
		jobRoutes.GET("/hot", optionalAuth, handlers.ListJobsByUrgency(container.JobService, models.UrgencyUrgent))
		jobRoutes.GET("/normal", optionalAuth, handlers.ListJobsByUrgency(container.JobService, models.UrgencyNormal))
		jobRoutes.GET("/my-jobs", auth, handlers.ListMyJobs(container.JobService))
		jobRoutes.GET("/:id", handlers.GetJob(container.JobService))

		jobRoutes.POST("", auth, handlers.CreateJob(container.JobService))
		jobRoutes.PUT("/:id", auth, handlers.UpdateJob(container.JobService))
		jobRoutes.DELETE("/:id", auth, handlers.DeleteJob(container.JobService))
		jobRoutes.PUT("/:id/status", auth, handlers.UpdateJobStatus(container.JobService))
		jobRoutes.POST("/:id/interest", auth, handlers.ExpressInterest(container.JobService))
	}

	locationRoutes := v1.Group("/locations", auth)
	{
		locationRoutes.POST("", handlers.SaveLocation(container.LocationService))
		locationRoutes.GET("", handlers.ListLocations(container.LocationService))
		locationRoutes.DELETE("/:id", handlers.DeleteLocation(container.LocationService))
	}

	notificationRoutes := v1.Group("/notifications", auth)
	{
		notificationRoutes.GET("", handlers.ListNotifications(container.NotificationService))
		notificationRoutes.GET("/unread-count", handlers.UnreadCount(container.NotificationService))
		notificationRoutes.PUT("/read-all", handlers.MarkAllNotificationsRead(container.NotificationService))
		notificationRoutes.PUT("/:id/read", handlers.MarkNotificationRead(container.NotificationService))
		notificationRoutes.DELETE("/:id", handlers.DeleteNotification(container.NotificationService))
	}

	adminRoutes := v1.Group("/admin", auth, middleware.RequireRole(models.RoleAdmin))
	{
		adminRoutes.POST("/jobs/expire", handlers.ExpireOldJobs(container.JobService))
	}

	return r
}
