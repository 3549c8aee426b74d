package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/homecare-backend/internal/config"
	"github.com/ignatzorin/homecare-backend/internal/http/handlers"
	"github.com/ignatzorin/homecare-backend/internal/http/middleware"
	"github.com/ignatzorin/homecare-backend/internal/models"
	"github.com/ignatzorin/homecare-backend/internal/service"
)

// SetupRouter собирает все маршруты приложения.
func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	proposalHandler *handlers.ProposalHandler,
	objectHandler *handlers.ObjectHandler,
	dashboardHandler *handlers.DashboardHandler,
	propertyHandler *handlers.PropertyHandler,
	maintenanceHandler *handlers.MaintenanceHandler,
	appointmentHandler *handlers.AppointmentHandler,
	referralHandler *handlers.ReferralHandler,
	chatHandler *handlers.ChatHandler,
	notificationHandler *handlers.NotificationHandler,
	wsHandler *handlers.WSHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	// Раздача загруженных объектов
	r.GET("/objects/:dir/:file", objectHandler.Serve)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authRateLimit := middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod)
	authGroup.Use(authRateLimit)
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
		authGroup.POST("/logout", authHandler.Logout)
	}

	protectedAuth := api.Group("/auth")
	protectedAuth.Use(middleware.AuthMiddleware(tokenManager))
	{
		protectedAuth.GET("/sessions", authHandler.ListSessions)
		protectedAuth.DELETE("/sessions/:id", middleware.UUIDValidator("id"), authHandler.DeleteSession)
		protectedAuth.DELETE("/sessions", authHandler.DeleteOtherSessions)
	}

	api.GET("/ws", wsHandler.Handle)

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(tokenManager))
	{
		protected.GET("/profile", authHandler.GetProfile)
		protected.PUT("/profile", authHandler.UpdateProfile)

		protected.GET("/dashboard", dashboardHandler.Get)
		protected.GET("/achievements", dashboardHandler.ListAchievements)

		// Предложения
		proposals := protected.Group("/proposals")
		{
			proposals.POST("", proposalHandler.Create)
			proposals.GET("", proposalHandler.List)

			withID := proposals.Group("/:id")
			withID.Use(middleware.UUIDValidator("id"))
			{
				withID.GET("", proposalHandler.Get)
				withID.PATCH("", proposalHandler.Update)
				withID.DELETE("", proposalHandler.Delete)
				withID.POST("/send", proposalHandler.Send)
				withID.POST("/accept", proposalHandler.Accept)
				withID.POST("/reject", proposalHandler.Reject)
				withID.POST("/sign", proposalHandler.Sign)
				withID.POST("/attachments", proposalHandler.UploadAttachments)
				withID.POST("/contract", proposalHandler.UploadContract)
			}
		}

		// Прямая загрузка в хранилище
		protected.POST("/objects/upload", objectHandler.Presign)

		// Дома и журнал работ
		properties := protected.Group("/properties")
		{
			properties.POST("", propertyHandler.Create)
			properties.GET("", propertyHandler.List)

			withID := properties.Group("/:id")
			withID.Use(middleware.UUIDValidator("id"))
			{
				withID.GET("", propertyHandler.Get)
				withID.PUT("", propertyHandler.Update)
				withID.DELETE("", propertyHandler.Delete)
				withID.POST("/records", propertyHandler.AddServiceRecord)
				withID.GET("/records", propertyHandler.ListServiceRecords)

				withID.GET("/maintenance", maintenanceHandler.Plan)
				withTask := withID.Group("/maintenance/:taskId")
				withTask.Use(middleware.UUIDValidator("taskId"))
				{
					withTask.POST("/complete", maintenanceHandler.Complete)
					withTask.PUT("/visibility", maintenanceHandler.SetVisibility)
				}
			}
		}

		// Визиты
		appointments := protected.Group("/appointments")
		{
			appointments.POST("", appointmentHandler.Create)
			appointments.GET("", appointmentHandler.List)
			appointments.PATCH("/:id", middleware.UUIDValidator("id"), appointmentHandler.UpdateStatus)
			appointments.DELETE("/:id", middleware.UUIDValidator("id"), appointmentHandler.Delete)
		}

		// Реферальная программа агентов
		referrals := protected.Group("/referrals")
		referrals.Use(middleware.RequireRole(models.RoleAgent))
		{
			referrals.GET("", referralHandler.List)
			referrals.GET("/progress", referralHandler.Progress)
			referrals.GET("/commissions", referralHandler.ListCommissions)
		}

		// Переписки
		conversations := protected.Group("/conversations")
		{
			conversations.POST("", chatHandler.StartConversation)
			conversations.GET("", chatHandler.ListConversations)
			conversations.POST("/:id/messages", middleware.UUIDValidator("id"), chatHandler.SendMessage)
			conversations.GET("/:id/messages", middleware.UUIDValidator("id"), chatHandler.ListMessages)
		}

		// Уведомления
		notifications := protected.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.POST("/read-all", notificationHandler.MarkAllRead)
			notifications.POST("/:id/read", middleware.UUIDValidator("id"), notificationHandler.MarkRead)
		}
	}

	return r
}
