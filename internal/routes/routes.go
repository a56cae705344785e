package routes

import (
	"task-marketplace-api/internal/handlers"
	"task-marketplace-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes() *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "Task Marketplace API is running",
		})
	})

	api := ginRouter.Group("/api")

	// Public routes (no authentication required)
	{
		api.POST("/register", handlers.Register)
		api.POST("/login", handlers.Login)
		// Payment provider webhook: authenticated by its signature, not a token
		api.POST("/payments/notify", handlers.PaymentNotify)
	}

	// Listing routes: anonymous callers see open tasks, authenticated callers
	// additionally see the tasks they participate in
	publicRead := api.Group("")
	publicRead.Use(middleware.OptionalJWTMiddleware())
	{
		publicRead.GET("/tasks", handlers.GetTasks)
		publicRead.GET("/tasks/:id", handlers.GetTaskByID)
	}

	// Protected routes (authentication required)
	protectedRoutes := api.Group("")
	protectedRoutes.Use(middleware.JWTAuthMiddleware())
	{
		// Task lifecycle
		protectedRoutes.POST("/tasks", handlers.CreateTask)
		protectedRoutes.POST("/tasks/:id/cancel", handlers.CancelTask)

		// Applications and selection
		protectedRoutes.POST("/tasks/:id/applications", handlers.ApplyToTask)
		protectedRoutes.GET("/tasks/:id/applications", handlers.ListApplications)
		protectedRoutes.POST("/tasks/:id/applications/confirm", handlers.ConfirmTime)
		protectedRoutes.POST("/tasks/:id/select", handlers.SelectTasker)

		// Schedule and completion
		protectedRoutes.POST("/tasks/:id/schedule/confirm", handlers.ConfirmSchedule)
		protectedRoutes.POST("/tasks/:id/schedule/cancel", handlers.CancelSchedule)
		protectedRoutes.POST("/tasks/:id/complete/tasker", handlers.TaskerComplete)
		protectedRoutes.POST("/tasks/:id/complete/customer", handlers.CustomerComplete)

		// Payment retry and release
		protectedRoutes.POST("/tasks/:id/payment/retry", handlers.RetryPayment)
		protectedRoutes.POST("/tasks/:id/payment/release", handlers.ReleasePayment)

		// Chat
		protectedRoutes.POST("/tasks/:id/messages", handlers.SendMessage)
		protectedRoutes.GET("/tasks/:id/messages", handlers.GetMessages)

		// Notification stream
		protectedRoutes.GET("/ws", handlers.WebSocketHandler)
	}

	return ginRouter
}
