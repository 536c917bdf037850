package routes

import (
	"time"

	"github.com/ChimmyWorld/AI-sub000/handlers"
	"github.com/ChimmyWorld/AI-sub000/middleware"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func SetupRouter() *gin.Engine {
	router := gin.Default()

	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"time":   time.Now().Unix(),
		})
	})

	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://127.0.0.1:5173", "http://localhost:3000", "http://localhost:19006"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept", "X-Requested-With"},
		ExposeHeaders:    []string{"Content-Length", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Public routes
	auth := router.Group("/api/auth")
	auth.Use(middleware.RateLimit(20, time.Minute))
	auth.POST("/register", handlers.Register)
	auth.POST("/login", handlers.Login)

	router.GET("/api/posts", handlers.ListPosts)
	router.GET("/api/posts/search", handlers.SearchPosts)
	router.GET("/api/posts/category/:category", handlers.PostsByCategory)
	router.GET("/api/posts/user/:id", handlers.PostsByUser)
	router.GET("/api/posts/:id", handlers.GetPost)
	router.GET("/api/users/:id", handlers.GetUser)
	router.GET("/api/push/vapid-public-key", handlers.GetVapidPublicKey)

	// Protected routes
	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware())

	protected.GET("/users/me", handlers.Me)

	protected.POST("/posts", handlers.CreatePost)
	protected.PUT("/posts/:id", handlers.UpdatePost)
	protected.DELETE("/posts/:id", handlers.DeletePost)

	protected.POST("/posts/:id/vote", handlers.VotePost)

	protected.POST("/posts/:id/comments", handlers.AddComment)
	protected.PUT("/posts/:id/comments/:commentId", handlers.UpdateComment)
	protected.DELETE("/posts/:id/comments/:commentId", handlers.DeleteComment)

	protected.GET("/notifications", handlers.ListNotifications)
	protected.GET("/notifications/unread-count", handlers.UnreadCount)
	protected.PUT("/notifications/read-all", handlers.MarkAllNotificationsRead)
	protected.PUT("/notifications/:id/read", handlers.MarkNotificationRead)

	protected.POST("/push/subscribe", handlers.SubscribePush)

	router.NoRoute(func(c *gin.Context) {
		if len(c.Request.URL.Path) >= 4 && c.Request.URL.Path[:4] == "/api" {
			c.JSON(404, gin.H{
				"error": "Endpoint not found",
				"path":  c.Request.URL.Path,
			})
		}
	})

	return router
}
