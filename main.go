package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ChimmyWorld/AI-sub000/cache"
	"github.com/ChimmyWorld/AI-sub000/database"
	"github.com/ChimmyWorld/AI-sub000/handlers"
	"github.com/ChimmyWorld/AI-sub000/middleware"
	"github.com/ChimmyWorld/AI-sub000/realtime"
	"github.com/ChimmyWorld/AI-sub000/routes"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using process environment")
	}

	if os.Getenv("JWT_SECRET") == "" {
		log.Fatal("JWT_SECRET must be set")
	}

	log.Println("Connecting to MongoDB...")
	var dbErr error
	for i := 1; i <= 3; i++ {
		if err := database.Connect(); err != nil {
			dbErr = err
			log.Printf("MongoDB connection attempt %d failed: %v", i, err)
			time.Sleep(2 * time.Second)
			continue
		}
		dbErr = nil
		break
	}
	if dbErr != nil {
		log.Fatal("Failed to connect to MongoDB: ", dbErr)
	}

	cache.Init()

	if os.Getenv("GIN_MODE") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := routes.SetupRouter()

	hub := realtime.NewHub()
	go hub.Run()
	handlers.SetHub(hub)

	// Websocket clients authenticate with ?token=, handled by the same
	// JWT middleware as the REST routes.
	router.GET("/ws", middleware.JWTAuthMiddleware(), func(c *gin.Context) {
		realtime.Handler(hub, c.GetString("userId"))(c.Writer, c.Request)
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server running on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server error: ", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Println("Forced shutdown: ", err)
	}

	if err := cache.Close(); err != nil {
		log.Println("Redis close: ", err)
	}
	if err := database.Disconnect(); err != nil {
		log.Println("MongoDB disconnect: ", err)
	}

	log.Println("Server stopped")
}
