// cmd/server/main.go - CropWise Backend Server
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cropwise-backend/internal/config"
	"cropwise-backend/internal/database"
	"cropwise-backend/internal/handlers"
	"cropwise-backend/internal/middleware"
	"cropwise-backend/internal/services"
	"cropwise-backend/internal/store"
	"cropwise-backend/internal/ws"
	"cropwise-backend/pkg/auth"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
)

var (
	serverStartTime = time.Now()

	appVersion = "1.0.0"
)

func main() {
	cfg := config.Load()

	setupLogging(cfg)

	log.Println("🔌 Connecting to MongoDB...")
	db, err := database.NewMongoDB(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("⚠️  Error disconnecting from MongoDB: %v", err)
		}
	}()

	{
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := db.CreateIndexes(ctx); err != nil {
			log.Printf("⚠️  Warning: Failed to create some indexes: %v", err)
		}
		cancel()
	}

	jwtManager := auth.NewJWTManager(
		cfg.JWTSecret,
		time.Duration(cfg.JWTExpiration)*time.Hour,
	)

	dataStore := store.NewMongo(db.Database)

	// Optional Redis cache for weather lookups
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Printf("⚠️  Redis unavailable, weather cache disabled: %v", err)
			redisClient = nil
		} else {
			log.Println("✅ Connected to Redis")
		}
	}

	// Services
	notificationService := services.NewNotificationService(dataStore)
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		notificationService.EnableSMS(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber)
		log.Println("📱 SMS notifications enabled")
	}

	communityService := services.NewCommunityService(dataStore, notificationService)
	fieldService := services.NewFieldService(dataStore)
	diseaseService := services.NewDiseaseService(cfg.DiseaseAPIURL)
	weatherService := services.NewWeatherService(cfg.WeatherAPIURL, cfg.WeatherAPIKey, redisClient)
	uploadService := services.NewUploadService(cfg.CloudinaryCloudName, cfg.CloudinaryUploadPreset)
	fertilizerService := services.NewFertilizerService()

	// Live alert stream
	alertHub := ws.NewHub()
	go alertHub.Run()

	outbreakService := services.NewOutbreakService(dataStore, notificationService, alertHub)

	// Handlers
	authHandler := handlers.NewAuthHandler(dataStore, jwtManager)
	communityHandler := handlers.NewCommunityHandler(communityService, uploadService, dataStore)
	fieldHandler := handlers.NewFieldHandler(fieldService, outbreakService, dataStore)
	outbreakHandler := handlers.NewOutbreakHandler(outbreakService, dataStore)
	notificationHandler := handlers.NewNotificationHandler(notificationService)
	diseaseHandler := handlers.NewDiseaseHandler(diseaseService)
	weatherHandler := handlers.NewWeatherHandler(weatherService)
	fertilizerHandler := handlers.NewFertilizerHandler(fertilizerService)

	router := setupRouter(cfg, jwtManager, alertHub,
		authHandler, communityHandler, fieldHandler, outbreakHandler,
		notificationHandler, diseaseHandler, weatherHandler, fertilizerHandler)

	srv := &http.Server{
		Addr:           fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Handler:        router,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1 MB
	}

	go func() {
		log.Printf("🌾 CropWise Backend Server v%s starting...", appVersion)
		log.Printf("🌐 Server running on http://%s:%s", cfg.Host, cfg.Port)
		log.Printf("📡 Alert stream: ws://%s:%s/ws/alerts", cfg.Host, cfg.Port)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed to start: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("⚠️  Server forced to shutdown: %v", err)
	} else {
		log.Println("✅ Server gracefully stopped")
	}

	log.Println("👋 CropWise Backend exited")
}

func setupLogging(cfg *config.Config) {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}
}

func setupRouter(
	cfg *config.Config,
	jwtManager *auth.JWTManager,
	alertHub *ws.Hub,
	authHandler *handlers.AuthHandler,
	communityHandler *handlers.CommunityHandler,
	fieldHandler *handlers.FieldHandler,
	outbreakHandler *handlers.OutbreakHandler,
	notificationHandler *handlers.NotificationHandler,
	diseaseHandler *handlers.DiseaseHandler,
	weatherHandler *handlers.WeatherHandler,
	fertilizerHandler *handlers.FertilizerHandler,
) *gin.Engine {
	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.RequestID())

	corsConfig := cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}
	router.Use(cors.New(corsConfig))

	rateLimiter := middleware.NewRateLimiter(120, time.Minute)
	router.Use(rateLimiter.RateLimit())

	// Live alert stream, auth via token query parameter
	router.GET("/ws/alerts", alertHub.HandleAlerts(jwtManager))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now().Format(time.RFC3339),
			"uptime":    time.Since(serverStartTime).String(),
			"version":   appVersion,
		})
	})

	v1 := router.Group("/api/v1")
	{
		// Public routes
		v1.POST("/auth/register", authHandler.Register)
		v1.POST("/auth/login", authHandler.Login)

		v1.GET("/outbreaks", outbreakHandler.List)

		v1.GET("/diseases", diseaseHandler.Catalog)
		v1.GET("/diseases/status", diseaseHandler.Status)

		v1.GET("/weather", weatherHandler.Current)

		v1.POST("/fertilizer/calculate", fertilizerHandler.Calculate)
		v1.GET("/fertilizer/stages/:crop", fertilizerHandler.Stages)

		// Protected routes
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(jwtManager))
		{
			protected.GET("/users/me", authHandler.GetProfile)
			protected.PUT("/users/me", authHandler.UpdateProfile)
			protected.PUT("/users/me/password", authHandler.ChangePassword)

			// Feed reads sit behind auth so the caller's own vote can be
			// attached to each post
			protected.GET("/posts", communityHandler.ListPosts)
			protected.GET("/posts/:id", communityHandler.GetPost)
			protected.POST("/posts", communityHandler.CreatePost)
			protected.POST("/posts/:id/vote", communityHandler.VotePost)
			protected.POST("/posts/:id/comments", communityHandler.AddComment)
			protected.POST("/posts/:id/comments/:commentId/vote", communityHandler.VoteComment)
			protected.PUT("/posts/:id/comments/:commentId/best", communityHandler.MarkBestAnswer)
			protected.POST("/uploads/image", communityHandler.UploadImage)

			protected.POST("/fields", fieldHandler.Register)
			protected.GET("/fields", fieldHandler.MyFields)
			protected.GET("/fields/:id", fieldHandler.Get)
			protected.POST("/fields/:id/scan", fieldHandler.Scan)
			protected.GET("/fields/:id/alerts", fieldHandler.Alerts)

			protected.POST("/outbreaks", outbreakHandler.Create)
			protected.PUT("/outbreaks/:id/resolve", middleware.ExpertMiddleware(), outbreakHandler.Resolve)

			protected.POST("/diseases/predict", diseaseHandler.Predict)
			protected.POST("/diseases/predict-batch", diseaseHandler.PredictBatch)

			protected.GET("/notifications", notificationHandler.List)
			protected.GET("/notifications/count", notificationHandler.Count)
			protected.PUT("/notifications/:id/read", notificationHandler.MarkRead)
			protected.PUT("/notifications/read-all", notificationHandler.MarkAllRead)
			protected.DELETE("/notifications/:id", notificationHandler.Delete)
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error": "Endpoint not found",
			"path":  c.Request.URL.Path,
		})
	})

	return router
}
