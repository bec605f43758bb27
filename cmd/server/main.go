package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/voyara/backend/internal/config"
	"github.com/voyara/backend/internal/database"
	"github.com/voyara/backend/internal/handlers"
	"github.com/voyara/backend/internal/jobs"
	"github.com/voyara/backend/internal/middleware"
	"github.com/voyara/backend/internal/queue"
	"github.com/voyara/backend/internal/routes"
	"github.com/voyara/backend/internal/services/activity"
	"github.com/voyara/backend/internal/services/affiliate"
	"github.com/voyara/backend/internal/services/payout"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.LoadConfig()

	db, err := database.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.URL,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx := context.Background()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	redisQueue := queue.NewRedisQueue(redisClient, db)

	// Initialize services
	activityLog := activity.NewLogger(db)
	tracker := affiliate.NewTracker(db, activityLog, cfg.Referral.AttributionWindow)
	lifecycle := affiliate.NewLifecycle(db, activityLog)
	accrual := affiliate.NewAccrualEngine(db, activityLog)
	affiliateService := affiliate.NewService(db, activityLog)
	batcher := payout.NewBatcher(db, activityLog, cfg.Payout)
	processor := payout.NewProcessor(db, activityLog)

	// Queue workers and job handlers
	worker := queue.NewWorker(redisQueue, 10)
	jobs.RegisterAllJobHandlers(worker, redisQueue, lifecycle, accrual, batcher)
	worker.Start()

	scheduler, err := jobs.ScheduleRecurringJobs(redisQueue, lifecycle, batcher,
		cfg.Referral.ExpirySweepInterval, cfg.Payout.BatchIntervalHours)
	if err != nil {
		log.Fatalf("Failed to schedule recurring jobs: %v", err)
	}

	// Handlers
	referralHandler := handlers.NewReferralHandler(tracker, cfg.Referral.AttributionWindow)
	affiliateHandler := handlers.NewAffiliateHandler(affiliateService, processor, activityLog)
	adminHandler := handlers.NewAdminHandler(affiliateService, batcher, processor)

	rateLimiter := middleware.NewRateLimiter(10, 20)

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.SetupRoutes(router, referralHandler, affiliateHandler, adminHandler, rateLimiter)

	srv := startServer(router, cfg.Server.Port)

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	scheduler.Stop()
	worker.Stop()
	rateLimiter.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exiting")
}

// startServer starts the HTTP server
func startServer(router *gin.Engine, port string) *http.Server {
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", port)
	return srv
}
