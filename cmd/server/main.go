package main

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lessonloop/api/internal/cache"
	"github.com/lessonloop/api/internal/config"
	"github.com/lessonloop/api/internal/database"
	"github.com/lessonloop/api/internal/generator"
	"github.com/lessonloop/api/internal/handler"
	"github.com/lessonloop/api/internal/middleware"
	"github.com/lessonloop/api/internal/scheduler"
	"github.com/lessonloop/api/internal/store"
)

func main() {
	cfg := config.Load()

	// Initialize database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Initialize Redis cache
	redisCache, err := cache.NewRedisCache(cfg.RedisURL)
	if err != nil {
		log.Printf("Warning: Failed to connect to Redis: %v", err)
		// Continue without Redis cache (fail-open)
		redisCache = nil
	}

	st := store.New(db)
	generatorService := generator.New(st, generator.Config{})

	// Initialize handlers
	templateHandler := handler.NewTemplateHandler(db)
	groupHandler := handler.NewGroupHandler(db)
	generationHandler := handler.NewGenerationHandler(db, generatorService, redisCache)
	sessionHandler := handler.NewSessionHandler(db)

	// Scheduling drivers. Both are optional and safe to run together; the
	// generator's idempotency makes overlapping triggers harmless.
	var poller *scheduler.Poller
	if cfg.SchedulerEnabled {
		poller = scheduler.NewPoller(generatorService, scheduler.PollerConfig{
			Interval:      cfg.SchedulerInterval,
			LookaheadDays: cfg.LookaheadDays,
		})
		go poller.Start(context.Background())
		log.Println("Background generation poller started")
	}

	if cfg.CronEnabled {
		cronRunner := scheduler.NewCronRunner(generatorService, st, scheduler.CronConfig{
			GenerationSpec: cfg.GenerationCron,
			CleanupSpec:    cfg.CleanupCron,
			RetentionDays:  cfg.LogRetentionDays,
		})
		if err := cronRunner.Start(context.Background()); err != nil {
			log.Printf("Warning: Failed to start cron runner: %v", err)
		}
	}

	// Setup router
	r := gin.Default()
	r.Use(middleware.MetricsMiddleware())

	// CORS middleware
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Prometheus metrics
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Scheduler status
	r.GET("/scheduler/status", func(c *gin.Context) {
		if poller != nil {
			c.JSON(200, poller.GetStatus())
		} else {
			c.JSON(200, gin.H{"enabled": false, "message": "Poller is disabled"})
		}
	})

	// API routes
	api := r.Group("/api", middleware.AuthMiddleware(cfg.JWTSecret))
	admin := api.Group("", middleware.AdminMiddleware(cfg.JWTSecret, cfg.AdminEmails))
	{
		// Templates
		admin.POST("/templates", templateHandler.Create)
		api.GET("/templates", templateHandler.List)
		api.GET("/templates/:id", templateHandler.Get)
		admin.PUT("/templates/:id", templateHandler.Update)
		admin.POST("/templates/:id/pause", templateHandler.Pause)
		admin.POST("/templates/:id/resume", templateHandler.Resume)
		admin.POST("/templates/:id/end", templateHandler.End)

		// Groups and assignments
		admin.POST("/groups", groupHandler.Create)
		api.GET("/groups", groupHandler.List)
		api.GET("/groups/:id", groupHandler.Get)
		admin.POST("/groups/:id/members", groupHandler.AddMember)
		admin.DELETE("/groups/:id/members/:studentId", groupHandler.RemoveMember)
		admin.POST("/assignments", groupHandler.Assign)
		admin.POST("/assignments/:id/deactivate", groupHandler.DeactivateAssignment)
		api.GET("/assignments", groupHandler.ListAssignments)

		// Generation
		admin.POST("/generation/run", generationHandler.Run)
		api.GET("/generation/preview", generationHandler.Preview)
		api.GET("/generation/reports/:date", generationHandler.Report)
		api.GET("/generation/logs", generationHandler.Logs)
		admin.POST("/generation/cleanup", generationHandler.Cleanup)

		// Materialized sessions
		api.GET("/sessions", sessionHandler.List)
		api.GET("/sessions/:id", sessionHandler.Get)
	}

	log.Printf("API server starting on port %s", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
