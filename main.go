package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/cors"

	"fleetwatch/cache"
	"fleetwatch/config"
	"fleetwatch/database"
	"fleetwatch/handlers"
	"fleetwatch/kafka"
	"fleetwatch/models"
	"fleetwatch/services"
	"fleetwatch/websocket"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("Starting FleetWatch Backend Server on port %s", cfg.Server.Port)

	// Initialize database
	db, err := database.New(cfg.GetDatabaseURL())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Println("Database connection established")

	// Device-state cache is optional; the dashboard works without it.
	var stateCache *cache.DeviceStateCache
	if c, err := cache.New(context.Background(), cfg.Redis); err != nil {
		log.Printf("Redis unavailable, continuing without device-state cache: %v", err)
	} else {
		stateCache = c
		defer stateCache.Close()
		log.Println("Redis device-state cache connected")
	}

	// Initialize WebSocket hub
	wsHub := websocket.NewHub(cfg.Server.AllowOrigins)
	go wsHub.Run()

	log.Println("WebSocket hub started")

	// Analytics engine and retained event log
	analyzer := services.NewAnalyzer(cfg.Fleet.TotalDevices)
	eventLog := services.NewEventLog(cfg.Fleet.RetainPerDevice)

	// Notification service; every mutation is pushed to connected clients.
	notifications := services.NewNotificationService()
	notifications.Subscribe(func(list []models.AlertNotification) {
		wsHub.BroadcastNotifications(list)
	})

	// Warm the in-memory log from recent persisted events so analytics have
	// history immediately after a restart.
	warmEventLog(db, eventLog, cfg.Fleet.RetainPerDevice)

	// Initialize Kafka consumer
	consumer, err := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID,
		cfg.Kafka.IgnitionTopic, cfg.Kafka.ExceptionTopic)
	if err != nil {
		log.Fatalf("Failed to initialize Kafka consumer: %v", err)
	}
	defer consumer.Stop()

	log.Printf("Kafka consumer initialized, topics: %s, %s",
		cfg.Kafka.IgnitionTopic, cfg.Kafka.ExceptionTopic)

	// Start Kafka consumer
	consumer.Start()

	// Process events from Kafka
	go func() {
		ctx := context.Background()
		for {
			select {
			case event := <-consumer.IgnitionChannel():
				if event == nil {
					continue
				}
				eventLog.AddIgnition(*event)
				if err := db.InsertIgnitionEvent(event); err != nil {
					log.Printf("Failed to store ignition event: %v", err)
				}
				if stateCache != nil {
					if err := stateCache.UpdateFromIgnition(ctx, event); err != nil {
						log.Printf("Failed to cache device state: %v", err)
					}
				}
				wsHub.BroadcastIgnition(event)
				raiseDeviceAlerts(analyzer, eventLog, notifications, event.DeviceID)

			case event := <-consumer.ExceptionChannel():
				if event == nil {
					continue
				}
				eventLog.AddException(*event)
				if err := db.InsertExceptionEvent(event); err != nil {
					log.Printf("Failed to store exception event: %v", err)
				}
				if stateCache != nil {
					if err := stateCache.UpdateFromException(ctx, event); err != nil {
						log.Printf("Failed to cache device state: %v", err)
					}
				}
				wsHub.BroadcastException(event)
				raiseDeviceAlerts(analyzer, eventLog, notifications, event.DeviceID)

			case err := <-consumer.ErrorChannel():
				log.Printf("Kafka consumer error: %v", err)
			}
		}
	}()

	// Periodic dashboard snapshot broadcast
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for range ticker.C {
			wsHub.BroadcastDashboard(analyzer.BuildDashboard(eventLog))
		}
	}()

	// Initialize HTTP handlers
	handler := handlers.New(db, wsHub, analyzer, eventLog, notifications)

	// Setup Gin router
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   cfg.Server.AllowOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"*"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	router.Use(func(ctx *gin.Context) {
		c.HandlerFunc(ctx.Writer, ctx.Request)
		if ctx.Request.Method == "OPTIONS" {
			ctx.AbortWithStatus(http.StatusNoContent)
			return
		}
		ctx.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
			"version":   "1.0.0",
		})
	})

	// API routes
	api := router.Group("/api")
	{
		// Composite dashboard snapshot
		api.GET("/dashboard", handler.GetDashboard)

		// Device analytics
		api.GET("/devices/health", handler.GetHealthScores)
		api.GET("/devices/:id/health", handler.GetDeviceHealth)
		api.GET("/devices/:id/metrics", handler.GetDeviceMetrics)
		api.GET("/anomalies", handler.GetAnomalies)
		api.GET("/predictive-alerts", handler.GetPredictiveAlerts)

		// Fleet-wide views
		api.GET("/server-health", handler.GetServerHealth)
		api.GET("/geographic", handler.GetGeographicData)
		api.GET("/network/analysis", handler.GetNetworkAnalysis)
		api.GET("/network/status", handler.GetNetworkStatus)
		api.GET("/network/recovery", handler.GetRecoveryStatuses)

		// Notifications
		api.GET("/notifications", handler.GetNotifications)
		api.PUT("/notifications/:id/acknowledge", handler.AcknowledgeNotification)

		// Persisted events
		api.GET("/events/ignition", handler.GetIgnitionEvents)
		api.GET("/events/exceptions", handler.GetExceptionEvents)

		// Device-to-vehicle assignments
		api.GET("/assignments", handler.GetAssignments)
		api.PUT("/assignments", handler.UpsertAssignment)
		api.DELETE("/assignments/:id", handler.DeleteAssignment)
	}

	// WebSocket endpoint
	router.GET("/ws", handler.WebSocketEndpoint)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("HTTP server listening on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server failed: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// warmEventLog loads recent persisted events into the in-memory log.
func warmEventLog(db *database.DB, eventLog *services.EventLog, limit int) {
	ignitions, err := db.GetRecentIgnitionEvents(limit, "")
	if err != nil {
		log.Printf("Failed to warm ignition log: %v", err)
	} else {
		// Query returns newest first; replay oldest first.
		for i := len(ignitions) - 1; i >= 0; i-- {
			eventLog.AddIgnition(ignitions[i])
		}
	}

	exceptions, err := db.GetRecentExceptionEvents(limit, "")
	if err != nil {
		log.Printf("Failed to warm exception log: %v", err)
	} else {
		for i := len(exceptions) - 1; i >= 0; i-- {
			eventLog.AddException(exceptions[i])
		}
	}
}

// raiseDeviceAlerts re-runs anomaly detection for one device and records a
// notification per finding. The engine does not deduplicate, so a persisting
// condition re-fires on every pass.
func raiseDeviceAlerts(analyzer *services.Analyzer, eventLog *services.EventLog, notifications *services.NotificationService, deviceID string) {
	anomalies := analyzer.DetectAnomalies(deviceID,
		eventLog.IgnitionsFor(deviceID), eventLog.ExceptionsFor(deviceID))

	for _, anomaly := range anomalies {
		kind := models.NotifyWarning
		if anomaly.Severity == models.SeverityCritical {
			kind = models.NotifyCritical
		}
		notifications.Add(models.AlertNotification{
			Kind:     kind,
			Title:    anomaly.Kind,
			Message:  anomaly.Description,
			DeviceID: anomaly.DeviceID,
		})
	}
}
