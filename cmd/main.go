package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"mastery-service/internal/adaptive"
	"mastery-service/internal/cache"
	"mastery-service/internal/config"
	"mastery-service/internal/database/mongo"
	"mastery-service/internal/database/redis"
	"mastery-service/internal/event"
	"mastery-service/internal/handlers"
	"mastery-service/internal/repository"
	"mastery-service/internal/services"
	"mastery-service/pkg/discovery"

	"github.com/gofiber/fiber/v3"
)

func setupLogging() (*os.File, error) {
	logDir := filepath.Join("/evolvia", "log", "mastery_service")
	err := os.MkdirAll(logDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create log directory: %v", err)
	}

	currentTime := time.Now()
	logFileName := fmt.Sprintf("log_%s.log", currentTime.Format("2006-01-02"))
	logFile := filepath.Join(logDir, logFileName)

	file, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open log file: %v", err)
	}

	log.SetOutput(file)
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	return file, nil
}

func main() {
	logFile, err := setupLogging()
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer logFile.Close()

	cfg := config.ServiceConfig

	// Connect to MongoDB
	if err := mongo.InitMongoDB(&cfg.MongoDB); err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongo.CloseDB()

	// Connect to Redis; the prerequisite cache degrades gracefully without it
	if err := redis.InitRedis(&cfg.Redis); err != nil {
		log.Printf("Warning: Redis unavailable, prerequisite cache disabled: %v", err)
	}
	defer redis.CloseRedis()

	app := fiber.New(fiber.Config{
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	})

	app.Get("/health", func(c fiber.Ctx) error {
		return c.Status(fiber.StatusOK).SendString("Mastery Service is healthy")
	})

	// Initialize repositories
	masteryRepo := repository.NewMasteryRepository(mongo.Database, "mastery_records")
	interactionRepo := repository.NewInteractionRepository(mongo.Database, "learning_interactions")
	prereqRepo := repository.NewPrerequisiteRepository(mongo.Database, "skill_prerequisites")
	moduleRepo := repository.NewModuleRepository(mongo.Database, "learning_modules")

	indexCtx, indexCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer indexCancel()
	for name, init := range map[string]func(context.Context) error{
		"mastery_records":       masteryRepo.InitializeIndexes,
		"learning_interactions": interactionRepo.InitializeIndexes,
		"skill_prerequisites":   prereqRepo.InitializeIndexes,
		"learning_modules":      moduleRepo.InitializeIndexes,
	} {
		if err := init(indexCtx); err != nil {
			log.Printf("Warning: Failed to create indexes for %s: %v", name, err)
		}
	}

	// Initialize event publisher
	eventPublisher, err := event.NewEventPublisher(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange)
	if err != nil {
		log.Printf("Warning: Failed to initialize event publisher: %v", err)
	}
	var publisher event.Publisher
	if eventPublisher != nil {
		publisher = eventPublisher
	}

	// Initialize services
	engine := adaptive.NewEngine(nil)
	prereqCache := cache.NewPrereqCache(redis.Client, cfg.Mastery.PrereqCacheTTL)

	masteryService := services.NewMasteryService(masteryRepo, engine, publisher, cfg.Mastery.MaxUpdateRetries)
	prereqService := services.NewPrerequisiteService(prereqRepo, masteryRepo, prereqCache)
	adaptiveService := services.NewAdaptiveService(masteryService, prereqService, masteryRepo, interactionRepo, moduleRepo, engine, publisher, cfg.Mastery.MaxUpdateRetries)

	// Initialize event consumer for interaction and module events
	eventConsumer, err := event.NewEventConsumer(cfg.RabbitMQ.URI, cfg.RabbitMQ.Exchange, cfg.RabbitMQ.ConsumeQueue, adaptiveService, adaptiveService)
	if err != nil {
		log.Printf("Warning: Failed to initialize event consumer: %v", err)
	} else {
		if err := eventConsumer.Start(); err != nil {
			log.Printf("Warning: Failed to start event consumer: %v", err)
			eventConsumer.Close()
		} else {
			log.Println("Successfully started event consumer for learning interactions")
			defer eventConsumer.Close()
		}
	}

	// Start the background decay sweeper
	sweeperCtx, sweeperCancel := context.WithCancel(context.Background())
	defer sweeperCancel()
	if cfg.Mastery.DecaySweepEnabled {
		sweeper := services.NewDecaySweeper(masteryService, cfg.Mastery.DecaySweepInterval, cfg.Mastery.DecayInactiveDays)
		sweeper.Start(sweeperCtx)
	}

	// Initialize and register handlers
	masteryHandler := handlers.NewMasteryHandler(masteryService)
	masteryHandler.RegisterRoutes(app)

	adaptiveHandler := handlers.NewAdaptiveHandler(adaptiveService, masteryService)
	adaptiveHandler.RegisterRoutes(app)

	prereqHandler := handlers.NewPrerequisiteHandler(prereqService)
	prereqHandler.RegisterRoutes(app)

	// Register with service discovery
	discovery.ServiceDiscovery, err = discovery.NewServiceRegistry(cfg)
	if err != nil {
		log.Printf("Warning: Failed to create Consul client: %v", err)
	} else if err := discovery.ServiceDiscovery.Register(); err != nil {
		log.Printf("Warning: Failed to register with Consul: %v", err)
	}

	shutdownChan := make(chan os.Signal, 1)
	doneChan := make(chan bool, 1)

	signal.Notify(shutdownChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := app.Listen(fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)); err != nil {
			log.Fatalf("Error starting server: %v", err)
		}
		doneChan <- true
	}()

	<-shutdownChan
	log.Println("Shutting down server...")

	sweeperCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("Error shutting down HTTP server: %v", err)
	}

	// Close event publisher
	if eventPublisher != nil {
		if err := eventPublisher.Close(); err != nil {
			log.Printf("Error closing event publisher: %v", err)
		}
	}

	// Deregister from service discovery
	if discovery.ServiceDiscovery != nil {
		if err := discovery.ServiceDiscovery.Deregister(); err != nil {
			log.Printf("Error deregistering from service discovery: %v", err)
		}
	}

	<-doneChan
	log.Println("Server shutdown complete")
}
