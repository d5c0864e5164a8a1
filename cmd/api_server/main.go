package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/LizaGhosh/mongodb-lead-agent/internal/agents"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/api"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/config"
	mongodb "github.com/LizaGhosh/mongodb-lead-agent/internal/database/mongo"
	miniodb "github.com/LizaGhosh/mongodb-lead-agent/internal/database/minio"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/llm"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/media"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/models"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/services"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/store"
	"github.com/LizaGhosh/mongodb-lead-agent/internal/taskqueue"
	"github.com/LizaGhosh/mongodb-lead-agent/pkg/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logLevel, err := logrus.ParseLevel(cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Invalid logger level: %v", err)
	}
	logger.Init(logLevel)
	serviceLogger := logger.New("APIServer", "", "")

	// Connect to MongoDB using the singleton GetClient
	mongoClient, err := mongodb.GetClient(&cfg.Databases.MongoDB)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to MongoDB")
	}
	db := mongoClient.Database(cfg.Databases.MongoDB.Database)
	serviceLogger.Info("Successfully connected to MongoDB")

	// Optional MinIO object storage for raw audio/photo files
	var mediaStore *media.Store
	if cfg.Databases.MinIO.Enabled {
		minioClient, err := miniodb.GetClient(&cfg.Databases.MinIO)
		if err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to connect to MinIO")
		}
		mediaStore = media.NewStore(minioClient, cfg.Databases.MinIO.Bucket)
		if err := mediaStore.EnsureBucket(context.Background()); err != nil {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to prepare MinIO bucket")
		}
		serviceLogger.Info("Successfully connected to MinIO")
	} else {
		serviceLogger.Warn("Object storage disabled, raw media files keep metadata only")
	}

	// LLM client; nil means every stage takes its deterministic fallback
	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Failed to create LLM client")
	}
	if llmClient == nil {
		serviceLogger.Warn("No LLM API key configured, running with fallback processing")
	}

	// Stores
	tasks := taskqueue.NewMongoStore(db, "tasks")
	persons := store.NewMongoPersonStore(db)
	meetings := store.NewMongoMeetingStore(db)
	prefs := store.NewMongoPreferenceStore(db)
	registry := store.NewMongoAgentStore(db)
	maintenance := store.NewMongoMaintenance(db)

	// Services
	transcription := services.NewTranscriptionService(llmClient)
	ocr := services.NewOCRService(llmClient)
	prefAnalysis := services.NewPreferenceAnalysisService(llmClient)

	// Workers and orchestrator
	dataCollection := agents.NewDataCollectionAgent(tasks, registry, persons, meetings, transcription, ocr, mediaStore)
	extraction := agents.NewExtractionAgent(tasks, registry, persons, llmClient)
	summarization := agents.NewSummarizationAgent(tasks, registry, meetings, persons, prefs, llmClient)
	categorization := agents.NewCategorizationAgent(tasks, registry, persons, meetings, prefs, llmClient)
	orchestrator := agents.NewOrchestrator(tasks, registry,
		dataCollection, extraction, summarization, categorization,
		persons, meetings,
		cfg.Pipeline.GateTimeoutDuration(), cfg.Pipeline.PollIntervalDuration())

	// Setup HTTP server
	if cfg.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	apiHandler := api.NewAPI(orchestrator, meetings, persons, prefs, maintenance, ocr, prefAnalysis, mongodb.HealthCheck)
	api.RegisterRoutes(router, apiHandler, cfg.Server.AllowedOrigins)

	srv := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: router,
	}

	// Start server
	go func() {
		serviceLogger.Info("Starting HTTP server on " + srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("HTTP server failed to start")
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	serviceLogger.Info("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Fatal("Server forced to shutdown")
	}

	if err := mongodb.Close(context.Background()); err != nil {
		serviceLogger.WithError(models.ErrorInfo{Message: err.Error()}).Error("Error disconnecting from MongoDB")
	}

	serviceLogger.Info("Server gracefully stopped")
}
