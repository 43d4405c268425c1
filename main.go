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

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/sentinelworks/verdict/audit"
	"github.com/sentinelworks/verdict/config"
	"github.com/sentinelworks/verdict/controller"
	"github.com/sentinelworks/verdict/db"
	logger "github.com/sentinelworks/verdict/logging"
	"github.com/sentinelworks/verdict/pdp/engine"
	"github.com/sentinelworks/verdict/router"
	"github.com/sentinelworks/verdict/service"
	"github.com/sentinelworks/verdict/store"
	"github.com/sentinelworks/verdict/util"
)

func main() {
	// Initialize configuration
	if err := config.InitConfig(); err != nil {
		log.Fatalf("Failed to initialize config: %v", err)
	}

	// Initialize logger
	logger.InitLogger(config.GetString("log.dir"))
	defer logger.Sync()

	// Initialize Neo4j
	if err := db.InitNeo4j(); err != nil {
		logger.Fatal("Failed to initialize Neo4j", zap.Error(err))
	}
	defer db.CloseNeo4j()

	// Initialize Redis
	if err := db.InitRedis(); err != nil {
		logger.Fatal("Failed to initialize Redis", zap.Error(err))
	}
	defer db.CloseRedis()

	// Initialize EventBus
	eventBus := util.NewEventBus()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	eventBus.Start(ctx)

	// Initialize the policy store: durable Neo4j backend behind the Redis
	// read-through cache
	neo4jStore, err := store.NewNeo4jStore(db.Neo4jDriver)
	if err != nil {
		logger.Fatal("Failed to initialize policy store", zap.Error(err))
	}
	policyStore := store.NewCached(neo4jStore)

	// Initialize the audit sink
	auditRepository, err := audit.NewElasticsearchRepository(config.GetString("elasticsearch.url"))
	if err != nil {
		logger.Fatal("Failed to initialize audit repository", zap.Error(err))
	}
	auditSink := audit.NewBufferedSink(auditRepository, audit.SinkConfig{
		BufferSize:       config.GetInt("audit.bufferSize"),
		MaxRetries:       config.GetInt("audit.maxRetries"),
		RetryBackoff:     config.GetDuration("audit.retryBackoff"),
		RedactAttributes: config.GetStringSlice("audit.redactAttributes"),
	})

	// Initialize services
	notificationService := util.NewNotificationService()
	policySetService := service.NewPolicySetService(policyStore, notificationService, eventBus)
	decisionService := service.NewDecisionService(policyStore, engine.NewEvaluator(), auditSink)

	// Initialize controllers and router
	controllers := controller.InitializeControllers(policySetService, decisionService)

	gin.SetMode(gin.ReleaseMode)
	engineRouter := router.SetupRouter(
		controllers,
		config.GetInt("ratelimit.requests"),
		config.GetDuration("ratelimit.window"),
	)

	// Set up the server
	server := &http.Server{
		Addr:    fmt.Sprintf(":%s", config.GetString("server.port")),
		Handler: engineRouter,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", config.GetString("server.port")))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shut down the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	// Flush buffered audit events before exit
	auditSink.Close()
	if dropped := auditSink.Dropped(); dropped > 0 {
		logger.Warn("Audit events dropped during this run", zap.Int64("dropped", dropped))
	}

	logger.Info("Server exiting")
}
