package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/hibiken/asynq"

	"stays/internal/api"
	"stays/internal/cache"
	"stays/internal/config"
	"stays/internal/db"
	"stays/internal/search"
	"stays/internal/services"
	"stays/internal/tasks"
)

var runMode = flag.String("m", "all", "Run mode: 'api', 'bg' (search index worker), 'all' (default)")

func main() {
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*runMode)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize Database
	mongoClient, mongoDb, err := db.ConnectDB(cfg.MongoURI, cfg.MongoDbName)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer func() {
		if err := db.DisconnectDB(mongoClient); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	ctxIndexes, cancelIndexes := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureIndexes(ctxIndexes, mongoDb); err != nil {
		log.Fatalf("Failed to ensure database indexes: %v", err)
	}
	cancelIndexes()

	// Initialize Cache (Redis)
	redisClient, err := cache.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer func() {
		if err := cache.DisconnectRedis(redisClient); err != nil {
			log.Printf("Error disconnecting from Redis: %v", err)
		}
	}()

	// Initialize the search index client. Without it every search is served by MongoDB.
	var esClient *elasticsearch.Client
	if cfg.ElasticsearchURL != "" {
		esClient, err = search.NewElasticClient(cfg.ElasticsearchURL)
		if err != nil {
			log.Printf("WARNING: Failed to create Elasticsearch client (%s): %v. Searching MongoDB only.", cfg.ElasticsearchURL, err)
			esClient = nil
		}
	} else {
		log.Println("ELASTICSEARCH_URL not set: searching MongoDB only.")
	}

	// Initialize Task Client
	taskClient := tasks.NewClient(redisClient)
	defer taskClient.Close()

	var indexQueue services.IndexQueue
	if esClient != nil {
		indexQueue = tasks.NewIndexQueue(taskClient)
	}

	// Initialize Services needed by handlers and/or task processor
	svc := api.NewServices(cfg, mongoDb, redisClient, esClient, indexQueue)

	// WaitGroup for managing goroutines
	var wg sync.WaitGroup

	// Channel to signal shutdown from Service API
	shutdownChan := make(chan struct{}, 1) // Buffered channel

	// Start Service API (always runs)
	serviceRouter := api.SetupServiceRouter(indexQueue, shutdownChan)
	serviceSrv := &http.Server{
		Addr:    ":" + cfg.ServiceApiPort,
		Handler: serviceRouter,
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		fmt.Printf("Service API listening on :%s\n", cfg.ServiceApiPort)
		if err := serviceSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Service API ListenAndServe error: %v", err)
		}
		fmt.Println("Service API server stopped.")
	}()

	// --- Mode-specific servers ---
	var mainApiSrv *http.Server
	var indexTaskSrv *asynq.Server

	fmt.Printf("Starting application in '%s' mode...\n", cfg.RunMode)

	apiMode := func() {
		fmt.Println("Starting main API server...")
		mainApiRouter := api.SetupRouter(cfg, svc)
		mainApiSrv = &http.Server{
			Addr:    ":" + cfg.ApiPort,
			Handler: mainApiRouter,
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Printf("Main API listening on :%s\n", cfg.ApiPort)
			if err := mainApiSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Main API ListenAndServe error: %v", err)
			}
			fmt.Println("Main API server stopped.")
		}()
	}

	bgMode := func() {
		if esClient == nil {
			fmt.Println("No search index configured, background worker not started.")
			return
		}
		fmt.Println("Starting search index worker...")
		indexer := search.NewIndexer(esClient, cfg.ElasticsearchIndex)

		// A fresh index is filled by a full rebuild.
		ctxEnsure, cancelEnsure := context.WithTimeout(context.Background(), 10*time.Second)
		created, err := indexer.EnsureIndex(ctxEnsure)
		cancelEnsure()
		if err != nil {
			log.Printf("WARNING: Could not ensure search index %s: %v", cfg.ElasticsearchIndex, err)
		} else if created {
			if err := indexQueue.EnqueueIndexRebuild(context.Background()); err != nil {
				log.Printf("WARNING: Failed to enqueue initial index rebuild: %v", err)
			}
		}

		taskProcessor := tasks.NewTaskProcessor(svc.Listings, indexer, svc.IndexHealth)
		var mux *asynq.ServeMux
		indexTaskSrv, mux = tasks.SetupServer(redisClient, taskProcessor)
		wg.Add(1)
		go func() {
			defer wg.Done()
			fmt.Println("Search index task server starting...")
			if err := indexTaskSrv.Run(mux); err != nil {
				log.Fatalf("Search index task server error: %v", err)
			}
			fmt.Println("Search index task server stopped.")
		}()
	}

	switch cfg.RunMode {
	case "api":
		apiMode()
	case "bg":
		bgMode()
	case "all":
		apiMode()
		bgMode()
	default:
		log.Fatalf("Invalid run mode specified in config: %s.", cfg.RunMode)
	}

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		fmt.Printf("\nReceived signal: %s. Shutting down gracefully...\n", sig)
	case <-shutdownChan:
		fmt.Println("\nShutdown requested via Service API. Shutting down gracefully...")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelShutdown()

	fmt.Println("Shutting down Service API server...")
	if err := serviceSrv.Shutdown(ctxShutdown); err != nil {
		log.Printf("Service API server shutdown error: %v", err)
	}

	if mainApiSrv != nil {
		fmt.Println("Shutting down Main API server...")
		if err := mainApiSrv.Shutdown(ctxShutdown); err != nil {
			log.Printf("Main API server shutdown error: %v", err)
		}
	}

	if indexTaskSrv != nil {
		fmt.Println("Shutting down Search Index Task server...")
		indexTaskSrv.Shutdown()
	}

	fmt.Println("Waiting for servers to stop...")
	wg.Wait()

	fmt.Println("Server gracefully stopped")
}
