package main

import (
	"context"
	"flag"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/time/rate"
	"gopkg.in/natefinch/lumberjack.v2"

	"cinescout/api"
	"cinescout/config"
	"cinescout/handlers"
	"cinescout/internal/database"
	"cinescout/services/cache"
	"cinescout/services/enrich"
	"cinescout/services/metadata"
	"cinescout/services/search"
	"cinescout/services/session"
	"cinescout/utils"
)

func main() {
	configPath := flag.String("config", "", "path to JSON config file")
	listenAddr := flag.String("listen", "", "listen address (overrides config)")
	flag.Parse()

	cfgManager, err := config.NewManager(*configPath)
	if err != nil {
		log.Fatalf("[main] config: %v", err)
	}
	cfg := cfgManager.Get()
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	if cfg.LogPath != "" {
		log.SetOutput(io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   cfg.LogPath,
			MaxSize:    20, // MB
			MaxBackups: 3,
			MaxAge:     14, // days
			Compress:   true,
		}))
	}

	// Result cache: sqlite-backed when a database path is configured,
	// in-memory otherwise.
	var store cache.Store = cache.NewMemoryStore()
	var db *database.DB
	if cfg.CacheDatabasePath != "" {
		db, err = database.NewDB(database.Config{DatabasePath: cfg.CacheDatabasePath})
		if err != nil {
			log.Fatalf("[main] cache database: %v", err)
		}
		defer db.Close()
		store = cache.NewSQLiteStore(db.Connection())
		log.Printf("[main] persistent cache at %s", cfg.CacheDatabasePath)
	}
	resultCache := cache.New(store, time.Duration(cfg.CacheTTLHours)*time.Hour)

	metadataSvc := metadata.NewService(cfg.MetadataAPIKey, resultCache, metadata.Options{
		BaseURL:     cfg.MetadataBaseURL,
		HTTPClient:  &http.Client{Timeout: time.Duration(cfg.MetadataTimeoutSeconds) * time.Second},
		MaxAttempts: uint(cfg.MetadataMaxAttempts),
		BaseDelay:   time.Duration(cfg.MetadataRetryBaseMillis) * time.Millisecond,
	})

	searchClient := search.NewClient(cfg.SearchBaseURL, &http.Client{
		Timeout: time.Duration(cfg.SearchTimeoutSeconds) * time.Second,
	})

	pipeline := enrich.New(metadataSvc)
	registry := session.NewRegistry(searchClient, pipeline, cfg.PageSize,
		time.Duration(cfg.SessionIdleMinutes)*time.Minute)
	defer registry.Close()

	searchHandler := handlers.NewSearchHandler(registry, searchClient)

	router := utils.NewRouter()
	apiRouter := router.PathPrefix("/api").Subrouter()
	apiRouter.Use(api.RequestLogMiddleware())
	apiRouter.Use(api.RateLimitMiddleware(api.NewIPRateLimiter(rate.Every(time.Second), 30)))
	apiRouter.HandleFunc("/search", searchHandler.Submit).Methods(http.MethodPost)
	apiRouter.HandleFunc("/search/more", searchHandler.More).Methods(http.MethodPost)
	apiRouter.HandleFunc("/search/filters", searchHandler.Filters).Methods(http.MethodPost)
	apiRouter.HandleFunc("/search/state", searchHandler.State).Methods(http.MethodGet)
	apiRouter.HandleFunc("/suggest", searchHandler.SuggestTitles).Methods(http.MethodGet)

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[main] listening on %s", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("[main] server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Printf("[main] shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("[main] shutdown: %v", err)
	}
}
