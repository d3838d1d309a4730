package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/crgstar/patto/app/api"
	"github.com/crgstar/patto/app/cfg"
	"github.com/crgstar/patto/app/database"
	"github.com/crgstar/patto/app/feed"
	"github.com/crgstar/patto/app/seed"
	"github.com/crgstar/patto/app/tasks"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)

	appCfg, err := cfg.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if appCfg == nil {
		// Help was shown, exit gracefully
		return
	}

	logLevel := slog.LevelInfo
	if appCfg.Debug {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))

	log.Printf("Starting Patto feed engine (version %s)...", appCfg.Version)

	log.Println("Connecting to database...")
	db, err := database.NewConnection(
		appCfg.DBHost, appCfg.DBPort, appCfg.DBUser,
		appCfg.DBPassword, appCfg.DBName)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	defer db.Close()

	version, dirty, err := database.RunMigrations(db)
	if err != nil {
		log.Fatal("Failed to run migrations: ", err)
	}
	log.Printf("Database migrated (version %d, dirty: %v)", version, dirty)

	userRepo := database.NewUserRepository(db)
	widgetRepo := database.NewWidgetRepository(db)
	sourceRepo := database.NewSourceRepository(db)
	itemRepo := database.NewItemRepository(db)
	bindingRepo := database.NewBindingRepository(db)
	readStateRepo := database.NewReadStateRepository(db)

	httpClient := &http.Client{Timeout: time.Duration(appCfg.FetchTimeout) * time.Second}
	fetcher := feed.NewHTTPFetcher(httpClient, appCfg.UserAgent, time.Duration(appCfg.FetchTimeout)*time.Second)
	parser := feed.NewFeedParser()

	ingestor := feed.NewIngestor(fetcher, parser, widgetRepo, bindingRepo, sourceRepo, itemRepo, appCfg.WorkerCount)
	query := feed.NewQuery(widgetRepo, bindingRepo, sourceRepo, itemRepo, readStateRepo)
	subscriptions := feed.NewSubscriptions(widgetRepo, sourceRepo, bindingRepo)

	if appCfg.SeedFile != "" {
		log.Printf("Applying seed file %s...", appCfg.SeedFile)
		seedFile, err := seed.Load(appCfg.SeedFile)
		if err != nil {
			log.Fatal("Failed to load seed file: ", err)
		}
		applier := seed.NewApplier(userRepo, widgetRepo, sourceRepo, ingestor, subscriptions)
		if err := applier.Apply(context.Background(), seedFile); err != nil {
			log.Fatal("Failed to apply seed file: ", err)
		}
	}

	log.Printf("Starting background scheduler with %d workers...", appCfg.WorkerCount)
	scheduler := tasks.NewScheduler(sourceRepo, ingestor)
	scheduler.Start()
	defer scheduler.Stop()

	apiHandler := api.NewHandler(userRepo, widgetRepo, sourceRepo, ingestor, query, subscriptions)
	server := api.NewServer(apiHandler, appCfg.APIAccessKey)

	httpServer := &http.Server{
		Addr:         ":" + appCfg.Port,
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	serverErrChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on port %s", appCfg.Port)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		log.Printf("Received signal: %v", sig)
	case err := <-serverErrChan:
		log.Printf("Server error: %v", err)
	}

	log.Println("Shutting down server gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Shutdown complete")
}
