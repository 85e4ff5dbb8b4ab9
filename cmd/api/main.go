package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"taskpad/internal/app"
	"taskpad/internal/config"
	"taskpad/internal/session"
	"taskpad/internal/store"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var service *app.Service
	if cfg.DatabaseURL == "memory" {
		// Database-free dev mode; state is lost on restart.
		log.Printf("Using in-memory storage")
		service = app.New(cfg, store.NewMemoryStore())
	} else {
		db, err := store.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("database connection failed: %v", err)
		}
		defer db.Close()

		if err := store.ApplyMigrations(ctx, db, cfg.MigrationsDir); err != nil {
			log.Fatalf("migrations failed: %v", err)
		}

		dataStore := store.NewPostgresStore(db)
		if strings.TrimSpace(cfg.RedisURL) != "" {
			log.Printf("Using Redis for refresh session storage")
			redisStore, err := session.NewRedisStore(cfg.RedisURL)
			if err != nil {
				log.Fatalf("redis connection failed: %v", err)
			}
			defer redisStore.Close()
			service = app.NewWithSessionStore(cfg, dataStore, redisStore)
		} else {
			log.Printf("Using PostgreSQL for refresh session storage")
			service = app.New(cfg, dataStore)
		}
	}

	httpServer := app.NewHTTPServer(service, cfg.CORSOrigin)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Printf("Taskpad API listening on %s", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server failed: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
