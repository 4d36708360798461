package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"starlight/internal/config"
	"starlight/internal/handlers"
	"starlight/internal/service"
	"starlight/internal/storage"
	"starlight/internal/users"
	"starlight/internal/websocket"
)

func main() {
	cfg := config.Load()

	var store storage.Storage
	switch cfg.StorageDriver {
	case "postgres":
		db, err := storage.Connect(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("failed to connect database: %v", err)
		}
		defer db.Close()
		store = storage.NewPostgresStorage(db)
	case "file":
		fs, err := storage.NewFileStorage(cfg.DataDir)
		if err != nil {
			log.Fatalf("failed to open data dir: %v", err)
		}
		store = fs
	default:
		log.Fatalf("unknown storage driver %q", cfg.StorageDriver)
	}

	clock := service.SystemClock{}
	hub := websocket.NewHub()
	bank, err := service.NewBankService(store, clock, hub, cfg.RedeemMax)
	if err != nil {
		log.Fatalf("failed to load ledger: %v", err)
	}
	directory, err := users.NewService(store, clock)
	if err != nil {
		log.Fatalf("failed to load user directory: %v", err)
	}

	handler := handlers.New(cfg, bank, directory, hub)
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("careon ledger API listening on %s (storage=%s)", server.Addr, cfg.StorageDriver)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	<-shutdown

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("shutdown error: %v", err)
	}
}
