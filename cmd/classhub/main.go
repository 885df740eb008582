package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"classhub/internal/app"
	"classhub/internal/config"
)

func main() {
	if err := run(); err != nil {
		log.Fatalf("classhub: %v", err)
	}
}

func run() error {
	// Missing .env is fine, the environment itself still applies.
	_ = godotenv.Load()

	cfg := config.LoadFromEnv()
	application, err := app.New(cfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- application.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.Printf("received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return application.Stop(ctx)
}
