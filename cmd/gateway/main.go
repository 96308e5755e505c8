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

	"github.com/DeweyHur/online-trpg/internal/adapter/gemini"
	"github.com/DeweyHur/online-trpg/internal/config"
	"github.com/DeweyHur/online-trpg/internal/policy"
	store "github.com/DeweyHur/online-trpg/internal/repository"
	"github.com/DeweyHur/online-trpg/internal/service"
	server "github.com/DeweyHur/online-trpg/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.LoadGateway()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	log.Printf("Starting gateway...")
	log.Printf("HTTP Port: %d", cfg.HTTPPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Gemini model: %s", cfg.GeminiModel)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize policy engine
	ctx := context.Background()
	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize Gemini client
	completion := gemini.NewCompletion(cfg.Mode, cfg.GeminiBaseURL, cfg.GeminiModel, cfg.LLMTimeout, cfg.Limiter())

	// Initialize service and server
	svc := service.New(db, completion, policyEngine)
	e := server.NewServer(svc, cfg.CORSOrigins)

	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Gateway API started on port %d", cfg.HTTPPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down gateway...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown server gracefully: %v", err)
	}

	log.Println("Gateway stopped")
}
