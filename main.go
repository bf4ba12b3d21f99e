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

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mhrkq/RumorChat/internal/adapter/llm"
	"github.com/mhrkq/RumorChat/internal/config"
	"github.com/mhrkq/RumorChat/internal/hub"
	"github.com/mhrkq/RumorChat/internal/policy"
	"github.com/mhrkq/RumorChat/internal/service"
	"github.com/mhrkq/RumorChat/internal/store"
	v1 "github.com/mhrkq/RumorChat/internal/transport/http/v1"
	"github.com/mhrkq/RumorChat/internal/ws"
)

func main() {
	// Load configuration
	cfg := config.Load()

	log.Printf("Starting rumorchat...")
	log.Printf("REST API Port: %d", cfg.HTTPPort)
	log.Printf("WebSocket Port: %d", cfg.WSPort)
	log.Printf("Database: %s", cfg.DatabaseURL)
	log.Printf("Assistant URL: %s", cfg.AssistantURL)

	// Initialize store
	db, err := store.NewSQLiteStore(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer db.Close()

	// Initialize assistant client
	llmClient := llm.NewCompleter(cfg.AssistantURL, cfg.AssistantAPIKey, cfg.AssistantTimeout)

	// Initialize policy engine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policyEngine, err := policy.NewEngine(ctx, policy.DefaultPolicy)
	if err != nil {
		log.Fatalf("Failed to initialize policy engine: %v", err)
	}

	// Initialize hub and service
	h := hub.NewHub()
	go h.Run()

	svc := service.New(db, llmClient, cfg, policyEngine, h)

	// Start presence sweeper
	go svc.RunPresenceSweeper(ctx)

	// Create REST Echo server
	restServer := echo.New()
	restServer.HideBanner = true

	restServer.Use(middleware.Logger())
	restServer.Use(middleware.Recover())
	restServer.Use(middleware.CORS())

	apiHandler := v1.NewHandler(svc)
	apiHandler.RegisterRoutes(restServer)
	restServer.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Create WebSocket Echo server
	wsServer := echo.New()
	wsServer.HideBanner = true

	wsServer.Use(middleware.Recover())

	wsHandler := ws.NewServer(cfg, h, svc)
	wsServer.GET("/ws", wsHandler.HandleWebSocket)

	// Start REST server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.HTTPPort)
		if err := restServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start REST server: %v", err)
		}
	}()

	// Start WebSocket server
	go func() {
		addr := fmt.Sprintf(":%d", cfg.WSPort)
		if err := wsServer.Start(addr); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start WebSocket server: %v", err)
		}
	}()

	log.Printf("REST API started on port %d", cfg.HTTPPort)
	log.Printf("WebSocket server started on port %d", cfg.WSPort)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down rumorchat...")
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := restServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown REST server gracefully: %v", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("Failed to shutdown WebSocket server gracefully: %v", err)
	}

	log.Println("rumorchat stopped")
}
