package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/wisecover/quotebot/internal/intent"
	"github.com/wisecover/quotebot/internal/orchestrator"
	"github.com/wisecover/quotebot/internal/quote"
	"github.com/wisecover/quotebot/internal/server"
	"github.com/wisecover/quotebot/pkg/config"
	"github.com/wisecover/quotebot/pkg/observability"
	"github.com/wisecover/quotebot/pkg/session"
)

var (
	// Version information (set via ldflags)
	Version = "dev"

	// Command line flags
	configFile = flag.String("config", getEnv("CONFIG_FILE", "config/quotebot.yaml"), "Configuration file")
	httpPort   = flag.Int("http-port", getEnvInt("PORT", 0), "HTTP server port (overrides config)")
)

func main() {
	flag.Parse()

	log.Printf("Starting quote bot v%s", Version)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if *httpPort != 0 {
		cfg.Port = *httpPort
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	log.Printf("Config: %s, HTTP Port: %d", *configFile, cfg.Port)

	store, err := session.NewRedisStore(session.RedisConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Prefix:   cfg.SessionPrefix,
		TTL:      time.Duration(cfg.SessionTTLSeconds) * time.Second,
	})
	if err != nil {
		log.Fatalf("Session store error: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Session store close error: %v", err)
		}
	}()

	classifier := intent.NewLLMClassifier(openai.NewClient(cfg.OpenAIKey), cfg.IntentModel)
	quotes := quote.New(cfg.QuoteBaseURL, cfg.QuoteStub)
	orch := orchestrator.New(store, classifier, quotes)

	// Observability
	observability.InitMetrics()
	healthChecker := observability.InitHealthChecker()
	healthChecker.RegisterCheck(observability.PingCheck("redis", true, store.Ping))

	// HTTP server
	srv := observability.NewServer(cfg.Port)
	limits := server.NewRateLimiter(cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	server.NewHandler(orch, limits).Mount(srv)

	errChan := make(chan error, 1)
	go func() {
		log.Printf("Starting HTTP server on :%d", cfg.Port)
		errChan <- srv.Start()
	}()

	// Wait for shutdown signal or server error
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
	case <-quit:
		log.Println("Shutting down...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	log.Println("Quote bot stopped")
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
