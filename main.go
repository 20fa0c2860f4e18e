package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/appleboy/graceful"

	"github.com/go-giftgate/giftgate/internal/cache"
	"github.com/go-giftgate/giftgate/internal/config"
	"github.com/go-giftgate/giftgate/internal/custodian"
	"github.com/go-giftgate/giftgate/internal/gateway"
	"github.com/go-giftgate/giftgate/internal/metrics"
	"github.com/go-giftgate/giftgate/internal/router"
	"github.com/go-giftgate/giftgate/internal/settlement"
	"github.com/go-giftgate/giftgate/internal/store"
	"github.com/go-giftgate/giftgate/internal/version"
)

func main() {
	// Define flags
	showVersion := flag.Bool("version", false, "Show version information")
	flag.BoolVar(showVersion, "v", false, "Show version information (shorthand)")
	flag.Usage = printUsage
	flag.Parse()

	// Show version and exit if requested
	if *showVersion {
		version.PrintVersion()
		os.Exit(0)
	}

	// Check if command is provided
	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	// Handle subcommands
	switch args[0] {
	case "server":
		runServer()
	default:
		fmt.Printf("Unknown command: %s\n\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf("Usage: %s [OPTIONS] COMMAND\n\n", os.Args[0])
	fmt.Println("Connection and settlement orchestrator")
	fmt.Println("\nCommands:")
	fmt.Println("  server    Start the orchestrator server")
	fmt.Println("\nOptions:")
	fmt.Println("  -v, --version    Show version information")
	fmt.Println("  -h, --help       Show this help message")
}

func runServer() {
	// Load configuration
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize store
	db, err := store.New(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	// Initialize metrics
	rec := metrics.Init(cfg.MetricsEnabled)
	if cfg.MetricsEnabled {
		log.Println("Prometheus metrics initialized")
	} else {
		log.Println("Metrics disabled (using noop implementation)")
	}

	// Balance display cache: Redis when configured, memory otherwise
	balances := createBalanceCache(cfg)

	// Custodial asset client (shared auth + retry HTTP client)
	retryClient, err := custodian.NewRetryClient(
		cfg.GatewayAuthMode,
		cfg.GatewayAuthSecret,
		cfg.GatewayAuthHeader,
		cfg.RemoteTimeout,
		cfg.RemoteMaxRetries,
		cfg.RemoteRetryDelay,
		cfg.RemoteMaxRetryDelay,
	)
	if err != nil {
		log.Fatalf("Failed to create gateway HTTP client: %v", err)
	}
	assets := custodian.New(cfg.GatewayURL, retryClient, cfg.RemoteTimeout, rec)

	// Settlement orchestrator and event router
	orch := settlement.New(db, assets, balances, cfg, rec)
	transport := gateway.NewTransport(cfg.GatewayURL, retryClient, cfg.RemoteTimeout)
	dispatcher := router.New(db, orch, transport, cfg, rec)

	// HTTP surface
	webhook := gateway.NewWebhookHandler(dispatcher, cfg.FlowTimeout, rec)
	engine, err := gateway.NewEngine(cfg, db, webhook, rec)
	if err != nil {
		log.Fatalf("Failed to assemble HTTP routes: %v", err)
	}

	log.Printf("Operator account: %d", cfg.OperatorID)
	log.Printf("Transfer fee: %d points", cfg.TransferFee)
	log.Printf("Settlement orchestrator starting on %s", cfg.ServerAddr)

	// Create HTTP server
	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	// Create graceful manager
	m := graceful.NewManager()

	// Add server as a running job
	m.AddRunningJob(func(ctx context.Context) error {
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Fatalf("Failed to start server: %v", err)
			}
		}()
		<-ctx.Done()
		return nil
	})

	// Add shutdown job for HTTP server
	m.AddShutdownJob(func() error {
		log.Println("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			log.Printf("Server forced to shutdown: %v", err)
			return err
		}

		log.Println("Server exited")
		return nil
	})

	// Add shutdown job for the balance cache
	m.AddShutdownJob(func() error {
		if err := balances.Close(); err != nil {
			log.Printf("Error closing balance cache: %v", err)
			return err
		}
		return nil
	})

	// Wait for graceful shutdown
	<-m.Done()
}

// createBalanceCache picks the balance cache backend. Redis keeps the admin
// balance browser consistent across instances; memory is fine for one.
func createBalanceCache(cfg *config.Config) cache.Cache[int64] {
	if cfg.RedisAddr == "" {
		log.Println("Balance cache: memory (single instance only)")
		return cache.NewMemoryCache[int64]()
	}

	redisCache, err := cache.NewRedisCache[int64](
		cfg.RedisAddr,
		cfg.RedisPassword,
		cfg.RedisDB,
		"giftgate:",
	)
	if err != nil {
		log.Fatalf("Failed to initialize Redis balance cache: %v", err)
	}
	log.Printf("Balance cache: redis (addr=%s, db=%d)", cfg.RedisAddr, cfg.RedisDB)
	return redisCache
}
