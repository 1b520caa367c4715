/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the studio payroll server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, payroll.yaml, .env, PAYROLL_* env)
  2. Initialize SQLite store
  3. Build the payroll calculator with the non-prime hour policy
  4. Create API handler and router
  5. Start the recalculation scheduler when enabled
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Config file path (default: search ./payroll.yaml|json)
  -port    Overrides server.port
  -db      Overrides server.db; ":memory:" for an in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection

EXAMPLES:
  ./server -db="./data/payroll.db"
  PAYROLL_SERVER_PORT=3000 ./server
  ./server -config=deploy/payroll.yaml

SEE ALSO:
  - config/config.go: Configuration keys
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/studio-payroll/api"
	"github.com/warp/studio-payroll/config"
	"github.com/warp/studio-payroll/payroll"
	"github.com/warp/studio-payroll/store/sqlite"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Config file path")
	port := flag.String("port", "", "HTTP server port (overrides server.port)")
	dbPath := flag.String("db", "", "SQLite database path (overrides server.db)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port != "" {
		cfg.Server.Port = *port
	}
	if *dbPath != "" {
		cfg.Server.DB = *dbPath
	}

	engineCfg, err := cfg.Payroll()
	if err != nil {
		log.Fatalf("Invalid engine configuration: %v", err)
	}
	policy, err := cfg.NonPrimePolicy()
	if err != nil {
		log.Fatalf("Failed to load non-prime schedule: %v", err)
	}

	// Initialize store
	store, err := sqlite.New(cfg.Server.DB)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	calc := payroll.NewCalculator(store, policy, engineCfg)
	handler := api.NewHandler(store, calc)
	router := api.NewRouter(handler, cfg.Server.AllowedOrigins)

	scheduler := api.NewRecalculationScheduler(handler, payroll.TenantID(cfg.Scheduler.Tenant), payroll.PeriodID(cfg.Scheduler.Period))
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.CheckInterval = cfg.Scheduler.Interval
	scheduler.Start()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("[Server] Listening on http://localhost:%s (db: %s, tz: %s)", cfg.Server.Port, cfg.Server.DB, engineCfg.Location)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] Shutting down...")
	scheduler.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("[Server] Stopped")
}
