// Package main runs the launchpad service:
// - HTTP API (registry, issuance, markets, audit log, websocket feed)
// - Prometheus metrics listener
// - Scheduled reconciliation and report generation
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"token-launchpad/internal/api"
	"token-launchpad/internal/config"
	"token-launchpad/internal/events"
	"token-launchpad/internal/issuance"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/market"
	"token-launchpad/internal/observability"
	"token-launchpad/internal/registry"
	"token-launchpad/internal/reporting"
	"token-launchpad/internal/storage"
	chstore "token-launchpad/internal/storage/clickhouse"
	"token-launchpad/internal/storage/memory"
	"token-launchpad/internal/storage/migrations"
	pgstore "token-launchpad/internal/storage/postgres"
	"token-launchpad/internal/verification"
)

// Server holds all components of the service.
type Server struct {
	// Configuration
	cfg               *config.Config
	outputDir         string
	reconcileInterval time.Duration
	reportInterval    time.Duration

	// Stores
	stores *allStores

	// Components
	registry    *registry.Registry
	directory   *market.Directory
	coordinator *issuance.Coordinator
	base        *ledger.Ledger
	recorder    *events.Recorder
	hub         *api.Hub
	metrics     *observability.Metrics
	reconciler  *verification.Reconciler
	logger      *log.Logger

	// State
	mu             sync.Mutex
	lastReconcile  time.Time
	lastReport     time.Time
	reconcileRuns  int
	reportRuns     int
	divergentCount int
}

// allStores holds all storage implementations.
type allStores struct {
	eventStore storage.EventStore
	tradeStore storage.TradeStore
}

func main() {
	// Load .env file if exists
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Printf("Warning: %v", err)
	}

	configPath := flag.StringP("config", "c", "launchpad.yaml", "Path to YAML configuration")
	apiListen := flag.String("api-listen", "", "Override api.listen")
	metricsListen := flag.String("metrics-listen", "", "Override metrics.listen")
	outputDir := flag.String("output-dir", "output", "Output directory for reports")
	reconcileInterval := flag.Duration("reconcile-interval", 5*time.Minute, "Reconciliation interval (0 disables)")
	reportInterval := flag.Duration("report-interval", 1*time.Hour, "Report generation interval (0 disables)")
	flag.Parse()

	// Setup logger
	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if *apiListen != "" {
		cfg.API.Listen = *apiListen
	}
	if *metricsListen != "" {
		cfg.Metrics.Listen = *metricsListen
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())

	// Create stores
	stores, cleanup, err := createStores(ctx, cfg)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer cleanup()

	server, err := newServer(ctx, cfg, stores, logger)
	if err != nil {
		logger.Fatalf("Failed to initialise: %v", err)
	}
	server.outputDir = *outputDir
	server.reconcileInterval = *reconcileInterval
	server.reportInterval = *reportInterval

	// Channel to signal completion
	done := make(chan error, 1)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
		cancel()

		// Wait for second signal for immediate shutdown
		select {
		case sig := <-sigCh:
			logger.Printf("Received second signal %v, forcing immediate shutdown", sig)
			os.Exit(1)
		case <-time.After(30 * time.Second):
			logger.Println("Graceful shutdown timed out after 30s, forcing exit")
			os.Exit(1)
		case <-done:
			// Normal shutdown completed
		}
	}()

	// Start metrics server
	go server.startMetricsServer(cfg.Metrics.Listen)

	// Run the service
	err = server.Run(ctx)
	done <- err
	cancel()

	if err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createStores creates the event log and trade history stores.
func createStores(ctx context.Context, cfg *config.Config) (*allStores, func(), error) {
	if cfg.Storage.Backend == config.BackendMemory {
		stores := &allStores{
			eventStore: memory.NewEventStore(),
			tradeStore: memory.NewTradeStore(),
		}
		return stores, func() {}, nil
	}

	// PostgreSQL
	pool, err := pgstore.NewPool(ctx, cfg.Storage.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	// ClickHouse
	chConn, err := migrations.RunClickhouseMigrations(ctx, cfg.Storage.ClickhouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}

	stores := &allStores{
		// PostgreSQL: audit log
		eventStore: pgstore.NewEventStore(pool),

		// ClickHouse: trade analytics
		tradeStore: chstore.NewTradeStore(chConn),
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return stores, cleanup, nil
}

// newServer wires the event bus, registry, markets and issuance.
func newServer(ctx context.Context, cfg *config.Config, stores *allStores, logger *log.Logger) (*Server, error) {
	admins, err := cfg.Admins()
	if err != nil {
		return nil, err
	}
	params, err := cfg.MarketParams()
	if err != nil {
		return nil, err
	}
	programID, err := cfg.ProgramID()
	if err != nil {
		return nil, err
	}
	genesis, err := cfg.GenesisBalances()
	if err != nil {
		return nil, err
	}

	metrics := observability.NewMetrics("launchpad")
	hub := api.NewHub(metrics, log.New(os.Stdout, "[ws] ", log.LstdFlags))
	recorder := events.NewRecorder(events.RecorderOptions{
		Store:  stores.eventStore,
		Logger: log.New(os.Stdout, "[audit] ", log.LstdFlags|log.Lshortfile),
	})

	// Delivery order: audit log, trade history, metrics, log, websocket.
	bus := events.NewBus(
		recorder,
		events.NewTradeRecorder(stores.tradeStore, log.New(os.Stdout, "[trades] ", log.LstdFlags|log.Lshortfile)),
		metrics,
		events.NewLogSink(log.New(os.Stdout, "[event] ", log.LstdFlags)),
		hub,
	)

	seq, _, err := recorder.Head(ctx)
	if err != nil {
		return nil, fmt.Errorf("load audit log head: %w", err)
	}
	logger.Printf("Audit log head at seq %d", seq)

	reg, err := registry.New(registry.Options{
		Owner:     cfg.Owner(),
		Admins:    admins,
		Threshold: cfg.Registry.Threshold,
		Sink:      bus,
		Logger:    log.New(os.Stdout, "[registry] ", log.LstdFlags|log.Lshortfile),
	})
	if err != nil {
		return nil, fmt.Errorf("create registry: %w", err)
	}
	metrics.SetAdminSet(reg.AdminSet())

	base := ledger.New("BASE")
	for _, g := range genesis {
		if err := base.Mint(g.Account, g.Amount); err != nil {
			return nil, fmt.Errorf("genesis %s: %w", g.Account, err)
		}
	}
	logger.Printf("Minted %d genesis balances", len(genesis))

	directory := market.NewDirectory()
	coordinator, err := issuance.New(issuance.Options{
		Registry:  reg,
		Directory: directory,
		Base:      base,
		Params:    params,
		ProgramID: programID,
		Sink:      bus,
		Logger:    log.New(os.Stdout, "[issuance] ", log.LstdFlags|log.Lshortfile),
	})
	if err != nil {
		return nil, fmt.Errorf("create coordinator: %w", err)
	}

	return &Server{
		cfg:         cfg,
		stores:      stores,
		registry:    reg,
		directory:   directory,
		coordinator: coordinator,
		base:        base,
		recorder:    recorder,
		hub:         hub,
		metrics:     metrics,
		reconciler: verification.NewReconciler(verification.ReconcilerOptions{
			Directory: directory,
			Base:      base,
			Trades:    stores.tradeStore,
		}),
		logger: logger,
	}, nil
}

// Run serves the API and runs the schedulers until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Println("Starting launchpad...")

	handler := api.New(api.Options{
		Registry:          s.registry,
		Directory:         s.directory,
		Issuer:            s.coordinator,
		Base:              s.base,
		Events:            s.stores.eventStore,
		Trades:            s.stores.tradeStore,
		Hub:               s.hub,
		Metrics:           s.metrics,
		RequireSignatures: s.cfg.API.RequireSignatures,
		SignatureWindow:   s.cfg.API.SignatureWindow,
		Logger:            log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile),
	}).Handler()

	srv := &http.Server{
		Addr:              s.cfg.API.Listen,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Create error channel for goroutines
	errCh := make(chan error, 3)

	go func() {
		s.logger.Printf("Starting API server on %s (signatures required: %v)", srv.Addr, s.cfg.API.RequireSignatures)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("api server: %w", err)
		}
	}()

	if s.reconcileInterval > 0 {
		go func() {
			err := s.runScheduler(ctx, "reconciliation", s.reconcileInterval, s.runReconcile)
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("reconciliation scheduler: %w", err)
			}
		}()
	}

	if s.reportInterval > 0 {
		go func() {
			err := s.runScheduler(ctx, "report", s.reportInterval, s.runReport)
			if err != nil && !errors.Is(err, context.Canceled) {
				errCh <- fmt.Errorf("report scheduler: %w", err)
			}
		}()
	}

	// Wait for context cancellation or error
	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Printf("API shutdown: %v", err)
	}
	return runErr
}

// runScheduler runs fn every interval until ctx is cancelled.
func (s *Server) runScheduler(ctx context.Context, name string, interval time.Duration, fn func(context.Context)) error {
	s.logger.Printf("Starting %s scheduler (interval: %v)...", name, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// runReconcile checks every market against the ledger and trade history, and the
// audit log hash chain.
func (s *Server) runReconcile(ctx context.Context) {
	start := time.Now()

	report, err := s.reconciler.VerifyAll(ctx)
	if err != nil {
		s.logger.Printf("Reconciliation error: %v", err)
		return
	}
	for _, r := range report.Results {
		if !r.Match {
			s.logger.Printf("Market %s (%s) diverged: %v", r.Symbol, r.Market, r.Divergences)
		}
	}

	chain, err := verification.VerifyChain(ctx, s.stores.eventStore)
	if err != nil {
		s.logger.Printf("Audit chain check error: %v", err)
	} else if !chain.Valid() {
		s.logger.Printf("Audit chain broken at seq %d: %s", chain.Break.Seq, chain.Break.Reason)
	}

	s.mu.Lock()
	s.lastReconcile = time.Now()
	s.reconcileRuns++
	s.divergentCount = report.DivergentMarkets
	s.mu.Unlock()

	s.logger.Printf("Reconciliation completed in %v: %d/%d markets matched, %d audit records, %d recorder failures",
		time.Since(start), report.MatchedMarkets, report.TotalMarkets, chainRecords(chain), s.recorder.Failures())
	s.metrics.EventRecordFailures.Set(float64(s.recorder.Failures()))
}

func chainRecords(r *verification.ChainReport) int64 {
	if r == nil {
		return 0
	}
	return r.Records
}

// runReport writes REPORT.md and markets.csv to the output directory.
func (s *Server) runReport(ctx context.Context) {
	s.logger.Println("Generating reports...")
	start := time.Now()

	// Ensure output directory exists
	if err := os.MkdirAll(s.outputDir, 0755); err != nil {
		s.logger.Printf("Failed to create output directory: %v", err)
		return
	}

	gen := reporting.NewGenerator(reporting.GeneratorOptions{
		Registry:  s.registry,
		Directory: s.directory,
		Trades:    s.stores.tradeStore,
		Verifier:  s.reconciler,
	})
	report, err := gen.Generate(ctx)
	if err != nil {
		s.logger.Printf("Report generation error: %v", err)
		return
	}

	mdPath := filepath.Join(s.outputDir, "REPORT.md")
	if err := os.WriteFile(mdPath, []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		s.logger.Printf("Failed to write %s: %v", mdPath, err)
		return
	}

	csvData, err := reporting.RenderCSV(report.Markets)
	if err != nil {
		s.logger.Printf("Failed to render CSV: %v", err)
		return
	}
	csvPath := filepath.Join(s.outputDir, "markets.csv")
	if err := os.WriteFile(csvPath, []byte(csvData), 0644); err != nil {
		s.logger.Printf("Failed to write %s: %v", csvPath, err)
		return
	}

	s.mu.Lock()
	s.lastReport = time.Now()
	s.reportRuns++
	s.mu.Unlock()

	s.logger.Printf("Reports written to %s in %v", s.outputDir, time.Since(start))
}

// startMetricsServer serves /metrics, /health and /scheduler on addr.
func (s *Server) startMetricsServer(addr string) {
	mux := http.NewServeMux()

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Prometheus metrics
	mux.Handle("/metrics", observability.Handler())

	// Scheduler status
	mux.HandleFunc("/scheduler", s.handleScheduler)

	s.logger.Printf("Starting metrics server on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil && err != http.ErrServerClosed {
		s.logger.Printf("Metrics server error: %v", err)
	}
}

// SchedulerResponse is the JSON response for /scheduler endpoint.
type SchedulerResponse struct {
	LastReconcile    time.Time `json:"last_reconcile,omitempty"`
	LastReport       time.Time `json:"last_report,omitempty"`
	ReconcileRuns    int       `json:"reconcile_runs"`
	ReportRuns       int       `json:"report_runs"`
	DivergentMarkets int       `json:"divergent_markets"`
	RecorderFailures int64     `json:"recorder_failures"`
}

// handleScheduler returns scheduler status as JSON.
func (s *Server) handleScheduler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := SchedulerResponse{
		LastReconcile:    s.lastReconcile,
		LastReport:       s.lastReport,
		ReconcileRuns:    s.reconcileRuns,
		ReportRuns:       s.reportRuns,
		DivergentMarkets: s.divergentCount,
	}
	s.mu.Unlock()
	resp.RecorderFailures = s.recorder.Failures()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}
