package main

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	flag "github.com/spf13/pflag"

	"token-launchpad/internal/config"
	"token-launchpad/internal/domain"
	pgstore "token-launchpad/internal/storage/postgres"
	"token-launchpad/internal/verification"
)

// AuditSummary is the result of an audit log check.
type AuditSummary struct {
	Records    int64          `json:"records"`
	Head       string         `json:"head"`
	Valid      bool           `json:"valid"`
	BreakSeq   int64          `json:"break_seq,omitempty"`
	BreakError string         `json:"break_reason,omitempty"`
	Subject    string         `json:"subject,omitempty"`
	History    []HistoryEntry `json:"history,omitempty"`
}

// HistoryEntry is one audit record for the requested subject.
type HistoryEntry struct {
	Seq       int64            `json:"seq"`
	Kind      domain.EventKind `json:"kind"`
	Timestamp int64            `json:"timestamp"`
	Hash      string           `json:"hash"`
}

func main() {
	if err := config.LoadEnvFile(".env"); err != nil {
		log.Printf("Warning: %v", err)
	}

	// Parse flags
	postgresDSN := flag.String("postgres-dsn", os.Getenv(config.EnvPostgresDSN), "PostgreSQL connection string")
	subject := flag.String("subject", "", "Print the audit history of one request id or market address")
	outputJSON := flag.Bool("json", false, "Output as JSON")
	flag.Parse()

	logger := log.New(os.Stderr, "[audit] ", log.LstdFlags)

	if *postgresDSN == "" {
		logger.Fatalf("--postgres-dsn or %s is required", config.EnvPostgresDSN)
	}

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Printf("Received signal %v, shutting down...", sig)
		cancel()
	}()

	pool, err := pgstore.NewPool(ctx, *postgresDSN)
	if err != nil {
		logger.Fatalf("connect to postgres: %v", err)
	}
	defer pool.Close()

	store := pgstore.NewEventStore(pool)

	logger.Println("Verifying audit log hash chain...")
	report, err := verification.VerifyChain(ctx, store)
	if err != nil {
		logger.Fatalf("verify chain: %v", err)
	}

	summary := AuditSummary{
		Records: report.Records,
		Head:    hex.EncodeToString(report.Head),
		Valid:   report.Valid(),
		Subject: *subject,
	}
	if report.Break != nil {
		summary.BreakSeq = report.Break.Seq
		summary.BreakError = report.Break.Reason
	}

	if *subject != "" {
		records, err := store.GetBySubject(ctx, *subject)
		if err != nil {
			logger.Fatalf("load history for %s: %v", *subject, err)
		}
		for _, r := range records {
			summary.History = append(summary.History, HistoryEntry{
				Seq:       r.Seq,
				Kind:      r.Kind,
				Timestamp: r.Timestamp,
				Hash:      hex.EncodeToString(r.Hash),
			})
		}
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(summary, "", "  ")
		fmt.Println(string(output))
	} else {
		printSummary(summary)
	}

	if !summary.Valid {
		os.Exit(2)
	}
}

func printSummary(s AuditSummary) {
	fmt.Printf("\n=== Audit Summary ===\n")
	fmt.Printf("Records:      %d\n", s.Records)
	fmt.Printf("Head:         %s\n", s.Head)
	if s.Valid {
		fmt.Printf("Chain:        OK\n")
	} else {
		fmt.Printf("Chain:        BROKEN at seq %d (%s)\n", s.BreakSeq, s.BreakError)
	}
	if s.Subject == "" {
		return
	}
	fmt.Printf("\nHistory of %s (%d records)\n", s.Subject, len(s.History))
	for _, h := range s.History {
		fmt.Printf("  #%-6d %-20s %s\n", h.Seq, h.Kind, time.UnixMilli(h.Timestamp).UTC().Format(time.RFC3339))
	}
}
