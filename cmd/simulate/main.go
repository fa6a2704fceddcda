package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	flag "github.com/spf13/pflag"

	"token-launchpad/internal/reporting"
	"token-launchpad/internal/simulation"
)

func main() {
	scenarioPath := flag.StringP("scenario", "s", "", "Path to YAML scenario (required)")
	outputDir := flag.String("output-dir", "", "Write REPORT.md and markets.csv to this directory")
	outputJSON := flag.Bool("json", false, "Output step results as JSON")
	verbose := flag.BoolP("verbose", "v", false, "Log engine activity to stderr")
	flag.Parse()

	logger := log.New(os.Stderr, "[simulate] ", log.LstdFlags)

	if *scenarioPath == "" {
		logger.Fatal("--scenario is required")
	}

	sc, err := simulation.LoadScenario(*scenarioPath)
	if err != nil {
		logger.Fatalf("load scenario: %v", err)
	}

	engineLogger := log.New(io.Discard, "", 0)
	if *verbose {
		engineLogger = log.New(os.Stderr, "[engine] ", log.LstdFlags)
	}

	res, err := simulation.NewRunner(simulation.RunnerOptions{Logger: engineLogger}).Run(context.Background(), sc)
	if err != nil {
		logger.Fatalf("run scenario: %v", err)
	}

	if *outputJSON {
		output, _ := json.MarshalIndent(res.Steps, "", "  ")
		fmt.Println(string(output))
	} else {
		printSteps(res)
		fmt.Println()
		fmt.Print(reporting.RenderMarkdown(res.Report))
	}

	if *outputDir != "" {
		if err := writeReports(*outputDir, res.Report); err != nil {
			logger.Fatalf("write reports: %v", err)
		}
		logger.Printf("Reports written to %s", *outputDir)
	}

	if res.Failed > 0 || !res.Chain.Valid() || res.Verification.DivergentMarkets > 0 {
		os.Exit(1)
	}
}

func printSteps(res *simulation.Result) {
	fmt.Printf("=== Scenario: %s ===\n", res.Scenario)
	for _, s := range res.Steps {
		mark := "ok  "
		if !s.OK {
			mark = "FAIL"
		}
		line := fmt.Sprintf("[%s] %3d %-11s %-10s", mark, s.Index, s.Op, s.By)
		if s.Detail != "" {
			line += " " + s.Detail
		}
		if s.Error != "" {
			line += " error: " + s.Error
		}
		fmt.Println(line)
	}

	fmt.Printf("\nSteps:          %d (%d unexpected)\n", len(res.Steps), res.Failed)
	fmt.Printf("Events:         %d\n", len(res.Events))
	fmt.Printf("Markets:        %d matched of %d\n", res.Verification.MatchedMarkets, res.Verification.TotalMarkets)
	if res.Chain.Valid() {
		fmt.Printf("Audit chain:    OK (%d records)\n", res.Chain.Records)
	} else {
		fmt.Printf("Audit chain:    BROKEN at seq %d (%s)\n", res.Chain.Break.Seq, res.Chain.Break.Reason)
	}
}

func writeReports(dir string, report *reporting.Report) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(dir, "REPORT.md"), []byte(reporting.RenderMarkdown(report)), 0644); err != nil {
		return err
	}
	csvData, err := reporting.RenderCSV(report.Markets)
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "markets.csv"), []byte(csvData), 0644)
}
