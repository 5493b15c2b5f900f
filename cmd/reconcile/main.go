package main

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"time"

	"staybook/internal/config"
	"staybook/internal/database"
	"staybook/internal/domain/commission"
)

// reconcile prints the deferred-commission report for a period and exits 2
// when any sub-account is out of tolerance.
func main() {
	from := flag.String("from", "", "first day, YYYY-MM-DD (default: 30 days before -to)")
	to := flag.String("to", "", "last day, inclusive, YYYY-MM-DD (default: today)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}

	start, end, err := commission.ReportRange(*from, *to, time.Now())
	if err != nil {
		log.Fatalf("range: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	report, err := commission.NewRepository(db).Report(ctx, start, end, cfg.ReconcileToleranceMinor)
	if err != nil {
		log.Fatalf("report failed: %v", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(report); err != nil {
		log.Fatalf("encode: %v", err)
	}

	log.Printf("reconcile completed: lines=%d discrepancies=%d", len(report.Lines), report.Discrepancies)
	if report.Discrepancies > 0 {
		os.Exit(2)
	}
}
