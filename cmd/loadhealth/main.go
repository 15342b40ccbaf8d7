// Command loadhealth imports a CDC BRFSS survey export (CSV) into the health
// database and creates the reporting views the explorer relies on.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"datalens/internal/common"
	"datalens/internal/dataset"
)

func main() {
	logger := common.Logger()

	dbPath := flag.String("db", filepath.Join("data", "health.db"), "path to the health SQLite database")
	csvPath := flag.String("csv", "", "path to the CDC diabetes indicators CSV export")
	flag.Parse()

	if *csvPath == "" {
		fmt.Println("usage: loadhealth -csv <path-to-csv> [-db <path>]")
		os.Exit(2)
	}

	store, err := dataset.Open("health", *dbPath)
	if err != nil {
		logger.Error("loadhealth: database open failed", "error", err)
		fmt.Println("database error:", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	imported, err := store.ImportHealthCSV(ctx, *csvPath)
	if err != nil {
		logger.Error("loadhealth: import failed", "error", err)
		fmt.Println("import error:", err)
		os.Exit(1)
	}

	stats, err := store.HealthStats(ctx)
	if err != nil {
		logger.Error("loadhealth: stats check failed", "error", err)
		fmt.Println("stats error:", err)
		os.Exit(1)
	}
	fmt.Printf("Imported %d patient records into %s (diabetes rate %.2f%%)\n",
		imported, *dbPath, stats.DiabetesRatePct)
}
