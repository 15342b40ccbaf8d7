// Command genfilms rebuilds the sample movie database with deterministic
// synthetic data. Run it once before starting the server, or again to reset.
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

	dbPath := flag.String("db", filepath.Join("data", "films.db"), "path to the films SQLite database")
	seed := flag.Int64("seed", 42, "random seed for the generated data")
	flag.Parse()

	store, err := dataset.Open("films", *dbPath)
	if err != nil {
		logger.Error("genfilms: database open failed", "error", err)
		fmt.Println("database error:", err)
		os.Exit(1)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.SeedFilms(ctx, *seed); err != nil {
		logger.Error("genfilms: seeding failed", "error", err)
		fmt.Println("seeding error:", err)
		os.Exit(1)
	}

	stats, err := store.FilmsStats(ctx)
	if err != nil {
		logger.Error("genfilms: stats check failed", "error", err)
		fmt.Println("stats error:", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %d movies, %d directors, %d actors in %s\n",
		stats.Movies, stats.Directors, stats.Actors, *dbPath)
}
