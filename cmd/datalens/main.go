package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"

	"datalens/internal/api"
	"datalens/internal/common"
	"datalens/internal/dataset"
	"datalens/internal/llm"
	"datalens/internal/ticket"
)

func main() {
	logger := common.Logger()

	if err := godotenv.Load(); err != nil {
		logger.Warn("datalens: .env file not loaded", "error", err)
	} else {
		logger.Info("datalens: environment loaded from .env")
	}

	addr := flag.String("addr", ":8080", "listen address")
	filmsPath := flag.String("films", defaultDataPath("films.db"), "path to the films SQLite database")
	healthPath := flag.String("health", defaultDataPath("health.db"), "path to the health survey SQLite database")
	ticketsPath := flag.String("tickets", defaultDataPath("tickets.db"), "path to the support ticket SQLite database")
	flag.Parse()

	logger.Info("datalens: startup initiated", "addr", *addr)

	films, err := dataset.Open("films", *filmsPath)
	if err != nil {
		logger.Error("datalens: films database open failed", "error", err)
		fmt.Println("films database error:", err)
		os.Exit(1)
	}
	defer films.Close()

	health, err := dataset.Open("health", *healthPath)
	if err != nil {
		logger.Error("datalens: health database open failed", "error", err)
		fmt.Println("health database error:", err)
		os.Exit(1)
	}
	defer health.Close()

	tickets, err := ticket.Open(*ticketsPath)
	if err != nil {
		logger.Error("datalens: ticket store open failed", "error", err)
		fmt.Println("ticket store error:", err)
		os.Exit(1)
	}
	defer tickets.Close()

	provider := llm.NewProvider()
	logger.Info("datalens: llm provider ready", "provider", provider.Name())

	server, err := api.NewServer(provider, films, health, tickets, nil)
	if err != nil {
		logger.Error("datalens: server construction failed", "error", err)
		fmt.Println("server error:", err)
		os.Exit(1)
	}

	fmt.Printf("Serving on %s\n", *addr)
	reachable := *addr
	if strings.HasPrefix(reachable, ":") {
		reachable = "localhost" + reachable
	}
	logger.Info("datalens: server listening", "addr", *addr,
		"health", fmt.Sprintf("curl http://%s/healthz", reachable))
	if err := http.ListenAndServe(*addr, server); err != nil {
		logger.Error("datalens: server stopped", "error", err)
		fmt.Println("server stopped:", err)
	}
}

func defaultDataPath(name string) string {
	return filepath.Join("data", name)
}
