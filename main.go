package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"

	"material-router/internal/api"
	"material-router/internal/catalog"
	"material-router/internal/db"
	"material-router/internal/logger"
)

var version = "dev"

func main() {
	port := flag.Int("port", 0, "HTTP server port (default from saved config)")
	catalogPath := flag.String("catalog", envOrDefault("MATROUTE_CATALOG", ""), "materials JSON file")
	category := flag.String("category", envOrDefault("MATROUTE_CATEGORY", ""), "top-level catalog category")
	mapPath := flag.String("map", envOrDefault("MATROUTE_MAP", ""), "background map image")
	dbPath := flag.String("db", envOrDefault("MATROUTE_DB", db.DefaultPath()), "SQLite database path")
	flag.Parse()

	logger.Banner(version)

	// Open SQLite database
	database, err := db.Open(*dbPath)
	if err != nil {
		logger.Error("DB", fmt.Sprintf("Failed to open database: %v", err))
		os.Exit(1)
	}
	defer database.Close()

	// Load config from SQLite; flags override for this run only.
	cfg := database.LoadConfig()
	if *catalogPath != "" {
		cfg.CatalogPath = *catalogPath
	}
	if *category != "" {
		cfg.Category = *category
	}
	if *mapPath != "" {
		cfg.MapImagePath = *mapPath
	}
	if *port > 0 {
		cfg.Port = *port
	}

	logger.Section("Settings")
	logger.Stats("Catalog", cfg.CatalogPath)
	logger.Stats("Category", cfg.Category)
	logger.Stats("Map", cfg.MapImagePath)
	logger.Stats("Route length", fmt.Sprintf("%d (%d-%d)", cfg.RouteLength, cfg.MinRouteLength, cfg.MaxRouteLength))

	cache := catalog.NewCache()
	srv := api.NewServer(cfg, cache, database)

	// Warm the catalog in background
	go func() {
		mats, err := cache.Materials(cfg.CatalogPath, cfg.Category)
		if err != nil {
			logger.Error("CATALOG", fmt.Sprintf("Load failed: %v", err))
			return
		}
		srv.SetReady()
		logger.Success("CATALOG", fmt.Sprintf("Router ready (%d materials, %d names)",
			len(mats), len(catalog.UniqueNames(mats))))
	}()

	addr := fmt.Sprintf("127.0.0.1:%d", cfg.Port)
	logger.Server(addr)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		logger.Error("Server", fmt.Sprintf("Failed: %v", err))
		os.Exit(1)
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
