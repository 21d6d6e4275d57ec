package api

import (
	"encoding/json"
	"image"
	"log"
	"math/rand/v2"
	"net/http"
	"strconv"
	"sync"
	"time"

	"material-router/internal/catalog"
	"material-router/internal/config"
	"material-router/internal/db"
	"material-router/internal/render"
)

// Server is the HTTP API server that connects the catalog cache, route
// builder, renderer and database.
type Server struct {
	cfg   *config.Config
	cache *catalog.Cache
	db    *db.DB
	mu    sync.RWMutex
	ready bool

	// Background map, reloaded when MapImagePath changes.
	mapMu   sync.Mutex
	mapImg  image.Image
	mapPath string

	rngMu sync.Mutex
	rng   *rand.Rand
}

// NewServer creates a Server. database may be nil, in which case config
// changes are not persisted and load history is empty.
func NewServer(cfg *config.Config, cache *catalog.Cache, database *db.DB) *Server {
	if database != nil && cache.OnLoad == nil {
		cache.OnLoad = func(path, category string, stats catalog.Stats, took time.Duration) {
			database.InsertLoad(path, category, stats, took)
		}
	}
	return &Server{
		cfg:   cfg,
		cache: cache,
		db:    database,
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
	}
}

// SetReady is called when the configured catalog finishes its first load.
func (s *Server) SetReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
}

func (s *Server) isReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// config returns a snapshot of the current settings.
func (s *Server) config() config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return *s.cfg
}

func (s *Server) randIntn(n int) int {
	s.rngMu.Lock()
	defer s.rngMu.Unlock()
	return s.rng.IntN(n)
}

// Handler returns the HTTP handler with all API routes and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("POST /api/config", s.handleSetConfig)
	// Catalog
	mux.HandleFunc("GET /api/materials", s.handleMaterials)
	mux.HandleFunc("GET /api/materials/names", s.handleMaterialNames)
	mux.HandleFunc("GET /api/loads", s.handleGetLoads)
	mux.HandleFunc("POST /api/catalog/reload", s.handleReloadCatalog)
	// Routes
	mux.HandleFunc("POST /api/route", s.handleRoute)
	mux.HandleFunc("POST /api/route/render", s.handleRouteRender)
	mux.HandleFunc("POST /api/route/kml", s.handleRouteKML)
	mux.HandleFunc("POST /api/route/geojson", s.handleRouteGeoJSON)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.config()
	mats, stats, loaded := s.cache.Get(cfg.CatalogPath, cfg.Category)

	result := map[string]interface{}{
		"ready":             s.isReady(),
		"catalog_loaded":    loaded,
		"category":          cfg.Category,
		"materials":         len(mats),
		"cached_categories": s.cache.Len(),
	}
	if loaded {
		result["rejected_coordinates"] = stats.RejectedCoordinates
		result["skipped_entries"] = stats.SkippedEntries
		if at, ok := s.cache.LoadedAt(cfg.CatalogPath, cfg.Category); ok {
			result["loaded_at"] = at.Unix()
		}
	}
	writeJSON(w, result)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.config())
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	var patch map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, 400, "invalid json")
		return
	}

	s.mu.Lock()
	cfg := s.cfg
	if v, ok := patch["catalog_path"]; ok {
		json.Unmarshal(v, &cfg.CatalogPath)
	}
	if v, ok := patch["category"]; ok {
		json.Unmarshal(v, &cfg.Category)
	}
	if v, ok := patch["map_image_path"]; ok {
		json.Unmarshal(v, &cfg.MapImagePath)
	}
	if v, ok := patch["route_length"]; ok {
		json.Unmarshal(v, &cfg.RouteLength)
	}
	if v, ok := patch["min_route_length"]; ok {
		json.Unmarshal(v, &cfg.MinRouteLength)
	}
	if v, ok := patch["max_route_length"]; ok {
		json.Unmarshal(v, &cfg.MaxRouteLength)
	}
	if v, ok := patch["offset_x"]; ok {
		json.Unmarshal(v, &cfg.OffsetX)
	}
	if v, ok := patch["reference_height"]; ok {
		json.Unmarshal(v, &cfg.ReferenceHeight)
	}
	if v, ok := patch["scale"]; ok {
		json.Unmarshal(v, &cfg.Scale)
	}
	if v, ok := patch["zoom_margin"]; ok {
		json.Unmarshal(v, &cfg.ZoomMargin)
	}
	if v, ok := patch["zoom"]; ok {
		json.Unmarshal(v, &cfg.Zoom)
	}
	if v, ok := patch["show_arrows"]; ok {
		json.Unmarshal(v, &cfg.ShowArrows)
	}
	if v, ok := patch["marker_size"]; ok {
		json.Unmarshal(v, &cfg.MarkerSize)
	}
	if v, ok := patch["start_marker_size"]; ok {
		json.Unmarshal(v, &cfg.StartMarkerSize)
	}

	// Validate bounds
	if cfg.MinRouteLength < 0 {
		cfg.MinRouteLength = 0
	}
	if cfg.MaxRouteLength < cfg.MinRouteLength {
		cfg.MaxRouteLength = cfg.MinRouteLength
	}
	if cfg.RouteLength <= 0 {
		cfg.RouteLength = config.Default().RouteLength
	}
	cfg.RouteLength = cfg.ClampRouteLength(cfg.RouteLength)
	if cfg.Scale <= 0 {
		cfg.Scale = config.Default().Scale
	}
	if cfg.ZoomMargin < 0 {
		cfg.ZoomMargin = 0
	}
	if cfg.MarkerSize <= 0 {
		cfg.MarkerSize = config.Default().MarkerSize
	}
	if cfg.StartMarkerSize <= 0 {
		cfg.StartMarkerSize = config.Default().StartMarkerSize
	}
	snapshot := *cfg
	s.mu.Unlock()

	if s.db != nil {
		if err := s.db.SaveConfig(&snapshot); err != nil {
			log.Printf("[API] SaveConfig error: %v", err)
			writeError(w, 500, "failed to save config")
			return
		}
	}
	writeJSON(w, snapshot)
}

func (s *Server) handleGetLoads(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeJSON(w, []db.LoadRecord{})
		return
	}
	limitStr := r.URL.Query().Get("limit")
	limit := 50
	if limitStr != "" {
		if l, err := strconv.Atoi(limitStr); err == nil && l > 0 {
			limit = l
		}
	}
	writeJSON(w, s.db.GetLoads(limit))
}

// mapImage returns the background map for path, reading it on first use.
func (s *Server) mapImage(path string) (image.Image, error) {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()
	if s.mapImg != nil && s.mapPath == path {
		return s.mapImg, nil
	}
	img, err := render.LoadImage(path)
	if err != nil {
		return nil, err
	}
	s.mapImg = img
	s.mapPath = path
	return img, nil
}

func (s *Server) resetMapImage() {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()
	s.mapImg = nil
	s.mapPath = ""
}
