package api

import (
	"log"
	"net/http"

	"material-router/internal/catalog"
)

// materials returns the configured category, loading it through the cache.
func (s *Server) materials() ([]catalog.Material, error) {
	cfg := s.config()
	return s.cache.Materials(cfg.CatalogPath, cfg.Category)
}

// handleMaterials lists catalog records, optionally filtered by name.
// GET /api/materials?name=Iron&name=Gold
func (s *Server) handleMaterials(w http.ResponseWriter, r *http.Request) {
	mats, err := s.materials()
	if err != nil {
		log.Printf("[API] Materials error: %v", err)
		writeError(w, 503, "catalog unavailable: "+err.Error())
		return
	}
	if names := r.URL.Query()["name"]; len(names) > 0 {
		mats = catalog.FilterByName(mats, names)
	}
	writeJSON(w, mats)
}

// handleMaterialNames lists distinct names for filter pickers.
// GET /api/materials/names
func (s *Server) handleMaterialNames(w http.ResponseWriter, r *http.Request) {
	mats, err := s.materials()
	if err != nil {
		log.Printf("[API] Materials error: %v", err)
		writeError(w, 503, "catalog unavailable: "+err.Error())
		return
	}
	writeJSON(w, catalog.UniqueNames(mats))
}

// handleReloadCatalog drops cached catalogs and the map, then reloads the
// configured category.
// POST /api/catalog/reload
func (s *Server) handleReloadCatalog(w http.ResponseWriter, r *http.Request) {
	s.cache.Invalidate()
	s.resetMapImage()

	mats, err := s.materials()
	if err != nil {
		log.Printf("[API] Reload error: %v", err)
		writeError(w, 503, "catalog unavailable: "+err.Error())
		return
	}
	s.SetReady()
	log.Printf("[API] Catalog reloaded: %d materials", len(mats))
	writeJSON(w, map[string]interface{}{
		"materials": len(mats),
		"names":     len(catalog.UniqueNames(mats)),
	})
}
