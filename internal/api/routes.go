package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"math"
	"net/http"

	"material-router/internal/catalog"
	"material-router/internal/config"
	"material-router/internal/export"
	"material-router/internal/render"
	"material-router/internal/route"

	"github.com/paulmach/orb"
)

// routeRequest is the body shared by every /api/route endpoint.
type routeRequest struct {
	Names       []string     `json:"names"`
	Start       *pointParams `json:"start"`
	RandomStart bool         `json:"random_start"`
	Length      int          `json:"length"`
}

type pointParams struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// routePlan is a built route plus what the presentation layer needs.
type routePlan struct {
	cfg        config.Config
	route      route.Route[catalog.Material]
	start      *orb.Point
	highlight  *int     // input index of the randomly chosen start item
	names      []string // distinct names of the whole category, for styling
	candidates int
	length     int
}

type routeStop struct {
	Order       int     `json:"order"`
	Index       int     `json:"index"`
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Tier        string  `json:"tier,omitempty"`
	Description string  `json:"description,omitempty"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	PixelX      float64 `json:"pixel_x"`
	PixelY      float64 `json:"pixel_y"`
	Start       bool    `json:"start,omitempty"`
}

type routeResponse struct {
	Stops          []routeStop  `json:"stops"`
	Start          *pointParams `json:"start,omitempty"`
	Distance       float64      `json:"distance"`
	ClosedDistance float64      `json:"closed_distance"`
	Candidates     int          `json:"candidates"`
	Length         int          `json:"length"`
}

// planError carries the HTTP status for a failed plan.
type planError struct {
	code int
	msg  string
}

func (e *planError) Error() string { return e.msg }

// planRoute decodes the request body and builds the route it describes.
func (s *Server) planRoute(r *http.Request) (*routePlan, error) {
	var req routeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		return nil, &planError{400, "invalid json"}
	}
	if req.Start != nil && req.RandomStart {
		return nil, &planError{400, "start and random_start are mutually exclusive"}
	}
	if req.Start != nil && (!isFinite(req.Start.X) || !isFinite(req.Start.Y)) {
		return nil, &planError{400, "start must be finite"}
	}

	cfg := s.config()
	mats, err := s.cache.Materials(cfg.CatalogPath, cfg.Category)
	if err != nil {
		log.Printf("[API] Route: catalog error: %v", err)
		return nil, &planError{503, "catalog unavailable: " + err.Error()}
	}
	names := catalog.UniqueNames(mats)
	if len(req.Names) > 0 {
		mats = catalog.FilterByName(mats, req.Names)
	}

	plan := &routePlan{cfg: cfg, names: names, candidates: len(mats), length: cfg.ClampRouteLength(req.Length)}
	switch {
	case req.Start != nil:
		plan.start = &orb.Point{req.Start.X, req.Start.Y}
	case req.RandomStart && len(mats) > 0:
		i := s.randIntn(len(mats))
		at := mats[i].Coordinates
		plan.start = &at
		plan.highlight = &i
	}
	plan.route = route.Build(mats, plan.start, plan.length)
	return plan, nil
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func writePlanError(w http.ResponseWriter, err error) {
	var pe *planError
	if errors.As(err, &pe) {
		writeError(w, pe.code, pe.msg)
		return
	}
	writeError(w, 500, err.Error())
}

// handleRoute builds a route and returns its stops as JSON.
// POST /api/route
// Body: {"names": ["Iron"], "start": {"x": 1, "y": 2}, "length": 10}
func (s *Server) handleRoute(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planRoute(r)
	if err != nil {
		writePlanError(w, err)
		return
	}

	proj := render.ProjectionFromConfig(&plan.cfg)
	resp := routeResponse{
		Stops:          make([]routeStop, 0, plan.route.Len()),
		Distance:       plan.route.Distance(false),
		ClosedDistance: plan.route.Distance(true),
		Candidates:     plan.candidates,
		Length:         plan.length,
	}
	if plan.start != nil {
		resp.Start = &pointParams{X: plan.start.X(), Y: plan.start.Y()}
	}
	for i, st := range plan.route.Stops {
		px := proj.ToPixel(st.Point)
		resp.Stops = append(resp.Stops, routeStop{
			Order:       i + 1,
			Index:       st.Index,
			ID:          st.Item.ID,
			Name:        st.Item.Name,
			Tier:        st.Item.Tier,
			Description: st.Item.Description,
			X:           st.Point.X(),
			Y:           st.Point.Y(),
			PixelX:      px.X(),
			PixelY:      px.Y(),
			Start:       plan.highlight != nil && *plan.highlight == st.Index,
		})
	}
	writeJSON(w, resp)
}

// handleRouteRender draws the route over the configured map.
// POST /api/route/render
func (s *Server) handleRouteRender(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planRoute(r)
	if err != nil {
		writePlanError(w, err)
		return
	}
	base, err := s.mapImage(plan.cfg.MapImagePath)
	if err != nil {
		log.Printf("[API] Render: %v", err)
		writeError(w, 503, err.Error())
		return
	}

	opts, err := renderOptions(plan)
	if err != nil {
		log.Printf("[API] Render palette error: %v", err)
		writeError(w, 500, "render failed")
		return
	}
	var buf bytes.Buffer
	if err := render.Render(&buf, base, plan.route, opts); err != nil {
		log.Printf("[API] Render error: %v", err)
		writeError(w, 500, "render failed")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Write(buf.Bytes())
}

// renderOptions styles names from the whole category, so a name keeps its
// color and marker whatever the names filter selects.
func renderOptions(plan *routePlan) (render.Options, error) {
	opts := render.OptionsFromConfig(&plan.cfg)
	opts.Start = plan.highlight
	palette, err := render.NewPalette(plan.names)
	if err != nil {
		return opts, err
	}
	opts.Palette = palette
	return opts, nil
}

// handleRouteKML exports the route as KML.
// POST /api/route/kml
func (s *Server) handleRouteKML(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planRoute(r)
	if err != nil {
		writePlanError(w, err)
		return
	}
	var buf bytes.Buffer
	if err := export.WriteKML(&buf, plan.cfg.Category+" route", plan.route); err != nil {
		log.Printf("[API] KML error: %v", err)
		writeError(w, 500, "kml export failed")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.google-earth.kml+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="route.kml"`)
	w.Write(buf.Bytes())
}

// handleRouteGeoJSON exports the route as a GeoJSON FeatureCollection.
// POST /api/route/geojson
func (s *Server) handleRouteGeoJSON(w http.ResponseWriter, r *http.Request) {
	plan, err := s.planRoute(r)
	if err != nil {
		writePlanError(w, err)
		return
	}
	b, err := export.MarshalGeoJSON(plan.route)
	if err != nil {
		log.Printf("[API] GeoJSON error: %v", err)
		writeError(w, 500, "geojson export failed")
		return
	}
	w.Header().Set("Content-Type", "application/geo+json")
	w.Write(b)
}
