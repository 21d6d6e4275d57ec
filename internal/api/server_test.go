package api

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"material-router/internal/catalog"
	"material-router/internal/config"
	"material-router/internal/db"
	"material-router/internal/render"
)

const testCatalog = `{
	"Ore": {
		"T1": [
			{"name": "A", "description": "first", "coordinates": ["2,2"]},
			{"name": "B", "coordinates": ["3;2"]}
		],
		"T2": [
			{"name": "C", "coordinates": [[15, 15]]}
		]
	}
}`

// newTestServer writes a catalog and a 200x200 map into a temp dir and
// returns a server configured to use them. A(2,2) and B(3,2) project to
// (20,180) and (30,180); C(15,15) projects to (150,50).
func newTestServer(t *testing.T, withDB bool) (*Server, *db.DB) {
	t.Helper()
	dir := t.TempDir()

	catalogPath := filepath.Join(dir, "materials.json")
	if err := os.WriteFile(catalogPath, []byte(testCatalog), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	mapPath := filepath.Join(dir, "map.png")
	img := image.NewRGBA(image.Rect(0, 0, 200, 200))
	for y := 0; y < 200; y++ {
		for x := 0; x < 200; x++ {
			img.Set(x, y, color.White)
		}
	}
	f, err := os.Create(mapPath)
	if err != nil {
		t.Fatalf("create map: %v", err)
	}
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode map: %v", err)
	}
	f.Close()

	cfg := config.Default()
	cfg.CatalogPath = catalogPath
	cfg.Category = "Ore"
	cfg.MapImagePath = mapPath
	cfg.OffsetX = 0
	cfg.ReferenceHeight = 20
	cfg.Scale = 10
	cfg.ZoomMargin = 10

	var database *db.DB
	if withDB {
		database, err = db.Open(filepath.Join(dir, "test.db"))
		if err != nil {
			t.Fatalf("open db: %v", err)
		}
		t.Cleanup(func() { database.Close() })
	}
	return NewServer(cfg, catalog.NewCache(), database), database
}

func do(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeRoute(t *testing.T, rec *httptest.ResponseRecorder) routeResponse {
	t.Helper()
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var out routeResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode route: %v", err)
	}
	return out
}

func stopNames(stops []routeStop) string {
	var b strings.Builder
	for _, s := range stops {
		b.WriteString(s.Name)
	}
	return b.String()
}

func TestHandleGetConfig_ReturnsConfig(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := do(t, srv, http.MethodGet, "/api/config", "")
	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/config status = %d, want 200", rec.Code)
	}
	var out config.Config
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if out.Category != "Ore" || out.Scale != 10 {
		t.Errorf("config = %+v", out)
	}
}

func TestHandleSetConfig_PersistsAndClamps(t *testing.T) {
	srv, database := newTestServer(t, true)

	rec := do(t, srv, http.MethodPost, "/api/config", `{"route_length": 500, "zoom": false, "scale": -1}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/config status = %d: %s", rec.Code, rec.Body.String())
	}
	var out config.Config
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode config: %v", err)
	}
	if out.RouteLength != 50 {
		t.Errorf("RouteLength = %d, want clamped 50", out.RouteLength)
	}
	if out.Zoom {
		t.Error("Zoom = true, want false")
	}
	if out.Scale != config.Default().Scale {
		t.Errorf("Scale = %v, want default", out.Scale)
	}

	saved := database.LoadConfig()
	if saved.RouteLength != 50 || saved.Zoom {
		t.Errorf("persisted config = %+v", saved)
	}
}

func TestHandleSetConfig_InvalidJSON(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := do(t, srv, http.MethodPost, "/api/config", `{`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestHandleStatus_BeforeAndAfterLoad(t *testing.T) {
	srv, _ := newTestServer(t, false)

	var before map[string]interface{}
	json.NewDecoder(do(t, srv, http.MethodGet, "/api/status", "").Body).Decode(&before)
	if before["catalog_loaded"] != false || before["materials"] != float64(0) {
		t.Errorf("status before load = %v", before)
	}

	do(t, srv, http.MethodPost, "/api/catalog/reload", "")

	var after map[string]interface{}
	json.NewDecoder(do(t, srv, http.MethodGet, "/api/status", "").Body).Decode(&after)
	if after["catalog_loaded"] != true || after["ready"] != true || after["materials"] != float64(3) {
		t.Errorf("status after load = %v", after)
	}
}

func TestHandleMaterials_FilterAndNames(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := do(t, srv, http.MethodGet, "/api/materials?name=C&name=A", "")
	var mats []catalog.Material
	if err := json.NewDecoder(rec.Body).Decode(&mats); err != nil {
		t.Fatalf("decode materials: %v", err)
	}
	if len(mats) != 2 || mats[0].Name != "A" || mats[1].Name != "C" {
		t.Errorf("materials = %+v, want A then C in catalog order", mats)
	}
	if mats[1].Tier != "T2" || mats[1].Coordinates.X() != 15 {
		t.Errorf("C = %+v", mats[1])
	}

	rec = do(t, srv, http.MethodGet, "/api/materials/names", "")
	var names []string
	json.NewDecoder(rec.Body).Decode(&names)
	if strings.Join(names, ",") != "A,B,C" {
		t.Errorf("names = %v, want [A B C]", names)
	}
}

func TestHandleMaterials_MissingCatalog(t *testing.T) {
	srv, _ := newTestServer(t, false)
	srv.cfg.CatalogPath = filepath.Join(t.TempDir(), "missing.json")

	rec := do(t, srv, http.MethodGet, "/api/materials", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
	rec = do(t, srv, http.MethodPost, "/api/route", `{}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("route status = %d, want 503", rec.Code)
	}
}

func TestHandleRoute_NearestFromStart(t *testing.T) {
	srv, _ := newTestServer(t, false)

	out := decodeRoute(t, do(t, srv, http.MethodPost, "/api/route", `{"start": {"x": 2.9, "y": 2}, "length": 2}`))
	if got := stopNames(out.Stops); got != "BA" {
		t.Fatalf("route = %q, want BA", got)
	}
	b := out.Stops[0]
	if b.Order != 1 || b.Index != 1 || b.X != 3 || b.Y != 2 {
		t.Errorf("first stop = %+v", b)
	}
	if b.PixelX != 30 || b.PixelY != 180 {
		t.Errorf("first stop pixel = (%v, %v), want (30, 180)", b.PixelX, b.PixelY)
	}
	if b.Start {
		t.Error("explicit start must not highlight a stop")
	}
	if out.Distance != 1 || out.ClosedDistance != 2 {
		t.Errorf("distance = %v / %v, want 1 / 2", out.Distance, out.ClosedDistance)
	}
	if out.Candidates != 3 || out.Length != 2 {
		t.Errorf("candidates/length = %d/%d, want 3/2", out.Candidates, out.Length)
	}
}

func TestHandleRoute_LengthDefaultsAndClamps(t *testing.T) {
	srv, _ := newTestServer(t, false)

	tests := []struct {
		body      string
		wantStops int
		wantLen   int
	}{
		{"", 3, 20},                // empty body: config default, builder caps at 3
		{`{"length": 1}`, 2, 2},    // below MinRouteLength
		{`{"length": 999}`, 3, 50}, // above MaxRouteLength
	}
	for _, tc := range tests {
		out := decodeRoute(t, do(t, srv, http.MethodPost, "/api/route", tc.body))
		if len(out.Stops) != tc.wantStops || out.Length != tc.wantLen {
			t.Errorf("body %q: stops=%d length=%d, want %d/%d", tc.body, len(out.Stops), out.Length, tc.wantStops, tc.wantLen)
		}
	}
}

func TestHandleRoute_NoStartBeginsAtFirstRecord(t *testing.T) {
	srv, _ := newTestServer(t, false)
	out := decodeRoute(t, do(t, srv, http.MethodPost, "/api/route", `{"names": ["C", "B"]}`))
	if got := stopNames(out.Stops); got != "BC" {
		t.Errorf("route = %q, want BC", got)
	}
}

func TestHandleRoute_RandomStartHighlightsItem(t *testing.T) {
	srv, _ := newTestServer(t, false)
	srv.rng = rand.New(rand.NewPCG(1, 2))

	out := decodeRoute(t, do(t, srv, http.MethodPost, "/api/route", `{"names": ["C"], "random_start": true}`))
	if len(out.Stops) != 1 || !out.Stops[0].Start {
		t.Fatalf("stops = %+v, want single highlighted C", out.Stops)
	}
	if out.Start == nil || out.Start.X != 15 || out.Start.Y != 15 {
		t.Errorf("start = %+v, want (15, 15)", out.Start)
	}
}

func TestHandleRoute_BadRequests(t *testing.T) {
	srv, _ := newTestServer(t, false)
	for _, body := range []string{
		`{"start": `,
		`{"start": {"x": 1, "y": 1}, "random_start": true}`,
		`{"length": "ten"}`,
	} {
		rec := do(t, srv, http.MethodPost, "/api/route", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("body %q: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestHandleRoute_UnknownNamesGiveEmptyRoute(t *testing.T) {
	srv, _ := newTestServer(t, false)
	out := decodeRoute(t, do(t, srv, http.MethodPost, "/api/route", `{"names": ["Zinc"], "random_start": true}`))
	if len(out.Stops) != 0 || out.Candidates != 0 || out.Start != nil {
		t.Errorf("route = %+v, want empty", out)
	}
}

func TestHandleRouteRender_ZoomedPNG(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := do(t, srv, http.MethodPost, "/api/route/render", `{"names": ["A", "B"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "image/png" {
		t.Errorf("Content-Type = %q, want image/png", ct)
	}
	img, err := png.Decode(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	// (20,180)-(30,180) padded by 10.
	if b := img.Bounds(); b.Dx() != 30 || b.Dy() != 20 {
		t.Errorf("image size = %dx%d, want 30x20", b.Dx(), b.Dy())
	}
}

func TestRenderOptions_StyleIgnoresNamesFilter(t *testing.T) {
	srv, _ := newTestServer(t, false)

	style := func(body string) render.Style {
		t.Helper()
		req := httptest.NewRequest(http.MethodPost, "/api/route/render", strings.NewReader(body))
		plan, err := srv.planRoute(req)
		if err != nil {
			t.Fatalf("planRoute(%s): %v", body, err)
		}
		opts, err := renderOptions(plan)
		if err != nil {
			t.Fatalf("renderOptions: %v", err)
		}
		if opts.Palette == nil {
			t.Fatal("Palette = nil, want category palette")
		}
		return opts.Palette.Style("C")
	}

	want := style(`{}`)
	for _, body := range []string{`{"names": ["C"]}`, `{"names": ["B", "C"]}`} {
		got := style(body)
		if got.Marker != want.Marker || !sameColor(got.Color, want.Color) {
			t.Errorf("%s: Style(C) = %+v, want %+v", body, got, want)
		}
	}
}

func sameColor(a, b color.Color) bool {
	ar, ag, ab, aa := a.RGBA()
	br, bg, bb, ba := b.RGBA()
	return ar == br && ag == bg && ab == bb && aa == ba
}

func TestHandleRouteRender_MissingMap(t *testing.T) {
	srv, _ := newTestServer(t, false)
	srv.cfg.MapImagePath = filepath.Join(t.TempDir(), "nope.png")

	rec := do(t, srv, http.MethodPost, "/api/route/render", `{}`)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}

func TestHandleRouteExports(t *testing.T) {
	srv, _ := newTestServer(t, false)

	rec := do(t, srv, http.MethodPost, "/api/route/kml", `{"length": 3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("kml status = %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "kml") {
		t.Errorf("kml Content-Type = %q", ct)
	}
	if body := rec.Body.String(); !strings.Contains(body, "Ore route") || strings.Count(body, "<Placemark>") != 4 {
		t.Errorf("kml body =\n%s", body)
	}

	rec = do(t, srv, http.MethodPost, "/api/route/geojson", `{"length": 3}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("geojson status = %d", rec.Code)
	}
	var fc struct {
		Features []json.RawMessage `json:"features"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&fc); err != nil {
		t.Fatalf("decode geojson: %v", err)
	}
	if len(fc.Features) != 4 {
		t.Errorf("features = %d, want 4", len(fc.Features))
	}
}

func TestHandleGetLoads_RecordsCatalogLoads(t *testing.T) {
	srv, _ := newTestServer(t, true)

	do(t, srv, http.MethodGet, "/api/materials", "")
	do(t, srv, http.MethodGet, "/api/materials", "") // cached, no new record

	var loads []db.LoadRecord
	json.NewDecoder(do(t, srv, http.MethodGet, "/api/loads", "").Body).Decode(&loads)
	if len(loads) != 1 {
		t.Fatalf("loads = %d, want 1", len(loads))
	}
	if loads[0].Category != "Ore" || loads[0].Materials != 3 {
		t.Errorf("load = %+v", loads[0])
	}

	do(t, srv, http.MethodPost, "/api/catalog/reload", "")
	json.NewDecoder(do(t, srv, http.MethodGet, "/api/loads", "").Body).Decode(&loads)
	if len(loads) != 2 {
		t.Errorf("loads after reload = %d, want 2", len(loads))
	}
}

func TestHandleGetLoads_NoDatabase(t *testing.T) {
	srv, _ := newTestServer(t, false)
	rec := do(t, srv, http.MethodGet, "/api/loads", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("body = %q, want []", rec.Body.String())
	}
}
