package db

import (
	"fmt"
	"strconv"

	"material-router/internal/config"
)

// LoadConfig reads config from SQLite. Missing keys keep their defaults;
// unparsable values are ignored.
func (d *DB) LoadConfig() *config.Config {
	cfg := config.Default()

	rows, err := d.sql.Query("SELECT key, value FROM config")
	if err != nil {
		return cfg
	}
	defer rows.Close()

	m := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err == nil {
			m[k] = v
		}
	}
	if len(m) == 0 {
		return cfg
	}

	setString := func(key string, dst *string) {
		if v, ok := m[key]; ok && v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) {
		if v, ok := m[key]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	setFloat := func(key string, dst *float64) {
		if v, ok := m[key]; ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				*dst = f
			}
		}
	}
	setBool := func(key string, dst *bool) {
		if v, ok := m[key]; ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}

	setString("catalog_path", &cfg.CatalogPath)
	setString("category", &cfg.Category)
	setString("map_image_path", &cfg.MapImagePath)
	setInt("route_length", &cfg.RouteLength)
	setInt("min_route_length", &cfg.MinRouteLength)
	setInt("max_route_length", &cfg.MaxRouteLength)
	setFloat("offset_x", &cfg.OffsetX)
	setFloat("reference_height", &cfg.ReferenceHeight)
	setFloat("scale", &cfg.Scale)
	setFloat("zoom_margin", &cfg.ZoomMargin)
	setBool("zoom", &cfg.Zoom)
	setBool("show_arrows", &cfg.ShowArrows)
	setFloat("marker_size", &cfg.MarkerSize)
	setFloat("start_marker_size", &cfg.StartMarkerSize)
	setInt("port", &cfg.Port)

	return cfg
}

// SaveConfig writes config to SQLite (upsert all fields).
func (d *DB) SaveConfig(cfg *config.Config) error {
	pairs := map[string]string{
		"catalog_path":      cfg.CatalogPath,
		"category":          cfg.Category,
		"map_image_path":    cfg.MapImagePath,
		"route_length":      strconv.Itoa(cfg.RouteLength),
		"min_route_length":  strconv.Itoa(cfg.MinRouteLength),
		"max_route_length":  strconv.Itoa(cfg.MaxRouteLength),
		"offset_x":          fmt.Sprintf("%g", cfg.OffsetX),
		"reference_height":  fmt.Sprintf("%g", cfg.ReferenceHeight),
		"scale":             fmt.Sprintf("%g", cfg.Scale),
		"zoom_margin":       fmt.Sprintf("%g", cfg.ZoomMargin),
		"zoom":              strconv.FormatBool(cfg.Zoom),
		"show_arrows":       strconv.FormatBool(cfg.ShowArrows),
		"marker_size":       fmt.Sprintf("%g", cfg.MarkerSize),
		"start_marker_size": fmt.Sprintf("%g", cfg.StartMarkerSize),
		"port":              strconv.Itoa(cfg.Port),
	}

	tx, err := d.sql.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare("INSERT OR REPLACE INTO config (key, value) VALUES (?, ?)")
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for k, v := range pairs {
		if _, err := stmt.Exec(k, v); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}
