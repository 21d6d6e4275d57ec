package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"material-router/internal/logger"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidDocument is returned when the catalog source is not valid JSON.
var ErrInvalidDocument = errors.New("catalog: invalid JSON document")

// Stats counts what a load saw and what it dropped.
type Stats struct {
	Tiers               int `json:"tiers"`
	Items               int `json:"items"`
	Coordinates         int `json:"coordinates"`
	Materials           int `json:"materials"`
	RejectedCoordinates int `json:"rejected_coordinates"` // unparsable coordinate entries
	SkippedEntries      int `json:"skipped_entries"`      // non-list tiers, non-object items, nameless items
}

// CategoryResult is the outcome of loading one category.
type CategoryResult struct {
	Category  string
	Materials []Material
	Stats     Stats
}

// Load reads the catalog file at path and returns the materials of category.
func Load(path, category string) ([]Material, error) {
	mats, _, err := LoadWithStats(path, category)
	return mats, err
}

// LoadWithStats is Load plus load counters.
func LoadWithStats(path, category string) ([]Material, Stats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read catalog: %w", err)
	}
	mats, stats, err := decodeCategory(data, category)
	if err != nil {
		return nil, Stats{}, err
	}
	if stats.RejectedCoordinates > 0 || stats.SkippedEntries > 0 {
		logger.Warn("CATALOG", fmt.Sprintf("%s/%s: %d coordinates rejected, %d entries skipped",
			path, category, stats.RejectedCoordinates, stats.SkippedEntries))
	}
	return mats, stats, nil
}

// Decode reads a catalog document from r and returns the materials of category.
func Decode(r io.Reader, category string) ([]Material, Stats, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, Stats{}, fmt.Errorf("read catalog: %w", err)
	}
	return decodeCategory(data, category)
}

// LoadCategories reads the catalog once and materializes each requested
// category concurrently. Results follow the order of categories.
func LoadCategories(ctx context.Context, path string, categories []string) ([]CategoryResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	if !json.Valid(data) {
		return nil, ErrInvalidDocument
	}

	results := make([]CategoryResult, len(categories))
	g, ctx := errgroup.WithContext(ctx)
	for i, category := range categories {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			mats, stats, err := decodeCategory(data, category)
			if err != nil {
				return fmt.Errorf("category %q: %w", category, err)
			}
			results[i] = CategoryResult{Category: category, Materials: mats, Stats: stats}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// decodeCategory walks category -> tier -> items in document order.
// Malformed entries are counted and skipped; only an unparsable document
// is an error.
func decodeCategory(data []byte, category string) ([]Material, Stats, error) {
	var stats Stats
	if !json.Valid(data) {
		return nil, stats, ErrInvalidDocument
	}

	root, ok := objectMembers(data)
	if !ok {
		return []Material{}, stats, nil
	}
	catRaw, ok := lookup(root, category)
	if !ok {
		return []Material{}, stats, nil
	}
	tiers, ok := objectMembers(catRaw)
	if !ok {
		return []Material{}, stats, nil
	}

	mats := []Material{}
	for _, tier := range tiers {
		stats.Tiers++
		var items []json.RawMessage
		if err := json.Unmarshal(tier.Value, &items); err != nil || items == nil {
			stats.SkippedEntries++
			continue
		}
		for _, raw := range items {
			entry, ok := decodeItem(raw)
			if !ok {
				stats.SkippedEntries++
				continue
			}
			stats.Items++
			for _, c := range entry.Coordinates {
				stats.Coordinates++
				at, ok := ParseCoord(c)
				if !ok {
					stats.RejectedCoordinates++
					continue
				}
				mats = append(mats, NewMaterial(entry.Name, at, entry.Description, tier.Key))
			}
		}
	}
	stats.Materials = len(mats)
	return mats, stats, nil
}

type itemEntry struct {
	Name        string
	Description string
	Coordinates []json.RawMessage
}

// decodeItem extracts one catalog item. Fields of the wrong type are
// ignored, except name, which must be a non-empty string.
func decodeItem(raw json.RawMessage) (itemEntry, bool) {
	members, ok := objectMembers(raw)
	if !ok {
		return itemEntry{}, false
	}
	var entry itemEntry
	if v, ok := lookup(members, "name"); !ok || json.Unmarshal(v, &entry.Name) != nil || entry.Name == "" {
		return itemEntry{}, false
	}
	if v, ok := lookup(members, "description"); ok {
		var desc string
		if json.Unmarshal(v, &desc) == nil {
			entry.Description = desc
		}
	}
	// Elements stay raw so one bad entry cannot fail its siblings.
	if v, ok := lookup(members, "coordinates"); ok {
		var coords []json.RawMessage
		if json.Unmarshal(v, &coords) == nil {
			entry.Coordinates = coords
		}
	}
	return entry, true
}

type member struct {
	Key   string
	Value json.RawMessage
}

// objectMembers returns the members of a JSON object in document order.
// A repeated key keeps its first position and takes the last value.
func objectMembers(raw []byte) ([]member, bool) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, false
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, false
	}
	var out []member
	pos := make(map[string]int)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, false
		}
		key, ok := tok.(string)
		if !ok {
			return nil, false
		}
		var v json.RawMessage
		if err := dec.Decode(&v); err != nil {
			return nil, false
		}
		if i, dup := pos[key]; dup {
			out[i].Value = v
			continue
		}
		pos[key] = len(out)
		out = append(out, member{Key: key, Value: v})
	}
	return out, true
}

func lookup(members []member, key string) (json.RawMessage, bool) {
	for _, m := range members {
		if m.Key == key {
			return m.Value, true
		}
	}
	return nil, false
}
