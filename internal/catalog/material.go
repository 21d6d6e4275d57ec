package catalog

import (
	"regexp"
	"strings"

	"github.com/paulmach/orb"
)

// MaxIDLength is the maximum length of a Material ID, in characters.
const MaxIDLength = 10

// nonWord matches runs of characters that are not letters, digits or '_'.
var nonWord = regexp.MustCompile(`[^\p{L}\p{N}_]+`)

// Material is a named point of interest loaded from the catalog.
// One catalog entry with N coordinates yields N Materials sharing
// name, description and tier.
type Material struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Tier        string    `json:"tier,omitempty"`
	Coordinates orb.Point `json:"coordinates"`
}

// NewMaterial builds a Material and derives its ID from name.
func NewMaterial(name string, at orb.Point, description, tier string) Material {
	return Material{
		ID:          GenerateID(name),
		Name:        name,
		Description: description,
		Tier:        tier,
		Coordinates: at,
	}
}

// Location returns the material's coordinates.
func (m Material) Location() orb.Point {
	return m.Coordinates
}

// GenerateID returns a lowercase snake_case slug of name, truncated to
// MaxIDLength characters. IDs are not unique: "Iron Ore" and "Iron Ore II"
// may collide.
func GenerateID(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = nonWord.ReplaceAllString(s, "_")
	if r := []rune(s); len(r) > MaxIDLength {
		s = string(r[:MaxIDLength])
	}
	return s
}
