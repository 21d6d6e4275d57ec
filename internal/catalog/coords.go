package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// numberToken matches a signed decimal with '.' or ',' as the separator.
var numberToken = regexp.MustCompile(`[-+]?\d+(?:[.,]\d+)?`)

// ParseCoord normalizes a raw coordinate into a point.
//
// Accepted shapes:
//   - a two-element pair ([]any, []string, []float64, [2]float64, orb.Point),
//     each element converted to a number after replacing ',' with '.';
//   - a string, from which the first two numeric tokens are taken
//     ("3,5 7,2", "x: 10 / y: -4.25", "12;34");
//   - json.RawMessage holding either of the above.
//
// Anything else, fewer than two tokens, or a non-finite value yields false.
func ParseCoord(raw any) (orb.Point, bool) {
	switch v := raw.(type) {
	case string:
		return parseCoordString(v)
	case []any:
		if len(v) != 2 {
			return orb.Point{}, false
		}
		return parsePair(v[0], v[1])
	case []string:
		if len(v) != 2 {
			return orb.Point{}, false
		}
		return parsePair(v[0], v[1])
	case []float64:
		if len(v) != 2 {
			return orb.Point{}, false
		}
		return parsePair(v[0], v[1])
	case [2]float64:
		return parsePair(v[0], v[1])
	case orb.Point:
		return parsePair(v[0], v[1])
	case json.RawMessage:
		var decoded any
		if err := json.Unmarshal(v, &decoded); err != nil {
			return orb.Point{}, false
		}
		return ParseCoord(decoded)
	}
	return orb.Point{}, false
}

func parseCoordString(s string) (orb.Point, bool) {
	tokens := numberToken.FindAllString(s, 2)
	if len(tokens) < 2 {
		return orb.Point{}, false
	}
	x, ok := parseNumber(tokens[0])
	if !ok {
		return orb.Point{}, false
	}
	y, ok := parseNumber(tokens[1])
	if !ok {
		return orb.Point{}, false
	}
	return orb.Point{x, y}, true
}

func parsePair(a, b any) (orb.Point, bool) {
	x, ok := scalarValue(a)
	if !ok {
		return orb.Point{}, false
	}
	y, ok := scalarValue(b)
	if !ok {
		return orb.Point{}, false
	}
	return orb.Point{x, y}, true
}

// scalarValue converts one pair element. Strings go through the same
// comma-decimal normalization as the string form.
func scalarValue(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return finite(n)
	case float32:
		return finite(float64(n))
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		return parseNumber(n.String())
	case string:
		return parseNumber(n)
	case nil, bool, []any, map[string]any:
		return 0, false
	}
	return parseNumber(fmt.Sprint(v))
}

func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return finite(f)
}

func finite(f float64) (float64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
