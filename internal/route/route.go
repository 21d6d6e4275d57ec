// Package route builds visiting orders over located items with a greedy
// nearest-neighbour walk.
//
// Candidates are addressed by their index in the input slice, never by
// coordinate value, so items sharing a coordinate stay distinct stops.
// Cost is O(length × len(items)) distance evaluations; there is no spatial
// index, which is fine for interactive route lengths over an in-memory
// catalog.
package route

import (
	"slices"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Locator is anything with a 2D position.
type Locator interface {
	Location() orb.Point
}

// Stop is one visited candidate.
type Stop[T Locator] struct {
	Index int       `json:"index"` // position in the input slice
	Point orb.Point `json:"point"`
	Item  T         `json:"item"`
}

// Route is an ordered, non-repeating sequence of stops.
type Route[T Locator] struct {
	Stops []Stop[T] `json:"stops"`
}

// Build walks items greedily: it starts at the item nearest to start
// (or at items[0] when start is nil) and repeatedly steps to the nearest
// unvisited item until length stops are collected or none remain.
// length is clamped to [0, len(items)]. Ties go to the earliest input index.
func Build[T Locator](items []T, start *orb.Point, length int) Route[T] {
	length = min(max(length, 0), len(items))
	if length == 0 {
		return Route[T]{Stops: []Stop[T]{}}
	}

	coords := make([]orb.Point, len(items))
	unvisited := make([]int, len(items))
	for i, it := range items {
		coords[i] = it.Location()
		unvisited[i] = i
	}

	// unvisited starts as the identity, so position == index here.
	pos := 0
	if start != nil {
		pos = nearest(coords, unvisited, *start)
	}
	cur := unvisited[pos]

	stops := make([]Stop[T], 0, length)
	for {
		stops = append(stops, Stop[T]{Index: cur, Point: coords[cur], Item: items[cur]})
		unvisited = slices.Delete(unvisited, pos, pos+1)
		if len(stops) == length || len(unvisited) == 0 {
			break
		}
		pos = nearest(coords, unvisited, coords[cur])
		cur = unvisited[pos]
	}
	return Route[T]{Stops: stops}
}

// nearest returns the position in candidates of the index whose coordinate
// is closest to from. The first minimum wins.
func nearest(coords []orb.Point, candidates []int, from orb.Point) int {
	best := 0
	bestDist := planar.Distance(from, coords[candidates[0]])
	for p := 1; p < len(candidates); p++ {
		if d := planar.Distance(from, coords[candidates[p]]); d < bestDist {
			best, bestDist = p, d
		}
	}
	return best
}

// Len returns the number of stops.
func (r Route[T]) Len() int {
	return len(r.Stops)
}

// Points returns stop coordinates in visiting order.
func (r Route[T]) Points() []orb.Point {
	out := make([]orb.Point, len(r.Stops))
	for i, s := range r.Stops {
		out[i] = s.Point
	}
	return out
}

// Items returns the visited items in order.
func (r Route[T]) Items() []T {
	out := make([]T, len(r.Stops))
	for i, s := range r.Stops {
		out[i] = s.Item
	}
	return out
}

// Indices returns the input indices in visiting order.
func (r Route[T]) Indices() []int {
	out := make([]int, len(r.Stops))
	for i, s := range r.Stops {
		out[i] = s.Index
	}
	return out
}

// Distance sums the leg lengths. With closed set, the leg from the last
// stop back to the first is included.
func (r Route[T]) Distance(closed bool) float64 {
	if len(r.Stops) < 2 {
		return 0
	}
	ls := orb.LineString(r.Points())
	if closed {
		ls = append(ls, r.Stops[0].Point)
	}
	return planar.Length(ls)
}
