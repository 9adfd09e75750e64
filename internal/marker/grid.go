// Package marker holds the fixed world positions of the fiducial markers.
package marker

import (
	"fmt"
	"math"
	"sort"

	"robotnav/internal/nav"
)

// Marker is one fiducial tag fixed in the arena.
type Marker struct {
	ID int     `json:"id" yaml:"id"`
	X  float64 `json:"x" yaml:"x"`
	Y  float64 `json:"y" yaml:"y"`
}

// Grid maps marker ids to world positions. It is read-only after
// construction and safe for concurrent use.
type Grid struct {
	byID map[int]nav.Point
}

// FromList builds a grid from explicit marker positions. Duplicate ids are
// rejected.
func FromList(markers []Marker) (*Grid, error) {
	g := &Grid{byID: make(map[int]nav.Point, len(markers))}
	for _, m := range markers {
		if m.ID < 0 {
			return nil, fmt.Errorf("marker id %d: must not be negative", m.ID)
		}
		if _, dup := g.byID[m.ID]; dup {
			return nil, fmt.Errorf("marker id %d: duplicate", m.ID)
		}
		g.byID[m.ID] = nav.Point{X: m.X, Y: m.Y}
	}
	return g, nil
}

// Arena lays markers out on a regular grid centred on the origin. Ids are
// assigned row by row starting at the top-left corner (-w/2, +h/2), moving
// along +x and then down in y.
func Arena(width, height, spacing float64) (*Grid, error) {
	if width <= 0 || height <= 0 || spacing <= 0 {
		return nil, fmt.Errorf("arena %vx%v spacing %v: dimensions must be positive", width, height, spacing)
	}
	cols := int(math.Floor(width/spacing+1e-9)) + 1
	rows := int(math.Floor(height/spacing+1e-9)) + 1
	markers := make([]Marker, 0, cols*rows)
	id := 0
	for r := 0; r < rows; r++ {
		y := height/2 - float64(r)*spacing
		for c := 0; c < cols; c++ {
			x := -width/2 + float64(c)*spacing
			markers = append(markers, Marker{ID: id, X: round3(x), Y: round3(y)})
			id++
		}
	}
	return FromList(markers)
}

// Lookup returns the world position of marker id.
func (g *Grid) Lookup(id int) (nav.Point, bool) {
	p, ok := g.byID[id]
	return p, ok
}

// Markers returns every marker ordered by id.
func (g *Grid) Markers() []Marker {
	out := make([]Marker, 0, len(g.byID))
	for id, p := range g.byID {
		out = append(out, Marker{ID: id, X: p.X, Y: p.Y})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len is the number of markers.
func (g *Grid) Len() int { return len(g.byID) }

func round3(v float64) float64 { return math.Round(v*1000) / 1000 }
