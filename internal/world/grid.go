package world

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMask  = errors.New("land mask is empty")
	ErrRaggedMask = errors.New("land mask rows have unequal length")
)

// Moore neighbourhood, row by row from the top left. The order is fixed so
// bot behaviour is reproducible under a seeded source.
var directions = [8][2]int{
	{-1, -1}, {0, -1}, {1, -1},
	{-1, 0}, {1, 0},
	{-1, 1}, {0, 1}, {1, 1},
}

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Grid is the immutable land/water topology.
type Grid struct {
	width  int
	height int
	land   []bool // y*width + x
}

func NewGrid(mask [][]bool) (*Grid, error) {
	if len(mask) == 0 || len(mask[0]) == 0 {
		return nil, ErrEmptyMask
	}

	w := len(mask[0])
	g := &Grid{
		width:  w,
		height: len(mask),
		land:   make([]bool, w*len(mask)),
	}
	for y, row := range mask {
		if len(row) != w {
			return nil, fmt.Errorf("row %d has %d cells, want %d: %w", y, len(row), w, ErrRaggedMask)
		}
		copy(g.land[y*w:], row)
	}

	return g, nil
}

func (g *Grid) Width() int  { return g.width }
func (g *Grid) Height() int { return g.height }

func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && x < g.width && y >= 0 && y < g.height
}

// Land is false for out of bounds coordinates.
func (g *Grid) Land(x, y int) bool {
	if !g.InBounds(x, y) {
		return false
	}
	return g.land[y*g.width+x]
}

func (g *Grid) Index(x, y int) int {
	return y*g.width + x
}

func (g *Grid) Coords(idx int) (int, int) {
	return idx % g.width, idx / g.width
}

// Neighbors8 returns the in-bounds Moore neighbours of (x, y).
func (g *Grid) Neighbors8(x, y int) []Point {
	out := make([]Point, 0, 8)
	for _, d := range directions {
		nx, ny := x+d[0], y+d[1]
		if g.InBounds(nx, ny) {
			out = append(out, Point{nx, ny})
		}
	}
	return out
}

// PortJumps returns the two-step destinations reachable from a port at
// (x, y): straight or diagonal, water in between, land at the end.
func (g *Grid) PortJumps(x, y int) []Point {
	out := make([]Point, 0, 8)
	for _, d := range directions {
		mx, my := x+d[0], y+d[1]
		dx, dy := x+2*d[0], y+2*d[1]
		if !g.InBounds(mx, my) || g.Land(mx, my) {
			continue
		}
		if g.Land(dx, dy) {
			out = append(out, Point{dx, dy})
		}
	}
	return out
}

// Coastal reports whether any Moore neighbour of (x, y) is water.
func (g *Grid) Coastal(x, y int) bool {
	for _, p := range g.Neighbors8(x, y) {
		if !g.Land(p.X, p.Y) {
			return true
		}
	}
	return false
}
