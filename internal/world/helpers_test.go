package world

import (
	"math/rand"
	"strings"
	"testing"
)

func mustWorld(t *testing.T, opts Options, rows ...string) *World {
	t.Helper()
	mask, err := ParseMask(rows)
	if err != nil {
		t.Fatalf("parse mask: %v", err)
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(1))
	}
	w, err := NewWorld(mask, opts)
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}

func landRows(width, height int) []string {
	rows := make([]string, height)
	for i := range rows {
		rows[i] = strings.Repeat("#", width)
	}
	return rows
}

func mustJoin(t *testing.T, w *World, name string) PlayerID {
	t.Helper()
	id, ok := w.Join(name)
	if !ok {
		t.Fatalf("join %q failed", name)
	}
	return id
}

// own hands (x, y) to id directly, bypassing command rules.
func own(w *World, id PlayerID, x, y int) {
	w.claim(w.players[id], w.grid.Index(x, y))
}

func setTroops(w *World, id PlayerID, n int) {
	w.players[id].Troops = n
}

func troops(w *World, id PlayerID) int {
	return w.players[id].Troops
}

// checkInvariants asserts the ownership cross references and overlay rules.
func checkInvariants(t *testing.T, w *World) {
	t.Helper()
	for idx, c := range w.cells {
		if c.Owner == NoOwner {
			if c.Port || c.City {
				t.Fatalf("cell %d unowned but fortified: %+v", idx, c)
			}
			continue
		}
		if !w.grid.land[idx] {
			t.Fatalf("water cell %d has owner %s", idx, c.Owner)
		}
		p, ok := w.players[c.Owner]
		if !ok {
			t.Fatalf("cell %d owned by missing player %s", idx, c.Owner)
		}
		if _, ok := p.Territory[idx]; !ok {
			t.Fatalf("cell %d owned by %s but not in its territory", idx, c.Owner)
		}
	}
	for id, p := range w.players {
		if p.Troops < 0 {
			t.Fatalf("player %s has negative troops %d", id, p.Troops)
		}
		for idx := range p.Territory {
			if w.cells[idx].Owner != id {
				t.Fatalf("player %s lists cell %d owned by %q", id, idx, w.cells[idx].Owner)
			}
		}
	}
}
