package world

import "math"

// Commands either apply fully or leave the world untouched. Failure is the
// false return, nothing else.

func (w *World) Spawn(id PlayerID, x, y int) bool {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	p, ok := w.players[id]
	if !ok {
		return false
	}
	return w.spawn(p, x, y)
}

func (w *World) spawn(p *Player, x, y int) bool {
	if !w.grid.Land(x, y) {
		return false
	}
	idx := w.grid.Index(x, y)
	if w.cells[idx].Owner != NoOwner {
		return false
	}
	w.claim(p, idx)
	p.Troops += SpawnBonus
	return true
}

// Attack commits floor(pool*fraction) troops from (sx, sy) to (dx, dy).
func (w *World) Attack(id PlayerID, sx, sy, dx, dy int, fraction float64) bool {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	p, ok := w.players[id]
	if !ok || !validFraction(fraction) {
		return false
	}
	if !w.ownedBy(p, sx, sy) || !w.reachable(sx, sy, dx, dy) {
		return false
	}
	return w.strike(p, w.grid.Index(dx, dy), troopsFor(p.Troops, fraction))
}

// Expand attacks every reachable cell around (x, y) that p does not own,
// splitting the committed force evenly between them.
func (w *World) Expand(id PlayerID, x, y int, fraction float64) bool {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	p, ok := w.players[id]
	if !ok || !validFraction(fraction) || !w.ownedBy(p, x, y) {
		return false
	}

	targets := w.targets(p, x, y)
	if len(targets) == 0 {
		return false
	}

	// Each thrust is sized against the pool as it stood before the batch.
	share := troopsFor(p.Troops, fraction/float64(len(targets)))
	hit := false
	for _, t := range targets {
		if w.strike(p, w.grid.Index(t.X, t.Y), share) {
			hit = true
		}
	}
	return hit
}

func (w *World) BuildPort(id PlayerID, x, y int) bool {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	p, ok := w.players[id]
	if !ok || !w.ownedBy(p, x, y) {
		return false
	}
	c := &w.cells[w.grid.Index(x, y)]
	if c.Port || !w.grid.Coastal(x, y) || p.Troops < PortCost {
		return false
	}
	p.Troops -= PortCost
	c.Port = true
	return true
}

func (w *World) BuildCity(id PlayerID, x, y int) bool {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	p, ok := w.players[id]
	if !ok || !w.ownedBy(p, x, y) {
		return false
	}
	c := &w.cells[w.grid.Index(x, y)]
	if c.City || p.Troops < CityCost {
		return false
	}
	p.Troops -= CityCost
	c.City = true
	return true
}

// strike resolves sent troops against the cell at idx. The attacker pays
// sent on every path except a no-op against its own cell.
func (w *World) strike(p *Player, idx int, sent int) bool {
	if sent < 1 || sent > p.Troops {
		return false
	}
	owner := w.cells[idx].Owner
	if owner == p.ID {
		return false
	}
	p.Troops -= sent

	if owner == NoOwner {
		w.claim(p, idx)
		return true
	}

	def, ok := w.players[owner]
	if !ok {
		w.claim(p, idx)
		return true
	}
	// Ties go to the defender.
	if sent > def.Troops {
		def.Troops = 0
		w.claim(p, idx)
	} else {
		def.Troops -= sent
	}
	return true
}

func (w *World) ownedBy(p *Player, x, y int) bool {
	if !w.grid.InBounds(x, y) {
		return false
	}
	return w.cells[w.grid.Index(x, y)].Owner == p.ID
}

// reachable checks the geometry of a move from a source the caller already
// owns: one Moore step onto land, or a two-step port jump over water.
func (w *World) reachable(sx, sy, dx, dy int) bool {
	if !w.grid.Land(dx, dy) {
		return false
	}
	ax, ay := abs(dx-sx), abs(dy-sy)
	if max(ax, ay) == 1 {
		return true
	}
	if !w.cells[w.grid.Index(sx, sy)].Port {
		return false
	}
	// Straight or diagonal, exactly two steps.
	if max(ax, ay) != 2 || (ax != 0 && ax != 2) || (ay != 0 && ay != 2) {
		return false
	}
	mx, my := sx+(dx-sx)/2, sy+(dy-sy)/2
	return !w.grid.Land(mx, my)
}

// targets lists the cells p could attack from (x, y), in a fixed order:
// Moore neighbours first, then port jumps.
func (w *World) targets(p *Player, x, y int) []Point {
	var out []Point
	for _, n := range w.grid.Neighbors8(x, y) {
		if w.grid.Land(n.X, n.Y) && w.cells[w.grid.Index(n.X, n.Y)].Owner != p.ID {
			out = append(out, n)
		}
	}
	if w.cells[w.grid.Index(x, y)].Port {
		for _, j := range w.grid.PortJumps(x, y) {
			if w.cells[w.grid.Index(j.X, j.Y)].Owner != p.ID {
				out = append(out, j)
			}
		}
	}
	return out
}

func validFraction(f float64) bool {
	return f > 0 && f <= 1 && !math.IsNaN(f)
}

func troopsFor(pool int, fraction float64) int {
	return int(math.Floor(float64(pool) * fraction))
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
