package world

import (
	"runtime/debug"
	"sort"

	"go.uber.org/zap"

	"github.com/Scrimzay/conquestsim/internal/logs"
)

const (
	botSpawnAttempts = 50
	botFraction      = 0.5
)

// Tick runs one growth-and-bot update under the world lock.
func (w *World) Tick() {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			logs.Error("panic in tick", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()

	w.backfillBots()

	roster := w.roster()
	for _, p := range roster {
		w.grow(p)
	}
	for _, p := range roster {
		if p.Bot {
			w.botMove(p)
		}
	}

	w.tickCount++
}

// roster returns live players in join order so a seeded source always drives
// the same decisions.
func (w *World) roster() []*Player {
	out := make([]*Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].joinSeq < out[j].joinSeq })
	return out
}

func (w *World) backfillBots() {
	bots := 0
	for _, p := range w.players {
		if p.Bot {
			bots++
		}
	}
	for bots < w.botSlots {
		p, ok := w.addPlayer(w.botName(), true)
		if !ok {
			return
		}
		bots++
		logs.Debug("bot added", zap.String("id", string(p.ID)), zap.String("name", p.Name))
	}
}

func (w *World) botMove(p *Player) {
	if p.TerritorySize() == 0 {
		w.botSpawn(p)
		return
	}

	src := w.randomOwnedCell(p)
	sx, sy := w.grid.Coords(src)
	candidates := w.targets(p, sx, sy)
	if len(candidates) == 0 {
		return
	}
	t := candidates[w.rng.Intn(len(candidates))]
	sent := troopsFor(p.Troops, botFraction)
	if sent < 1 {
		return
	}
	w.strike(p, w.grid.Index(t.X, t.Y), sent)
}

func (w *World) botSpawn(p *Player) {
	for i := 0; i < botSpawnAttempts; i++ {
		x := w.rng.Intn(w.grid.width)
		y := w.rng.Intn(w.grid.height)
		if w.spawn(p, x, y) {
			return
		}
	}
	logs.Debug("bot found no free land", zap.String("bot", p.Name), zap.Int("tries", botSpawnAttempts))
}

// randomOwnedCell picks uniformly among p's cells. Territory is a map, so the
// indices are sorted first to keep the pick reproducible.
func (w *World) randomOwnedCell(p *Player) int {
	cells := make([]int, 0, len(p.Territory))
	for idx := range p.Territory {
		cells = append(cells, idx)
	}
	sort.Ints(cells)
	return cells[w.rng.Intn(len(cells))]
}
