package world

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Scrimzay/conquestsim/internal/logs"
)

const (
	DefaultMaxPlayers = 10
	DefaultTickPeriod = 1000 * time.Millisecond

	SpawnBonus = 10
	PortCost   = 5
	CityCost   = 10

	baseCapacity    = 5
	capacityPerCity = 5
)

type PlayerID string

// NoOwner marks an unclaimed cell.
const NoOwner PlayerID = ""

// Cell holds the mutable overlays of one grid position. Port and city are
// only ever set on owned land.
type Cell struct {
	Owner PlayerID
	Port  bool
	City  bool
}

type Player struct {
	ID        PlayerID
	Name      string
	Color     string
	Bot       bool
	Troops    int
	Territory map[int]struct{} // cell indices, mirrors Cell.Owner

	joinSeq uint64
}

func (p *Player) TerritorySize() int {
	return len(p.Territory)
}

type Options struct {
	MaxPlayers int
	Bots       int // bot slots kept filled by the tick
	Rand       *rand.Rand
}

// World is the authoritative game state. Every exported method takes Mu, so
// a command or a tick always runs to completion before the next one starts.
type World struct {
	Mu sync.RWMutex

	grid       *Grid
	cells      []Cell
	players    map[PlayerID]*Player
	maxPlayers int
	botSlots   int
	rng        *rand.Rand
	tickCount  uint64
	nextSeq    uint64
}

func NewWorld(mask [][]bool, opts Options) (*World, error) {
	g, err := NewGrid(mask)
	if err != nil {
		return nil, fmt.Errorf("new world: %w", err)
	}

	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = DefaultMaxPlayers
	}
	if opts.Bots < 0 {
		opts.Bots = 0
	}
	if opts.Bots > opts.MaxPlayers {
		opts.Bots = opts.MaxPlayers
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}

	return &World{
		grid:       g,
		cells:      make([]Cell, g.width*g.height),
		players:    make(map[PlayerID]*Player),
		maxPlayers: opts.MaxPlayers,
		botSlots:   opts.Bots,
		rng:        opts.Rand,
	}, nil
}

func (w *World) Grid() *Grid {
	return w.grid
}

// Join adds a human player with no territory and no troops. It fails when
// the roster is full.
func (w *World) Join(name string) (PlayerID, bool) {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	p, ok := w.addPlayer(name, false)
	if !ok {
		return NoOwner, false
	}
	logs.Info("player joined", zap.String("id", string(p.ID)), zap.String("name", p.Name))
	return p.ID, true
}

// Leave removes the player and releases every cell it owned.
func (w *World) Leave(id PlayerID) bool {
	w.Mu.Lock()
	defer w.Mu.Unlock()

	p, ok := w.players[id]
	if !ok {
		return false
	}
	w.removePlayer(p)
	logs.Info("player left", zap.String("id", string(id)), zap.Bool("bot", p.Bot))
	return true
}

func (w *World) addPlayer(name string, bot bool) (*Player, bool) {
	if len(w.players) >= w.maxPlayers {
		return nil, false
	}

	w.nextSeq++
	p := &Player{
		ID:        PlayerID(uuid.NewString()),
		Name:      name,
		Color:     w.pickColor(),
		Bot:       bot,
		Territory: make(map[int]struct{}),
		joinSeq:   w.nextSeq,
	}
	w.players[p.ID] = p
	return p, true
}

func (w *World) removePlayer(p *Player) {
	for idx := range p.Territory {
		w.cells[idx] = Cell{}
	}
	delete(w.players, p.ID)
}

// pickColor draws a colour from the world's source, rerolling a few times on
// an exact clash with a live player.
func (w *World) pickColor() string {
	var c string
	for attempt := 0; attempt < 8; attempt++ {
		c = fmt.Sprintf("#%02x%02x%02x", 40+w.rng.Intn(200), 40+w.rng.Intn(200), 40+w.rng.Intn(200))
		if !w.colorTaken(c) {
			break
		}
	}
	return c
}

func (w *World) colorTaken(c string) bool {
	for _, p := range w.players {
		if p.Color == c {
			return true
		}
	}
	return false
}

// claim hands an unowned or enemy cell to p with fortifications cleared.
func (w *World) claim(p *Player, idx int) {
	if prev := w.cells[idx].Owner; prev != NoOwner {
		if owner, ok := w.players[prev]; ok {
			delete(owner.Territory, idx)
		}
	}
	w.cells[idx] = Cell{Owner: p.ID}
	p.Territory[idx] = struct{}{}
}

func (w *World) cityCount(p *Player) int {
	n := 0
	for idx := range p.Territory {
		if w.cells[idx].City {
			n++
		}
	}
	return n
}

// Capacity is the growth ceiling for p's troop pool.
func (w *World) capacity(p *Player) int {
	return baseCapacity + p.TerritorySize()/2 + capacityPerCity*w.cityCount(p)
}

func (w *World) grow(p *Player) {
	if p.TerritorySize() == 0 && p.Troops == 0 {
		return
	}
	growth := max(1, p.Troops/3)
	p.Troops = min(p.Troops+growth, w.capacity(p))
}

// Player returns a copy of the player's public state.
func (w *World) Player(id PlayerID) (Player, bool) {
	w.Mu.RLock()
	defer w.Mu.RUnlock()

	p, ok := w.players[id]
	if !ok {
		return Player{}, false
	}
	cp := *p
	cp.Territory = make(map[int]struct{}, len(p.Territory))
	for idx := range p.Territory {
		cp.Territory[idx] = struct{}{}
	}
	return cp, true
}

// Cell returns the overlays at (x, y); ok is false out of bounds.
func (w *World) Cell(x, y int) (Cell, bool) {
	w.Mu.RLock()
	defer w.Mu.RUnlock()

	if !w.grid.InBounds(x, y) {
		return Cell{}, false
	}
	return w.cells[w.grid.Index(x, y)], true
}

func (w *World) Owner(x, y int) PlayerID {
	c, _ := w.Cell(x, y)
	return c.Owner
}

func (w *World) PlayerCount() int {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	return len(w.players)
}

func (w *World) TickCount() uint64 {
	w.Mu.RLock()
	defer w.Mu.RUnlock()
	return w.tickCount
}
