package world

import "sort"

// Snapshot is the client-safe view of the world at one point in time. It
// shares no memory with World.
type Snapshot struct {
	Tick       uint64                  `json:"tick"`
	Width      int                     `json:"width"`
	Height     int                     `json:"height"`
	Cells      []CellView              `json:"cells"`
	Players    map[PlayerID]PlayerView `json:"players"`
	Scoreboard []ScoreEntry            `json:"scoreboard"`
}

type CellView struct {
	Land  bool     `json:"land"`
	Owner PlayerID `json:"owner,omitempty"`
	Port  bool     `json:"port,omitempty"`
	City  bool     `json:"city,omitempty"`
}

type PlayerView struct {
	ID     PlayerID `json:"id"`
	Name   string   `json:"name"`
	Color  string   `json:"color"`
	Troops int      `json:"troops"`
	Bot    bool     `json:"bot"`
}

type ScoreEntry struct {
	ID        PlayerID `json:"id"`
	Name      string   `json:"name"`
	Territory int      `json:"territory"`
	Troops    int      `json:"troops"`
	Cities    int      `json:"cities"`
	Ports     int      `json:"ports"`
	Bot       bool     `json:"bot"`
}

// Snapshot copies the world under the read lock.
func (w *World) Snapshot() Snapshot {
	w.Mu.RLock()
	defer w.Mu.RUnlock()

	s := Snapshot{
		Tick:    w.tickCount,
		Width:   w.grid.width,
		Height:  w.grid.height,
		Cells:   make([]CellView, len(w.cells)),
		Players: make(map[PlayerID]PlayerView, len(w.players)),
	}

	for i, c := range w.cells {
		s.Cells[i] = CellView{Land: w.grid.land[i], Owner: c.Owner, Port: c.Port, City: c.City}
	}

	roster := w.roster()
	s.Scoreboard = make([]ScoreEntry, 0, len(roster))
	for _, p := range roster {
		s.Players[p.ID] = PlayerView{ID: p.ID, Name: p.Name, Color: p.Color, Troops: p.Troops, Bot: p.Bot}

		e := ScoreEntry{ID: p.ID, Name: p.Name, Territory: p.TerritorySize(), Troops: p.Troops, Bot: p.Bot}
		for idx := range p.Territory {
			if w.cells[idx].City {
				e.Cities++
			}
			if w.cells[idx].Port {
				e.Ports++
			}
		}
		s.Scoreboard = append(s.Scoreboard, e)
	}

	// roster is already in join order, stable sort keeps it as the last key
	sort.SliceStable(s.Scoreboard, func(i, j int) bool {
		a, b := s.Scoreboard[i], s.Scoreboard[j]
		if a.Territory != b.Territory {
			return a.Territory > b.Territory
		}
		return a.Troops > b.Troops
	})

	return s
}
