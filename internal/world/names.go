package world

import "strconv"

var BotNamePool = []string{
	"Ironclad",
	"Tidecaller",
	"Stormfront",
	"Earthshaper",
	"Nightwatch",
	"Dawnguard",
	"Dune Rider",
	"Greenwarden",
	"Highlander",
	"Corsair",
	"Skyreach",
	"Glasswright",
}

// botName draws an unused name from the pool, falling back to a numbered
// one once every name is taken.
func (w *World) botName() string {
	taken := make(map[string]bool, len(w.players))
	for _, p := range w.players {
		taken[p.Name] = true
	}

	free := make([]string, 0, len(BotNamePool))
	for _, n := range BotNamePool {
		if !taken[n+" Bot"] {
			free = append(free, n+" Bot")
		}
	}
	if len(free) == 0 {
		return "Bot " + strconv.FormatUint(w.nextSeq+1, 10)
	}
	return free[w.rng.Intn(len(free))]
}
