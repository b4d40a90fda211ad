package engine

import (
	"slices"
	"time"
)

const (
	MsgTimeUp           = "Time's up!"
	MsgNotEnoughPlayers = "Not enough players to continue, game over."
)

func (g *Game) start(seats []Seat) ([]Event, error) {
	if g.IsPlaying() {
		return nil, ErrWrongPhase
	}
	if len(seats) == 0 {
		return nil, ErrNoPlayers
	}

	g.State = NewEmptyState()
	for _, s := range seats {
		g.Order = append(g.Order, s.SID)
		g.Players[s.SID] = &PlayerState{SID: s.SID, Name: s.Name}
	}
	g.rng.Shuffle(len(g.Order), func(i, j int) { g.Order[i], g.Order[j] = g.Order[j], g.Order[i] })
	g.RetriesLeft = g.opts.Retries

	g.setupLevel(1)
	return []Event{{Type: EvtGameStarted, Level: 1}}, nil
}

// setupLevel resets the per-level state for level n and deals abilities and
// objectives afresh.
func (g *Game) setupLevel(n int) {
	spec, _ := g.catalog.Level(n)

	g.Phase = PhaseActive
	g.Level = n
	g.Score = 0
	g.TargetScore = spec.TargetScore
	g.TimeLeft = spec.TimeSec
	g.sinceSpawn = 0

	for _, sid := range g.Order {
		p := g.Players[sid]
		p.Plate = []string{}
		p.Held = []string{}
	}
	g.dealAbilities()
	for _, sid := range g.Order {
		g.assignObjective(g.Players[sid])
	}
}

func (g *Game) tick(now time.Time) []Event {
	if g.Phase != PhaseActive {
		return nil
	}

	g.TimeLeft--
	events := g.completeDueAbilities(now)

	spec, _ := g.catalog.Level(g.Level)
	g.sinceSpawn++
	if spec.SpawnEvery > 0 && g.sinceSpawn >= spec.SpawnEvery {
		g.sinceSpawn = 0
		pool := g.spawnPool()
		for _, sid := range g.Order {
			item := pool[g.rng.IntN(len(pool))]
			events = append(events, g.give(g.Players[sid], item)...)
			events = append(events, Event{Type: EvtItemReceived, SID: sid, Item: item})
		}
	}

	if g.TimeLeft > 0 {
		return events
	}

	if g.RetriesLeft > 0 {
		g.RetriesLeft--
		g.setupLevel(g.Level)
		return append(events,
			Event{Type: EvtLevelRetry, Level: g.Level, RetriesLeft: g.RetriesLeft},
			Event{Type: EvtLevelStarted, Level: g.Level},
		)
	}

	g.Phase = PhaseGameOver
	return append(events, Event{Type: EvtGameOver, TotalScore: g.TotalScore + g.Score, Message: MsgTimeUp})
}

func (g *Game) advanceLevel() ([]Event, error) {
	if g.Phase != PhaseLevelComplete {
		return nil, ErrWrongPhase
	}
	g.setupLevel(g.Level + 1)
	return []Event{{Type: EvtLevelStarted, Level: g.Level}}, nil
}

// removePlayer unseats sid. Their plate, held items and any in-flight
// ability task are abandoned.
func (g *Game) removePlayer(sid string) []Event {
	if _, ok := g.Players[sid]; !ok {
		return nil
	}
	delete(g.Players, sid)
	g.Order = slices.DeleteFunc(g.Order, func(id string) bool { return id == sid })

	if !g.IsPlaying() {
		return nil
	}

	if len(g.Order) == 0 {
		total := g.TotalScore
		if g.Phase == PhaseActive {
			total += g.Score
		}
		g.Phase = PhaseGameOver
		return []Event{{Type: EvtGameOver, TotalScore: total, Message: MsgNotEnoughPlayers}}
	}

	g.redrawUnachievable()
	return []Event{{Type: EvtNeighborsChanged}}
}
