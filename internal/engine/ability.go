package engine

import "time"

func (g *Game) useAbility(p *PlayerState, item string, now time.Time) ([]Event, error) {
	if p.Task != nil {
		return nil, ErrAbilityBusy
	}
	if p.Ability == "" {
		return nil, ErrNoAbility
	}
	spec, ok := g.catalog.Ability(p.Ability)
	if !ok {
		return nil, ErrNoAbility
	}
	output, ok := spec.Transforms[item]
	if !ok {
		return nil, ErrIncompatibleIngredient
	}
	if !removeOne(&p.Held, item) {
		return nil, ErrItemNotHeld
	}

	g.nextTaskID++
	p.Task = &AbilityTask{
		ID:        g.nextTaskID,
		Ability:   p.Ability,
		Input:     item,
		Output:    output,
		StartedAt: now,
		EndsAt:    now.Add(g.opts.AbilityDuration),
	}

	task := *p.Task
	return []Event{{Type: EvtAbilityStarted, SID: p.SID, Item: item, Verb: spec.Verb, Task: &task}}, nil
}

// completeAbility finishes the player's task if it is the one identified by
// taskID and its duration has elapsed. Stale, early or repeated completions
// are ignored, so a timer and the tick sweep can both try.
func (g *Game) completeAbility(sid string, taskID uint64, now time.Time) []Event {
	if g.Phase != PhaseActive {
		return nil
	}
	p, ok := g.Players[sid]
	if !ok || p.Task == nil || p.Task.ID != taskID || !p.Task.Done(now) {
		return nil
	}

	out := p.Task.Output
	p.Task = nil
	events := g.give(p, out)
	return append(events, Event{Type: EvtAbilityCompleted, SID: sid, Item: out})
}

func (g *Game) completeDueAbilities(now time.Time) []Event {
	var events []Event
	for _, sid := range g.Order {
		p := g.Players[sid]
		if p.Task == nil {
			continue
		}
		events = append(events, g.completeAbility(sid, p.Task.ID, now)...)
	}
	return events
}

func (g *Game) dealAbilities() {
	pool := make([]Ability, 0, max(len(g.Order), len(g.catalog.Abilities())))
	for _, a := range g.catalog.Abilities() {
		pool = append(pool, a.Name)
	}
	for len(pool) < len(g.Order) {
		pool = append(pool, "")
	}
	g.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })

	for i, sid := range g.Order {
		p := g.Players[sid]
		p.Ability = pool[i]
		p.Task = nil
	}
}

// activeAbilities is the set of abilities held by seated players.
func (g *Game) activeAbilities() map[Ability]bool {
	set := map[Ability]bool{}
	for _, sid := range g.Order {
		if a := g.Players[sid].Ability; a != "" {
			set[a] = true
		}
	}
	return set
}
