package engine

import "slices"

// achievable reports whether every derived ingredient of r can be produced
// by an ability some seated player holds.
func (g *Game) achievable(r Recipe, abilities map[Ability]bool) bool {
	for _, ing := range r.Ingredients {
		if a, _, derived := g.catalog.Derivation(ing); derived && !abilities[a] {
			return false
		}
	}
	return true
}

func (g *Game) derivedCount(r Recipe) int {
	n := 0
	for _, ing := range r.Ingredients {
		if _, _, derived := g.catalog.Derivation(ing); derived {
			n++
		}
	}
	return n
}

// weight favours dishes with more derived ingredients as levels go up.
func (g *Game) weight(r Recipe) int {
	return 1 + (g.Level-1)*g.derivedCount(r)
}

func (g *Game) assignObjective(p *PlayerState) {
	abilities := g.activeAbilities()

	var candidates []Recipe
	total := 0
	for _, r := range g.catalog.Recipes() {
		if g.achievable(r, abilities) {
			candidates = append(candidates, r)
			total += g.weight(r)
		}
	}
	if len(candidates) == 0 {
		p.Objective = nil
		return
	}

	pick := g.rng.IntN(total)
	for _, r := range candidates {
		pick -= g.weight(r)
		if pick < 0 {
			p.Objective = newObjective(r)
			return
		}
	}
}

func newObjective(r Recipe) *Objective {
	return &Objective{
		Recipe:      r.Name,
		Ingredients: slices.Clone(r.Ingredients),
		Points:      r.Points,
		TimeBonus:   r.TimeBonus,
	}
}

// redrawUnachievable replaces objectives that can no longer be finished,
// e.g. after the only player holding a needed ability left.
func (g *Game) redrawUnachievable() {
	abilities := g.activeAbilities()
	for _, sid := range g.Order {
		p := g.Players[sid]
		if p.Objective == nil {
			g.assignObjective(p)
			continue
		}
		r, ok := g.catalog.Recipe(p.Objective.Recipe)
		if ok && g.achievable(r, abilities) {
			continue
		}
		g.assignObjective(p)
		p.Plate = []string{}
	}
}

// spawnPool lists the base ingredients the conveyor may deliver: the bases
// of everything currently wanted, or every base ingredient when nobody has
// an objective.
func (g *Game) spawnPool() []string {
	seen := map[string]bool{}
	var pool []string
	for _, sid := range g.Order {
		obj := g.Players[sid].Objective
		if obj == nil {
			continue
		}
		for _, ing := range obj.Ingredients {
			base := g.catalog.BaseOf(ing)
			if !seen[base] {
				seen[base] = true
				pool = append(pool, base)
			}
		}
	}
	if len(pool) == 0 {
		return g.catalog.BaseIngredients()
	}
	slices.Sort(pool)
	return pool
}
