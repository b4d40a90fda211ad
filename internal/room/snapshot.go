package room

import (
	"slices"
	"time"

	"github.com/DoyleJ11/cookparty-backend/internal/engine"
	"github.com/DoyleJ11/cookparty-backend/pkg/types"
)

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// Snapshot converts the game state into its wire form.
func Snapshot(g *engine.Game) types.GameSnapshot {
	cat := g.Catalog()
	snap := types.GameSnapshot{
		Phase:               string(g.Phase),
		IsActive:            g.Phase == engine.PhaseActive,
		Level:               g.Level,
		Score:               g.Score,
		TotalScore:          g.TotalScore,
		TargetScore:         g.TargetScore,
		TimeLeft:            g.TimeLeft,
		PlayerOrderSIDs:     slices.Clone(g.Order),
		PlayersState:        make(map[string]types.PlayerView, len(g.Players)),
		AllPlayerObjectives: []types.ObjectiveView{},
	}
	if snap.PlayerOrderSIDs == nil {
		snap.PlayerOrderSIDs = []string{}
	}

	for _, sid := range g.Order {
		p := g.Players[sid]
		view := types.PlayerView{
			Name:    p.Name,
			Plate:   append([]string{}, p.Plate...),
			Held:    append([]string{}, p.Held...),
			Ability: string(p.Ability),
		}
		if p.Task != nil {
			view.AbilityProcessing = &types.TaskView{
				Input:   p.Task.Input,
				Output:  p.Task.Output,
				EndTime: unixSeconds(p.Task.EndsAt),
			}
		}
		snap.PlayersState[sid] = view

		if p.Objective == nil {
			continue
		}
		obj := types.ObjectiveView{
			PlayerSID:     sid,
			PlayerName:    p.Name,
			ObjectiveName: p.Objective.Recipe,
			Points:        p.Objective.Points,
		}
		for _, ing := range p.Objective.Ingredients {
			iv := types.IngredientView{Name: ing}
			if a, base, ok := cat.Derivation(ing); ok {
				iv.Hint = string(a)
				iv.Base = base
			}
			obj.Ingredients = append(obj.Ingredients, iv)
		}
		snap.AllPlayerObjectives = append(snap.AllPlayerObjectives, obj)
	}
	return snap
}
