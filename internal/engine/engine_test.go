package engine

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newStartedGame(t *testing.T, sids ...string) *Game {
	t.Helper()
	g := NewGame(DefaultCatalog(), Options{Seed: 42, AbilityDuration: 6 * time.Second})
	seats := make([]Seat, 0, len(sids))
	for _, sid := range sids {
		seats = append(seats, Seat{SID: sid, Name: "name-" + sid})
	}
	events, err := g.Apply(Command{Type: CmdStartGame, Seats: seats})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtGameStarted))
	return g
}

func setObjective(t *testing.T, g *Game, sid, recipe string) {
	t.Helper()
	r, ok := g.Catalog().Recipe(recipe)
	require.True(t, ok, "recipe %q", recipe)
	g.Players[sid].Objective = newObjective(r)
	g.Players[sid].Plate = []string{}
}

func TestAddToPlate_Rejections(t *testing.T) {
	cases := []struct {
		name    string
		plate   []string
		held    []string
		cmd     Command
		wantErr error
	}{
		{
			name:    "ingredient not in objective",
			held:    []string{"🍕"},
			cmd:     Command{Item: "🍕"},
			wantErr: ErrNotInObjective,
		},
		{
			name:    "already satisfied",
			plate:   []string{"🍅"},
			held:    []string{"🍅"},
			cmd:     Command{Item: "🍅"},
			wantErr: ErrAlreadySatisfied,
		},
		{
			name:    "not held",
			cmd:     Command{Item: "🍅"},
			wantErr: ErrItemNotHeld,
		},
		{
			name:    "plate contents skip an ingredient",
			plate:   []string{"🥬"},
			held:    []string{"🍅", "🥕"},
			cmd:     Command{PlateContents: []string{"🥬", "🍅", "🥕"}},
			wantErr: ErrInvalidPlate,
		},
		{
			name:    "plate contents rewrite history",
			plate:   []string{"🥬"},
			held:    []string{"🍅"},
			cmd:     Command{PlateContents: []string{"🥕", "🍅"}},
			wantErr: ErrInvalidPlate,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newStartedGame(t, "a")
			setObjective(t, g, "a", "สลัดผัก") // 🥬 🍅 🥕
			p := g.Players["a"]
			p.Plate = append([]string{}, tc.plate...)
			p.Held = append([]string{}, tc.held...)

			cmd := tc.cmd
			cmd.Type = CmdAddToPlate
			cmd.SID = "a"
			_, err := g.Apply(cmd)

			require.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.plate, nilIfEmpty(p.Plate), "plate must be unchanged")
			assert.Equal(t, tc.held, nilIfEmpty(p.Held), "held items must be unchanged")
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}

func TestAddToPlate_MovesHeldItemOntoPlate(t *testing.T) {
	g := newStartedGame(t, "a")
	setObjective(t, g, "a", "สลัดผัก")
	p := g.Players["a"]
	p.Held = []string{"🥕", "🍅"}

	_, err := g.Apply(Command{Type: CmdAddToPlate, SID: "a", Item: "🍅"})
	require.NoError(t, err)
	_, err = g.Apply(Command{Type: CmdAddToPlate, SID: "a", PlateContents: []string{"🍅", "🥕"}})
	require.NoError(t, err)

	assert.Equal(t, []string{"🍅", "🥕"}, p.Plate)
	assert.Empty(t, p.Held)
}

func TestAddToPlate_PlateFull(t *testing.T) {
	big := Recipe{Name: "banquet", Ingredients: []string{"a", "b", "c", "d", "e", "f", "g"}, Points: 10}
	cat := NewCatalog(nil, []Recipe{big}, []LevelSpec{{Number: 1, TargetScore: 100, TimeSec: 60, SpawnEvery: 5}})
	g := NewGame(cat, Options{Seed: 1})
	_, err := g.Apply(Command{Type: CmdStartGame, Seats: []Seat{{SID: "a", Name: "A"}}})
	require.NoError(t, err)

	p := g.Players["a"]
	p.Plate = []string{"a", "b", "c", "d", "e", "f"}
	p.Held = []string{"g"}

	_, err = g.Apply(Command{Type: CmdAddToPlate, SID: "a", Item: "g"})
	require.ErrorIs(t, err, ErrPlateFull)
	assert.Len(t, p.Plate, PlateCapacity)
}

// Any sequence of add_to_plate calls keeps the plate within capacity and
// never over-fills an ingredient.
func TestAddToPlate_InvariantsHoldForRandomSequences(t *testing.T) {
	cat := DefaultCatalog()
	var everything []string
	for _, r := range cat.Recipes() {
		everything = append(everything, r.Ingredients...)
	}
	everything = append(everything, "🍕", "🧀")

	rng := rand.New(rand.NewPCG(7, 11))
	for _, r := range cat.Recipes() {
		g := newStartedGame(t, "a")
		setObjective(t, g, "a", r.Name)
		p := g.Players["a"]

		for i := 0; i < 60; i++ {
			item := everything[rng.IntN(len(everything))]
			p.Held = append(p.Held, item)
			_, _ = g.Apply(Command{Type: CmdAddToPlate, SID: "a", Item: item})

			require.LessOrEqual(t, len(p.Plate), PlateCapacity)
			for _, ing := range p.Plate {
				require.LessOrEqual(t, countOf(p.Plate, ing), countOf(r.Ingredients, ing),
					"recipe %s plate %v", r.Name, p.Plate)
			}
		}
	}
}

func TestSubmitOrder_MismatchIsRepeatable(t *testing.T) {
	g := newStartedGame(t, "a")
	setObjective(t, g, "a", "สลัดผัก")
	p := g.Players["a"]
	p.Plate = []string{"🥬", "🍅"}
	score := g.Score

	for i := 0; i < 2; i++ {
		events, err := g.Apply(Command{Type: CmdSubmitOrder, SID: "a"})
		require.ErrorIs(t, err, ErrRecipeMismatch)
		assert.Empty(t, events)
		assert.Equal(t, []string{"🥬", "🍅"}, p.Plate)
		assert.Equal(t, score, g.Score)
	}
}

func TestSubmitOrder_AwardsPointsAndRedraws(t *testing.T) {
	g := newStartedGame(t, "a", "b")
	setObjective(t, g, "a", "สลัดผัก")
	p := g.Players["a"]
	p.Plate = []string{"🥕", "🥬", "🍅"} // order does not matter
	g.TimeLeft = 50

	events, err := g.Apply(Command{Type: CmdSubmitOrder, SID: "a"})
	require.NoError(t, err)

	done, ok := FindEvent(events, EvtOrderCompleted)
	require.True(t, ok)
	assert.Equal(t, "สลัดผัก", done.Recipe)
	assert.Equal(t, 50, done.Points)
	assert.Equal(t, 50, g.Score)
	assert.Equal(t, 60, g.TimeLeft)
	assert.Empty(t, p.Plate)
	assert.NotNil(t, p.Objective)
	assert.Equal(t, PhaseActive, g.Phase)
}

func TestSubmitOrder_TimeBonusIsCapped(t *testing.T) {
	g := newStartedGame(t, "a")
	setObjective(t, g, "a", "ไอศกรีม")
	g.Players["a"].Plate = []string{"🍨", "🍒"}
	g.TimeLeft = MaxTimeLeft - 2

	_, err := g.Apply(Command{Type: CmdSubmitOrder, SID: "a"})
	require.NoError(t, err)
	assert.Equal(t, MaxTimeLeft, g.TimeLeft)
}

func TestSubmitOrder_ReachingTargetCompletesLevel(t *testing.T) {
	g := newStartedGame(t, "a")
	setObjective(t, g, "a", "สเต็กแอนด์ฟรายส์")
	g.Players["a"].Plate = []string{"🥓", "🥕", "🍄"}
	g.Score = 100

	events, err := g.Apply(Command{Type: CmdSubmitOrder, SID: "a"})
	require.NoError(t, err)

	evt, ok := FindEvent(events, EvtLevelCompleted)
	require.True(t, ok)
	assert.Equal(t, 1, evt.Level)
	assert.Equal(t, 310, evt.LevelScore)
	assert.Equal(t, 310, evt.TotalScore)
	assert.Equal(t, PhaseLevelComplete, g.Phase)

	_, err = g.Apply(Command{Type: CmdSubmitOrder, SID: "a"})
	require.ErrorIs(t, err, ErrGameNotActive)

	events, err = g.Apply(Command{Type: CmdAdvanceLevel})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtLevelStarted))
	assert.Equal(t, 2, g.Level)
	assert.Equal(t, 0, g.Score)
	assert.Equal(t, 310, g.TotalScore)
	assert.Equal(t, 475, g.TargetScore)
	assert.Equal(t, 110, g.TimeLeft)
	assert.Empty(t, g.Players["a"].Plate)
	assert.Empty(t, g.Players["a"].Held)
}

func TestSubmitOrder_FinalLevelWinsGame(t *testing.T) {
	g := newStartedGame(t, "a")
	g.Level = g.Catalog().FinalLevel()
	g.TargetScore = 100
	g.TotalScore = 800
	setObjective(t, g, "a", "ซีฟู้ดต้ม")
	g.Players["a"].Plate = []string{"🌶️", "🦞", "🍄"}

	events, err := g.Apply(Command{Type: CmdSubmitOrder, SID: "a"})
	require.NoError(t, err)

	won, ok := FindEvent(events, EvtGameWon)
	require.True(t, ok)
	assert.Equal(t, 1000, won.TotalScore)
	assert.Equal(t, PhaseGameWon, g.Phase)
}

func TestActionsOutsideActiveLevelAreRejected(t *testing.T) {
	g := NewGame(DefaultCatalog(), Options{Seed: 3})
	_, err := g.Apply(Command{Type: CmdSubmitOrder, SID: "a"})
	require.ErrorIs(t, err, ErrGameNotActive)

	g = newStartedGame(t, "a")
	_, err = g.Apply(Command{Type: CmdSubmitOrder, SID: "ghost"})
	require.ErrorIs(t, err, ErrUnknownPlayer)

	_, err = g.Apply(Command{Type: "Dance", SID: "a"})
	require.ErrorIs(t, err, ErrUnsupportedCommand)
}

func TestStart_RejectsEmptyAndRunningGames(t *testing.T) {
	g := NewGame(DefaultCatalog(), Options{Seed: 3})
	_, err := g.Apply(Command{Type: CmdStartGame})
	require.ErrorIs(t, err, ErrNoPlayers)

	g = newStartedGame(t, "a")
	_, err = g.Apply(Command{Type: CmdStartGame, Seats: []Seat{{SID: "a"}}})
	require.ErrorIs(t, err, ErrWrongPhase)
}

func TestStart_DealsEachAbilityAtMostOnce(t *testing.T) {
	for _, n := range []int{1, 2, 3, 5, 8} {
		sids := make([]string, n)
		for i := range sids {
			sids[i] = string(rune('a' + i))
		}
		g := newStartedGame(t, sids...)

		seen := map[Ability]int{}
		none := 0
		for _, sid := range g.Order {
			if a := g.Players[sid].Ability; a == "" {
				none++
			} else {
				seen[a]++
			}
		}
		for a, c := range seen {
			assert.Equal(t, 1, c, "ability %s dealt %d times with %d players", a, c, n)
		}
		assert.Equal(t, min(n, 3), len(seen), "players=%d", n)
		assert.Equal(t, max(0, n-3), none, "players=%d", n)
	}
}

func TestTick_TimeRunsOutEndsGame(t *testing.T) {
	g := newStartedGame(t, "a")
	g.Score = 120
	g.TotalScore = 0
	g.TimeLeft = 1

	events, err := g.Apply(Command{Type: CmdTick, Now: t0})
	require.NoError(t, err)

	over, ok := FindEvent(events, EvtGameOver)
	require.True(t, ok)
	assert.Equal(t, 120, over.TotalScore)
	assert.Equal(t, MsgTimeUp, over.Message)
	assert.Equal(t, PhaseGameOver, g.Phase)

	events, err = g.Apply(Command{Type: CmdTick, Now: t0.Add(time.Second)})
	require.NoError(t, err)
	assert.Empty(t, events, "ticks after game over are ignored")
}

func TestTick_RetryBudgetRestartsLevel(t *testing.T) {
	g := NewGame(DefaultCatalog(), Options{Seed: 9, Retries: 1})
	_, err := g.Apply(Command{Type: CmdStartGame, Seats: []Seat{{SID: "a"}}})
	require.NoError(t, err)
	g.Score = 90
	g.TimeLeft = 1

	events, err := g.Apply(Command{Type: CmdTick, Now: t0})
	require.NoError(t, err)
	retry, ok := FindEvent(events, EvtLevelRetry)
	require.True(t, ok)
	assert.Equal(t, 1, retry.Level)
	assert.Equal(t, 0, retry.RetriesLeft)
	assert.Equal(t, PhaseActive, g.Phase)
	assert.Equal(t, 0, g.Score)
	assert.Equal(t, 120, g.TimeLeft)

	g.TimeLeft = 1
	events, err = g.Apply(Command{Type: CmdTick, Now: t0})
	require.NoError(t, err)
	assert.True(t, ContainsEvent(events, EvtGameOver))
}

func TestTick_ConveyorDeliversWantedBases(t *testing.T) {
	g := newStartedGame(t, "a", "b")
	setObjective(t, g, "a", "อาหารเช้าชุดใหญ่") // 🍳 🍞 🍄
	setObjective(t, g, "b", "ไอศกรีม")          // 🍨 🍒
	allowed := map[string]bool{"🥚": true, "🍞": true, "🍄": true, "🍨": true, "🍒": true}

	var received []Event
	spawnEvery := 4
	for i := 0; i < spawnEvery; i++ {
		events, err := g.Apply(Command{Type: CmdTick, Now: t0.Add(time.Duration(i) * time.Second)})
		require.NoError(t, err)
		for _, e := range events {
			if e.Type == EvtItemReceived {
				received = append(received, e)
			}
		}
	}

	require.Len(t, received, 2)
	for _, e := range received {
		assert.True(t, allowed[e.Item], "unexpected conveyor item %s", e.Item)
		assert.Equal(t, []string{e.Item}, g.Players[e.SID].Held)
	}
	assert.Equal(t, 120-spawnEvery, g.TimeLeft)
}

func TestHeldItemsEvictOldestWhenFull(t *testing.T) {
	g := newStartedGame(t, "a")
	p := g.Players["a"]
	p.Held = nil
	for i := 0; i < HeldCapacity-1; i++ {
		assert.Empty(t, g.give(p, "🍅"))
	}
	assert.Empty(t, g.give(p, "🍞"), "the last free slot drops nothing")
	p.Held[0] = "🧀"

	events := g.give(p, "🥚")

	require.Len(t, events, 1)
	assert.Equal(t, Event{Type: EvtItemDropped, SID: "a", Item: "🧀"}, events[0])
	assert.Len(t, p.Held, HeldCapacity)
	assert.NotContains(t, p.Held, "🧀")
	assert.Equal(t, "🥚", p.Held[len(p.Held)-1])
}

func TestPassItem_ToFullConveyorReportsDrop(t *testing.T) {
	g := newStartedGame(t, "a", "b")
	g.Players["a"].Held = []string{"🥚"}
	full := make([]string, HeldCapacity)
	for i := range full {
		full[i] = "🍅"
	}
	full[0] = "🧀"
	g.Players["b"].Held = full

	events, err := g.Apply(Command{Type: CmdPassItem, SID: "a", Item: "🥚", Direction: DirRight})
	require.NoError(t, err)

	require.Len(t, events, 2)
	assert.Equal(t, Event{Type: EvtItemDropped, SID: "b", Item: "🧀"}, events[0])
	assert.Equal(t, Event{Type: EvtItemReceived, SID: "b", Item: "🥚"}, events[1])
	assert.Len(t, g.Players["b"].Held, HeldCapacity)
}

func TestPassItem(t *testing.T) {
	cases := []struct {
		name       string
		cmd        Command
		wantErr    error
		wantTarget string
	}{
		{name: "left", cmd: Command{Direction: DirLeft, Item: "🍅"}, wantTarget: "c"},
		{name: "right", cmd: Command{Direction: DirRight, Item: "🍅"}, wantTarget: "b"},
		{name: "bad direction", cmd: Command{Direction: "up", Item: "🍅"}, wantErr: ErrInvalidDirection},
		{name: "plate", cmd: Command{Direction: DirLeft, ItemType: ItemPlate}, wantErr: ErrCannotPassPlate},
		{name: "not held", cmd: Command{Direction: DirLeft, Item: "🥚"}, wantErr: ErrItemNotHeld},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := newStartedGame(t, "a", "b", "c")
			g.Order = []string{"a", "b", "c"}
			g.Players["a"].Held = []string{"🍅"}

			cmd := tc.cmd
			cmd.Type = CmdPassItem
			cmd.SID = "a"
			events, err := g.Apply(cmd)

			if tc.wantErr != nil {
				require.ErrorIs(t, err, tc.wantErr)
				assert.Equal(t, []string{"🍅"}, g.Players["a"].Held)
				return
			}
			require.NoError(t, err)
			require.Len(t, events, 1)
			assert.Equal(t, EvtItemReceived, events[0].Type)
			assert.Equal(t, tc.wantTarget, events[0].SID)
			assert.Empty(t, g.Players["a"].Held)
			assert.Equal(t, []string{"🍅"}, g.Players[tc.wantTarget].Held)
		})
	}
}

func TestPassItem_LonePlayerPassesToSelf(t *testing.T) {
	g := newStartedGame(t, "solo")
	g.Players["solo"].Held = []string{"🍞"}

	events, err := g.Apply(Command{Type: CmdPassItem, SID: "solo", Direction: DirRight, Item: "🍞"})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "solo", events[0].SID)
	assert.Equal(t, []string{"🍞"}, g.Players["solo"].Held)
}

func TestTrashItem(t *testing.T) {
	g := newStartedGame(t, "a")
	g.Players["a"].Held = []string{"🍅", "🥚"}

	_, err := g.Apply(Command{Type: CmdTrashItem, SID: "a", Item: "🍅"})
	require.NoError(t, err)
	_, err = g.Apply(Command{Type: CmdTrashItem, SID: "a"})
	require.NoError(t, err)
	_, err = g.Apply(Command{Type: CmdTrashItem, SID: "a", Item: "🍕"})
	require.NoError(t, err)

	assert.Equal(t, []string{"🥚"}, g.Players["a"].Held)
}

func TestRemovePlayer(t *testing.T) {
	g := newStartedGame(t, "a", "b")
	g.Players["a"].Ability = AbilityPan
	g.Players["b"].Ability = ""
	setObjective(t, g, "b", "อาหารเช้าชุดใหญ่") // needs 🍳 from the pan
	g.Players["b"].Plate = []string{"🍞"}

	events, err := g.Apply(Command{Type: CmdRemovePlayer, SID: "a"})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtNeighborsChanged))
	assert.Equal(t, []string{"b"}, g.Order)

	obj := g.Players["b"].Objective
	require.NotNil(t, obj)
	for _, ing := range obj.Ingredients {
		_, _, derived := g.Catalog().Derivation(ing)
		assert.False(t, derived, "objective %s is no longer achievable", obj.Recipe)
	}
	assert.Empty(t, g.Players["b"].Plate)

	g.Score = 40
	events, err = g.Apply(Command{Type: CmdRemovePlayer, SID: "b"})
	require.NoError(t, err)
	over, ok := FindEvent(events, EvtGameOver)
	require.True(t, ok)
	assert.Equal(t, 40, over.TotalScore)
	assert.Equal(t, MsgNotEnoughPlayers, over.Message)

	events, err = g.Apply(Command{Type: CmdRemovePlayer, SID: "b"})
	require.NoError(t, err)
	assert.Empty(t, events)
}

// Room "ABCD" walk-through: the pan turns an egg into a fried egg that
// completes a breakfast.
func TestScenario_FriedEggBreakfast(t *testing.T) {
	g := newStartedGame(t, "A", "B", "C")
	a := g.Players["A"]
	for _, sid := range g.Order {
		if g.Players[sid].Ability == AbilityPan {
			g.Players[sid].Ability = a.Ability
		}
	}
	a.Ability = AbilityPan
	setObjective(t, g, "A", "อาหารเช้าชุดใหญ่")
	a.Held = []string{"🥚", "🍞", "🍄"}

	events, err := g.Apply(Command{Type: CmdUseAbility, SID: "A", Item: "🥚", Now: t0})
	require.NoError(t, err)
	started, ok := FindEvent(events, EvtAbilityStarted)
	require.True(t, ok)
	assert.Equal(t, "🍳", started.Task.Output)

	_, err = g.Apply(Command{Type: CmdAddToPlate, SID: "A", Item: "🍳"})
	require.ErrorIs(t, err, ErrItemNotHeld, "output is not available before the duration")

	events, err = g.Apply(Command{Type: CmdCompleteAbility, SID: "A", TaskID: started.Task.ID, Now: t0.Add(6*time.Second + time.Millisecond)})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtAbilityCompleted))

	for _, ing := range []string{"🍳", "🍞", "🍄"} {
		_, err = g.Apply(Command{Type: CmdAddToPlate, SID: "A", Item: ing})
		require.NoError(t, err, ing)
	}

	before := a.Objective
	events, err = g.Apply(Command{Type: CmdSubmitOrder, SID: "A"})
	require.NoError(t, err)
	require.True(t, ContainsEvent(events, EvtOrderCompleted))
	assert.Equal(t, 170, g.Score)
	assert.NotSame(t, before, a.Objective)
	assert.NotNil(t, a.Objective)
}
