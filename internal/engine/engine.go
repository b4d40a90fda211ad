package engine

import (
	"errors"
	"math/rand/v2"
	"slices"
	"time"
)

var ErrGameNotActive = errors.New("game not active")
var ErrWrongPhase = errors.New("wrong phase")
var ErrNoPlayers = errors.New("no players")
var ErrUnknownPlayer = errors.New("unknown player")
var ErrUnsupportedCommand = errors.New("unsupported command")

var ErrInvalidDirection = errors.New("invalid direction")
var ErrCannotPassPlate = errors.New("plates cannot be passed")
var ErrItemNotHeld = errors.New("item not held")
var ErrNotInObjective = errors.New("ingredient not in objective")
var ErrAlreadySatisfied = errors.New("ingredient already satisfied")
var ErrPlateFull = errors.New("plate full")
var ErrInvalidPlate = errors.New("invalid plate contents")
var ErrRecipeMismatch = errors.New("recipe mismatch")

var ErrAbilityBusy = errors.New("ability busy")
var ErrNoAbility = errors.New("no ability")
var ErrIncompatibleIngredient = errors.New("incompatible ingredient")

const (
	PlateCapacity = 6
	HeldCapacity  = 30
	MaxTimeLeft   = 999
)

type Phase string

const (
	PhaseLobby         Phase = "lobby"
	PhaseActive        Phase = "active"
	PhaseLevelComplete Phase = "level_complete"
	PhaseGameOver      Phase = "game_over"
	PhaseGameWon       Phase = "game_won"
)

type Direction string

const (
	DirLeft  Direction = "left"
	DirRight Direction = "right"
)

const (
	ItemIngredient = "ingredient"
	ItemPlate      = "plate"
)

type Objective struct {
	Recipe      string
	Ingredients []string
	Points      int
	TimeBonus   int
}

type AbilityTask struct {
	ID        uint64
	Ability   Ability
	Input     string
	Output    string
	StartedAt time.Time
	EndsAt    time.Time
}

// Done reports whether the full processing duration has elapsed at now.
func (t AbilityTask) Done(now time.Time) bool { return now.After(t.EndsAt) }

type PlayerState struct {
	SID       string
	Name      string
	Plate     []string
	Held      []string
	Ability   Ability // "" when the player has none
	Task      *AbilityTask
	Objective *Objective
}

type State struct {
	Phase       Phase
	Level       int
	Score       int // this level
	TotalScore  int // completed levels
	TargetScore int
	TimeLeft    int
	RetriesLeft int
	Order       []string
	Players     map[string]*PlayerState
}

type Seat struct {
	SID  string
	Name string
}

type CommandType string

const (
	CmdStartGame       CommandType = "StartGame"
	CmdPassItem        CommandType = "PassItem"
	CmdTrashItem       CommandType = "TrashItem"
	CmdAddToPlate      CommandType = "AddToPlate"
	CmdSubmitOrder     CommandType = "SubmitOrder"
	CmdUseAbility      CommandType = "UseAbility"
	CmdCompleteAbility CommandType = "CompleteAbility"
	CmdTick            CommandType = "Tick"
	CmdAdvanceLevel    CommandType = "AdvanceLevel"
	CmdRemovePlayer    CommandType = "RemovePlayer"
)

/*
	CmdStartGame       -> EvtGameStarted
	CmdPassItem        -> EvtItemDropped? -> EvtItemReceived (recipient)
	CmdUseAbility      -> EvtAbilityStarted
	CmdCompleteAbility -> EvtAbilityCompleted, or nothing when stale
	CmdSubmitOrder     -> EvtOrderCompleted -> EvtLevelCompleted | EvtGameWon
	CmdTick            -> EvtAbilityCompleted* -> EvtItemReceived* -> EvtGameOver | EvtLevelRetry, EvtLevelStarted

	Any delivery to a full conveyor is preceded by EvtItemDropped for the
	item that fell off.
	CmdAdvanceLevel    -> EvtLevelStarted
	CmdRemovePlayer    -> EvtNeighborsChanged | EvtGameOver
*/

type Command struct {
	Type          CommandType
	SID           string
	Item          string
	ItemType      string
	Direction     Direction
	PlateContents []string
	TaskID        uint64
	Seats         []Seat
	Now           time.Time
}

type EventType string

const (
	EvtGameStarted      EventType = "GameStarted"
	EvtItemReceived     EventType = "ItemReceived"
	EvtItemDropped      EventType = "ItemDropped"
	EvtAbilityStarted   EventType = "AbilityStarted"
	EvtAbilityCompleted EventType = "AbilityCompleted"
	EvtOrderCompleted   EventType = "OrderCompleted"
	EvtLevelCompleted   EventType = "LevelCompleted"
	EvtLevelRetry       EventType = "LevelRetry"
	EvtLevelStarted     EventType = "LevelStarted"
	EvtNeighborsChanged EventType = "NeighborsChanged"
	EvtGameOver         EventType = "GameOver"
	EvtGameWon          EventType = "GameWon"
)

type Event struct {
	Type        EventType
	SID         string
	Item        string
	Recipe      string
	Points      int
	Level       int
	LevelScore  int
	TotalScore  int
	RetriesLeft int
	Message     string
	Verb        string
	Task        *AbilityTask
}

type Options struct {
	AbilityDuration time.Duration
	Retries         int
	Seed            uint64
}

// Game owns one room's authoritative state. It is not safe for concurrent
// use; the room actor is its only caller.
type Game struct {
	State

	catalog    *Catalog
	opts       Options
	rng        *rand.Rand
	nextTaskID uint64
	sinceSpawn int
}

func NewGame(catalog *Catalog, opts Options) *Game {
	if opts.AbilityDuration <= 0 {
		opts.AbilityDuration = 6 * time.Second
	}
	return &Game{
		State:   NewEmptyState(),
		catalog: catalog,
		opts:    opts,
		rng:     rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15)),
	}
}

func (g *Game) Catalog() *Catalog { return g.catalog }

func (g *Game) Apply(cmd Command) ([]Event, error) {
	switch cmd.Type {
	case CmdStartGame:
		return g.start(cmd.Seats)
	case CmdTick:
		return g.tick(cmd.Now), nil
	case CmdAdvanceLevel:
		return g.advanceLevel()
	case CmdRemovePlayer:
		return g.removePlayer(cmd.SID), nil
	case CmdCompleteAbility:
		return g.completeAbility(cmd.SID, cmd.TaskID, cmd.Now), nil
	}

	if g.Phase != PhaseActive {
		return nil, ErrGameNotActive
	}
	p, ok := g.Players[cmd.SID]
	if !ok {
		return nil, ErrUnknownPlayer
	}

	switch cmd.Type {
	case CmdPassItem:
		return g.passItem(p, cmd)
	case CmdTrashItem:
		// Trashing something the player does not hold is a no-op.
		removeOne(&p.Held, cmd.Item)
		return nil, nil
	case CmdAddToPlate:
		return nil, g.addToPlate(p, cmd)
	case CmdSubmitOrder:
		return g.submitOrder(p)
	case CmdUseAbility:
		return g.useAbility(p, cmd.Item, cmd.Now)
	default:
		return nil, ErrUnsupportedCommand
	}
}

func (g *Game) passItem(p *PlayerState, cmd Command) ([]Event, error) {
	if cmd.ItemType == ItemPlate {
		return nil, ErrCannotPassPlate
	}
	left, right, ok := Neighbors(g.Order, p.SID)
	if !ok {
		return nil, ErrUnknownPlayer
	}

	var target string
	switch cmd.Direction {
	case DirLeft:
		target = left
	case DirRight:
		target = right
	default:
		return nil, ErrInvalidDirection
	}

	if !removeOne(&p.Held, cmd.Item) {
		return nil, ErrItemNotHeld
	}
	events := g.give(g.Players[target], cmd.Item)
	return append(events, Event{Type: EvtItemReceived, SID: target, Item: cmd.Item}), nil
}

func (g *Game) addToPlate(p *PlayerState, cmd Command) error {
	item := cmd.Item
	if item == "" {
		// Clients may send the whole plate they expect; it must be the
		// current plate plus exactly one ingredient.
		n := len(p.Plate)
		if len(cmd.PlateContents) != n+1 || !slices.Equal(cmd.PlateContents[:n], p.Plate) {
			return ErrInvalidPlate
		}
		item = cmd.PlateContents[n]
	}

	if p.Objective == nil {
		return ErrNotInObjective
	}
	required := countOf(p.Objective.Ingredients, item)
	if required == 0 {
		return ErrNotInObjective
	}
	if countOf(p.Plate, item) >= required {
		return ErrAlreadySatisfied
	}
	if len(p.Plate) >= PlateCapacity {
		return ErrPlateFull
	}
	if !removeOne(&p.Held, item) {
		return ErrItemNotHeld
	}

	p.Plate = append(p.Plate, item)
	return nil
}

func (g *Game) submitOrder(p *PlayerState) ([]Event, error) {
	if p.Objective == nil || !sameMultiset(p.Plate, p.Objective.Ingredients) {
		return nil, ErrRecipeMismatch
	}

	done := *p.Objective
	g.Score += done.Points
	g.TimeLeft = min(g.TimeLeft+done.TimeBonus, MaxTimeLeft)
	p.Plate = []string{}
	g.assignObjective(p)

	events := []Event{{Type: EvtOrderCompleted, SID: p.SID, Recipe: done.Recipe, Points: done.Points}}

	if g.Score < g.TargetScore {
		return events, nil
	}

	g.TotalScore += g.Score
	if g.Level >= g.catalog.FinalLevel() {
		g.Phase = PhaseGameWon
		return append(events, Event{Type: EvtGameWon, TotalScore: g.TotalScore}), nil
	}

	g.Phase = PhaseLevelComplete
	return append(events, Event{
		Type:       EvtLevelCompleted,
		Level:      g.Level,
		LevelScore: g.Score,
		TotalScore: g.TotalScore,
	}), nil
}

// give appends item to the player's held items. When the conveyor is full
// the oldest item falls off and is reported as EvtItemDropped.
func (g *Game) give(p *PlayerState, item string) []Event {
	var events []Event
	if len(p.Held) >= HeldCapacity {
		events = append(events, Event{Type: EvtItemDropped, SID: p.SID, Item: p.Held[0]})
		p.Held = p.Held[1:]
	}
	p.Held = append(p.Held, item)
	return events
}
