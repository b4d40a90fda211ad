package types

// GameSnapshot is the full room state broadcast after every change.
type GameSnapshot struct {
	Phase               string                `json:"phase"`
	IsActive            bool                  `json:"is_active"`
	Level               int                   `json:"level"`
	Score               int                   `json:"score"`
	TotalScore          int                   `json:"total_score"`
	TargetScore         int                   `json:"target_score"`
	TimeLeft            int                   `json:"time_left"`
	PlayerOrderSIDs     []string              `json:"player_order_sids"`
	PlayersState        map[string]PlayerView `json:"players_state"`
	AllPlayerObjectives []ObjectiveView       `json:"all_player_objectives"`
}

type PlayerView struct {
	Name              string    `json:"name"`
	Plate             []string  `json:"plate"`
	Held              []string  `json:"held"`
	Ability           string    `json:"ability,omitempty"`
	AbilityProcessing *TaskView `json:"ability_processing"`
}

// TaskView describes an in-flight ability task. EndTime is unix seconds;
// clients derive their countdown from it.
type TaskView struct {
	Input   string  `json:"input"`
	Output  string  `json:"output"`
	EndTime float64 `json:"end_time"`
}

type ObjectiveView struct {
	PlayerSID     string           `json:"player_sid"`
	PlayerName    string           `json:"player_name"`
	ObjectiveName string           `json:"objective_name"`
	Ingredients   []IngredientView `json:"ingredients"`
	Points        int              `json:"points"`
}

// IngredientView carries, for derived ingredients, the ability (Hint) and
// base ingredient that produce it.
type IngredientView struct {
	Name string `json:"name"`
	Hint string `json:"hint,omitempty"`
	Base string `json:"base,omitempty"`
}
