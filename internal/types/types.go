package types

import "encoding/json"

// Client -> Server events
const (
	EvtCreateRoom   = "create_room"
	EvtJoinRoom     = "join_room"
	EvtStartGame    = "start_game"
	EvtPlayerAction = "player_action"
	EvtUseAbility   = "use_ability"
)

// Server -> Client events
const (
	EvtConnected       = "connected"
	EvtRoomCreated     = "room_created"
	EvtJoinSuccess     = "join_success"
	EvtUpdateLobby     = "update_lobby"
	EvtNewHost         = "new_host"
	EvtErrorMessage    = "error_message"
	EvtGameStarted     = "game_started"
	EvtUpdateGameState = "update_game_state"
	EvtUpdateNeighbors = "update_neighbors"
	EvtReceiveItem     = "receive_item"
	EvtItemDropped     = "item_dropped"
	EvtActionSuccess   = "action_success"
	EvtActionFail      = "action_fail"
	EvtClearAllItems   = "clear_all_items"
	EvtLevelComplete   = "level_complete"
	EvtLevelRetry      = "level_retry"
	EvtStartNextLevel  = "start_next_level"
	EvtGameOver        = "game_over"
	EvtGameWon         = "game_won"
)

// Player action types carried in player_action.type
const (
	ActionPassItem    = "pass_item"
	ActionTrashItem   = "trash_item"
	ActionAddToPlate  = "add_to_plate"
	ActionSubmitOrder = "submit_order"
)

type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}
