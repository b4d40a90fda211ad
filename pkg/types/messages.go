// Package types holds the JSON payloads exchanged with game clients.
//
// Every websocket frame is an envelope {"event": name, "data": payload}.
//
// Client -> Server
//
//	create_room   CreateRoom
//	join_room     JoinRoom
//	start_game    StartGame
//	player_action PlayerAction  type: pass_item | trash_item | add_to_plate | submit_order
//	use_ability   UseAbility
//
// Server -> Client
//
//	connected         Connected
//	room_created      RoomJoined
//	join_success      RoomJoined
//	update_lobby      LobbyUpdate
//	new_host          NewHost
//	error_message     ErrorMessage
//	game_started      GameStarted
//	update_game_state GameSnapshot
//	update_neighbors  Neighbors
//	receive_item      ReceiveItem
//	item_dropped      ItemDropped   oldest item fell off a full conveyor
//	action_success    Feedback
//	action_fail       Feedback
//	clear_all_items   {}
//	level_complete    LevelComplete
//	level_retry       LevelRetry
//	start_next_level  GameSnapshot
//	game_over         GameOver
//	game_won          GameWon
package types

// ServerMessage is the envelope of every frame sent to a client.
type ServerMessage struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type CreateRoom struct {
	Name string `json:"name"`
}

type JoinRoom struct {
	Name   string `json:"name"`
	RoomID string `json:"room_id"`
}

type StartGame struct {
	RoomID string `json:"room_id"`
}

type Item struct {
	Type string `json:"type"` // "ingredient" | "plate"
	Name string `json:"name,omitempty"`
}

type PlayerAction struct {
	RoomID           string   `json:"room_id"`
	Type             string   `json:"type"`
	Direction        string   `json:"direction,omitempty"`
	Item             *Item    `json:"item,omitempty"`
	NewPlateContents []string `json:"new_plate_contents,omitempty"`
}

type UseAbility struct {
	RoomID   string `json:"room_id"`
	ItemName string `json:"item_name"`
}

type Connected struct {
	SID string `json:"sid"`
}

type RoomJoined struct {
	RoomID string `json:"room_id"`
	IsHost bool   `json:"is_host"`
}

type LobbyPlayer struct {
	SID  string `json:"sid"`
	Name string `json:"name"`
}

type LobbyUpdate struct {
	RoomID  string        `json:"room_id"`
	Players []LobbyPlayer `json:"players"`
	HostSID string        `json:"host_sid"`
}

type NewHost struct {
	HostSID string `json:"host_sid"`
}

type ErrorMessage struct {
	Message string `json:"message"`
}

type GameStarted struct {
	YourSID       string        `json:"your_sid"`
	YourName      string        `json:"your_name"`
	LeftNeighbor  string        `json:"left_neighbor"`
	RightNeighbor string        `json:"right_neighbor"`
	InitialState  *GameSnapshot `json:"initial_state"`
}

type Neighbors struct {
	LeftNeighbor  string `json:"left_neighbor"`
	RightNeighbor string `json:"right_neighbor"`
}

type ReceiveItem struct {
	Item Item `json:"item"`
}

// ItemDropped tells a client which item it lost to a full conveyor, so it
// can drop the same one from its own list.
type ItemDropped struct {
	Item Item `json:"item"`
}

// Feedback is sent as action_success or action_fail. Sound names a client
// cue ("click", "success", "error").
type Feedback struct {
	Message string `json:"message"`
	Sound   string `json:"sound,omitempty"`
}

type LevelComplete struct {
	Level      int `json:"level"`
	LevelScore int `json:"level_score"`
	TotalScore int `json:"total_score"`
}

type LevelRetry struct {
	Level       int `json:"level"`
	RetriesLeft int `json:"retries_left"`
}

type GameOver struct {
	TotalScore int    `json:"total_score"`
	Message    string `json:"message,omitempty"`
}

type GameWon struct {
	TotalScore int `json:"total_score"`
}
