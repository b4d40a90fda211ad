package room

import (
	"errors"

	"github.com/DoyleJ11/cookparty-backend/internal/engine"
)

var (
	ErrRoomFull       = errors.New("room full")
	ErrGameInProgress = errors.New("game in progress")
	ErrNotHost        = errors.New("not host")
	ErrRoomClosed     = errors.New("room closed")
)

// Message turns a room or engine error into the text shown to players.
func Message(err error) string {
	switch {
	case errors.Is(err, ErrRoomFull):
		return "Room is full!"
	case errors.Is(err, ErrGameInProgress):
		return "The game in this room has already started!"
	case errors.Is(err, ErrNotHost):
		return "Only the host can start the game."
	case errors.Is(err, ErrRoomClosed):
		return "Room not found!"

	case errors.Is(err, engine.ErrAbilityBusy):
		return "Your station is busy right now."
	case errors.Is(err, engine.ErrNoAbility):
		return "You have no ability to use."
	case errors.Is(err, engine.ErrIncompatibleIngredient):
		return "That ingredient doesn't work with your ability."
	case errors.Is(err, engine.ErrInvalidDirection):
		return "You can only pass left or right."
	case errors.Is(err, engine.ErrCannotPassPlate):
		return "Plates can't be passed!"
	case errors.Is(err, engine.ErrItemNotHeld):
		return "You don't have that item."
	case errors.Is(err, engine.ErrNotInObjective):
		return "That ingredient isn't part of your dish!"
	case errors.Is(err, engine.ErrAlreadySatisfied):
		return "You already have enough of that ingredient."
	case errors.Is(err, engine.ErrPlateFull):
		return "Your plate is full!"
	case errors.Is(err, engine.ErrInvalidPlate):
		return "Your plate is out of sync, try again."
	case errors.Is(err, engine.ErrRecipeMismatch):
		return "Wrong recipe! Try again."
	case errors.Is(err, engine.ErrGameNotActive), errors.Is(err, engine.ErrWrongPhase):
		return "The game is not running."
	case errors.Is(err, engine.ErrUnknownPlayer):
		return "You are not in this game."
	default:
		return "Something went wrong."
	}
}
