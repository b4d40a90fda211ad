package room

import "github.com/DoyleJ11/cookparty-backend/internal/engine"

// withGame runs fn against the room's game on the room goroutine.
type withGame struct {
	fn   func(g *engine.Game)
	done chan struct{}
}

func (withGame) isRoomMsg() {}

func (m withGame) run(r *Room) {
	m.fn(r.game)
	close(m.done)
}
