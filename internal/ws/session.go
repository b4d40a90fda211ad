package ws

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/cookparty-backend/internal/engine"
	"github.com/DoyleJ11/cookparty-backend/internal/hub"
	"github.com/DoyleJ11/cookparty-backend/internal/room"
	itypes "github.com/DoyleJ11/cookparty-backend/internal/types"
	"github.com/DoyleJ11/cookparty-backend/pkg/types"
)

const (
	msgBadJSON       = "Malformed message."
	msgUnknownEvent  = "Unknown event."
	msgUnknownAction = "Unknown action."
	msgNameRequired  = "Please enter your name!"
	msgCodeRequired  = "Please enter your name and a room code!"
	msgRoomNotFound  = "Room not found!"
	msgNotInRoom     = "You are not in a room."
	msgAlreadyInRoom = "You are already in a room."
	msgRateLimited   = "Too many messages, slow down."
	msgServerBusy    = "Server is busy, try again."
)

// session is the per-connection context: who the client is and which room
// it sits in. Only the read loop touches it.
type session struct {
	sid     string
	conn    *websocket.Conn
	hub     *hub.Hub
	room    *room.Room
	limiter *rate.Limiter
	opts    Options
	log     *zap.Logger
}

func newSession(conn *websocket.Conn, h *hub.Hub, opts Options) *session {
	sid := uuid.NewString()
	return &session{
		sid:     sid,
		conn:    conn,
		hub:     h,
		limiter: rate.NewLimiter(opts.RateLimit, opts.RateBurst),
		opts:    opts,
		log:     opts.Logger.With(zap.String("sid", sid)),
	}
}

func (s *session) run(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer s.leave()

	go keepalive(ctx, s.conn, s.opts.PingInterval)

	s.log.Debug("connected")
	s.write(ctx, itypes.EvtConnected, types.Connected{SID: s.sid})

	for {
		_, data, err := s.conn.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				s.log.Debug("disconnected")
			default:
				s.log.Debug("read failed", zap.Error(err))
			}
			return
		}

		if !s.limiter.Allow() {
			s.fail(ctx, msgRateLimited)
			continue
		}

		var cm itypes.ClientMessage
		if err := json.Unmarshal(data, &cm); err != nil {
			s.fail(ctx, msgBadJSON)
			continue
		}
		s.handle(ctx, cm)
	}
}

func (s *session) handle(ctx context.Context, cm itypes.ClientMessage) {
	switch cm.Event {
	case itypes.EvtCreateRoom:
		var p types.CreateRoom
		if s.decode(ctx, cm.Data, &p) {
			s.createRoom(ctx, p)
		}

	case itypes.EvtJoinRoom:
		var p types.JoinRoom
		if s.decode(ctx, cm.Data, &p) {
			s.joinRoom(ctx, p)
		}

	case itypes.EvtStartGame:
		s.toRoom(ctx, room.StartGame{SID: s.sid})

	case itypes.EvtPlayerAction:
		var p types.PlayerAction
		if !s.decode(ctx, cm.Data, &p) {
			return
		}
		cmd, ok := toEngineCommand(p)
		if !ok {
			s.fail(ctx, msgUnknownAction)
			return
		}
		cmd.SID = s.sid
		s.toRoom(ctx, room.Action{Cmd: cmd})

	case itypes.EvtUseAbility:
		var p types.UseAbility
		if s.decode(ctx, cm.Data, &p) {
			s.toRoom(ctx, room.Action{Cmd: engine.Command{Type: engine.CmdUseAbility, SID: s.sid, Item: p.ItemName}})
		}

	default:
		s.fail(ctx, msgUnknownEvent)
	}
}

func (s *session) createRoom(ctx context.Context, p types.CreateRoom) {
	name := strings.TrimSpace(p.Name)
	if name == "" {
		s.fail(ctx, msgNameRequired)
		return
	}
	if s.room != nil {
		s.fail(ctx, msgAlreadyInRoom)
		return
	}

	r, err := s.hub.Create(ctx)
	if err != nil {
		s.log.Error("create room", zap.Error(err))
		s.fail(ctx, msgServerBusy)
		return
	}
	if s.enter(ctx, r, name) {
		return
	}
	// Nobody else knows the code yet; stop the room so the hub forgets it.
	stop, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := r.Send(stop, room.Shutdown{}); err != nil && !errors.Is(err, room.ErrRoomClosed) {
		s.log.Warn("discard unjoined room", zap.String("room", r.Code()), zap.Error(err))
	}
}

func (s *session) joinRoom(ctx context.Context, p types.JoinRoom) {
	name := strings.TrimSpace(p.Name)
	code := hub.NormalizeCode(p.RoomID)
	if name == "" || code == "" {
		s.fail(ctx, msgCodeRequired)
		return
	}
	if s.room != nil {
		s.fail(ctx, msgAlreadyInRoom)
		return
	}

	r, err := s.hub.Get(ctx, code)
	if err != nil {
		s.fail(ctx, joinMessage(err))
		return
	}
	s.enter(ctx, r, name)
}

// enter seats the session in r and starts forwarding the room's messages.
// It reports whether the session is now in r.
func (s *session) enter(ctx context.Context, r *room.Room, name string) bool {
	out := make(chan types.ServerMessage, s.opts.OutboxSize)
	if err := r.Join(ctx, s.sid, name, out); err != nil {
		s.fail(ctx, joinMessage(err))
		return false
	}
	s.room = r
	s.log = s.log.With(zap.String("room", r.Code()))
	go s.pump(ctx, out)
	return true
}

func (s *session) toRoom(ctx context.Context, m room.Msg) {
	if s.room == nil {
		s.fail(ctx, msgNotInRoom)
		return
	}
	if err := s.room.Send(ctx, m); err != nil {
		s.fail(ctx, joinMessage(err))
	}
}

func (s *session) leave() {
	if s.room == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.room.Send(ctx, room.Leave{SID: s.sid}); err != nil && !errors.Is(err, room.ErrRoomClosed) {
		s.log.Warn("leave room", zap.Error(err))
	}
}

// pump writes room messages until the room closes the outbox, which happens
// when the room shuts down or drops this session for being too slow.
func (s *session) pump(ctx context.Context, out <-chan types.ServerMessage) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-out:
			if !ok {
				s.conn.Close(websocket.StatusGoingAway, "room closed")
				return
			}
			if err := s.writeMsg(ctx, msg); err != nil {
				s.log.Debug("write failed", zap.Error(err))
				s.conn.CloseNow()
				return
			}
		}
	}
}

func (s *session) writeMsg(ctx context.Context, msg types.ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, s.opts.WriteTimeout)
	defer cancel()
	return wsjson.Write(ctx, s.conn, msg)
}

func (s *session) write(ctx context.Context, event string, data any) {
	if err := s.writeMsg(ctx, types.ServerMessage{Event: event, Data: data}); err != nil {
		s.log.Debug("write failed", zap.Error(err))
	}
}

func (s *session) fail(ctx context.Context, message string) {
	s.write(ctx, itypes.EvtErrorMessage, types.ErrorMessage{Message: message})
}

func (s *session) decode(ctx context.Context, data json.RawMessage, v any) bool {
	if len(data) == 0 {
		return true
	}
	if err := json.Unmarshal(data, v); err != nil {
		s.fail(ctx, msgBadJSON)
		return false
	}
	return true
}

func joinMessage(err error) string {
	if errors.Is(err, hub.ErrRoomNotFound) || errors.Is(err, room.ErrRoomClosed) {
		return msgRoomNotFound
	}
	return room.Message(err)
}

func toEngineCommand(p types.PlayerAction) (engine.Command, bool) {
	var cmd engine.Command
	if p.Item != nil {
		cmd.Item = p.Item.Name
		cmd.ItemType = p.Item.Type
	}

	switch p.Type {
	case itypes.ActionPassItem:
		cmd.Type = engine.CmdPassItem
		cmd.Direction = engine.Direction(p.Direction)
	case itypes.ActionTrashItem:
		cmd.Type = engine.CmdTrashItem
	case itypes.ActionAddToPlate:
		cmd.Type = engine.CmdAddToPlate
		cmd.PlateContents = p.NewPlateContents
	case itypes.ActionSubmitOrder:
		cmd.Type = engine.CmdSubmitOrder
	default:
		return engine.Command{}, false
	}
	return cmd, true
}
