package hub

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	mrand "math/rand/v2"
	"strings"

	"go.uber.org/zap"

	"github.com/DoyleJ11/cookparty-backend/internal/room"
)

var ErrRoomNotFound = errors.New("room not found")
var ErrHubClosed = errors.New("hub closed")

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

func GenerateCode(length int) (string, error) {
	code := make([]byte, length)
	for i := range code {
		num, err := rand.Int(rand.Reader, big.NewInt(int64(len(codeCharset))))
		if err != nil {
			return "", err
		}
		code[i] = codeCharset[num.Int64()]
	}
	return string(code), nil
}

// NormalizeCode makes room lookups case-insensitive and whitespace-tolerant.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

type HubMsg interface{ isHubMsg() }

// CreateRoom opens a room under a fresh code. Code generation and insert
// happen on the hub goroutine, so codes are unique among live rooms.
type CreateRoom struct {
	Reply chan CreateResult
}

type CreateResult struct {
	Room *room.Room
	Err  error
}

type GetRoom struct {
	Code  string
	Reply chan *room.Room
}

// RemoveRoom drops Code from the registry if it still maps to Room.
type RemoveRoom struct {
	Code string
	Room *room.Room
}

type ListRooms struct {
	Reply chan []*room.Room
}

type ShutdownHub struct{}

func (CreateRoom) isHubMsg()  {}
func (GetRoom) isHubMsg()     {}
func (RemoveRoom) isHubMsg()  {}
func (ListRooms) isHubMsg()   {}
func (ShutdownHub) isHubMsg() {}

type Options struct {
	CodeLength int
	Room       room.Options
	Logger     *zap.Logger
}

type Hub struct {
	inbox  chan HubMsg
	rooms  map[string]*room.Room
	opts   Options
	log    *zap.Logger
	ctx    context.Context
	cancel context.CancelFunc
}

func NewHub(parent context.Context, opts Options) *Hub {
	if opts.CodeLength <= 0 {
		opts.CodeLength = 4
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	h := &Hub{
		inbox:  make(chan HubMsg, 64),
		rooms:  make(map[string]*room.Room),
		opts:   opts,
		log:    opts.Logger,
		ctx:    ctx,
		cancel: cancel,
	}
	go h.loop()
	return h
}

func (h *Hub) loop() {
	for {
		select {
		case <-h.ctx.Done():
			return

		case m := <-h.inbox:
			switch msg := m.(type) {
			case CreateRoom:
				r, err := h.createRoom()
				msg.Reply <- CreateResult{Room: r, Err: err}

			case GetRoom:
				msg.Reply <- h.rooms[NormalizeCode(msg.Code)] // May be nil

			case RemoveRoom:
				if h.rooms[msg.Code] == msg.Room {
					delete(h.rooms, msg.Code)
					h.log.Info("room removed", zap.String("room", msg.Code), zap.Int("rooms", len(h.rooms)))
				}

			case ListRooms:
				rooms := make([]*room.Room, 0, len(h.rooms))
				for _, r := range h.rooms {
					rooms = append(rooms, r)
				}
				msg.Reply <- rooms

			case ShutdownHub:
				for _, r := range h.rooms {
					_ = r.Send(h.ctx, room.Shutdown{})
				}
				clear(h.rooms)
				h.cancel()
			}
		}
	}
}

func (h *Hub) createRoom() (*room.Room, error) {
	var code string
	for attempt := 0; ; attempt++ {
		if attempt == 100 {
			return nil, fmt.Errorf("no free room code of length %d", h.opts.CodeLength)
		}
		c, err := GenerateCode(h.opts.CodeLength)
		if err != nil {
			return nil, fmt.Errorf("generate room code: %w", err)
		}
		if h.rooms[c] == nil {
			code = c
			break
		}
		h.log.Debug("collision on code, regenerating", zap.String("room", c))
	}

	opts := h.opts.Room
	if opts.Logger == nil {
		opts.Logger = h.log
	}
	if opts.Engine.Seed == 0 {
		opts.Engine.Seed = mrand.Uint64()
	}

	var r *room.Room
	opts.OnEmpty = func(code string) {
		select {
		case h.inbox <- RemoveRoom{Code: code, Room: r}:
		case <-h.ctx.Done():
		}
	}
	r = room.New(h.ctx, code, opts)
	h.rooms[code] = r
	h.log.Info("room created", zap.String("room", code), zap.Int("rooms", len(h.rooms)))
	return r, nil
}

func (h *Hub) send(ctx context.Context, m HubMsg) error {
	select {
	case h.inbox <- m:
		return nil
	case <-h.ctx.Done():
		return ErrHubClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (h *Hub) Create(ctx context.Context) (*room.Room, error) {
	reply := make(chan CreateResult, 1)
	if err := h.send(ctx, CreateRoom{Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case res := <-reply:
		return res.Room, res.Err
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Get(ctx context.Context, code string) (*room.Room, error) {
	reply := make(chan *room.Room, 1)
	if err := h.send(ctx, GetRoom{Code: code, Reply: reply}); err != nil {
		return nil, err
	}
	select {
	case r := <-reply:
		if r == nil {
			return nil, ErrRoomNotFound
		}
		return r, nil
	case <-h.ctx.Done():
		return nil, ErrHubClosed
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type Stats struct {
	Rooms   int `json:"rooms"`
	Players int `json:"players"`
}

// Stats counts live rooms and seated players. Rooms are queried after the
// registry answers, so a busy room never stalls the hub.
func (h *Hub) Stats(ctx context.Context) (Stats, error) {
	reply := make(chan []*room.Room, 1)
	if err := h.send(ctx, ListRooms{Reply: reply}); err != nil {
		return Stats{}, err
	}

	var rooms []*room.Room
	select {
	case rooms = <-reply:
	case <-h.ctx.Done():
		return Stats{}, ErrHubClosed
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}

	var s Stats
	for _, r := range rooms {
		v, err := r.State(ctx)
		if errors.Is(err, room.ErrRoomClosed) {
			continue
		}
		if err != nil {
			return Stats{}, err
		}
		s.Rooms++
		s.Players += len(v.Members)
	}
	return s, nil
}

func (h *Hub) Shutdown() {
	select {
	case h.inbox <- ShutdownHub{}:
	case <-h.ctx.Done():
	}
}

func (h *Hub) Done() <-chan struct{} { return h.ctx.Done() }
