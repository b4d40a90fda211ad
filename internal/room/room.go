package room

import (
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/DoyleJ11/cookparty-backend/internal/engine"
	itypes "github.com/DoyleJ11/cookparty-backend/internal/types"
	"github.com/DoyleJ11/cookparty-backend/pkg/types"
)

type Msg interface{ isRoomMsg() }

// Join seats a session in the lobby. On success the room sends
// room_created (first member) or join_success, then update_lobby, on Outbox.
type Join struct {
	SID    string
	Name   string
	Outbox chan types.ServerMessage
	Reply  chan error
}

func (Join) isRoomMsg() {}

type Leave struct{ SID string }

func (Leave) isRoomMsg() {}

type StartGame struct{ SID string }

func (StartGame) isRoomMsg() {}

// Action carries a gameplay command from Cmd.SID.
type Action struct {
	Cmd engine.Command
}

func (Action) isRoomMsg() {}

// Tick advances the round clock by one second.
type Tick struct{}

func (Tick) isRoomMsg() {}

type GetState struct {
	Reply chan View
}

func (GetState) isRoomMsg() {}

type Shutdown struct{}

func (Shutdown) isRoomMsg() {}

type abilityDue struct {
	sid    string
	taskID uint64
}

func (abilityDue) isRoomMsg() {}

type advanceLevel struct{ gen int }

func (advanceLevel) isRoomMsg() {}

// inLoop is a message that acts on the room from its own goroutine.
type inLoop interface {
	Msg
	run(r *Room)
}

type View struct {
	Code       string
	HostSID    string
	Members    []types.LobbyPlayer
	NumClients int
	Playing    bool
	Snapshot   types.GameSnapshot
}

// Result summarises a finished game.
type Result struct {
	RoomCode   string
	Players    []string
	Level      int
	TotalScore int
	Won        bool
	FinishedAt time.Time
}

type Recorder interface {
	RecordGame(ctx context.Context, res Result) error
}

type Options struct {
	Catalog    *engine.Catalog
	Engine     engine.Options
	MaxPlayers int
	// Tick is the round clock period. Zero disables the clock; Tick
	// messages still advance it.
	Tick         time.Duration
	Intermission time.Duration
	Now          func() time.Time
	Recorder     Recorder
	// OnEmpty is called once the room has stopped with no members left,
	// whether the last one left or it was shut down while empty.
	OnEmpty func(code string)
	Logger  *zap.Logger
}

type Room struct {
	code     string
	opts     Options
	log      *zap.Logger
	inbox    chan Msg
	game     *engine.Game
	members  []types.LobbyPlayer // join order
	outboxes map[string]chan types.ServerMessage
	hostSID  string
	ticker   *time.Ticker
	levelGen int
	ctx      context.Context
	cancel   context.CancelFunc
}

func New(parent context.Context, code string, opts Options) *Room {
	if opts.Catalog == nil {
		opts.Catalog = engine.DefaultCatalog()
	}
	if opts.MaxPlayers <= 0 {
		opts.MaxPlayers = 8
	}
	if opts.Intermission <= 0 {
		opts.Intermission = 5 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(parent)
	r := &Room{
		code:     code,
		opts:     opts,
		log:      opts.Logger.With(zap.String("room", code)),
		inbox:    make(chan Msg, 64),
		game:     engine.NewGame(opts.Catalog, opts.Engine),
		outboxes: make(map[string]chan types.ServerMessage),
		ctx:      ctx,
		cancel:   cancel,
	}

	go r.loop()
	return r
}

func (r *Room) Code() string { return r.code }

// Done is closed once the room goroutine has stopped accepting messages.
func (r *Room) Done() <-chan struct{} { return r.ctx.Done() }

// Send posts m to the room. It fails with ErrRoomClosed once the room has
// stopped.
func (r *Room) Send(ctx context.Context, m Msg) error {
	select {
	case <-r.ctx.Done():
		return ErrRoomClosed
	default:
	}
	select {
	case r.inbox <- m:
		return nil
	case <-r.ctx.Done():
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Join seats sid in the lobby and waits for the room's answer.
func (r *Room) Join(ctx context.Context, sid, name string, outbox chan types.ServerMessage) error {
	reply := make(chan error, 1)
	if err := r.Send(ctx, Join{SID: sid, Name: name, Outbox: outbox, Reply: reply}); err != nil {
		return err
	}
	select {
	case err := <-reply:
		return err
	case <-r.ctx.Done():
		return ErrRoomClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Room) State(ctx context.Context) (View, error) {
	reply := make(chan View, 1)
	if err := r.Send(ctx, GetState{Reply: reply}); err != nil {
		return View{}, err
	}
	select {
	case v := <-reply:
		return v, nil
	case <-r.ctx.Done():
		return View{}, ErrRoomClosed
	case <-ctx.Done():
		return View{}, ctx.Err()
	}
}

func (r *Room) loop() {
	defer r.shutdown()

	for {
		var tickC <-chan time.Time
		if r.ticker != nil {
			tickC = r.ticker.C
		}

		select {
		case <-r.ctx.Done():
			return

		case <-tickC:
			r.tick()

		case m := <-r.inbox:
			switch msg := m.(type) {
			case Join:
				msg.Reply <- r.join(msg)

			case Leave:
				if r.leave(msg.SID) {
					r.log.Info("room empty, closing")
					if r.opts.OnEmpty != nil {
						go r.opts.OnEmpty(r.code)
					}
					return
				}

			case StartGame:
				r.startGame(msg.SID)

			case Action:
				r.action(msg.Cmd)

			case Tick:
				r.tick()

			case abilityDue:
				events, _ := r.game.Apply(engine.Command{
					Type:   engine.CmdCompleteAbility,
					SID:    msg.sid,
					TaskID: msg.taskID,
					Now:    r.opts.Now(),
				})
				if len(events) > 0 {
					r.dispatch(events)
					r.broadcastState()
				}

			case advanceLevel:
				if msg.gen != r.levelGen {
					break
				}
				events, err := r.game.Apply(engine.Command{Type: engine.CmdAdvanceLevel})
				if err != nil {
					r.log.Debug("advance level", zap.Error(err))
					break
				}
				r.dispatch(events)

			case GetState:
				msg.Reply <- r.view()

			case inLoop:
				msg.run(r)

			case Shutdown:
				if len(r.members) == 0 && r.opts.OnEmpty != nil {
					go r.opts.OnEmpty(r.code)
				}
				return
			}
		}
	}
}

func (r *Room) shutdown() {
	r.stopClock()
	r.levelGen++
	for id, ch := range r.outboxes {
		close(ch) // no more messages for this session
		delete(r.outboxes, id)
	}
	r.cancel()
}

func (r *Room) join(msg Join) error {
	if i := r.memberIndex(msg.SID); i >= 0 {
		r.outboxes[msg.SID] = msg.Outbox
		return nil
	}
	if r.game.IsPlaying() {
		return ErrGameInProgress
	}
	if len(r.members) >= r.opts.MaxPlayers {
		return ErrRoomFull
	}

	r.members = append(r.members, types.LobbyPlayer{SID: msg.SID, Name: msg.Name})
	r.outboxes[msg.SID] = msg.Outbox
	if r.hostSID == "" {
		r.hostSID = msg.SID
	}

	isHost := r.hostSID == msg.SID
	event := itypes.EvtJoinSuccess
	if isHost {
		event = itypes.EvtRoomCreated
	}
	r.log.Info("player joined", zap.String("sid", msg.SID), zap.Bool("host", isHost))

	r.sendTo(msg.SID, event, types.RoomJoined{RoomID: r.code, IsHost: isHost})
	r.broadcast(itypes.EvtUpdateLobby, r.lobbyUpdate())
	return nil
}

// leave releases sid's seat and reports whether the room is now empty.
func (r *Room) leave(sid string) bool {
	i := r.memberIndex(sid)
	if i < 0 {
		return false
	}
	r.members = slices.Delete(r.members, i, i+1)
	delete(r.outboxes, sid)
	r.log.Info("player left", zap.String("sid", sid))

	if _, seated := r.game.Players[sid]; seated {
		events, _ := r.game.Apply(engine.Command{Type: engine.CmdRemovePlayer, SID: sid})
		r.dispatch(events)
		r.broadcastState()
	}

	if len(r.members) == 0 {
		return true
	}

	if sid == r.hostSID {
		r.hostSID = r.members[0].SID
		r.broadcast(itypes.EvtNewHost, types.NewHost{HostSID: r.hostSID})
	}
	r.broadcast(itypes.EvtUpdateLobby, r.lobbyUpdate())
	return false
}

func (r *Room) startGame(sid string) {
	if sid != r.hostSID {
		r.sendTo(sid, itypes.EvtErrorMessage, types.ErrorMessage{Message: Message(ErrNotHost)})
		return
	}
	if r.game.IsPlaying() {
		r.sendTo(sid, itypes.EvtErrorMessage, types.ErrorMessage{Message: Message(ErrGameInProgress)})
		return
	}

	seats := make([]engine.Seat, 0, len(r.members))
	for _, m := range r.members {
		seats = append(seats, engine.Seat{SID: m.SID, Name: m.Name})
	}
	if _, err := r.game.Apply(engine.Command{Type: engine.CmdStartGame, Seats: seats, Now: r.opts.Now()}); err != nil {
		r.sendTo(sid, itypes.EvtErrorMessage, types.ErrorMessage{Message: Message(err)})
		return
	}
	r.log.Info("game started", zap.Int("players", len(seats)))

	snap := Snapshot(r.game)
	for _, id := range r.game.Order {
		left, right, _ := engine.Neighbors(r.game.Order, id)
		r.sendTo(id, itypes.EvtGameStarted, types.GameStarted{
			YourSID:       id,
			YourName:      r.game.Players[id].Name,
			LeftNeighbor:  r.game.Players[left].Name,
			RightNeighbor: r.game.Players[right].Name,
			InitialState:  &snap,
		})
	}
	r.startClock()
}

func (r *Room) action(cmd engine.Command) {
	cmd.Now = r.opts.Now()
	events, err := r.game.Apply(cmd)
	if err != nil {
		r.sendTo(cmd.SID, itypes.EvtActionFail, types.Feedback{Message: Message(err), Sound: "error"})
		return
	}
	r.dispatch(events)
	r.broadcastState()
}

func (r *Room) tick() {
	if r.game.Phase != engine.PhaseActive {
		return
	}
	events, _ := r.game.Apply(engine.Command{Type: engine.CmdTick, Now: r.opts.Now()})
	r.dispatch(events)
	r.broadcastState()
}

// dispatch turns engine events into client messages and arms any timers
// they call for.
func (r *Room) dispatch(events []engine.Event) {
	for _, ev := range events {
		switch ev.Type {
		case engine.EvtItemDropped:
			r.sendTo(ev.SID, itypes.EvtItemDropped, types.ItemDropped{
				Item: types.Item{Type: engine.ItemIngredient, Name: ev.Item},
			})

		case engine.EvtItemReceived, engine.EvtAbilityCompleted:
			r.sendTo(ev.SID, itypes.EvtReceiveItem, types.ReceiveItem{
				Item: types.Item{Type: engine.ItemIngredient, Name: ev.Item},
			})

		case engine.EvtAbilityStarted:
			r.sendTo(ev.SID, itypes.EvtActionSuccess, types.Feedback{
				Message: fmt.Sprintf("%s %s...", ev.Verb, ev.Item),
				Sound:   "click",
			})
			r.armAbility(ev.SID, *ev.Task)

		case engine.EvtOrderCompleted:
			r.sendTo(ev.SID, itypes.EvtActionSuccess, types.Feedback{
				Message: fmt.Sprintf("%s complete! (+%d points)", ev.Recipe, ev.Points),
				Sound:   "success",
			})

		case engine.EvtLevelCompleted:
			r.broadcast(itypes.EvtLevelComplete, types.LevelComplete{
				Level:      ev.Level,
				LevelScore: ev.LevelScore,
				TotalScore: ev.TotalScore,
			})
			r.armIntermission()

		case engine.EvtLevelRetry:
			r.broadcast(itypes.EvtLevelRetry, types.LevelRetry{Level: ev.Level, RetriesLeft: ev.RetriesLeft})

		case engine.EvtLevelStarted:
			r.broadcast(itypes.EvtClearAllItems, struct{}{})
			r.broadcast(itypes.EvtStartNextLevel, Snapshot(r.game))

		case engine.EvtNeighborsChanged:
			for _, id := range r.game.Order {
				left, right, _ := engine.Neighbors(r.game.Order, id)
				r.sendTo(id, itypes.EvtUpdateNeighbors, types.Neighbors{
					LeftNeighbor:  r.game.Players[left].Name,
					RightNeighbor: r.game.Players[right].Name,
				})
			}

		case engine.EvtGameOver:
			r.broadcast(itypes.EvtGameOver, types.GameOver{TotalScore: ev.TotalScore, Message: ev.Message})
			r.finish(ev.TotalScore, false)

		case engine.EvtGameWon:
			r.broadcast(itypes.EvtGameWon, types.GameWon{TotalScore: ev.TotalScore})
			r.finish(ev.TotalScore, true)
		}
	}
}

// armAbility fires just past EndsAt; a task is only done once its end time
// has been passed.
func (r *Room) armAbility(sid string, task engine.AbilityTask) {
	time.AfterFunc(task.EndsAt.Sub(r.opts.Now())+time.Millisecond, func() {
		r.post(abilityDue{sid: sid, taskID: task.ID})
	})
}

func (r *Room) armIntermission() {
	r.levelGen++
	gen := r.levelGen
	time.AfterFunc(r.opts.Intermission, func() {
		r.post(advanceLevel{gen: gen})
	})
}

// post is used by timers; it gives up once the room has stopped.
func (r *Room) post(m Msg) {
	select {
	case r.inbox <- m:
	case <-r.ctx.Done():
	}
}

// finish stops the clock, records the result and leaves the room in the
// lobby with its members.
func (r *Room) finish(total int, won bool) {
	r.stopClock()
	r.levelGen++

	res := Result{
		RoomCode:   r.code,
		Level:      r.game.Level,
		TotalScore: total,
		Won:        won,
		FinishedAt: r.opts.Now(),
	}
	for _, m := range r.members {
		res.Players = append(res.Players, m.Name)
	}
	r.log.Info("game finished", zap.Int("level", res.Level), zap.Int("total_score", total), zap.Bool("won", won))

	if rec := r.opts.Recorder; rec != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := rec.RecordGame(ctx, res); err != nil {
				r.log.Warn("record game result", zap.Error(err))
			}
		}()
	}

	if len(r.members) > 0 {
		r.broadcast(itypes.EvtUpdateLobby, r.lobbyUpdate())
	}
}

func (r *Room) startClock() {
	if r.opts.Tick > 0 && r.ticker == nil {
		r.ticker = time.NewTicker(r.opts.Tick)
	}
}

func (r *Room) stopClock() {
	if r.ticker != nil {
		r.ticker.Stop()
		r.ticker = nil
	}
}

func (r *Room) broadcastState() {
	if r.game.IsPlaying() {
		r.broadcast(itypes.EvtUpdateGameState, Snapshot(r.game))
	}
}

func (r *Room) sendTo(sid, event string, data any) {
	ch, ok := r.outboxes[sid]
	if !ok {
		return
	}
	select {
	case ch <- types.ServerMessage{Event: event, Data: data}:
		//ok
	default:
		// Session is slow/full - drop it. Its connection closes and a
		// Leave follows.
		r.log.Warn("dropping slow session", zap.String("sid", sid))
		close(ch)
		delete(r.outboxes, sid)
	}
}

func (r *Room) broadcast(event string, data any) {
	for _, m := range r.members {
		r.sendTo(m.SID, event, data)
	}
}

func (r *Room) memberIndex(sid string) int {
	return slices.IndexFunc(r.members, func(m types.LobbyPlayer) bool { return m.SID == sid })
}

func (r *Room) lobbyUpdate() types.LobbyUpdate {
	return types.LobbyUpdate{
		RoomID:  r.code,
		Players: slices.Clone(r.members),
		HostSID: r.hostSID,
	}
}

func (r *Room) view() View {
	return View{
		Code:       r.code,
		HostSID:    r.hostSID,
		Members:    slices.Clone(r.members),
		NumClients: len(r.outboxes),
		Playing:    r.game.IsPlaying(),
		Snapshot:   Snapshot(r.game),
	}
}
