package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/DoyleJ11/cookparty-backend/internal/hub"
)

type Options struct {
	// OutboxSize is the per-session buffer of room messages; a session that
	// falls this far behind is dropped.
	OutboxSize int
	// RateLimit and RateBurst bound inbound frames per connection.
	RateLimit      rate.Limit
	RateBurst      int
	PingInterval   time.Duration
	WriteTimeout   time.Duration
	OriginPatterns []string
	Logger         *zap.Logger
}

func (o *Options) defaults() {
	if o.OutboxSize <= 0 {
		o.OutboxSize = 64
	}
	if o.RateLimit <= 0 {
		o.RateLimit = 20
	}
	if o.RateBurst <= 0 {
		o.RateBurst = 40
	}
	if o.PingInterval <= 0 {
		o.PingInterval = 30 * time.Second
	}
	if o.WriteTimeout <= 0 {
		o.WriteTimeout = 3 * time.Second
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
}

func Handler(h *hub.Hub, opts Options) http.HandlerFunc {
	opts.defaults()
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			OriginPatterns: opts.OriginPatterns,
		})
		if err != nil {
			opts.Logger.Debug("websocket accept", zap.Error(err))
			return
		}
		defer conn.CloseNow()

		s := newSession(conn, h, opts)
		s.run(r.Context())
		conn.Close(websocket.StatusNormalClosure, "bye")
	}
}

// keepalive pings the peer so dead connections are noticed while a player
// sits idle in the lobby.
func keepalive(ctx context.Context, conn *websocket.Conn, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			pingCtx, cancel := context.WithTimeout(ctx, every/2)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				conn.CloseNow()
				return
			}
		}
	}
}
