package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/cookparty-backend/internal/hub"
	"github.com/DoyleJ11/cookparty-backend/internal/store"
	"github.com/DoyleJ11/cookparty-backend/internal/ws"
)

type Leaderboard interface {
	Leaderboard(ctx context.Context, limit int) ([]store.LeaderboardEntry, error)
}

type Deps struct {
	Hub *hub.Hub
	// Scores may be nil when persistence is disabled.
	Scores    Leaderboard
	PublicURL string
	WS        ws.Options
	Logger    *zap.Logger
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/", Landing(d.Hub))
	r.Get("/healthz", Healthz(d.Hub))
	r.Get("/ws", ws.Handler(d.Hub, d.WS))
	r.Get("/rooms/{code}", GetRoom(d.Hub))
	r.Get("/rooms/{code}/qr.png", RoomQR(d.Hub, d.PublicURL))
	r.Get("/leaderboard", GetLeaderboard(d.Scores))
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
