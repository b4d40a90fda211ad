package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/DoyleJ11/cookparty-backend/internal/hub"
	"github.com/DoyleJ11/cookparty-backend/internal/room"
	"github.com/DoyleJ11/cookparty-backend/internal/store"
	"github.com/DoyleJ11/cookparty-backend/pkg/types"
)

const queryTimeout = 2 * time.Second

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, struct {
		Error string `json:"error"`
	}{Error: msg})
}

func Healthz(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()

		stats, err := h.Stats(ctx)
		if err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusOK, struct {
			Status string `json:"status"`
			hub.Stats
		}{Status: "ok", Stats: stats})
	}
}

type roomInfo struct {
	RoomID  string              `json:"room_id"`
	HostSID string              `json:"host_sid"`
	Players []types.LobbyPlayer `json:"players"`
	Phase   string              `json:"phase"`
	Playing bool                `json:"playing"`
}

// lookup resolves the {code} URL parameter to a live room, writing a 404
// when there is none.
func lookup(w http.ResponseWriter, r *http.Request, h *hub.Hub) (room.View, bool) {
	ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
	defer cancel()

	rm, err := h.Get(ctx, chi.URLParam(r, "code"))
	if err == nil {
		var v room.View
		if v, err = rm.State(ctx); err == nil {
			return v, true
		}
	}
	if errors.Is(err, hub.ErrRoomNotFound) || errors.Is(err, room.ErrRoomClosed) {
		writeError(w, http.StatusNotFound, "room not found")
	} else {
		writeError(w, http.StatusServiceUnavailable, err.Error())
	}
	return room.View{}, false
}

func GetRoom(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := lookup(w, r, h)
		if !ok {
			return
		}
		phase := v.Snapshot.Phase
		if !v.Playing {
			phase = "lobby"
		}
		writeJSON(w, http.StatusOK, roomInfo{
			RoomID:  v.Code,
			HostSID: v.HostSID,
			Players: v.Members,
			Phase:   phase,
			Playing: v.Playing,
		})
	}
}

// RoomQR serves a PNG QR code linking to <publicURL>/?room=CODE.
func RoomQR(h *hub.Hub, publicURL string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, ok := lookup(w, r, h)
		if !ok {
			return
		}

		link := strings.TrimRight(publicURL, "/") + "/?room=" + url.QueryEscape(v.Code)
		png, err := qrcode.Encode(link, qrcode.Medium, 256)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to encode qr code")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		_, _ = w.Write(png)
	}
}

func GetLeaderboard(scores Leaderboard) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := 10
		if s := r.URL.Query().Get("limit"); s != "" {
			n, err := strconv.Atoi(s)
			if err != nil || n < 1 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = min(n, 100)
		}

		if scores == nil {
			writeJSON(w, http.StatusOK, []store.LeaderboardEntry{})
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
		defer cancel()
		entries, err := scores.Leaderboard(ctx, limit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load leaderboard")
			return
		}
		writeJSON(w, http.StatusOK, entries)
	}
}
