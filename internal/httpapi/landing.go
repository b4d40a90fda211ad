package httpapi

import (
	"context"
	"html/template"
	"net/http"

	"github.com/DoyleJ11/cookparty-backend/internal/hub"
)

var landingPage = template.Must(template.New("landing").Parse(`<!doctype html>
<html>
<head><meta charset="utf-8"><meta name="viewport" content="width=device-width, initial-scale=1"><title>Cook Party</title></head>
<body>
<h1>Cook Party</h1>
{{- if .Code}}
<p>Room <strong id="room-code">{{.Code}}</strong>{{if .Open}} is waiting for you.{{else}} was not found.{{end}}</p>
{{- else}}
<p>Ask the host for a room code, or scan the QR code on their screen.</p>
{{- end}}
<p>Game socket: <code>{{.Socket}}</code></p>
</body>
</html>
`))

type landingData struct {
	Code   string
	Open   bool
	Socket string
}

// Landing is the page room QR codes point at. It echoes the ?room= code and
// says whether that room is still open.
func Landing(h *hub.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		data := landingData{
			Code:   hub.NormalizeCode(r.URL.Query().Get("room")),
			Socket: "/ws",
		}
		if data.Code != "" {
			ctx, cancel := context.WithTimeout(r.Context(), queryTimeout)
			defer cancel()
			_, err := h.Get(ctx, data.Code)
			data.Open = err == nil
		}

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		_ = landingPage.Execute(w, data)
	}
}
