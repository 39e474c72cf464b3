package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
)

const (
	liveWriteWait  = 10 * time.Second
	livePongWait   = 60 * time.Second
	livePingPeriod = 30 * time.Second
)

// liveMessage is the envelope pushed over the statistics socket.
type liveMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// LiveStats handles GET /api/events/{code}/stats/live
// It upgrades to a WebSocket, sends the current statistics and then a fresh
// snapshot after every accepted submission until the client disconnects.
func (h *EventHandler) LiveStats(w http.ResponseWriter, r *http.Request) {
	event, err := h.svc.GetEvent(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.writeServiceError(w, r, err, "failed to get event")
		return
	}

	// Subscribe before reading the current stats so no submission slips
	// between the two.
	updates, cancel := h.hub.Subscribe(event.Code)
	defer cancel()

	stats, err := h.svc.Stats(r.Context(), event.Code)
	if err != nil {
		h.writeServiceError(w, r, err, "failed to compute stats")
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client.
		h.logger.Warn("live_upgrade_failed", "code", event.Code, "error", err)
		return
	}
	defer conn.Close()
	h.logger.Info("live_connected", "code", event.Code)

	// Clients only send control frames; reading is how we notice them leave.
	done := make(chan struct{})
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		_ = conn.SetReadDeadline(time.Now().Add(livePongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(livePongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(msg liveMessage) error {
		_ = conn.SetWriteDeadline(time.Now().Add(liveWriteWait))
		return conn.WriteJSON(msg)
	}

	if err := send(liveMessage{Type: "stats", Data: stats}); err != nil {
		return
	}
	sent := stats.TotalResponses

	ping := time.NewTicker(livePingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			h.logger.Info("live_disconnected", "code", event.Code)
			return
		case s := <-updates:
			if s.TotalResponses < sent {
				continue
			}
			if err := send(liveMessage{Type: "stats", Data: s}); err != nil {
				return
			}
			sent = s.TotalResponses
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(liveWriteWait)); err != nil {
				return
			}
		}
	}
}

func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]bool, len(allowed))
	for _, o := range allowed {
		set[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		// Non-browser clients send no Origin header.
		if origin == "" || set["*"] {
			return true
		}
		return set[origin]
	}
}
