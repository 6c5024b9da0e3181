package httpapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fairyhunter13/toko-sayur-pos/internal/obs"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
)

func newUpgrader(allowed []string) *websocket.Upgrader {
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowed),
	}
}

// originChecker returns nil for an empty list, which leaves gorilla's
// same-origin check in place.
func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.ToLower(o)] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.ToLower(origin)]
		return ok
	}
}

// WaitStreams blocks until every WebSocket handler has returned or ctx is
// done.
func (a *App) WaitStreams(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		a.streams.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}

// wsHandler streams the session snapshot to the client, first the current
// one and then each newer version. Slow clients skip intermediate versions.
func (a *App) wsHandler(w http.ResponseWriter, r *http.Request) {
	l, ok := a.session(w, r)
	if !ok {
		return
	}
	a.streams.Add(1)
	defer a.streams.Done()
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		obs.Logger.Warn("ws_upgrade_failed", "session_id", l.ID(), "error", err.Error())
		return
	}
	gone := make(chan struct{})
	defer func() {
		_ = conn.Close()
		<-gone
	}()

	updates, cancel := l.Subscribe()
	defer cancel()

	go func() {
		defer close(gone)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	obs.Logger.Info("ws_subscribed", "session_id", l.ID(), "request_id", RequestIDFromContext(r.Context()))
	for {
		select {
		case snap, ok := <-updates:
			_ = conn.SetWriteDeadline(time.Now().Add(a.Cfg.WSWriteTimeout))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "session closed"))
				return
			}
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(a.Cfg.WSWriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-gone:
			return
		}
	}
}
