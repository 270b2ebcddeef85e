package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"thermostab/internal/notify"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Send/receive timing configuration and message size limits.
const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMsgSize       = 1 << 12 // 4 KB
	maxInterval      = 10 * time.Second
	maxIntervalMilli = 10_000 // 10s in ms
	wsQueueSize      = 128

	stateEnvelope = "state"
	errorEnvelope = "error"
)

// knownTypes are the notification types a client may filter on.
var knownTypes = map[notify.Type]bool{
	notify.StateChanged:       true,
	notify.RelayStatusUpdated: true,
	notify.TemptParamsUpdated: true,
	notify.TickReading:        true,
	notify.Fault:              true,
	notify.PointFinished:      true,
	notify.JobFailed:          true,
}

// wsEnvelope is the wire shape of every message; bus events marshal the same way.
type wsEnvelope struct {
	Type  string      `json:"type"`
	At    time.Time   `json:"at"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// Upgrader for HTTP -> WebSocket. The API sits on a lab network behind bearer auth.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// @Summary      Notification stream
// @Description  Sends a state snapshot, then every bus notification as {type, at, data}. ?types=state_changed,fault filters; ?interval=5s adds periodic snapshots.
// @Tags         system
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	types, err := parseTypes(c.Query("types"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	interval := h.parseInterval(c)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	defer func() { _ = conn.Close() }()

	sub := h.bus.Subscribe(wsQueueSize, types...)
	defer sub.Close()

	conn.SetReadLimit(maxMsgSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	done := make(chan struct{})
	go h.startReader(conn, done)

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	var snapshots <-chan time.Time
	if interval > 0 {
		t := time.NewTicker(interval)
		defer t.Stop()
		snapshots = t.C
	}

	if err := h.sendState(c.Request.Context(), conn); err != nil {
		if h.log != nil {
			h.log.Infow("ws_write_failed_initial", "err", err)
		}
		return
	}

	for {
		select {
		case <-done:
			return
		case <-c.Request.Context().Done():
			return
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				if h.log != nil {
					h.log.Infow("ws_ping_failed", "err", err)
				}
				return
			}
		case <-snapshots:
			if err := h.sendState(c.Request.Context(), conn); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err)
				}
				return
			}
		case e, ok := <-sub.C():
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(e); err != nil {
				if h.log != nil {
					h.log.Infow("ws_write_failed", "err", err, "type", string(e.Type))
				}
				return
			}
		}
	}
}

// parseTypes reads a comma separated notification type filter. Empty means all.
func parseTypes(q string) ([]notify.Type, error) {
	if strings.TrimSpace(q) == "" {
		return nil, nil
	}
	var out []notify.Type
	for _, s := range strings.Split(q, ",") {
		t := notify.Type(strings.ToLower(strings.TrimSpace(s)))
		if t == "" {
			continue
		}
		if !knownTypes[t] {
			return nil, fmt.Errorf("unknown notification type %q", s)
		}
		out = append(out, t)
	}
	return out, nil
}

// parseInterval reads ?interval=2s or ?interval_ms=2000 with bounds. Zero
// means no periodic snapshots.
func (h *Handler) parseInterval(c *gin.Context) time.Duration {
	if s := c.Query("interval"); s != "" {
		if d, err := time.ParseDuration(s); err == nil && d > 0 && d <= maxInterval {
			return d
		}
	}

	if ms := c.Query("interval_ms"); ms != "" {
		if v, err := strconv.Atoi(ms); err == nil && v > 0 && v <= maxIntervalMilli {
			return time.Duration(v) * time.Millisecond
		}
	}

	return 0
}

// startReader drains incoming messages to handle control frames and detect closure.
func (h *Handler) startReader(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if h.log != nil {
				h.log.Infow("ws_read_closed", "err", err)
			}
			return
		}
	}
}

// sendState writes the current state, or an error envelope when it cannot be loaded.
func (h *Handler) sendState(ctx context.Context, conn *websocket.Conn) error {
	st, err := h.services.Monitoring.GetState(ctx)
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_get_state_failed", "err", err)
		}
		_ = conn.WriteJSON(wsEnvelope{Type: errorEnvelope, At: time.Now().UTC(), Error: errGetState})
		return err
	}
	return conn.WriteJSON(wsEnvelope{Type: stateEnvelope, At: time.Now().UTC(), Data: st})
}
