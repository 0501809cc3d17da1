package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/restock-console/mapeditor/internal/event"
)

// WebSocket message types for the event stream
const (
	// Client -> Server messages
	MsgTypePing = "ping"

	// Server -> Client messages
	MsgTypeConnected = "connected"
	MsgTypeEvent     = "event"
	MsgTypeError     = "error"
	MsgTypePong      = "pong"
)

const (
	eventBufferSize = 64
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = (pongWait * 9) / 10
)

// WSMessage is the envelope of every frame on the stream
type WSMessage struct {
	Type      string          `json:"type"`
	ID        string          `json:"id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"timestamp"`
}

// WSErrorResponse is sent for malformed client frames
type WSErrorResponse struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// streamListener buffers editor events for one connection. OnEvent never
// blocks; events are dropped when the client falls behind.
type streamListener struct {
	events  chan event.Event
	mu      sync.Mutex
	closed  bool
	dropped int
}

func newStreamListener() *streamListener {
	return &streamListener{events: make(chan event.Event, eventBufferSize)}
}

func (l *streamListener) OnEvent(ev event.Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return
	}
	select {
	case l.events <- ev:
	default:
		l.dropped++
	}
}

func (l *streamListener) close() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !l.closed {
		l.closed = true
		close(l.events)
	}
	return l.dropped
}

// WebSocketHandler streams editor events to clients
type WebSocketHandler struct {
	handler  *Handler
	upgrader websocket.Upgrader
}

// NewWebSocketHandler creates a new event stream handler
func NewWebSocketHandler(h *Handler) *WebSocketHandler {
	return &WebSocketHandler{
		handler: h,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// Allow connections from dev server
				return true
			},
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
		},
	}
}

// HandleEvents upgrades the connection and forwards the session's events
// until either side closes.
func (wsh *WebSocketHandler) HandleEvents(c echo.Context) error {
	ed, err := wsh.handler.editor(c)
	if err != nil {
		return err
	}

	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	sessionID := ed.ID()
	fmt.Printf("[WebSocket] Client connected to session %s\n", shortID(sessionID))

	listener := newStreamListener()
	ed.Events().SubscribeAll(listener)
	defer func() {
		ed.Events().Unsubscribe("", listener)
		if dropped := listener.close(); dropped > 0 {
			fmt.Printf("[WebSocket] Dropped %d events for slow client on %s\n", dropped, shortID(sessionID))
		}
	}()

	// One writer goroutine owns the connection for writes.
	outgoing := make(chan WSMessage, 8)
	done := make(chan struct{})
	go wsh.writeLoop(ws, listener, outgoing, done)

	outgoing <- WSMessage{Type: MsgTypeConnected, ID: sessionID, Payload: mustJSON(ed.Info()), Timestamp: time.Now().UnixMilli()}

	ws.SetReadDeadline(time.Now().Add(pongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		var msg WSMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				fmt.Printf("[WebSocket] Connection error: %v\n", err)
			}
			break
		}
		ws.SetReadDeadline(time.Now().Add(pongWait))

		var reply WSMessage
		switch msg.Type {
		case MsgTypePing:
			reply = WSMessage{Type: MsgTypePong, Timestamp: time.Now().UnixMilli()}
		default:
			reply = WSMessage{
				Type:      MsgTypeError,
				Timestamp: time.Now().UnixMilli(),
				Payload: mustJSON(WSErrorResponse{
					Type:    MsgTypeError,
					Message: "Unknown message type: " + msg.Type,
					Code:    "INVALID_TYPE",
				}),
			}
		}
		select {
		case outgoing <- reply:
		case <-done:
		}
	}

	close(outgoing)
	<-done
	fmt.Printf("[WebSocket] Client disconnected from session %s\n", shortID(sessionID))
	return nil
}

func (wsh *WebSocketHandler) writeLoop(ws *websocket.Conn, listener *streamListener, outgoing <-chan WSMessage, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		var msg WSMessage
		select {
		case m, ok := <-outgoing:
			if !ok {
				ws.SetWriteDeadline(time.Now().Add(writeWait))
				ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			msg = m
		case ev, ok := <-listener.events:
			if !ok {
				return
			}
			msg = WSMessage{Type: MsgTypeEvent, ID: string(ev.Type), Payload: mustJSON(ev), Timestamp: ev.Timestamp.UnixMilli()}
		case <-ticker.C:
			ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				wsh.drain(outgoing)
				return
			}
			continue
		}

		ws.SetWriteDeadline(time.Now().Add(writeWait))
		if err := ws.WriteJSON(msg); err != nil {
			fmt.Printf("[WebSocket] Failed to send message: %v\n", err)
			wsh.drain(outgoing)
			return
		}
	}
}

// drain unblocks the reader after a write failure.
func (wsh *WebSocketHandler) drain(outgoing <-chan WSMessage) {
	go func() {
		for range outgoing {
		}
	}()
}

func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return []byte("{}")
	}
	return data
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
