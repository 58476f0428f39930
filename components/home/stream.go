// components/home/stream.go
//
// Websocket card stream.
//
// Protocol
//   server → client  {"type":"cards","cards":[{"id","phase","loading","error","html"}]}
//                    First frame carries every card; later frames only the
//                    cards whose state changed.
//   client → server  {"type":"refresh","id":"<widget>"}
//
// The connection ends when the client goes away, the board is evicted, or
// the server shuts down.

package home

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yanizio/threadstead/internal/board"
	"github.com/yanizio/threadstead/internal/component"
	"github.com/yanizio/threadstead/internal/requestinfo"
	"github.com/yanizio/threadstead/internal/view"
	"github.com/yanizio/threadstead/internal/widget"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxMessage = 1024
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

// frame is one server → client message.
type frame struct {
	Type  string      `json:"type"`
	Cards []cardFrame `json:"cards"`
}

type cardFrame struct {
	ID      string       `json:"id"`
	Phase   widget.Phase `json:"phase"`
	Loading bool         `json:"loading"`
	Error   string       `json:"error,omitempty"`
	HTML    string       `json:"html"`
}

// inbound is one client → server message.
type inbound struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// cardKey captures what makes a card worth re-sending.
type cardKey struct {
	phase   widget.Phase
	loading bool
	err     string
	at      time.Time
}

func (c *Component) handleStream(w http.ResponseWriter, r *http.Request) {
	b, ok := c.board(w, r)
	if !ok {
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error.
		c.d.Log.Debugw("websocket upgrade", "err", err)
		return
	}
	defer conn.Close()

	compact := false
	if info := requestinfo.FromContext(r.Context()); info != nil {
		compact = info.UA.Compact()
	}

	changes, unsubscribe := b.Subscribe()
	defer unsubscribe()

	done := make(chan struct{})
	go c.readLoop(conn, b, done)

	sent := map[string]cardKey{}
	if err := c.push(conn, b, sent, compact); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case _, open := <-changes:
			if !open {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "board closed"),
					time.Now().Add(writeWait))
				return
			}
			if err := c.push(conn, b, sent, compact); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

// push sends cards whose state differs from what the client last saw.
func (c *Component) push(conn *websocket.Conn, b *board.Board, sent map[string]cardKey, compact bool) error {
	out := frame{Type: "cards"}
	for _, card := range b.Cards() {
		k := cardKey{card.Phase, card.Loading, card.Error, card.UpdatedAt}
		if prev, ok := sent[card.ID]; ok && prev == k {
			continue
		}
		html, err := view.CardHTML(card, compact)
		if err != nil {
			c.d.Log.Errorw("render card", "widget", card.ID, "err", err)
			continue
		}
		sent[card.ID] = k
		out.Cards = append(out.Cards, cardFrame{
			ID: card.ID, Phase: card.Phase, Loading: card.Loading, Error: card.Error, HTML: string(html),
		})
	}
	if len(out.Cards) == 0 {
		return nil
	}
	payload, err := component.Marshal(out)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.TextMessage, payload)
}

// readLoop handles refresh requests and keeps the pong deadline fresh.
// It closes done on any read error, which ends the writer.
func (c *Component) readLoop(conn *websocket.Conn, b *board.Board, done chan<- struct{}) {
	defer close(done)
	conn.SetReadLimit(maxMessage)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		var msg inbound
		if err := conn.ReadJSON(&msg); err != nil {
			return
		}
		if msg.Type == "refresh" {
			if err := b.Refresh(msg.ID); err != nil {
				c.d.Log.Debugw("stream refresh", "widget", msg.ID, "err", err)
			}
		}
	}
}
