package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"stonebirds/lobby"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	inboxSize  = 512
	outboxSize = 256
)

var ErrDisconnected = errors.New("relay connection closed")

type outMsg struct {
	typ  int
	data []byte
}

// Conn is the peer's link to the relay. Inbound binary frames queue on Frames
// for the frame loop; inbound control envelopes queue on Events.
type Conn struct {
	ws     *websocket.Conn
	out    chan outMsg
	frames chan []byte
	events chan lobby.InEnvelope
	closed chan struct{}
}

// Dial connects to the relay's WebSocket endpoint
func Dial(ctx context.Context, url string) (*Conn, error) {
	ws, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return &Conn{
		ws:     ws,
		out:    make(chan outMsg, outboxSize),
		frames: make(chan []byte, inboxSize),
		events: make(chan lobby.InEnvelope, 16),
		closed: make(chan struct{}),
	}, nil
}

// Frames returns the inbound game frame queue. It is closed when the reader
// stops.
func (c *Conn) Frames() <-chan []byte { return c.frames }

// Events returns the inbound control message queue
func (c *Conn) Events() <-chan lobby.InEnvelope { return c.events }

// Send implements netsync.Sender
func (c *Conn) Send(ctx context.Context, frame []byte) error {
	return c.enqueue(ctx, outMsg{typ: websocket.BinaryMessage, data: frame})
}

// SendControl queues a lobby message
func (c *Conn) SendControl(ctx context.Context, t string, data any) error {
	raw, err := json.Marshal(lobby.Envelope{T: t, Data: data})
	if err != nil {
		return err
	}
	return c.enqueue(ctx, outMsg{typ: websocket.TextMessage, data: raw})
}

func (c *Conn) enqueue(ctx context.Context, m outMsg) error {
	select {
	case c.out <- m:
		return nil
	case <-c.closed:
		return ErrDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ReadLoop pumps the socket into Frames and Events until the socket fails.
// WriteLoop closes the socket when ctx ends, which unblocks the read.
func (c *Conn) ReadLoop(ctx context.Context) error {
	defer close(c.frames)
	defer close(c.closed)

	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	c.ws.SetPingHandler(func(data string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return c.ws.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		msgType, raw, err := c.ws.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return ErrDisconnected
			}
			return fmt.Errorf("read: %w", err)
		}

		if msgType == websocket.BinaryMessage {
			select {
			case c.frames <- raw:
			case <-ctx.Done():
				return nil
			}
			continue
		}

		var env lobby.InEnvelope
		if err := json.Unmarshal(raw, &env); err != nil {
			slog.Debug("bad control message", "err", err)
			continue
		}
		select {
		case c.events <- env:
		case <-ctx.Done():
			return nil
		}
	}
}

// WriteLoop drains the outbox onto the socket and keeps the link alive
func (c *Conn) WriteLoop(ctx context.Context) error {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case m := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(m.typ, m.data); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return fmt.Errorf("write: %w", err)
			}
		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return fmt.Errorf("ping: %w", err)
			}
		case <-c.closed:
			return nil
		case <-ctx.Done():
			c.flush()
			c.ws.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return nil
		}
	}
}

// flush writes whatever is still queued, so a final game-over frame reaches
// the relay before the close
func (c *Conn) flush() {
	for {
		select {
		case m := <-c.out:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(m.typ, m.data); err != nil {
				return
			}
		default:
			return
		}
	}
}
