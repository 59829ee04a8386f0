package main

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"stonebirds/lobby"
)

const (
	writeWait        = 10 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	maxMessageSize   = 16 * 1024
	sendBufSize      = 512
	maxControlPerSec = 20

	// A peer sends one state frame per owned entity per tick: the stone and
	// every berry, or both birds and every live dropping.
	frameTickRate    = 60
	maxFramesPerTick = 24
	maxFramesPerSec  = frameTickRate * maxFramesPerTick
)

// Client represents a WebSocket connection
type Client struct {
	hub        *Hub
	conn       *websocket.Conn
	send       chan []byte
	id         string
	remoteAddr string
	closed     bool // set by the hub when send is closed
	ctrlCount  int
	frameCount int
	msgResetAt time.Time
}

// NewClient creates a new Client
func NewClient(hub *Hub, conn *websocket.Conn, remoteAddr string) *Client {
	return &Client{
		hub:        hub,
		conn:       conn,
		send:       make(chan []byte, sendBufSize),
		id:         uuid.NewString(),
		remoteAddr: remoteAddr,
	}
}

// PeerID implements Member
func (c *Client) PeerID() string { return c.id }

// ReadPump reads messages from the WebSocket connection
func (c *Client) ReadPump() {
	defer func() {
		c.hub.TrackDisconnect(c.remoteAddr)
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		msgType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("ws read error", "peer", c.id, "err", err)
			}
			break
		}

		if !c.allow(msgType) {
			slog.Warn("rate limit exceeded, disconnecting", "peer", c.id, "addr", c.remoteAddr, "binary", msgType == websocket.BinaryMessage)
			break
		}

		if msgType == websocket.BinaryMessage {
			if !c.hub.Submit(func() { c.hub.relay(c, message) }) {
				break
			}
			continue
		}
		if !c.hub.Submit(func() { c.handleMessage(message) }) {
			break
		}
	}
}

// allow counts one message against its per-second budget. Game frames and
// lobby messages are limited separately.
func (c *Client) allow(msgType int) bool {
	now := time.Now()
	if now.After(c.msgResetAt) {
		c.ctrlCount, c.frameCount = 0, 0
		c.msgResetAt = now.Add(time.Second)
	}
	if msgType == websocket.BinaryMessage {
		c.frameCount++
		return c.frameCount <= maxFramesPerSec
	}
	c.ctrlCount++
	return c.ctrlCount <= maxControlPerSec
}

// WritePump writes messages to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// Check for binary marker (0xFF prefix from SendBinary)
			var err error
			if len(message) > 0 && message[0] == 0xFF {
				err = c.conn.WriteMessage(websocket.BinaryMessage, message[1:])
			} else {
				err = c.conn.WriteMessage(websocket.TextMessage, message)
			}
			if err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// SendJSON sends a JSON message to the client. Hub goroutine only.
func (c *Client) SendJSON(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		slog.Error("marshal error", "err", err)
		return
	}
	c.SendRaw(data)
}

// SendRaw sends pre-marshaled bytes as a text message to the client
func (c *Client) SendRaw(data []byte) {
	if c.closed {
		return
	}
	select {
	case c.send <- data:
	default:
		// Client too slow, drop message
	}
}

// SendBinary sends pre-marshaled bytes as a binary WebSocket message
// Prefixes with 0xFF marker byte so WritePump can distinguish from text
func (c *Client) SendBinary(data []byte) {
	if c.closed {
		return
	}
	msg := make([]byte, len(data)+1)
	msg[0] = 0xFF // binary marker
	copy(msg[1:], data)
	select {
	case c.send <- msg:
	default:
	}
}

func (c *Client) sendError(err error) {
	c.SendJSON(lobby.Envelope{T: lobby.MsgError, Data: errorMsg(err)})
}

// handleMessage routes incoming messages (single-pass decode via InEnvelope).
// It runs on the hub goroutine.
func (c *Client) handleMessage(raw []byte) {
	var env lobby.InEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		slog.Debug("unmarshal error", "peer", c.id, "err", err)
		return
	}

	switch env.T {
	case lobby.MsgList:
		c.handleList(env.D)
	case lobby.MsgCreate:
		c.handleCreate(env.D)
	case lobby.MsgJoin:
		c.handleJoin(env.D)
	case lobby.MsgLeave:
		c.handleLeave()
	case lobby.MsgInvite:
		c.handleInvite()
	default:
		slog.Debug("unknown message type", "peer", c.id, "t", env.T)
	}
}

func (c *Client) handleList(data json.RawMessage) {
	var msg lobby.ListMsg
	if len(data) > 0 {
		if err := json.Unmarshal(data, &msg); err != nil {
			return
		}
	}
	c.SendJSON(lobby.Envelope{T: lobby.MsgRooms, Data: c.hub.rooms.List(msg.Role)})
}

func (c *Client) handleCreate(data json.RawMessage) {
	var msg lobby.CreateMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	if _, err := c.hub.rooms.Create(c, msg.Room, msg.Role, msg.Password); err != nil {
		c.sendError(err)
	}
}

func (c *Client) handleJoin(data json.RawMessage) {
	var msg lobby.JoinMsg
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}
	opts := JoinOpts{Password: msg.Password}
	if msg.Invite != "" {
		room, role, err := c.hub.invites.Parse(msg.Invite)
		if err != nil {
			slog.Debug("invite rejected", "peer", c.id, "err", err)
			c.sendError(err)
			return
		}
		msg.Room, msg.Role = room, role
		opts.Invited = true
	}
	if _, err := c.hub.rooms.Join(c, msg.Room, msg.Role, opts); err != nil {
		c.sendError(err)
	}
}

func (c *Client) handleLeave() {
	room, ok := c.hub.rooms.Leave(c)
	if !ok {
		c.sendError(ErrNotInRoom)
		return
	}
	c.SendJSON(lobby.Envelope{T: lobby.MsgLeft, Data: lobby.SeatMsg{Room: room.Name}})
}

func (c *Client) handleInvite() {
	room := c.hub.rooms.RoomOf(c)
	if room == nil {
		c.sendError(ErrNotInRoom)
		return
	}
	role, _ := room.RoleOf(c)
	open := role.Other()
	if room.Member(open) != nil {
		c.sendError(ErrRoleTaken)
		return
	}
	token, err := c.hub.invites.Issue(room.Name, open)
	if err != nil {
		slog.Error("issue invite", "room", room.Name, "err", err)
		c.sendError(err)
		return
	}
	c.SendJSON(lobby.Envelope{T: lobby.MsgInvited, Data: lobby.InvitedMsg{
		Token: token,
		URL:   c.hub.inviteURL(token),
		QR:    "/invite/" + token + ".png",
	}})
}
