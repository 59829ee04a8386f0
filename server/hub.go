package main

import (
	"context"
	"errors"
	"log/slog"
	"net/url"
	"sync"

	"stonebirds/lobby"
	"stonebirds/netsync"
)

const (
	maxConnsPerIP = 5
	maxTotalConns = 1000
	cmdBufSize    = 256
)

var ErrHubStopped = errors.New("hub stopped")

// Hub owns every connection and the room registry. All room state is touched
// only from the Run goroutine; other goroutines hand it work through Submit.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	cmds       chan func()
	done       chan struct{}
	rooms      *RoomRegistry
	matches    *MatchLog
	invites    *Invites
	publicURL  string
	// Connection limiting (mutex-protected, accessed from HTTP handlers)
	connMu     sync.Mutex
	ipConns    map[string]int
	totalConns int
}

// NewHub creates a new Hub. matches may be nil.
func NewHub(matches *MatchLog, invites *Invites, publicURL string) *Hub {
	h := &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		cmds:       make(chan func(), cmdBufSize),
		done:       make(chan struct{}),
		matches:    matches,
		invites:    invites,
		publicURL:  publicURL,
		ipConns:    make(map[string]int),
	}
	var events RoomEvents
	if matches != nil {
		events = matches
	}
	h.rooms = NewRoomRegistry(events)
	return h
}

func (h *Hub) CanAccept(ip string) bool {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	if h.totalConns >= maxTotalConns {
		return false
	}
	if h.ipConns[ip] >= maxConnsPerIP {
		return false
	}
	return true
}

func (h *Hub) TrackConnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]++
	h.totalConns++
}

func (h *Hub) TrackDisconnect(ip string) {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	h.ipConns[ip]--
	if h.ipConns[ip] <= 0 {
		delete(h.ipConns, ip)
	}
	h.totalConns--
}

// TotalConns returns the tracked connection count
func (h *Hub) TotalConns() int {
	h.connMu.Lock()
	defer h.connMu.Unlock()
	return h.totalConns
}

// Register hands a new client to the hub
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client and vacates its seat
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// Submit queues fn to run on the hub goroutine. It reports false once the hub
// has stopped.
func (h *Hub) Submit(fn func()) bool {
	select {
	case h.cmds <- fn:
		return true
	case <-h.done:
		return false
	}
}

// exec runs fn on the hub goroutine and waits for it to finish
func (h *Hub) exec(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	select {
	case h.cmds <- func() { fn(); close(finished) }:
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-h.done:
		return ErrHubStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes register/unregister events and queued commands until ctx ends
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case client := <-h.register:
			h.clients[client] = true
			client.SendJSON(lobby.Envelope{T: lobby.MsgWelcome, Data: lobby.WelcomeMsg{ID: client.id}})

		case client := <-h.unregister:
			if _, ok := h.clients[client]; ok {
				h.rooms.Leave(client)
				delete(h.clients, client)
				client.closed = true
				close(client.send)
			}

		case fn := <-h.cmds:
			fn()

		case <-ctx.Done():
			for client := range h.clients {
				client.closed = true
				close(client.send)
			}
			clear(h.clients)
			slog.Info("hub stopped")
			return
		}
	}
}

// relay forwards a game frame to the sender's opponent. Frames from peers that
// are not in a full room are dropped. A game-over frame also decides the match.
func (h *Hub) relay(c *Client, frame []byte) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	room := h.rooms.RoomOf(c)
	if room == nil || !room.Full() {
		return
	}
	kind, ok := netsync.PeekKind(frame)
	if !ok || !kind.Valid() {
		slog.Debug("dropping unknown frame", "peer", c.id)
		return
	}
	opp := room.Opponent(c)
	if opp == nil {
		return
	}
	opp.SendBinary(frame)

	if kind == netsync.KindGameOver && h.rooms.Finish(room) {
		loser, _ := room.RoleOf(c)
		slog.Info("match over", "room", room.Name, "winner", loser.Other())
		if h.matches != nil {
			h.matches.Track(MatchEvent{
				Type:     EvtMatchOver,
				Room:     room.Name,
				Winner:   loser.Other(),
				Loser:    loser,
				Duration: h.rooms.now().Sub(room.StartedAt),
			})
		}
	}
}

// ListRooms returns the rooms joinable in role
func (h *Hub) ListRooms(ctx context.Context, role lobby.Role) ([]lobby.RoomInfo, error) {
	var list []lobby.RoomInfo
	err := h.exec(ctx, func() { list = h.rooms.List(role) })
	return list, err
}

// RoomCount returns the number of open rooms
func (h *Hub) RoomCount(ctx context.Context) (int, error) {
	var n int
	err := h.exec(ctx, func() { n = h.rooms.Len() })
	return n, err
}

func (h *Hub) inviteURL(token string) string {
	return h.publicURL + "/join?invite=" + url.QueryEscape(token)
}
