package main

import (
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"stonebirds/lobby"
)

const (
	maxRooms       = 100
	maxRoomNameLen = 30
	bcryptCost     = 10
)

// RoomError is a room operation failure with a stable wire code
type RoomError struct {
	Code string
	Msg  string
}

func (e *RoomError) Error() string { return e.Msg }

var (
	ErrRoomExists    = &RoomError{"room_exists", "room already exists"}
	ErrRoomNotFound  = &RoomError{"room_not_found", "room not found"}
	ErrRoleTaken     = &RoomError{"role_taken", "role already taken"}
	ErrBadRole       = &RoomError{"bad_role", "role must be bird or stone"}
	ErrBadRoomName   = &RoomError{"bad_room_name", "invalid room name"}
	ErrBadPassword   = &RoomError{"bad_password", "wrong room password"}
	ErrAlreadyInRoom = &RoomError{"already_in_room", "already in this room"}
	ErrNotInRoom     = &RoomError{"not_in_room", "not in a room"}
	ErrTooManyRooms  = &RoomError{"too_many_rooms", "too many active rooms"}
	ErrBadInvite     = &RoomError{"bad_invite", "invalid or expired invite"}
)

// errorMsg maps any error onto the wire error payload
func errorMsg(err error) lobby.ErrorMsg {
	var re *RoomError
	if errors.As(err, &re) {
		return lobby.ErrorMsg{Code: re.Code, Msg: re.Msg}
	}
	return lobby.ErrorMsg{Code: "internal", Msg: "internal error"}
}

// Member is a room occupant as the registry sees it
type Member interface {
	PeerID() string
	SendJSON(msg any)
	SendBinary(frame []byte)
}

// Room holds up to one member per role
type Room struct {
	Name      string
	CreatedAt time.Time
	StartedAt time.Time // set when both roles are filled

	passHash []byte
	seats    map[lobby.Role]Member
	finished bool
}

// Private reports whether joining requires a password
func (r *Room) Private() bool { return len(r.passHash) > 0 }

// Member returns the occupant of role, or nil
func (r *Room) Member(role lobby.Role) Member { return r.seats[role] }

// Full reports whether both roles are occupied
func (r *Room) Full() bool { return len(r.seats) == 2 }

// RoleOf returns the role m occupies in r
func (r *Room) RoleOf(m Member) (lobby.Role, bool) {
	for role, occ := range r.seats {
		if occ.PeerID() == m.PeerID() {
			return role, true
		}
	}
	return "", false
}

// Opponent returns the member sitting opposite m
func (r *Room) Opponent(m Member) Member {
	role, ok := r.RoleOf(m)
	if !ok {
		return nil
	}
	return r.seats[role.Other()]
}

func (r *Room) broadcast(msg any) {
	for _, m := range r.seats {
		m.SendJSON(msg)
	}
}

// RoomEvents receives room lifecycle transitions
type RoomEvents interface {
	RoomReady(r *Room)
	RoomAbandoned(r *Room, left lobby.Role, played time.Duration)
}

// RoomRegistry is the relay's set of rooms. It is not safe for concurrent use:
// the hub goroutine owns it and is the only caller.
type RoomRegistry struct {
	rooms  map[string]*Room
	where  map[string]string // peer id -> room name
	events RoomEvents
	now    func() time.Time
}

// NewRoomRegistry creates an empty registry. events may be nil.
func NewRoomRegistry(events RoomEvents) *RoomRegistry {
	return &RoomRegistry{
		rooms:  make(map[string]*Room),
		where:  make(map[string]string),
		events: events,
		now:    time.Now,
	}
}

func normalizeRoomName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" || len(name) > maxRoomNameLen {
		return "", ErrBadRoomName
	}
	return name, nil
}

// Create opens a new room with m seated in role and confirms the seat to m.
// m leaves its previous room only once the new room is known to be valid.
func (rr *RoomRegistry) Create(m Member, name string, role lobby.Role, password string) (*Room, error) {
	name, err := normalizeRoomName(name)
	if err != nil {
		return nil, err
	}
	if !role.Valid() {
		return nil, ErrBadRole
	}
	if _, ok := rr.rooms[name]; ok {
		return nil, ErrRoomExists
	}
	if len(rr.rooms) >= maxRooms {
		return nil, ErrTooManyRooms
	}

	room := &Room{
		Name:      name,
		CreatedAt: rr.now(),
		seats:     make(map[lobby.Role]Member, 2),
	}
	if password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
		if err != nil {
			return nil, err
		}
		room.passHash = hash
	}

	rr.Leave(m)
	room.seats[role] = m
	rr.rooms[name] = room
	rr.where[m.PeerID()] = name
	m.SendJSON(lobby.Envelope{T: lobby.MsgCreated, Data: lobby.SeatMsg{Room: name, Role: role}})
	slog.Info("room created", "room", name, "role", role, "peer", m.PeerID(), "private", room.Private())
	return room, nil
}

// JoinOpts carries the credentials of a join
type JoinOpts struct {
	Password string
	Invited  bool // a verified invite skips the password check
}

// Join seats m in role of an existing room. A failed join changes nothing. On
// success m leaves its previous room first, and when both roles fill the
// whole room gets ready exactly once.
func (rr *RoomRegistry) Join(m Member, name string, role lobby.Role, opts JoinOpts) (*Room, error) {
	name = strings.TrimSpace(name)
	if !role.Valid() {
		return nil, ErrBadRole
	}
	room, ok := rr.rooms[name]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if rr.where[m.PeerID()] == name {
		return nil, ErrAlreadyInRoom
	}
	if room.seats[role] != nil {
		return nil, ErrRoleTaken
	}
	if room.Private() && !opts.Invited {
		if bcrypt.CompareHashAndPassword(room.passHash, []byte(opts.Password)) != nil {
			return nil, ErrBadPassword
		}
	}

	rr.Leave(m)
	room.seats[role] = m
	rr.where[m.PeerID()] = name
	m.SendJSON(lobby.Envelope{T: lobby.MsgJoined, Data: lobby.SeatMsg{Room: name, Role: role}})
	slog.Info("room joined", "room", name, "role", role, "peer", m.PeerID())

	if room.Full() {
		room.StartedAt = rr.now()
		room.finished = false
		room.broadcast(lobby.Envelope{T: lobby.MsgReady, Data: lobby.ReadyMsg{
			Room:  name,
			Bird:  room.seats[lobby.RoleBird].PeerID(),
			Stone: room.seats[lobby.RoleStone].PeerID(),
		}})
		if rr.events != nil {
			rr.events.RoomReady(room)
		}
	}
	return room, nil
}

// Leave vacates m's seat. An emptied room is deleted; otherwise the remaining
// occupant learns which role left. Leaving while in no room is a no-op.
func (rr *RoomRegistry) Leave(m Member) (*Room, bool) {
	name, ok := rr.where[m.PeerID()]
	if !ok {
		return nil, false
	}
	delete(rr.where, m.PeerID())
	room := rr.rooms[name]
	if room == nil {
		return nil, false
	}
	role, ok := room.RoleOf(m)
	if !ok {
		return room, false
	}
	wasFull := room.Full()
	delete(room.seats, role)

	if wasFull && !room.finished && rr.events != nil {
		rr.events.RoomAbandoned(room, role, rr.now().Sub(room.StartedAt))
	}
	room.finished = false
	if len(room.seats) == 0 {
		delete(rr.rooms, name)
		slog.Info("room closed", "room", name)
		return room, true
	}
	room.broadcast(lobby.Envelope{T: lobby.MsgPeerLeft, Data: lobby.PeerLeftMsg{Room: name, Role: role}})
	slog.Info("room left", "room", name, "role", role, "peer", m.PeerID())
	return room, true
}

// Finish marks the running match in room as decided so a later leave is not
// counted as an abandon. It reports false if the match was already decided.
func (rr *RoomRegistry) Finish(room *Room) bool {
	if room.finished || !room.Full() {
		return false
	}
	room.finished = true
	return true
}

// RoomOf returns the room m sits in
func (rr *RoomRegistry) RoomOf(m Member) *Room {
	name, ok := rr.where[m.PeerID()]
	if !ok {
		return nil
	}
	return rr.rooms[name]
}

// Get returns a room by name
func (rr *RoomRegistry) Get(name string) *Room {
	return rr.rooms[strings.TrimSpace(name)]
}

// Len returns the number of open rooms
func (rr *RoomRegistry) Len() int { return len(rr.rooms) }

// List returns the rooms a peer wanting role could join, sorted by name. An
// invalid role lists every room with a free seat.
func (rr *RoomRegistry) List(role lobby.Role) []lobby.RoomInfo {
	list := make([]lobby.RoomInfo, 0, len(rr.rooms))
	for _, room := range rr.rooms {
		open := role
		if !role.Valid() {
			if room.Full() {
				continue
			}
			open = lobby.RoleBird
			if room.seats[lobby.RoleBird] != nil {
				open = lobby.RoleStone
			}
		}
		if room.seats[open] != nil {
			continue
		}
		list = append(list, lobby.RoomInfo{
			Name:     room.Name,
			Open:     open,
			Private:  room.Private(),
			Occupied: len(room.seats),
		})
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}
