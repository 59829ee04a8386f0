// Package lobby holds the JSON control protocol spoken between peers and the
// relay. Game frames travel as binary messages and are not described here.
package lobby

import "encoding/json"

// Client -> Server message types
const (
	MsgList   = "list"   // list joinable rooms
	MsgCreate = "create" // create a room and take a role in it
	MsgJoin   = "join"   // join an existing room
	MsgLeave  = "leave"  // leave the current room
	MsgInvite = "invite" // request an invite for the open role
)

// Server -> Client message types
const (
	MsgWelcome  = "welcome"
	MsgRooms    = "rooms"
	MsgCreated  = "created"
	MsgJoined   = "joined"
	MsgReady    = "ready"     // both roles present
	MsgPeerLeft = "peer_left" // the other occupant left or disconnected
	MsgLeft     = "left"
	MsgInvited  = "invited"
	MsgError    = "error"
)

// Role is the side a peer plays in a room
type Role string

const (
	RoleBird  Role = "bird"
	RoleStone Role = "stone"
)

// Valid reports whether r is one of the two roles
func (r Role) Valid() bool {
	return r == RoleBird || r == RoleStone
}

// Other returns the opposite role
func (r Role) Other() Role {
	if r == RoleBird {
		return RoleStone
	}
	return RoleBird
}

// Envelope wraps all outgoing messages with a type field
type Envelope struct {
	T    string `json:"t"`
	Data any    `json:"d,omitempty"`
}

// InEnvelope is used for incoming messages; D stays raw until the type is known
type InEnvelope struct {
	T string          `json:"t"`
	D json.RawMessage `json:"d,omitempty"`
}

// ListMsg asks for the rooms that still have role open
type ListMsg struct {
	Role Role `json:"role"`
}

// CreateMsg creates a room. An empty password makes it public.
type CreateMsg struct {
	Room     string `json:"room"`
	Role     Role   `json:"role"`
	Password string `json:"password,omitempty"`
}

// JoinMsg joins a room. A valid invite token stands in for room, role and
// password.
type JoinMsg struct {
	Room     string `json:"room,omitempty"`
	Role     Role   `json:"role,omitempty"`
	Password string `json:"password,omitempty"`
	Invite   string `json:"invite,omitempty"`
}

// WelcomeMsg is sent once per connection
type WelcomeMsg struct {
	ID string `json:"id"`
}

// RoomInfo is used in the room list
type RoomInfo struct {
	Name     string `json:"name"`
	Open     Role   `json:"open"`
	Private  bool   `json:"private,omitempty"`
	Occupied int    `json:"occupied"`
}

// SeatMsg confirms a create or join
type SeatMsg struct {
	Room string `json:"room"`
	Role Role   `json:"role"`
}

// ReadyMsg tells both occupants the match can start
type ReadyMsg struct {
	Room  string `json:"room"`
	Bird  string `json:"bird"`
	Stone string `json:"stone"`
}

// PeerLeftMsg tells the remaining occupant which role went away
type PeerLeftMsg struct {
	Room string `json:"room"`
	Role Role   `json:"role"`
}

// InvitedMsg carries a signed invite for the open role
type InvitedMsg struct {
	Token string `json:"token"`
	URL   string `json:"url"`
	QR    string `json:"qr"` // path of the PNG rendering
}

// ErrorMsg sends error to client
type ErrorMsg struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
