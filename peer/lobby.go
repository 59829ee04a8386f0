package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"stonebirds/game"
	"stonebirds/lobby"
)

var ErrBadRole = errors.New("role must be bird or stone")

// Seat describes how the peer takes its place in a room
type Seat struct {
	Room     string
	Role     lobby.Role
	Create   bool
	Password string
	Invite   string // overrides Room and Role when set
}

// LobbyError is an error reported by the relay
type LobbyError struct {
	lobby.ErrorMsg
}

func (e *LobbyError) Error() string { return fmt.Sprintf("relay: %s (%s)", e.Msg, e.Code) }

// Match is the outcome of the lobby phase
type Match struct {
	Room string
	Role lobby.Role
	Self string
}

// Mode maps the seat onto the game mode played locally
func (m Match) Mode() game.Mode {
	if m.Role == lobby.RoleBird {
		return game.ModeBirdPlayer
	}
	return game.ModeStonePlayer
}

// takeSeat creates or joins a room and blocks until both roles are present
func takeSeat(ctx context.Context, c *Conn, seat Seat) (Match, error) {
	var err error
	if seat.Create {
		err = c.SendControl(ctx, lobby.MsgCreate, lobby.CreateMsg{Room: seat.Room, Role: seat.Role, Password: seat.Password})
	} else {
		err = c.SendControl(ctx, lobby.MsgJoin, lobby.JoinMsg{Room: seat.Room, Role: seat.Role, Password: seat.Password, Invite: seat.Invite})
	}
	if err != nil {
		return Match{}, err
	}

	var match Match
	for {
		select {
		case <-ctx.Done():
			return Match{}, ctx.Err()
		case env, ok := <-c.Events():
			if !ok {
				return Match{}, ErrDisconnected
			}
			switch env.T {
			case lobby.MsgWelcome:
				var w lobby.WelcomeMsg
				if err := json.Unmarshal(env.D, &w); err == nil {
					match.Self = w.ID
				}
			case lobby.MsgCreated, lobby.MsgJoined:
				var s lobby.SeatMsg
				if err := json.Unmarshal(env.D, &s); err != nil {
					return Match{}, fmt.Errorf("decode %s: %w", env.T, err)
				}
				match.Room, match.Role = s.Room, s.Role
				slog.InfoContext(ctx, "seated", "room", s.Room, "role", s.Role)
				if seat.Create {
					requestInvite(ctx, c)
				}
			case lobby.MsgInvited:
				var inv lobby.InvitedMsg
				if err := json.Unmarshal(env.D, &inv); err == nil {
					slog.InfoContext(ctx, "invite ready", "url", inv.URL, "qr", inv.QR)
				}
			case lobby.MsgPeerLeft:
				slog.InfoContext(ctx, "opponent left the lobby")
			case lobby.MsgReady:
				slog.InfoContext(ctx, "match ready", "room", match.Room, "role", match.Role)
				return match, nil
			case lobby.MsgError:
				var e lobby.ErrorMsg
				if err := json.Unmarshal(env.D, &e); err != nil {
					return Match{}, fmt.Errorf("decode error: %w", err)
				}
				return Match{}, &LobbyError{e}
			}
		}
	}
}

func requestInvite(ctx context.Context, c *Conn) {
	if err := c.SendControl(ctx, lobby.MsgInvite, nil); err != nil {
		slog.WarnContext(ctx, "request invite", "err", err)
	}
}
