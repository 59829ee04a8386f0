package main

import (
	"errors"
	"testing"
	"time"

	"stonebirds/lobby"
)

// fakeMember records everything the registry sends it
type fakeMember struct {
	id     string
	msgs   []lobby.Envelope
	frames [][]byte
}

func newFake(id string) *fakeMember { return &fakeMember{id: id} }

func (f *fakeMember) PeerID() string { return f.id }

func (f *fakeMember) SendJSON(msg any) {
	if env, ok := msg.(lobby.Envelope); ok {
		f.msgs = append(f.msgs, env)
	}
}

func (f *fakeMember) SendBinary(frame []byte) { f.frames = append(f.frames, frame) }

func (f *fakeMember) count(t string) int {
	n := 0
	for _, m := range f.msgs {
		if m.T == t {
			n++
		}
	}
	return n
}

// mockEvents records room lifecycle callbacks
type mockEvents struct {
	ready     int
	abandoned []lobby.Role
	played    []time.Duration
}

func (m *mockEvents) RoomReady(*Room) { m.ready++ }

func (m *mockEvents) RoomAbandoned(_ *Room, left lobby.Role, played time.Duration) {
	m.abandoned = append(m.abandoned, left)
	m.played = append(m.played, played)
}

func TestCreateRoom(t *testing.T) {
	rr := NewRoomRegistry(nil)
	a := newFake("a")

	room, err := rr.Create(a, "  meadow ", lobby.RoleBird, "")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if room.Name != "meadow" {
		t.Errorf("expected trimmed name, got %q", room.Name)
	}
	if room.Member(lobby.RoleBird) != a {
		t.Error("creator should occupy the bird seat")
	}
	if a.count(lobby.MsgCreated) != 1 {
		t.Error("creator should get a created confirmation")
	}

	if _, err := rr.Create(newFake("b"), "meadow", lobby.RoleStone, ""); !errors.Is(err, ErrRoomExists) {
		t.Errorf("expected ErrRoomExists, got %v", err)
	}
	if _, err := rr.Create(newFake("c"), "", lobby.RoleStone, ""); !errors.Is(err, ErrBadRoomName) {
		t.Errorf("expected ErrBadRoomName, got %v", err)
	}
	if _, err := rr.Create(newFake("d"), "x", lobby.Role("tree"), ""); !errors.Is(err, ErrBadRole) {
		t.Errorf("expected ErrBadRole, got %v", err)
	}
}

func TestCreateVacatesPreviousRoom(t *testing.T) {
	rr := NewRoomRegistry(nil)
	a := newFake("a")
	rr.Create(a, "one", lobby.RoleBird, "")
	rr.Create(a, "two", lobby.RoleStone, "")

	if rr.Get("one") != nil {
		t.Error("emptied room should be deleted")
	}
	if rr.RoomOf(a) != rr.Get("two") {
		t.Error("creator should now be in the new room")
	}

	// a failed create leaves the creator where it was
	b := newFake("b")
	rr.Create(b, "three", lobby.RoleBird, "")
	if _, err := rr.Create(b, "two", lobby.RoleBird, ""); err == nil {
		t.Fatal("expected duplicate create to fail")
	}
	if rr.RoomOf(b) != rr.Get("three") {
		t.Error("failed create should not move the peer")
	}
}

func TestJoinFillsRoomAndSendsReadyOnce(t *testing.T) {
	events := &mockEvents{}
	rr := NewRoomRegistry(events)
	bird, stone := newFake("bird"), newFake("stone")

	rr.Create(bird, "arena", lobby.RoleBird, "")
	room, err := rr.Join(stone, "arena", lobby.RoleStone, JoinOpts{})
	if err != nil {
		t.Fatalf("join: %v", err)
	}
	if !room.Full() {
		t.Fatal("room should be full")
	}
	if bird.count(lobby.MsgReady) != 1 || stone.count(lobby.MsgReady) != 1 {
		t.Errorf("expected one ready each, got %d and %d", bird.count(lobby.MsgReady), stone.count(lobby.MsgReady))
	}
	if events.ready != 1 {
		t.Errorf("expected one ready event, got %d", events.ready)
	}
	// joined confirmation comes before ready
	last := stone.msgs[len(stone.msgs)-2:]
	if last[0].T != lobby.MsgJoined || last[1].T != lobby.MsgReady {
		t.Errorf("unexpected message order %v", last)
	}
}

func TestJoinOccupiedRoleFailsWithoutMutation(t *testing.T) {
	rr := NewRoomRegistry(nil)
	a, b, c := newFake("a"), newFake("b"), newFake("c")
	rr.Create(a, "arena", lobby.RoleBird, "")
	rr.Create(c, "elsewhere", lobby.RoleBird, "")

	if _, err := rr.Join(b, "arena", lobby.RoleBird, JoinOpts{}); !errors.Is(err, ErrRoleTaken) {
		t.Fatalf("expected ErrRoleTaken, got %v", err)
	}
	if _, err := rr.Join(c, "arena", lobby.RoleBird, JoinOpts{}); !errors.Is(err, ErrRoleTaken) {
		t.Fatalf("expected ErrRoleTaken, got %v", err)
	}
	room := rr.Get("arena")
	if len(room.seats) != 1 || room.Member(lobby.RoleBird) != a {
		t.Error("failed join changed the room")
	}
	if rr.RoomOf(b) != nil {
		t.Error("failed joiner should not be seated")
	}
	if rr.RoomOf(c) != rr.Get("elsewhere") {
		t.Error("failed join should not vacate the joiner's current room")
	}
}

func TestJoinErrors(t *testing.T) {
	rr := NewRoomRegistry(nil)
	a := newFake("a")
	rr.Create(a, "arena", lobby.RoleBird, "")

	if _, err := rr.Join(newFake("b"), "nowhere", lobby.RoleStone, JoinOpts{}); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("expected ErrRoomNotFound, got %v", err)
	}
	if _, err := rr.Join(a, "arena", lobby.RoleStone, JoinOpts{}); !errors.Is(err, ErrAlreadyInRoom) {
		t.Errorf("expected ErrAlreadyInRoom, got %v", err)
	}
	if _, err := rr.Join(newFake("b"), "arena", "", JoinOpts{}); !errors.Is(err, ErrBadRole) {
		t.Errorf("expected ErrBadRole, got %v", err)
	}
}

func TestJoinVacatesPreviousRoom(t *testing.T) {
	rr := NewRoomRegistry(nil)
	a, b, c := newFake("a"), newFake("b"), newFake("c")
	rr.Create(a, "one", lobby.RoleBird, "")
	rr.Join(b, "one", lobby.RoleStone, JoinOpts{})
	rr.Create(c, "two", lobby.RoleBird, "")

	if _, err := rr.Join(b, "two", lobby.RoleStone, JoinOpts{}); err != nil {
		t.Fatalf("join: %v", err)
	}
	if a.count(lobby.MsgPeerLeft) != 1 {
		t.Error("occupant of the old room should hear that the stone left")
	}
	if rr.Get("one").Full() {
		t.Error("old room should have a free seat")
	}
}

func TestPrivateRoom(t *testing.T) {
	rr := NewRoomRegistry(nil)
	rr.Create(newFake("a"), "secret", lobby.RoleStone, "hunter2")

	if _, err := rr.Join(newFake("b"), "secret", lobby.RoleBird, JoinOpts{Password: "nope"}); !errors.Is(err, ErrBadPassword) {
		t.Errorf("expected ErrBadPassword, got %v", err)
	}
	if _, err := rr.Join(newFake("b"), "secret", lobby.RoleBird, JoinOpts{Password: "hunter2"}); err != nil {
		t.Errorf("correct password should join: %v", err)
	}

	rr.Create(newFake("c"), "secret2", lobby.RoleStone, "pw")
	if _, err := rr.Join(newFake("d"), "secret2", lobby.RoleBird, JoinOpts{Invited: true}); err != nil {
		t.Errorf("invited join should skip the password: %v", err)
	}
}

func TestLeave(t *testing.T) {
	events := &mockEvents{}
	rr := NewRoomRegistry(events)
	bird, stone := newFake("bird"), newFake("stone")
	rr.Create(bird, "arena", lobby.RoleBird, "")
	rr.Join(stone, "arena", lobby.RoleStone, JoinOpts{})

	if _, ok := rr.Leave(stone); !ok {
		t.Fatal("leave should succeed")
	}
	if bird.count(lobby.MsgPeerLeft) != 1 {
		t.Fatal("remaining occupant should be told")
	}
	left := bird.msgs[len(bird.msgs)-1].Data.(lobby.PeerLeftMsg)
	if left.Role != lobby.RoleStone {
		t.Errorf("expected stone to have left, got %s", left.Role)
	}
	if len(events.abandoned) != 1 || events.abandoned[0] != lobby.RoleStone {
		t.Errorf("expected an abandon by stone, got %v", events.abandoned)
	}

	rr.Leave(bird)
	if rr.Get("arena") != nil || rr.Len() != 0 {
		t.Error("empty room should be deleted")
	}
	if _, ok := rr.Leave(bird); ok {
		t.Error("leaving twice should be a no-op")
	}
}

func TestAbandonUsesRegistryClock(t *testing.T) {
	events := &mockEvents{}
	rr := NewRoomRegistry(events)
	clock := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	rr.now = func() time.Time { return clock }

	bird, stone := newFake("bird"), newFake("stone")
	rr.Create(bird, "arena", lobby.RoleBird, "")
	rr.Join(stone, "arena", lobby.RoleStone, JoinOpts{})
	clock = clock.Add(42 * time.Second)
	rr.Leave(bird)

	if len(events.played) != 1 || events.played[0] != 42*time.Second {
		t.Errorf("expected 42s played by the registry clock, got %v", events.played)
	}
}

func TestFinishedMatchIsNotAbandoned(t *testing.T) {
	events := &mockEvents{}
	rr := NewRoomRegistry(events)
	bird, stone := newFake("bird"), newFake("stone")
	rr.Create(bird, "arena", lobby.RoleBird, "")
	room, _ := rr.Join(stone, "arena", lobby.RoleStone, JoinOpts{})

	if !rr.Finish(room) {
		t.Fatal("first finish should succeed")
	}
	if rr.Finish(room) {
		t.Error("second finish should be ignored")
	}
	rr.Leave(bird)
	if len(events.abandoned) != 0 {
		t.Errorf("decided match reported as abandoned: %v", events.abandoned)
	}
}

func TestListRoomsFiltersByRole(t *testing.T) {
	rr := NewRoomRegistry(nil)
	rr.Create(newFake("1"), "charlie", lobby.RoleBird, "")
	rr.Create(newFake("2"), "alpha", lobby.RoleStone, "")
	rr.Create(newFake("3"), "bravo", lobby.RoleStone, "pw")
	rr.Create(newFake("4"), "full", lobby.RoleBird, "")
	rr.Join(newFake("5"), "full", lobby.RoleStone, JoinOpts{})

	birds := rr.List(lobby.RoleBird)
	if len(birds) != 2 || birds[0].Name != "alpha" || birds[1].Name != "bravo" {
		t.Errorf("unexpected bird list %+v", birds)
	}
	if !birds[1].Private {
		t.Error("bravo should be listed as private")
	}
	stones := rr.List(lobby.RoleStone)
	if len(stones) != 1 || stones[0].Name != "charlie" {
		t.Errorf("unexpected stone list %+v", stones)
	}
	all := rr.List("")
	if len(all) != 3 {
		t.Errorf("expected 3 joinable rooms, got %+v", all)
	}
	for _, info := range all {
		if info.Name == "charlie" && info.Open != lobby.RoleStone {
			t.Errorf("charlie should offer the stone seat, got %s", info.Open)
		}
	}
}

func TestErrorMsgCodes(t *testing.T) {
	if got := errorMsg(ErrRoleTaken); got.Code != "role_taken" {
		t.Errorf("unexpected code %q", got.Code)
	}
	if got := errorMsg(errors.New("boom")); got.Code != "internal" {
		t.Errorf("unexpected code %q", got.Code)
	}
}
