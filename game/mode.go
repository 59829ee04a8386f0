package game

// Mode selects which side of the match the local peer plays
type Mode string

const (
	ModeSingleplayer Mode = "singleplayer"
	ModeBirdPlayer   Mode = "birdplayer"
	ModeStonePlayer  Mode = "stoneplayer"
)

// Valid reports whether m is a known mode
func (m Mode) Valid() bool {
	switch m {
	case ModeSingleplayer, ModeBirdPlayer, ModeStonePlayer:
		return true
	}
	return false
}

// Owns reports whether a peer in mode is authoritative for entities of kind.
// The bird peer owns both birds and the poop it drops; the stone peer owns the
// stone and the berries it spawns. Static scenery is local everywhere.
func Owns(mode Mode, kind Kind) bool {
	switch mode {
	case ModeBirdPlayer:
		return kind != KindStone && kind != KindBerry
	case ModeStonePlayer:
		return kind != KindBird && kind != KindPoop
	}
	return true
}
