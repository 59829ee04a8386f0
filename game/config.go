package game

import (
	"fmt"

	"github.com/BurntSushi/toml"
)

// Config holds the tuning constants of a match. Values are in normalized world
// units (16×9 by default) and seconds. The simulation never writes to it.
type Config struct {
	WorldWidth    float64 `toml:"world_width"`
	WorldHeight   float64 `toml:"world_height"`
	FloorOffset   float64 `toml:"floor_offset"`   // circles rest this far above the bottom edge
	Bounce        float64 `toml:"bounce"`         // velocity kept (and reversed) on a wall hit
	RestThreshold float64 `toml:"rest_threshold"` // vertical speed below which a floor hit stops
	MaxDeltaTime  float64 `toml:"max_delta_time"`

	DamageMultiplier   float64 `toml:"damage_multiplier"`
	ContactRestitution float64 `toml:"contact_restitution"`

	StoneSize      float64 `toml:"stone_size"`
	StoneMaxHealth float64 `toml:"stone_max_health"`
	StoneGravity   float64 `toml:"stone_gravity"`
	StoneFriction  float64 `toml:"stone_friction"`

	BirdWidth     float64 `toml:"bird_width"`
	BirdHeight    float64 `toml:"bird_height"`
	BirdMaxHealth float64 `toml:"bird_max_health"`
	BirdGravity   float64 `toml:"bird_gravity"`
	BirdFriction  float64 `toml:"bird_friction"`
	BirdSpeed     float64 `toml:"bird_speed"`

	BerrySize          float64 `toml:"berry_size"`
	BerryHealFraction  float64 `toml:"berry_heal_fraction"`
	BerrySpriteCount   int     `toml:"berry_sprite_count"`
	MaxBerriesTotal    int     `toml:"max_berries_total"`
	MaxBerriesPerTree  int     `toml:"max_berries_per_tree"`
	BerrySpawnMin      float64 `toml:"berry_spawn_min"`
	BerrySpawnMax      float64 `toml:"berry_spawn_max"`
	BerryPlaceAttempts int     `toml:"berry_place_attempts"`

	PoopSize          float64 `toml:"poop_size"`
	PoopGravity       float64 `toml:"poop_gravity"`
	PoopDamage        float64 `toml:"poop_damage"`
	PoopLandedTimeout float64 `toml:"poop_landed_timeout"`

	TreeWidth  float64 `toml:"tree_width"`
	TreeHeight float64 `toml:"tree_height"`
}

// DefaultConfig returns the stock tuning.
func DefaultConfig() Config {
	return Config{
		WorldWidth:    16,
		WorldHeight:   9,
		FloorOffset:   0.9,
		Bounce:        0.5,
		RestThreshold: 1.0,
		MaxDeltaTime:  1.0 / 30.0,

		DamageMultiplier:   1.0,
		ContactRestitution: 0.5,

		StoneSize:      0.6,
		StoneMaxHealth: 100,
		StoneGravity:   9.8,
		StoneFriction:  0.995,

		BirdWidth:     0.9,
		BirdHeight:    0.6,
		BirdMaxHealth: 100,
		BirdGravity:   0,
		BirdFriction:  0.9,
		BirdSpeed:     5,

		BerrySize:          0.3,
		BerryHealFraction:  0.1,
		BerrySpriteCount:   3,
		MaxBerriesTotal:    8,
		MaxBerriesPerTree:  5,
		BerrySpawnMin:      2,
		BerrySpawnMax:      5,
		BerryPlaceAttempts: 15,

		PoopSize:          0.25,
		PoopGravity:       6,
		PoopDamage:        10,
		PoopLandedTimeout: 3,

		TreeWidth:  3,
		TreeHeight: 5,
	}
}

// LoadConfig reads a TOML tuning file on top of the defaults. Keys missing from
// the file keep their default value.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects tunings the simulation cannot run with.
func (c Config) Validate() error {
	switch {
	case c.WorldWidth <= 0 || c.WorldHeight <= 0:
		return fmt.Errorf("world size must be positive")
	case c.MaxDeltaTime <= 0:
		return fmt.Errorf("max_delta_time must be positive")
	case c.BerrySpawnMin < 0 || c.BerrySpawnMax < c.BerrySpawnMin:
		return fmt.Errorf("berry spawn window [%v,%v] is invalid", c.BerrySpawnMin, c.BerrySpawnMax)
	case c.BerryPlaceAttempts <= 0:
		return fmt.Errorf("berry_place_attempts must be positive")
	}
	return nil
}
