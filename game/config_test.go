package game

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tuning.toml")
	data := "poop_damage = 25.0\nmax_berries_per_tree = 2\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.PoopDamage != 25 {
		t.Errorf("expected poop damage 25, got %v", cfg.PoopDamage)
	}
	if cfg.MaxBerriesPerTree != 2 {
		t.Errorf("expected 2 berries per tree, got %d", cfg.MaxBerriesPerTree)
	}
	if cfg.WorldWidth != DefaultConfig().WorldWidth {
		t.Errorf("missing keys should keep defaults, got width %v", cfg.WorldWidth)
	}
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	if err := os.WriteFile(path, []byte("berry_spawn_min = 5.0\nberry_spawn_max = 1.0\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected an error for an inverted spawn window")
	}
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Error("expected an error for a missing file")
	}
}

func TestLoadConfigEmptyPath(t *testing.T) {
	cfg, err := LoadConfig("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg != DefaultConfig() {
		t.Error("empty path should yield the defaults")
	}
}
