package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Config is the relay's runtime configuration
type Config struct {
	Addr      string
	DBPath    string // empty disables the match log
	JWTSecret string // empty loads or generates one in the database
	PublicURL string
}

// LoadConfig reads envFile into the environment, if it exists, and builds the
// config from the environment. Variables already set win over the file.
func LoadConfig(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return Config{}, fmt.Errorf("load %s: %w", envFile, err)
			}
		} else {
			slog.Info("loaded environment", "file", envFile)
		}
	}
	return Config{
		Addr:      getEnvDefault("ADDR", ":8080"),
		DBPath:    getEnvDefault("DB_PATH", "stonebirds.db"),
		JWTSecret: os.Getenv("JWT_SECRET"),
		PublicURL: getEnvDefault("PUBLIC_URL", "http://localhost:8080"),
	}, nil
}

func getEnvDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
