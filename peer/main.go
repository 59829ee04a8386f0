// Command peer plays one side of a stone-and-birds match headlessly: it
// seats itself through the relay and runs the frame loop with a scripted bot.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"stonebirds/game"
	"stonebirds/lobby"
	"stonebirds/netsync"
)

func main() {
	relayURL := flag.String("relay", "ws://localhost:8080/ws", "Relay WebSocket URL")
	room := flag.String("room", "", "Room to create or join")
	role := flag.String("role", "bird", "Role to play: bird or stone")
	create := flag.Bool("create", false, "Create the room instead of joining it")
	password := flag.String("password", "", "Room password")
	invite := flag.String("invite", "", "Invite token (replaces -room and -role)")
	configPath := flag.String("config", "", "Optional TOML tuning file")
	seed := flag.Int64("seed", time.Now().UnixNano(), "Random seed")
	tick := flag.Duration("tick", time.Second/60, "Frame interval")
	offline := flag.Bool("offline", false, "Play a local singleplayer match without a relay")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(*logLevel)})))

	cfg, err := game.LoadConfig(*configPath)
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *offline {
		err = playOffline(ctx, cfg, *seed, *tick)
	} else {
		seat := Seat{
			Room:     *room,
			Role:     lobby.Role(*role),
			Create:   *create,
			Password: *password,
			Invite:   *invite,
		}
		err = play(ctx, *relayURL, seat, cfg, *seed, *tick)
	}
	if err != nil {
		slog.Error("peer stopped", "err", err)
		os.Exit(1)
	}
}

// play seats the peer through the relay and runs the match. The reader, the
// writer and the frame loop share one errgroup; the first failure stops all.
func play(ctx context.Context, relayURL string, seat Seat, cfg game.Config, seed int64, tick time.Duration) error {
	if seat.Invite == "" && !seat.Role.Valid() {
		return ErrBadRole
	}
	conn, err := Dial(ctx, relayURL)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return conn.ReadLoop(ctx) })
	eg.Go(func() error { return conn.WriteLoop(ctx) })
	eg.Go(func() error {
		defer cancel()
		match, err := takeSeat(ctx, conn, seat)
		if err != nil {
			return err
		}
		m := game.NewManager(cfg, seed)
		m.CreateEntities(match.Mode())
		syncer := netsync.New(m, match.Mode(), conn)
		loop := NewLoop(m, syncer, conn.Frames(), NewBot(seed), &logRenderer{every: 2 * time.Second}, tick)
		return loop.Run(ctx)
	})
	return eg.Wait()
}

func playOffline(ctx context.Context, cfg game.Config, seed int64, tick time.Duration) error {
	m := game.NewManager(cfg, seed)
	m.CreateEntities(game.ModeSingleplayer)
	loop := NewLoop(m, nil, nil, NewBot(seed), &logRenderer{every: 2 * time.Second}, tick)
	return loop.Run(ctx)
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
