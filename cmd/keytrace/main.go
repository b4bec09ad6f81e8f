package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/mattn/go-isatty"

	"github.com/vincentbai/keytrace/internal/canvas"
	"github.com/vincentbai/keytrace/internal/config"
	"github.com/vincentbai/keytrace/internal/database"
	"github.com/vincentbai/keytrace/internal/metrics"
	"github.com/vincentbai/keytrace/internal/models"
	"github.com/vincentbai/keytrace/internal/server"
	"github.com/vincentbai/keytrace/internal/viz"
)

func main() {
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	store, err := openStore(cfg)
	if err != nil {
		log.Fatal(err)
	}
	if store != nil {
		defer store.Close()
	}

	seed := cfg.PaletteSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	display := viz.NewDisplay(cfg.Geometry, canvas.NewPalette(seed), cfg.SkipKeyCode, cfg.FrameRate, metrics.FramesTicked.Inc,
		viz.WithResizeHook(func(height float64) {
			log.Printf("Surface resized to %.0fx%.0f", cfg.Geometry.CanvasWidth, height)
		}))

	ctx, cancel := context.WithCancel(context.Background())
	go display.Run(ctx)

	if store != nil {
		restore(store, display)
	}

	srv := server.NewServer(store, display, cfg.Address)
	err = srv.Start()
	cancel()
	<-display.Done()
	if err != nil {
		log.Fatal(err)
	}
}

func openStore(cfg config.Config) (database.SlotStore, error) {
	if cfg.Store == config.StoreNone {
		log.Println("Session persistence disabled")
		return nil, nil
	}
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}
	log.Printf("Using %s store at %s", cfg.Store, cfg.StorePath())
	if cfg.Store == config.StorePebble {
		return database.NewPebbleStore(cfg.StorePath())
	}
	return database.NewDatabase(cfg.StorePath())
}

// restore replays the stored slots oldest first so that they land back in
// the same positions.
func restore(store database.SlotStore, display *viz.Display) {
	current, previous, err := store.Slots()
	if err != nil {
		log.Printf("Failed to read stored sessions: %v", err)
		return
	}
	for _, record := range []*database.SlotRecord{previous, current} {
		if record == nil {
			continue
		}
		session, _, err := models.ParseBehavioData(record.Payload)
		if err != nil {
			log.Printf("Skipping stored session %s: %v", record.SessionID, err)
			continue
		}
		session.ID = record.SessionID
		display.Publish(session)
		log.Printf("Restored session %s", record.SessionID)
	}
}
