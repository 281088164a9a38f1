// Command outbreak runs the epidemic simulation behind its HTTP API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/outbreak/internal/api"
	"github.com/talgya/outbreak/internal/config"
	"github.com/talgya/outbreak/internal/engine"
	"github.com/talgya/outbreak/internal/params"
	"github.com/talgya/outbreak/internal/persistence"
)

// implicitConfigPath is read when neither -config nor OUTBREAK_CONFIG is
// given. Only this path may be missing.
const implicitConfigPath = "outbreak.toml"

func main() {
	envPath := os.Getenv("OUTBREAK_CONFIG")
	defaultPath := envPath
	if defaultPath == "" {
		defaultPath = implicitConfigPath
	}
	configPath := flag.String("config", defaultPath, "path to the TOML config file")
	flag.Parse()

	explicit := envPath != ""
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "config" {
			explicit = true
		}
	})

	cfg, err := loadConfig(*configPath, explicit)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := cfg.Logging.NewLogger()
	slog.SetDefault(logger)

	slog.Info("outbreak epidemic simulation",
		"people", params.PeopleCount,
		"field", fmt.Sprintf("%dx%d", params.FieldWidth, params.FieldHeight),
		"infection_radius", params.MinDistanceToGetSick,
		"infection_probability", params.InfectionProbability,
	)

	// ── Simulation ────────────────────────────────────────────────────
	sim, err := engine.NewSimulation(engine.WithSeed(cfg.Simulation.Seed))
	if err != nil {
		slog.Error("invalid simulation layout", "error", err)
		os.Exit(1)
	}
	snap := sim.Snapshot()
	slog.Info("world ready",
		"run", snap.RunID,
		"seed", sim.Seed(),
		"houses", len(snap.Map.Houses),
		"capacity", humanize.Comma(int64(len(snap.Map.Houses)*params.MaxPeopleInHouse)),
		"sick", snap.Stats.Sick,
	)

	// ── History ───────────────────────────────────────────────────────
	var db *persistence.DB
	if cfg.History.Enabled {
		db, err = openHistory(cfg.History.Path)
		if err != nil {
			slog.Error("failed to open history database", "path", cfg.History.Path, "error", err)
			os.Exit(1)
		}
		defer db.Close()
		slog.Info("history database opened", "path", cfg.History.Path)

		// Record the initial run, then every tick and restart after it.
		sim.OnReport = db.Recorder()
		if err := db.RecordTick(engine.TickReport{
			RunID:     sim.RunID,
			Time:      sim.LastUpdated(),
			Stats:     snap.Stats,
			Events:    sim.RecentEvents(0),
			Restarted: true,
		}); err != nil {
			slog.Error("initial history record failed", "error", err)
		}
	}

	// ── HTTP API ──────────────────────────────────────────────────────
	apiServer := &api.Server{
		Sim:            sim,
		DB:             db,
		Addr:           cfg.Server.Addr,
		CORSOrigins:    cfg.Server.CORSOrigins,
		MaxStreams:     cfg.Server.MaxStreams,
		RestartLimiter: api.NewRateLimiter(cfg.RateLimit.RestartsPerMinute, time.Minute),
	}
	httpServer := apiServer.Start()

	// ── Start ─────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Simulation.Autoplay {
		// Poll faster than the tick gate so ticks land close to once per interval.
		eng := engine.NewEngine(params.TickInterval / 4)
		eng.OnTick = func() {
			if _, err := sim.AdvanceTick(); err != nil {
				slog.Error("autoplay tick failed", "error", err)
			}
		}
		go eng.Run(ctx)
	}

	fmt.Printf("\n%d people in %d houses, %d sick at start.\n",
		snap.Stats.Population, len(snap.Map.Houses), snap.Stats.Sick)
	fmt.Printf("API: http://localhost%s/api/state\n", cfg.Server.Addr)

	<-ctx.Done()
	slog.Info("received signal, shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP shutdown failed", "error", err)
	}

	fmt.Println("Simulation stopped.")
}

// loadConfig reads the config file. A missing file falls back to the
// defaults only when the path was not given explicitly.
func loadConfig(path string, explicit bool) (*config.Config, error) {
	cfg, err := config.Load(path)
	if errors.Is(err, fs.ErrNotExist) && !explicit {
		slog.Warn("config file not found, using defaults", "path", path)
		return config.Load("")
	}
	return cfg, err
}

// openHistory creates the database directory if needed and opens the
// history store.
func openHistory(path string) (*persistence.DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	return persistence.Open(path)
}
