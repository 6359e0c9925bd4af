// Command statesim runs a political simulation: daily events, decisions and the regional
// unrest they cause.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/talgya/statecraft/internal/engine"
	"github.com/talgya/statecraft/internal/entropy"
	"github.com/talgya/statecraft/internal/events"
	"github.com/talgya/statecraft/internal/persistence"
	"github.com/talgya/statecraft/internal/scenario"
	"github.com/talgya/statecraft/internal/social"
)

func main() {
	scenarioPath := flag.String("scenario", "", "scenario YAML file (empty = generated map)")
	catalogPath := flag.String("catalog", "", "event catalog YAML (overrides the scenario's)")
	days := flag.Int("days", 365, "days to simulate (0 = until interrupted)")
	seed := flag.Int64("seed", 0, "random seed (0 = scenario seed, or crypto randomness)")
	dbPath := flag.String("db", "data/statesim.db", "sqlite path when STATESIM_DB_PATH is unset")
	exportPath := flag.String("export", "", "write a zstd snapshot here on exit")
	interval := flag.Duration("interval", 0, "wall time between simulated days")
	fresh := flag.Bool("fresh", false, "ignore saved state")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	if err := run(options{
		scenario: *scenarioPath,
		catalog:  *catalogPath,
		days:     *days,
		seed:     *seed,
		db:       *dbPath,
		export:   *exportPath,
		interval: *interval,
		fresh:    *fresh,
	}); err != nil {
		slog.Error("statesim failed", "error", err)
		os.Exit(1)
	}
}

type options struct {
	scenario string
	catalog  string
	days     int
	seed     int64
	db       string
	export   string
	interval time.Duration
	fresh    bool
}

func run(opts options) error {
	// ── Scenario & catalog ───────────────────────────────────────────
	sc, err := scenario.Load(opts.scenario)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	if opts.seed != 0 {
		sc.Seed = opts.seed
	}

	catPath := opts.catalog
	if catPath == "" && sc.Catalog != "" {
		catPath = sc.Catalog
		if !filepath.IsAbs(catPath) && opts.scenario != "" {
			catPath = filepath.Join(filepath.Dir(opts.scenario), catPath)
		}
	}
	if catPath == "" {
		return fmt.Errorf("no event catalog: pass -catalog or set catalog in the scenario")
	}
	catalog, err := events.LoadCatalog(catPath)
	if err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}
	slog.Info("catalog loaded", "path", catPath, "events", catalog.Len())

	var src entropy.Source = entropy.Crypto{}
	if sc.Seed != 0 {
		src = entropy.NewSeeded(sc.Seed)
	}

	// ── Simulation ────────────────────────────────────────────────────
	sim, err := engine.NewSimulation(engine.Config{
		Character: sc.Character,
		Metrics:   sc.NationMetrics(),
		Provinces: sc.BuildProvinces(),
		Catalog:   catalog,
		Source:    src,
		Clock:     engine.Clock{DayLength: sc.DayLength()},
		Choices:   engine.RandomChoice,
	})
	if err != nil {
		return err
	}

	// ── Database ──────────────────────────────────────────────────────
	db, err := persistence.OpenFromEnv(opts.db)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	has, err := db.HasState()
	if err != nil {
		return fmt.Errorf("check saved state: %w", err)
	}
	if has && !opts.fresh {
		st, err := db.LoadState()
		if err != nil {
			return fmt.Errorf("load saved state: %w", err)
		}
		if err := sim.Restore(st); err != nil {
			return fmt.Errorf("restore saved state: %w", err)
		}
		slog.Info("session restored", "session", sim.SessionID, "day", sim.Day, "time", engine.SimDate(uint64(sim.Day)))
	} else {
		if err := db.SaveState(sim.Snapshot()); err != nil {
			return fmt.Errorf("initial save: %w", err)
		}
		if err := db.SaveMeta("scenario", sc.Name); err != nil {
			slog.Warn("save scenario name failed", "error", err)
		}
		slog.Info("new session", "session", sim.SessionID, "scenario", sc.Name, "character", sim.Character)
	}

	slog.Info("simulation ready",
		"provinces", sim.Ledger.Len(),
		"crisis_level", sim.CrisisLevel,
		"seed", sc.Seed,
	)

	// ── Day engine ────────────────────────────────────────────────────
	eng := engine.NewEngine()
	eng.Day = uint64(sim.Day)
	eng.Interval = opts.interval
	eng.OnDay = func(uint64) {
		rep := sim.TickDay()
		logReport(rep)
		if err := db.SaveState(sim.Snapshot()); err != nil {
			slog.Error("daily save failed", "error", err)
		}
	}
	eng.OnWeek = func(uint64) { sim.TickWeek() }

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\n%s: %d provinces, crisis level %d. Ctrl+C to stop.\n",
		sc.Name, sim.Ledger.Len(), sim.CrisisLevel)

	runErr := eng.Run(ctx, opts.days)
	if runErr != nil && ctx.Err() != nil {
		slog.Info("interrupted, shutting down", "day", sim.Day)
		runErr = nil
	}

	// Final save on shutdown.
	if err := db.SaveState(sim.Snapshot()); err != nil {
		slog.Error("final save failed", "error", err)
	}
	if opts.export != "" {
		if err := persistence.WriteSnapshot(opts.export, sim.Snapshot()); err != nil {
			return fmt.Errorf("export snapshot: %w", err)
		}
		slog.Info("snapshot exported", "path", opts.export)
	}

	im := sim.Ledger.NationalImpact()
	fmt.Printf("Stopped at %s: %d events, %d decisions, crisis level %d, %d critical provinces.\n",
		engine.SimDate(uint64(sim.Day)), sim.History.Len(), len(sim.Decisions), sim.CrisisLevel, im.CriticalProvinces)
	return runErr
}

func logReport(rep engine.DayReport) {
	if rep.EventID == "" && rep.Decision == nil {
		slog.Debug("quiet day", "day", rep.Day, "gate", fmt.Sprintf("%.3f", rep.Gate), "attempted", rep.Attempted)
		return
	}
	attrs := []any{
		"day", rep.Day,
		"gate", fmt.Sprintf("%.3f", rep.Gate),
		"candidates", rep.Candidates,
		"event", rep.EventID,
		"crisis_level", rep.CrisisLevel,
		"general_crisis", rep.GeneralCrisis,
		"avg_perception", fmt.Sprintf("%.1f", rep.Impact.AveragePerception),
	}
	if d := rep.Decision; d != nil {
		attrs = append(attrs, "choice", d.ChoiceID, "regional", len(d.Regional), "transitions", len(d.Transitions))
		for _, tr := range d.Transitions {
			slog.Log(context.Background(), transitionLevel(tr), "province state changed",
				"province", tr.ProvinceID, "from", tr.From, "to", tr.To, "day", tr.Day)
		}
	}
	slog.Info("daily report", attrs...)
}

// transitionLevel warns on escalations and keeps de-escalations at info.
func transitionLevel(tr social.Transition) slog.Level {
	if tr.Escalation() {
		return slog.LevelWarn
	}
	return slog.LevelInfo
}
