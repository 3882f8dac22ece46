package scenario

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/louisbranch/grimoire/internal/catalog"
	"github.com/louisbranch/grimoire/internal/game"
	"github.com/louisbranch/grimoire/internal/game/action"
	"github.com/louisbranch/grimoire/internal/journal"
)

// Config controls scenario execution.
type Config struct {
	// Timeout bounds each individual step.
	Timeout time.Duration
	// Verbose enables per-step progress logging.
	Verbose bool
	// Lenient downgrades failed expect steps to log lines and keeps
	// the scenario running. Other step failures still abort.
	Lenient bool
	// Logger receives verbose output. Defaults to stderr.
	Logger *log.Logger
}

// DefaultConfig returns the standard runner configuration.
func DefaultConfig() Config {
	return Config{
		Timeout: 30 * time.Second,
		Verbose: false,
	}
}

// Runner replays scenario steps against a referee built from a catalog.
type Runner struct {
	cfg     Config
	machine *game.Machine
	log     journal.Store
	gameID  string
}

// NewRunner builds a runner over the given catalog. A nil resolver gets
// an empty action registry, so unregistered abilities journal placeholder
// entries instead of resolving.
func NewRunner(cat *catalog.Catalog, resolver game.ActionResolver, cfg Config) *Runner {
	if resolver == nil {
		resolver = action.NewRegistry()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	store := journal.NewMemoryStore()
	return &Runner{
		cfg:     cfg,
		machine: game.NewMachine(cat, resolver, store),
		log:     store,
	}
}

// Machine exposes the referee driven by this runner, for inspection
// after a scenario completes.
func (r *Runner) Machine() *game.Machine {
	return r.machine
}

// Journal exposes the journal written during the run.
func (r *Runner) Journal() journal.Store {
	return r.log
}

// GameID returns the id of the game created by the scenario, or empty
// before the game step runs.
func (r *Runner) GameID() string {
	return r.gameID
}

// RunFile loads and executes a Lua scenario file.
func (r *Runner) RunFile(ctx context.Context, path string) error {
	scenario, err := LoadScenarioFromFile(path)
	if err != nil {
		return fmt.Errorf("load scenario: %w", err)
	}
	return r.RunScenario(ctx, scenario)
}

// RunScenario executes every step in order, stopping at the first failure.
func (r *Runner) RunScenario(ctx context.Context, scenario *Scenario) error {
	if scenario == nil {
		return fmt.Errorf("scenario is nil")
	}
	r.logf("scenario start: %s (%d steps)", scenario.Name, len(scenario.Steps))
	for i, step := range scenario.Steps {
		stepNumber := i + 1
		stepStart := time.Now()
		r.logf("step %d/%d start: %s", stepNumber, len(scenario.Steps), step.Kind)

		stepCtx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
		err := r.runStep(stepCtx, step)
		cancel()
		if err != nil {
			if r.cfg.Lenient && isExpectStep(step.Kind) {
				r.warnf("step %d (%s): %v", stepNumber, step.Kind, err)
				continue
			}
			return fmt.Errorf("step %d (%s): %w", stepNumber, step.Kind, err)
		}
		r.logf("step %d/%d done: %s (%s)", stepNumber, len(scenario.Steps), step.Kind, time.Since(stepStart))
	}
	r.logf("scenario done: %s", scenario.Name)
	return nil
}

func isExpectStep(kind string) bool {
	return strings.HasPrefix(kind, "expect_")
}

func (r *Runner) logf(format string, args ...any) {
	if !r.cfg.Verbose || r.cfg.Logger == nil {
		return
	}
	r.cfg.Logger.Printf(format, args...)
}

// warnf ignores Verbose so lenient expectation failures always surface.
func (r *Runner) warnf(format string, args ...any) {
	if r.cfg.Logger == nil {
		return
	}
	r.cfg.Logger.Printf(format, args...)
}
