package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/andywolf/ralph/internal/backend"
	_ "github.com/andywolf/ralph/internal/backend/aider"
	_ "github.com/andywolf/ralph/internal/backend/claudecode"
	_ "github.com/andywolf/ralph/internal/backend/codex"
	"github.com/andywolf/ralph/internal/config"
	"github.com/andywolf/ralph/internal/dispatcher"
	"github.com/andywolf/ralph/internal/event"
	"github.com/andywolf/ralph/internal/hat"
	"github.com/andywolf/ralph/internal/promptcompose"
	"github.com/andywolf/ralph/internal/ptyexec"
	"github.com/andywolf/ralph/internal/topic"
	"github.com/andywolf/ralph/internal/tui"
)

// Exit codes per the taxonomy: natural completion is 0, every other
// termination reason gets a distinct non-zero code so calling scripts
// can branch on why the run stopped rather than just whether it did.
const (
	exitOK            = 0
	exitConfigError   = 1
	exitSpawnFailure  = 2
	exitIdleTimeout   = 3
	exitUserInterrupt = 4
	exitForceKill     = 5
	exitMaxIterations = 6
	exitNoProgress    = 7
)

var runCmd = &cobra.Command{
	Use:   "run [objective]",
	Short: "Run the agent loop against an objective until it signals completion",
	Args:  cobra.ExactArgs(1),
	RunE:  runRun,
}

var runTUI bool

func init() {
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "show a live terminal dashboard of hats and events instead of plain log output")
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	objective := args[0]

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(exitConfigError)
	}

	registry := buildRegistry(cfg)

	events := make(map[string]hat.EventMetadata, len(cfg.Events))
	for t, e := range cfg.Events {
		events[t] = hat.EventMetadata{OnTrigger: e.OnTrigger, OnPublish: e.OnPublish}
	}

	composer := promptcompose.New(cfg.CompletionPromise, hat.CoreConfig{
		Scratchpad: cfg.Core.Scratchpad,
		SpecsDir:   cfg.Core.SpecsDir,
		Guardrails: cfg.Core.Guardrails,
	}, events)
	composer.InitialPromptTemplate = cfg.EventLoop.InitialPromptTemplate

	be, err := backend.Get(cfg.Backend.Name)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(exitConfigError)
	}

	execCfg := ptyexec.ConfigFromEnv()
	if cfg.Executor.Cols != 0 {
		execCfg.Cols = uint16(cfg.Executor.Cols)
	}
	if cfg.Executor.Rows != 0 {
		execCfg.Rows = uint16(cfg.Executor.Rows)
	}
	execCfg.Interactive = cfg.Executor.Interactive
	execCfg.IdleTimeoutSecs = cfg.IdleTimeoutSecs
	executor := ptyexec.New(be, execCfg)

	journal, err := event.OpenJournal(cfg.JournalPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "journal error:", err)
		os.Exit(exitSpawnFailure)
	}
	defer journal.Close()

	var dashboard *tui.Dashboard
	var dashboardDone chan error
	var observer dispatcher.Observer
	if runTUI {
		dashboard = tui.New()
		observer = dashboard
		dashboardDone = make(chan error, 1)
		go func() { dashboardDone <- dashboard.Run() }()
	}

	d := dispatcher.New(registry, composer, executor, journal, dispatcher.Config{
		CompletionPromise: cfg.CompletionPromise,
		MaxIterations:     cfg.MaxIterations,
	}, observer)

	result, runErr := d.Run(objective)

	if dashboard != nil {
		dashboard.Stop()
		<-dashboardDone
	}

	if runErr != nil {
		fmt.Fprintln(os.Stderr, "run error:", runErr)
		os.Exit(exitSpawnFailure)
	}

	fmt.Fprintf(os.Stdout, "run finished: %s after %d iteration(s)\n", result.Reason, result.Iterations)
	os.Exit(exitCodeFor(result.Reason))
	return nil
}

func exitCodeFor(r dispatcher.Reason) int {
	switch r {
	case dispatcher.Natural:
		return exitOK
	case dispatcher.IdleTimeout:
		return exitIdleTimeout
	case dispatcher.UserInterrupt:
		return exitUserInterrupt
	case dispatcher.ForceKill:
		return exitForceKill
	case dispatcher.MaxIterations:
		return exitMaxIterations
	case dispatcher.NoProgress:
		return exitNoProgress
	default:
		return exitSpawnFailure
	}
}

func buildRegistry(cfg *config.Config) *hat.Registry {
	registry := hat.NewRegistry()
	for id, h := range cfg.Hats {
		subs := make([]topic.Topic, 0, len(h.Triggers))
		for _, t := range h.Triggers {
			subs = append(subs, topic.New(t))
		}
		pubs := make([]topic.Topic, 0, len(h.Publishes))
		for _, t := range h.Publishes {
			pubs = append(pubs, topic.New(t))
		}
		registry.Add(hat.Hat{
			ID:            hat.Id(id),
			Name:          h.Name,
			Subscriptions: subs,
			Publishes:     pubs,
			Instructions:  h.Instructions,
		})
	}
	return registry
}
