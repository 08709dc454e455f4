package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/andywolf/ralph/internal/config"
	"github.com/andywolf/ralph/internal/event"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarize the events recorded in the run journal",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config error:", err)
		os.Exit(exitConfigError)
	}

	f, err := os.Open(cfg.JournalPath)
	if os.IsNotExist(err) {
		fmt.Println("no journal found at", cfg.JournalPath)
		return nil
	}
	if err != nil {
		return fmt.Errorf("status: open journal: %w", err)
	}
	defer f.Close()

	var journalSize string
	if info, err := f.Stat(); err == nil {
		journalSize = humanize.Bytes(uint64(info.Size()))
	}

	counts := make(map[string]int)
	total := 0
	var last event.Event

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		var e event.Event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			continue
		}
		counts[e.Topic.String()]++
		total++
		last = e
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("status: read journal: %w", err)
	}

	fmt.Printf("journal: %s (%s)\n", cfg.JournalPath, journalSize)
	fmt.Printf("total events: %d\n", total)
	for topic, n := range counts {
		fmt.Printf("  %-24s %d\n", topic, n)
	}
	if total > 0 {
		fmt.Printf("last event: %s at %s (%s ago) (source=%s target=%s)\n",
			last.Topic, last.Timestamp.Format("2006-01-02T15:04:05Z07:00"), humanize.Time(last.Timestamp), last.Source, last.Target)
	}
	return nil
}
