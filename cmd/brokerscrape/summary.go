package main

import (
	"io"
	"path/filepath"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/IshaanNene/BrokerScrape/internal/engine"
	"github.com/IshaanNene/BrokerScrape/pkg/brokerscrape"
)

// renderSummary prints the outcome of a run as a table.
func renderSummary(w io.Writer, runner *brokerscrape.Runner, s *engine.Summary) {
	cfg := runner.Config()

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetTitle("BrokerScrape run " + runner.RunID())
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Mode", cfg.Scrape.Mode},
		{"State", s.State.String()},
		{"Reason", s.Reason},
		{"Cycles", s.Cycles},
		{"Cards seen", s.CardsSeen},
		{"Card errors", s.CardErrors},
		{"Records", s.Accepted},
		{"Persist failures", s.PersistFailures},
		{"Elapsed", s.Elapsed.Round(time.Millisecond)},
	})
	t.AppendSeparator()
	t.AppendRow(table.Row{"Snapshot", filepath.Join(cfg.Storage.OutputDir, cfg.Storage.SnapshotFile)})
	t.AppendRow(table.Row{"Table", filepath.Join(cfg.Storage.OutputDir, cfg.Storage.TableFile)})
	if s.Err != nil {
		t.AppendRow(table.Row{"Error", s.Err.Error()})
	}
	t.SetStyle(table.StyleRounded)
	t.Render()
}
