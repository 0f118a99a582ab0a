package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/IshaanNene/BrokerScrape/internal/config"
	"github.com/IshaanNene/BrokerScrape/internal/engine"
	"github.com/IshaanNene/BrokerScrape/internal/types"
	"github.com/IshaanNene/BrokerScrape/pkg/brokerscrape"
)

func TestExitCode(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{errors.New("boom"), 1},
		{types.NewConfigError("auth.mode", "bad"), 2},
		{fmt.Errorf("login: %w", &types.AuthError{Step: "manual", Err: errors.New("timeout")}), 3},
		{&types.NavigationError{Op: "open", Target: "x", Err: errors.New("timeout")}, 4},
		{fmt.Errorf("run: %w", context.Canceled), 130},
	}
	for _, tt := range tests {
		if got := exitCode(tt.err); got != tt.want {
			t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestApplyCLIOverridesOnlyChangedFlags(t *testing.T) {
	cmd := scrollCmd()
	if err := cmd.ParseFlags([]string{"--max-cycles", "7", "--output", "/tmp/bs"}); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	applyCLIOverrides(cmd, cfg)

	if cfg.Scrape.MaxCycles != 7 {
		t.Errorf("max cycles = %d", cfg.Scrape.MaxCycles)
	}
	if cfg.Storage.OutputDir != "/tmp/bs" {
		t.Errorf("output dir = %q", cfg.Storage.OutputDir)
	}
	if cfg.Scrape.SettleDelay != config.DefaultConfig().Scrape.SettleDelay {
		t.Errorf("settle delay changed without the flag: %v", cfg.Scrape.SettleDelay)
	}
}

func TestRenderSummary(t *testing.T) {
	runner, err := brokerscrape.New(config.DefaultConfig(), brokerscrape.WithRunID("r1"))
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	renderSummary(&buf, runner, &engine.Summary{
		State:    engine.StateDone,
		Reason:   engine.ReasonNoNewRecords,
		Cycles:   4,
		Accepted: 37,
		Elapsed:  2 * time.Second,
	})

	out := buf.String()
	for _, want := range []string{"r1", "no_new_records", "37", "data.json"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
