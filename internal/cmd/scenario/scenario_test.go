package scenario

import (
	"context"
	"flag"
	"strings"
	"testing"
	"time"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Timeout != 30*time.Second {
		t.Fatalf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Verbose || cfg.Lenient {
		t.Fatal("Verbose and Lenient should default to false")
	}
}

func TestParseConfigFlags(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{
		"-scenario", "games/first-night.lua",
		"-timeout", "5s",
		"-verbose",
		"-lenient",
	})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.Scenario != "games/first-night.lua" {
		t.Fatalf("Scenario = %q, want the flag value", cfg.Scenario)
	}
	if cfg.Timeout != 5*time.Second || !cfg.Verbose || !cfg.Lenient {
		t.Fatalf("cfg = %+v, want 5s verbose lenient", cfg)
	}
}

func TestRunRequiresScenarioPath(t *testing.T) {
	err := Run(context.Background(), Config{DBPath: "unused.db"}, nil)
	if err == nil || !strings.Contains(err.Error(), "scenario path is required") {
		t.Fatalf("Run() error = %v, want missing scenario failure", err)
	}
}
