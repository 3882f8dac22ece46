package referee

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.DBPath != "data/grimoire.db" {
		t.Fatalf("DBPath = %q, want data/grimoire.db", cfg.DBPath)
	}
	if cfg.AgentCmd != "" {
		t.Fatalf("AgentCmd = %q, want empty", cfg.AgentCmd)
	}
}

func TestParseConfigFlagsOverride(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{
		"-db-path", "/tmp/games.db",
		"-npc-agent", "python3",
		"agent.py", "--profile", "schemer",
	})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.DBPath != "/tmp/games.db" {
		t.Fatalf("DBPath = %q, want /tmp/games.db", cfg.DBPath)
	}
	if cfg.AgentCmd != "python3" {
		t.Fatalf("AgentCmd = %q, want python3", cfg.AgentCmd)
	}
	want := []string{"agent.py", "--profile", "schemer"}
	if len(cfg.AgentArgs) != len(want) {
		t.Fatalf("AgentArgs = %v, want %v", cfg.AgentArgs, want)
	}
	for i, arg := range want {
		if cfg.AgentArgs[i] != arg {
			t.Fatalf("AgentArgs[%d] = %q, want %q", i, cfg.AgentArgs[i], arg)
		}
	}
}

func TestParseConfigEnvOverride(t *testing.T) {
	t.Setenv("GRIMOIRE_DB_PATH", "/var/lib/grimoire.db")

	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{})
	if err != nil {
		t.Fatalf("ParseConfig() error = %v", err)
	}
	if cfg.DBPath != "/var/lib/grimoire.db" {
		t.Fatalf("DBPath = %q, want the env value", cfg.DBPath)
	}
}
