package config

import "testing"

func TestParseEnvAppliesDefaults(t *testing.T) {
	type cfg struct {
		Addr    string `env:"GRIMOIRE_TEST_ADDR" envDefault:"localhost:9090"`
		Verbose bool   `env:"GRIMOIRE_TEST_VERBOSE" envDefault:"false"`
	}
	var c cfg
	if err := ParseEnv(&c); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if c.Addr != "localhost:9090" {
		t.Fatalf("addr = %q, want %q", c.Addr, "localhost:9090")
	}
	if c.Verbose {
		t.Fatal("verbose default should be false")
	}
}

func TestParseEnvReadsVariables(t *testing.T) {
	type cfg struct {
		Path string `env:"GRIMOIRE_TEST_PATH"`
	}
	t.Setenv("GRIMOIRE_TEST_PATH", "/tmp/grimoire.db")
	var c cfg
	if err := ParseEnv(&c); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if c.Path != "/tmp/grimoire.db" {
		t.Fatalf("path = %q, want %q", c.Path, "/tmp/grimoire.db")
	}
}
