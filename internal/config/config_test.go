package config

import (
	"bufio"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	result := Validate(DefaultConfig())
	if !result.IsValid() {
		t.Fatalf("default config has errors: %v", result.Errors)
	}
}

func TestLoadCreatesDefaultAndOverlays(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.GetServer().Port != DefaultServerPort {
		t.Fatalf("port = %d", cfg.GetServer().Port)
	}
	if _, err := os.Stat(filepath.Join(dir, DefaultConfigFile)); err != nil {
		t.Fatalf("config file not created: %v", err)
	}

	partial := `{"server": {"host": "crossfire.example.org"}, "client": {"map_width": 25}}`
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(partial), 0600); err != nil {
		t.Fatal(err)
	}
	cfg, err = Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if got := cfg.GetServer(); got.Host != "crossfire.example.org" || got.Port != DefaultServerPort {
		t.Fatalf("server = %+v", got)
	}
	if got := cfg.GetClient(); got.MapWidth != 25 || got.MapHeight != 13 || got.NcomSequenceModulus != 256 {
		t.Fatalf("client = %+v", got)
	}
}

func TestLoadRejectsBrokenFile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte("{"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(dir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestValidateClient(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ClientConfig)
		field  string
	}{
		{"map too small", func(c *ClientConfig) { c.MapWidth = 1 }, "client.map_width"},
		{"map too large", func(c *ClientConfig) { c.MapHeight = 99 }, "client.map_height"},
		{"modulus", func(c *ClientConfig) { c.NcomSequenceModulus = 1000 }, "client.ncom_sequence_modulus"},
		{"look objects", func(c *ClientConfig) { c.NumLookObjects = 0 }, "client.num_look_objects"},
		{"rounds", func(c *ClientConfig) { c.MaxNegotiationRounds = 0 }, "client.max_negotiation_rounds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg.Client)
			result := Validate(cfg)
			for _, e := range result.Errors {
				if e.Field == tt.field {
					return
				}
			}
			t.Fatalf("no error for %s: %v", tt.field, result.Errors)
		})
	}
}

func TestValidateEvenMapSizeWarns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Client.MapWidth = 16
	result := Validate(cfg)
	if !result.IsValid() {
		t.Fatalf("even size should only warn: %v", result.Errors)
	}
	if len(result.Warnings) == 0 {
		t.Fatal("expected a warning")
	}
}

func TestUpdateClientField(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.UpdateClientField("map_width", 21); err != nil {
		t.Fatal(err)
	}
	if cfg.GetClient().MapWidth != 21 {
		t.Fatalf("map_width = %d", cfg.GetClient().MapWidth)
	}
	if err := cfg.UpdateClientField("no_such_option", 1); err == nil {
		t.Fatal("unknown option accepted")
	}
}

func TestSetupWizard(t *testing.T) {
	cfg := DefaultConfig()
	input := strings.Join([]string{
		"crossfire.example.org",
		"13327",
		"alice",
		"secret",
		"Hero",
		"21",
		"15",
		"yes",
		"no",
	}, "\n") + "\n"

	if err := runSetupWizard(cfg, bufio.NewReader(strings.NewReader(input)), io.Discard); err != nil {
		t.Fatal(err)
	}

	s := cfg.GetServer()
	if s.Host != "crossfire.example.org" || s.AccountLogin != "alice" || s.AccountPassword != "secret" || s.Character != "Hero" {
		t.Fatalf("server = %+v", s)
	}
	if c := cfg.GetClient(); c.MapWidth != 21 || c.MapHeight != 15 {
		t.Fatalf("client = %+v", c)
	}
	if !cfg.GetApplicationData().Capture.Enabled {
		t.Fatal("capture not enabled")
	}
}
