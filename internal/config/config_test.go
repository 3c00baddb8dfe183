package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Model.Dir != "./kokoro-multi-lang-v1_1" {
		t.Fatalf("expected default model dir, got %v", cfg.Model.Dir)
	}
	if cfg.Model.Speed != 1.0 || cfg.Model.Debug != 1 {
		t.Fatalf("unexpected model defaults %+v", cfg.Model)
	}
	if !cfg.Playback.Enabled {
		t.Fatal("expected playback enabled by default")
	}
	if cfg.Journal.RetentionMode != "ephemeral" {
		t.Fatalf("expected journal disabled by default")
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "loqa.yaml")
	yaml := `model:
  dir: /opt/kokoro
  speaker_id: 3
  include_zh_lexicon: true
synth:
  mode: exec
  command: "kokoro-worker --json"
  sample_rate: 22050
playback:
  enabled: false
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Model.Dir != "/opt/kokoro" || cfg.Model.SpeakerID != 3 || !cfg.Model.IncludeZhLexicon {
		t.Fatalf("unexpected model config %+v", cfg.Model)
	}
	if cfg.Synth.Mode != "exec" || cfg.Synth.SampleRate != 22050 {
		t.Fatalf("unexpected synth config %+v", cfg.Synth)
	}
	if cfg.Playback.Enabled {
		t.Fatal("expected playback disabled")
	}
	if cfg.Model.Speed != 1.0 {
		t.Fatalf("unset fields keep their defaults, got speed %v", cfg.Model.Speed)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("LOQA_BUS_SERVERS", "nats://one:4222, nats://two:4222")
	t.Setenv("LOQA_BUS_USERNAME", "alice")
	t.Setenv("LOQA_BUS_PASSWORD", "secret")
	t.Setenv("LOQA_BUS_TLS_INSECURE", "true")
	t.Setenv("LOQA_BUS_CONNECT_TIMEOUT_MS", "5000")
	t.Setenv("LOQA_MODEL_SPEED", "1.25")
	t.Setenv("LOQA_MODEL_SPEAKER_ID", "7")
	t.Setenv("LOQA_SYNTH_SAMPLE_RATE", "16000")
	t.Setenv("LOQA_PLAYBACK_ENABLED", "false")
	t.Setenv("LOQA_JOURNAL_PATH", "./tmp.db")
	t.Setenv("LOQA_JOURNAL_RETENTION_MODE", "persistent")
	t.Setenv("LOQA_JOURNAL_RETENTION_DAYS", "7")
	t.Setenv("LOQA_JOURNAL_MAX_SESSIONS", "123")
	t.Setenv("LOQA_JOURNAL_VACUUM_ON_START", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(cfg.Bus.Servers) != 2 {
		t.Fatalf("expected 2 servers, got %v", cfg.Bus.Servers)
	}
	if cfg.Bus.Username != "alice" || cfg.Bus.Password != "secret" {
		t.Fatalf("expected credentials override")
	}
	if !cfg.Bus.TLSInsecure {
		t.Fatal("expected tls insecure override true")
	}
	if cfg.Bus.ConnectTimeout != 5000 {
		t.Fatalf("expected timeout 5000, got %d", cfg.Bus.ConnectTimeout)
	}
	if cfg.Model.Speed != 1.25 || cfg.Model.SpeakerID != 7 {
		t.Fatalf("expected model overrides, got %+v", cfg.Model)
	}
	if cfg.Synth.SampleRate != 16000 {
		t.Fatalf("expected sample rate override")
	}
	if cfg.Playback.Enabled {
		t.Fatalf("expected playback override")
	}
	if cfg.Journal.Path != "./tmp.db" || cfg.Journal.RetentionMode != "persistent" {
		t.Fatalf("expected journal overrides, got %+v", cfg.Journal)
	}
	if cfg.Journal.RetentionDays != 7 || cfg.Journal.MaxSessions != 123 || !cfg.Journal.VacuumOnStart {
		t.Fatalf("expected journal retention overrides, got %+v", cfg.Journal)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"exec without command": func(c *Config) { c.Synth.Mode = "exec" },
		"unknown mode":         func(c *Config) { c.Synth.Mode = "cloud" },
		"zero speed":           func(c *Config) { c.Model.Speed = 0 },
		"negative sid":         func(c *Config) { c.Model.SpeakerID = -1 },
		"debug 5":              func(c *Config) { c.Model.Debug = 5 },
		"bad retention":        func(c *Config) { c.Journal.RetentionMode = "forever" },
		"bad log level":        func(c *Config) { c.Telemetry.LogLevel = "verbose" },
		"bus without servers": func(c *Config) {
			c.Bus.Enabled = true
			c.Bus.Servers = nil
		},
	}
	for name, mutate := range cases {
		cfg := Default()
		mutate(&cfg)
		if err := Validate(cfg); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}
