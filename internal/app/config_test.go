package app_test

import (
	"testing"
	"time"

	"github.com/hoshigame/gomoku-online/internal/app"
	"github.com/hoshigame/gomoku-online/internal/platform/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("GOMOKU_IDENTITY_URL", "https://id.example")
	t.Setenv("GOMOKU_TITLE_ID", "T100")
	t.Setenv("GOMOKU_MATCH_BACKEND_URL", "https://match.example")
	t.Setenv("GOMOKU_MATCH_QUEUE", "gomoku-ranked")
	t.Setenv("GOMOKU_RECORD_STORE_URL", "https://records.example")
	t.Setenv("GOMOKU_RECORD_STORE_KEY", "anon-key")
	t.Setenv("GOMOKU_LOCAL_STORE_PATH", "gomoku.db")
}

func TestConfigDefaults(t *testing.T) {
	setRequired(t)

	var cfg app.Config
	if err := config.ParseEnv(&cfg); err != nil {
		t.Fatalf("parse env: %v", err)
	}
	if cfg.PollInterval != 2*time.Second {
		t.Fatalf("poll interval = %v", cfg.PollInterval)
	}
	if cfg.MatchBudget != 120*time.Second {
		t.Fatalf("match budget = %v", cfg.MatchBudget)
	}
	if cfg.WaitAttempts != 10 || cfg.WaitInterval != 2*time.Second {
		t.Fatalf("wait = %d × %v", cfg.WaitAttempts, cfg.WaitInterval)
	}
}

func TestConfigRejectsMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("GOMOKU_MATCH_QUEUE", "")

	var cfg app.Config
	if err := config.ParseEnv(&cfg); err == nil {
		t.Fatal("expected an error for the empty queue name")
	}
}
