// Package app wires every component into a runnable client process:
// login, matchmaking, record seating, realtime sync, and a minimal
// console intent loop.
package app

import "time"

// Config is the process configuration, loaded from GOMOKU_* environment
// variables. Missing required variables fail startup.
type Config struct {
	IdentityURL     string `env:"GOMOKU_IDENTITY_URL,required,notEmpty"`
	TitleID         string `env:"GOMOKU_TITLE_ID,required,notEmpty"`
	MatchBackendURL string `env:"GOMOKU_MATCH_BACKEND_URL,required,notEmpty"`
	MatchQueue      string `env:"GOMOKU_MATCH_QUEUE,required,notEmpty"`
	RecordStoreURL  string `env:"GOMOKU_RECORD_STORE_URL,required,notEmpty"`
	RecordStoreKey  string `env:"GOMOKU_RECORD_STORE_KEY,required,notEmpty"`
	LocalStorePath  string `env:"GOMOKU_LOCAL_STORE_PATH,required,notEmpty"`

	PollInterval time.Duration `env:"GOMOKU_POLL_INTERVAL" envDefault:"2s"`
	MatchBudget  time.Duration `env:"GOMOKU_MATCH_BUDGET" envDefault:"120s"`
	WaitAttempts int           `env:"GOMOKU_WAIT_ATTEMPTS" envDefault:"10"`
	WaitInterval time.Duration `env:"GOMOKU_WAIT_INTERVAL" envDefault:"2s"`
}
