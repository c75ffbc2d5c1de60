// Command gomoku is the online Gomoku console client: it logs in
// anonymously, queues for an opponent, and plays a shared game record
// synchronized through the record store's realtime feed.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/hoshigame/gomoku-online/internal/app"
	"github.com/hoshigame/gomoku-online/internal/platform/config"
	"github.com/hoshigame/gomoku-online/internal/platform/otel"
)

func main() {
	log.SetPrefix("gomoku: ")
	log.SetFlags(log.LstdFlags)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var cfg app.Config
	if err := config.ParseEnv(&cfg); err != nil {
		log.Fatalf("config: %v", err)
	}

	shutdown, err := otel.Setup(ctx, "gomoku-client")
	if err != nil {
		log.Fatalf("otel setup: %v", err)
	}
	defer func() {
		if err := shutdown(context.Background()); err != nil {
			log.Printf("otel shutdown: %v", err)
		}
	}()

	if err := app.Run(ctx, cfg, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatalf("run: %v", err)
	}
}
