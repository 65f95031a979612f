// Command drawctl is a headless drawing client for a room relay.
//
//	drawctl token  [-user id] [-secret s]
//	drawctl watch  -room slug [-discover]
//	drawctl draw   -room slug -tool square -from 10,10 -to 200,120 [-discover]
//	drawctl export -room slug -out board.pdf
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"omdraw/internal/config"
	"omdraw/internal/logger"
)

func usage() {
	fmt.Fprintln(os.Stderr, `usage: drawctl <command> [flags]

commands:
  token    issue a development credential
  watch    join a room and log shapes as they arrive
  draw     join a room and commit one gesture
  export   render a room's history to PDF`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(1)
	}
	log := logger.New(cfg.LogLevel, cfg.LogPretty)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	args := os.Args[2:]
	switch os.Args[1] {
	case "token":
		err = runToken(cfg, args)
	case "watch":
		err = runWatch(ctx, cfg, args)
	case "draw":
		err = runDraw(ctx, cfg, args)
	case "export":
		err = runExport(ctx, cfg, args)
	case "help", "-h", "--help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Error().Err(err).Str("command", os.Args[1]).Msg("❌ drawctl failed")
		os.Exit(1)
	}
}
