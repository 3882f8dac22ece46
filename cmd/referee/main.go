package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	refereecmd "github.com/louisbranch/grimoire/internal/cmd/referee"
)

func main() {
	cfg, err := refereecmd.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		log.Fatalf("parse flags: %v", err)
	}
	log.SetPrefix("[REFEREE] ")
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := refereecmd.Run(ctx, cfg); err != nil {
		log.Fatalf("failed to serve: %v", err)
	}
}
