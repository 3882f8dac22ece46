package main

import (
	"context"
	"flag"
	"os"

	cataloglint "github.com/louisbranch/grimoire/internal/cmd/cataloglint"
	"github.com/louisbranch/grimoire/internal/platform/config"
)

func main() {
	cfg, err := cataloglint.ParseConfig(flag.CommandLine, os.Args[1:])
	if err != nil {
		config.Exitf("Error: %v", err)
	}

	if err := cataloglint.Run(context.Background(), cfg, os.Stdout); err != nil {
		config.Exitf("Error: %v", err)
	}
}
