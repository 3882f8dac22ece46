// Package cataloglint parses lint flags and checks catalog import files.
package cataloglint

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/louisbranch/grimoire/internal/catalog"
	importer "github.com/louisbranch/grimoire/internal/tools/catalogimporter"
)

// Config holds catalog lint configuration.
type Config struct {
	Input string
}

// ParseConfig parses CLI flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	fs.StringVar(&cfg.Input, "input", "", "import file or directory of .json files")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}
	if strings.TrimSpace(cfg.Input) == "" {
		return Config{}, errors.New("input is required")
	}
	return cfg, nil
}

// Run lints the import files, writing one line per violation. A clean
// catalog returns nil; any violation is an error.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if out == nil {
		out = io.Discard
	}

	result, err := importer.Load(cfg.Input)
	if err != nil {
		return err
	}
	for _, warning := range result.Warnings {
		fmt.Fprintf(out, "warning: %s\n", warning)
	}

	violations := catalog.Lint(result.Catalog, result.SkippedIDs)
	for _, violation := range violations {
		fmt.Fprintln(out, violation.String())
	}
	if len(violations) > 0 {
		return fmt.Errorf("%d lint violation(s)", len(violations))
	}

	_, err = fmt.Fprintf(out, "ok: %d character(s), %d script(s)\n",
		len(result.Catalog.Roles()), len(result.Catalog.Scripts()))
	return err
}
