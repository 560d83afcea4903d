package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/bimmerbailey/laxa/internal/config"
	"github.com/bimmerbailey/laxa/internal/fuzzy"
	"github.com/bimmerbailey/laxa/internal/fuzzy/tlsh"
	"github.com/bimmerbailey/laxa/internal/ingest"
	"github.com/bimmerbailey/laxa/internal/parser"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// primitive is the fuzzy hash used by every command.
var primitive fuzzy.Primitive = tlsh.Primitive{}

// loadConfig reads the merged flag, environment and file configuration.
func loadConfig() (config.Config, error) {
	var cfg config.Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("reading configuration: %w", err)
	}
	return cfg, nil
}

// newLogger logs to w at Error level, or Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelError
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: level,
	}))
}

func newParser(cfg config.Config, noHeader bool) (*parser.Parser, error) {
	format, err := config.ParseInputFormat(cfg.Input.Format)
	if err != nil {
		return nil, err
	}
	return parser.New(
		parser.WithFormat(format),
		parser.WithDelimiter(cfg.Input.Delimiter),
		parser.WithHeader(!noHeader),
	), nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// intSetting returns the flag value when it was given on the command line
// and the configured value for key otherwise.
func intSetting(cmd *cobra.Command, flag, key string) int {
	if cmd.Flags().Changed(flag) {
		v, _ := cmd.Flags().GetInt(flag)
		return v
	}
	if viper.IsSet(key) {
		return viper.GetInt(key)
	}
	v, _ := cmd.Flags().GetInt(flag)
	return v
}

// hashFiles parses every file matched by args and hashes its records.
func hashFiles(cmd *cobra.Command, args []string) ([]ingest.Result, *slog.Logger, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cmd.ErrOrStderr(), cfg.Verbose)

	files, err := config.ExpandGlobs(args)
	if err != nil {
		return nil, nil, err
	}

	noHeader, _ := cmd.Flags().GetBool("no-header")
	p, err := newParser(cfg, noHeader)
	if err != nil {
		return nil, nil, err
	}

	var records []config.Record
	for _, file := range files {
		recs, err := p.ParseFile(file)
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", file, err)
		}
		logger.Info("parsed file", "file", file, "format", p.FormatFor(file), "records", len(recs))
		records = append(records, recs...)
	}

	ctx, cancel := signalContext()
	defer cancel()

	h := ingest.New(primitive,
		ingest.WithWorkers(cfg.Workers),
		ingest.WithLogger(logger),
	)
	results, err := h.Hash(ctx, records)
	if err != nil {
		return nil, nil, err
	}
	return results, logger, nil
}
