package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/soochol/docsum/internal/config"
	"github.com/soochol/docsum/internal/convert"
	"github.com/soochol/docsum/internal/extract"
)

func main() {
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "docsum",
		Short:         "Detect document formats and summarize their content",
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(serveCmd(), inspectCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// app is what the subcommands share.
type app struct {
	cfg       *config.Config
	converter *convert.Converter
	pipeline  *extract.Pipeline
}

// setup loads the configuration, installs the default logger and builds the
// extraction pipeline.
func setup() (*app, error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	conv := convert.New(convert.Config{
		ScratchDir:        cfg.Convert.ScratchDir,
		SofficePath:       cfg.Convert.SofficePath,
		CatpptPath:        cfg.Convert.CatpptPath,
		ConversionTimeout: cfg.Convert.ConversionTimeout,
		ExtractorTimeout:  cfg.Convert.ExtractorTimeout,
		Logger:            logger,
	})
	pipeline := extract.New(extract.Config{
		Converter:   conv,
		MaxFileSize: cfg.Extract.MaxFileSize,
		Workers:     cfg.Extract.Workers,
		Logger:      logger,
	})
	return &app{cfg: cfg, converter: conv, pipeline: pipeline}, nil
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
