package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"ai-teacher/internal/config"
	"ai-teacher/internal/platform/logger"
)

var rootCmd = &cobra.Command{
	Use:           "teachctl",
	Short:         "Maintain topics and reference stores for the teaching assistant",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func loadConfig(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config failed: %w", err)
	}
	log := logger.NewWithWriter(logger.Config{Level: cfg.Log.Level, Format: "text"}, cmd.ErrOrStderr())
	return cfg, log, nil
}
