package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/bookbakeapp/bookbake/internal/config"
	"github.com/bookbakeapp/bookbake/internal/logger"
)

// appState carries configuration and the logger to every subcommand.
type appState struct {
	cfg *config.Config
	log *slog.Logger

	logLevelFlag  string
	logFormatFlag string
	envFileFlag   string
}

// ensure loads configuration and builds the logger once, applying flag
// overrides on top of env and .env values.
func (s *appState) ensure() error {
	if s.cfg != nil {
		return nil
	}

	cfg, err := config.Load(s.envFileFlag)
	if err != nil {
		return err
	}
	if s.logLevelFlag != "" {
		cfg.Logger.Level = s.logLevelFlag
	}
	if s.logFormatFlag != "" {
		cfg.Logger.Format = s.logFormatFlag
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.cfg = cfg
	s.log = logger.New(logger.Config{
		Format:      cfg.Logger.Format,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	}).Logger
	return nil
}

func newRootCommand() *cobra.Command {
	state := &appState{}

	rootCmd := &cobra.Command{
		Use:           "bookbake",
		Short:         "Bake tags and chapters into a downloaded audiobook export",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return state.ensure()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&state.logLevelFlag, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&state.logFormatFlag, "log-format", "", "Log format (pretty, json)")
	rootCmd.PersistentFlags().StringVar(&state.envFileFlag, "env-file", "", "Path to a .env file")

	rootCmd.AddCommand(newBakeCommand(state))
	rootCmd.AddCommand(newChaptersCommand(state))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}
