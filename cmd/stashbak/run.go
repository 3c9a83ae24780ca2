package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/pfries/stashbak/internal/config"
	"github.com/pfries/stashbak/internal/services/runner"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the backup sequence",
	Long: `Execute the complete backup sequence:
1. Copy individual files/directories into the destination root
2. Build the timestamped zip archive (if members are configured)
3. Import files from the removable drive (if connected)
4. Prune old archives (if pruning is enabled)

Missing sources and an absent drive are warnings, not failures.`,
	RunE: runBackup,
}

func runBackup(cmd *cobra.Command, args []string) error {
	// Load configuration; on first run this writes the template instead.
	parser := config.NewParser()
	cfg, err := parser.Load(configFile)
	if err != nil {
		if errors.Is(err, config.ErrSetupRequired) {
			log.Info().Str("file", configFile).Msg("no configuration found, a template has been created")
			log.Info().Msg("edit the template with your backup paths, then run stashbak again")
			return err
		}
		log.Error().Err(err).Str("file", configFile).Msg("failed to load config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("invalid configuration")
		return err
	}

	log.Info().
		Str("config", configFile).
		Str("destination", cfg.Destination).
		Msg("configuration loaded")

	// Set up context with signal handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("received signal, shutting down")
		cancel()
	}()

	// Run backup
	runnerSvc := runner.New(log.Logger)
	if err := runnerSvc.Run(ctx, *cfg); err != nil {
		log.Error().Err(err).Msg("backup failed")
		return err
	}

	log.Info().Msg("backup completed successfully")
	return nil
}
