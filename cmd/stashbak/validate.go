package main

import (
	"fmt"
	"os"

	"github.com/pfries/stashbak/internal/config"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate the configuration file without executing any backup operations.
Unlike a normal run, a missing configuration file is an error here and no
template is written.`,
	RunE: validateConfig,
}

func validateConfig(cmd *cobra.Command, args []string) error {
	// Check if file exists
	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		log.Error().Str("file", configFile).Msg("config file not found")
		return fmt.Errorf("config file not found: %s", configFile)
	}

	// Load configuration
	parser := config.NewParser()
	cfg, err := parser.LoadFile(configFile)
	if err != nil {
		log.Error().Err(err).Str("file", configFile).Msg("failed to parse config")
		return err
	}

	// Validate configuration
	if err := config.Validate(cfg); err != nil {
		log.Error().Err(err).Msg("configuration validation failed")
		return err
	}

	// Print configuration summary
	fmt.Println("Configuration is valid!")
	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  Destination: %s\n", cfg.Destination)
	fmt.Printf("  Individual copies: %d\n", len(cfg.Copy.Paths))
	fmt.Printf("  Archive members: %d\n", len(cfg.Archive.Paths))
	fmt.Printf("  Archive prefix: %s\n", cfg.Archive.Prefix)
	if len(cfg.Archive.Exclude) > 0 {
		fmt.Printf("  Archive excludes: %v\n", cfg.Archive.Exclude)
	}
	fmt.Println()
	fmt.Println("Retention Policy:")
	fmt.Printf("  Pruning enabled: %v\n", cfg.Prune.Enabled)
	fmt.Printf("  Keep last: %d\n", cfg.Prune.KeepLast)
	fmt.Printf("  Dry run: %v\n", cfg.Prune.DryRun)
	fmt.Println()
	fmt.Println("Optional Features:")
	fmt.Printf("  Removable drive: %v\n", cfg.Drive != nil)

	if cfg.Drive != nil {
		fmt.Println()
		fmt.Println("Removable Drive Configuration:")
		fmt.Printf("  Mount point: %s\n", cfg.Drive.Path)
		fmt.Printf("  Files: %d\n", len(cfg.Drive.Files))
		if cfg.Drive.Subfolder != "" {
			fmt.Printf("  Subfolder: %s\n", cfg.Drive.Subfolder)
		}
		if _, err := os.Stat(cfg.Drive.Path); err == nil {
			fmt.Printf("  Currently mounted: yes\n")
		} else {
			fmt.Printf("  Currently mounted: no\n")
		}
	}

	return nil
}
