// Package config provides configuration file parsing and the first-run
// template.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/pfries/stashbak/internal/models"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// DefaultPath is the well-known location of the configuration file, relative
// to the directory the tool is invoked from.
const DefaultPath = "stashbak.yaml"

// Defaults applied when the corresponding keys are absent.
const (
	DefaultArchivePrefix = "stashbak"
	DefaultKeepLast      = 10
)

// ErrSetupRequired is returned by Load when no configuration file existed and
// a template was written in its place. The caller is expected to exit with
// the "setup required" status rather than treat this as a failure.
var ErrSetupRequired = errors.New("configuration template created, setup required")

// Parser handles configuration file parsing.
type Parser struct {
	v *viper.Viper
}

// NewParser creates a new configuration parser.
func NewParser() *Parser {
	v := viper.New()
	v.SetConfigType("yaml")
	return &Parser{v: v}
}

// Load loads the configuration at path. When no file exists there, a
// commented template is written in its place and ErrSetupRequired is
// returned; no backup action may be taken in that case.
func (p *Parser) Load(path string) (*models.Config, error) {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("checking config file: %w", err)
		}
		if err := WriteTemplate(path); err != nil {
			return nil, fmt.Errorf("writing config template: %w", err)
		}
		return nil, ErrSetupRequired
	}
	return p.LoadFile(path)
}

// LoadFile loads configuration from an existing file path.
func (p *Parser) LoadFile(path string) (*models.Config, error) {
	p.v.SetConfigFile(path)

	if err := p.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return p.parse()
}

// LoadReader loads configuration from a string (useful for testing).
func (p *Parser) LoadReader(content string) (*models.Config, error) {
	if err := p.v.ReadConfig(strings.NewReader(content)); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	return p.parse()
}

func (p *Parser) parse() (*models.Config, error) {
	cfg := &models.Config{}

	// Destination (required).
	cfg.Destination = p.expandEnv(p.v.GetString("destination"))
	if cfg.Destination == "" {
		return nil, fmt.Errorf("destination is required")
	}

	// Individual-copy list.
	cfg.Copy = models.CopySettings{
		Paths: p.expandEnvSlice(p.v.GetStringSlice("copy.paths")),
	}

	// Archive settings.
	cfg.Archive = models.ArchiveSettings{
		Paths:   p.expandEnvSlice(p.v.GetStringSlice("archive.paths")),
		Prefix:  p.v.GetString("archive.prefix"),
		Exclude: p.v.GetStringSlice("archive.exclude"),
	}

	if cfg.Archive.Prefix == "" {
		cfg.Archive.Prefix = DefaultArchivePrefix
	}
	if strings.ContainsAny(cfg.Archive.Prefix, `/\`) {
		return nil, fmt.Errorf("archive.prefix must not contain path separators")
	}

	// Parse optional removable-drive config.
	if p.v.IsSet("drive") {
		cfg.Drive = &models.DriveConfig{
			Path:      p.expandEnv(p.v.GetString("drive.path")),
			Files:     p.v.GetStringSlice("drive.files"),
			Subfolder: p.v.GetString("drive.subfolder"),
		}

		if cfg.Drive.Path == "" {
			return nil, fmt.Errorf("drive.path is required when drive is configured")
		}
	}

	// Retention policy. GetInt would silently coerce malformed values to
	// zero, so convert explicitly to surface the error.
	cfg.Prune = models.PruneSettings{
		Enabled: p.v.GetBool("prune.enabled"),
		DryRun:  p.v.GetBool("prune.dry_run"),
	}

	if p.v.IsSet("prune.keep_last") {
		keep, err := cast.ToIntE(p.v.Get("prune.keep_last"))
		if err != nil {
			return nil, fmt.Errorf("prune.keep_last must be an integer: %w", err)
		}
		if keep < 0 {
			return nil, fmt.Errorf("prune.keep_last must not be negative")
		}
		cfg.Prune.KeepLast = keep
	} else {
		cfg.Prune.KeepLast = DefaultKeepLast
	}

	return cfg, nil
}

// expandEnv expands environment variables in the format ${VAR} or $VAR.
func (p *Parser) expandEnv(s string) string {
	return os.ExpandEnv(s)
}

func (p *Parser) expandEnvSlice(values []string) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = p.expandEnv(v)
	}
	return out
}

// Validate performs validation on the loaded configuration.
func Validate(cfg *models.Config) error {
	if cfg == nil {
		return fmt.Errorf("configuration is nil")
	}

	if cfg.Destination == "" {
		return fmt.Errorf("destination is required")
	}

	if cfg.Prune.KeepLast < 0 {
		return fmt.Errorf("prune.keep_last must not be negative")
	}

	if cfg.Drive != nil && cfg.Drive.Path == "" {
		return fmt.Errorf("drive.path is required when drive is configured")
	}

	return nil
}
