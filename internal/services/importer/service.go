// Package importer copies files from an intermittently connected removable
// drive into the destination.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pfries/stashbak/internal/models"
	"github.com/pfries/stashbak/internal/services/copier"
	"github.com/rs/zerolog"
)

// Service defines the interface for the removable-drive import step.
type Service interface {
	Import(ctx context.Context, cfg models.Config) (*models.ImportResult, error)
}

// Impl implements the importer Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new importer service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// Import copies each configured drive file into the destination (or the
// configured subfolder). An absent drive skips the whole step; the drive
// being disconnected is a normal condition, not an error.
func (s *Impl) Import(ctx context.Context, cfg models.Config) (*models.ImportResult, error) {
	start := time.Now()
	result := &models.ImportResult{}

	if cfg.Drive == nil {
		result.Skipped = true
		result.Duration = time.Since(start)
		return result, nil
	}

	if _, err := os.Stat(cfg.Drive.Path); err != nil {
		msg := fmt.Sprintf("removable drive not mounted, skipping import: %s", cfg.Drive.Path)
		s.logger.Debug().Msg(msg)
		result.Warnings = append(result.Warnings, msg)
		result.Skipped = true
		result.Duration = time.Since(start)
		return result, nil
	}

	destDir := cfg.Destination
	if cfg.Drive.Subfolder != "" {
		destDir = filepath.Join(cfg.Destination, cfg.Drive.Subfolder)
		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating import folder %s: %w", destDir, err)
		}
	}

	for _, name := range cfg.Drive.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src := name
		if !filepath.IsAbs(name) {
			src = filepath.Join(cfg.Drive.Path, name)
		}

		info, err := os.Lstat(src)
		if err != nil {
			s.warn(result, fmt.Sprintf("drive file not found, skipping: %s", src))
			continue
		}
		if !info.Mode().IsRegular() {
			s.warn(result, fmt.Sprintf("not a regular file, skipping: %s", src))
			continue
		}

		dst := filepath.Join(destDir, filepath.Base(src))
		n, err := copier.CopyFile(src, dst)
		if err != nil {
			s.warn(result, fmt.Sprintf("copying %s: %v", src, err))
			continue
		}
		result.FilesCopied++
		result.BytesCopied += n
		s.logger.Debug().Str("src", src).Str("dst", dst).Msg("imported drive file")
	}

	result.Duration = time.Since(start)
	return result, nil
}

func (s *Impl) warn(result *models.ImportResult, msg string) {
	s.logger.Debug().Msg(msg)
	result.Warnings = append(result.Warnings, msg)
}
