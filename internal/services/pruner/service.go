// Package pruner enforces the archive retention policy.
package pruner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/pfries/stashbak/internal/models"
	"github.com/pfries/stashbak/internal/services/archiver"
	"github.com/rs/zerolog"
)

// Service defines the interface for the archive pruning step.
type Service interface {
	Prune(ctx context.Context, cfg models.Config) (*models.PruneResult, error)
}

// Impl implements the pruner Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new pruner service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

type archiveFile struct {
	path    string
	modTime time.Time
}

// Prune deletes the oldest archives in the destination until at most
// KeepLast remain. Files that fail to delete count as surviving and only
// produce warnings. Pruning an already-pruned destination removes nothing.
func (s *Impl) Prune(ctx context.Context, cfg models.Config) (*models.PruneResult, error) {
	start := time.Now()
	result := &models.PruneResult{}

	if !cfg.Prune.Enabled {
		s.logger.Debug().Msg("pruning disabled, skipping")
		result.Duration = time.Since(start)
		return result, nil
	}

	pattern := filepath.Join(cfg.Destination, archiver.ArchivePattern(cfg.Archive.Prefix))
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("listing archives: %w", err)
	}

	files := make([]archiveFile, 0, len(matches))
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			s.warn(result, fmt.Sprintf("reading %s: %v", m, err))
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		files = append(files, archiveFile{path: m, modTime: info.ModTime()})
	}

	// Oldest first; path as tie-breaker keeps the order deterministic.
	sort.Slice(files, func(i, j int) bool {
		if files[i].modTime.Equal(files[j].modTime) {
			return files[i].path < files[j].path
		}
		return files[i].modTime.Before(files[j].modTime)
	})

	excess := len(files) - cfg.Prune.KeepLast
	if excess <= 0 {
		result.Kept = len(files)
		result.Duration = time.Since(start)
		s.logger.Debug().Int("archives", len(files)).Msg("retention limit not exceeded")
		return result, nil
	}

	for _, f := range files[:excess] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if cfg.Prune.DryRun {
			s.logger.Info().Str("path", f.path).Msg("dry run, would delete archive")
			continue
		}

		if err := os.Remove(f.path); err != nil {
			s.warn(result, fmt.Sprintf("deleting %s: %v", f.path, err))
			continue
		}
		result.Removed++
		result.RemovedPaths = append(result.RemovedPaths, f.path)
		s.logger.Debug().Str("path", f.path).Msg("deleted archive")
	}

	result.Kept = len(files) - result.Removed
	result.Duration = time.Since(start)
	return result, nil
}

func (s *Impl) warn(result *models.PruneResult, msg string) {
	s.logger.Debug().Msg(msg)
	result.Warnings = append(result.Warnings, msg)
}
