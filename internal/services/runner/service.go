// Package runner orchestrates the backup pipeline.
package runner

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pfries/stashbak/internal/models"
	"github.com/pfries/stashbak/internal/services/archiver"
	"github.com/pfries/stashbak/internal/services/copier"
	"github.com/pfries/stashbak/internal/services/importer"
	"github.com/pfries/stashbak/internal/services/pruner"
	"github.com/rs/zerolog"
)

// Service defines the interface for the backup runner.
type Service interface {
	Run(ctx context.Context, cfg models.Config) error
}

// Impl implements the runner Service interface.
type Impl struct {
	copierSvc   copier.Service
	archiverSvc archiver.Service
	importerSvc importer.Service
	prunerSvc   pruner.Service
	logger      zerolog.Logger
}

// New creates a new runner service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{
		copierSvc:   copier.New(logger),
		archiverSvc: archiver.New(logger),
		importerSvc: importer.New(logger),
		prunerSvc:   pruner.New(logger),
		logger:      logger,
	}
}

// NewWithServices creates a new runner service with custom services (for
// testing).
func NewWithServices(
	logger zerolog.Logger,
	copierSvc copier.Service,
	archiverSvc archiver.Service,
	importerSvc importer.Service,
	prunerSvc pruner.Service,
) *Impl {
	return &Impl{
		copierSvc:   copierSvc,
		archiverSvc: archiverSvc,
		importerSvc: importerSvc,
		prunerSvc:   prunerSvc,
		logger:      logger,
	}
}

// Run executes the backup sequence: copy individual files, build the
// archive, import from the removable drive, prune old archives. Steps after
// the destination check are isolated: a failing archive or import is logged
// and the remaining steps still run. Warnings never fail the run.
func (s *Impl) Run(ctx context.Context, cfg models.Config) error {
	startTime := time.Now()

	s.logger.Info().
		Str("destination", cfg.Destination).
		Msg("starting backup run")

	// The destination is owned by the cloud-sync client; nothing can run
	// without it.
	info, err := os.Stat(cfg.Destination)
	if err != nil {
		return fmt.Errorf("destination not accessible: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("destination is not a directory: %s", cfg.Destination)
	}

	// Step 1: copy individual files.
	copyResult, err := s.copierSvc.Copy(ctx, cfg)
	if err != nil {
		return fmt.Errorf("copy step failed: %w", err)
	}
	s.logWarnings("copy", copyResult.Warnings)
	s.logger.Info().
		Int("files", copyResult.FilesCopied).
		Str("size", humanize.Bytes(uint64(copyResult.BytesCopied))).
		Dur("duration", copyResult.Duration).
		Msg("individual copies completed")

	// Step 2: build the archive (if members are configured).
	if err := s.runArchive(ctx, cfg); err != nil {
		return err
	}

	// Step 3: import from the removable drive (if configured).
	if cfg.Drive != nil {
		if err := s.runImport(ctx, cfg); err != nil {
			return err
		}
	}

	// Step 4: prune old archives (if enabled).
	if cfg.Prune.Enabled {
		if err := s.runPrune(ctx, cfg); err != nil {
			return err
		}
	}

	s.logger.Info().
		Dur("duration", time.Since(startTime)).
		Msg("backup run completed")

	return nil
}

// runArchive runs the archive step. Archive failures abort only this step;
// context cancellation still stops the run.
func (s *Impl) runArchive(ctx context.Context, cfg models.Config) error {
	if len(cfg.Archive.Paths) == 0 {
		s.logger.Debug().Msg("no archive members configured, skipping archive step")
		return nil
	}

	result, err := s.archiverSvc.Build(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.logger.Error().Err(err).Msg("archive step failed, continuing with remaining steps")
		return nil
	}

	s.logWarnings("archive", result.Warnings)
	if result.Skipped {
		return nil
	}

	s.logger.Info().
		Str("archive", result.ArchivePath).
		Int("files", result.FilesAdded).
		Str("size", humanize.Bytes(uint64(result.SizeBytes))).
		Dur("duration", result.Duration).
		Msg("archive created")

	return nil
}

func (s *Impl) runImport(ctx context.Context, cfg models.Config) error {
	result, err := s.importerSvc.Import(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.logger.Error().Err(err).Msg("drive import failed, continuing with remaining steps")
		return nil
	}

	s.logWarnings("import", result.Warnings)
	if result.Skipped {
		return nil
	}

	s.logger.Info().
		Int("files", result.FilesCopied).
		Str("size", humanize.Bytes(uint64(result.BytesCopied))).
		Dur("duration", result.Duration).
		Msg("drive import completed")

	return nil
}

func (s *Impl) runPrune(ctx context.Context, cfg models.Config) error {
	result, err := s.prunerSvc.Prune(ctx, cfg)
	if err != nil {
		if ctx.Err() != nil {
			return err
		}
		s.logger.Error().Err(err).Msg("pruning failed")
		return nil
	}

	s.logWarnings("prune", result.Warnings)
	s.logger.Info().
		Int("kept", result.Kept).
		Int("removed", result.Removed).
		Dur("duration", result.Duration).
		Msg("retention policy applied")

	return nil
}

func (s *Impl) logWarnings(step string, warnings []string) {
	for _, w := range warnings {
		s.logger.Warn().Str("step", step).Msg(w)
	}
}
