// Package archiver builds the per-run zip archive.
package archiver

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/pfries/stashbak/internal/models"
	"github.com/rs/zerolog"
)

// TimestampFormat is the sortable timestamp embedded in archive names.
const TimestampFormat = "20060102-150405"

// ArchiveName returns the archive filename for the given prefix and time,
// e.g. "stashbak_20240101-093000.zip".
func ArchiveName(prefix string, t time.Time) string {
	return fmt.Sprintf("%s_%s.zip", prefix, t.Format(TimestampFormat))
}

// ArchivePattern returns the glob matching archives created with prefix.
func ArchivePattern(prefix string) string {
	return prefix + "_*.zip"
}

// Service defines the interface for the archive step.
type Service interface {
	Build(ctx context.Context, cfg models.Config) (*models.ArchiveResult, error)
}

// Impl implements the archiver Service interface.
type Impl struct {
	logger zerolog.Logger
	now    func() time.Time
}

// New creates a new archiver service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger, now: time.Now}
}

// NewWithClock creates a new archiver service with a custom clock (for
// testing).
func NewWithClock(logger zerolog.Logger, now func() time.Time) *Impl {
	return &Impl{logger: logger, now: now}
}

// Build writes one zip archive containing every configured member into the
// destination root. With an empty member list no archive is produced.
// Missing members are warnings; a write failure aborts the step and removes
// the partial archive.
func (s *Impl) Build(ctx context.Context, cfg models.Config) (*models.ArchiveResult, error) {
	start := time.Now()
	result := &models.ArchiveResult{}

	if len(cfg.Archive.Paths) == 0 {
		s.logger.Debug().Msg("no archive members configured, skipping archive step")
		result.Skipped = true
		result.Duration = time.Since(start)
		return result, nil
	}

	archivePath := filepath.Join(cfg.Destination, ArchiveName(cfg.Archive.Prefix, s.now()))

	f, err := os.OpenFile(archivePath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating archive %s: %w", archivePath, err)
	}
	zw := zip.NewWriter(f)

	cleanup := func() {
		_ = zw.Close()
		_ = f.Close()
		_ = os.Remove(archivePath)
	}

	for _, member := range cfg.Archive.Paths {
		if err := ctx.Err(); err != nil {
			cleanup()
			return nil, err
		}

		info, err := os.Lstat(member)
		if err != nil {
			s.warn(result, fmt.Sprintf("archive member not found, skipping: %s", member))
			continue
		}

		base := filepath.Base(member)

		switch {
		case info.IsDir():
			if err := s.addDir(zw, member, base, cfg.Archive.Exclude, result); err != nil {
				cleanup()
				return nil, fmt.Errorf("archiving %s: %w", member, err)
			}
		case info.Mode().IsRegular():
			if excluded(base, cfg.Archive.Exclude) {
				s.logger.Debug().Str("path", member).Msg("archive member excluded by pattern")
				continue
			}
			if err := s.addFile(zw, member, base, info); err != nil {
				cleanup()
				return nil, fmt.Errorf("archiving %s: %w", member, err)
			}
			result.FilesAdded++
		default:
			s.warn(result, fmt.Sprintf("not a regular file or directory, skipping: %s", member))
		}
	}

	if result.FilesAdded == 0 {
		cleanup()
		s.warn(result, "no archive members could be added, archive not created")
		result.Skipped = true
		result.Duration = time.Since(start)
		return result, nil
	}

	if err := zw.Close(); err != nil {
		_ = f.Close()
		_ = os.Remove(archivePath)
		return nil, fmt.Errorf("finalizing archive: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(archivePath)
		return nil, fmt.Errorf("closing archive: %w", err)
	}

	if stat, err := os.Stat(archivePath); err == nil {
		result.SizeBytes = stat.Size()
	}

	result.ArchivePath = archivePath
	result.Duration = time.Since(start)
	return result, nil
}

// addDir walks the tree rooted at dir and stores every regular file under
// "<base>/<relative path>" so the archive is self-contained.
func (s *Impl) addDir(zw *zip.Writer, dir, base string, exclude []string, result *models.ArchiveResult) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			s.warn(result, fmt.Sprintf("walking %s: %v", p, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			if p != dir && excluded(d.Name(), exclude) {
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			s.warn(result, fmt.Sprintf("not a regular file, skipping: %s", p))
			return nil
		}
		if excluded(d.Name(), exclude) {
			return nil
		}

		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			s.warn(result, fmt.Sprintf("reading %s: %v", p, err))
			return nil
		}

		if err := s.addFile(zw, p, path.Join(base, filepath.ToSlash(rel)), info); err != nil {
			return err
		}
		result.FilesAdded++
		return nil
	})
}

func (s *Impl) addFile(zw *zip.Writer, src, name string, info fs.FileInfo) error {
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	if _, err := io.Copy(w, in); err != nil {
		return err
	}

	s.logger.Debug().Str("path", src).Str("entry", name).Msg("added archive member")
	return nil
}

func (s *Impl) warn(result *models.ArchiveResult, msg string) {
	s.logger.Debug().Msg(msg)
	result.Warnings = append(result.Warnings, msg)
}

// excluded reports whether a basename is filtered from archives. Editor
// temp files ("~" prefix) are always filtered, everything else per the
// configured glob patterns.
func excluded(name string, patterns []string) bool {
	if strings.HasPrefix(name, "~") {
		return true
	}
	for _, pat := range patterns {
		if ok, err := filepath.Match(pat, name); err == nil && ok {
			return true
		}
	}
	return false
}
