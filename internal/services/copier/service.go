// Package copier copies configured files and directories into the
// destination root.
package copier

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/pfries/stashbak/internal/models"
	"github.com/rs/zerolog"
)

// Service defines the interface for the individual-copy step.
type Service interface {
	Copy(ctx context.Context, cfg models.Config) (*models.CopyResult, error)
}

// Impl implements the copier Service interface.
type Impl struct {
	logger zerolog.Logger
}

// New creates a new copier service.
func New(logger zerolog.Logger) *Impl {
	return &Impl{logger: logger}
}

// Copy copies each configured path into the destination root, overwriting
// whatever is already there under the same name. A missing source is
// recorded as a warning and never aborts the remaining entries.
func (s *Impl) Copy(ctx context.Context, cfg models.Config) (*models.CopyResult, error) {
	start := time.Now()
	result := &models.CopyResult{}

	for _, src := range cfg.Copy.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		info, err := os.Lstat(src)
		if err != nil {
			s.warn(result, fmt.Sprintf("source not found, skipping: %s", src))
			continue
		}

		dst := filepath.Join(cfg.Destination, filepath.Base(src))

		switch {
		case info.IsDir():
			files, bytes := s.copyDir(src, dst, result)
			result.FilesCopied += files
			result.BytesCopied += bytes
		case info.Mode().IsRegular():
			n, err := CopyFile(src, dst)
			if err != nil {
				s.warn(result, fmt.Sprintf("copying %s: %v", src, err))
				continue
			}
			result.FilesCopied++
			result.BytesCopied += n
			s.logger.Debug().Str("src", src).Str("dst", dst).Msg("copied file")
		default:
			// Symlinks and special files are not followed.
			s.warn(result, fmt.Sprintf("not a regular file or directory, skipping: %s", src))
		}
	}

	result.Duration = time.Since(start)
	return result, nil
}

// copyDir copies the tree rooted at src to dst, creating directories as
// needed and overwriting existing files. Per-file failures become warnings.
func (s *Impl) copyDir(src, dst string, result *models.CopyResult) (int, int64) {
	var files int
	var bytes int64

	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			s.warn(result, fmt.Sprintf("walking %s: %v", path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		if d.IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				s.warn(result, fmt.Sprintf("creating %s: %v", target, err))
				return fs.SkipDir
			}
			return nil
		}

		if !d.Type().IsRegular() {
			s.warn(result, fmt.Sprintf("not a regular file, skipping: %s", path))
			return nil
		}

		n, err := CopyFile(path, target)
		if err != nil {
			s.warn(result, fmt.Sprintf("copying %s: %v", path, err))
			return nil
		}
		files++
		bytes += n
		return nil
	})
	if err != nil {
		s.warn(result, fmt.Sprintf("copying directory %s: %v", src, err))
	}

	s.logger.Debug().Str("src", src).Str("dst", dst).Int("files", files).Msg("copied directory")
	return files, bytes
}

func (s *Impl) warn(result *models.CopyResult, msg string) {
	s.logger.Debug().Msg(msg)
	result.Warnings = append(result.Warnings, msg)
}

// CopyFile copies a single regular file to dst, truncating any existing file
// and carrying over the source's permission bits. It returns the number of
// bytes copied.
func CopyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer func() { _ = in.Close() }()

	info, err := in.Stat()
	if err != nil {
		return 0, err
	}

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return 0, err
	}

	n, err := io.Copy(out, in)
	if err != nil {
		_ = out.Close()
		return n, err
	}

	return n, out.Close()
}
