//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pfries/stashbak/internal/models"
	"github.com/pfries/stashbak/internal/services/runner"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() zerolog.Logger {
	return zerolog.New(os.Stdout).With().Timestamp().Logger()
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// TestFullRun exercises the real services end to end: individual copies, the
// zip archive, a drive import, and pruning across repeated runs.
func TestFullRun(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	drive := t.TempDir()

	writeFile(t, filepath.Join(src, "hosts"), "127.0.0.1 localhost")
	writeFile(t, filepath.Join(src, "documents", "letter.txt"), "dear sir")
	writeFile(t, filepath.Join(src, "documents", "tax", "2023.pdf"), "pdf bytes")
	writeFile(t, filepath.Join(drive, "keepass.kdbx"), "vault")

	cfg := models.Config{
		Destination: dest,
		Copy:        models.CopySettings{Paths: []string{filepath.Join(src, "hosts")}},
		Archive: models.ArchiveSettings{
			Prefix: "stashbak",
			Paths:  []string{filepath.Join(src, "documents")},
		},
		Drive: &models.DriveConfig{
			Path:      drive,
			Files:     []string{"keepass.kdbx"},
			Subfolder: "usb",
		},
		Prune: models.PruneSettings{Enabled: true, KeepLast: 2},
	}

	svc := runner.New(testLogger())

	require.NoError(t, svc.Run(context.Background(), cfg))

	assert.FileExists(t, filepath.Join(dest, "hosts"))
	assert.FileExists(t, filepath.Join(dest, "usb", "keepass.kdbx"))

	archives, err := filepath.Glob(filepath.Join(dest, "stashbak_*.zip"))
	require.NoError(t, err)
	assert.Len(t, archives, 1)

	// Two more runs, spaced so the archive timestamps differ. Retention
	// keeps the two newest archives.
	for i := 0; i < 2; i++ {
		time.Sleep(1100 * time.Millisecond)
		require.NoError(t, svc.Run(context.Background(), cfg))
	}

	archives, err = filepath.Glob(filepath.Join(dest, "stashbak_*.zip"))
	require.NoError(t, err)
	assert.Len(t, archives, 2)
}

// TestRunWithAbsentDrive verifies a disconnected drive does not fail the run.
func TestRunWithAbsentDrive(t *testing.T) {
	src := t.TempDir()
	dest := t.TempDir()
	writeFile(t, filepath.Join(src, "hosts"), "127.0.0.1 localhost")

	cfg := models.Config{
		Destination: dest,
		Copy:        models.CopySettings{Paths: []string{filepath.Join(src, "hosts")}},
		Archive:     models.ArchiveSettings{Prefix: "stashbak"},
		Drive: &models.DriveConfig{
			Path:  filepath.Join(t.TempDir(), "usb-disconnected"),
			Files: []string{"keepass.kdbx"},
		},
	}

	require.NoError(t, runner.New(testLogger()).Run(context.Background(), cfg))
	assert.FileExists(t, filepath.Join(dest, "hosts"))
}
