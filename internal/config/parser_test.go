package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParser_LoadReader_MinimalConfig(t *testing.T) {
	yaml := `
destination: /backups
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "/backups", cfg.Destination)
	assert.Empty(t, cfg.Copy.Paths)
	assert.Empty(t, cfg.Archive.Paths)
	assert.Nil(t, cfg.Drive)
	// Check defaults
	assert.Equal(t, DefaultArchivePrefix, cfg.Archive.Prefix)
	assert.Equal(t, DefaultKeepLast, cfg.Prune.KeepLast)
	assert.False(t, cfg.Prune.Enabled)
	assert.False(t, cfg.Prune.DryRun)
}

func TestParser_LoadReader_FullConfig(t *testing.T) {
	yaml := `
destination: /home/user/CloudSync/Backups

copy:
  paths:
    - /etc/hosts
    - /home/user/.ssh

archive:
  paths:
    - /home/user/documents
    - /home/user/notes.txt
  prefix: laptop
  exclude:
    - "*.tmp"
    - ".git"

drive:
  path: /media/usb
  files:
    - keepass.kdbx
    - recovery-codes.txt
  subfolder: usb

prune:
  enabled: true
  keep_last: 5
  dry_run: true
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "/home/user/CloudSync/Backups", cfg.Destination)
	assert.Equal(t, []string{"/etc/hosts", "/home/user/.ssh"}, cfg.Copy.Paths)
	assert.Equal(t, []string{"/home/user/documents", "/home/user/notes.txt"}, cfg.Archive.Paths)
	assert.Equal(t, "laptop", cfg.Archive.Prefix)
	assert.Equal(t, []string{"*.tmp", ".git"}, cfg.Archive.Exclude)

	require.NotNil(t, cfg.Drive)
	assert.Equal(t, "/media/usb", cfg.Drive.Path)
	assert.Equal(t, []string{"keepass.kdbx", "recovery-codes.txt"}, cfg.Drive.Files)
	assert.Equal(t, "usb", cfg.Drive.Subfolder)

	assert.True(t, cfg.Prune.Enabled)
	assert.Equal(t, 5, cfg.Prune.KeepLast)
	assert.True(t, cfg.Prune.DryRun)
}

func TestParser_LoadReader_MissingDestination(t *testing.T) {
	yaml := `
copy:
  paths:
    - /etc/hosts
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "destination is required")
}

func TestParser_LoadReader_DriveWithoutPath(t *testing.T) {
	yaml := `
destination: /backups
drive:
  files:
    - keepass.kdbx
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "drive.path is required")
}

func TestParser_LoadReader_NegativeKeepLast(t *testing.T) {
	yaml := `
destination: /backups
prune:
  keep_last: -1
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "must not be negative")
}

func TestParser_LoadReader_MalformedKeepLast(t *testing.T) {
	yaml := `
destination: /backups
prune:
  keep_last: many
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "keep_last must be an integer")
}

func TestParser_LoadReader_ExplicitZeroKeepLast(t *testing.T) {
	yaml := `
destination: /backups
prune:
  enabled: true
  keep_last: 0
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	// Zero keeps nothing; the default only applies when the key is absent.
	assert.Equal(t, 0, cfg.Prune.KeepLast)
}

func TestParser_LoadReader_PrefixWithSeparator(t *testing.T) {
	yaml := `
destination: /backups
archive:
  prefix: "../evil"
`
	parser := NewParser()
	_, err := parser.LoadReader(yaml)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "path separators")
}

func TestParser_LoadReader_EnvExpansion(t *testing.T) {
	t.Setenv("STASHBAK_TEST_DEST", "/mnt/cloud")
	t.Setenv("STASHBAK_TEST_HOME", "/home/user")

	yaml := `
destination: ${STASHBAK_TEST_DEST}/backups
copy:
  paths:
    - ${STASHBAK_TEST_HOME}/.ssh
drive:
  path: $STASHBAK_TEST_DEST/usb
`
	parser := NewParser()
	cfg, err := parser.LoadReader(yaml)

	require.NoError(t, err)
	assert.Equal(t, "/mnt/cloud/backups", cfg.Destination)
	assert.Equal(t, []string{"/home/user/.ssh"}, cfg.Copy.Paths)
	require.NotNil(t, cfg.Drive)
	assert.Equal(t, "/mnt/cloud/usb", cfg.Drive.Path)
}

func TestParser_LoadReader_InvalidYAML(t *testing.T) {
	parser := NewParser()
	_, err := parser.LoadReader("destination: [unclosed")

	require.Error(t, err)
}

func TestParser_LoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stashbak.yaml")

	content := `
destination: /backups
archive:
  prefix: home
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	parser := NewParser()
	cfg, err := parser.LoadFile(path)

	require.NoError(t, err)
	assert.Equal(t, "/backups", cfg.Destination)
	assert.Equal(t, "home", cfg.Archive.Prefix)
}

func TestParser_LoadFile_Missing(t *testing.T) {
	parser := NewParser()
	_, err := parser.LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))

	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("nil config", func(t *testing.T) {
		require.Error(t, Validate(nil))
	})

	t.Run("valid config", func(t *testing.T) {
		parser := NewParser()
		cfg, err := parser.LoadReader("destination: /backups")
		require.NoError(t, err)
		assert.NoError(t, Validate(cfg))
	})

	t.Run("empty destination", func(t *testing.T) {
		parser := NewParser()
		cfg, err := parser.LoadReader("destination: /backups")
		require.NoError(t, err)
		cfg.Destination = ""
		assert.Error(t, Validate(cfg))
	})
}
