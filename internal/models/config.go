// Package models contains the data structures used throughout stashbak.
package models

// Config holds the complete configuration for a backup run. It is built once
// at startup and read-only afterwards.
type Config struct {
	Destination string // root of the cloud-synced backup folder
	Copy        CopySettings
	Archive     ArchiveSettings
	Drive       *DriveConfig // nil if not configured
	Prune       PruneSettings
}

// CopySettings lists paths copied verbatim into the destination root.
type CopySettings struct {
	Paths []string
}

// ArchiveSettings controls the per-run zip archive.
type ArchiveSettings struct {
	Paths   []string
	Prefix  string   // archive filename prefix, prepended to the timestamp
	Exclude []string // basename glob patterns skipped while walking directories
}

// DriveConfig holds the removable-drive import configuration. The drive is
// expected to be intermittently absent; a missing mount point skips the step.
type DriveConfig struct {
	Path      string   // mount point of the drive
	Files     []string // files to import, relative to Path unless absolute
	Subfolder string   // optional subfolder under the destination root
}

// PruneSettings defines the archive retention policy.
type PruneSettings struct {
	Enabled  bool
	KeepLast int  // maximum number of archives to keep
	DryRun   bool // log prune candidates without deleting
}
