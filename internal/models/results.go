package models

import "time"

// CopyResult holds the result of the individual-copy step.
type CopyResult struct {
	FilesCopied int
	BytesCopied int64
	Warnings    []string
	Duration    time.Duration
}

// ArchiveResult holds the result of the archive step.
type ArchiveResult struct {
	ArchivePath string
	FilesAdded  int
	SizeBytes   int64
	Skipped     bool // true when no archive was produced
	Warnings    []string
	Duration    time.Duration
}

// ImportResult holds the result of the removable-drive import step.
type ImportResult struct {
	Skipped     bool // true when the drive was not mounted
	FilesCopied int
	BytesCopied int64
	Warnings    []string
	Duration    time.Duration
}

// PruneResult holds the result of the archive pruning step.
type PruneResult struct {
	Kept         int
	Removed      int
	RemovedPaths []string
	Warnings     []string
	Duration     time.Duration
}
