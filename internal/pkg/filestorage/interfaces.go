package filestorage

import (
	"io"
	"time"
)

// FileInfo represents information about a stored file or directory
type FileInfo struct {
	Path    string // Full path of the entry
	Name    string // Base name
	Size    int64  // Size in bytes, 0 for directories
	ModTime time.Time
	IsDir   bool
}

// FileStorage defines the filesystem primitives the record store relies on
type FileStorage interface {
	// EnsureDir creates dir and any missing parents
	EnsureDir(dir string) error

	// Create opens path for writing, truncating any existing content
	Create(path string) (io.WriteCloser, error)

	// Open opens path for reading
	Open(path string) (io.ReadCloser, error)

	// Exists reports whether path exists
	Exists(path string) bool

	// Size returns the file size in bytes
	Size(path string) (int64, error)

	// CopyFile copies src to dst, replacing dst
	CopyFile(src, dst string) error

	// Rename moves src over dst
	Rename(src, dst string) error

	// Remove deletes path; a missing path is not an error
	Remove(path string) error

	// RemoveAll deletes path and everything below it
	RemoveAll(path string) error

	// ReadFirstLine returns the first line of a file without its line ending
	ReadFirstLine(path string) (string, error)

	// IsValidCSVFile checks that the first line looks like a CSV header
	IsValidCSVFile(path string) bool

	// List returns the entries of dir sorted by name
	List(dir string) ([]FileInfo, error)

	// CheckWritable verifies that a file can be created inside dir
	CheckWritable(dir string) error

	// FreeSpace returns the bytes available to the process on dir's filesystem
	FreeSpace(dir string) (uint64, error)
}
