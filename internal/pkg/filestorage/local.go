package filestorage

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/yigit/schoolrecords/internal/pkg/logger"
)

// ScratchFileName is the scratch file written by CheckWritable.
const ScratchFileName = "temp_permission_test.tmp"

// maxHeaderLine is the longest first line IsValidCSVFile accepts.
const maxHeaderLine = 1000

// ErrFreeSpaceUnsupported is returned by FreeSpace on platforms without statfs.
var ErrFreeSpaceUnsupported = errors.New("free space query not supported on this platform")

// LocalStorage handles files on the local filesystem.
type LocalStorage struct {
	basePath string // The root directory where data files live
}

// NewLocalStorage creates a new LocalStorage instance rooted at basePath,
// creating the directory when missing.
func NewLocalStorage(basePath string) (*LocalStorage, error) {
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		logger.Error().Err(err).Str("path", basePath).Msg("Failed to create storage directory")
		return nil, fmt.Errorf("failed to create storage directory %s: %w", basePath, err)
	}
	logger.Debug().Str("path", basePath).Msg("Local storage directory ensured")

	return &LocalStorage{basePath: basePath}, nil
}

// BasePath returns the storage root.
func (ls *LocalStorage) BasePath() string {
	return ls.basePath
}

// Path joins name onto the storage root.
func (ls *LocalStorage) Path(name string) string {
	return filepath.Join(ls.basePath, name)
}

// EnsureDir creates dir and any missing parents.
func (ls *LocalStorage) EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		logger.Error().Err(err).Str("path", dir).Msg("Failed to create directory")
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Create opens path for writing, truncating any existing content.
func (ls *LocalStorage) Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Failed to open file for writing")
		return nil, fmt.Errorf("cannot open file for writing %s: %w", path, err)
	}
	return f, nil
}

// Open opens path for reading.
func (ls *LocalStorage) Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot open file %s: %w", path, err)
	}
	return f, nil
}

// Exists reports whether path exists.
func (ls *LocalStorage) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Size returns the file size in bytes.
func (ls *LocalStorage) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// CopyFile copies src to dst, replacing dst. A partially written dst is removed.
func (ls *LocalStorage) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		logger.Error().Err(err).Str("path", dst).Msg("Failed to create destination file")
		return fmt.Errorf("failed to create destination file %s: %w", dst, err)
	}

	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		logger.Error().Err(err).Str("src", src).Str("dst", dst).Msg("Failed to copy file content")
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}

	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("failed to close %s: %w", dst, err)
	}
	return nil
}

// Rename moves src over dst.
func (ls *LocalStorage) Rename(src, dst string) error {
	if err := os.Rename(src, dst); err != nil {
		logger.Error().Err(err).Str("src", src).Str("dst", dst).Msg("Failed to rename file")
		return fmt.Errorf("failed to rename %s to %s: %w", src, dst, err)
	}
	return nil
}

// Remove deletes a file. Returns nil if the file doesn't exist.
func (ls *LocalStorage) Remove(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		logger.Error().Err(err).Str("path", path).Msg("Failed to delete file")
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}
	return nil
}

// RemoveAll deletes path and everything below it.
func (ls *LocalStorage) RemoveAll(path string) error {
	if err := os.RemoveAll(path); err != nil {
		logger.Error().Err(err).Str("path", path).Msg("Failed to delete directory")
		return fmt.Errorf("failed to delete %s: %w", path, err)
	}
	return nil
}

// ReadFirstLine returns the first line of a file without its line ending.
func (ls *LocalStorage) ReadFirstLine(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// IsValidCSVFile checks the basic CSV shape: a non-empty first line that
// contains a comma and is shorter than 1000 characters.
func (ls *LocalStorage) IsValidCSVFile(path string) bool {
	line, err := ls.ReadFirstLine(path)
	if err != nil || line == "" {
		return false
	}
	return strings.Contains(line, ",") && len(line) < maxHeaderLine
}

// List returns the entries of dir sorted by name.
func (ls *LocalStorage) List(dir string) ([]FileInfo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", dir, err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		fi := FileInfo{
			Path:    filepath.Join(dir, e.Name()),
			Name:    e.Name(),
			ModTime: info.ModTime(),
			IsDir:   e.IsDir(),
		}
		if !e.IsDir() {
			fi.Size = info.Size()
		}
		files = append(files, fi)
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// CheckWritable writes and removes a scratch file inside dir.
func (ls *LocalStorage) CheckWritable(dir string) error {
	scratch := filepath.Join(dir, ScratchFileName)
	f, err := os.Create(scratch)
	if err != nil {
		logger.Warn().Err(err).Str("path", dir).Msg("Directory is not writable")
		return fmt.Errorf("cannot write to %s: %w", dir, err)
	}
	_, werr := f.WriteString("test")
	cerr := f.Close()
	_ = os.Remove(scratch)
	if werr != nil {
		return fmt.Errorf("cannot write to %s: %w", dir, werr)
	}
	if cerr != nil {
		return fmt.Errorf("cannot write to %s: %w", dir, cerr)
	}
	return nil
}

// FreeSpace returns the bytes available to the process on dir's filesystem.
func (ls *LocalStorage) FreeSpace(dir string) (uint64, error) {
	return freeSpace(dir)
}
