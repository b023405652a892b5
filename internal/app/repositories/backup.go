package repositories

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	"gopkg.in/yaml.v3"

	"github.com/yigit/schoolrecords/internal/pkg/apperrors"
	"github.com/yigit/schoolrecords/internal/pkg/helpers"
	"github.com/yigit/schoolrecords/internal/pkg/retry"
)

const (
	backupExt          = ".bak"
	sessionPrefix      = "session_"
	ManifestFileName   = "backup_manifest.yaml"
	maxCollisionSuffix = 1000
)

// backupSuffix matches the stamp RestoreFromBackup strips to find the target name.
var backupSuffix = regexp.MustCompile(`_\d{8}_\d{6}(_\d+)?\.bak$`)

// backupStamp extracts the YYYYMMDD_HHMMSS stamp from a backup or session name.
var backupStamp = regexp.MustCompile(`\d{8}_\d{6}`)

// BackupManifest describes one incremental backup session.
type BackupManifest struct {
	SessionID string         `yaml:"session_id"`
	CreatedAt time.Time      `yaml:"created_at"`
	Files     []ManifestFile `yaml:"files"`
}

// ManifestFile is one file copied into a session.
type ManifestFile struct {
	Name     string `yaml:"name"`
	Source   string `yaml:"source"`
	Size     int64  `yaml:"size"`
	Checksum string `yaml:"blake2b_256"`
}

// BackupEntry is one item returned by ListAvailableBackups.
type BackupEntry struct {
	Path      string
	Name      string
	IsSession bool
	Size      int64
	Stamp     string
}

// uniquePath returns base+ext, or base_N+ext for the first N that is free.
func (r *CSVRepository) uniquePath(base, ext string) (string, error) {
	candidate := base + ext
	for n := 1; r.fs.Exists(candidate); n++ {
		if n > maxCollisionSuffix {
			return "", fmt.Errorf("%w: too many backups named %s", apperrors.ErrBackupFailed, filepath.Base(base))
		}
		candidate = fmt.Sprintf("%s_%d%s", base, n, ext)
	}
	return candidate, nil
}

// BackupFile copies path into the backup directory as
// <name>_<YYYYMMDD_HHMMSS>.bak and returns the backup path.
func (r *CSVRepository) BackupFile(path string) (string, error) {
	const op = "Backup File"

	if !r.fs.Exists(path) {
		return "", r.fail(op, fmt.Errorf("%w: source %s does not exist", apperrors.ErrBackupFailed, path))
	}
	if err := r.fs.EnsureDir(r.paths.BackupDir); err != nil {
		return "", r.fail(op, fmt.Errorf("%w: %v", apperrors.ErrBackupFailed, err))
	}

	base := filepath.Join(r.paths.BackupDir, filepath.Base(path)+"_"+helpers.Timestamp())
	dst, err := r.uniquePath(base, backupExt)
	if err != nil {
		return "", r.fail(op, err)
	}
	if err := r.fs.CopyFile(path, dst); err != nil {
		return "", r.fail(op, fmt.Errorf("%w: %v", apperrors.ErrBackupFailed, err))
	}

	r.logOperation(op, true, path+" -> "+dst)
	return dst, nil
}

// BackupFileWithRetry runs BackupFile under the repository retry policy.
// A missing source is not retried.
func (r *CSVRepository) BackupFileWithRetry(ctx context.Context, path string) (string, error) {
	var dst string
	err := r.retrier.Do(ctx, func(ctx context.Context, attempt int) error {
		if !r.fs.Exists(path) {
			return retry.Permanent(fmt.Errorf("%w: source %s does not exist", apperrors.ErrBackupFailed, path))
		}
		var err error
		dst, err = r.BackupFile(path)
		return err
	})
	if err != nil {
		return "", r.fail("Backup File With Retry", fmt.Errorf("after %d attempt(s): %w", r.retrier.Attempts(), err))
	}
	return dst, nil
}

// BackupDataFiles backs up each data file that exists. Missing files are
// skipped; the first failed copy aborts.
func (r *CSVRepository) BackupDataFiles() error {
	const op = "Backup Data Files"

	count := 0
	for _, path := range r.paths.DataFiles() {
		if !r.fs.Exists(path) {
			continue
		}
		if _, err := r.BackupFileWithRetry(context.Background(), path); err != nil {
			return r.fail(op, err)
		}
		count++
	}
	r.logOperation(op, true, fmt.Sprintf("backed up %d file(s)", count))
	return nil
}

// RestoreFromBackup copies a .bak file back over the data file it was taken
// from. The current file is not backed up first.
func (r *CSVRepository) RestoreFromBackup(backupPath string) error {
	const op = "Restore From Backup"

	if !r.fs.Exists(backupPath) {
		return r.fail(op, fmt.Errorf("%w: backup %s does not exist", apperrors.ErrRestoreFailed, backupPath))
	}
	name := filepath.Base(backupPath)
	if !backupSuffix.MatchString(name) {
		return r.fail(op, fmt.Errorf("%w: %s is not a timestamped backup", apperrors.ErrRestoreFailed, name))
	}

	target := filepath.Join(r.paths.DataDir, backupSuffix.ReplaceAllString(name, ""))
	if err := r.fs.CopyFile(backupPath, target); err != nil {
		return r.fail(op, fmt.Errorf("%w: %v", apperrors.ErrRestoreFailed, err))
	}

	r.logOperation(op, true, backupPath+" -> "+target)
	return nil
}

// ListBackupFiles returns the .bak files in the backup directory by name.
func (r *CSVRepository) ListBackupFiles() ([]string, error) {
	if !r.fs.Exists(r.paths.BackupDir) {
		return nil, nil
	}
	entries, err := r.fs.List(r.paths.BackupDir)
	if err != nil {
		return nil, r.fail("List Backup Files", err)
	}

	var out []string
	for _, e := range entries {
		if !e.IsDir && strings.HasSuffix(e.Name, backupExt) {
			out = append(out, e.Path)
		}
	}
	return out, nil
}

// checksum returns the hex BLAKE2b-256 digest of path.
func (r *CSVRepository) checksum(path string) (string, error) {
	f, err := r.fs.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h, err := blake2b.New256(nil)
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// CreateIncrementalBackup copies every existing data file into a new
// session_<stamp> directory together with a manifest of sizes and checksums.
// It returns the session directory.
func (r *CSVRepository) CreateIncrementalBackup() (string, error) {
	const op = "Create Incremental Backup"

	base := filepath.Join(r.paths.BackupDir, sessionPrefix+helpers.Timestamp())
	session, err := r.uniquePath(base, "")
	if err != nil {
		return "", r.fail(op, err)
	}
	if err := r.fs.EnsureDir(session); err != nil {
		return "", r.fail(op, fmt.Errorf("%w: %v", apperrors.ErrBackupFailed, err))
	}

	manifest := BackupManifest{
		SessionID: uuid.NewString(),
		CreatedAt: helpers.Now().UTC().Truncate(time.Second),
	}
	for _, path := range r.paths.DataFiles() {
		if !r.fs.Exists(path) {
			continue
		}
		name := filepath.Base(path)
		dst := filepath.Join(session, name)
		if err := r.fs.CopyFile(path, dst); err != nil {
			_ = r.fs.RemoveAll(session)
			return "", r.fail(op, fmt.Errorf("%w: %v", apperrors.ErrBackupFailed, err))
		}
		size, err := r.fs.Size(dst)
		if err != nil {
			_ = r.fs.RemoveAll(session)
			return "", r.fail(op, fmt.Errorf("%w: %v", apperrors.ErrBackupFailed, err))
		}
		sum, err := r.checksum(dst)
		if err != nil {
			_ = r.fs.RemoveAll(session)
			return "", r.fail(op, fmt.Errorf("%w: %v", apperrors.ErrBackupFailed, err))
		}
		manifest.Files = append(manifest.Files, ManifestFile{Name: name, Source: path, Size: size, Checksum: sum})
		r.log.Debug().Str("src", path).Str("dst", dst).Msg("Incremental backup copy")
	}

	if err := r.writeManifest(filepath.Join(session, ManifestFileName), manifest); err != nil {
		_ = r.fs.RemoveAll(session)
		return "", r.fail(op, fmt.Errorf("%w: %v", apperrors.ErrBackupFailed, err))
	}

	r.logOperation(op, true, fmt.Sprintf("session %s created with %d file(s)", session, len(manifest.Files)))
	return session, nil
}

func (r *CSVRepository) writeManifest(path string, m BackupManifest) error {
	f, err := r.fs.Create(path)
	if err != nil {
		return err
	}
	enc := yaml.NewEncoder(f)
	enc.SetIndent(2)
	if err := enc.Encode(m); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := enc.Close(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadManifest loads the manifest of a session directory.
func (r *CSVRepository) ReadManifest(session string) (*BackupManifest, error) {
	f, err := r.fs.Open(filepath.Join(session, ManifestFileName))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var m BackupManifest
	if err := yaml.NewDecoder(f).Decode(&m); err != nil {
		return nil, fmt.Errorf("invalid manifest in %s: %w", session, err)
	}
	return &m, nil
}

// RestoreFromIncrementalBackup verifies a session against its manifest,
// backs up the current data files and then copies the session files back.
func (r *CSVRepository) RestoreFromIncrementalBackup(session string) error {
	const op = "Restore From Incremental Backup"

	if !r.fs.Exists(session) {
		return r.fail(op, fmt.Errorf("%w: backup directory %s does not exist", apperrors.ErrRestoreFailed, session))
	}
	manifest, err := r.ReadManifest(session)
	if err != nil {
		return r.fail(op, fmt.Errorf("%w: %v", apperrors.ErrRestoreFailed, err))
	}

	for _, mf := range manifest.Files {
		if !isPlainFileName(mf.Name) {
			return r.fail(op, fmt.Errorf("%w: manifest entry %q is not a plain file name", apperrors.ErrRestoreFailed, mf.Name))
		}
		src := filepath.Join(session, mf.Name)
		sum, err := r.checksum(src)
		if err != nil {
			return r.fail(op, fmt.Errorf("%w: %v", apperrors.ErrRestoreFailed, err))
		}
		if sum != mf.Checksum {
			return r.fail(op, fmt.Errorf("%w: %s", apperrors.ErrChecksumMismatch, src))
		}
	}

	if err := r.BackupDataFiles(); err != nil {
		return r.fail(op, fmt.Errorf("%w: could not back up current data: %v", apperrors.ErrRestoreFailed, err))
	}

	for _, mf := range manifest.Files {
		src := filepath.Join(session, mf.Name)
		dst := filepath.Join(r.paths.DataDir, mf.Name)
		if err := r.fs.CopyFile(src, dst); err != nil {
			return r.fail(op, fmt.Errorf("%w: %v", apperrors.ErrRestoreFailed, err))
		}
		r.log.Debug().Str("src", src).Str("dst", dst).Msg("Restored file")
	}

	r.logOperation(op, true, fmt.Sprintf("restored %d file(s) from %s", len(manifest.Files), session))
	return nil
}

// isPlainFileName rejects manifest names that would resolve outside the
// session or data directory.
func isPlainFileName(name string) bool {
	return name != "" && name != "." && name != ".." && filepath.Base(name) == name
}

// ListAvailableBackups returns session directories and .bak files, newest
// first by the stamp embedded in their names.
func (r *CSVRepository) ListAvailableBackups() ([]BackupEntry, error) {
	if !r.fs.Exists(r.paths.BackupDir) {
		return nil, nil
	}
	entries, err := r.fs.List(r.paths.BackupDir)
	if err != nil {
		return nil, r.fail("List Available Backups", err)
	}

	var out []BackupEntry
	for _, e := range entries {
		isSession := e.IsDir && strings.HasPrefix(e.Name, sessionPrefix)
		isFile := !e.IsDir && strings.HasSuffix(e.Name, backupExt)
		if !isSession && !isFile {
			continue
		}
		out = append(out, BackupEntry{
			Path:      e.Path,
			Name:      e.Name,
			IsSession: isSession,
			Size:      e.Size,
			Stamp:     backupStamp.FindString(e.Name),
		})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Stamp != out[j].Stamp {
			return out[i].Stamp > out[j].Stamp
		}
		return out[i].Name > out[j].Name
	})
	return out, nil
}

// CleanupOldBackups keeps the newest keep backups and removes the rest.
// It returns the number removed.
func (r *CSVRepository) CleanupOldBackups(keep int) (int, error) {
	const op = "Cleanup Old Backups"

	if keep < 0 {
		keep = 0
	}
	backups, err := r.ListAvailableBackups()
	if err != nil {
		return 0, err
	}
	if len(backups) <= keep {
		return 0, nil
	}

	removed := 0
	var failed []string
	for _, b := range backups[keep:] {
		var err error
		if b.IsSession {
			err = r.fs.RemoveAll(b.Path)
		} else {
			err = r.fs.Remove(b.Path)
		}
		if err != nil {
			failed = append(failed, b.Name)
			r.logOperation("Cleanup Backup", false, err.Error())
			continue
		}
		removed++
	}

	if len(failed) > 0 {
		return removed, r.fail(op, fmt.Errorf("failed to remove %d backup(s): %s", len(failed), strings.Join(failed, ", ")))
	}
	r.logOperation(op, true, fmt.Sprintf("removed %d old backup(s)", removed))
	return removed, nil
}
