package services

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/yigit/schoolrecords/internal/app/repositories"
	"github.com/yigit/schoolrecords/internal/pkg/logger"
)

// RecordsService defines the data lifecycle operations used by callers
type RecordsService interface {
	Initialize() error
	Load() (*repositories.LoadSummary, error)
	Save() error
	Registry() *repositories.Registry
	Replace(reg *repositories.Registry) error

	Backup() error
	BackupIncremental() (string, error)
	ListBackups() ([]repositories.BackupEntry, error)
	Restore(path string) error
	CleanupBackups(keep int) (int, error)

	Validate() *repositories.IntegrityReport
	Repair() (*repositories.RepairReport, error)

	Enroll(roll int, courseID string) error
	Withdraw(roll int, courseID string) error
}

// recordsServiceImpl implements the RecordsService interface
type recordsServiceImpl struct {
	repo *repositories.CSVRepository
	reg  *repositories.Registry
	log  zerolog.Logger
}

// NewRecordsService creates a new records service over repo with an empty registry
func NewRecordsService(repo *repositories.CSVRepository) RecordsService {
	return &recordsServiceImpl{
		repo: repo,
		reg:  repositories.NewRegistry(),
		log:  logger.Component("records_service"),
	}
}

func (s *recordsServiceImpl) Initialize() error {
	return s.repo.InitializeDataFiles()
}

// Load replaces the in-memory registry with the contents of the data files.
// The current registry is kept if loading fails.
func (s *recordsServiceImpl) Load() (*repositories.LoadSummary, error) {
	reg, summary, err := s.repo.LoadAllData()
	if err != nil {
		return summary, fmt.Errorf("failed to load records: %w", err)
	}
	s.reg = reg

	for _, r := range summary.Reports() {
		if r.HasErrors() {
			s.log.Warn().Str("file", r.File).Int("skipped", len(r.Skipped)).Msg("Some rows were skipped")
		}
	}
	return summary, nil
}

func (s *recordsServiceImpl) Save() error {
	if err := s.repo.SaveRegistry(s.reg); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	return nil
}

func (s *recordsServiceImpl) Registry() *repositories.Registry {
	return s.reg
}

// Replace swaps in reg and saves it.
func (s *recordsServiceImpl) Replace(reg *repositories.Registry) error {
	if reg == nil {
		return fmt.Errorf("registry is nil")
	}
	prev := s.reg
	s.reg = reg
	if err := s.Save(); err != nil {
		s.reg = prev
		return err
	}
	return nil
}

func (s *recordsServiceImpl) Backup() error {
	return s.repo.BackupDataFiles()
}

func (s *recordsServiceImpl) BackupIncremental() (string, error) {
	return s.repo.CreateIncrementalBackup()
}

func (s *recordsServiceImpl) ListBackups() ([]repositories.BackupEntry, error) {
	return s.repo.ListAvailableBackups()
}

// Restore accepts either a session directory or a single .bak file and
// reloads the registry afterwards.
func (s *recordsServiceImpl) Restore(path string) error {
	var err error
	if strings.HasPrefix(filepath.Base(filepath.Clean(path)), "session_") {
		err = s.repo.RestoreFromIncrementalBackup(path)
	} else {
		err = s.repo.RestoreFromBackup(path)
	}
	if err != nil {
		return err
	}

	if _, err := s.Load(); err != nil {
		return fmt.Errorf("restored %s but reload failed: %w", path, err)
	}
	s.log.Info().Str("backup", path).Msg("Records restored")
	return nil
}

func (s *recordsServiceImpl) CleanupBackups(keep int) (int, error) {
	return s.repo.CleanupOldBackups(keep)
}

// Validate runs the duplicate and referential checks over the registry.
func (s *recordsServiceImpl) Validate() *repositories.IntegrityReport {
	report := repositories.ValidateDataConsistency(s.reg.Students(), s.reg.Courses(), s.reg.Assessments())
	if !report.OK() {
		s.log.Warn().Int("violations", len(report.Violations)).Msg("Data consistency check failed")
	}
	return report
}

// Repair removes dangling assessments and saves when anything changed.
func (s *recordsServiceImpl) Repair() (*repositories.RepairReport, error) {
	report := s.repo.RepairReferentialIntegrity(s.reg)
	if !report.Changed() {
		return report, nil
	}
	if err := s.Save(); err != nil {
		return report, err
	}
	return report, nil
}

func (s *recordsServiceImpl) Enroll(roll int, courseID string) error {
	if err := s.reg.Enroll(roll, courseID); err != nil {
		return fmt.Errorf("failed to enroll student %d in %s: %w", roll, courseID, err)
	}
	s.log.Info().Int("roll_number", roll).Str("course_id", courseID).Msg("Student enrolled")
	return nil
}

func (s *recordsServiceImpl) Withdraw(roll int, courseID string) error {
	if err := s.reg.Withdraw(roll, courseID); err != nil {
		return fmt.Errorf("failed to withdraw student %d from %s: %w", roll, courseID, err)
	}
	s.log.Info().Int("roll_number", roll).Str("course_id", courseID).Msg("Student withdrawn")
	return nil
}
