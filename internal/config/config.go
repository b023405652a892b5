package config

import (
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/yigit/schoolrecords/internal/pkg/helpers"
)

// Config structure represents the application configuration
type Config struct {
	Data struct {
		Dir             string `yaml:"dir" env:"DATA_DIR" validate:"required"`
		StudentsFile    string `yaml:"students_file" env:"STUDENTS_FILE" validate:"required"`
		CoursesFile     string `yaml:"courses_file" env:"COURSES_FILE" validate:"required"`
		AssessmentsFile string `yaml:"assessments_file" env:"ASSESSMENTS_FILE" validate:"required"`
		EnrollmentsFile string `yaml:"enrollments_file" env:"ENROLLMENTS_FILE" validate:"required"`
		BackupDir       string `yaml:"backup_dir" env:"BACKUP_DIR" validate:"required"`
	} `yaml:"data"`

	Backup struct {
		KeepCount     int    `yaml:"keep_count" env:"BACKUP_KEEP" validate:"gte=0"`
		RetryAttempts int    `yaml:"retry_attempts" env:"BACKUP_RETRY_ATTEMPTS" validate:"gte=1,lte=10"`
		RetryDelay    string `yaml:"retry_delay" env:"BACKUP_RETRY_DELAY" validate:"duration"`
		MinFreeBytes  uint64 `yaml:"min_free_bytes" env:"MIN_FREE_BYTES"`
	} `yaml:"backup"`

	Grading struct {
		Strategy string `yaml:"strategy" env:"GRADING_STRATEGY" validate:"oneof=weighted_average best_n_of_m"`
		BestN    int    `yaml:"best_n" env:"GRADING_BEST_N" validate:"gte=0"`
	} `yaml:"grading"`

	Logging struct {
		Level  string `yaml:"level" env:"LOG_LEVEL,raw" validate:"oneof=debug info warn error disabled"`
		Format string `yaml:"format" env:"LOG_FORMAT,raw" validate:"oneof=json text"`
	} `yaml:"logging"`
}

// LoadConfig loads configuration from a file and environment variables.
// A missing file is not an error; defaults and the environment still apply.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}
	setDefaults(config)

	if _, err := os.Stat(configPath); err == nil {
		file, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(file, config); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	// Override with environment variables
	if err := loadFromEnv(config); err != nil {
		return nil, fmt.Errorf("failed to load from environment: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// setDefaults sets default values for the configuration
func setDefaults(config *Config) {
	// Data defaults
	config.Data.Dir = "data"
	config.Data.StudentsFile = "students.csv"
	config.Data.CoursesFile = "courses.csv"
	config.Data.AssessmentsFile = "assessments.csv"
	config.Data.EnrollmentsFile = "enrollments.csv"
	config.Data.BackupDir = "backups"

	// Backup defaults
	config.Backup.KeepCount = 10
	config.Backup.RetryAttempts = 3
	config.Backup.RetryDelay = "100ms"
	config.Backup.MinFreeBytes = 10 * 1024 * 1024

	// Grading defaults
	config.Grading.Strategy = "weighted_average"
	config.Grading.BestN = 3

	// Logging defaults
	config.Logging.Level = "info"
	config.Logging.Format = "text"
}

// loadFromEnv overrides configuration with environment variables
func loadFromEnv(config *Config) error {
	return applyEnv(reflect.ValueOf(config), os.LookupEnv)
}

// validateConfig ensures that the configuration is valid
func validateConfig(config *Config) error {
	v := validator.New()
	if err := v.RegisterValidation("duration", func(fl validator.FieldLevel) bool {
		_, err := time.ParseDuration(fl.Field().String())
		return err == nil
	}); err != nil {
		return err
	}

	if err := v.Struct(config); err != nil {
		return err
	}

	if config.Grading.Strategy == "best_n_of_m" && config.Grading.BestN < 1 {
		return fmt.Errorf("grading.best_n must be at least 1 for best_n_of_m")
	}
	return nil
}

// resolve joins name onto dir unless name is already absolute
func resolve(dir, name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(dir, name)
}

// StudentsPath returns the location of the students file
func (c *Config) StudentsPath() string { return resolve(c.Data.Dir, c.Data.StudentsFile) }

// CoursesPath returns the location of the courses file
func (c *Config) CoursesPath() string { return resolve(c.Data.Dir, c.Data.CoursesFile) }

// AssessmentsPath returns the location of the assessments file
func (c *Config) AssessmentsPath() string { return resolve(c.Data.Dir, c.Data.AssessmentsFile) }

// EnrollmentsPath returns the location of the enrollments file
func (c *Config) EnrollmentsPath() string { return resolve(c.Data.Dir, c.Data.EnrollmentsFile) }

// BackupPath returns the backup directory
func (c *Config) BackupPath() string { return resolve(c.Data.Dir, c.Data.BackupDir) }

// RetryDelay returns the parsed backup retry delay
func (c *Config) RetryDelay() time.Duration {
	return helpers.ParseDuration(c.Backup.RetryDelay, 100*time.Millisecond)
}
