package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yigit/schoolrecords/internal/app/grading"
	appRepos "github.com/yigit/schoolrecords/internal/app/repositories"
	appServices "github.com/yigit/schoolrecords/internal/app/services"
	"github.com/yigit/schoolrecords/internal/config"
	"github.com/yigit/schoolrecords/internal/pkg/filestorage"
	"github.com/yigit/schoolrecords/internal/pkg/logger"
	"github.com/yigit/schoolrecords/internal/pkg/retry"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	Config      *config.Config
	Repos       *appRepos.Repositories
	Services    *appServices.Services
	FileStorage *filestorage.LocalStorage
	Calculator  grading.Calculator
	Logger      zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger(configPath string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Str("path", configPath).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.ParseLevel(cfg.Logging.Level)
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger // Get the configured global logger
	lgr.Debug().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// Paths converts the data section of cfg into repository paths.
func Paths(cfg *config.Config) appRepos.Paths {
	return appRepos.Paths{
		DataDir:     cfg.Data.Dir,
		Students:    cfg.StudentsPath(),
		Courses:     cfg.CoursesPath(),
		Assessments: cfg.AssessmentsPath(),
		Enrollments: cfg.EnrollmentsPath(),
		BackupDir:   cfg.BackupPath(),
	}
}

// BuildDependencies initializes storage, repositories and services.
func BuildDependencies(cfg *config.Config, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Config: cfg, Logger: lgr}

	var err error
	deps.FileStorage, err = filestorage.NewLocalStorage(cfg.Data.Dir)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to initialize file storage")
		return nil, fmt.Errorf("failed to initialize file storage: %w", err)
	}

	deps.Calculator, err = grading.New(cfg.Grading.Strategy, cfg.Grading.BestN)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize grade calculator: %w", err)
	}

	repoLogger := logger.Component("csv_repository")
	retrier := retry.New(
		retry.WithMaxAttempts(cfg.Backup.RetryAttempts),
		retry.WithDelay(cfg.RetryDelay()),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			repoLogger.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Retrying backup copy")
		}),
	)

	deps.Repos, err = appRepos.NewRepositories(Paths(cfg),
		appRepos.WithStorage(deps.FileStorage),
		appRepos.WithRetrier(retrier),
		appRepos.WithMinFreeBytes(cfg.Backup.MinFreeBytes),
		appRepos.WithLogger(repoLogger),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize repositories: %w", err)
	}

	deps.Services = appServices.NewServices(deps.Repos, deps.Calculator)

	lgr.Debug().
		Str("dataDir", cfg.Data.Dir).
		Str("grading", deps.Calculator.Name()).
		Msg("Dependencies built")
	return deps, nil
}
