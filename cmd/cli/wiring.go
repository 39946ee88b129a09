package main

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/yourusername/clip-extract-go/internal/app"
	"github.com/yourusername/clip-extract-go/internal/domain"
	"github.com/yourusername/clip-extract-go/internal/infrastructure"
	"github.com/yourusername/clip-extract-go/pkg/logger"
)

// cliApp holds the wired components for one command invocation
type cliApp struct {
	config   *domain.Config
	log      *zap.Logger
	multiLog *logger.MultiLogger
	repo     *infrastructure.SQLiteDownloadRepository
	runner   *app.Runner
}

func newCLIApp() (*cliApp, error) {
	config, err := app.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if showBrowser {
		config.Browser.Headless = false
	}

	log, err := logger.New(logger.Config{
		Level:      config.Logging.Level,
		Format:     config.Logging.Format,
		OutputPath: config.Logging.OutputPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	a := &cliApp{config: config, log: log}

	// History and category logs are best-effort; a run proceeds without them.
	a.multiLog, err = logger.NewMultiLogger(logger.MultiLoggerConfig{
		Level:   config.Logging.Level,
		LogsDir: config.Download.LogsDir,
	})
	if err != nil {
		log.Warn("Category logs disabled", zap.Error(err))
	}

	var repo domain.DownloadRepository
	a.repo, err = infrastructure.NewSQLiteDownloadRepository(config.History.DatabasePath)
	if err != nil {
		log.Warn("Download history disabled", zap.String("path", config.History.DatabasePath), zap.Error(err))
	} else {
		repo = a.repo
	}

	notifier := infrastructure.NewNotificationService(&config.Notification, log)
	catalog := infrastructure.NewHelixClient(&config.Catalog, config.Credentials, nil, log)
	launcher := infrastructure.NewChromeLauncher(&config.Browser, log)
	downloadMgr := app.NewDownloadManager(repo, notifier, &config.Download, a.multiLog, log)

	a.runner = app.NewRunner(catalog, launcher, downloadMgr, notifier, config, a.multiLog, log)
	a.runner.SetProgress(progressPrinter(os.Stderr))
	return a, nil
}

// Close releases the history database and flushes logs
func (a *cliApp) Close() {
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			a.log.Warn("Failed to close history database", zap.Error(err))
		}
	}
	if a.multiLog != nil {
		a.multiLog.Close()
	}
	a.log.Sync()
}
