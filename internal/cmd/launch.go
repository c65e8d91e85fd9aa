package cmd

import (
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/tomasbasham/s3put/internal/config"
	"github.com/tomasbasham/s3put/internal/upload"
)

const (
	modeProcess = "process"
	modeTask    = "task"
)

// childCommand is the hidden subcommand a process launch runs.
const childCommand = "exec"

// newLauncher builds the launcher and reporter for mode. Process launches
// re-execute the helper binary, which defaults to the running executable.
func newLauncher(mode string, cfg *config.Config, logger *zap.Logger) (upload.Launcher, upload.Reporter, error) {
	switch mode {
	case modeProcess:
		helper := cfg.Helper
		if helper == "" {
			self, err := os.Executable()
			if err != nil {
				return nil, nil, fmt.Errorf("failed to locate own executable: %w", err)
			}
			helper = self
		}

		launcher, err := upload.NewProcessLauncher(helper, childCommand)
		if err != nil {
			return nil, nil, err
		}
		launcher.SpoolDir = cfg.SpoolDir
		launcher.Logger = logger

		reporter := &upload.ProcessReporter{Fault: upload.FatalFault(logger), Logger: logger}
		return launcher, reporter, nil

	case modeTask:
		exec := upload.Executor{
			Open:        upload.OpenFromConfig(config.Env),
			ContentType: cfg.ContentType,
			Logger:      logger,
		}
		tasks := upload.NewTaskLauncher(exec, upload.FatalFault(logger), logger)
		return tasks, tasks, nil

	default:
		return nil, nil, fmt.Errorf("unsupported mode %q (want %q or %q)", mode, modeProcess, modeTask)
	}
}

func validateMode(mode string) error {
	if mode != modeProcess && mode != modeTask {
		return fmt.Errorf("unsupported mode %q (want %q or %q)", mode, modeProcess, modeTask)
	}
	return nil
}
