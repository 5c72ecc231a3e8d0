package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/desertthunder/mwx/internal/formatter"
	"github.com/desertthunder/mwx/internal/shared"
	"github.com/desertthunder/mwx/internal/tasks"
	"github.com/urfave/cli/v3"
)

// Setup creates the config file from the embedded example and reports whether the credentials are complete.
func (r *Runner) Setup(ctx context.Context, cmd *cli.Command) error {
	configPath := r.configPath
	if configPath == "" {
		configPath = "config.toml"
	}

	if _, err := os.Stat(configPath); err == nil {
		r.logger.Info("config file already exists", "path", configPath)
	} else {
		r.logger.Info("config file not found, creating from template", "path", configPath)
		if err := shared.CreateConfigFile(configPath); err != nil {
			return err
		}
		config, err := shared.LoadConfig(configPath)
		if err != nil {
			return err
		}
		shared.ApplyEnv(config)
		r.config = config
		r.writePlain("✓ Config file created at %s\n", configPath)
	}

	if err := r.config.Mailworx.Validate(); err != nil {
		r.logger.Warn("configuration incomplete", "error", err)
		r.writePlain("\nNext steps:\n")
		r.writePlain("1. Fill in the [mailworx] section of %s or set %s, %s, %s and %s\n",
			configPath, shared.EnvAccount, shared.EnvUsername, shared.EnvPassword, shared.EnvSource)
		r.writePlain("2. Run 'mwx fields' to test the credentials\n")
		return nil
	}

	return r.writePlain("✓ Credentials configured for %s\n", r.config.Mailworx.Endpoint)
}

// Samples writes the built-in subscribers as CSV, to a file or stdout.
func (r *Runner) Samples(ctx context.Context, cmd *cli.Command) error {
	data, err := formatter.ExportSubscribersToCSV(tasks.DefaultSubscribers(time.Now()))
	if err != nil {
		return err
	}

	path := cmd.String("output")
	if path == "" {
		return r.writeBytes(data)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	r.logger.Info("sample subscribers written", "path", path)
	return nil
}
