package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateBackup(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if c.Paths.DataDir == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		return errors.New("paths.log_dir must be set")
	}
	if c.Paths.BackupDir == "" {
		return errors.New("paths.backup_dir must be set")
	}
	if len(c.Paths.TriggerDirs) == 0 {
		return errors.New("paths.trigger_dirs must list at least one directory")
	}
	if c.Paths.IntervalFile == "" {
		return errors.New("paths.interval_file must be set")
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if c.Scheduler.JobBinary == "" {
		return errors.New("scheduler.job_binary must be set")
	}
	if c.Scheduler.JobTimeout < 0 {
		return errors.New("scheduler.job_timeout must not be negative")
	}
	if c.Scheduler.TriggerPoll > c.Scheduler.DefaultInterval {
		return fmt.Errorf("scheduler.trigger_poll (%d) must not exceed scheduler.default_interval (%d)",
			c.Scheduler.TriggerPoll, c.Scheduler.DefaultInterval)
	}
	return nil
}

func (c *Config) validateBackup() error {
	if c.Backup.RetentionDays < 0 {
		return errors.New("backup.retention_days must not be negative")
	}
	if c.Backup.LogRetentionDays < 0 {
		return errors.New("backup.log_retention_days must not be negative")
	}
	if c.Backup.MinFreePercent < 0 || c.Backup.MinFreePercent > 100 {
		return errors.New("backup.min_free_percent must be between 0 and 100")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json, got %q", c.Logging.Format)
	}
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must not be negative")
	}
	return nil
}
