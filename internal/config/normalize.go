package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeBackup(); err != nil {
		return err
	}
	c.normalizeScheduler()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	if c.Paths.BackupDir, err = expandPath(c.Paths.BackupDir); err != nil {
		return fmt.Errorf("paths.backup_dir: %w", err)
	}
	if c.Paths.IntervalFile, err = expandPath(c.Paths.IntervalFile); err != nil {
		return fmt.Errorf("paths.interval_file: %w", err)
	}
	dirs := make([]string, 0, len(c.Paths.TriggerDirs))
	for _, dir := range c.Paths.TriggerDirs {
		trimmed := strings.TrimSpace(dir)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("paths.trigger_dirs: %w", err)
		}
		dirs = append(dirs, expanded)
	}
	c.Paths.TriggerDirs = dirs
	return nil
}

func (c *Config) normalizeScheduler() {
	c.Scheduler.JobBinary = strings.TrimSpace(c.Scheduler.JobBinary)
	if c.Scheduler.JobBinary == "" {
		c.Scheduler.JobBinary = defaultJobBinary
	}
	if c.Scheduler.DefaultInterval <= 0 {
		c.Scheduler.DefaultInterval = defaultInterval
	}
	if c.Scheduler.FailureCooldown <= 0 {
		c.Scheduler.FailureCooldown = defaultFailureCooldown
	}
	if c.Scheduler.TriggerPoll <= 0 {
		c.Scheduler.TriggerPoll = defaultTriggerPoll
	}
}

func (c *Config) normalizeBackup() error {
	var err error
	c.Backup.Prefix = strings.TrimSpace(c.Backup.Prefix)
	if c.Backup.Prefix == "" {
		c.Backup.Prefix = defaultBackupPrefix
	}
	if strings.TrimSpace(c.Backup.CredentialsFile) != "" {
		if c.Backup.CredentialsFile, err = expandPath(c.Backup.CredentialsFile); err != nil {
			return fmt.Errorf("backup.credentials_file: %w", err)
		}
	}
	if strings.TrimSpace(c.Backup.ServiceAccountFile) != "" {
		if c.Backup.ServiceAccountFile, err = expandPath(c.Backup.ServiceAccountFile); err != nil {
			return fmt.Errorf("backup.service_account_file: %w", err)
		}
	}
	files := make([]string, 0, len(c.Backup.ConfigFiles))
	for _, path := range c.Backup.ConfigFiles {
		trimmed := strings.TrimSpace(path)
		if trimmed == "" {
			continue
		}
		expanded, err := expandPath(trimmed)
		if err != nil {
			return fmt.Errorf("backup.config_files: %w", err)
		}
		files = append(files, expanded)
	}
	c.Backup.ConfigFiles = files

	// Environment retention knobs override the file, matching how deployments
	// already tune these without editing config.
	if days, ok := envDays("BACKUP_RETENTION_DAYS"); ok {
		c.Backup.RetentionDays = days
	}
	if days, ok := envDays("LOG_RETENTION_DAYS"); ok {
		c.Backup.LogRetentionDays = days
	}
	if c.Backup.RecentLogDays <= 0 {
		c.Backup.RecentLogDays = defaultRecentLogDays
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func envDays(key string) (int, bool) {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return 0, false
	}
	days, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || days < 0 {
		return 0, false
	}
	return days, true
}
