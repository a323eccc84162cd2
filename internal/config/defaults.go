package config

const (
	defaultDataDir         = "~/.local/share/skimmer"
	defaultLogDir          = "~/.local/share/skimmer/logs"
	defaultBackupDir       = "~/.local/share/skimmer/backups"
	defaultTriggerDir      = "~/.local/share/skimmer/triggers"
	defaultIntervalFile    = "~/.local/share/skimmer/scrape_interval"
	defaultInterval        = 3600
	defaultFailureCooldown = 300
	defaultTriggerPoll     = 30
	defaultJobBinary       = "skimmer-scrape"
	defaultBackupPrefix    = "skimmer_backup"
	defaultRetentionDays   = 7
	defaultRecentLogDays   = 2
	defaultMinFreePercent  = 10
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	defaultLogRetention    = 7
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:      defaultDataDir,
			LogDir:       defaultLogDir,
			BackupDir:    defaultBackupDir,
			TriggerDirs:  []string{defaultTriggerDir},
			IntervalFile: defaultIntervalFile,
		},
		Scheduler: Scheduler{
			DefaultInterval: defaultInterval,
			FailureCooldown: defaultFailureCooldown,
			TriggerPoll:     defaultTriggerPoll,
			JobBinary:       defaultJobBinary,
		},
		Backup: Backup{
			Prefix:           defaultBackupPrefix,
			RetentionDays:    defaultRetentionDays,
			LogRetentionDays: defaultRetentionDays,
			RecentLogDays:    defaultRecentLogDays,
			MinFreePercent:   defaultMinFreePercent,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetention,
		},
	}
}
