// Package backup implements the retention-bounded backup pass: an online
// snapshot of the queue database archived together with whichever credential,
// configuration, and recent log files exist at run time, followed by pruning
// of expired archives and log files.
package backup
