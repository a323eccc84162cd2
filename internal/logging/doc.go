// Package logging assembles structured slog loggers and formatting helpers used
// across Skimmer components.
//
// It owns the configurable console/JSON handlers, centralizes level and output
// plumbing, and exposes standardized attribute keys so the scheduler loop and
// backup manager emit log lines with a consistent shape. Age-based log pruning
// lives here too, shared by daemon startup and the backup manager's retention
// pass.
//
// Prefer these constructors over hand-rolled slog setup.
package logging
