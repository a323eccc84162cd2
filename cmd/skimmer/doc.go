// Command skimmer is the operator CLI: run the scheduler in the foreground,
// run a one-off backup pass, inspect queue statistics, drop trigger flags, and
// manage configuration.
package main
