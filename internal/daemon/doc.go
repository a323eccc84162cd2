// Package daemon coordinates the long-running skimmer process.
//
// It wires configuration, queue storage, and the scheduler loop into a single
// lifecycle with flock-based locking to prevent multiple instances from
// racing over the same trigger directories and queue database.
package daemon
