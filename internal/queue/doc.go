// Package queue persists pending scrape work in SQLite.
//
// The Store manages database connections, schema initialization, stats
// queries, and status transitions. Rows are produced by the external scrape
// job; the scheduler never writes them, and the backup manager reads the store
// only through SnapshotTo, which uses SQLite's native VACUUM INTO so archives
// capture a consistent point-in-time copy even while a job is writing.
//
// The database is working state, not a long-term archive. Schema changes bump
// the version in schema.go; users clear the database to adopt the new schema.
package queue
