// Package ingest wraps the external scrape job binary behind a small client
// interface. The job owns all scraping and queue mutation; this package only
// models its invocation contract (--source and --batch) and routes its output
// into the shared job log.
package ingest
