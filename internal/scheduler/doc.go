// Package scheduler implements the polling loop that decides when scrape jobs
// run. Triggers dropped by external actors take priority over the recurring
// batch cycle, and the inter-cycle sleep is sliced into short polls so new
// triggers are serviced promptly without disturbing the batch cadence.
package scheduler
