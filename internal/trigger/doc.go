// Package trigger defines the control channel between external actors and the
// scheduler loop.
//
// External controllers (a chat bot, an operator shell) request an immediate
// scrape of one source by dropping a zero-byte trigger_scrape_<source>.flag
// marker into a watched directory, and tune the polling cadence by writing a
// single integer to the interval file. The Channel interface keeps the loop
// independent of that mechanism so a different transport could replace the
// filesystem without touching loop logic.
package trigger
