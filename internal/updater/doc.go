// Package updater drives the poll loop: on every tick it snapshots the
// registered sources and runs each one through fetch -> parse -> dedup ->
// compose -> broadcast -> watermark persist, with a bounded number of
// sources in flight at once.
//
// Failures are isolated per source: a broken feed never cancels its
// siblings or the tick, and no error here is fatal to the process.
package updater
