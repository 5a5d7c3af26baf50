// Package feed implements the per-source pipeline primitives: fetching a feed
// document over HTTP, parsing it into items, deciding which items are new
// relative to a source's watermark, and composing items into outbound messages.
//
// Everything here is stateless; the updater owns scheduling and persistence.
package feed
