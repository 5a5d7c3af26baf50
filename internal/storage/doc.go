// Package storage persists feed sources: one row per distinct feed URL with
// its subscriber set and broadcast watermark.
//
// It currently supports:
//   - SQLite (modernc.org/sqlite, no cgo)
//   - An in-memory map backend (tests and throwaway runs)
package storage
