package feed

import "time"

// Well-known field names present on most items. Feed-specific extension
// fields appear in Item.Fields under their own names.
const (
	FieldTitle       = "title"
	FieldLink        = "link"
	FieldDescription = "description"
	FieldContent     = "content"
	FieldAuthor      = "author"
	FieldGUID        = "guid"
)

// Item is one entry parsed out of a feed document. Items are ephemeral; they
// live for the duration of a tick and are never persisted.
type Item struct {
	// Fields maps field name to raw string value. Absent fields are simply
	// missing from the map; lookups for unknown keys yield "".
	Fields map[string]string

	// PubDate is the parsed publish timestamp. The zero value means the
	// document carried no parsable date; such items are never considered
	// "new" (a broadcast decision cannot be made against the watermark).
	PubDate time.Time
}

// Field returns the named field's value, or "" when absent.
func (it Item) Field(name string) string { return it.Fields[name] }

// HasDate reports whether the item carries a usable publish timestamp.
func (it Item) HasDate() bool { return !it.PubDate.IsZero() }
