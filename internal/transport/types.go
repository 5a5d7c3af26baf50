package transport

import "context"

// ChannelID is an opaque subscriber identifier in "platform:chat_id" form,
// e.g. "telegram:-1001234567890". The core never interprets it; adapters do.
type ChannelID string

// Message is one outbound update rendered from a feed item.
type Message struct {
	Text string
	// HTML marks Text as rich content for platforms that support it.
	// When false, Text is plain (already escaped by the composer).
	HTML bool
	// Images holds image URLs to attach after the text body.
	Images []string
}

func (m Message) IsEmpty() bool { return m.Text == "" && len(m.Images) == 0 }

// Broadcaster delivers one message to a set of subscriber channels.
//
// Implementations report an error only when delivery failed outright for the
// whole call; per-channel failures are the adapter's concern (logged there,
// not retried by the caller within the same tick).
type Broadcaster interface {
	Broadcast(ctx context.Context, subscribers []ChannelID, msg Message) error
}
