package feed

import (
	"sort"
	"time"
)

// SelectNew returns the items published strictly after watermark, sorted by
// ascending PubDate so delivery order is deterministic even when the source
// document is unordered. Items with equal dates keep document order. Items
// without a usable date are excluded: broadcasting them could duplicate or
// drop entries depending on where the watermark sits.
func SelectNew(items []Item, watermark time.Time) []Item {
	var selected []Item
	for _, it := range items {
		if !it.HasDate() {
			continue
		}
		if it.PubDate.After(watermark) {
			selected = append(selected, it)
		}
	}
	sort.SliceStable(selected, func(i, j int) bool {
		return selected[i].PubDate.Before(selected[j].PubDate)
	})
	return selected
}

// NextWatermark returns the maximum PubDate across items, or current when
// items is empty. The result never moves backwards.
func NextWatermark(items []Item, current time.Time) time.Time {
	next := current
	for _, it := range items {
		if it.PubDate.After(next) {
			next = it.PubDate
		}
	}
	return next
}
