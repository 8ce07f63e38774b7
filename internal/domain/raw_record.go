package domain

import "time"

// RawRecord is the loosely-typed article data as delivered by one source
// adapter, before normalization. It is produced per fetch, consumed
// immediately by the normalizer, and never persisted or allowed past the
// normalizer boundary.
type RawRecord struct {
	// Title as reported by the source.
	Title string
	// URL of the story. Adapters map link/url variants here.
	URL string
	// Summary or description text, possibly HTML.
	Summary string
	// Full content when the source supplies it, possibly HTML.
	Content string
	// Published is the raw publication timestamp string in the source's
	// native format. PublishedParsed is set when the adapter could parse it.
	Published       string
	PublishedParsed *time.Time
	// SourceID identifies the logical source that produced the record.
	SourceID string
	// FeedName tags the originating feed for multi-feed sources.
	FeedName string
	// Symbols lists ticker symbols the source associated with the story.
	Symbols []string
	// Keywords lists source-provided keywords, when any.
	Keywords []string
	// Extra holds source-specific metadata that has no canonical mapping.
	Extra map[string]any
}
