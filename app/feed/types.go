package feed

import (
	"context"
	"time"

	"github.com/crgstar/patto/app/database"
)

// FetchResult is the raw outcome of retrieving a feed URL.
type FetchResult struct {
	StatusCode int
	Body       []byte
}

// Fetcher retrieves raw feed bytes. A transport failure is returned as an
// error; a reachable server that answers with a non-success status is a
// result, not an error.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*FetchResult, error)
}

// ParsedFeed is the normalized form of a syndication feed.
type ParsedFeed struct {
	Title       string
	Description string
	Entries     []ParsedEntry
}

// ParsedEntry is one normalized feed entry. ID may be empty; ingestion falls
// back to URL for deduplication.
type ParsedEntry struct {
	ID          string
	Title       string
	URL         string
	Summary     string
	Content     string
	Author      string
	PublishedAt *time.Time
}

// Parser turns raw feed bytes into a ParsedFeed.
type Parser interface {
	Parse(data []byte) (*ParsedFeed, error)
}

// Filters accepted by Query.List.
const (
	FilterAll     = "all"
	FilterRead    = "read"
	FilterUnread  = "unread"
	FilterStarred = "starred"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListOptions narrows and pages a widget's article listing.
type ListOptions struct {
	SourceID string
	Filter   string
	Offset   int
	Limit    int
}

// SourceRef is the minimal source annotation attached to a listed item,
// enough for the UI to render a badge.
type SourceRef struct {
	ID     string
	Domain string
}

// ItemView is one listed article annotated with the requesting user's state.
type ItemView struct {
	database.FeedItem
	Read    bool
	Starred bool
	Source  SourceRef
}

// ListResult is one page of a widget's article listing.
type ListResult struct {
	Items      []ItemView
	TotalCount int
	HasMore    bool
}

// BindingView pairs a binding with its source's display metadata for the
// widget settings panel.
type BindingView struct {
	ID       string
	SourceID string
	Position int
	Source   BindingSource
}

type BindingSource struct {
	ID             string
	URL            string
	Title          string
	LastFetchedAt  *time.Time
	LastFetchError *string
}
