package feed

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/mmcdole/gofeed"
)

// ErrUnsupportedFormat marks feed data whose type could not be detected at
// all, as opposed to a recognized feed that fails to parse.
var ErrUnsupportedFormat = errors.New("failed to detect feed type")

// FeedParser normalizes RSS/Atom feeds via gofeed.
type FeedParser struct {
	gofeedParser *gofeed.Parser
}

var _ Parser = (*FeedParser)(nil)

func NewFeedParser() *FeedParser {
	return &FeedParser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *FeedParser) Parse(data []byte) (*ParsedFeed, error) {
	parsed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
			return nil, ErrUnsupportedFormat
		}
		return nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	feed := &ParsedFeed{
		Title:       parsed.Title,
		Description: parsed.Description,
		Entries:     make([]ParsedEntry, 0, len(parsed.Items)),
	}

	for _, item := range parsed.Items {
		feed.Entries = append(feed.Entries, p.normalizeEntry(item))
	}

	return feed, nil
}

func (p *FeedParser) normalizeEntry(item *gofeed.Item) ParsedEntry {
	entry := ParsedEntry{
		ID:      item.GUID,
		Title:   item.Title,
		URL:     item.Link,
		Summary: item.Description,
		Content: item.Content,
	}

	if item.PublishedParsed != nil {
		entry.PublishedAt = item.PublishedParsed
	}

	if item.Author != nil {
		entry.Author = item.Author.Name
	}

	return entry
}
