package database

import (
	"time"
)

// User identifies an account. Session issuance and credentials live outside
// this service; only the identity row is needed here.
type User struct {
	ID        string
	Email     string
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// Widget is a dashboard board widget. Only reader widgets matter to this
// service, but the table holds every kind.
type Widget struct {
	ID        string
	UserID    string
	Kind      string
	Title     string
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// FeedSource is one subscribed external feed owned by a user.
type FeedSource struct {
	ID             string
	UserID         string
	URL            string
	Title          string
	Description    string
	LastFetchedAt  *time.Time
	LastFetchError *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// FeedItem is one article belonging to a source, deduplicated by
// (source_id, guid).
type FeedItem struct {
	ID          string
	SourceID    string
	GUID        string
	Title       string
	URL         string
	Description string
	Content     string
	Author      string
	PublishedAt *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   *time.Time
}

// Binding is the membership of a source inside a reader widget.
type Binding struct {
	ID        string
	WidgetID  string
	SourceID  string
	Position  int
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// ReadState holds per-user read/starred status for one item. Absence of a
// row means unread and unstarred.
type ReadState struct {
	ID        string
	UserID    string
	ItemID    string
	Read      bool
	ReadAt    *time.Time
	Starred   bool
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time
}

// NewItem is the ingestion payload for a single article.
type NewItem struct {
	GUID        string
	Title       string
	URL         string
	Description string
	Content     string
	Author      string
	PublishedAt *time.Time
}

// BindingPosition is one entry of a reorder batch.
type BindingPosition struct {
	BindingID string
	Position  int
}
