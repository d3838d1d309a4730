package api

import (
	"time"

	"github.com/crgstar/patto/app/database"
	"github.com/crgstar/patto/app/feed"
)

type Handler struct {
	userRepo      database.UserRepository
	widgetRepo    database.WidgetRepository
	sourceRepo    database.SourceRepository
	ingestor      *feed.Ingestor
	query         *feed.Query
	subscriptions *feed.Subscriptions
}

type createSourceRequest struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

type updateSourceRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type createWidgetRequest struct {
	Kind  string `json:"kind"`
	Title string `json:"title"`
}

type subscribeRequest struct {
	FeedSourceID string `json:"feed_source_id"`
	Position     int    `json:"position"`
}

type reorderRequest struct {
	Positions []reorderEntry `json:"positions"`
}

type reorderEntry struct {
	ID       string `json:"id"`
	Position int    `json:"position"`
}

type sourceResponse struct {
	ID             string     `json:"id"`
	URL            string     `json:"url"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	LastFetchedAt  *time.Time `json:"last_fetched_at"`
	LastFetchError *string    `json:"last_fetch_error"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func newSourceResponse(s *database.FeedSource) sourceResponse {
	return sourceResponse{
		ID:             s.ID,
		URL:            s.URL,
		Title:          s.Title,
		Description:    s.Description,
		LastFetchedAt:  s.LastFetchedAt,
		LastFetchError: s.LastFetchError,
		CreatedAt:      s.CreatedAt,
		UpdatedAt:      s.UpdatedAt,
	}
}

type widgetResponse struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
}

func newWidgetResponse(w *database.Widget) widgetResponse {
	return widgetResponse{
		ID:        w.ID,
		Kind:      w.Kind,
		Title:     w.Title,
		CreatedAt: w.CreatedAt,
	}
}

type itemSourceRef struct {
	ID     string `json:"id"`
	Domain string `json:"domain"`
}

type itemResponse struct {
	ID          string        `json:"id"`
	Title       string        `json:"title"`
	URL         string        `json:"url"`
	Description string        `json:"description"`
	Content     string        `json:"content"`
	Author      string        `json:"author"`
	PublishedAt *time.Time    `json:"published_at"`
	Read        bool          `json:"read"`
	Starred     bool          `json:"starred"`
	FeedSource  itemSourceRef `json:"feed_source"`
}

func newItemResponse(v feed.ItemView) itemResponse {
	return itemResponse{
		ID:          v.ID,
		Title:       v.Title,
		URL:         v.URL,
		Description: v.Description,
		Content:     v.Content,
		Author:      v.Author,
		PublishedAt: v.PublishedAt,
		Read:        v.Read,
		Starred:     v.Starred,
		FeedSource:  itemSourceRef{ID: v.Source.ID, Domain: v.Source.Domain},
	}
}

type listItemsResponse struct {
	FeedItems  []itemResponse `json:"feed_items"`
	TotalCount int            `json:"total_count"`
	HasMore    bool           `json:"has_more"`
}

type bindingSourceResponse struct {
	ID             string     `json:"id"`
	URL            string     `json:"url"`
	Title          string     `json:"title"`
	LastFetchedAt  *time.Time `json:"last_fetched_at"`
	LastFetchError *string    `json:"last_fetch_error"`
}

type bindingResponse struct {
	ID           string                `json:"id"`
	FeedSourceID string                `json:"feed_source_id"`
	Position     int                   `json:"position"`
	FeedSource   bindingSourceResponse `json:"feed_source"`
}

func newBindingResponse(v feed.BindingView) bindingResponse {
	return bindingResponse{
		ID:           v.ID,
		FeedSourceID: v.SourceID,
		Position:     v.Position,
		FeedSource: bindingSourceResponse{
			ID:             v.Source.ID,
			URL:            v.Source.URL,
			Title:          v.Source.Title,
			LastFetchedAt:  v.Source.LastFetchedAt,
			LastFetchError: v.Source.LastFetchError,
		},
	}
}
