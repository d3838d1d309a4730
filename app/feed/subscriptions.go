package feed

import (
	"context"

	"github.com/crgstar/patto/app/database"
)

// Subscriptions manages the bindings between reader widgets and feed
// sources. Ownership is checked on every operation; a source or widget the
// user does not own is indistinguishable from a missing one.
type Subscriptions struct {
	widgets  database.WidgetRepository
	sources  database.SourceRepository
	bindings database.BindingRepository
}

func NewSubscriptions(widgets database.WidgetRepository, sources database.SourceRepository,
	bindings database.BindingRepository) *Subscriptions {
	return &Subscriptions{
		widgets:  widgets,
		sources:  sources,
		bindings: bindings,
	}
}

// Subscribe binds a source the user owns to one of their widgets. A source
// owned by someone else surfaces as not-found, and a second subscription of
// the same pair fails with a uniqueness violation.
func (s *Subscriptions) Subscribe(ctx context.Context, userID, widgetID, sourceID string, position int) (*database.Binding, error) {
	if _, err := s.resolveWidget(userID, widgetID); err != nil {
		return nil, err
	}

	if position < 0 {
		return nil, &ValidationError{Field: "position", Message: "must be greater than or equal to 0"}
	}

	source, err := s.sources.GetOwned(userID, sourceID)
	if err != nil {
		return nil, err
	}
	if source == nil {
		return nil, ErrSourceNotFound
	}

	binding, err := s.bindings.Insert(widgetID, source.ID, position)
	if err != nil {
		if err == database.ErrDuplicate {
			return nil, ErrAlreadySubscribed
		}
		return nil, err
	}
	return binding, nil
}

// Unsubscribe removes the binding only. The source and its ingested items
// survive for other widgets and future re-subscriptions.
func (s *Subscriptions) Unsubscribe(ctx context.Context, userID, widgetID, bindingID string) error {
	if _, err := s.resolveWidget(userID, widgetID); err != nil {
		return err
	}

	binding, err := s.bindings.GetOwned(widgetID, bindingID)
	if err != nil {
		return err
	}
	if binding == nil {
		return ErrBindingNotFound
	}

	return s.bindings.SoftDelete(binding.ID)
}

// Reorder updates binding positions as one all-or-nothing batch.
func (s *Subscriptions) Reorder(ctx context.Context, userID, widgetID string, positions []database.BindingPosition) error {
	if _, err := s.resolveWidget(userID, widgetID); err != nil {
		return err
	}

	for _, p := range positions {
		if p.Position < 0 {
			return &ValidationError{Field: "position", Message: "must be greater than or equal to 0"}
		}
	}

	if err := s.bindings.Reorder(widgetID, positions); err != nil {
		if err == database.ErrNotFound {
			return ErrBindingNotFound
		}
		return err
	}
	return nil
}

// ListBindings returns the widget's bindings with source display metadata.
// Bindings whose source has been deleted are omitted; they contribute
// nothing until the source is restored.
func (s *Subscriptions) ListBindings(ctx context.Context, userID, widgetID string) ([]BindingView, error) {
	if _, err := s.resolveWidget(userID, widgetID); err != nil {
		return nil, err
	}

	bindings, err := s.bindings.ListByWidget(widgetID)
	if err != nil {
		return nil, err
	}

	sourceIDs := make([]string, 0, len(bindings))
	for _, b := range bindings {
		sourceIDs = append(sourceIDs, b.SourceID)
	}

	sources, err := s.sources.ListActiveByIDs(sourceIDs)
	if err != nil {
		return nil, err
	}
	sourcesByID := make(map[string]database.FeedSource, len(sources))
	for _, src := range sources {
		sourcesByID[src.ID] = src
	}

	views := make([]BindingView, 0, len(bindings))
	for _, b := range bindings {
		src, ok := sourcesByID[b.SourceID]
		if !ok {
			continue
		}
		views = append(views, BindingView{
			ID:       b.ID,
			SourceID: b.SourceID,
			Position: b.Position,
			Source: BindingSource{
				ID:             src.ID,
				URL:            src.URL,
				Title:          src.Title,
				LastFetchedAt:  src.LastFetchedAt,
				LastFetchError: src.LastFetchError,
			},
		})
	}
	return views, nil
}

func (s *Subscriptions) resolveWidget(userID, widgetID string) (*database.Widget, error) {
	widget, err := s.widgets.GetOwned(userID, widgetID)
	if err != nil {
		return nil, err
	}
	if widget == nil {
		return nil, ErrWidgetNotFound
	}
	return widget, nil
}
