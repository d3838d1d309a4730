package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/crgstar/patto/app/database"
	"github.com/crgstar/patto/app/feed"
)

// SourceCreator registers feed sources. Satisfied by feed.Ingestor.
type SourceCreator interface {
	CreateOrRestoreSource(ctx context.Context, userID, rawURL, title, description string) (*database.FeedSource, error)
}

// Subscriber binds sources to widgets. Satisfied by feed.Subscriptions.
type Subscriber interface {
	Subscribe(ctx context.Context, userID, widgetID, sourceID string, position int) (*database.Binding, error)
}

// Applier provisions accounts, sources and reader widgets from a seed file.
// Every step is idempotent, so re-running the same file against a populated
// database changes nothing.
type Applier struct {
	userRepo   database.UserRepository
	widgetRepo database.WidgetRepository
	sourceRepo database.SourceRepository
	creator    SourceCreator
	subscriber Subscriber
}

func NewApplier(userRepo database.UserRepository, widgetRepo database.WidgetRepository,
	sourceRepo database.SourceRepository, creator SourceCreator, subscriber Subscriber) *Applier {
	return &Applier{
		userRepo:   userRepo,
		widgetRepo: widgetRepo,
		sourceRepo: sourceRepo,
		creator:    creator,
		subscriber: subscriber,
	}
}

func (a *Applier) Apply(ctx context.Context, file *File) error {
	for _, userSeed := range file.Users {
		if err := a.applyUser(ctx, userSeed); err != nil {
			return fmt.Errorf("failed to seed user %s: %w", userSeed.Email, err)
		}
	}
	return nil
}

func (a *Applier) applyUser(ctx context.Context, userSeed UserSeed) error {
	user, err := a.userRepo.GetOrCreateByEmail(userSeed.Email)
	if err != nil {
		return err
	}

	sourceIDs := make([]string, 0, len(userSeed.Sources))
	for _, sourceSeed := range userSeed.Sources {
		source, err := a.resolveSource(ctx, user.ID, sourceSeed)
		if err != nil {
			return err
		}
		sourceIDs = append(sourceIDs, source.ID)
	}

	if userSeed.Reader == nil {
		return nil
	}

	widget, err := a.widgetRepo.GetByTitle(user.ID, "reader", userSeed.Reader.Title)
	if err != nil {
		return err
	}
	if widget == nil {
		widget, err = a.widgetRepo.Create(user.ID, "reader", userSeed.Reader.Title)
		if err != nil {
			return err
		}
	}

	for position, sourceID := range sourceIDs {
		_, err := a.subscriber.Subscribe(ctx, user.ID, widget.ID, sourceID, position)
		if err != nil && !errors.Is(err, feed.ErrAlreadySubscribed) {
			return err
		}
	}

	slog.Info("User seeded", "email", userSeed.Email, "sources", len(sourceIDs))
	return nil
}

// resolveSource registers the source, falling back to the existing row when
// it is already registered.
func (a *Applier) resolveSource(ctx context.Context, userID string, sourceSeed SourceSeed) (*database.FeedSource, error) {
	source, err := a.creator.CreateOrRestoreSource(ctx, userID, sourceSeed.URL, sourceSeed.Title, sourceSeed.Description)
	if err == nil {
		return source, nil
	}

	var vErr *feed.ValidationError
	if errors.As(err, &vErr) && vErr.Field == "url" && vErr.Message == "has already been taken" {
		existing, lookupErr := a.sourceRepo.GetByURLIncludingDeleted(userID, sourceSeed.URL)
		if lookupErr != nil {
			return nil, lookupErr
		}
		if existing != nil {
			return existing, nil
		}
	}
	return nil, err
}
