package api

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/crgstar/patto/app/database"
	"github.com/crgstar/patto/app/feed"
	"github.com/gin-gonic/gin"
)

func NewHandler(userRepo database.UserRepository, widgetRepo database.WidgetRepository,
	sourceRepo database.SourceRepository, ingestor *feed.Ingestor, query *feed.Query,
	subscriptions *feed.Subscriptions) *Handler {
	return &Handler{
		userRepo:      userRepo,
		widgetRepo:    widgetRepo,
		sourceRepo:    sourceRepo,
		ingestor:      ingestor,
		query:         query,
		subscriptions: subscriptions,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	})
}

func (h *Handler) ListSources(c *gin.Context) {
	sources, err := h.sourceRepo.ListByOwner(currentUserID(c))
	if err != nil {
		h.renderError(c, err)
		return
	}

	out := make([]sourceResponse, 0, len(sources))
	for i := range sources {
		out = append(out, newSourceResponse(&sources[i]))
	}
	c.JSON(http.StatusOK, gin.H{"feed_sources": out})
}

func (h *Handler) CreateSource(c *gin.Context) {
	var req createSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	source, err := h.ingestor.CreateOrRestoreSource(c.Request.Context(), currentUserID(c), req.URL, req.Title, req.Description)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newSourceResponse(source))
}

func (h *Handler) UpdateSource(c *gin.Context) {
	var req updateSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	source, err := h.sourceRepo.UpdateDetails(currentUserID(c), c.Param("id"), req.Title, req.Description)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if source == nil {
		h.renderError(c, feed.ErrSourceNotFound)
		return
	}

	c.JSON(http.StatusOK, newSourceResponse(source))
}

func (h *Handler) DeleteSource(c *gin.Context) {
	err := h.sourceRepo.SoftDelete(currentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.renderError(c, feed.ErrSourceNotFound)
			return
		}
		h.renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// RefreshSource runs one synchronous refresh so the caller gets fresh
// metadata back. A fetch or parse failure still answers 200: the failure is
// recorded on the source and visible in last_fetch_error.
func (h *Handler) RefreshSource(c *gin.Context) {
	userID := currentUserID(c)
	sourceID := c.Param("id")

	source, err := h.sourceRepo.GetOwned(userID, sourceID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if source == nil {
		h.renderError(c, feed.ErrSourceNotFound)
		return
	}

	if err := h.ingestor.Refresh(c.Request.Context(), source); err != nil {
		var refreshErr *feed.RefreshError
		if !errors.As(err, &refreshErr) {
			h.renderError(c, err)
			return
		}
	}

	refreshed, err := h.sourceRepo.GetOwned(userID, sourceID)
	if err != nil {
		h.renderError(c, err)
		return
	}
	if refreshed == nil {
		h.renderError(c, feed.ErrSourceNotFound)
		return
	}

	c.JSON(http.StatusOK, newSourceResponse(refreshed))
}

func (h *Handler) CreateWidget(c *gin.Context) {
	var req createWidgetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	if req.Kind == "" {
		req.Kind = "reader"
	}

	widget, err := h.widgetRepo.Create(currentUserID(c), req.Kind, req.Title)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newWidgetResponse(widget))
}

// DeleteWidget tombstones the widget and all its bindings in one
// transaction. Sources and their items are untouched.
func (h *Handler) DeleteWidget(c *gin.Context) {
	err := h.widgetRepo.SoftDeleteWithBindings(currentUserID(c), c.Param("id"))
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			h.renderError(c, feed.ErrWidgetNotFound)
			return
		}
		h.renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func currentUserID(c *gin.Context) string {
	return c.GetString("user_id")
}

// renderError maps domain errors onto HTTP statuses: not-found values
// (including anything owned by another user) answer 404, rejected input 422,
// everything else a logged 500 with a generic body.
func (h *Handler) renderError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, feed.ErrWidgetNotFound),
		errors.Is(err, feed.ErrSourceNotFound),
		errors.Is(err, feed.ErrBindingNotFound),
		errors.Is(err, feed.ErrItemNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, feed.ErrAlreadySubscribed):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		var vErr *feed.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  vErr.Error(),
				"errors": gin.H{vErr.Field: []string{vErr.Message}},
			})
			return
		}
		slog.Error("Request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
