package api

import (
	"net/http"
	"strconv"

	"github.com/crgstar/patto/app/database"
	"github.com/crgstar/patto/app/feed"
	"github.com/gin-gonic/gin"
)

func (h *Handler) ListWidgetSources(c *gin.Context) {
	views, err := h.subscriptions.ListBindings(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	out := make([]bindingResponse, 0, len(views))
	for _, v := range views {
		out = append(out, newBindingResponse(v))
	}
	c.JSON(http.StatusOK, gin.H{"feed_source_bindings": out})
}

func (h *Handler) SubscribeSource(c *gin.Context) {
	var req subscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	binding, err := h.subscriptions.Subscribe(c.Request.Context(), currentUserID(c), c.Param("id"), req.FeedSourceID, req.Position)
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":             binding.ID,
		"feed_source_id": binding.SourceID,
		"position":       binding.Position,
	})
}

func (h *Handler) UnsubscribeSource(c *gin.Context) {
	err := h.subscriptions.Unsubscribe(c.Request.Context(), currentUserID(c), c.Param("id"), c.Param("binding_id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ReorderSources(c *gin.Context) {
	var req reorderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	positions := make([]database.BindingPosition, 0, len(req.Positions))
	for _, p := range req.Positions {
		positions = append(positions, database.BindingPosition{BindingID: p.ID, Position: p.Position})
	}

	if err := h.subscriptions.Reorder(c.Request.Context(), currentUserID(c), c.Param("id"), positions); err != nil {
		h.renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListItems(c *gin.Context) {
	opts := feed.ListOptions{
		SourceID: c.Query("feed_source_id"),
		Filter:   c.DefaultQuery("filter", feed.FilterAll),
		Offset:   intQuery(c, "offset", 0),
		Limit:    intQuery(c, "limit", 0),
	}

	result, err := h.query.List(c.Request.Context(), currentUserID(c), c.Param("id"), opts)
	if err != nil {
		h.renderError(c, err)
		return
	}

	items := make([]itemResponse, 0, len(result.Items))
	for _, v := range result.Items {
		items = append(items, newItemResponse(v))
	}

	c.JSON(http.StatusOK, listItemsResponse{
		FeedItems:  items,
		TotalCount: result.TotalCount,
		HasMore:    result.HasMore,
	})
}

func (h *Handler) GetUnreadCount(c *gin.Context) {
	count, err := h.query.UnreadCount(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}

func (h *Handler) MarkItemRead(c *gin.Context) {
	err := h.query.MarkRead(c.Request.Context(), currentUserID(c), c.Param("id"), c.Param("item_id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkItemUnread(c *gin.Context) {
	err := h.query.MarkUnread(c.Request.Context(), currentUserID(c), c.Param("id"), c.Param("item_id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) StarItem(c *gin.Context) {
	err := h.query.Star(c.Request.Context(), currentUserID(c), c.Param("id"), c.Param("item_id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) UnstarItem(c *gin.Context) {
	err := h.query.Unstar(c.Request.Context(), currentUserID(c), c.Param("id"), c.Param("item_id"))
	if err != nil {
		h.renderError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) MarkAllItemsRead(c *gin.Context) {
	count, err := h.query.MarkAllRead(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		h.renderError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked_count": count})
}

// RefreshAll refreshes every source bound to the widget before answering, so
// the frontend can re-query the listing right away.
func (h *Handler) RefreshAll(c *gin.Context) {
	if err := h.ingestor.RefreshAll(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		h.renderError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func intQuery(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return value
}
