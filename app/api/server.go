package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// NewServer creates the HTTP engine with all routes configured.
func NewServer(handler *Handler, apiAccessKey string) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, X-API-Key, X-User-ID, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler, apiAccessKey)

	return r
}

func setupRoutes(r *gin.Engine, handler *Handler, apiAccessKey string) {
	r.GET("/health", handler.GetHealth)

	api := r.Group("/api")
	api.Use(authMiddleware(apiAccessKey))
	api.Use(handler.identifyUser())
	{
		api.GET("/sources", handler.ListSources)
		api.POST("/sources", handler.CreateSource)
		api.PATCH("/sources/:id", handler.UpdateSource)
		api.DELETE("/sources/:id", handler.DeleteSource)
		api.POST("/sources/:id/refresh", handler.RefreshSource)

		api.POST("/widgets", handler.CreateWidget)
		api.DELETE("/widgets/:id", handler.DeleteWidget)

		api.GET("/widgets/:id/sources", handler.ListWidgetSources)
		api.POST("/widgets/:id/sources", handler.SubscribeSource)
		api.DELETE("/widgets/:id/sources/:binding_id", handler.UnsubscribeSource)
		api.PATCH("/widgets/:id/sources/reorder", handler.ReorderSources)

		api.GET("/widgets/:id/items", handler.ListItems)
		api.GET("/widgets/:id/items/unread_count", handler.GetUnreadCount)
		api.POST("/widgets/:id/items/read_all", handler.MarkAllItemsRead)
		api.POST("/widgets/:id/items/:item_id/read", handler.MarkItemRead)
		api.POST("/widgets/:id/items/:item_id/unread", handler.MarkItemUnread)
		api.POST("/widgets/:id/items/:item_id/star", handler.StarItem)
		api.POST("/widgets/:id/items/:item_id/unstar", handler.UnstarItem)
		api.POST("/widgets/:id/refresh_all", handler.RefreshAll)
	}

	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// authMiddleware guards the API group with a shared access key. Requests
// from the dashboard frontend arrive through a proxy that holds the key.
func authMiddleware(apiAccessKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		providedKey := c.GetHeader("X-API-Key")

		if providedKey == "" {
			authHeader := c.GetHeader("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				providedKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if providedKey == "" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "API key required",
				"message": "Provide API key in X-API-Key header or Authorization: Bearer <key>",
			})
			c.Abort()
			return
		}

		if providedKey != apiAccessKey {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error":   "Invalid API key",
				"message": "The provided API key is not valid",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

// identifyUser resolves the acting user from the X-User-ID header set by the
// authenticating proxy. Every /api route is scoped to this user.
func (h *Handler) identifyUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "X-User-ID header required"})
			c.Abort()
			return
		}

		user, err := h.userRepo.GetByID(userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			c.Abort()
			return
		}
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unknown user"})
			c.Abort()
			return
		}

		c.Set("user_id", user.ID)
		c.Next()
	}
}
