package api

import (
	"time"

	"github.com/gin-gonic/gin"
)

const keepAliveInterval = 25 * time.Second

// Changes streams one "changed" server-sent event per engine publish.
// Publishes that arrive while an event is pending collapse into it.
func (h *Handler) Changes(c *gin.Context) {
	pending := make(chan struct{}, 1)
	unsubscribe := h.svc.Bus().Subscribe(func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	c.SSEvent("ready", gin.H{"at": time.Now().UTC()})
	c.Writer.Flush()

	ticker := time.NewTicker(keepAliveInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-pending:
			c.SSEvent("changed", gin.H{"at": time.Now().UTC()})
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"at": time.Now().UTC()})
		}
		c.Writer.Flush()
	}
}
