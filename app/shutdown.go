package app

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flagonhq/flagon/common"
)

// handleShutdown stops the dev server by cancelling the context Run watches.
// Only bound via EnableShutdownEndpoint.
func (a *App) handleShutdown(halt context.CancelFunc) gin.HandlerFunc {
	return func(c *gin.Context) {
		common.Logger(c.Request.Context()).Info("shutdown requested")
		halt()
		c.JSON(http.StatusOK, gin.H{"status": "shutting down"})
	}
}
