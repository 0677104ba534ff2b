// Package http serves the deployment probe endpoints.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// NewRouter builds the probe router. ready should report whether the gateway
// session is connected.
func NewRouter(ready func() bool) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if !ready() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "starting"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	return router
}
