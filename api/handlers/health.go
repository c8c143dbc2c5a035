package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/customeros/txwatch/interfaces"
)

// HealthCheck provides a simple health check endpoint
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// Status returns whether a cycle is running and the report of the last one
func Status(processor interfaces.Processor) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, processor.Status())
	}
}
