package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/customeros/txwatch/internal/utils"
)

// CustomContextMiddleware marks the request context with the app source
func CustomContextMiddleware(appSource string) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := utils.SetAppSourceInContext(c.Request.Context(), appSource)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
