package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"github.com/customeros/txwatch/interfaces"
	txerrors "github.com/customeros/txwatch/internal/errors"
	"github.com/customeros/txwatch/internal/logger"
	"github.com/customeros/txwatch/internal/tracing"
)

// TriggerCycle runs one polling cycle synchronously and returns its report
func TriggerCycle(processor interfaces.Processor, log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		span, ctx := tracing.StartTracerSpan(c.Request.Context(), "TriggerCycle")
		defer span.Finish()
		tracing.SetDefaultRestSpanTags(ctx, span)

		// a client disconnect must not cut a cycle between notify and delete
		report, err := processor.RunCycle(context.WithoutCancel(ctx))
		switch {
		case errors.Is(err, txerrors.ErrCycleInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case err != nil:
			tracing.TraceErr(span, err)
			log.Errorf("Manually triggered cycle failed: %v", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		default:
			c.JSON(http.StatusOK, report)
		}
	}
}
