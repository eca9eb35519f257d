package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/http/middleware"
	"github.com/jmehdipour/loyalty-backoffice/internal/repository"
	echo "github.com/labstack/echo/v4"
)

const defaultReportSpan = 30 * 24 * time.Hour

// redemptionReportHandler serves per-product statistics for [from, to).
// Both bounds are RFC3339; the default window is the last 30 days.
func redemptionReportHandler(reports repository.ReportsRepository, now func() time.Time) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)

		to := now()
		if raw := strings.TrimSpace(c.QueryParam("to")); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return badRequest(c, "to must be RFC3339")
			}
			to = t.UTC()
		}
		from := to.Add(-defaultReportSpan)
		if raw := strings.TrimSpace(c.QueryParam("from")); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return badRequest(c, "from must be RFC3339")
			}
			from = t.UTC()
		}
		if !from.Before(to) {
			return badRequest(c, "from must be before to")
		}

		stats, err := reports.RedemptionStats(c.Request().Context(), tenantID, from, to)
		if err != nil {
			c.Logger().Errorf("redemption report failed: %v", err)
			return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal", Description: "query failed"})
		}

		return c.JSON(http.StatusOK, map[string]any{
			"from":    from,
			"to":      to,
			"count":   len(stats),
			"results": stats,
		})
	}
}
