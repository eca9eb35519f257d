package http

import (
	"strconv"
	"time"

	"github.com/jmehdipour/loyalty-backoffice/internal/http/middleware"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/labstack/echo/v4"
)

// requestView presents a request in the caller's status vocabulary.
type requestView struct {
	ID              string     `json:"id"`
	CustomerID      string     `json:"customer_id"`
	ProductID       string     `json:"product_id"`
	PointsUsed      int64      `json:"points_used"`
	BalanceBefore   int64      `json:"balance_before"`
	Status          string     `json:"status"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	RequestedAt     time.Time  `json:"requested_at"`
	ProcessedAt     *time.Time `json:"processed_at,omitempty"`
	ProcessedBy     *string    `json:"processed_by,omitempty"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func newRequestView(r model.LoyaltyRequest, surface model.Surface) requestView {
	return requestView{
		ID:              r.ID,
		CustomerID:      r.CustomerID,
		ProductID:       r.ProductID,
		PointsUsed:      r.PointsUsed,
		BalanceBefore:   r.BalanceBefore,
		Status:          r.Status.Label(surface),
		RejectionReason: r.RejectionReason,
		RequestedAt:     r.RequestedAt,
		ProcessedAt:     r.ProcessedAt,
		ProcessedBy:     r.ProcessedBy,
		ExpiresAt:       r.ExpiresAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func surfaceOf(c echo.Context) model.Surface { return middleware.SurfaceFromCtx(c) }

// pageParams reads limit/offset with the same bounds the repositories apply.
func pageParams(c echo.Context, defLimit int) (limit, offset int) {
	limit = defLimit
	if v := c.QueryParam("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 1000 {
			limit = n
		}
	}
	if v := c.QueryParam("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
