package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	echo "github.com/labstack/echo/v4"
)

const (
	ctxTenantID = "tenant_id"
	ctxActor    = "actor"
	ctxSurface  = "surface"
)

// CompanyLookup resolves an API key to its company, or (nil, nil).
type CompanyLookup interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Company, error)
}

// TenantIDFromCtx extracts the tenant set by APIKeyMiddleware.
func TenantIDFromCtx(c echo.Context) (string, bool) {
	id, ok := c.Get(ctxTenantID).(string)
	return id, ok && id != ""
}

// ActorFromCtx returns the X-Actor header value ("" when absent).
func ActorFromCtx(c echo.Context) string {
	a, _ := c.Get(ctxActor).(string)
	return a
}

// SurfaceFromCtx returns which status vocabulary the caller wants.
func SurfaceFromCtx(c echo.Context) model.Surface {
	if s, ok := c.Get(ctxSurface).(model.Surface); ok {
		return s
	}
	return model.SurfaceAdmin
}

// APIKeyMiddleware authenticates requests using the X-API-Key header (or the
// api_key query parameter).
// On success it stores the tenant, the acting user and the UI surface in context.
func APIKeyMiddleware(companies CompanyLookup) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := strings.TrimSpace(c.Request().Header.Get("X-API-Key"))
			if key == "" {
				// browsers cannot set headers on a WebSocket handshake
				key = strings.TrimSpace(c.QueryParam("api_key"))
			}
			if key == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized", "description": "missing api key"})
			}
			co, err := companies.GetByAPIKey(c.Request().Context(), key)
			if err != nil {
				c.Logger().Errorf("api key lookup failed: %v", err)
				return c.JSON(http.StatusInternalServerError, map[string]string{"error": "internal", "description": "auth error"})
			}
			if co == nil || !co.IsActive {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "unauthorized", "description": "invalid api key"})
			}
			c.Set(ctxTenantID, co.ID)
			c.Set(ctxActor, strings.TrimSpace(c.Request().Header.Get("X-Actor")))
			c.Set(ctxSurface, model.ParseSurface(c.Request().Header.Get("X-Surface")))
			return next(c)
		}
	}
}
