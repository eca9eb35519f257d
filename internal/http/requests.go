package http

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/loyalty-backoffice/internal/http/middleware"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmehdipour/loyalty-backoffice/internal/repository"
	"github.com/jmehdipour/loyalty-backoffice/internal/service/redemption"
	echo "github.com/labstack/echo/v4"
)

type createRequestBody struct {
	CustomerID string `json:"customer_id"`
	ProductID  string `json:"product_id"`
}

type rejectRequestBody struct {
	Refund *bool  `json:"refund"`
	Reason string `json:"reason"`
}

func createRequestHandler(svc *redemption.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)

		var body createRequestBody
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "invalid json body")
		}
		body.CustomerID = strings.TrimSpace(body.CustomerID)
		body.ProductID = strings.TrimSpace(body.ProductID)
		if body.CustomerID == "" || body.ProductID == "" {
			return badRequest(c, "customer_id and product_id are required")
		}

		req, err := svc.Create(c.Request().Context(), tenantID, body.CustomerID, body.ProductID, middleware.ActorFromCtx(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, newRequestView(req, surfaceOf(c)))
	}
}

func getRequestHandler(svc *redemption.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		req, err := svc.Get(c.Request().Context(), tenantID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, newRequestView(req, surfaceOf(c)))
	}
}

func listRequestsHandler(svc *redemption.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)

		limit, offset := pageParams(c, 50)
		f := repository.RequestFilter{
			CustomerID: strings.TrimSpace(c.QueryParam("customer_id")),
			ProductID:  strings.TrimSpace(c.QueryParam("product_id")),
			Limit:      limit,
			Offset:     offset,
		}
		if raw := strings.TrimSpace(c.QueryParam("status")); raw != "" {
			st, ok := model.ParseRequestStatus(raw)
			if !ok {
				return badRequest(c, "unknown status "+raw)
			}
			f.Status = st
		}

		reqs, err := svc.List(c.Request().Context(), tenantID, f)
		if err != nil {
			return writeError(c, err)
		}

		surface := surfaceOf(c)
		views := make([]requestView, 0, len(reqs))
		for _, r := range reqs {
			views = append(views, newRequestView(r, surface))
		}
		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(views),
			"results": views,
		})
	}
}

func approveRequestHandler(svc *redemption.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		req, err := svc.Approve(c.Request().Context(), tenantID, c.Param("id"), middleware.ActorFromCtx(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, newRequestView(req, surfaceOf(c)))
	}
}

// rejectRequestHandler refunds by default; send {"refund": false} to forfeit.
func rejectRequestHandler(svc *redemption.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)

		var body rejectRequestBody
		if c.Request().ContentLength != 0 {
			if err := c.Bind(&body); err != nil {
				return badRequest(c, "invalid json body")
			}
		}
		refund := body.Refund == nil || *body.Refund

		req, err := svc.Reject(c.Request().Context(), tenantID, c.Param("id"), middleware.ActorFromCtx(c), refund, body.Reason)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, newRequestView(req, surfaceOf(c)))
	}
}

func completeRequestHandler(svc *redemption.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		req, err := svc.Complete(c.Request().Context(), tenantID, c.Param("id"), middleware.ActorFromCtx(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, newRequestView(req, surfaceOf(c)))
	}
}

func deleteRequestHandler(svc *redemption.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		if err := svc.Delete(c.Request().Context(), tenantID, c.Param("id"), middleware.ActorFromCtx(c)); err != nil {
			return writeError(c, err)
		}
		return c.NoContent(http.StatusNoContent)
	}
}
