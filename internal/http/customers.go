package http

import (
	"net/http"
	"strings"

	"github.com/jmehdipour/loyalty-backoffice/internal/http/middleware"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmehdipour/loyalty-backoffice/internal/service/backoffice"
	"github.com/jmehdipour/loyalty-backoffice/internal/service/points"
	echo "github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type adjustmentBody struct {
	Kind        string `json:"kind"` // credit | debit | remove_all
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

type saleBody struct {
	CustomerID  string          `json:"customer_id"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description"`
}

func enrollCustomerHandler(svc *backoffice.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)

		var in backoffice.CustomerInput
		if err := c.Bind(&in); err != nil {
			return badRequest(c, "invalid json body")
		}
		cust, err := svc.EnrollCustomer(c.Request().Context(), tenantID, in)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, cust)
	}
}

func listCustomersHandler(svc *backoffice.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		limit, offset := pageParams(c, 50)

		custs, err := svc.ListCustomers(c.Request().Context(), tenantID, limit, offset)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"limit":   limit,
			"offset":  offset,
			"count":   len(custs),
			"results": custs,
		})
	}
}

func getCustomerHandler(svc *backoffice.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		cust, err := svc.GetCustomer(c.Request().Context(), tenantID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, cust)
	}
}

func balanceHandler(svc *points.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		id := c.Param("id")
		bal, err := svc.BalanceOf(c.Request().Context(), tenantID, id)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"customer_id": id, "points": bal})
	}
}

// ledgerHandler pages oldest first; next_after is empty on the last page.
func ledgerHandler(svc *points.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		limit, _ := pageParams(c, 100)
		after := strings.TrimSpace(c.QueryParam("after"))
		var kind model.EntryKind
		if raw := c.QueryParam("kind"); raw != "" {
			k, ok := model.ParseEntryKind(raw)
			if !ok {
				return badRequest(c, "kind must be one of earned, spent, credit, debit")
			}
			kind = k
		}

		entries, err := svc.ListLedgerKind(c.Request().Context(), tenantID, c.Param("id"), kind, after, limit)
		if err != nil {
			return writeError(c, err)
		}
		next := ""
		if len(entries) == limit {
			next = entries[len(entries)-1].ID
		}
		return c.JSON(http.StatusOK, map[string]any{
			"count":      len(entries),
			"results":    entries,
			"next_after": next,
		})
	}
}

func adjustmentHandler(svc *points.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)

		var body adjustmentBody
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "invalid json body")
		}
		kind := points.AdjustKind(strings.ToLower(strings.TrimSpace(body.Kind)))

		entry, err := svc.Adjust(c.Request().Context(), tenantID, c.Param("id"), kind, body.Amount, body.Description, middleware.ActorFromCtx(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, entry)
	}
}

func recordSaleHandler(svc *points.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)

		var body saleBody
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "invalid json body")
		}
		if strings.TrimSpace(body.CustomerID) == "" {
			return badRequest(c, "customer_id is required")
		}

		sale, err := svc.RecordSale(c.Request().Context(), tenantID, strings.TrimSpace(body.CustomerID), body.Amount, body.Description, middleware.ActorFromCtx(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, sale)
	}
}
