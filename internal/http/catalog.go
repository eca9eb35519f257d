package http

import (
	"net/http"

	"github.com/jmehdipour/loyalty-backoffice/internal/http/middleware"
	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	"github.com/jmehdipour/loyalty-backoffice/internal/service/backoffice"
	"github.com/jmehdipour/loyalty-backoffice/internal/service/points"
	"github.com/jmehdipour/loyalty-backoffice/internal/service/redemption"
	echo "github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type pointsConfigBody struct {
	CurrencyUnitsPerPoint decimal.Decimal `json:"currency_units_per_point"`
}

func createProductHandler(svc *backoffice.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)

		var in backoffice.ProductInput
		if err := c.Bind(&in); err != nil {
			return badRequest(c, "invalid json body")
		}
		p, err := svc.CreateProduct(c.Request().Context(), tenantID, in)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusCreated, p)
	}
}

// listProductsHandler shows the whole catalog to admins and only redeemable
// products to customers.
func listProductsHandler(svc *backoffice.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		onlyAvailable := surfaceOf(c) == model.SurfaceCustomer || c.QueryParam("available") == "true"

		ps, err := svc.ListProducts(c.Request().Context(), tenantID, onlyAvailable)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{"count": len(ps), "results": ps})
	}
}

func getProductHandler(svc *backoffice.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		p, err := svc.GetProduct(c.Request().Context(), tenantID, c.Param("id"))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func updateProductHandler(svc *backoffice.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)

		var patch backoffice.ProductPatch
		if err := c.Bind(&patch); err != nil {
			return badRequest(c, "invalid json body")
		}
		p, err := svc.UpdateProduct(c.Request().Context(), tenantID, c.Param("id"), patch)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, p)
	}
}

func deleteProductHandler(svc *redemption.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		res, err := svc.DeleteProduct(c.Request().Context(), tenantID, c.Param("id"), middleware.ActorFromCtx(c))
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, res)
	}
}

func getPointsConfigHandler(svc *points.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)
		cfg, err := svc.ConversionRatio(c.Request().Context(), tenantID)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, cfg)
	}
}

func putPointsConfigHandler(svc *points.Service) echo.HandlerFunc {
	return func(c echo.Context) error {
		tenantID, _ := middleware.TenantIDFromCtx(c)

		var body pointsConfigBody
		if err := c.Bind(&body); err != nil {
			return badRequest(c, "invalid json body")
		}
		cfg, err := svc.SetConversionRatio(c.Request().Context(), tenantID, body.CurrencyUnitsPerPoint)
		if err != nil {
			return writeError(c, err)
		}
		return c.JSON(http.StatusOK, cfg)
	}
}
