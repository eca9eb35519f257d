package http

import (
	"errors"
	"net/http"

	"github.com/jmehdipour/loyalty-backoffice/internal/model"
	echo "github.com/labstack/echo/v4"
)

type errorBody struct {
	Error       string `json:"error"`
	Description string `json:"description"`
	Current     string `json:"current_status,omitempty"`
}

var errorKinds = []struct {
	err    error
	kind   string
	status int
}{
	{model.ErrInsufficientPoints, "insufficient_points", http.StatusUnprocessableEntity},
	{model.ErrProductUnavailable, "product_unavailable", http.StatusUnprocessableEntity},
	{model.ErrInvalidTransition, "invalid_transition", http.StatusConflict},
	{model.ErrUnknownCustomer, "unknown_customer", http.StatusNotFound},
	{model.ErrInvalidAmount, "invalid_amount", http.StatusBadRequest},
	{model.ErrCrossTenantAccess, "cross_tenant_access", http.StatusForbidden},
	{model.ErrConflict, "conflict", http.StatusConflict},
	{model.ErrNotFound, "not_found", http.StatusNotFound},
	{model.ErrDuplicateCustomer, "duplicate_customer", http.StatusConflict},
	{model.ErrInvalidInput, "bad_request", http.StatusBadRequest},
}

// writeError maps domain errors onto stable kinds; anything else is a 500.
func writeError(c echo.Context, err error) error {
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			body := errorBody{Error: k.kind, Description: err.Error()}
			var te *model.TransitionError
			if errors.As(err, &te) {
				body.Current = te.Current.Label(surfaceOf(c))
			}
			return c.JSON(k.status, body)
		}
	}

	c.Logger().Errorf("%s %s: %v", c.Request().Method, c.Path(), err)
	return c.JSON(http.StatusInternalServerError, errorBody{Error: "internal", Description: "internal error"})
}

func badRequest(c echo.Context, description string) error {
	return c.JSON(http.StatusBadRequest, errorBody{Error: "bad_request", Description: description})
}
