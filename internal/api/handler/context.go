package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/calchat/scheduling-system/internal/core/domain"
)

// ctxUserID extracts the scheduling user bound to the authenticated account,
// injected by the Auth middleware. Client accounts must carry a user_id
// claim; a token without one is structurally valid but operationally
// unusable, so it is rejected with 401.
func ctxUserID(c echo.Context) (string, error) {
	role, _ := c.Get("role").(string)
	if role == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}

	userID, _ := c.Get("user_id").(string)
	if role == domain.RoleClient && userID == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "token missing user identity")
	}

	return userID, nil
}
