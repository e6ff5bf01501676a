package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Backend roles. Custodians move donations; administrators additionally
// redirect destinations and read reports.
const (
	RoleAdmin     = "ADMINISTRADOR"
	RoleCustodian = "ENCARGADO"
)

// RBAC enforces role-based access control on routes behind Auth.
func RBAC(allowedRoles ...string) echo.MiddlewareFunc {
	allowed := make(map[string]struct{}, len(allowedRoles))
	for _, r := range allowedRoles {
		allowed[r] = struct{}{}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			role, _ := c.Get("role").(string)
			if _, ok := allowed[role]; !ok {
				return c.JSON(http.StatusForbidden, map[string]string{"error": "forbidden"})
			}
			return next(c)
		}
	}
}
