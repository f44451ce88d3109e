package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/banking/risk-analytics/internal/pkg/logger"
)

const actorContextKey = "actor_id"

// Claims are the bearer token claims accepted by the API. The subject is the
// operator id recorded on alert reviews.
type Claims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

// BearerAuth verifies HS256 bearer tokens signed with secret. A non-empty
// issuer must match the token issuer.
func BearerAuth(secret, issuer string) echo.MiddlewareFunc {
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if issuer != "" {
		opts = append(opts, jwt.WithIssuer(issuer))
	}
	parser := jwt.NewParser(opts...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			tokenString, ok := strings.CutPrefix(header, "Bearer ")
			if !ok {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authorization format")
			}

			claims := &Claims{}
			token, err := parser.ParseWithClaims(tokenString, claims, func(*jwt.Token) (interface{}, error) {
				return []byte(secret), nil
			})
			if err != nil || !token.Valid {
				if errors.Is(err, jwt.ErrTokenExpired) {
					return echo.NewHTTPError(http.StatusUnauthorized, "token expired")
				}
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}

			subject, _ := claims.GetSubject()
			c.Set(actorContextKey, subject)
			ctx := context.WithValue(c.Request().Context(), logger.ActorIDKey, subject)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}
	}
}

// actorID returns the authenticated operator, or "" without auth
func actorID(c echo.Context) string {
	if v, ok := c.Get(actorContextKey).(string); ok {
		return v
	}
	return ""
}
