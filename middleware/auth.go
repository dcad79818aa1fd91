package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"listings-cms/internal/auth"
	"listings-cms/internal/logger"
	"listings-cms/utils"

	"github.com/gin-gonic/gin"
)

// SessionCookie carries the admin token for browser clients.
const SessionCookie = "admin_session"

// SessionValidator resolves a token to its claims. *services.AdminService satisfies it.
type SessionValidator interface {
	Authenticate(ctx context.Context, token string) (*auth.Claims, error)
}

type AuthMiddleware struct {
	sessions SessionValidator
}

func NewAuthMiddleware(sessions SessionValidator) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions}
}

// RequireAdmin aborts with 401 unless the request carries a live admin session.
func (a *AuthMiddleware) RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ExtractToken(c)
		if tokenString == "" {
			utils.RespondWithUnauthorized(c, "Admin session required")
			c.Abort()
			return
		}

		claims, err := a.sessions.Authenticate(c.Request.Context(), tokenString)
		if err != nil {
			if !errors.Is(err, auth.ErrInvalidToken) && !errors.Is(err, auth.ErrRevoked) {
				logger.Error("session lookup failed", "error", err, "request_id", GetRequestID(c))
			}
			utils.RespondWithUnauthorized(c, "Your session has expired. Please log in again.")
			c.Abort()
			return
		}

		setClaims(c, claims)
		c.Next()
	}
}

// OptionalAdmin attaches claims when a valid session is present and never aborts.
func (a *AuthMiddleware) OptionalAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if tokenString := ExtractToken(c); tokenString != "" {
			if claims, err := a.sessions.Authenticate(c.Request.Context(), tokenString); err == nil {
				setClaims(c, claims)
			}
		}
		c.Next()
	}
}

func setClaims(c *gin.Context, claims *auth.Claims) {
	c.Set("username", claims.Username)
	c.Set("role", claims.Role)
	c.Set("claims", claims)
}

// ExtractToken reads the bearer token, falling back to the session cookie.
func ExtractToken(c *gin.Context) string {
	if token := extractTokenFromHeader(c.GetHeader("Authorization")); token != "" {
		return token
	}
	if cookie, err := c.Cookie(SessionCookie); err == nil {
		return cookie
	}
	return ""
}

func extractTokenFromHeader(authHeader string) string {
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// GetClaims returns the session claims set by RequireAdmin or OptionalAdmin.
func GetClaims(c *gin.Context) *auth.Claims {
	if v, exists := c.Get("claims"); exists {
		if claims, ok := v.(*auth.Claims); ok {
			return claims
		}
	}
	return nil
}

func IsAuthenticated(c *gin.Context) bool {
	return GetClaims(c) != nil
}

func GetUsername(c *gin.Context) string {
	if claims := GetClaims(c); claims != nil {
		return claims.Username
	}
	return ""
}

// SetSessionCookie stores the token in an HttpOnly cookie; secure outside debug mode.
func SetSessionCookie(c *gin.Context, token string, maxAge int, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, token, maxAge, "/", "", secure, true)
}

func ClearSessionCookie(c *gin.Context, secure bool) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}
