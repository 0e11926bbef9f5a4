package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
	"github.com/yigit/eduadmin/internal/pkg/auth"
)

// Context keys set by TenantAuth
const (
	ContextTenantID = "tenantID"
	ContextSubject  = "subject"
)

// AuthMiddleware resolves the tenant a request acts on
type AuthMiddleware struct {
	jwtService *auth.JWTService
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(jwtService *auth.JWTService) *AuthMiddleware {
	return &AuthMiddleware{
		jwtService: jwtService,
	}
}

// TenantAuth validates the bearer token and stores its tenant in the context
func (m *AuthMiddleware) TenantAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			header = c.Query("token")
		}
		if header == "" {
			HandleAPIError(c, apperrors.NewCustomError(apperrors.ErrTokenInvalid, "Authentication required"))
			return
		}

		tokenString, err := auth.ExtractBearerToken(header)
		if err != nil {
			HandleAPIError(c, apperrors.NewCustomError(err, "Invalid token format"))
			return
		}

		claims, err := m.jwtService.ValidateToken(tokenString)
		if err != nil {
			HandleAPIError(c, err)
			return
		}

		c.Set(ContextTenantID, claims.TenantID)
		c.Set(ContextSubject, claims.Subject)
		c.Next()
	}
}

// TenantID returns the tenant TenantAuth stored for the request
func TenantID(c *gin.Context) string {
	return c.GetString(ContextTenantID)
}
