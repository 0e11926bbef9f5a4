package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/pkg/auth"
)

func newAuthRouter(jwtService *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", NewAuthMiddleware(jwtService).TenantAuth(), func(c *gin.Context) {
		c.String(http.StatusOK, TenantID(c))
	})
	return router
}

func TestTenantAuth(t *testing.T) {
	jwtService := auth.NewJWTService(auth.JWTConfig{SecretKey: "secret", AccessTokenExp: time.Hour, TokenIssuer: "eduadmin"})
	router := newAuthRouter(jwtService)

	token, _, err := jwtService.GenerateToken("tenant-9", "admin")
	require.NoError(t, err)

	t.Run("bearer header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "tenant-9", rec.Body.String())
	})

	t.Run("query token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami?token="+token, nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("missing token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/whoami", nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body dto.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.False(t, body.Success)
		assert.Equal(t, dto.ErrorCodeInvalidToken, body.Error.Code)
	})

	t.Run("expired token", func(t *testing.T) {
		expiredService := auth.NewJWTService(auth.JWTConfig{SecretKey: "secret", AccessTokenExp: -time.Minute, TokenIssuer: "eduadmin"})
		expired, _, err := expiredService.GenerateToken("tenant-9", "admin")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		req.Header.Set("Authorization", "Bearer "+expired)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		var body dto.ErrorResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, dto.ErrorCodeExpiredToken, body.Error.Code)
	})
}

type bindTarget struct {
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

func TestBindJSON(t *testing.T) {
	gin.SetMode(gin.TestMode)
	ConfigureBinding()
	router := gin.New()
	router.POST("/bind", func(c *gin.Context) {
		var in bindTarget
		if !BindJSON(c, &in) {
			return
		}
		c.String(http.StatusOK, in.Name)
	})

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantCode   dto.ErrorCode
		wantText   string
	}{
		{"valid", `{"name":"ok"}`, http.StatusOK, "", ""},
		{"missing field", `{"email":"a@b.co"}`, http.StatusBadRequest, dto.ErrorCodeValidationFailed, "name is required"},
		{"empty body", ``, http.StatusBadRequest, dto.ErrorCodeInvalidRequest, "request body is required"},
		{"malformed", `{"name":`, http.StatusBadRequest, dto.ErrorCodeInvalidRequest, "invalid request format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/bind", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantCode == "" {
				return
			}
			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
			assert.Contains(t, body.Error.Message, tt.wantText)
		})
	}
}
