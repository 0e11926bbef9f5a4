package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

func newTestService(exp time.Duration) *JWTService {
	return NewJWTService(JWTConfig{SecretKey: "test-secret", AccessTokenExp: exp, TokenIssuer: "eduadmin"})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := newTestService(time.Hour)

	token, expiresAt, err := svc.GenerateToken("tenant-1", "admin")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), expiresAt, time.Minute)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", claims.TenantID)
	assert.Equal(t, "admin", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateTokenNeedsTenant(t *testing.T) {
	_, _, err := newTestService(time.Hour).GenerateToken("  ", "admin")
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)
}

func TestValidateTokenRejects(t *testing.T) {
	svc := newTestService(time.Hour)
	valid, _, err := svc.GenerateToken("tenant-1", "admin")
	require.NoError(t, err)

	expired, _, err := newTestService(-time.Minute).GenerateToken("tenant-1", "admin")
	require.NoError(t, err)
	_, err = svc.ValidateToken(expired)
	assert.ErrorIs(t, err, apperrors.ErrTokenExpired)

	otherIssuer := NewJWTService(JWTConfig{SecretKey: "test-secret", AccessTokenExp: time.Hour, TokenIssuer: "someone-else"})
	_, err = otherIssuer.ValidateToken(valid)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	otherSecret := NewJWTService(JWTConfig{SecretKey: "other-secret", AccessTokenExp: time.Hour, TokenIssuer: "eduadmin"})
	_, err = otherSecret.ValidateToken(valid)
	assert.ErrorIs(t, err, apperrors.ErrTokenInvalid)

	_, err = svc.ValidateToken("not.a.token")
	assert.ErrorIs(t, err, apperrors.ErrInvalidFormat)
}

func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr bool
	}{
		{"bearer", "Bearer aaa.bbb.ccc", "aaa.bbb.ccc", false},
		{"raw", "aaa.bbb.ccc", "aaa.bbb.ccc", false},
		{"quoted", `"Bearer aaa.bbb.ccc"`, "aaa.bbb.ccc", false},
		{"empty", "", "", true},
		{"not a jwt", "Bearer token", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractBearerToken(tt.header)
			if tt.wantErr {
				assert.ErrorIs(t, err, apperrors.ErrInvalidFormat)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
