package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

func TestErrorDetailMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   dto.ErrorCode
	}{
		{"not found", apperrors.NewResourceNotFoundError("bus not found"), http.StatusNotFound, dto.ErrorCodeResourceNotFound},
		{"conflict", apperrors.NewConflictError(apperrors.CodeSeatTaken, "seat taken"), http.StatusConflict, dto.ErrorCodeConflict},
		{"validation", apperrors.NewValidationError("name is required"), http.StatusBadRequest, dto.ErrorCodeValidationFailed},
		{"unresolved reference", apperrors.NewValidationGapError("class not found"), http.StatusUnprocessableEntity, dto.ErrorCodeUnresolvedRef},
		{"precondition", apperrors.NewPreconditionFailedError(apperrors.CodeSchoolMissing, "no school"), http.StatusPreconditionFailed, dto.ErrorCodePreconditionFailed},
		{"bad request", apperrors.NewBadRequestError("bad json"), http.StatusBadRequest, dto.ErrorCodeInvalidRequest},
		{"expired token", apperrors.ErrTokenExpired, http.StatusUnauthorized, dto.ErrorCodeExpiredToken},
		{"invalid token", fmt.Errorf("%w: bad signature", apperrors.ErrTokenInvalid), http.StatusUnauthorized, dto.ErrorCodeInvalidToken},
		{"mirror", fmt.Errorf("%w: %w", apperrors.ErrMirrorSync, errors.New("db down")), http.StatusInternalServerError, dto.ErrorCodeMirrorSync},
		{"unknown", errors.New("db down"), http.StatusInternalServerError, dto.ErrorCodeInternalServer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, detail := ErrorDetail(tt.err)
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantCode, detail.Code)
		})
	}
}

func TestErrorDetailMessages(t *testing.T) {
	_, detail := ErrorDetail(apperrors.NewConflictError(apperrors.CodeSeatTaken, "seat 3 on bus A is already taken"))
	assert.Equal(t, "seat 3 on bus A is already taken", detail.Message)
	assert.Equal(t, map[string]string{"reason": apperrors.CodeSeatTaken}, detail.Details)

	_, detail = ErrorDetail(errors.New("pq: connection refused"))
	assert.Equal(t, "Internal server error", detail.Message)
	assert.Nil(t, detail.Details)
}

func TestErrorDetailPartialReplacement(t *testing.T) {
	batch := &apperrors.BatchError{Kind: dto.KindSubjects}
	batch.Add(0, "Maths", apperrors.NewValidationGapError("Class not found for subject: Maths"))
	batch.Add(2, "Music", apperrors.NewConflictError(apperrors.CodeDuplicateIdentity, "duplicate record in batch: Music"))

	status, detail := ErrorDetail(batch)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, dto.ErrorCodePartialReplacement, detail.Code)

	failures, ok := detail.Details.([]dto.RecordFailure)
	require.True(t, ok)
	assert.Equal(t, []dto.RecordFailure{
		{Index: 0, Name: "Maths", Code: dto.ErrorCodeUnresolvedRef, Message: "Class not found for subject: Maths"},
		{Index: 2, Name: "Music", Code: dto.ErrorCodeConflict, Message: "duplicate record in batch: Music"},
	}, failures)

	assert.Nil(t, RecordFailures(errors.New("plain")))
}
