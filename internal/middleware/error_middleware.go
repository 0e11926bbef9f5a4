package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yigit/eduadmin/internal/app/models/dto"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
	"github.com/yigit/eduadmin/internal/pkg/logger"
)

// classify maps a single error onto an HTTP status and error code
func classify(err error) (int, dto.ErrorCode) {
	switch {
	case errors.Is(err, apperrors.ErrResourceNotFound):
		return http.StatusNotFound, dto.ErrorCodeResourceNotFound
	case errors.Is(err, apperrors.ErrConflict):
		return http.StatusConflict, dto.ErrorCodeConflict
	case errors.Is(err, apperrors.ErrValidationGap):
		return http.StatusUnprocessableEntity, dto.ErrorCodeUnresolvedRef
	case errors.Is(err, apperrors.ErrPreconditionFailed):
		return http.StatusPreconditionFailed, dto.ErrorCodePreconditionFailed
	case errors.Is(err, apperrors.ErrValidationFailed):
		return http.StatusBadRequest, dto.ErrorCodeValidationFailed
	case errors.Is(err, apperrors.ErrBadRequest):
		return http.StatusBadRequest, dto.ErrorCodeInvalidRequest
	case errors.Is(err, apperrors.ErrPermissionDenied):
		return http.StatusForbidden, dto.ErrorCodeForbidden
	case errors.Is(err, apperrors.ErrTokenExpired):
		return http.StatusUnauthorized, dto.ErrorCodeExpiredToken
	case errors.Is(err, apperrors.ErrTokenInvalid), errors.Is(err, apperrors.ErrInvalidFormat):
		return http.StatusUnauthorized, dto.ErrorCodeInvalidToken
	case errors.Is(err, apperrors.ErrMirrorSync):
		return http.StatusInternalServerError, dto.ErrorCodeMirrorSync
	default:
		return http.StatusInternalServerError, dto.ErrorCodeInternalServer
	}
}

// message prefers the CustomError text over the wrapped chain
func message(err error, status int) string {
	var ce *apperrors.CustomError
	if errors.As(err, &ce) && ce.Message != "" {
		return ce.Message
	}
	if errors.Is(err, apperrors.ErrMirrorSync) {
		return apperrors.ErrMirrorSync.Error()
	}
	if status == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}

// RecordFailures converts the per-record failures of a replace for the response
func RecordFailures(err error) []dto.RecordFailure {
	var batch *apperrors.BatchError
	if !errors.As(err, &batch) {
		return nil
	}
	out := make([]dto.RecordFailure, 0, len(batch.Failures))
	for _, f := range batch.Failures {
		status, code := classify(f.Err)
		out = append(out, dto.RecordFailure{
			Index:   f.Index,
			Name:    f.Name,
			Code:    code,
			Message: message(f.Err, status),
		})
	}
	return out
}

// ErrorDetail builds the response status and body for err
func ErrorDetail(err error) (int, *dto.ErrorDetail) {
	if failures := RecordFailures(err); failures != nil {
		detail := dto.NewErrorDetail(dto.ErrorCodePartialReplacement, "Some records could not be saved")
		return http.StatusUnprocessableEntity, detail.WithDetails(failures)
	}

	status, code := classify(err)
	detail := dto.NewErrorDetail(code, message(err, status))
	if c := apperrors.Code(err); c != "" {
		detail = detail.WithDetails(map[string]string{"reason": c})
	}
	return status, detail
}

// HandleAPIError writes the error envelope for err
func HandleAPIError(c *gin.Context, err error) {
	status, detail := ErrorDetail(err)
	if status >= http.StatusInternalServerError {
		logger.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.FullPath()).
			Msg("Request failed")
	}
	c.AbortWithStatusJSON(status, dto.NewErrorResponse(detail))
}
