package middleware

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
	"github.com/yigit/eduadmin/internal/pkg/validation"
)

// ConfigureBinding makes gin's validator report fields by their JSON names
func ConfigureBinding() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		v.RegisterTagNameFunc(validation.JSONTagName)
	}
}

// BindJSON decodes and validates the request body into obj. On failure the
// error response is written and false is returned.
func BindJSON(c *gin.Context, obj interface{}) bool {
	err := c.ShouldBindJSON(obj)
	if err == nil {
		return true
	}

	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		HandleAPIError(c, apperrors.NewValidationError(validation.Message(err)))
	case errors.Is(err, io.EOF):
		HandleAPIError(c, apperrors.NewBadRequestError("request body is required"))
	default:
		HandleAPIError(c, apperrors.NewBadRequestError("invalid request format: "+err.Error()))
	}
	return false
}
