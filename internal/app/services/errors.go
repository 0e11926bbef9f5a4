package services

import (
	"errors"
	"fmt"

	"github.com/yigit/eduadmin/internal/app/repositories"
	"github.com/yigit/eduadmin/internal/pkg/apperrors"
)

// storeError translates repository errors into the apperrors taxonomy.
// what names the record in the resulting message.
func storeError(err error, what string) error {
	if err == nil {
		return nil
	}

	var ce *apperrors.CustomError
	if errors.As(err, &ce) {
		return err
	}

	if errors.Is(err, repositories.ErrNotFound) {
		return apperrors.NewResourceNotFoundError(fmt.Sprintf("%s not found", what))
	}

	var uv *repositories.UniqueViolationError
	if errors.As(err, &uv) {
		switch uv.Constraint {
		case repositories.ConstraintActiveSeat:
			return apperrors.NewConflictError(apperrors.CodeSeatTaken, "seat is already taken")
		case repositories.ConstraintActiveStudentOnBus:
			return apperrors.NewConflictError(apperrors.CodeStudentEnrolled, "student already holds an active bus enrollment")
		}
		return apperrors.NewConflictError(apperrors.CodeDuplicateIdentity, fmt.Sprintf("%s already exists", what))
	}

	return fmt.Errorf("%s: %w", what, err)
}

func isNotFound(err error) bool {
	return errors.Is(err, repositories.ErrNotFound)
}
