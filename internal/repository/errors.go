package repository

import (
	apperrors "github.com/TridentTech8969/ASA/internal/errors"
)

// Common repository errors
var (
	ErrNotFound     = apperrors.ErrNotFound
	ErrInvalidInput = apperrors.ErrInvalidInput
	ErrStoreFailure = apperrors.ErrStoreFailure
)
