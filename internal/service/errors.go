package service

import (
	"errors"
	"fmt"

	"github.com/iliyamo/study-abroad-marketplace/internal/repository"
)

// Errors returned by the services. Handlers map them to HTTP statuses; the
// wrapped message carries the detail.
var (
	ErrValidation        = errors.New("validation failed")
	ErrForbidden         = errors.New("forbidden")
	ErrNotFound          = errors.New("not found")
	ErrConflict          = errors.New("conflict")
	ErrAlreadyPaid       = errors.New("application fee already paid")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotPaid           = errors.New("payment not confirmed by provider")
	ErrProvider          = errors.New("payment provider error")
	ErrPersistence       = errors.New("persistence error")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// fromRepo maps a repository error for the named resource.
func fromRepo(err error, what string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	default:
		return fmt.Errorf("%w: %s: %v", ErrPersistence, what, err)
	}
}
