package service

import (
	"errors"

	"github.com/ullaszensar/mealtrackpro/internal/repository"
	apperrors "github.com/ullaszensar/mealtrackpro/pkg/util/errorutil"
)

// mapRepoError converts repository sentinels into DomainErrors for resource.
func mapRepoError(err error, resource string, details map[string]any) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound(resource, details)
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict(resource+" already exists", details)
	default:
		return apperrors.MapError(err)
	}
}
