package repository

import (
	"context"

	"devconnector/internal/domain"
)

// ProfileRepository persists profiles together with their experience and
// education lists.
type ProfileRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, profile *domain.Profile) error
	// Update overwrites the scalar fields of the profile owned by profile.UserID.
	Update(ctx context.Context, profile *domain.Profile) error
	GetByUser(ctx context.Context, userID string) (*domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
	DeleteByUser(ctx context.Context, userID string) error
	ReplaceExperience(ctx context.Context, profileID string, items []domain.Experience) error
	ReplaceEducation(ctx context.Context, profileID string, items []domain.Education) error
}
