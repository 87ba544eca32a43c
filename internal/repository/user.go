package repository

import (
	"context"
	"errors"

	"devconnector/internal/domain"
)

var (
	// ErrNotFound is returned when no row matches the lookup.
	ErrNotFound = errors.New("record not found")
	// ErrAlreadyExists is returned when a unique column would be duplicated.
	ErrAlreadyExists = errors.New("record already exists")
)

// UserRepository defines persistence operations for User entities.
type UserRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	UpdateAvatar(ctx context.Context, id, avatar string) error
	Delete(ctx context.Context, id string) error
}
