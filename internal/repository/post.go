package repository

import (
	"context"

	"devconnector/internal/domain"
)

// PostRepository exposes persistence operations for Post aggregates.
type PostRepository interface {
	Init(ctx context.Context) error
	Create(ctx context.Context, post *domain.Post) error
	Get(ctx context.Context, id string) (*domain.Post, error)
	// List returns posts newest first; an empty userID lists every post.
	List(ctx context.Context, userID string) ([]domain.Post, error)
	Delete(ctx context.Context, id string) error
	ReplaceLikes(ctx context.Context, postID string, likes []domain.Like) error
	ReplaceComments(ctx context.Context, postID string, comments []domain.Comment) error
}
