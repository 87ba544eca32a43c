package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"devconnector/internal/domain"
	"devconnector/internal/repository"
)

// PostService coordinates posts, likes and comments.
//
// Mutations follow load, check, splice, save. The save replaces the whole
// sub-collection, so two concurrent writers on one post can lose an update.
type PostService interface {
	Create(ctx context.Context, userID, text string) (*domain.Post, error)
	Get(ctx context.Context, id string) (*domain.Post, error)
	List(ctx context.Context) ([]domain.Post, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Post, error)
	Delete(ctx context.Context, userID, postID string) error
	Like(ctx context.Context, userID, postID string) ([]domain.Like, error)
	Unlike(ctx context.Context, userID, postID string) ([]domain.Like, error)
	AddComment(ctx context.Context, userID, postID, text string) ([]domain.Comment, error)
	RemoveComment(ctx context.Context, userID, postID, commentID string) ([]domain.Comment, error)
}

type postService struct {
	posts repository.PostRepository
	users repository.UserRepository
}

func NewPostService(posts repository.PostRepository, users repository.UserRepository) PostService {
	return &postService{
		posts: posts,
		users: users,
	}
}

func (s *postService) Create(ctx context.Context, userID, text string) (*domain.Post, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalidInput("text", "text is required")
	}

	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	post := &domain.Post{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		Name:      author.Name,
		Avatar:    author.Avatar,
		Likes:     []domain.Like{},
		Comments:  []domain.Comment{},
		CreatedAt: time.Now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (s *postService) Get(ctx context.Context, id string) (*domain.Post, error) {
	return s.posts.Get(ctx, id)
}

func (s *postService) List(ctx context.Context) ([]domain.Post, error) {
	return s.posts.List(ctx, "")
}

func (s *postService) ListByUser(ctx context.Context, userID string) ([]domain.Post, error) {
	return s.posts.List(ctx, userID)
}

func (s *postService) Delete(ctx context.Context, userID, postID string) error {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return err
	}
	if post.UserID != userID {
		return domain.ErrForbidden
	}
	return s.posts.Delete(ctx, postID)
}

func (s *postService) Like(ctx context.Context, userID, postID string) ([]domain.Like, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := post.AddLike(userID); err != nil {
		return nil, err
	}
	if err := s.posts.ReplaceLikes(ctx, post.ID, post.Likes); err != nil {
		return nil, err
	}
	return post.Likes, nil
}

func (s *postService) Unlike(ctx context.Context, userID, postID string) ([]domain.Like, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := post.RemoveLike(userID); err != nil {
		return nil, err
	}
	if err := s.posts.ReplaceLikes(ctx, post.ID, post.Likes); err != nil {
		return nil, err
	}
	return post.Likes, nil
}

func (s *postService) AddComment(ctx context.Context, userID, postID, text string) ([]domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, invalidInput("text", "text is required")
	}

	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	author, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	post.AddComment(domain.Comment{
		ID:        uuid.NewString(),
		UserID:    userID,
		Text:      text,
		Name:      author.Name,
		Avatar:    author.Avatar,
		CreatedAt: time.Now().UTC(),
	})
	if err := s.posts.ReplaceComments(ctx, post.ID, post.Comments); err != nil {
		return nil, err
	}
	return post.Comments, nil
}

func (s *postService) RemoveComment(ctx context.Context, userID, postID, commentID string) ([]domain.Comment, error) {
	post, err := s.posts.Get(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := post.RemoveComment(commentID, userID); err != nil {
		return nil, fmt.Errorf("comment %s: %w", commentID, err)
	}
	if err := s.posts.ReplaceComments(ctx, post.ID, post.Comments); err != nil {
		return nil, err
	}
	return post.Comments, nil
}
