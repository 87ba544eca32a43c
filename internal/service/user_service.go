package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"devconnector/internal/domain"
	"devconnector/internal/repository"
	"devconnector/internal/storage"
)

var (
	// ErrInvalidCredentials indicates that provided login credentials are incorrect.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserAlreadyExists is returned when attempting to register with an existing email.
	ErrUserAlreadyExists = errors.New("user already exists")
	// ErrInvalidInput marks input rejected by a service before touching the store.
	ErrInvalidInput = errors.New("invalid input")
)

// InputError names the field that failed a service-level check.
type InputError struct {
	Field   string
	Message string
}

func (e *InputError) Error() string {
	return ErrInvalidInput.Error() + ": " + e.Message
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func invalidInput(field, msg string) error {
	return &InputError{Field: field, Message: msg}
}

const passwordCost = 10

// RegisterInput carries the fields needed to create an account.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
}

// AvatarUpload is an image to store as the user's avatar.
type AvatarUpload struct {
	Body        io.Reader
	Filename    string
	ContentType string
	Size        int64
}

// UserService describes user lifecycle operations.
type UserService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Authenticate(ctx context.Context, email, password string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
	SetAvatar(ctx context.Context, userID string, upload AvatarUpload) (*domain.User, error)
}

type userService struct {
	users     repository.UserRepository
	media     storage.Service
	keyPrefix string
}

// NewUserService builds a UserService. media may be nil, in which case
// avatar uploads fail with storage.ErrNotConfigured.
func NewUserService(users repository.UserRepository, media storage.Service, keyPrefix string) UserService {
	return &userService{
		users:     users,
		media:     media,
		keyPrefix: strings.Trim(keyPrefix, "/"),
	}
}

func (s *userService) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" {
		return nil, invalidInput("name", "name is required")
	}
	if email == "" {
		return nil, invalidInput("email", "email is required")
	}
	if in.Password == "" {
		return nil, invalidInput("password", "password is required")
	}

	if _, err := s.users.GetByEmail(ctx, email); err == nil {
		return nil, ErrUserAlreadyExists
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), passwordCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Avatar:       gravatarURL(email),
		CreatedAt:    time.Now().UTC(),
	}

	// the unique index settles races between the lookup above and this insert
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrAlreadyExists) {
			return nil, ErrUserAlreadyExists
		}
		return nil, err
	}

	return sanitizeUser(user), nil
}

func (s *userService) Authenticate(ctx context.Context, email, password string) (*domain.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return sanitizeUser(user), nil
}

func (s *userService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return sanitizeUser(user), nil
}

func (s *userService) SetAvatar(ctx context.Context, userID string, upload AvatarUpload) (*domain.User, error) {
	if s.media == nil {
		return nil, storage.ErrNotConfigured
	}
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}

	key := path.Join(avatarPrefix(s.keyPrefix, userID), uuid.NewString()+strings.ToLower(path.Ext(upload.Filename)))
	location, err := s.media.PutObject(ctx, upload.Body, storage.PutOptions{
		Key:         key,
		ContentType: upload.ContentType,
		Size:        upload.Size,
	})
	if err != nil {
		return nil, fmt.Errorf("store avatar: %w", err)
	}

	if err := s.users.UpdateAvatar(ctx, userID, location); err != nil {
		return nil, err
	}
	return s.GetByID(ctx, userID)
}

func avatarPrefix(keyPrefix, userID string) string {
	if keyPrefix == "" {
		return userID + "/"
	}
	return keyPrefix + "/" + userID + "/"
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// gravatarURL mirrors the gravatar defaults: 200px, pg rating, mystery-man fallback.
func gravatarURL(email string) string {
	sum := md5.Sum([]byte(email))
	return "//www.gravatar.com/avatar/" + hex.EncodeToString(sum[:]) + "?d=mm&r=pg&s=200"
}

func sanitizeUser(user *domain.User) *domain.User {
	if user == nil {
		return nil
	}
	return &domain.User{
		ID:        user.ID,
		Name:      user.Name,
		Email:     user.Email,
		Avatar:    user.Avatar,
		CreatedAt: user.CreatedAt,
	}
}
