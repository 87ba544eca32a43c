package domain

import "errors"

var (
	// ErrNotFound is returned when a referenced sub-collection entry is absent.
	ErrNotFound = errors.New("not found")
	// ErrForbidden is returned when the acting user does not own the resource.
	ErrForbidden = errors.New("user not authorized")
	// ErrAlreadyLiked is returned when a user likes the same post twice.
	ErrAlreadyLiked = errors.New("post already liked")
	// ErrNotLiked is returned when a user removes a like they never gave.
	ErrNotLiked = errors.New("post has not yet been liked")
	// ErrNoProfile is returned when the acting user has not created a profile.
	ErrNoProfile = errors.New("there is no profile for this user")
)
