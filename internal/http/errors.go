package http

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"devconnector/internal/auth"
	"devconnector/internal/domain"
	"devconnector/internal/repository"
	"devconnector/internal/service"
	"devconnector/internal/storage"
)

type fieldError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

var registerTagNames sync.Once

// useJSONFieldNames makes validation errors report json names instead of Go
// struct field names.
func useJSONFieldNames() {
	registerTagNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"json", "form"} {
				name, _, _ := strings.Cut(f.Tag.Get(tag), ",")
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
}

// writeBindError answers a request whose body failed to bind or validate.
func writeBindError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		out := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			out = append(out, fieldError{Field: fe.Field(), Message: validationMessage(fe)})
		}
		c.JSON(http.StatusBadRequest, gin.H{"errors": out})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "email":
		return "please include a valid email"
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
	case "datetime":
		return fmt.Sprintf("%s must be a date formatted as YYYY-MM-DD", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// writeError maps service errors onto status codes. notFound is the message
// used when the referenced resource does not exist.
func (h *Handler) writeError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, service.ErrInvalidInput):
		fe := fieldError{Message: err.Error()}
		var ie *service.InputError
		if errors.As(err, &ie) {
			fe = fieldError{Field: ie.Field, Message: ie.Message}
		}
		c.JSON(http.StatusBadRequest, gin.H{"errors": []fieldError{fe}})
	case errors.Is(err, service.ErrInvalidCredentials):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credentials"})
	case errors.Is(err, service.ErrUserAlreadyExists):
		c.JSON(http.StatusBadRequest, gin.H{"error": "another user with the same email already exists"})
	case errors.Is(err, domain.ErrAlreadyLiked), errors.Is(err, domain.ErrNotLiked), errors.Is(err, domain.ErrNoProfile):
		c.JSON(http.StatusBadRequest, gin.H{"error": rootMessage(err)})
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, domain.ErrForbidden):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authorized"})
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, repository.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": notFound})
	case errors.Is(err, storage.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "avatar uploads are not enabled"})
	default:
		h.logger.WithError(err).WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.FullPath(),
		}).Error("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "server error"})
	}
}

func rootMessage(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
