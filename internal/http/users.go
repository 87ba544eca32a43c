package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"devconnector/internal/domain"
	"devconnector/internal/service"
)

const maxAvatarBytes = 2 << 20

type registerRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=3"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type UserResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar"`
	Date   string `json:"date"`
}

func userToResponse(u domain.User) UserResponse {
	return UserResponse{
		ID:     u.ID,
		Name:   u.Name,
		Email:  u.Email,
		Avatar: u.Avatar,
		Date:   u.CreatedAt.Format(time.RFC3339),
	}
}

func (h *Handler) register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	user, err := h.users.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.writeError(c, err, "user not found")
		return
	}

	h.respondWithToken(c, user.ID)
}

func (h *Handler) login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	user, err := h.users.Authenticate(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(c, err, "user not found")
		return
	}

	h.respondWithToken(c, user.ID)
}

func (h *Handler) respondWithToken(c *gin.Context, userID string) {
	token, err := h.tokens.Issue(userID)
	if err != nil {
		h.writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, tokenResponse{Token: token})
}

func (h *Handler) me(c *gin.Context) {
	user, err := h.users.GetByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err, "user not found")
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	fh, err := c.FormFile("avatar")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []fieldError{{Field: "avatar", Message: "avatar file is required"}}})
		return
	}
	if fh.Size > maxAvatarBytes {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []fieldError{{Field: "avatar", Message: "avatar must be at most 2 MiB"}}})
		return
	}
	contentType := fh.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		c.JSON(http.StatusBadRequest, gin.H{"errors": []fieldError{{Field: "avatar", Message: "avatar must be an image"}}})
		return
	}

	f, err := fh.Open()
	if err != nil {
		h.writeError(c, err, "")
		return
	}
	defer f.Close()

	user, err := h.users.SetAvatar(c.Request.Context(), currentUserID(c), service.AvatarUpload{
		Body:        f,
		Filename:    fh.Filename,
		ContentType: contentType,
		Size:        fh.Size,
	})
	if err != nil {
		h.writeError(c, err, "user not found")
		return
	}
	c.JSON(http.StatusOK, userToResponse(*user))
}
