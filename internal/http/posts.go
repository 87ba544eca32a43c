package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"devconnector/internal/domain"
	"devconnector/internal/repository"
)

type postRequest struct {
	Text string `json:"text" binding:"required"`
}

type LikeResponse struct {
	User string `json:"user"`
}

type CommentResponse struct {
	ID     string `json:"id"`
	User   string `json:"user"`
	Text   string `json:"text"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
	Date   string `json:"date"`
}

type PostResponse struct {
	ID       string            `json:"id"`
	User     string            `json:"user"`
	Text     string            `json:"text"`
	Name     string            `json:"name"`
	Avatar   string            `json:"avatar"`
	Likes    []LikeResponse    `json:"likes"`
	Comments []CommentResponse `json:"comments"`
	Date     string            `json:"date"`
}

func (h *Handler) listPosts(c *gin.Context) {
	posts, err := h.posts.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) listMyPosts(c *gin.Context) {
	posts, err := h.posts.ListByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err, "")
		return
	}
	c.JSON(http.StatusOK, postsToResponse(posts))
}

func (h *Handler) getPost(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "post not found")
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) createPost(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	post, err := h.posts.Create(c.Request.Context(), currentUserID(c), req.Text)
	if err != nil {
		h.writeError(c, err, "user not found")
		return
	}
	c.JSON(http.StatusOK, postToResponse(*post))
}

func (h *Handler) deletePost(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		h.writeError(c, err, "post not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "post removed"})
}

func (h *Handler) likePost(c *gin.Context) {
	likes, err := h.posts.Like(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "post not found")
		return
	}
	c.JSON(http.StatusOK, likesToResponse(likes))
}

func (h *Handler) unlikePost(c *gin.Context) {
	likes, err := h.posts.Unlike(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		h.writeError(c, err, "post not found")
		return
	}
	c.JSON(http.StatusOK, likesToResponse(likes))
}

func (h *Handler) addComment(c *gin.Context) {
	var req postRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	comments, err := h.posts.AddComment(c.Request.Context(), currentUserID(c), c.Param("id"), req.Text)
	if err != nil {
		h.writeError(c, err, "post not found")
		return
	}
	c.JSON(http.StatusOK, commentsToResponse(comments))
}

func (h *Handler) removeComment(c *gin.Context) {
	comments, err := h.posts.RemoveComment(c.Request.Context(), currentUserID(c), c.Param("post_id"), c.Param("comment_id"))
	if err != nil {
		notFound := "comment does not exist"
		if errors.Is(err, repository.ErrNotFound) {
			notFound = "post not found"
		}
		h.writeError(c, err, notFound)
		return
	}
	c.JSON(http.StatusOK, commentsToResponse(comments))
}

func postsToResponse(posts []domain.Post) []PostResponse {
	resp := make([]PostResponse, len(posts))
	for i := range posts {
		resp[i] = postToResponse(posts[i])
	}
	return resp
}

func postToResponse(p domain.Post) PostResponse {
	return PostResponse{
		ID:       p.ID,
		User:     p.UserID,
		Text:     p.Text,
		Name:     p.Name,
		Avatar:   p.Avatar,
		Likes:    likesToResponse(p.Likes),
		Comments: commentsToResponse(p.Comments),
		Date:     p.CreatedAt.Format(time.RFC3339),
	}
}

func likesToResponse(likes []domain.Like) []LikeResponse {
	resp := make([]LikeResponse, len(likes))
	for i, l := range likes {
		resp[i] = LikeResponse{User: l.UserID}
	}
	return resp
}

func commentsToResponse(comments []domain.Comment) []CommentResponse {
	resp := make([]CommentResponse, len(comments))
	for i, c := range comments {
		resp[i] = CommentResponse{
			ID:     c.ID,
			User:   c.UserID,
			Text:   c.Text,
			Name:   c.Name,
			Avatar: c.Avatar,
			Date:   c.CreatedAt.Format(time.RFC3339),
		}
	}
	return resp
}
