package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"devconnector/internal/auth"
	"devconnector/internal/service"
)

// TokenService issues and verifies identity tokens.
type TokenService interface {
	Issue(userID string) (string, error)
	Verify(raw string) (auth.Identity, error)
}

// Options configures a Handler.
type Options struct {
	Users          service.UserService
	Profiles       service.ProfileService
	Posts          service.PostService
	Tokens         TokenService
	Logger         *logrus.Logger
	RateLimit      RateLimitConfig
	AllowedOrigins []string
}

// Handler wires HTTP routes to domain services.
type Handler struct {
	users    service.UserService
	profiles service.ProfileService
	posts    service.PostService
	tokens   TokenService
	logger   *logrus.Logger

	rateLimit      RateLimitConfig
	allowedOrigins []string
}

func NewHandler(opts Options) *Handler {
	useJSONFieldNames()
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	return &Handler{
		users:          opts.Users,
		profiles:       opts.Profiles,
		posts:          opts.Posts,
		tokens:         opts.Tokens,
		logger:         opts.Logger,
		rateLimit:      opts.RateLimit,
		allowedOrigins: opts.AllowedOrigins,
	}
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.Use(requestLogger(h.logger))
	router.Use(corsMiddleware(h.allowedOrigins))

	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "App running")
	})

	limited := rateLimitPerIP(h.rateLimit)
	authed := h.requireAuth()

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"ok": "ok"})
		})

		api.POST("/users", limited, h.register)
		api.PUT("/users/avatar", authed, h.uploadAvatar)

		api.POST("/auth", limited, h.login)
		api.GET("/auth", authed, h.me)

		profile := api.Group("/profile")
		{
			profile.GET("", h.listProfiles)
			profile.GET("/user/:user_id", h.getProfileByUser)
			profile.GET("/me", authed, h.myProfile)
			profile.POST("", authed, h.upsertProfile)
			profile.DELETE("", authed, h.deleteAccount)
			profile.PUT("/experience", authed, h.addExperience)
			profile.DELETE("/experience/:exp_id", authed, h.removeExperience)
			profile.PUT("/education", authed, h.addEducation)
			profile.DELETE("/education/:edu_id", authed, h.removeEducation)
		}

		posts := api.Group("/posts", authed)
		{
			posts.GET("", h.listPosts)
			posts.GET("/my", h.listMyPosts)
			posts.GET("/:id", h.getPost)
			posts.POST("", h.createPost)
			posts.DELETE("/:id", h.deletePost)
			posts.PUT("/like/:id", h.likePost)
			posts.PUT("/unlike/:id", h.unlikePost)
			posts.POST("/comment/:id", h.addComment)
			posts.DELETE("/comment/:post_id/:comment_id", h.removeComment)
		}
	}
}
