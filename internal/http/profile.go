package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"devconnector/internal/domain"
	"devconnector/internal/service"
)

const dateLayout = "2006-01-02"

type profileRequest struct {
	Company        string `json:"company"`
	Website        string `json:"website"`
	Location       string `json:"location"`
	Bio            string `json:"bio"`
	Status         string `json:"status" binding:"required"`
	GitHubUsername string `json:"githubusername"`
	Skills         string `json:"skills" binding:"required"`
	YouTube        string `json:"youtube"`
	Twitter        string `json:"twitter"`
	Facebook       string `json:"facebook"`
	LinkedIn       string `json:"linkedin"`
	Instagram      string `json:"instagram"`
}

type experienceRequest struct {
	Title       string `json:"title" binding:"required"`
	Company     string `json:"company" binding:"required"`
	Location    string `json:"location"`
	From        string `json:"from" binding:"required,datetime=2006-01-02"`
	To          string `json:"to" binding:"omitempty,datetime=2006-01-02"`
	Current     bool   `json:"current"`
	Description string `json:"description"`
}

type educationRequest struct {
	School       string `json:"school" binding:"required"`
	Degree       string `json:"degree" binding:"required"`
	FieldOfStudy string `json:"fieldofstudy" binding:"required"`
	From         string `json:"from" binding:"required,datetime=2006-01-02"`
	To           string `json:"to" binding:"omitempty,datetime=2006-01-02"`
	Current      bool   `json:"current"`
	Description  string `json:"description"`
}

type ProfileOwnerResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

type SocialResponse struct {
	YouTube   string `json:"youtube,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	Facebook  string `json:"facebook,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
	Instagram string `json:"instagram,omitempty"`
}

type ExperienceResponse struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Company     string  `json:"company"`
	Location    string  `json:"location,omitempty"`
	From        string  `json:"from"`
	To          *string `json:"to,omitempty"`
	Current     bool    `json:"current"`
	Description string  `json:"description,omitempty"`
}

type EducationResponse struct {
	ID           string  `json:"id"`
	School       string  `json:"school"`
	Degree       string  `json:"degree"`
	FieldOfStudy string  `json:"fieldofstudy"`
	From         string  `json:"from"`
	To           *string `json:"to,omitempty"`
	Current      bool    `json:"current"`
	Description  string  `json:"description,omitempty"`
}

type ProfileResponse struct {
	ID             string               `json:"id"`
	User           ProfileOwnerResponse `json:"user"`
	Company        string               `json:"company,omitempty"`
	Website        string               `json:"website,omitempty"`
	Location       string               `json:"location,omitempty"`
	Bio            string               `json:"bio,omitempty"`
	Status         string               `json:"status"`
	GitHubUsername string               `json:"githubusername,omitempty"`
	Skills         []string             `json:"skills"`
	Social         SocialResponse       `json:"social"`
	Experience     []ExperienceResponse `json:"experience"`
	Education      []EducationResponse  `json:"education"`
	Date           string               `json:"date"`
}

func (h *Handler) myProfile(c *gin.Context) {
	profile, err := h.profiles.GetMine(c.Request.Context(), currentUserID(c))
	if err != nil {
		h.writeError(c, err, "profile not found")
		return
	}
	c.JSON(http.StatusOK, profileToResponse(*profile))
}

func (h *Handler) listProfiles(c *gin.Context) {
	profiles, err := h.profiles.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err, "")
		return
	}

	resp := make([]ProfileResponse, len(profiles))
	for i := range profiles {
		resp[i] = profileToResponse(profiles[i])
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) getProfileByUser(c *gin.Context) {
	profile, err := h.profiles.GetByUser(c.Request.Context(), c.Param("user_id"))
	if err != nil {
		h.writeError(c, err, "profile not found")
		return
	}
	c.JSON(http.StatusOK, profileToResponse(*profile))
}

func (h *Handler) upsertProfile(c *gin.Context) {
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}

	profile, err := h.profiles.Upsert(c.Request.Context(), currentUserID(c), service.ProfileInput{
		Company:        req.Company,
		Website:        req.Website,
		Location:       req.Location,
		Bio:            req.Bio,
		Status:         req.Status,
		GitHubUsername: req.GitHubUsername,
		Skills:         req.Skills,
		Social: domain.Social{
			YouTube:   req.YouTube,
			Twitter:   req.Twitter,
			Facebook:  req.Facebook,
			LinkedIn:  req.LinkedIn,
			Instagram: req.Instagram,
		},
	})
	if err != nil {
		h.writeError(c, err, "profile not found")
		return
	}
	c.JSON(http.StatusOK, profileToResponse(*profile))
}

func (h *Handler) deleteAccount(c *gin.Context) {
	if err := h.profiles.DeleteAccount(c.Request.Context(), currentUserID(c)); err != nil {
		h.writeError(c, err, "user not found")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user deleted"})
}

func (h *Handler) addExperience(c *gin.Context) {
	var req experienceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	from, to := parseDateRange(req.From, req.To)

	profile, err := h.profiles.AddExperience(c.Request.Context(), currentUserID(c), service.ExperienceInput{
		Title:       req.Title,
		Company:     req.Company,
		Location:    req.Location,
		From:        from,
		To:          to,
		Current:     req.Current,
		Description: req.Description,
	})
	if err != nil {
		h.writeError(c, err, "profile not found")
		return
	}
	c.JSON(http.StatusOK, profileToResponse(*profile))
}

func (h *Handler) removeExperience(c *gin.Context) {
	profile, err := h.profiles.RemoveExperience(c.Request.Context(), currentUserID(c), c.Param("exp_id"))
	if err != nil {
		h.writeError(c, err, "experience not found")
		return
	}
	c.JSON(http.StatusOK, profileToResponse(*profile))
}

func (h *Handler) addEducation(c *gin.Context) {
	var req educationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeBindError(c, err)
		return
	}
	from, to := parseDateRange(req.From, req.To)

	profile, err := h.profiles.AddEducation(c.Request.Context(), currentUserID(c), service.EducationInput{
		School:       req.School,
		Degree:       req.Degree,
		FieldOfStudy: req.FieldOfStudy,
		From:         from,
		To:           to,
		Current:      req.Current,
		Description:  req.Description,
	})
	if err != nil {
		h.writeError(c, err, "profile not found")
		return
	}
	c.JSON(http.StatusOK, profileToResponse(*profile))
}

func (h *Handler) removeEducation(c *gin.Context) {
	profile, err := h.profiles.RemoveEducation(c.Request.Context(), currentUserID(c), c.Param("edu_id"))
	if err != nil {
		h.writeError(c, err, "education not found")
		return
	}
	c.JSON(http.StatusOK, profileToResponse(*profile))
}

// parseDateRange expects values already checked by the datetime validator.
func parseDateRange(from, to string) (time.Time, *time.Time) {
	start, _ := time.Parse(dateLayout, from)
	if to == "" {
		return start, nil
	}
	end, _ := time.Parse(dateLayout, to)
	return start, &end
}

func formatDate(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	v := t.Format(dateLayout)
	return &v
}

func profileToResponse(p domain.Profile) ProfileResponse {
	resp := ProfileResponse{
		ID:             p.ID,
		User:           ProfileOwnerResponse{ID: p.UserID},
		Company:        p.Company,
		Website:        p.Website,
		Location:       p.Location,
		Bio:            p.Bio,
		Status:         p.Status,
		GitHubUsername: p.GitHubUsername,
		Skills:         p.Skills,
		Social: SocialResponse{
			YouTube:   p.Social.YouTube,
			Twitter:   p.Social.Twitter,
			Facebook:  p.Social.Facebook,
			LinkedIn:  p.Social.LinkedIn,
			Instagram: p.Social.Instagram,
		},
		Experience: make([]ExperienceResponse, len(p.Experience)),
		Education:  make([]EducationResponse, len(p.Education)),
		Date:       p.CreatedAt.Format(time.RFC3339),
	}
	if resp.Skills == nil {
		resp.Skills = []string{}
	}
	if p.Owner != nil {
		resp.User.Name = p.Owner.Name
		resp.User.Avatar = p.Owner.Avatar
	}

	for i, e := range p.Experience {
		resp.Experience[i] = ExperienceResponse{
			ID:          e.ID,
			Title:       e.Title,
			Company:     e.Company,
			Location:    e.Location,
			From:        e.From.Format(dateLayout),
			To:          formatDate(e.To),
			Current:     e.Current,
			Description: e.Description,
		}
	}
	for i, e := range p.Education {
		resp.Education[i] = EducationResponse{
			ID:           e.ID,
			School:       e.School,
			Degree:       e.Degree,
			FieldOfStudy: e.FieldOfStudy,
			From:         e.From.Format(dateLayout),
			To:           formatDate(e.To),
			Current:      e.Current,
			Description:  e.Description,
		}
	}
	return resp
}
