package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"devconnector/internal/domain"
	"devconnector/internal/repository"
	"devconnector/internal/storage"
)

// ProfileInput holds the editable profile fields. Empty strings keep the
// stored value; Skills is a comma separated list.
type ProfileInput struct {
	Company        string
	Website        string
	Location       string
	Bio            string
	Status         string
	GitHubUsername string
	Skills         string
	Social         domain.Social
}

type ExperienceInput struct {
	Title       string
	Company     string
	Location    string
	From        time.Time
	To          *time.Time
	Current     bool
	Description string
}

type EducationInput struct {
	School       string
	Degree       string
	FieldOfStudy string
	From         time.Time
	To           *time.Time
	Current      bool
	Description  string
}

// ProfileService manages the acting user's profile and its sub-collections.
// Every mutation is scoped to the profile owned by userID.
type ProfileService interface {
	GetMine(ctx context.Context, userID string) (*domain.Profile, error)
	GetByUser(ctx context.Context, userID string) (*domain.Profile, error)
	List(ctx context.Context) ([]domain.Profile, error)
	Upsert(ctx context.Context, userID string, in ProfileInput) (*domain.Profile, error)
	DeleteAccount(ctx context.Context, userID string) error
	AddExperience(ctx context.Context, userID string, in ExperienceInput) (*domain.Profile, error)
	RemoveExperience(ctx context.Context, userID, experienceID string) (*domain.Profile, error)
	AddEducation(ctx context.Context, userID string, in EducationInput) (*domain.Profile, error)
	RemoveEducation(ctx context.Context, userID, educationID string) (*domain.Profile, error)
}

type profileService struct {
	profiles  repository.ProfileRepository
	users     repository.UserRepository
	media     storage.Service
	keyPrefix string
	logger    *logrus.Logger
}

func NewProfileService(profiles repository.ProfileRepository, users repository.UserRepository, media storage.Service, keyPrefix string, logger *logrus.Logger) ProfileService {
	if logger == nil {
		logger = logrus.New()
	}
	return &profileService{
		profiles:  profiles,
		users:     users,
		media:     media,
		keyPrefix: strings.Trim(keyPrefix, "/"),
		logger:    logger,
	}
}

func (s *profileService) GetMine(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.load(ctx, userID)
}

func (s *profileService) GetByUser(ctx context.Context, userID string) (*domain.Profile, error) {
	return s.load(ctx, userID)
}

func (s *profileService) List(ctx context.Context) ([]domain.Profile, error) {
	return s.profiles.List(ctx)
}

func (s *profileService) Upsert(ctx context.Context, userID string, in ProfileInput) (*domain.Profile, error) {
	status := strings.TrimSpace(in.Status)
	skills := splitSkills(in.Skills)
	if status == "" {
		return nil, invalidInput("status", "status is required")
	}
	if len(skills) == 0 {
		return nil, invalidInput("skills", "skills are required")
	}

	existing, err := s.profiles.GetByUser(ctx, userID)
	switch {
	case err == nil:
		applyProfileInput(existing, in, status, skills)
		if err := s.profiles.Update(ctx, existing); err != nil {
			return nil, err
		}
	case errors.Is(err, repository.ErrNotFound):
		profile := &domain.Profile{ID: uuid.NewString(), UserID: userID}
		applyProfileInput(profile, in, status, skills)
		if err := s.profiles.Create(ctx, profile); err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	return s.load(ctx, userID)
}

// DeleteAccount removes the profile, then the user record, then any stored
// avatars. The steps are independent; posts authored by the user are kept.
func (s *profileService) DeleteAccount(ctx context.Context, userID string) error {
	if err := s.profiles.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	if err := s.users.Delete(ctx, userID); err != nil {
		return err
	}
	if s.media != nil {
		if err := s.media.DeletePrefix(ctx, avatarPrefix(s.keyPrefix, userID)); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Warn("delete avatars")
		}
	}
	return nil
}

func (s *profileService) AddExperience(ctx context.Context, userID string, in ExperienceInput) (*domain.Profile, error) {
	if err := requireFields([][2]string{{"title", in.Title}, {"company", in.Company}}); err != nil {
		return nil, err
	}

	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.AddExperience(domain.Experience{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Company:     strings.TrimSpace(in.Company),
		Location:    strings.TrimSpace(in.Location),
		From:        in.From,
		To:          in.To,
		Current:     in.Current,
		Description: in.Description,
	})
	if err := s.profiles.ReplaceExperience(ctx, profile.ID, profile.Experience); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) RemoveExperience(ctx context.Context, userID, experienceID string) (*domain.Profile, error) {
	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := profile.RemoveExperience(experienceID); err != nil {
		return nil, fmt.Errorf("experience %s: %w", experienceID, err)
	}
	if err := s.profiles.ReplaceExperience(ctx, profile.ID, profile.Experience); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) AddEducation(ctx context.Context, userID string, in EducationInput) (*domain.Profile, error) {
	if err := requireFields([][2]string{{"school", in.School}, {"degree", in.Degree}, {"fieldofstudy", in.FieldOfStudy}}); err != nil {
		return nil, err
	}

	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile.AddEducation(domain.Education{
		ID:           uuid.NewString(),
		School:       strings.TrimSpace(in.School),
		Degree:       strings.TrimSpace(in.Degree),
		FieldOfStudy: strings.TrimSpace(in.FieldOfStudy),
		From:         in.From,
		To:           in.To,
		Current:      in.Current,
		Description:  in.Description,
	})
	if err := s.profiles.ReplaceEducation(ctx, profile.ID, profile.Education); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) RemoveEducation(ctx context.Context, userID, educationID string) (*domain.Profile, error) {
	profile, err := s.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := profile.RemoveEducation(educationID); err != nil {
		return nil, fmt.Errorf("education %s: %w", educationID, err)
	}
	if err := s.profiles.ReplaceEducation(ctx, profile.ID, profile.Education); err != nil {
		return nil, err
	}
	return profile, nil
}

func (s *profileService) load(ctx context.Context, userID string) (*domain.Profile, error) {
	profile, err := s.profiles.GetByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, domain.ErrNoProfile
		}
		return nil, err
	}
	return profile, nil
}

// applyProfileInput overwrites only the fields that were supplied; the social
// links are always replaced as a whole.
func applyProfileInput(p *domain.Profile, in ProfileInput, status string, skills []string) {
	setIfPresent(&p.Company, in.Company)
	setIfPresent(&p.Website, in.Website)
	setIfPresent(&p.Location, in.Location)
	setIfPresent(&p.Bio, in.Bio)
	setIfPresent(&p.GitHubUsername, in.GitHubUsername)
	p.Status = status
	p.Skills = skills
	p.Social = domain.Social{
		YouTube:   strings.TrimSpace(in.Social.YouTube),
		Twitter:   strings.TrimSpace(in.Social.Twitter),
		Facebook:  strings.TrimSpace(in.Social.Facebook),
		LinkedIn:  strings.TrimSpace(in.Social.LinkedIn),
		Instagram: strings.TrimSpace(in.Social.Instagram),
	}
}

// requireFields rejects the first (name, value) pair that is blank once trimmed.
func requireFields(fields [][2]string) error {
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			return invalidInput(f[0], f[0]+" is required")
		}
	}
	return nil
}

func setIfPresent(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func splitSkills(raw string) []string {
	var skills []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}
