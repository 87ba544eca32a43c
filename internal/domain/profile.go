package domain

import "time"

// Profile is the public résumé of a user. Each user has at most one.
type Profile struct {
	ID             string
	UserID         string
	Company        string
	Website        string
	Location       string
	Bio            string
	Status         string
	GitHubUsername string
	Skills         []string
	Social         Social
	Experience     []Experience
	Education      []Education
	CreatedAt      time.Time
	UpdatedAt      time.Time

	// Owner is filled on reads with the user's public fields.
	Owner *User
}

type Social struct {
	YouTube   string
	Twitter   string
	Facebook  string
	LinkedIn  string
	Instagram string
}

type Experience struct {
	ID          string
	Title       string
	Company     string
	Location    string
	From        time.Time
	To          *time.Time
	Current     bool
	Description string
}

type Education struct {
	ID           string
	School       string
	Degree       string
	FieldOfStudy string
	From         time.Time
	To           *time.Time
	Current      bool
	Description  string
}

func (p *Profile) AddExperience(e Experience) {
	p.Experience = prepend(p.Experience, e)
}

func (p *Profile) RemoveExperience(id string) error {
	items, ok := removeFirst(p.Experience, func(e Experience) bool { return e.ID == id })
	if !ok {
		return ErrNotFound
	}
	p.Experience = items
	return nil
}

func (p *Profile) AddEducation(e Education) {
	p.Education = prepend(p.Education, e)
}

// RemoveEducation removes the education entry whose own id equals id.
func (p *Profile) RemoveEducation(id string) error {
	items, ok := removeFirst(p.Education, func(e Education) bool { return e.ID == id })
	if !ok {
		return ErrNotFound
	}
	p.Education = items
	return nil
}
