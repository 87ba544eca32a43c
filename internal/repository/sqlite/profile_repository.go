package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"devconnector/internal/domain"
	"devconnector/internal/repository"
)

const createProfileTables = `
CREATE TABLE IF NOT EXISTS profiles (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL UNIQUE,
	company TEXT NOT NULL DEFAULT '',
	website TEXT NOT NULL DEFAULT '',
	location TEXT NOT NULL DEFAULT '',
	bio TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL,
	github_username TEXT NOT NULL DEFAULT '',
	skills TEXT NOT NULL DEFAULT '[]',
	youtube TEXT NOT NULL DEFAULT '',
	twitter TEXT NOT NULL DEFAULT '',
	facebook TEXT NOT NULL DEFAULT '',
	linkedin TEXT NOT NULL DEFAULT '',
	instagram TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS profile_experience (
	id TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL,
	title TEXT NOT NULL,
	company TEXT NOT NULL,
	location TEXT NOT NULL DEFAULT '',
	from_date DATETIME NOT NULL,
	to_date DATETIME NULL,
	current INTEGER NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	FOREIGN KEY(profile_id) REFERENCES profiles(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_profile_experience_profile_id ON profile_experience(profile_id);

CREATE TABLE IF NOT EXISTS profile_education (
	id TEXT PRIMARY KEY,
	profile_id TEXT NOT NULL,
	school TEXT NOT NULL,
	degree TEXT NOT NULL,
	field_of_study TEXT NOT NULL,
	from_date DATETIME NOT NULL,
	to_date DATETIME NULL,
	current INTEGER NOT NULL DEFAULT 0,
	description TEXT NOT NULL DEFAULT '',
	position INTEGER NOT NULL,
	FOREIGN KEY(profile_id) REFERENCES profiles(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_profile_education_profile_id ON profile_education(profile_id);
`

const selectProfile = `
SELECT p.id, p.user_id, p.company, p.website, p.location, p.bio, p.status, p.github_username,
	p.skills, p.youtube, p.twitter, p.facebook, p.linkedin, p.instagram, p.created_at, p.updated_at,
	u.name, u.avatar
FROM profiles p
LEFT JOIN users u ON u.id = p.user_id`

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) repository.ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createProfileTables); err != nil {
		return fmt.Errorf("create profile tables: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Create(ctx context.Context, profile *domain.Profile) error {
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	skills, err := encodeSkills(profile.Skills)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
INSERT INTO profiles (id, user_id, company, website, location, bio, status, github_username, skills,
	youtube, twitter, facebook, linkedin, instagram, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		profile.ID,
		profile.UserID,
		profile.Company,
		profile.Website,
		profile.Location,
		profile.Bio,
		profile.Status,
		profile.GitHubUsername,
		skills,
		profile.Social.YouTube,
		profile.Social.Twitter,
		profile.Social.Facebook,
		profile.Social.LinkedIn,
		profile.Social.Instagram,
		profile.CreatedAt,
		profile.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("insert profile for %s: %w", profile.UserID, repository.ErrAlreadyExists)
		}
		return fmt.Errorf("insert profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) Update(ctx context.Context, profile *domain.Profile) error {
	profile.UpdatedAt = time.Now().UTC()

	skills, err := encodeSkills(profile.Skills)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
UPDATE profiles
SET company=?, website=?, location=?, bio=?, status=?, github_username=?, skills=?,
	youtube=?, twitter=?, facebook=?, linkedin=?, instagram=?, updated_at=?
WHERE user_id=?`,
		profile.Company,
		profile.Website,
		profile.Location,
		profile.Bio,
		profile.Status,
		profile.GitHubUsername,
		skills,
		profile.Social.YouTube,
		profile.Social.Twitter,
		profile.Social.Facebook,
		profile.Social.LinkedIn,
		profile.Social.Instagram,
		profile.UpdatedAt,
		profile.UserID,
	)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return expectAffected(res, "profile")
}

func (r *ProfileRepository) GetByUser(ctx context.Context, userID string) (*domain.Profile, error) {
	row := r.db.QueryRowContext(ctx, selectProfile+` WHERE p.user_id = ?`, userID)

	profile, err := scanProfile(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("profile of %s: %w", userID, repository.ErrNotFound)
		}
		return nil, err
	}
	if err := r.loadChildren(ctx, profile); err != nil {
		return nil, err
	}
	return profile, nil
}

func (r *ProfileRepository) List(ctx context.Context) ([]domain.Profile, error) {
	rows, err := r.db.QueryContext(ctx, selectProfile+` ORDER BY p.created_at ASC, p.rowid ASC`)
	if err != nil {
		return nil, fmt.Errorf("query profiles: %w", err)
	}

	var profiles []domain.Profile
	for rows.Next() {
		profile, err := scanProfile(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		profiles = append(profiles, *profile)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate profiles: %w", err)
	}
	rows.Close()

	for i := range profiles {
		if err := r.loadChildren(ctx, &profiles[i]); err != nil {
			return nil, err
		}
	}
	return profiles, nil
}

func (r *ProfileRepository) DeleteByUser(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM profiles WHERE user_id=?`, userID); err != nil {
		return fmt.Errorf("delete profile: %w", err)
	}
	return nil
}

func (r *ProfileRepository) ReplaceExperience(ctx context.Context, profileID string, items []domain.Experience) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM profile_experience WHERE profile_id=?`, profileID); err != nil {
		return fmt.Errorf("delete experience: %w", err)
	}
	for i, e := range items {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO profile_experience (id, profile_id, title, company, location, from_date, to_date, current, description, position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, profileID, e.Title, e.Company, e.Location, e.From.UTC(), nullTime(e.To), e.Current, e.Description, i,
		); err != nil {
			return fmt.Errorf("insert experience: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *ProfileRepository) ReplaceEducation(ctx context.Context, profileID string, items []domain.Education) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM profile_education WHERE profile_id=?`, profileID); err != nil {
		return fmt.Errorf("delete education: %w", err)
	}
	for i, e := range items {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO profile_education (id, profile_id, school, degree, field_of_study, from_date, to_date, current, description, position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			e.ID, profileID, e.School, e.Degree, e.FieldOfStudy, e.From.UTC(), nullTime(e.To), e.Current, e.Description, i,
		); err != nil {
			return fmt.Errorf("insert education: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *ProfileRepository) loadChildren(ctx context.Context, profile *domain.Profile) error {
	experience, err := r.listExperience(ctx, profile.ID)
	if err != nil {
		return err
	}
	education, err := r.listEducation(ctx, profile.ID)
	if err != nil {
		return err
	}
	profile.Experience = experience
	profile.Education = education
	return nil
}

func (r *ProfileRepository) listExperience(ctx context.Context, profileID string) ([]domain.Experience, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, title, company, location, from_date, to_date, current, description
FROM profile_experience
WHERE profile_id=?
ORDER BY position ASC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query experience: %w", err)
	}
	defer rows.Close()

	items := []domain.Experience{}
	for rows.Next() {
		var (
			e  domain.Experience
			to sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.Title, &e.Company, &e.Location, &e.From, &to, &e.Current, &e.Description); err != nil {
			return nil, fmt.Errorf("scan experience: %w", err)
		}
		e.To = timePtr(to)
		items = append(items, e)
	}
	return items, rows.Err()
}

func (r *ProfileRepository) listEducation(ctx context.Context, profileID string) ([]domain.Education, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, school, degree, field_of_study, from_date, to_date, current, description
FROM profile_education
WHERE profile_id=?
ORDER BY position ASC`, profileID)
	if err != nil {
		return nil, fmt.Errorf("query education: %w", err)
	}
	defer rows.Close()

	items := []domain.Education{}
	for rows.Next() {
		var (
			e  domain.Education
			to sql.NullTime
		)
		if err := rows.Scan(&e.ID, &e.School, &e.Degree, &e.FieldOfStudy, &e.From, &to, &e.Current, &e.Description); err != nil {
			return nil, fmt.Errorf("scan education: %w", err)
		}
		e.To = timePtr(to)
		items = append(items, e)
	}
	return items, rows.Err()
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var (
		p          domain.Profile
		skills     string
		ownerName  sql.NullString
		ownerImage sql.NullString
	)
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Company,
		&p.Website,
		&p.Location,
		&p.Bio,
		&p.Status,
		&p.GitHubUsername,
		&skills,
		&p.Social.YouTube,
		&p.Social.Twitter,
		&p.Social.Facebook,
		&p.Social.LinkedIn,
		&p.Social.Instagram,
		&p.CreatedAt,
		&p.UpdatedAt,
		&ownerName,
		&ownerImage,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan profile: %w", err)
	}

	if err := json.Unmarshal([]byte(skills), &p.Skills); err != nil {
		return nil, fmt.Errorf("decode skills: %w", err)
	}
	if ownerName.Valid {
		p.Owner = &domain.User{ID: p.UserID, Name: ownerName.String, Avatar: ownerImage.String}
	}
	return &p, nil
}

func encodeSkills(skills []string) (string, error) {
	if skills == nil {
		skills = []string{}
	}
	b, err := json.Marshal(skills)
	if err != nil {
		return "", fmt.Errorf("encode skills: %w", err)
	}
	return string(b), nil
}
