package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"devconnector/internal/domain"
	"devconnector/internal/repository"
)

// posts.user_id has no foreign key: deleting an account leaves its posts.
const createPostTables = `
CREATE TABLE IF NOT EXISTS posts (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	text TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	avatar TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_posts_user_id ON posts(user_id);

CREATE TABLE IF NOT EXISTS post_likes (
	post_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	position INTEGER NOT NULL,
	PRIMARY KEY (post_id, user_id),
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS post_comments (
	id TEXT PRIMARY KEY,
	post_id TEXT NOT NULL,
	user_id TEXT NOT NULL,
	text TEXT NOT NULL,
	name TEXT NOT NULL DEFAULT '',
	avatar TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	position INTEGER NOT NULL,
	FOREIGN KEY(post_id) REFERENCES posts(id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_post_comments_post_id ON post_comments(post_id);
`

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) repository.PostRepository {
	return &PostRepository{db: db}
}

func (r *PostRepository) Init(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createPostTables); err != nil {
		return fmt.Errorf("create post tables: %w", err)
	}
	return nil
}

func (r *PostRepository) Create(ctx context.Context, post *domain.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO posts (id, user_id, text, name, avatar, created_at)
VALUES (?, ?, ?, ?, ?, ?)`,
		post.ID,
		post.UserID,
		post.Text,
		post.Name,
		post.Avatar,
		post.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert post: %w", err)
	}
	return nil
}

func (r *PostRepository) Get(ctx context.Context, id string) (*domain.Post, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, user_id, text, name, avatar, created_at
FROM posts
WHERE id = ?`, id)

	var post domain.Post
	if err := scanPost(row, &post); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("post %s: %w", id, repository.ErrNotFound)
		}
		return nil, fmt.Errorf("scan post: %w", err)
	}
	if err := r.loadChildren(ctx, &post); err != nil {
		return nil, err
	}
	return &post, nil
}

func (r *PostRepository) List(ctx context.Context, userID string) ([]domain.Post, error) {
	query := `
SELECT id, user_id, text, name, avatar, created_at
FROM posts`
	var args []any
	if userID != "" {
		query += ` WHERE user_id = ?`
		args = append(args, userID)
	}
	query += ` ORDER BY created_at DESC, rowid DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query posts: %w", err)
	}

	var posts []domain.Post
	for rows.Next() {
		var post domain.Post
		if err := scanPost(rows, &post); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan post: %w", err)
		}
		posts = append(posts, post)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate posts: %w", err)
	}
	// release the only connection before loading children
	rows.Close()

	for i := range posts {
		if err := r.loadChildren(ctx, &posts[i]); err != nil {
			return nil, err
		}
	}
	return posts, nil
}

func (r *PostRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM posts WHERE id=?`, id)
	if err != nil {
		return fmt.Errorf("delete post: %w", err)
	}
	return expectAffected(res, "post")
}

func (r *PostRepository) ReplaceLikes(ctx context.Context, postID string, likes []domain.Like) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() // safe no-op on commit

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_likes WHERE post_id=?`, postID); err != nil {
		return fmt.Errorf("delete likes: %w", err)
	}
	for i, like := range likes {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO post_likes (post_id, user_id, position)
VALUES (?, ?, ?)`,
			postID, like.UserID, i,
		); err != nil {
			return fmt.Errorf("insert like: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *PostRepository) ReplaceComments(ctx context.Context, postID string, comments []domain.Comment) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM post_comments WHERE post_id=?`, postID); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	for i, c := range comments {
		if c.CreatedAt.IsZero() {
			c.CreatedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `
INSERT INTO post_comments (id, post_id, user_id, text, name, avatar, created_at, position)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, postID, c.UserID, c.Text, c.Name, c.Avatar, c.CreatedAt, i,
		); err != nil {
			return fmt.Errorf("insert comment: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (r *PostRepository) loadChildren(ctx context.Context, post *domain.Post) error {
	likes, err := r.listLikes(ctx, post.ID)
	if err != nil {
		return err
	}
	comments, err := r.listComments(ctx, post.ID)
	if err != nil {
		return err
	}
	post.Likes = likes
	post.Comments = comments
	return nil
}

func (r *PostRepository) listLikes(ctx context.Context, postID string) ([]domain.Like, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT user_id
FROM post_likes
WHERE post_id=?
ORDER BY position ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("query likes: %w", err)
	}
	defer rows.Close()

	likes := []domain.Like{}
	for rows.Next() {
		var like domain.Like
		if err := rows.Scan(&like.UserID); err != nil {
			return nil, fmt.Errorf("scan like: %w", err)
		}
		likes = append(likes, like)
	}
	return likes, rows.Err()
}

func (r *PostRepository) listComments(ctx context.Context, postID string) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, user_id, text, name, avatar, created_at
FROM post_comments
WHERE post_id=?
ORDER BY position ASC`, postID)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	comments := []domain.Comment{}
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.UserID, &c.Text, &c.Name, &c.Avatar, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	return comments, rows.Err()
}

func scanPost(row rowScanner, post *domain.Post) error {
	return row.Scan(
		&post.ID,
		&post.UserID,
		&post.Text,
		&post.Name,
		&post.Avatar,
		&post.CreatedAt,
	)
}
