package domain

import "time"

// Post is a short text authored by a user. Name and Avatar are a snapshot of
// the author taken when the post was created.
type Post struct {
	ID        string
	UserID    string
	Text      string
	Name      string
	Avatar    string
	Likes     []Like
	Comments  []Comment
	CreatedAt time.Time
}

// Like records that a user liked a post. At most one per (post, user).
type Like struct {
	UserID string
}

// Comment is an immutable reply on a post; only its author may remove it.
type Comment struct {
	ID        string
	UserID    string
	Text      string
	Name      string
	Avatar    string
	CreatedAt time.Time
}

// LikedBy reports whether userID has a like on the post.
func (p *Post) LikedBy(userID string) bool {
	for _, like := range p.Likes {
		if like.UserID == userID {
			return true
		}
	}
	return false
}

// AddLike prepends a like from userID.
func (p *Post) AddLike(userID string) error {
	if p.LikedBy(userID) {
		return ErrAlreadyLiked
	}
	p.Likes = prepend(p.Likes, Like{UserID: userID})
	return nil
}

// RemoveLike drops the like given by userID.
func (p *Post) RemoveLike(userID string) error {
	likes, ok := removeFirst(p.Likes, func(l Like) bool { return l.UserID == userID })
	if !ok {
		return ErrNotLiked
	}
	p.Likes = likes
	return nil
}

// AddComment prepends c to the comment list.
func (p *Post) AddComment(c Comment) {
	p.Comments = prepend(p.Comments, c)
}

// RemoveComment deletes the comment with commentID on behalf of userID.
func (p *Post) RemoveComment(commentID, userID string) error {
	var found *Comment
	for i := range p.Comments {
		if p.Comments[i].ID == commentID {
			found = &p.Comments[i]
			break
		}
	}
	if found == nil {
		return ErrNotFound
	}
	if found.UserID != userID {
		return ErrForbidden
	}
	p.Comments, _ = removeFirst(p.Comments, func(c Comment) bool { return c.ID == commentID })
	return nil
}
