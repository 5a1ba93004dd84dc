package data

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"dearcard.kr/internal/validator"
)

// Comment is one guestbook entry. Guests submit them without logging in; the
// optional password lets the author delete their own entry later.
type Comment struct {
	ID        int64     `json:"id"`
	PageID    string    `json:"page_id"`
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	Password  password  `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidateComment checks a guestbook submission before it is stored.
func ValidateComment(v *validator.Validator, comment *Comment) {
	v.Check(comment.PageID != "", "page_id", "must be provided")
	v.Check(comment.Name != "", "name", "must be provided")
	v.Check(len(comment.Name) <= 50, "name", "must not be more than 50 characters long")
	v.Check(comment.Content != "", "content", "must be provided")
	v.Check(len(comment.Content) <= 1000, "content", "must not be more than 1000 characters long")
}

// CommentStore is the subset of comments_framer operations the handlers need.
type CommentStore interface {
	GetAllForPage(pageID string, filters Filters) ([]*Comment, Metadata, error)
	Insert(comment *Comment) error
	Get(id int64) (*Comment, error)
	Delete(id int64) error
}

// CommentModel is the Postgres implementation of CommentStore.
type CommentModel struct {
	DB *sql.DB
}

// GetAllForPage returns one page of a page's guestbook, newest first.
func (m CommentModel) GetAllForPage(pageID string, filters Filters) ([]*Comment, Metadata, error) {
	query := `
SELECT count(*) OVER(), id, page_id, name, content, password, created_at
FROM comments_framer
WHERE page_id = $1
ORDER BY created_at DESC, id DESC
LIMIT $2 OFFSET $3`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, pageID, filters.limit(), filters.offset())
	if err != nil {
		return nil, Metadata{}, err
	}
	defer rows.Close()

	totalRecords := 0
	var comments []*Comment
	for rows.Next() {
		var comment Comment
		err := rows.Scan(
			&totalRecords,
			&comment.ID,
			&comment.PageID,
			&comment.Name,
			&comment.Content,
			&comment.Password.stored,
			&comment.CreatedAt,
		)
		if err != nil {
			return nil, Metadata{}, err
		}
		comments = append(comments, &comment)
	}
	if err := rows.Err(); err != nil {
		return nil, Metadata{}, err
	}

	metadata := calculateMetadata(totalRecords, filters.Page, filters.PageSize)
	return comments, metadata, nil
}

// Insert stores a guestbook entry.
func (m CommentModel) Insert(comment *Comment) error {
	query := `
INSERT INTO comments_framer (page_id, name, content, password)
VALUES ($1, $2, $3, $4)
RETURNING id, created_at`

	args := []interface{}{comment.PageID, comment.Name, comment.Content, comment.Password.stored}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, args...).Scan(&comment.ID, &comment.CreatedAt)
}

// Get looks up a single guestbook entry.
func (m CommentModel) Get(id int64) (*Comment, error) {
	query := `
SELECT id, page_id, name, content, password, created_at
FROM comments_framer
WHERE id = $1`

	var comment Comment

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, id).Scan(
		&comment.ID,
		&comment.PageID,
		&comment.Name,
		&comment.Content,
		&comment.Password.stored,
		&comment.CreatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &comment, nil
}

// Delete removes a guestbook entry.
func (m CommentModel) Delete(id int64) error {
	query := `
DELETE FROM comments_framer
WHERE id = $1`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}
