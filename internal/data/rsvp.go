package data

import (
	"context"
	"database/sql"
	"time"

	"dearcard.kr/internal/validator"
)

// RSVP is one guest's attendance response, submitted without authentication
// from the public invitation page.
type RSVP struct {
	ID           int64     `json:"id"`
	PageID       string    `json:"page_id"`
	Name         string    `json:"name"`
	RelationType string    `json:"relation_type"`
	GuestCount   int       `json:"guest_count"`
	Phone        string    `json:"phone,omitempty"`
	Message      string    `json:"message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidateRSVP checks a guest submission before it is stored.
func ValidateRSVP(v *validator.Validator, rsvp *RSVP) {
	v.Check(rsvp.PageID != "", "page_id", "must be provided")
	v.Check(rsvp.Name != "", "name", "must be provided")
	v.Check(len(rsvp.Name) <= 100, "name", "must not be more than 100 characters long")
	v.Check(rsvp.RelationType != "", "relation_type", "must be provided")
	v.Check(rsvp.GuestCount >= 1, "guest_count", "must be at least 1")
	v.Check(rsvp.GuestCount <= 20, "guest_count", "must not be more than 20")
}

// RSVPStore is the subset of rsvp_responses operations the handlers need.
type RSVPStore interface {
	Insert(rsvp *RSVP) error
	GetAllForPage(pageID string) ([]*RSVP, error)
	Delete(id int64, pageID string) error
}

// RSVPModel is the Postgres implementation of RSVPStore.
type RSVPModel struct {
	DB *sql.DB
}

// Insert stores a guest response.
func (m RSVPModel) Insert(rsvp *RSVP) error {
	query := `
INSERT INTO rsvp_responses (page_id, name, relation_type, guest_count, phone, message)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`

	args := []interface{}{rsvp.PageID, rsvp.Name, rsvp.RelationType, rsvp.GuestCount, rsvp.Phone, rsvp.Message}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, args...).Scan(&rsvp.ID, &rsvp.CreatedAt)
}

// GetAllForPage returns every response for a page, newest first.
func (m RSVPModel) GetAllForPage(pageID string) ([]*RSVP, error) {
	query := `
SELECT id, page_id, name, relation_type, guest_count, phone, message, created_at
FROM rsvp_responses
WHERE page_id = $1
ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []*RSVP
	for rows.Next() {
		var rsvp RSVP
		err := rows.Scan(
			&rsvp.ID,
			&rsvp.PageID,
			&rsvp.Name,
			&rsvp.RelationType,
			&rsvp.GuestCount,
			&rsvp.Phone,
			&rsvp.Message,
			&rsvp.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		responses = append(responses, &rsvp)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return responses, nil
}

// Delete removes one response. A non-empty pageID restricts the delete to
// responses belonging to that page.
func (m RSVPModel) Delete(id int64, pageID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var result sql.Result
	var err error
	if pageID != "" {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM rsvp_responses WHERE id = $1 AND page_id = $2`, id, pageID)
	} else {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM rsvp_responses WHERE id = $1`, id)
	}
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
