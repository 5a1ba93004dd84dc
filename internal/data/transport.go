package data

import (
	"context"
	"database/sql"
	"time"

	"dearcard.kr/internal/validator"
)

// Transport is one directions entry shown on the invitation page: how to
// reach the venue by a particular means.
type Transport struct {
	ID           int64     `json:"id"`
	PageID       string    `json:"page_id"`
	Kind         string    `json:"kind"` // e.g. "subway", "bus", "car", "shuttle".
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidateTransport checks a directions entry before it is written.
func ValidateTransport(v *validator.Validator, transport *Transport) {
	v.Check(transport.Kind != "", "kind", "must be provided")
	v.Check(transport.Title != "", "title", "must be provided")
	v.Check(len(transport.Title) <= 200, "title", "must not be more than 200 characters long")
}

// TransportStore is the subset of transport_infos operations the handlers need.
type TransportStore interface {
	GetAllForPage(pageID string) ([]*Transport, error)
	Insert(transport *Transport) error
	Update(transport *Transport) error
	Delete(id int64, pageID string) error
}

// TransportModel is the Postgres implementation of TransportStore.
type TransportModel struct {
	DB *sql.DB
}

// GetAllForPage returns a page's directions entries in display order.
func (m TransportModel) GetAllForPage(pageID string) ([]*Transport, error) {
	query := `
SELECT id, page_id, kind, title, description, display_order, created_at
FROM transport_infos
WHERE page_id = $1
ORDER BY display_order, id`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var infos []*Transport
	for rows.Next() {
		var info Transport
		err := rows.Scan(
			&info.ID,
			&info.PageID,
			&info.Kind,
			&info.Title,
			&info.Description,
			&info.DisplayOrder,
			&info.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		infos = append(infos, &info)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return infos, nil
}

// Insert adds a new directions entry.
func (m TransportModel) Insert(transport *Transport) error {
	query := `
INSERT INTO transport_infos (page_id, kind, title, description, display_order)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`

	args := []interface{}{transport.PageID, transport.Kind, transport.Title, transport.Description, transport.DisplayOrder}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, args...).Scan(&transport.ID, &transport.CreatedAt)
}

// Update rewrites a directions entry, scoped to its page when PageID is
// non-empty.
func (m TransportModel) Update(transport *Transport) error {
	query := `
UPDATE transport_infos
SET kind = $1, title = $2, description = $3, display_order = $4
WHERE id = $5 AND page_id = $6`

	args := []interface{}{transport.Kind, transport.Title, transport.Description, transport.DisplayOrder, transport.ID, transport.PageID}
	if transport.PageID == "" {
		query = `
UPDATE transport_infos
SET kind = $1, title = $2, description = $3, display_order = $4
WHERE id = $5`
		args = args[:5]
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, query, args...)
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

// Delete removes a directions entry, scoped to its page when pageID is
// non-empty.
func (m TransportModel) Delete(id int64, pageID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var result sql.Result
	var err error
	if pageID != "" {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM transport_infos WHERE id = $1 AND page_id = $2`, id, pageID)
	} else {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM transport_infos WHERE id = $1`, id)
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
