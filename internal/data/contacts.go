package data

import (
	"context"
	"database/sql"
	"time"

	"dearcard.kr/internal/validator"
)

// Contact is one entry of a page's congratulatory-call list: a family member
// or the couple themselves, with the phone number guests can reach them on.
type Contact struct {
	ID           int64     `json:"id"`
	PageID       string    `json:"page_id"`
	Side         string    `json:"side"`     // "groom" or "bride".
	Relation     string    `json:"relation"` // e.g. "father", "mother", "self".
	Name         string    `json:"name"`
	Phone        string    `json:"phone"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
}

// ValidateContact checks a contact before it is written.
func ValidateContact(v *validator.Validator, contact *Contact) {
	v.Check(contact.Name != "", "name", "must be provided")
	v.Check(contact.Phone != "", "phone", "must be provided")
	v.Check(validator.In(contact.Side, "groom", "bride"), "side", "must be either groom or bride")
}

// ContactStore is the subset of wedding_contacts operations the handlers need.
type ContactStore interface {
	GetAllForPage(pageID string) ([]*Contact, error)
	Insert(contact *Contact) error
	Update(contact *Contact) error
	Delete(id int64, pageID string) error
}

// ContactModel is the Postgres implementation of ContactStore.
type ContactModel struct {
	DB *sql.DB
}

// GetAllForPage returns a page's contacts in display order.
func (m ContactModel) GetAllForPage(pageID string) ([]*Contact, error) {
	query := `
SELECT id, page_id, side, relation, name, phone, display_order, created_at
FROM wedding_contacts
WHERE page_id = $1
ORDER BY display_order, id`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var contacts []*Contact
	for rows.Next() {
		var contact Contact
		err := rows.Scan(
			&contact.ID,
			&contact.PageID,
			&contact.Side,
			&contact.Relation,
			&contact.Name,
			&contact.Phone,
			&contact.DisplayOrder,
			&contact.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, &contact)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return contacts, nil
}

// Insert adds a new contact.
func (m ContactModel) Insert(contact *Contact) error {
	query := `
INSERT INTO wedding_contacts (page_id, side, relation, name, phone, display_order)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`

	args := []interface{}{contact.PageID, contact.Side, contact.Relation, contact.Name, contact.Phone, contact.DisplayOrder}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, args...).Scan(&contact.ID, &contact.CreatedAt)
}

// Update rewrites a contact, scoped to its page when PageID is non-empty.
func (m ContactModel) Update(contact *Contact) error {
	query := `
UPDATE wedding_contacts
SET side = $1, relation = $2, name = $3, phone = $4, display_order = $5
WHERE id = $6 AND page_id = $7`

	args := []interface{}{contact.Side, contact.Relation, contact.Name, contact.Phone, contact.DisplayOrder, contact.ID, contact.PageID}
	if contact.PageID == "" {
		query = `
UPDATE wedding_contacts
SET side = $1, relation = $2, name = $3, phone = $4, display_order = $5
WHERE id = $6`
		args = args[:6]
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

// Delete removes a contact, scoped to its page when pageID is non-empty.
func (m ContactModel) Delete(id int64, pageID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var result sql.Result
	var err error
	if pageID != "" {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM wedding_contacts WHERE id = $1 AND page_id = $2`, id, pageID)
	} else {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM wedding_contacts WHERE id = $1`, id)
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
