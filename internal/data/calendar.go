package data

import (
	"context"
	"database/sql"
	"time"

	"dearcard.kr/internal/validator"
)

// CalendarEvent is one entry of a page's wedding-day schedule.
type CalendarEvent struct {
	ID          int64     `json:"id"`
	PageID      string    `json:"page_id"`
	Title       string    `json:"title"`
	EventDate   Date      `json:"event_date"`
	EventTime   string    `json:"event_time,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ValidateCalendarEvent checks an event before it is written.
func ValidateCalendarEvent(v *validator.Validator, event *CalendarEvent) {
	v.Check(event.Title != "", "title", "must be provided")
	v.Check(len(event.Title) <= 200, "title", "must not be more than 200 characters long")
	v.Check(!event.EventDate.IsZero(), "event_date", "must be provided")
}

// CalendarStore is the subset of calendar_events operations the handlers need.
type CalendarStore interface {
	GetAllForPage(pageID string) ([]*CalendarEvent, error)
	Insert(event *CalendarEvent) error
	Update(event *CalendarEvent) error
	Delete(id int64, pageID string) error
}

// CalendarModel is the Postgres implementation of CalendarStore.
type CalendarModel struct {
	DB *sql.DB
}

// GetAllForPage returns a page's events in chronological order.
func (m CalendarModel) GetAllForPage(pageID string) ([]*CalendarEvent, error) {
	query := `
SELECT id, page_id, title, event_date, event_time, description, created_at
FROM calendar_events
WHERE page_id = $1
ORDER BY event_date, event_time, id`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*CalendarEvent
	for rows.Next() {
		var event CalendarEvent
		err := rows.Scan(
			&event.ID,
			&event.PageID,
			&event.Title,
			&event.EventDate,
			&event.EventTime,
			&event.Description,
			&event.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, &event)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

// Insert adds a new event.
func (m CalendarModel) Insert(event *CalendarEvent) error {
	query := `
INSERT INTO calendar_events (page_id, title, event_date, event_time, description)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at`

	args := []interface{}{event.PageID, event.Title, event.EventDate, event.EventTime, event.Description}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, args...).Scan(&event.ID, &event.CreatedAt)
}

// Update rewrites an event, scoped to its page when PageID is non-empty.
func (m CalendarModel) Update(event *CalendarEvent) error {
	query := `
UPDATE calendar_events
SET title = $1, event_date = $2, event_time = $3, description = $4
WHERE id = $5 AND page_id = $6`

	args := []interface{}{event.Title, event.EventDate, event.EventTime, event.Description, event.ID, event.PageID}
	if event.PageID == "" {
		query = `
UPDATE calendar_events
SET title = $1, event_date = $2, event_time = $3, description = $4
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

// Delete removes an event, scoped to its page when pageID is non-empty.
func (m CalendarModel) Delete(id int64, pageID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var result sql.Result
	var err error
	if pageID != "" {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = $1 AND page_id = $2`, id, pageID)
	} else {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM calendar_events WHERE id = $1`, id)
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
