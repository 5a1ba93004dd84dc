package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// PageSettings holds the per-page configuration edited from the admin UI.
// Every column has a sane default so a page works before its owner has
// configured anything.
type PageSettings struct {
	ID            int64     `json:"id"`
	PageID        string    `json:"page_id"`
	GroomName     string    `json:"groom_name"`
	BrideName     string    `json:"bride_name"`
	WeddingDate   Date      `json:"wedding_date"`
	WeddingTime   string    `json:"wedding_time"`
	VenueName     string    `json:"venue_name"`
	VenueAddress  string    `json:"venue_address"`
	VenueLat      float64   `json:"venue_lat"`
	VenueLng      float64   `json:"venue_lng"`
	MainImageURL  string    `json:"main_image_url"`
	MainImagePath string    `json:"main_image_path"`
	ThemeColor    string    `json:"theme_color"`
	BGMURL        string    `json:"bgm_url"`
	BGMEnabled    bool      `json:"bgm_enabled"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// SettingsAllowedFields is the only set of field names a write may touch.
// Anything else in the payload is dropped before it reaches the store, which
// keeps a malformed or malicious body from writing arbitrary columns.
var SettingsAllowedFields = []string{
	"groom_name",
	"bride_name",
	"wedding_date",
	"wedding_time",
	"venue_name",
	"venue_address",
	"venue_lat",
	"venue_lng",
	"main_image_url",
	"main_image_path",
	"theme_color",
	"bgm_url",
	"bgm_enabled",
}

// FilterAllowedFields returns only the entries of fields whose key appears in
// allowed. The input map is left untouched.
func FilterAllowedFields(fields map[string]interface{}, allowed []string) map[string]interface{} {
	filtered := make(map[string]interface{})
	for _, key := range allowed {
		if value, ok := fields[key]; ok {
			filtered[key] = value
		}
	}
	return filtered
}

// SettingsStore is the subset of page_settings operations the handlers need.
type SettingsStore interface {
	GetByPage(pageID string) (*PageSettings, error)
	Upsert(pageID string, fields map[string]interface{}) (*PageSettings, error)
}

// SettingsModel is the Postgres implementation of SettingsStore.
type SettingsModel struct {
	DB *sql.DB
}

const settingsColumns = `id, page_id, groom_name, bride_name, wedding_date, wedding_time,
venue_name, venue_address, venue_lat, venue_lng, main_image_url, main_image_path,
theme_color, bgm_url, bgm_enabled, updated_at`

func scanSettings(row *sql.Row) (*PageSettings, error) {
	var settings PageSettings
	err := row.Scan(
		&settings.ID,
		&settings.PageID,
		&settings.GroomName,
		&settings.BrideName,
		&settings.WeddingDate,
		&settings.WeddingTime,
		&settings.VenueName,
		&settings.VenueAddress,
		&settings.VenueLat,
		&settings.VenueLng,
		&settings.MainImageURL,
		&settings.MainImagePath,
		&settings.ThemeColor,
		&settings.BGMURL,
		&settings.BGMEnabled,
		&settings.UpdatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &settings, nil
}

// GetByPage returns the settings row for a page.
func (m SettingsModel) GetByPage(pageID string) (*PageSettings, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM page_settings
WHERE page_id = $1`, settingsColumns)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return scanSettings(m.DB.QueryRowContext(ctx, query, pageID))
}

// Upsert writes the given columns for a page, creating the row if it does not
// exist yet. The caller is responsible for having allow-listed the field
// names: they are interpolated into the statement as column identifiers.
func (m SettingsModel) Upsert(pageID string, fields map[string]interface{}) (*PageSettings, error) {
	// Sort for a deterministic statement, which keeps prepared-statement
	// caching effective and tests stable.
	columns := make([]string, 0, len(fields))
	for column := range fields {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	insertCols := []string{"page_id"}
	placeholders := []string{"$1"}
	updates := []string{"updated_at = now()"}
	args := []interface{}{pageID}

	for i, column := range columns {
		insertCols = append(insertCols, column)
		placeholders = append(placeholders, fmt.Sprintf("$%d", i+2))
		updates = append(updates, fmt.Sprintf("%s = EXCLUDED.%s", column, column))
		args = append(args, fields[column])
	}

	query := fmt.Sprintf(`
INSERT INTO page_settings (%s)
VALUES (%s)
ON CONFLICT (page_id) DO UPDATE SET %s
RETURNING %s`,
		strings.Join(insertCols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
		settingsColumns,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return scanSettings(m.DB.QueryRowContext(ctx, query, args...))
}
