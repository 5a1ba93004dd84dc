package data

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// Image is the metadata row for one gallery photo. The blob itself lives in
// object storage; URL points at its public location and StoragePath at the
// object inside the bucket.
type Image struct {
	ID           int64     `json:"id"`
	PageID       string    `json:"page_id"`
	URL          string    `json:"url"`
	StoragePath  string    `json:"storage_path"`
	Filename     string    `json:"filename"`
	DisplayOrder int       `json:"display_order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ImageOrder is one entry of a bulk display-order update.
type ImageOrder struct {
	ID    int64
	Order int
}

// ImageStore is the subset of images operations the handlers need.
type ImageStore interface {
	GetAllForPage(pageID string) ([]*Image, error)
	Insert(image *Image) error
	Get(id int64) (*Image, error)
	UpdateOrders(orders []ImageOrder, pageID string) error
	Delete(id int64, pageID string) error
	DeleteByPath(storagePath, pageID string) error
}

// ImageModel is the Postgres implementation of ImageStore.
type ImageModel struct {
	DB *sql.DB
}

// GetAllForPage returns every image of a page in display order.
func (m ImageModel) GetAllForPage(pageID string) ([]*Image, error) {
	query := `
SELECT id, page_id, url, storage_path, filename, display_order, created_at, updated_at
FROM images
WHERE page_id = $1
ORDER BY display_order, id`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query, pageID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var images []*Image
	for rows.Next() {
		var image Image
		err := rows.Scan(
			&image.ID,
			&image.PageID,
			&image.URL,
			&image.StoragePath,
			&image.Filename,
			&image.DisplayOrder,
			&image.CreatedAt,
			&image.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		images = append(images, &image)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return images, nil
}

// Insert adds a metadata row for an uploaded image.
func (m ImageModel) Insert(image *Image) error {
	query := `
INSERT INTO images (page_id, url, storage_path, filename, display_order)
VALUES ($1, $2, $3, $4, $5)
RETURNING id, created_at, updated_at`

	args := []interface{}{image.PageID, image.URL, image.StoragePath, image.Filename, image.DisplayOrder}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return m.DB.QueryRowContext(ctx, query, args...).Scan(&image.ID, &image.CreatedAt, &image.UpdatedAt)
}

// Get looks up a single image row.
func (m ImageModel) Get(id int64) (*Image, error) {
	query := `
SELECT id, page_id, url, storage_path, filename, display_order, created_at, updated_at
FROM images
WHERE id = $1`

	var image Image

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, id).Scan(
		&image.ID,
		&image.PageID,
		&image.URL,
		&image.StoragePath,
		&image.Filename,
		&image.DisplayOrder,
		&image.CreatedAt,
		&image.UpdatedAt,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &image, nil
}

// UpdateOrders applies a bulk display-order update inside one transaction, so
// replaying the same request leaves the final order unchanged. A non-empty
// pageID restricts every update to that page.
func (m ImageModel) UpdateOrders(orders []ImageOrder, pageID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	tx, err := m.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, order := range orders {
		var err error
		if pageID != "" {
			_, err = tx.ExecContext(ctx, `
UPDATE images SET display_order = $1, updated_at = now()
WHERE id = $2 AND page_id = $3`, order.Order, order.ID, pageID)
		} else {
			_, err = tx.ExecContext(ctx, `
UPDATE images SET display_order = $1, updated_at = now()
WHERE id = $2`, order.Order, order.ID)
		}
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Delete removes a metadata row. A non-empty pageID restricts the delete to
// images owned by that page.
func (m ImageModel) Delete(id int64, pageID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var result sql.Result
	var err error
	if pageID != "" {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM images WHERE id = $1 AND page_id = $2`, id, pageID)
	} else {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM images WHERE id = $1`, id)
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

// DeleteByPath removes the metadata row matching a storage path. A non-empty
// pageID restricts the delete to images owned by that page.
func (m ImageModel) DeleteByPath(storagePath, pageID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var result sql.Result
	var err error
	if pageID != "" {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM images WHERE storage_path = $1 AND page_id = $2`, storagePath, pageID)
	} else {
		result, err = m.DB.ExecContext(ctx, `DELETE FROM images WHERE storage_path = $1`, storagePath)
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
