package data

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"dearcard.kr/internal/validator"
)

// ErrDuplicateUsername is returned when inserting an account whose username
// is already taken.
var ErrDuplicateUsername = errors.New("duplicate username")

// Account approval states. New registrations start as pending and cannot log
// in until an admin approves them.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// AdminUser is an account that can manage a wedding page.
type AdminUser struct {
	ID        int64     `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Password  password  `json:"-"`
	Role      string    `json:"role"`
	Status    string    `json:"status"`
	PageID    string    `json:"page_id"`
}

// password wraps the stored credential column. Rows written before the bcrypt
// migration hold the raw plaintext; migrated rows hold a bcrypt hash. Matches
// handles both so unmigrated accounts keep working.
type password struct {
	plaintext *string
	stored    string
}

// Set hashes a plaintext password with bcrypt.
func (p *password) Set(plaintextPassword string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintextPassword), 12)
	if err != nil {
		return err
	}
	p.plaintext = &plaintextPassword
	p.stored = string(hash)
	return nil
}

// Matches checks a candidate password against the stored column. Bcrypt
// values are compared cryptographically; anything else is treated as an
// unmigrated plaintext row and compared directly.
func (p *password) Matches(plaintextPassword string) (bool, error) {
	if strings.HasPrefix(p.stored, "$2a$") || strings.HasPrefix(p.stored, "$2b$") || strings.HasPrefix(p.stored, "$2y$") {
		err := bcrypt.CompareHashAndPassword([]byte(p.stored), []byte(plaintextPassword))
		switch {
		case err == nil:
			return true, nil
		case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
			return false, nil
		default:
			return false, err
		}
	}
	return p.stored != "" && p.stored == plaintextPassword, nil
}

// Stored exposes the raw column value for inserts.
func (p *password) Stored() string {
	return p.stored
}

// SetStored loads a raw column value, used when scanning rows and in tests.
func (p *password) SetStored(value string) {
	p.stored = value
}

// ValidateUsername checks the username against the account rules.
func ValidateUsername(v *validator.Validator, username string) {
	v.Check(username != "", "username", "must be provided")
	v.Check(len(username) >= 3, "username", "must be at least 3 characters long")
	v.Check(len(username) <= 50, "username", "must not be more than 50 characters long")
}

// ValidatePasswordPlaintext checks a plaintext password before hashing.
func ValidatePasswordPlaintext(v *validator.Validator, password string) {
	v.Check(password != "", "password", "must be provided")
	v.Check(len(password) >= 8, "password", "must be at least 8 characters long")
	v.Check(len(password) <= 72, "password", "must not be more than 72 bytes long")
}

// ValidateUser checks a new account before it is inserted.
func ValidateUser(v *validator.Validator, user *AdminUser) {
	ValidateUsername(v, user.Username)
	if user.Email != "" {
		v.Check(validator.Matches(user.Email, validator.EmailRX), "email", "must be a valid email address")
	}
	if user.Password.plaintext != nil {
		ValidatePasswordPlaintext(v, *user.Password.plaintext)
	}
	if user.Password.stored == "" {
		panic("missing stored password for user")
	}
}

// UserStore is the subset of admin_users operations the handlers need.
type UserStore interface {
	Insert(user *AdminUser) error
	GetByUsername(username string) (*AdminUser, error)
	GetByPage(pageID string) (*AdminUser, error)
	Get(id int64) (*AdminUser, error)
	GetAll() ([]*AdminUser, error)
	UpdateStatus(id int64, status string) error
	Delete(id int64) error
}

// UserModel is the Postgres implementation of UserStore over the admin_users
// table.
type UserModel struct {
	DB *sql.DB
}

// Insert adds a new account row.
func (m UserModel) Insert(user *AdminUser) error {
	query := `
INSERT INTO admin_users (username, email, password, role, status, page_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, created_at`

	args := []interface{}{user.Username, user.Email, user.Password.stored, user.Role, user.Status, user.PageID}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, args...).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		switch {
		case err.Error() == `pq: duplicate key value violates unique constraint "admin_users_username_key"`:
			return ErrDuplicateUsername
		default:
			return err
		}
	}
	return nil
}

// GetByUsername looks up an account by its login name.
func (m UserModel) GetByUsername(username string) (*AdminUser, error) {
	query := `
SELECT id, created_at, username, email, password, role, status, page_id
FROM admin_users
WHERE username = $1`

	return m.getOne(query, username)
}

// GetByPage looks up the account that owns a wedding page. Used to find the
// notification recipient for guest submissions.
func (m UserModel) GetByPage(pageID string) (*AdminUser, error) {
	query := `
SELECT id, created_at, username, email, password, role, status, page_id
FROM admin_users
WHERE page_id = $1
ORDER BY id
LIMIT 1`

	return m.getOne(query, pageID)
}

// Get looks up an account by id.
func (m UserModel) Get(id int64) (*AdminUser, error) {
	query := `
SELECT id, created_at, username, email, password, role, status, page_id
FROM admin_users
WHERE id = $1`

	return m.getOne(query, id)
}

func (m UserModel) getOne(query string, arg interface{}) (*AdminUser, error) {
	var user AdminUser

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	err := m.DB.QueryRowContext(ctx, query, arg).Scan(
		&user.ID,
		&user.CreatedAt,
		&user.Username,
		&user.Email,
		&user.Password.stored,
		&user.Role,
		&user.Status,
		&user.PageID,
	)
	if err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, ErrRecordNotFound
		default:
			return nil, err
		}
	}
	return &user, nil
}

// GetAll returns every account, newest first.
func (m UserModel) GetAll() ([]*AdminUser, error) {
	query := `
SELECT id, created_at, username, email, password, role, status, page_id
FROM admin_users
ORDER BY created_at DESC`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rows, err := m.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*AdminUser
	for rows.Next() {
		var user AdminUser
		err := rows.Scan(
			&user.ID,
			&user.CreatedAt,
			&user.Username,
			&user.Email,
			&user.Password.stored,
			&user.Role,
			&user.Status,
			&user.PageID,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, &user)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return users, nil
}

// UpdateStatus moves an account between approval states.
func (m UserModel) UpdateStatus(id int64, status string) error {
	query := `
UPDATE admin_users
SET status = $1
WHERE id = $2`

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	result, err := m.DB.ExecContext(ctx, query, status, id)
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

// Delete removes an account row.
func (m UserModel) Delete(id int64) error {
	query := `
DELETE FROM admin_users
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
