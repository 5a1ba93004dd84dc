package data

import (
	"database/sql"
	"errors"
)

// Sentinel errors shared by all models.
var (
	ErrRecordNotFound = errors.New("record not found") // No row matched the lookup.
	ErrEditConflict   = errors.New("edit conflict")    // A concurrent write got there first.
)

// Models is the container handed to the handlers. Each field is a small store
// interface rather than a concrete model so that handler tests can swap in
// recording stubs and assert, for example, that a rejected request performed
// no writes.
type Models struct {
	Users     UserStore
	Images    ImageStore
	RSVPs     RSVPStore
	Calendar  CalendarStore
	Contacts  ContactStore
	Settings  SettingsStore
	Invites   InviteStore
	Comments  CommentStore
	Transport TransportStore
}

// NewModels wires every store to its SQL implementation over a shared
// connection pool.
func NewModels(db *sql.DB) Models {
	return Models{
		Users:     UserModel{DB: db},
		Images:    ImageModel{DB: db},
		RSVPs:     RSVPModel{DB: db},
		Calendar:  CalendarModel{DB: db},
		Contacts:  ContactModel{DB: db},
		Settings:  SettingsModel{DB: db},
		Invites:   InviteModel{DB: db},
		Comments:  CommentModel{DB: db},
		Transport: TransportModel{DB: db},
	}
}
