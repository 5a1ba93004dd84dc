package data

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"
)

// InviteCard is the invitation-text block of a page: the greeting paragraph
// plus how the couple and their parents are introduced.
type InviteCard struct {
	ID              int64     `json:"id"`
	PageID          string    `json:"page_id"`
	Title           string    `json:"title"`
	Content         string    `json:"content"`
	GroomName       string    `json:"groom_name"`
	BrideName       string    `json:"bride_name"`
	GroomFatherName string    `json:"groom_father_name"`
	GroomMotherName string    `json:"groom_mother_name"`
	BrideFatherName string    `json:"bride_father_name"`
	BrideMotherName string    `json:"bride_mother_name"`
	SonLabel        string    `json:"son_label"`
	DaughterLabel   string    `json:"daughter_label"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// DefaultInviteContent is the placeholder greeting shown until a page owner
// writes their own.
const DefaultInviteContent = "서로가 마주보며 다져온 사랑을\n" +
	"이제 함께 한 곳을 바라보며\n" +
	"걸어갈 수 있는 큰 사랑으로 키우고자 합니다.\n" +
	"저희 두 사람이 사랑의 이름으로\n" +
	"지켜나갈 수 있게 축복해 주시면\n" +
	"감사하겠습니다."

// DefaultInviteCard returns the payload served when a page has no invitation
// row yet, so clients never need to special-case an unconfigured page.
func DefaultInviteCard(pageID string) *InviteCard {
	return &InviteCard{
		PageID:        pageID,
		Title:         "초대합니다",
		Content:       DefaultInviteContent,
		SonLabel:      "아들",
		DaughterLabel: "딸",
	}
}

// InviteAllowedFields is the set of field names an invitation write may touch.
var InviteAllowedFields = []string{
	"title",
	"content",
	"groom_name",
	"bride_name",
	"groom_father_name",
	"groom_mother_name",
	"bride_father_name",
	"bride_mother_name",
	"son_label",
	"daughter_label",
}

// InviteStore is the subset of invite_cards operations the handlers need.
type InviteStore interface {
	GetByPage(pageID string) (*InviteCard, error)
	Upsert(pageID string, fields map[string]interface{}) (*InviteCard, error)
}

// InviteModel is the Postgres implementation of InviteStore.
type InviteModel struct {
	DB *sql.DB
}

const inviteColumns = `id, page_id, title, content, groom_name, bride_name,
groom_father_name, groom_mother_name, bride_father_name, bride_mother_name,
son_label, daughter_label, updated_at`

func scanInvite(row *sql.Row) (*InviteCard, error) {
	var card InviteCard
	err := row.Scan(
		&card.ID,
		&card.PageID,
		&card.Title,
		&card.Content,
		&card.GroomName,
		&card.BrideName,
		&card.GroomFatherName,
		&card.GroomMotherName,
		&card.BrideFatherName,
		&card.BrideMotherName,
		&card.SonLabel,
		&card.DaughterLabel,
		&card.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrRecordNotFound
		}
		return nil, err
	}
	return &card, nil
}

// GetByPage returns the invitation row for a page.
func (m InviteModel) GetByPage(pageID string) (*InviteCard, error) {
	query := fmt.Sprintf(`
SELECT %s
FROM invite_cards
WHERE page_id = $1`, inviteColumns)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return scanInvite(m.DB.QueryRowContext(ctx, query, pageID))
}

// Upsert writes the given columns for a page's invitation, creating the row
// if needed. Field names must already be allow-listed by the caller.
func (m InviteModel) Upsert(pageID string, fields map[string]interface{}) (*InviteCard, error) {
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
INSERT INTO invite_cards (%s)
VALUES (%s)
ON CONFLICT (page_id) DO UPDATE SET %s
RETURNING %s`,
		strings.Join(insertCols, ", "),
		strings.Join(placeholders, ", "),
		strings.Join(updates, ", "),
		inviteColumns,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	return scanInvite(m.DB.QueryRowContext(ctx, query, args...))
}
