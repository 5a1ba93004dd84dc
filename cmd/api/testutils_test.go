package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"dearcard.kr/internal/data"
	"dearcard.kr/internal/jsonlog"
	"dearcard.kr/internal/mailer"
	"dearcard.kr/internal/storage"
	"dearcard.kr/internal/token"
)

const testJWTSecret = "test-signing-secret"

// testStores bundles the recording stubs wired into a test application, so
// tests can both seed data and assert which writes a handler performed.
type testStores struct {
	users     *stubUserStore
	images    *stubImageStore
	rsvps     *stubRSVPStore
	calendar  *stubCalendarStore
	contacts  *stubContactStore
	settings  *stubSettingsStore
	invites   *stubInviteStore
	comments  *stubCommentStore
	transport *stubTransportStore
}

func newTestApplication(t *testing.T) (*application, *testStores) {
	t.Helper()

	stores := &testStores{
		users:     &stubUserStore{},
		images:    &stubImageStore{},
		rsvps:     &stubRSVPStore{},
		calendar:  &stubCalendarStore{},
		contacts:  &stubContactStore{},
		settings:  &stubSettingsStore{},
		invites:   &stubInviteStore{},
		comments:  &stubCommentStore{},
		transport: &stubTransportStore{},
	}

	var cfg config
	cfg.env = "test"
	cfg.jwt.secret = testJWTSecret
	cfg.jwt.legacyTokens = true
	cfg.limiter.enabled = false
	cfg.maps.naverClientID = "naver-test-client"
	cfg.maps.kakaoAppKey = "kakao-test-key"

	app := &application{
		config: cfg,
		logger: jsonlog.New(io.Discard, jsonlog.LevelOff),
		mailer: mailer.New("", 0, "", "", ""),
		storage: storage.New("https://storage.test/storage/v1", "service-key", "wedding-images",
			storage.WithHTTPClient(&http.Client{Timeout: time.Second})),
		models: data.Models{
			Users:     stores.users,
			Images:    stores.images,
			RSVPs:     stores.rsvps,
			Calendar:  stores.calendar,
			Contacts:  stores.contacts,
			Settings:  stores.settings,
			Invites:   stores.invites,
			Comments:  stores.comments,
			Transport: stores.transport,
		},
	}
	return app, stores
}

// testToken issues a signed bearer token the way the login handler does.
func testToken(t *testing.T, role, pageID string) string {
	t.Helper()
	signed, err := token.Issue([]byte(testJWTSecret), token.Claims{
		SubjectID: "1",
		Role:      role,
		PageID:    pageID,
	}, time.Hour)
	require.NoError(t, err)
	return signed
}

// testServer wraps httptest.Server with a request helper that speaks the
// success/error envelope.
type testServer struct {
	*httptest.Server
}

func newTestServer(t *testing.T, app *application) *testServer {
	t.Helper()
	ts := &testServer{httptest.NewServer(app.routes())}
	t.Cleanup(ts.Close)
	return ts
}

// do sends a JSON request and decodes the envelope. A nil body sends no body;
// an empty bearer token sends no Authorization header.
func (ts *testServer) do(t *testing.T, method, urlPath, bearer string, body interface{}) (int, http.Header, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != nil {
		js, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(js)
	}

	req, err := http.NewRequest(method, ts.URL+urlPath, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := ts.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env map[string]interface{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &env), "body: %s", raw)
	}
	return resp.StatusCode, resp.Header, env
}

// dataField digs the data object out of a decoded success envelope.
func dataField(t *testing.T, env map[string]interface{}) map[string]interface{} {
	t.Helper()
	require.Equal(t, true, env["success"], "expected a success envelope, got %v", env)
	d, ok := env["data"].(map[string]interface{})
	require.True(t, ok, "data is not an object: %v", env["data"])
	return d
}

type stubUserStore struct {
	users         []*data.AdminUser
	inserted      []*data.AdminUser
	statusUpdates map[int64]string
	deleted       []int64
	insertErr     error
}

func (s *stubUserStore) Insert(user *data.AdminUser) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	user.ID = int64(len(s.users) + len(s.inserted) + 1)
	user.CreatedAt = time.Now()
	s.inserted = append(s.inserted, user)
	return nil
}

func (s *stubUserStore) GetByUsername(username string) (*data.AdminUser, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

func (s *stubUserStore) GetByPage(pageID string) (*data.AdminUser, error) {
	for _, user := range s.users {
		if user.PageID == pageID {
			return user, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

func (s *stubUserStore) Get(id int64) (*data.AdminUser, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

func (s *stubUserStore) GetAll() ([]*data.AdminUser, error) {
	return s.users, nil
}

func (s *stubUserStore) UpdateStatus(id int64, status string) error {
	if s.statusUpdates == nil {
		s.statusUpdates = make(map[int64]string)
	}
	s.statusUpdates[id] = status
	return nil
}

func (s *stubUserStore) Delete(id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubImageStore struct {
	images       []*data.Image
	inserted     []*data.Image
	orderUpdates []struct {
		Orders []data.ImageOrder
		PageID string
	}
	deleted []struct {
		ID     int64
		PageID string
	}
	deletedPaths []struct {
		Path   string
		PageID string
	}
}

func (s *stubImageStore) GetAllForPage(pageID string) ([]*data.Image, error) {
	var out []*data.Image
	for _, image := range s.images {
		if image.PageID == pageID {
			out = append(out, image)
		}
	}
	return out, nil
}

func (s *stubImageStore) Insert(image *data.Image) error {
	image.ID = int64(len(s.images) + len(s.inserted) + 1)
	image.CreatedAt = time.Now()
	image.UpdatedAt = image.CreatedAt
	s.inserted = append(s.inserted, image)
	return nil
}

func (s *stubImageStore) Get(id int64) (*data.Image, error) {
	for _, image := range s.images {
		if image.ID == id {
			return image, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

func (s *stubImageStore) UpdateOrders(orders []data.ImageOrder, pageID string) error {
	s.orderUpdates = append(s.orderUpdates, struct {
		Orders []data.ImageOrder
		PageID string
	}{orders, pageID})
	return nil
}

func (s *stubImageStore) Delete(id int64, pageID string) error {
	s.deleted = append(s.deleted, struct {
		ID     int64
		PageID string
	}{id, pageID})
	return nil
}

func (s *stubImageStore) DeleteByPath(storagePath, pageID string) error {
	s.deletedPaths = append(s.deletedPaths, struct {
		Path   string
		PageID string
	}{storagePath, pageID})
	return nil
}

type stubRSVPStore struct {
	responses []*data.RSVP
	inserted  []*data.RSVP
	deleted   []struct {
		ID     int64
		PageID string
	}
	deleteErr error
}

func (s *stubRSVPStore) Insert(rsvp *data.RSVP) error {
	rsvp.ID = int64(len(s.responses) + len(s.inserted) + 1)
	rsvp.CreatedAt = time.Now()
	s.inserted = append(s.inserted, rsvp)
	return nil
}

func (s *stubRSVPStore) GetAllForPage(pageID string) ([]*data.RSVP, error) {
	var out []*data.RSVP
	for _, rsvp := range s.responses {
		if rsvp.PageID == pageID {
			out = append(out, rsvp)
		}
	}
	return out, nil
}

func (s *stubRSVPStore) Delete(id int64, pageID string) error {
	if s.deleteErr != nil {
		return s.deleteErr
	}
	s.deleted = append(s.deleted, struct {
		ID     int64
		PageID string
	}{id, pageID})
	return nil
}

type stubCalendarStore struct {
	events   []*data.CalendarEvent
	inserted []*data.CalendarEvent
	updated  []*data.CalendarEvent
	deleted  []struct {
		ID     int64
		PageID string
	}
}

func (s *stubCalendarStore) GetAllForPage(pageID string) ([]*data.CalendarEvent, error) {
	var out []*data.CalendarEvent
	for _, event := range s.events {
		if event.PageID == pageID {
			out = append(out, event)
		}
	}
	return out, nil
}

func (s *stubCalendarStore) Insert(event *data.CalendarEvent) error {
	event.ID = int64(len(s.events) + len(s.inserted) + 1)
	s.inserted = append(s.inserted, event)
	return nil
}

func (s *stubCalendarStore) Update(event *data.CalendarEvent) error {
	s.updated = append(s.updated, event)
	return nil
}

func (s *stubCalendarStore) Delete(id int64, pageID string) error {
	s.deleted = append(s.deleted, struct {
		ID     int64
		PageID string
	}{id, pageID})
	return nil
}

type stubContactStore struct {
	contacts []*data.Contact
	inserted []*data.Contact
	updated  []*data.Contact
	deleted  []struct {
		ID     int64
		PageID string
	}
}

func (s *stubContactStore) GetAllForPage(pageID string) ([]*data.Contact, error) {
	var out []*data.Contact
	for _, contact := range s.contacts {
		if contact.PageID == pageID {
			out = append(out, contact)
		}
	}
	return out, nil
}

func (s *stubContactStore) Insert(contact *data.Contact) error {
	contact.ID = int64(len(s.contacts) + len(s.inserted) + 1)
	s.inserted = append(s.inserted, contact)
	return nil
}

func (s *stubContactStore) Update(contact *data.Contact) error {
	s.updated = append(s.updated, contact)
	return nil
}

func (s *stubContactStore) Delete(id int64, pageID string) error {
	s.deleted = append(s.deleted, struct {
		ID     int64
		PageID string
	}{id, pageID})
	return nil
}

type stubSettingsStore struct {
	settings *data.PageSettings
	upserts  []struct {
		PageID string
		Fields map[string]interface{}
	}
}

func (s *stubSettingsStore) GetByPage(pageID string) (*data.PageSettings, error) {
	if s.settings != nil && s.settings.PageID == pageID {
		clone := *s.settings
		return &clone, nil
	}
	return nil, data.ErrRecordNotFound
}

func (s *stubSettingsStore) Upsert(pageID string, fields map[string]interface{}) (*data.PageSettings, error) {
	s.upserts = append(s.upserts, struct {
		PageID string
		Fields map[string]interface{}
	}{pageID, fields})
	return &data.PageSettings{PageID: pageID, UpdatedAt: time.Now()}, nil
}

type stubInviteStore struct {
	card    *data.InviteCard
	upserts []struct {
		PageID string
		Fields map[string]interface{}
	}
}

func (s *stubInviteStore) GetByPage(pageID string) (*data.InviteCard, error) {
	if s.card != nil && s.card.PageID == pageID {
		clone := *s.card
		return &clone, nil
	}
	return nil, data.ErrRecordNotFound
}

func (s *stubInviteStore) Upsert(pageID string, fields map[string]interface{}) (*data.InviteCard, error) {
	s.upserts = append(s.upserts, struct {
		PageID string
		Fields map[string]interface{}
	}{pageID, fields})
	return &data.InviteCard{PageID: pageID, UpdatedAt: time.Now()}, nil
}

type stubCommentStore struct {
	comments []*data.Comment
	inserted []*data.Comment
	deleted  []int64
}

func (s *stubCommentStore) GetAllForPage(pageID string, filters data.Filters) ([]*data.Comment, data.Metadata, error) {
	var out []*data.Comment
	for _, comment := range s.comments {
		if comment.PageID == pageID {
			out = append(out, comment)
		}
	}
	return out, data.Metadata{}, nil
}

func (s *stubCommentStore) Insert(comment *data.Comment) error {
	comment.ID = int64(len(s.comments) + len(s.inserted) + 1)
	comment.CreatedAt = time.Now()
	s.inserted = append(s.inserted, comment)
	return nil
}

func (s *stubCommentStore) Get(id int64) (*data.Comment, error) {
	for _, comment := range s.comments {
		if comment.ID == id {
			return comment, nil
		}
	}
	for _, comment := range s.inserted {
		if comment.ID == id {
			return comment, nil
		}
	}
	return nil, data.ErrRecordNotFound
}

func (s *stubCommentStore) Delete(id int64) error {
	s.deleted = append(s.deleted, id)
	return nil
}

type stubTransportStore struct {
	entries  []*data.Transport
	inserted []*data.Transport
	updated  []*data.Transport
	deleted  []struct {
		ID     int64
		PageID string
	}
}

func (s *stubTransportStore) GetAllForPage(pageID string) ([]*data.Transport, error) {
	var out []*data.Transport
	for _, transport := range s.entries {
		if transport.PageID == pageID {
			out = append(out, transport)
		}
	}
	return out, nil
}

func (s *stubTransportStore) Insert(transport *data.Transport) error {
	transport.ID = int64(len(s.entries) + len(s.inserted) + 1)
	s.inserted = append(s.inserted, transport)
	return nil
}

func (s *stubTransportStore) Update(transport *data.Transport) error {
	s.updated = append(s.updated, transport)
	return nil
}

func (s *stubTransportStore) Delete(id int64, pageID string) error {
	s.deleted = append(s.deleted, struct {
		ID     int64
		PageID string
	}{id, pageID})
	return nil
}
