package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarCreate(t *testing.T) {
	app, stores := newTestApplication(t)
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, env := ts.do(t, http.MethodPost, "/api/calendar", bearer, map[string]interface{}{
		"title":      "본식",
		"event_date": "2026-10-24",
		"event_time": "13:00",
	})
	require.Equal(t, http.StatusCreated, status)

	require.Len(t, stores.calendar.inserted, 1)
	event := stores.calendar.inserted[0]
	assert.Equal(t, "hanna-minjun", event.PageID, "page id comes from the token")
	assert.Equal(t, "본식", event.Title)

	out, ok := dataField(t, env)["event"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2026-10-24", out["event_date"], "dates serialise as plain YYYY-MM-DD")
}

func TestCalendarCreateValidation(t *testing.T) {
	app, stores := newTestApplication(t)
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodPost, "/api/calendar", bearer, map[string]interface{}{
		"event_time": "13:00",
	})
	require.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Empty(t, stores.calendar.inserted)
}

func TestCalendarUpdate(t *testing.T) {
	app, stores := newTestApplication(t)
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodPut, "/api/calendar/7", bearer, map[string]interface{}{
		"title":      "피로연",
		"event_date": "2026-10-24",
	})
	require.Equal(t, http.StatusOK, status)

	require.Len(t, stores.calendar.updated, 1)
	assert.Equal(t, int64(7), stores.calendar.updated[0].ID)
	assert.Equal(t, "hanna-minjun", stores.calendar.updated[0].PageID)
}

func TestCalendarUpdateAdminUnscoped(t *testing.T) {
	app, stores := newTestApplication(t)
	ts := newTestServer(t, app)

	bearer := testToken(t, "admin", "")
	status, _, _ := ts.do(t, http.MethodPut, "/api/calendar/7", bearer, map[string]interface{}{
		"title":      "피로연",
		"event_date": "2026-10-24",
	})
	require.Equal(t, http.StatusOK, status)

	require.Len(t, stores.calendar.updated, 1)
	assert.Equal(t, "", stores.calendar.updated[0].PageID,
		"admin updates look the row up across all pages")
}

func TestCalendarDeleteScoped(t *testing.T) {
	app, stores := newTestApplication(t)
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodDelete, "/api/calendar/7", bearer, nil)
	require.Equal(t, http.StatusOK, status)

	require.Len(t, stores.calendar.deleted, 1)
	assert.Equal(t, "hanna-minjun", stores.calendar.deleted[0].PageID)
}

func TestCalendarListPublic(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app)

	status, headers, _ := ts.do(t, http.MethodGet, "/api/calendar?pageId=hanna-minjun", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, headers.Get("Cache-Control"), "no-store")
}
