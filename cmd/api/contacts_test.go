package main

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dearcard.kr/internal/data"
)

func TestContactsCreate(t *testing.T) {
	app, stores := newTestApplication(t)
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodPost, "/api/contacts", bearer, map[string]interface{}{
		"side":     "groom",
		"relation": "father",
		"name":     "김아버님",
		"phone":    "010-1234-5678",
	})
	require.Equal(t, http.StatusCreated, status)

	require.Len(t, stores.contacts.inserted, 1)
	assert.Equal(t, "hanna-minjun", stores.contacts.inserted[0].PageID)
}

func TestContactsCreateValidation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "bad side",
			body: map[string]interface{}{"side": "cousin", "name": "누구", "phone": "010-1234-5678"},
		},
		{
			name: "missing phone",
			body: map[string]interface{}{"side": "bride", "name": "누구"},
		},
		{
			name: "malformed phone",
			body: map[string]interface{}{"side": "bride", "name": "누구", "phone": "call me"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app, stores := newTestApplication(t)
			ts := newTestServer(t, app)

			bearer := testToken(t, "user", "hanna-minjun")
			status, _, _ := ts.do(t, http.MethodPost, "/api/contacts", bearer, tt.body)
			require.Equal(t, http.StatusUnprocessableEntity, status)
			assert.Empty(t, stores.contacts.inserted)
		})
	}
}

func TestContactsUpdateNeedsID(t *testing.T) {
	app, stores := newTestApplication(t)
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodPut, "/api/contacts", bearer, map[string]interface{}{
		"side":  "groom",
		"name":  "김아버님",
		"phone": "010-1234-5678",
	})
	require.Equal(t, http.StatusBadRequest, status)
	assert.Empty(t, stores.contacts.updated)
}

func TestContactsListPublic(t *testing.T) {
	app, stores := newTestApplication(t)
	stores.contacts.contacts = []*data.Contact{
		{ID: 1, PageID: "hanna-minjun", Side: "groom", Name: "김아버님", Phone: "010-1234-5678"},
	}
	ts := newTestServer(t, app)

	status, _, env := ts.do(t, http.MethodGet, "/api/contacts?pageId=hanna-minjun", "", nil)
	require.Equal(t, http.StatusOK, status)

	contacts, ok := dataField(t, env)["contacts"].([]interface{})
	require.True(t, ok)
	assert.Len(t, contacts, 1)
}
