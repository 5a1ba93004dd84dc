package main

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dearcard.kr/internal/data"
	"dearcard.kr/internal/storage"
)

// fakeStorage stands in for the object storage API and records the object
// operations the handlers perform.
type fakeStorage struct {
	server  *httptest.Server
	signed  []string
	uploads []string
	deletes []string
	missing map[string]bool
}

func newFakeStorage(t *testing.T) *fakeStorage {
	t.Helper()
	fs := &fakeStorage{missing: make(map[string]bool)}

	fs.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/object/upload/sign/"):
			fs.signed = append(fs.signed, r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprintf(w, `{"url": "%s?token=signed"}`, strings.Replace(r.URL.Path, "/sign", "", 1))
		case r.Method == http.MethodPost && strings.HasPrefix(r.URL.Path, "/object/"):
			fs.uploads = append(fs.uploads, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/object/"):
			if fs.missing[r.URL.Path] {
				w.WriteHeader(http.StatusNotFound)
				fmt.Fprint(w, `{"message": "object not found"}`)
				return
			}
			fs.deletes = append(fs.deletes, r.URL.Path)
			w.WriteHeader(http.StatusOK)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(fs.server.Close)
	return fs
}

func (fs *fakeStorage) client() *storage.Client {
	return storage.New(fs.server.URL, "service-key", "wedding-images")
}

func TestImagesListAppendsCacheBuster(t *testing.T) {
	app, stores := newTestApplication(t)
	updated := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	stores.images.images = []*data.Image{
		{ID: 1, PageID: "hanna-minjun", URL: "https://cdn.example/a.jpg", UpdatedAt: updated},
		{ID: 2, PageID: "hanna-minjun", URL: "https://cdn.example/b.jpg?w=800", UpdatedAt: updated},
	}
	ts := newTestServer(t, app)

	status, headers, env := ts.do(t, http.MethodGet, "/api/images?pageId=hanna-minjun", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, headers.Get("Cache-Control"), "no-store")

	images, ok := dataField(t, env)["images"].([]interface{})
	require.True(t, ok)
	require.Len(t, images, 2)

	version := fmt.Sprintf("v=%d", updated.Unix())
	first := images[0].(map[string]interface{})
	second := images[1].(map[string]interface{})
	assert.Equal(t, "https://cdn.example/a.jpg?"+version, first["url"])
	assert.Equal(t, "https://cdn.example/b.jpg?w=800&"+version, second["url"], "an existing query string takes & not ?")
}

func TestImagesCreateUploadURL(t *testing.T) {
	app, _ := newTestApplication(t)
	fs := newFakeStorage(t)
	app.storage = fs.client()
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, env := ts.do(t, http.MethodPost, "/api/images/createUploadUrl", bearer, map[string]interface{}{
		"filename": "웨딩사진.jpg",
	})
	require.Equal(t, http.StatusOK, status)

	d := dataField(t, env)
	uploadURL, _ := d["upload_url"].(string)
	objectPath, _ := d["path"].(string)
	publicURL, _ := d["public_url"].(string)

	assert.Contains(t, uploadURL, "token=signed")
	assert.True(t, strings.HasPrefix(objectPath, "hanna-minjun/"), "object paths are keyed under the page: %s", objectPath)
	assert.True(t, strings.HasSuffix(objectPath, ".jpg"))
	assert.Contains(t, publicURL, "/object/public/wedding-images/")
	require.Len(t, fs.signed, 1)
}

func TestImagesCreateUploadURLRequiresAuth(t *testing.T) {
	app, _ := newTestApplication(t)
	ts := newTestServer(t, app)

	status, _, _ := ts.do(t, http.MethodPost, "/api/images/createUploadUrl", "", map[string]interface{}{
		"filename": "a.jpg",
	})
	require.Equal(t, http.StatusUnauthorized, status)
}

func TestImagesSaveMetadata(t *testing.T) {
	app, stores := newTestApplication(t)
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodPost, "/api/images/saveMetadata", bearer, map[string]interface{}{
		"path":          "hanna-minjun/abc.jpg",
		"filename":      "abc.jpg",
		"display_order": 2,
	})
	require.Equal(t, http.StatusCreated, status)

	require.Len(t, stores.images.inserted, 1)
	image := stores.images.inserted[0]
	assert.Equal(t, "hanna-minjun", image.PageID, "page id comes from the token, not the body")
	assert.Contains(t, image.URL, "/object/public/wedding-images/hanna-minjun/abc.jpg")
	assert.Equal(t, 2, image.DisplayOrder)
}

func TestImagesDirectUpload(t *testing.T) {
	app, stores := newTestApplication(t)
	fs := newFakeStorage(t)
	app.storage = fs.client()
	ts := newTestServer(t, app)

	payload := base64.StdEncoding.EncodeToString([]byte("fake image bytes"))
	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodPost, "/api/images/upload", bearer, map[string]interface{}{
		"filename":     "photo.png",
		"content_type": "image/png",
		"data":         "data:image/png;base64," + payload,
	})
	require.Equal(t, http.StatusCreated, status)

	require.Len(t, fs.uploads, 1)
	require.Len(t, stores.images.inserted, 1)
	assert.True(t, strings.HasSuffix(stores.images.inserted[0].StoragePath, ".png"))
}

func TestImagesUpdateOrderScopedToOwnPage(t *testing.T) {
	app, stores := newTestApplication(t)
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodPut, "/api/images/updateOrder", bearer, map[string]interface{}{
		"orders": []map[string]interface{}{
			{"id": 1, "display_order": 2},
			{"id": 2, "display_order": 1},
		},
	})
	require.Equal(t, http.StatusOK, status)

	require.Len(t, stores.images.orderUpdates, 1)
	update := stores.images.orderUpdates[0]
	assert.Equal(t, "hanna-minjun", update.PageID, "a non-admin update is always page scoped")
	assert.Equal(t, []data.ImageOrder{{ID: 1, Order: 2}, {ID: 2, Order: 1}}, update.Orders)
}

func TestImagesUpdateOrderIdempotent(t *testing.T) {
	app, stores := newTestApplication(t)
	ts := newTestServer(t, app)

	body := map[string]interface{}{
		"orders": []map[string]interface{}{
			{"id": 1, "display_order": 2},
			{"id": 2, "display_order": 1},
		},
	}

	bearer := testToken(t, "user", "hanna-minjun")
	for i := 0; i < 2; i++ {
		status, _, _ := ts.do(t, http.MethodPut, "/api/images/updateOrder", bearer, body)
		require.Equal(t, http.StatusOK, status)
	}

	require.Len(t, stores.images.orderUpdates, 2)
	assert.Equal(t, stores.images.orderUpdates[0], stores.images.orderUpdates[1],
		"repeating the request applies the identical order set")
}

func TestImagesUpdateOrderAdminFlatShapeUnscoped(t *testing.T) {
	app, stores := newTestApplication(t)
	ts := newTestServer(t, app)

	bearer := testToken(t, "admin", "")
	status, _, _ := ts.do(t, http.MethodPut, "/api/images", bearer, map[string]interface{}{
		"orders": []map[string]interface{}{
			{"id": 9, "display_order": 1},
		},
	})
	require.Equal(t, http.StatusOK, status)

	require.Len(t, stores.images.orderUpdates, 1)
	assert.Equal(t, "", stores.images.orderUpdates[0].PageID)
}

func TestImagesDeleteStorageOnlyKeepsMetadata(t *testing.T) {
	app, stores := newTestApplication(t)
	fs := newFakeStorage(t)
	app.storage = fs.client()
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodDelete, "/api/images?path=hanna-minjun/old.jpg&storageOnly=true", bearer, nil)
	require.Equal(t, http.StatusOK, status)

	require.Len(t, fs.deletes, 1)
	assert.Empty(t, stores.images.deleted)
	assert.Empty(t, stores.images.deletedPaths, "storageOnly must leave the metadata row alone")
}

func TestImagesDeleteByIDResolvesStoragePath(t *testing.T) {
	app, stores := newTestApplication(t)
	fs := newFakeStorage(t)
	app.storage = fs.client()
	stores.images.images = []*data.Image{
		{ID: 4, PageID: "hanna-minjun", StoragePath: "hanna-minjun/gone.jpg"},
	}
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodDelete, "/api/images/4", bearer, nil)
	require.Equal(t, http.StatusOK, status)

	require.Len(t, fs.deletes, 1)
	assert.Contains(t, fs.deletes[0], "gone.jpg")
	require.Len(t, stores.images.deleted, 1)
	assert.Equal(t, int64(4), stores.images.deleted[0].ID)
}

func TestImagesDeleteToleratesMissingObject(t *testing.T) {
	app, stores := newTestApplication(t)
	fs := newFakeStorage(t)
	fs.missing["/object/wedding-images/hanna-minjun/never-existed.jpg"] = true
	app.storage = fs.client()
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodDelete, "/api/images?path=hanna-minjun/never-existed.jpg", bearer, nil)
	require.Equal(t, http.StatusOK, status, "a 404 from storage still deletes the metadata row")

	require.Len(t, stores.images.deletedPaths, 1)
	assert.Equal(t, "hanna-minjun", stores.images.deletedPaths[0].PageID)
}

func TestImagesDeleteOtherPageForbidden(t *testing.T) {
	app, stores := newTestApplication(t)
	stores.images.images = []*data.Image{
		{ID: 4, PageID: "someone-else", StoragePath: "someone-else/photo.jpg"},
	}
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, _ := ts.do(t, http.MethodDelete, "/api/images/4", bearer, nil)
	require.Equal(t, http.StatusForbidden, status)
	assert.Empty(t, stores.images.deleted)
}

func TestImagesDeleteOtherPagePathForbidden(t *testing.T) {
	app, stores := newTestApplication(t)
	fs := newFakeStorage(t)
	app.storage = fs.client()
	ts := newTestServer(t, app)

	bearer := testToken(t, "user", "hanna-minjun")
	status, _, envelope := ts.do(t, http.MethodDelete, "/api/images?path=someone-else/their-photo.jpg", bearer, nil)
	require.Equal(t, http.StatusForbidden, status, "a path outside the caller's page prefix must be rejected")
	assert.Equal(t, false, envelope["success"])

	assert.Empty(t, fs.deletes, "the storage object must not be touched")
	assert.Empty(t, stores.images.deletedPaths)
}

func TestImagesDeleteByPathAdminUnscoped(t *testing.T) {
	app, stores := newTestApplication(t)
	fs := newFakeStorage(t)
	app.storage = fs.client()
	ts := newTestServer(t, app)

	bearer := testToken(t, "admin", "")
	status, _, _ := ts.do(t, http.MethodDelete, "/api/images?path=someone-else/photo.jpg", bearer, nil)
	require.Equal(t, http.StatusOK, status)

	require.Len(t, fs.deletes, 1)
	require.Len(t, stores.images.deletedPaths, 1)
	assert.Equal(t, "someone-else/photo.jpg", stores.images.deletedPaths[0].Path)
	assert.Equal(t, "", stores.images.deletedPaths[0].PageID,
		"admin path deletes look the row up across all pages")
}
