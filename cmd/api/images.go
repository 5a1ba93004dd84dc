package main

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strings"

	"github.com/google/uuid"

	"dearcard.kr/internal/data"
	"dearcard.kr/internal/storage"
	"dearcard.kr/internal/token"
	"dearcard.kr/internal/validator"
)

// imagesHandler manages the gallery: listing, upload-URL issuance, metadata
// persistence, the direct base64 upload fallback, bulk reordering and
// deletion. Listing is public; every mutation requires authentication and is
// scoped to the caller's page.
func (app *application) imagesHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	switch r.Method {
	case http.MethodGet:
		app.imagesList(w, r, route)
	case http.MethodPost:
		app.imagesCreate(w, r, route)
	case http.MethodPut:
		app.imagesUpdateOrder(w, r, route)
	case http.MethodDelete:
		app.imagesDelete(w, r, route)
	default:
		app.methodNotAllowedResponse(w, r)
	}
}

// imagesList returns a page's images with a cache-busting v parameter on each
// URL, so a replaced image shows up without any client cache work.
func (app *application) imagesList(w http.ResponseWriter, r *http.Request, route routeInfo) {
	action := resolveAction(r, route, "")
	if action != "" && action != "getByPageId" {
		app.unknownActionResponse(w, r, action)
		return
	}

	pageID := app.readString(r.URL.Query(), "pageId", "")
	if pageID == "" {
		app.badRequestResponse(w, r, errors.New("pageId must be provided"))
		return
	}

	images, err := app.models.Images.GetAllForPage(pageID)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	for _, image := range images {
		image.URL = appendVersion(image.URL, image.UpdatedAt)
	}

	app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"images": images}, noStoreHeaders())
}

// imagesCreate covers the three POST actions: createUploadUrl, saveMetadata
// and the direct base64 upload fallback.
func (app *application) imagesCreate(w http.ResponseWriter, r *http.Request, route routeInfo) {
	claims, ok := app.requireClaims(w, r)
	if !ok {
		return
	}

	var input struct {
		Action       string `json:"action"`
		Filename     string `json:"filename"`
		ContentType  string `json:"content_type"`
		Path         string `json:"path"`
		URL          string `json:"url"`
		Data         string `json:"data"` // Base64 body for the direct upload fallback.
		DisplayOrder int    `json:"display_order"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	switch resolveAction(r, route, input.Action) {
	case "createUploadUrl":
		app.imagesCreateUploadURL(w, r, claims, input.Filename)
	case "saveMetadata":
		app.imagesSaveMetadata(w, r, claims, input.Path, input.URL, input.Filename, input.DisplayOrder)
	case "upload":
		app.imagesDirectUpload(w, r, claims, input.Filename, input.ContentType, input.Data, input.DisplayOrder)
	default:
		app.unknownActionResponse(w, r, resolveAction(r, route, input.Action))
	}
}

// objectPathFor builds a collision-free storage path for a new upload, keyed
// under the owning page.
func objectPathFor(pageID, filename string) string {
	ext := path.Ext(filename)
	return fmt.Sprintf("%s/%s%s", pageID, uuid.New().String(), ext)
}

func (app *application) imagesCreateUploadURL(w http.ResponseWriter, r *http.Request, claims token.Claims, filename string) {
	v := validator.New()
	v.Check(filename != "", "filename", "must be provided")
	v.Check(claims.PageID != "", "page_id", "must be present in the token")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	objectPath := objectPathFor(claims.PageID, filename)

	uploadURL, err := app.storage.SignUploadURL(r.Context(), objectPath)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{
		"upload_url": uploadURL,
		"path":       objectPath,
		"public_url": app.storage.PublicURL(objectPath),
	}, nil)
}

func (app *application) imagesSaveMetadata(w http.ResponseWriter, r *http.Request, claims token.Claims, storagePath, url, filename string, displayOrder int) {
	v := validator.New()
	v.Check(storagePath != "" || url != "", "path", "either path or url must be provided")
	v.Check(claims.PageID != "", "page_id", "must be present in the token")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if url == "" {
		url = app.storage.PublicURL(storagePath)
	}

	image := &data.Image{
		PageID:       claims.PageID,
		URL:          url,
		StoragePath:  storagePath,
		Filename:     filename,
		DisplayOrder: displayOrder,
	}

	err := app.models.Images.Insert(image)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusCreated, map[string]interface{}{"image": image}, nil)
}

func (app *application) imagesDirectUpload(w http.ResponseWriter, r *http.Request, claims token.Claims, filename, contentType, b64 string, displayOrder int) {
	v := validator.New()
	v.Check(filename != "", "filename", "must be provided")
	v.Check(b64 != "", "data", "must be provided")
	v.Check(claims.PageID != "", "page_id", "must be present in the token")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	// Clients sometimes send a full data URI; keep only the payload.
	if idx := strings.Index(b64, ","); idx != -1 && strings.HasPrefix(b64, "data:") {
		b64 = b64[idx+1:]
	}

	decoded, err := base64.StdEncoding.DecodeString(b64)
	if err != nil {
		app.badRequestResponse(w, r, errors.New("data must be valid base64"))
		return
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectPath := objectPathFor(claims.PageID, filename)

	err = app.storage.Upload(r.Context(), objectPath, contentType, decoded)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	image := &data.Image{
		PageID:       claims.PageID,
		URL:          app.storage.PublicURL(objectPath),
		StoragePath:  objectPath,
		Filename:     filename,
		DisplayOrder: displayOrder,
	}

	err = app.models.Images.Insert(image)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusCreated, map[string]interface{}{"image": image}, nil)
}

// imagesUpdateOrder applies a bulk display-order update. Two payload shapes
// are accepted: a flat list of {id, display_order}, or a page-scoped list of
// {id, order}. Either way the write is scoped to the caller's page unless the
// caller is an admin sending the flat shape.
func (app *application) imagesUpdateOrder(w http.ResponseWriter, r *http.Request, route routeInfo) {
	claims, ok := app.requireClaims(w, r)
	if !ok {
		return
	}

	var input struct {
		Action string `json:"action"`
		PageID string `json:"page_id"`
		Orders []struct {
			ID           int64 `json:"id"`
			DisplayOrder *int  `json:"display_order"`
			Order        *int  `json:"order"`
		} `json:"orders"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	action := resolveAction(r, route, input.Action)
	if action != "" && action != "updateOrder" {
		app.unknownActionResponse(w, r, action)
		return
	}

	if len(input.Orders) == 0 {
		app.badRequestResponse(w, r, errors.New("orders must be provided"))
		return
	}

	flat := true
	orders := make([]data.ImageOrder, 0, len(input.Orders))
	for _, entry := range input.Orders {
		switch {
		case entry.DisplayOrder != nil:
			orders = append(orders, data.ImageOrder{ID: entry.ID, Order: *entry.DisplayOrder})
		case entry.Order != nil:
			flat = false
			orders = append(orders, data.ImageOrder{ID: entry.ID, Order: *entry.Order})
		default:
			app.badRequestResponse(w, r, errors.New("each order entry needs display_order or order"))
			return
		}
	}

	// The page id always comes from the claims, never the body. Only an
	// admin using the flat shape may update across pages.
	pageScope := claims.PageID
	if claims.IsAdmin() && flat {
		pageScope = ""
	}

	err = app.models.Images.UpdateOrders(orders, pageScope)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"updated": len(orders)}, nil)
}

// imagesDelete removes the storage object and/or the metadata row. Parameters
// may arrive in the body or, for clients that cannot send DELETE bodies, the
// query string.
func (app *application) imagesDelete(w http.ResponseWriter, r *http.Request, route routeInfo) {
	claims, ok := app.requireClaims(w, r)
	if !ok {
		return
	}

	var input struct {
		ID          int64  `json:"id"`
		Path        string `json:"path"`
		StorageOnly bool   `json:"storage_only"`
	}

	err := app.readOptionalJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	qs := r.URL.Query()
	if input.Path == "" {
		input.Path = app.readString(qs, "path", "")
	}
	if input.ID == 0 {
		if id, err := resolveID(r, route); err == nil {
			input.ID = id
		}
	}
	if !input.StorageOnly {
		input.StorageOnly = qs.Get("storageOnly") == "true"
	}

	if input.ID == 0 && input.Path == "" {
		app.badRequestResponse(w, r, errors.New("id or path must be provided"))
		return
	}

	pageScope := claims.PageID
	if claims.IsAdmin() {
		pageScope = ""
	}

	// A caller-supplied path must live under the caller's own page prefix,
	// otherwise a token for one page could remove another page's objects.
	if input.Path != "" && pageScope != "" && !strings.HasPrefix(input.Path, pageScope+"/") {
		app.notPermittedResponse(w, r)
		return
	}

	// Resolve the storage path through the metadata row when only an id was
	// given, so the object is removed too.
	storagePath := input.Path
	if storagePath == "" && input.ID != 0 {
		image, err := app.models.Images.Get(input.ID)
		switch {
		case err == nil:
			if pageScope != "" && image.PageID != pageScope {
				app.notPermittedResponse(w, r)
				return
			}
			storagePath = image.StoragePath
		case errors.Is(err, data.ErrRecordNotFound):
			// Metadata already gone; nothing to resolve.
		default:
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	if storagePath != "" {
		err := app.storage.Delete(r.Context(), storagePath)
		if err != nil {
			var storageErr *storage.Error
			// A missing object is fine: the goal state is "object gone".
			if !(errors.As(err, &storageErr) && storageErr.StatusCode == http.StatusNotFound) {
				app.serverErrorResponse(w, r, err)
				return
			}
		}
	}

	if !input.StorageOnly {
		var err error
		switch {
		case input.ID != 0:
			err = app.models.Images.Delete(input.ID, pageScope)
		default:
			err = app.models.Images.DeleteByPath(input.Path, pageScope)
		}
		if err != nil && !errors.Is(err, data.ErrRecordNotFound) {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"deleted": true}, nil)
}
