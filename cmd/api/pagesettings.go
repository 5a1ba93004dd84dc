package main

import (
	"errors"
	"net/http"

	"dearcard.kr/internal/data"
)

// pageSettingsHandler serves and updates the per-page configuration. GET
// falls back to a structured default when nothing has been saved yet and
// derives a stable, cache-busted main image URL; PUT filters the body to the
// allow-list before persisting anything.
func (app *application) pageSettingsHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	switch r.Method {
	case http.MethodGet:
		pageID := app.readString(r.URL.Query(), "pageId", "")
		if pageID == "" {
			app.badRequestResponse(w, r, errors.New("pageId must be provided"))
			return
		}

		settings, err := app.models.Settings.GetByPage(pageID)
		switch {
		case err == nil:
		case errors.Is(err, data.ErrRecordNotFound):
			// An unconfigured page is not an error; serve defaults so the
			// client never special-cases it.
			settings = &data.PageSettings{PageID: pageID, ThemeColor: "#f7cfd3", BGMEnabled: false}
		default:
			app.serverErrorResponse(w, r, err)
			return
		}

		// Prefer a stored direct URL; otherwise derive one from the storage
		// path. Either way the row's update time versions the URL.
		imageURL := settings.MainImageURL
		if imageURL == "" && settings.MainImagePath != "" {
			imageURL = app.storage.PublicURL(settings.MainImagePath)
		}
		if imageURL != "" && !settings.UpdatedAt.IsZero() {
			imageURL = appendVersion(imageURL, settings.UpdatedAt)
		}
		settings.MainImageURL = imageURL

		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"settings": settings}, noStoreHeaders())

	case http.MethodPost, http.MethodPut:
		claims, ok := app.requireClaims(w, r)
		if !ok {
			return
		}
		if claims.PageID == "" {
			app.notPermittedResponse(w, r)
			return
		}

		var body map[string]interface{}
		err := app.readJSON(w, r, &body)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		// Silently drop anything outside the allow-list; a payload with only
		// unknown fields is a client error.
		fields := data.FilterAllowedFields(body, data.SettingsAllowedFields)
		if len(fields) == 0 {
			app.badRequestResponse(w, r, errors.New("no valid settings fields in request body"))
			return
		}

		settings, err := app.models.Settings.Upsert(claims.PageID, fields)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"settings": settings}, nil)

	default:
		app.methodNotAllowedResponse(w, r)
	}
}
