package main

import (
	"errors"
	"net/http"

	"dearcard.kr/internal/data"
	"dearcard.kr/internal/validator"
)

// transportHandler manages the venue directions entries.
func (app *application) transportHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	switch r.Method {
	case http.MethodGet:
		pageID := app.readString(r.URL.Query(), "pageId", "")
		if pageID == "" {
			app.badRequestResponse(w, r, errors.New("pageId must be provided"))
			return
		}

		infos, err := app.models.Transport.GetAllForPage(pageID)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"transport": infos}, noStoreHeaders())

	case http.MethodPost, http.MethodPut:
		claims, ok := app.requireClaims(w, r)
		if !ok {
			return
		}

		var input struct {
			Kind         string `json:"kind"`
			Title        string `json:"title"`
			Description  string `json:"description"`
			DisplayOrder int    `json:"display_order"`
		}

		err := app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		info := &data.Transport{
			PageID:       claims.PageID,
			Kind:         input.Kind,
			Title:        input.Title,
			Description:  input.Description,
			DisplayOrder: input.DisplayOrder,
		}

		v := validator.New()
		if data.ValidateTransport(v, info); !v.Valid() {
			app.failedValidationResponse(w, r, v.Errors)
			return
		}

		if r.Method == http.MethodPost {
			err = app.models.Transport.Insert(info)
			if err != nil {
				app.serverErrorResponse(w, r, err)
				return
			}
			app.writeSuccess(w, r, http.StatusCreated, map[string]interface{}{"transport": info}, nil)
			return
		}

		id, err := resolveID(r, route)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		info.ID = id

		err = app.models.Transport.Update(info)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.errorResponse(w, r, http.StatusNotFound, "transport entry not found")
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"transport": info}, nil)

	case http.MethodDelete:
		claims, ok := app.requireClaims(w, r)
		if !ok {
			return
		}

		id, err := resolveID(r, route)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		pageScope := claims.PageID
		if claims.IsAdmin() {
			pageScope = ""
		}

		err = app.models.Transport.Delete(id, pageScope)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.errorResponse(w, r, http.StatusNotFound, "transport entry not found")
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"deleted": true}, nil)

	default:
		app.methodNotAllowedResponse(w, r)
	}
}
