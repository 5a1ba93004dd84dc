package main

import (
	"errors"
	"net/http"

	"dearcard.kr/internal/data"
	"dearcard.kr/internal/validator"
)

// contactsHandler manages the congratulatory-call list shown to guests.
func (app *application) contactsHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	switch r.Method {
	case http.MethodGet:
		pageID := app.readString(r.URL.Query(), "pageId", "")
		if pageID == "" {
			app.badRequestResponse(w, r, errors.New("pageId must be provided"))
			return
		}

		contacts, err := app.models.Contacts.GetAllForPage(pageID)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"contacts": contacts}, noStoreHeaders())

	case http.MethodPost, http.MethodPut:
		claims, ok := app.requireClaims(w, r)
		if !ok {
			return
		}

		var input struct {
			Side         string `json:"side"`
			Relation     string `json:"relation"`
			Name         string `json:"name"`
			Phone        string `json:"phone"`
			DisplayOrder int    `json:"display_order"`
		}

		err := app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		contact := &data.Contact{
			PageID:       claims.PageID,
			Side:         input.Side,
			Relation:     input.Relation,
			Name:         input.Name,
			Phone:        input.Phone,
			DisplayOrder: input.DisplayOrder,
		}

		v := validator.New()
		data.ValidateContact(v, contact)
		if contact.Phone != "" {
			v.Check(validator.Matches(contact.Phone, validator.PhoneRX), "phone", "must be a valid phone number")
		}
		if !v.Valid() {
			app.failedValidationResponse(w, r, v.Errors)
			return
		}

		if r.Method == http.MethodPost {
			err = app.models.Contacts.Insert(contact)
			if err != nil {
				app.serverErrorResponse(w, r, err)
				return
			}
			app.writeSuccess(w, r, http.StatusCreated, map[string]interface{}{"contact": contact}, nil)
			return
		}

		id, err := resolveID(r, route)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}
		contact.ID = id

		err = app.models.Contacts.Update(contact)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.errorResponse(w, r, http.StatusNotFound, "contact not found")
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"contact": contact}, nil)

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

		err = app.models.Contacts.Delete(id, pageScope)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.errorResponse(w, r, http.StatusNotFound, "contact not found")
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
