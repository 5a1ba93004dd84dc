package main

import (
	"errors"
	"net/http"

	"dearcard.kr/internal/data"
	"dearcard.kr/internal/validator"
)

// calendarHandler manages the wedding-day schedule. Reading is public;
// mutations require authentication and are scoped to the caller's page.
func (app *application) calendarHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	switch r.Method {
	case http.MethodGet:
		pageID := app.readString(r.URL.Query(), "pageId", "")
		if pageID == "" {
			app.badRequestResponse(w, r, errors.New("pageId must be provided"))
			return
		}

		events, err := app.models.Calendar.GetAllForPage(pageID)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"events": events}, noStoreHeaders())

	case http.MethodPost:
		claims, ok := app.requireClaims(w, r)
		if !ok {
			return
		}

		var input struct {
			Title       string    `json:"title"`
			EventDate   data.Date `json:"event_date"`
			EventTime   string    `json:"event_time"`
			Description string    `json:"description"`
		}

		err := app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		event := &data.CalendarEvent{
			PageID:      claims.PageID,
			Title:       input.Title,
			EventDate:   input.EventDate,
			EventTime:   input.EventTime,
			Description: input.Description,
		}

		v := validator.New()
		if data.ValidateCalendarEvent(v, event); !v.Valid() {
			app.failedValidationResponse(w, r, v.Errors)
			return
		}

		err = app.models.Calendar.Insert(event)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		app.writeSuccess(w, r, http.StatusCreated, map[string]interface{}{"event": event}, nil)

	case http.MethodPut:
		claims, ok := app.requireClaims(w, r)
		if !ok {
			return
		}

		id, err := resolveID(r, route)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		var input struct {
			Title       string    `json:"title"`
			EventDate   data.Date `json:"event_date"`
			EventTime   string    `json:"event_time"`
			Description string    `json:"description"`
		}

		err = app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		event := &data.CalendarEvent{
			ID:          id,
			PageID:      claims.PageID,
			Title:       input.Title,
			EventDate:   input.EventDate,
			EventTime:   input.EventTime,
			Description: input.Description,
		}

		v := validator.New()
		if data.ValidateCalendarEvent(v, event); !v.Valid() {
			app.failedValidationResponse(w, r, v.Errors)
			return
		}

		err = app.models.Calendar.Update(event)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.errorResponse(w, r, http.StatusNotFound, "event not found")
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"event": event}, nil)

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

		err = app.models.Calendar.Delete(id, pageScope)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.errorResponse(w, r, http.StatusNotFound, "event not found")
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
