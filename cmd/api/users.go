package main

import (
	"errors"
	"net/http"

	"dearcard.kr/internal/data"
	"dearcard.kr/internal/validator"
)

// usersHandler is the admin-only account management surface: list accounts,
// move them between approval states, delete them. Unlike the public-facing
// resources, even GET requires the admin role here because the list exposes
// emails.
func (app *application) usersHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	if _, ok := app.requireAdmin(w, r); !ok {
		return
	}

	switch r.Method {
	case http.MethodGet:
		users, err := app.models.Users.GetAll()
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"users": users}, noStoreHeaders())

	case http.MethodPut:
		id, err := resolveID(r, route)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		var input struct {
			Status string `json:"status"`
		}
		err = app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		v := validator.New()
		v.Check(input.Status != "", "status", "must be provided")
		v.Check(validator.In(input.Status, data.StatusPending, data.StatusApproved, data.StatusRejected),
			"status", "must be one of pending, approved or rejected")
		if !v.Valid() {
			app.failedValidationResponse(w, r, v.Errors)
			return
		}

		err = app.models.Users.UpdateStatus(id, input.Status)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.errorResponse(w, r, http.StatusNotFound, "user not found")
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"id": id, "status": input.Status}, nil)

	case http.MethodDelete:
		id, err := resolveID(r, route)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		err = app.models.Users.Delete(id)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.errorResponse(w, r, http.StatusNotFound, "user not found")
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
