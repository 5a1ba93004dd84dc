package main

import (
	"errors"
	"net/http"

	"dearcard.kr/internal/data"
)

// inviteHandler serves and updates the invitation-text block. A page with no
// saved invitation gets the stock greeting and the default child labels, so
// a brand-new page renders sensibly.
func (app *application) inviteHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	switch r.Method {
	case http.MethodGet:
		pageID := app.readString(r.URL.Query(), "pageId", "")
		if pageID == "" {
			app.badRequestResponse(w, r, errors.New("pageId must be provided"))
			return
		}

		card, err := app.models.Invites.GetByPage(pageID)
		switch {
		case err == nil:
		case errors.Is(err, data.ErrRecordNotFound):
			card = data.DefaultInviteCard(pageID)
		default:
			app.serverErrorResponse(w, r, err)
			return
		}

		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"invite": card}, noStoreHeaders())

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

		fields := data.FilterAllowedFields(body, data.InviteAllowedFields)
		if len(fields) == 0 {
			app.badRequestResponse(w, r, errors.New("no valid invite fields in request body"))
			return
		}

		card, err := app.models.Invites.Upsert(claims.PageID, fields)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"invite": card}, nil)

	default:
		app.methodNotAllowedResponse(w, r)
	}
}
