package main

import (
	"errors"
	"net/http"
	"strconv"

	"dearcard.kr/internal/data"
	"dearcard.kr/internal/validator"
)

// rsvpHandler records guest attendance. Submission is a public-facing guest
// action and deliberately requires no login; deletion is reserved for the
// page owner.
func (app *application) rsvpHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	switch r.Method {
	case http.MethodGet:
		pageID := app.readString(r.URL.Query(), "pageId", "")
		if pageID == "" {
			app.badRequestResponse(w, r, errors.New("pageId must be provided"))
			return
		}

		responses, err := app.models.RSVPs.GetAllForPage(pageID)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"responses": responses}, noStoreHeaders())

	case http.MethodPost:
		var input struct {
			PageID       string `json:"page_id"`
			Name         string `json:"name"`
			RelationType string `json:"relation_type"`
			GuestCount   int    `json:"guest_count"`
			Phone        string `json:"phone"`
			Message      string `json:"message"`
		}

		err := app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		// Guests who don't pick a head count are counted as themselves.
		if input.GuestCount == 0 {
			input.GuestCount = 1
		}

		rsvp := &data.RSVP{
			PageID:       input.PageID,
			Name:         input.Name,
			RelationType: input.RelationType,
			GuestCount:   input.GuestCount,
			Phone:        input.Phone,
			Message:      input.Message,
		}

		v := validator.New()
		if data.ValidateRSVP(v, rsvp); !v.Valid() {
			app.failedValidationResponse(w, r, v.Errors)
			return
		}
		if rsvp.Phone != "" {
			v.Check(validator.Matches(rsvp.Phone, validator.PhoneRX), "phone", "must be a valid phone number")
			if !v.Valid() {
				app.failedValidationResponse(w, r, v.Errors)
				return
			}
		}

		err = app.models.RSVPs.Insert(rsvp)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		app.notifyRSVP(rsvp)

		app.writeSuccess(w, r, http.StatusCreated, map[string]interface{}{"rsvp": rsvp}, nil)

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

		err = app.models.RSVPs.Delete(id, pageScope)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				app.errorResponse(w, r, http.StatusNotFound, "rsvp response not found")
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

// notifyRSVP emails the page owner about a new response, if the page has an
// owner with an email address and SMTP is configured. Failure here never
// affects the guest's request.
func (app *application) notifyRSVP(rsvp *data.RSVP) {
	if app.config.smtp.host == "" {
		return
	}

	pageID := rsvp.PageID
	name := rsvp.Name
	relationType := rsvp.RelationType
	guestCount := rsvp.GuestCount

	app.background(func() {
		owner, err := app.models.Users.GetByPage(pageID)
		if err != nil || owner.Email == "" {
			return
		}

		payload := map[string]interface{}{
			"pageID":       pageID,
			"name":         name,
			"relationType": relationType,
			"guestCount":   strconv.Itoa(guestCount),
		}
		err = app.mailer.Send(owner.Email, "rsvp_notification.tmpl", payload)
		if err != nil {
			app.logger.PrintError(err, nil)
		}
	})
}
