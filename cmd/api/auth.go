package main

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"dearcard.kr/internal/data"
	"dearcard.kr/internal/token"
	"dearcard.kr/internal/validator"
)

// authHandler covers login, registration and claims introspection. Login and
// registration are POST actions; "me" answers GET with the claims of the
// presented token.
func (app *application) authHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	switch r.Method {
	case http.MethodGet:
		action := resolveAction(r, route, "")
		if action != "me" {
			app.unknownActionResponse(w, r, action)
			return
		}
		app.authMe(w, r)
	case http.MethodPost:
		var input struct {
			Action   string `json:"action"`
			Username string `json:"username"`
			Password string `json:"password"`
			Email    string `json:"email"`
			PageID   string `json:"page_id"`
		}

		err := app.readJSON(w, r, &input)
		if err != nil {
			app.badRequestResponse(w, r, err)
			return
		}

		// A bare POST /api/auth is a login; old clients never send an action
		// for it.
		action := resolveAction(r, route, input.Action)
		if action == "" {
			action = "login"
		}

		switch action {
		case "login":
			app.authLogin(w, r, input.Username, input.Password)
		case "register":
			app.authRegister(w, r, input.Username, input.Password, input.Email, input.PageID)
		case "me":
			app.authMe(w, r)
		default:
			app.unknownActionResponse(w, r, action)
		}
	default:
		app.methodNotAllowedResponse(w, r)
	}
}

// authLogin checks the credentials and issues a signed token. Accounts must
// be approved before they can log in.
func (app *application) authLogin(w http.ResponseWriter, r *http.Request, username, password string) {
	v := validator.New()
	v.Check(username != "", "username", "must be provided")
	v.Check(password != "", "password", "must be provided")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	user, err := app.models.Users.GetByUsername(username)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.invalidCredentialsResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	match, err := user.Password.Matches(password)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if !match {
		app.invalidCredentialsResponse(w, r)
		return
	}

	if user.Status != data.StatusApproved {
		app.accountNotApprovedResponse(w, r)
		return
	}

	claims := token.Claims{
		SubjectID: strconv.FormatInt(user.ID, 10),
		Role:      user.Role,
		PageID:    user.PageID,
	}

	signed, err := token.Issue([]byte(app.config.jwt.secret), claims, 24*time.Hour)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{
		"token": signed,
		"user": map[string]interface{}{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
			"page_id":  user.PageID,
		},
	}, nil)
}

// authRegister inserts a pending account and notifies the service admin, who
// approves or rejects it out of band.
func (app *application) authRegister(w http.ResponseWriter, r *http.Request, username, password, email, pageID string) {
	user := &data.AdminUser{
		Username: username,
		Email:    email,
		Role:     "user",
		Status:   data.StatusPending,
		PageID:   pageID,
	}

	if password != "" {
		err := user.Password.Set(password)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	v := validator.New()
	v.Check(password != "", "password", "must be provided")
	if v.Valid() {
		data.ValidateUser(v, user)
	}
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	err := app.models.Users.Insert(user)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrDuplicateUsername):
			v.AddError("username", "is already taken")
			app.failedValidationResponse(w, r, v.Errors)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	if app.config.notify.adminEmail != "" {
		app.background(func() {
			payload := map[string]interface{}{
				"username": user.Username,
				"email":    user.Email,
				"pageID":   user.PageID,
			}
			err := app.mailer.Send(app.config.notify.adminEmail, "user_registered.tmpl", payload)
			if err != nil {
				app.logger.PrintError(err, nil)
			}
		})
	}

	app.writeSuccess(w, r, http.StatusCreated, map[string]interface{}{"user": user}, nil)
}

// authMe echoes the claims of the presented token, for client-side session
// introspection.
func (app *application) authMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := app.requireClaims(w, r)
	if !ok {
		return
	}

	app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{
		"user_id": claims.SubjectID,
		"role":    claims.Role,
		"page_id": claims.PageID,
	}, nil)
}
