package main

import (
	"errors"
	"net/http"

	"dearcard.kr/internal/data"
	"dearcard.kr/internal/validator"
)

// commentsHandler serves the public guestbook. Anyone can read and write;
// deleting takes either the entry's own password or an authenticated owner
// or admin.
func (app *application) commentsHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	switch r.Method {
	case http.MethodGet:
		app.commentsList(w, r)
	case http.MethodPost:
		app.commentsCreate(w, r)
	case http.MethodDelete:
		app.commentsDelete(w, r, route)
	default:
		app.methodNotAllowedResponse(w, r)
	}
}

func (app *application) commentsList(w http.ResponseWriter, r *http.Request) {
	v := validator.New()
	qs := r.URL.Query()

	pageID := app.readString(qs, "pageId", "")
	if pageID == "" {
		app.badRequestResponse(w, r, errors.New("pageId must be provided"))
		return
	}

	var filters data.Filters
	filters.Page = app.readInt(qs, "page", 1, v)
	filters.PageSize = app.readInt(qs, "pageSize", 20, v)

	if data.ValidateFilters(v, filters); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	comments, metadata, err := app.models.Comments.GetAllForPage(pageID, filters)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	if comments == nil {
		comments = []*data.Comment{}
	}

	app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{
		"comments": comments,
		"metadata": metadata,
	}, noStoreHeaders())
}

func (app *application) commentsCreate(w http.ResponseWriter, r *http.Request) {
	var input struct {
		PageID   string `json:"page_id"`
		Name     string `json:"name"`
		Content  string `json:"content"`
		Password string `json:"password"`
	}

	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	comment := &data.Comment{
		PageID:  input.PageID,
		Name:    input.Name,
		Content: input.Content,
	}

	v := validator.New()
	if data.ValidateComment(v, comment); !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	if input.Password != "" {
		err = comment.Password.Set(input.Password)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	err = app.models.Comments.Insert(comment)
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}

	app.writeSuccess(w, r, http.StatusCreated, map[string]interface{}{"comment": comment}, nil)
}

func (app *application) commentsDelete(w http.ResponseWriter, r *http.Request, route routeInfo) {
	id, err := resolveID(r, route)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Password string `json:"password"`
	}
	err = app.readOptionalJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	if input.Password == "" {
		input.Password = r.URL.Query().Get("password")
	}

	comment, err := app.models.Comments.Get(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	// A matching entry password is enough. Otherwise the caller must be the
	// page owner or an admin.
	authorized := false
	if input.Password != "" && comment.Password.Stored() != "" {
		match, err := comment.Password.Matches(input.Password)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}
		authorized = match
	}
	if !authorized {
		if input.Password != "" && r.Header.Get("Authorization") == "" {
			app.invalidCredentialsResponse(w, r)
			return
		}
		claims, ok := app.requireClaims(w, r)
		if !ok {
			return
		}
		if !claims.IsAdmin() && claims.PageID != comment.PageID {
			app.notPermittedResponse(w, r)
			return
		}
	}

	err = app.models.Comments.Delete(id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrRecordNotFound):
			app.notFoundResponse(w, r)
		default:
			app.serverErrorResponse(w, r, err)
		}
		return
	}

	app.writeSuccess(w, r, http.StatusOK, map[string]interface{}{"deleted": true}, nil)
}
