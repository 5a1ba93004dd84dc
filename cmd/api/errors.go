package main

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// logError records an error together with the request that caused it.
func (app *application) logError(r *http.Request, err error) {
	app.logger.PrintError(err, map[string]string{
		"request_method": r.Method,
		"request_url":    r.URL.String(),
	})
}

// errorResponse writes the failure envelope with the given status and message.
func (app *application) errorResponse(w http.ResponseWriter, r *http.Request, status int, message string) {
	env := envelope{"success": false, "error": message}

	err := app.writeJSON(w, status, env, nil)
	if err != nil {
		app.logError(r, err)
		w.WriteHeader(500)
	}
}

// serverErrorResponse logs an unexpected error and surfaces its message in a
// 500 envelope. Backing-store errors are terminal here: nothing in this layer
// retries.
func (app *application) serverErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.logError(r, err)
	app.errorResponse(w, r, http.StatusInternalServerError, err.Error())
}

// notFoundResponse handles paths outside the API surface.
func (app *application) notFoundResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusNotFound, "the requested resource could not be found")
}

// methodNotAllowedResponse rejects verbs a resource does not support.
func (app *application) methodNotAllowedResponse(w http.ResponseWriter, r *http.Request) {
	message := fmt.Sprintf("the %s method is not supported for this resource", r.Method)
	app.errorResponse(w, r, http.StatusMethodNotAllowed, message)
}

// unknownActionResponse rejects an action name the resource does not know.
func (app *application) unknownActionResponse(w http.ResponseWriter, r *http.Request, action string) {
	message := fmt.Sprintf("unknown action %q for this resource", action)
	app.errorResponse(w, r, http.StatusNotFound, message)
}

// badRequestResponse rejects a request whose body or parameters could not be
// read.
func (app *application) badRequestResponse(w http.ResponseWriter, r *http.Request, err error) {
	app.errorResponse(w, r, http.StatusBadRequest, err.Error())
}

// failedValidationResponse flattens field errors into one deterministic
// message, keeping the envelope's error a plain string.
func (app *application) failedValidationResponse(w http.ResponseWriter, r *http.Request, errors map[string]string) {
	fields := make([]string, 0, len(errors))
	for field := range errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, field+" "+errors[field])
	}

	app.errorResponse(w, r, http.StatusUnprocessableEntity, strings.Join(parts, "; "))
}

// rateLimitExceededResponse rejects a throttled client.
func (app *application) rateLimitExceededResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusTooManyRequests, "rate limit exceeded")
}

// invalidCredentialsResponse rejects a failed login. The message stays vague
// so it reveals nothing about which part of the credentials was wrong.
func (app *application) invalidCredentialsResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusUnauthorized, "invalid credentials")
}

// authenticationRequiredResponse rejects a request with no bearer credential.
func (app *application) authenticationRequiredResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.errorResponse(w, r, http.StatusUnauthorized, "unauthorized")
}

// invalidAuthenticationTokenResponse rejects a bearer credential that failed
// verification, without detailing why.
func (app *application) invalidAuthenticationTokenResponse(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	app.errorResponse(w, r, http.StatusUnauthorized, "invalid token")
}

// accountNotApprovedResponse rejects a login from an account still pending
// approval or already rejected.
func (app *application) accountNotApprovedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusForbidden, "account is not approved")
}

// notPermittedResponse rejects an authenticated caller without the required
// role or ownership.
func (app *application) notPermittedResponse(w http.ResponseWriter, r *http.Request) {
	app.errorResponse(w, r, http.StatusForbidden, "you do not have permission to perform this action")
}
