package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"dearcard.kr/internal/validator"
)

// envelope is the uniform response contract: success plus exactly one of
// data or error.
type envelope map[string]interface{}

// writeJSON marshals an envelope to the response with the given status and
// optional extra headers.
func (app *application) writeJSON(w http.ResponseWriter, status int, data envelope, headers http.Header) error {
	js, err := json.MarshalIndent(data, "", "\t")
	if err != nil {
		return err
	}
	js = append(js, '\n')

	for key, value := range headers {
		w.Header()[key] = value
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(js)
	return nil
}

// writeSuccess writes the success envelope around data.
func (app *application) writeSuccess(w http.ResponseWriter, r *http.Request, status int, data interface{}, headers http.Header) {
	err := app.writeJSON(w, status, envelope{"success": true, "data": data}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// readJSON decodes the request body into dst, translating the decoder's
// errors into messages a client can act on. Unknown fields are rejected
// unless dst is a map, which the allow-listing handlers rely on.
func (app *application) readJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	maxBytes := 10_485_760 // Base64 direct uploads make the bodies big.
	r.Body = http.MaxBytesReader(w, r.Body, int64(maxBytes))

	dec := json.NewDecoder(r.Body)
	if _, isMap := dst.(*map[string]interface{}); !isMap {
		dec.DisallowUnknownFields()
	}

	err := dec.Decode(dst)
	if err != nil {
		var syntaxError *json.SyntaxError
		var unmarshalTypeError *json.UnmarshalTypeError
		var invalidUnmarshalError *json.InvalidUnmarshalError

		switch {
		case errors.As(err, &syntaxError):
			return fmt.Errorf("body contains badly-formed JSON (at character %d)", syntaxError.Offset)
		case errors.Is(err, io.ErrUnexpectedEOF):
			return errors.New("body contains badly-formed JSON")
		case errors.As(err, &unmarshalTypeError):
			if unmarshalTypeError.Field != "" {
				return fmt.Errorf("body contains incorrect JSON type for field %q", unmarshalTypeError.Field)
			}
			return fmt.Errorf("body contains incorrect JSON type (at character %d)", unmarshalTypeError.Offset)
		case errors.Is(err, io.EOF):
			return errors.New("body must not be empty")
		case strings.HasPrefix(err.Error(), "json: unknown field "):
			fieldName := strings.TrimPrefix(err.Error(), "json: unknown field ")
			return fmt.Errorf("body contains unknown key %s", fieldName)
		case err.Error() == "http: request body too large":
			return fmt.Errorf("body must not be larger than %d bytes", maxBytes)
		case errors.As(err, &invalidUnmarshalError):
			panic(err)
		default:
			return err
		}
	}

	err = dec.Decode(&struct{}{})
	if err != io.EOF {
		return errors.New("body must only contain a single JSON value")
	}
	return nil
}

// readOptionalJSON is readJSON for requests where the body may legitimately be
// absent, such as DELETEs that can carry their parameters in the query string.
func (app *application) readOptionalJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	err := app.readJSON(w, r, dst)
	if err != nil && err.Error() == "body must not be empty" {
		return nil
	}
	return err
}

// resolveAction returns the effective action of a request. Precedence is
// fixed: the path's second segment wins, then the action query parameter,
// then the action field of an already-decoded body.
func resolveAction(r *http.Request, route routeInfo, bodyAction string) string {
	if route.ActionOrID != "" {
		return route.ActionOrID
	}
	if action := r.URL.Query().Get("action"); action != "" {
		return action
	}
	return bodyAction
}

// resolveID parses a numeric id from the path segment, falling back to the
// "id" query parameter.
func resolveID(r *http.Request, route routeInfo) (int64, error) {
	raw := route.ActionOrID
	if raw == "" {
		raw = r.URL.Query().Get("id")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, errors.New("invalid id parameter")
	}
	return id, nil
}

// readString reads a string query parameter with a default.
func (app *application) readString(qs url.Values, key string, defaultValue string) string {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}
	return s
}

// readInt reads an integer query parameter with a default, recording a
// validation error for non-numeric values.
func (app *application) readInt(qs url.Values, key string, defaultValue int, v *validator.Validator) int {
	s := qs.Get(key)
	if s == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(s)
	if err != nil {
		v.AddError(key, "must be an integer value")
		return defaultValue
	}
	return i
}

// noStoreHeaders marks a response as uncacheable. Read endpoints over
// frequently edited tables use it so guests never see stale data after an
// edit.
func noStoreHeaders() http.Header {
	headers := make(http.Header)
	headers.Set("Cache-Control", "no-store, no-cache, must-revalidate")
	headers.Set("Pragma", "no-cache")
	return headers
}

// appendVersion appends a v=<unix> cache-busting parameter to a URL, so that
// replacing an object behind a stable URL is immediately visible without any
// client-side cache invalidation.
func appendVersion(rawURL string, t time.Time) string {
	if rawURL == "" {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + "v=" + strconv.FormatInt(t.Unix(), 10)
}

// background runs fn on a tracked goroutine, recovering panics so a failed
// notification never takes the server down.
func (app *application) background(fn func()) {
	app.wg.Add(1)

	go func() {
		defer app.wg.Done()

		defer func() {
			if err := recover(); err != nil {
				app.logger.PrintError(fmt.Errorf("%s", err), nil)
			}
		}()

		fn()
	}()
}
