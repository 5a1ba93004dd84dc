package main

import (
	"expvar"
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routes builds the router and the middleware chain. All API traffic enters
// through the two parameterised patterns and is fanned out by the dispatch
// table; the router itself never needs to know the resource names.
func (app *application) routes() http.Handler {
	router := httprouter.New()

	router.NotFound = http.HandlerFunc(app.notFoundResponse)
	router.MethodNotAllowed = http.HandlerFunc(app.methodNotAllowedResponse)

	for _, method := range []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete} {
		router.HandlerFunc(method, "/api", app.dispatch)
		router.HandlerFunc(method, "/api/:resource", app.dispatch)
		router.HandlerFunc(method, "/api/:resource/:actionOrId", app.dispatch)
	}

	router.Handler(http.MethodGet, "/debug/vars", expvar.Handler())

	app.handlers = app.dispatchTable()

	// Panic recovery sits outermost so every failure still produces a JSON
	// envelope; CORS runs before the limiter so even throttled responses
	// carry the headers browsers need.
	return app.metrics(
		app.recoverPanic(
			app.enableCORS(
				app.rateLimit(router))))
}
