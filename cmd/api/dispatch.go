package main

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

// routeInfo is the parsed form of an /api/{resource}[/{actionOrId}] path. It
// is built once per request and handed to exactly one handler.
type routeInfo struct {
	Resource   string
	ActionOrID string
}

// resourceHandler is the shape every resource handler shares.
type resourceHandler func(w http.ResponseWriter, r *http.Request, route routeInfo)

// parseRoute extracts routeInfo from the router parameters. A bare /api
// request maps to the ping resource.
func parseRoute(r *http.Request) routeInfo {
	params := httprouter.ParamsFromContext(r.Context())

	route := routeInfo{
		Resource:   params.ByName("resource"),
		ActionOrID: params.ByName("actionOrId"),
	}
	if route.Resource == "" {
		route.Resource = "ping"
	}
	return route
}

// dispatchTable maps resource names to their handlers. Unknown resources fall
// through to the health check in dispatch rather than a 404, which keeps
// uptime probes against arbitrary paths cheap and harmless.
func (app *application) dispatchTable() map[string]resourceHandler {
	return map[string]resourceHandler{
		"ping":          app.pingHandler,
		"auth":          app.authHandler,
		"users":         app.usersHandler,
		"images":        app.imagesHandler,
		"rsvp":          app.rsvpHandler,
		"calendar":      app.calendarHandler,
		"contacts":      app.contactsHandler,
		"page-settings": app.pageSettingsHandler,
		"invite":        app.inviteHandler,
		"comments":      app.commentsHandler,
		"transport":     app.transportHandler,
		"map-config":    app.mapConfigHandler,
	}
}

// dispatch is the single entry point behind the router: parse the route, look
// up the resource handler, fall back to ping.
func (app *application) dispatch(w http.ResponseWriter, r *http.Request) {
	route := parseRoute(r)

	handler, ok := app.handlers[route.Resource]
	if !ok {
		handler = app.pingHandler
	}
	handler(w, r, route)
}
