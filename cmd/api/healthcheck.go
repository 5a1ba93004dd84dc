package main

import (
	"net/http"
)

// pingHandler reports service health. It also backs the dispatch fallback for
// unknown resources, so any probe against the API surface gets a cheap,
// harmless answer.
func (app *application) pingHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	data := map[string]interface{}{
		"status":      "available",
		"environment": app.config.env,
		"version":     version,
	}

	app.writeSuccess(w, r, http.StatusOK, data, nil)
}
