package main

import (
	"errors"
	"net/http"

	"dearcard.kr/internal/data"
)

// mapConfigHandler serves the map SDK keys the frontend needs at load time,
// optionally bundled with the page's venue coordinates so the map can render
// in a single round trip.
func (app *application) mapConfigHandler(w http.ResponseWriter, r *http.Request, route routeInfo) {
	if r.Method != http.MethodGet {
		app.methodNotAllowedResponse(w, r)
		return
	}

	payload := map[string]interface{}{
		"naver_client_id": app.config.maps.naverClientID,
		"kakao_app_key":   app.config.maps.kakaoAppKey,
	}

	pageID := app.readString(r.URL.Query(), "pageId", "")
	if pageID != "" {
		settings, err := app.models.Settings.GetByPage(pageID)
		switch {
		case err == nil:
			payload["venue_name"] = settings.VenueName
			payload["venue_address"] = settings.VenueAddress
			payload["venue_lat"] = settings.VenueLat
			payload["venue_lng"] = settings.VenueLng
		case errors.Is(err, data.ErrRecordNotFound):
			// An unconfigured page still gets the keys.
		default:
			app.serverErrorResponse(w, r, err)
			return
		}
	}

	app.writeSuccess(w, r, http.StatusOK, payload, nil)
}
