package main

import (
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/felixge/httpsnoop"
	"github.com/tomasen/realip"
	"golang.org/x/time/rate"

	"dearcard.kr/internal/token"
)

// Auth resolution failure modes. Handlers map these onto the two 401
// responses; anything beyond "missing" or "invalid" is deliberately not
// distinguished for the client.
var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid bearer token")
)

// resolveClaims extracts and verifies the bearer credential of a request.
// Handlers call it only on the operations that need authentication, so a
// stale token in a request to a public-write endpoint does no harm.
func (app *application) resolveClaims(r *http.Request) (token.Claims, error) {
	authorizationHeader := r.Header.Get("Authorization")
	if authorizationHeader == "" {
		return token.Claims{}, errMissingToken
	}

	headerParts := strings.Split(authorizationHeader, " ")
	if len(headerParts) != 2 || headerParts[0] != "Bearer" {
		return token.Claims{}, errInvalidToken
	}

	claims, legacy, err := token.Verify([]byte(app.config.jwt.secret), headerParts[1], app.config.jwt.legacyTokens)
	if err != nil {
		return token.Claims{}, errInvalidToken
	}

	// Legacy tokens carry no signature, so every acceptance is worth a log
	// line while the migration window is open.
	if legacy {
		app.logger.PrintInfo("accepted unsigned legacy token", map[string]string{
			"subject": claims.SubjectID,
			"role":    claims.Role,
		})
	}

	return claims, nil
}

// requireClaims resolves the bearer credential and writes the appropriate 401
// when it is missing or invalid. The boolean tells the caller whether to
// continue.
func (app *application) requireClaims(w http.ResponseWriter, r *http.Request) (token.Claims, bool) {
	claims, err := app.resolveClaims(r)
	if err != nil {
		switch {
		case errors.Is(err, errMissingToken):
			app.authenticationRequiredResponse(w, r)
		default:
			app.invalidAuthenticationTokenResponse(w, r)
		}
		return token.Claims{}, false
	}
	return claims, true
}

// requireAdmin is requireClaims plus an admin role check.
func (app *application) requireAdmin(w http.ResponseWriter, r *http.Request) (token.Claims, bool) {
	claims, ok := app.requireClaims(w, r)
	if !ok {
		return token.Claims{}, false
	}
	if !claims.IsAdmin() {
		app.notPermittedResponse(w, r)
		return token.Claims{}, false
	}
	return claims, true
}

// recoverPanic converts any panic escaping a handler into a 500 envelope, so
// the process never emits a malformed response.
func (app *application) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// enableCORS opens the API to any origin. The invitation pages are embedded
// on a hosting platform whose preview and production domains vary per page,
// so the origin list cannot be pinned. OPTIONS preflights are answered here
// and never reach a handler.
func (app *application) enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// rateLimit throttles clients per IP with a token bucket, evicting buckets
// not seen for a few minutes.
func (app *application) rateLimit(next http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			for ip, client := range clients {
				if time.Since(client.lastSeen) > 3*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if app.config.limiter.enabled {
			ip := realip.FromRequest(r)
			mu.Lock()
			if _, found := clients[ip]; !found {
				clients[ip] = &client{
					limiter: rate.NewLimiter(rate.Limit(app.config.limiter.rps), app.config.limiter.burst),
				}
			}
			clients[ip].lastSeen = time.Now()
			if !clients[ip].limiter.Allow() {
				mu.Unlock()
				app.rateLimitExceededResponse(w, r)
				return
			}
			mu.Unlock()
		}
		next.ServeHTTP(w, r)
	})
}

// Registered once at package level: expvar panics on duplicate names, and
// tests build more than one middleware chain per process.
var (
	totalRequestsReceived           = expvar.NewInt("total_requests_received")
	totalResponsesSent              = expvar.NewInt("total_responses_sent")
	totalProcessingTimeMicroseconds = expvar.NewInt("total_processing_time_μs")
	totalResponsesSentByStatus      = expvar.NewMap("total_responses_sent_by_status")
)

// metrics publishes request counters and processing time through expvar.
func (app *application) metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		totalRequestsReceived.Add(1)

		metrics := httpsnoop.CaptureMetrics(next, w, r)

		totalResponsesSent.Add(1)
		totalProcessingTimeMicroseconds.Add(metrics.Duration.Microseconds())
		totalResponsesSentByStatus.Add(strconv.Itoa(metrics.Code), 1)
	})
}
