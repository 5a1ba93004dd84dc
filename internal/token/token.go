// Package token issues and verifies the bearer credentials accepted by the
// API. Two formats are in circulation: HS256-signed JWTs issued by this
// service, and an older unsigned base64 JSON blob that pre-dates token
// signing. Signed verification is always attempted first; the legacy format
// is accepted only as a fallback while old clients are migrated off it.
package token

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pascaldekloe/jwt"
)

// ErrInvalidToken is returned when a credential fails both the signed and the
// legacy decode paths, or when required claims are missing or expired.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the identity payload carried by a verified credential. It lives
// for a single request and is never persisted.
type Claims struct {
	SubjectID string // Identifier of the authenticated account.
	Role      string // Either "admin" or "user".
	PageID    string // The wedding page this account owns, empty for admins.
}

// IsAdmin reports whether the claims carry the admin role.
func (c Claims) IsAdmin() bool {
	return c.Role == "admin"
}

// Issue signs a new JWT for the given claims, valid for ttl from now.
func Issue(secret []byte, claims Claims, ttl time.Duration) (string, error) {
	var c jwt.Claims
	c.Subject = claims.SubjectID
	c.Issued = jwt.NewNumericTime(time.Now())
	c.NotBefore = jwt.NewNumericTime(time.Now())
	c.Expires = jwt.NewNumericTime(time.Now().Add(ttl))
	c.Set = map[string]interface{}{
		"role":    claims.Role,
		"page_id": claims.PageID,
	}

	signed, err := c.HMACSign(jwt.HS256, secret)
	if err != nil {
		return "", err
	}
	return string(signed), nil
}

// Verify resolves a raw bearer credential into Claims. The HMAC-signed format
// is checked first; if signature verification fails and allowLegacy is set,
// the credential is retried as a legacy base64 token. The returned legacy
// flag tells the caller which path succeeded, so acceptance of the weaker
// format can be surfaced in logs.
func Verify(secret []byte, raw string, allowLegacy bool) (Claims, bool, error) {
	c, err := jwt.HMACCheck([]byte(raw), secret)
	if err == nil {
		// The signature is ours. A stale or not-yet-valid token is rejected
		// outright rather than falling through to the legacy decoder.
		if !c.Valid(time.Now()) {
			return Claims{}, false, ErrInvalidToken
		}
		claims := Claims{SubjectID: c.Subject}
		if role, ok := c.String("role"); ok {
			claims.Role = role
		}
		if pageID, ok := c.String("page_id"); ok {
			claims.PageID = pageID
		}
		return claims, false, nil
	}

	if !allowLegacy {
		return Claims{}, false, ErrInvalidToken
	}

	claims, err := decodeLegacy(raw)
	if err != nil {
		return Claims{}, false, ErrInvalidToken
	}
	return claims, true, nil
}

// legacyToken mirrors the unsigned JSON blob issued before token signing was
// introduced. Nothing in it is cryptographically bound; it is trusted at face
// value when unexpired. The page id appears under two different keys
// depending on which client version minted the token.
type legacyToken struct {
	UserID    interface{} `json:"userId"`
	Username  string      `json:"username"`
	Expires   int64       `json:"expires"` // Epoch milliseconds.
	Role      string      `json:"role"`
	PageID    string      `json:"pageId"`
	PageIDAlt string      `json:"page_id"`
}

// decodeLegacy decodes a legacy base64 JSON token, validating the presence of
// the required fields and that the expiry is still in the future.
func decodeLegacy(raw string) (Claims, error) {
	decoded, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		// Some legacy clients strip the padding.
		decoded, err = base64.RawStdEncoding.DecodeString(raw)
		if err != nil {
			return Claims{}, ErrInvalidToken
		}
	}

	var legacy legacyToken
	if err := json.Unmarshal(decoded, &legacy); err != nil {
		return Claims{}, ErrInvalidToken
	}

	if legacy.UserID == nil || legacy.Username == "" || legacy.Expires == 0 {
		return Claims{}, ErrInvalidToken
	}
	if time.Now().UnixMilli() >= legacy.Expires {
		return Claims{}, ErrInvalidToken
	}

	claims := Claims{
		SubjectID: formatSubject(legacy.UserID),
		Role:      legacy.Role,
		PageID:    legacy.PageID,
	}
	if claims.Role == "" {
		claims.Role = "user"
	}
	if claims.PageID == "" {
		claims.PageID = legacy.PageIDAlt
	}
	return claims, nil
}

// formatSubject normalises the legacy userId field, which old clients encoded
// as either a JSON number or a string.
func formatSubject(v interface{}) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return fmt.Sprintf("%.0f", id)
	default:
		return fmt.Sprintf("%v", id)
	}
}
