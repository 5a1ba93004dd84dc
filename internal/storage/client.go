// Package storage is a thin client for the hosted object-storage HTTP API
// that holds the gallery image blobs. The service authenticates with a
// service-role key; browsers never talk to this package directly, they either
// fetch public object URLs or upload through a signed URL minted here.
package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client performs object operations against one bucket of the storage API.
type Client struct {
	baseURL    string
	serviceKey string
	bucket     string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client, used by tests to point the client
// at an httptest server with tight timeouts.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// New returns a Client for the bucket behind baseURL. baseURL is the API root
// up to and including the storage prefix, e.g. "https://x.supabase.co/storage/v1".
func New(baseURL, serviceKey, bucket string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		bucket:     bucket,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Error is a non-2xx reply from the storage API.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage: %s (status %d)", e.Message, e.StatusCode)
}

// SignUploadURL asks the storage API for a short-lived URL that a browser can
// upload objectPath to directly, keeping image bytes off this service's
// request path.
func (c *Client) SignUploadURL(ctx context.Context, objectPath string) (string, error) {
	endpoint := fmt.Sprintf("%s/object/upload/sign/%s/%s", c.baseURL, c.bucket, escapePath(objectPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader("{}"))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", decodeError(resp)
	}

	// The API returns the signed URL relative to the storage root.
	var body struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	if body.URL == "" {
		return "", &Error{StatusCode: resp.StatusCode, Message: "empty signed url in response"}
	}
	if strings.HasPrefix(body.URL, "http://") || strings.HasPrefix(body.URL, "https://") {
		return body.URL, nil
	}
	return c.baseURL + "/" + strings.TrimLeft(body.URL, "/"), nil
}

// Upload writes data to objectPath, replacing any existing object. Used for
// the direct base64 upload fallback when a client cannot use signed URLs.
func (c *Client) Upload(ctx context.Context, objectPath, contentType string, data []byte) error {
	endpoint := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, escapePath(objectPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// Delete removes the object at objectPath.
func (c *Client) Delete(ctx context.Context, objectPath string) error {
	endpoint := fmt.Sprintf("%s/object/%s/%s", c.baseURL, c.bucket, escapePath(objectPath))

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return decodeError(resp)
	}
	io.Copy(io.Discard, resp.Body)
	return nil
}

// PublicURL returns the unauthenticated read URL of objectPath. The bucket is
// public for reads; only writes require credentials.
func (c *Client) PublicURL(objectPath string) string {
	return fmt.Sprintf("%s/object/public/%s/%s", c.baseURL, c.bucket, escapePath(objectPath))
}

// escapePath percent-encodes each segment of an object path while keeping the
// segment separators.
func escapePath(objectPath string) string {
	segments := strings.Split(strings.Trim(objectPath, "/"), "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return strings.Join(segments, "/")
}

func decodeError(resp *http.Response) error {
	storageErr := &Error{StatusCode: resp.StatusCode, Message: resp.Status}

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, 4096)).Decode(&body); err == nil {
		switch {
		case body.Message != "":
			storageErr.Message = body.Message
		case body.Error != "":
			storageErr.Message = body.Error
		}
	}
	return storageErr
}
