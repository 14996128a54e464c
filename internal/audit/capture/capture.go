// Package capture snapshots request and response attributes at the two ends
// of the request lifecycle. Snapshots are immutable once built and owned by
// the single pipeline invocation that created them.
package capture

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mssola/useragent"

	"taskboard/internal/audit/geo"
	"taskboard/internal/audit/sanitize"
	"taskboard/pkg/requestcontext"
)

// maxBodyBytes bounds how much of a request or response body is read for
// auditing. Larger bodies are captured as nil rather than buffered.
const maxBodyBytes = 64 * 1024

// Device is derived from the User-Agent string, best-effort.
type Device struct {
	Browser  string `json:"browser"`
	OS       string `json:"os"`
	Platform string `json:"platform"` // "desktop", "mobile" or "bot"
}

// RequestSnapshot is the immutable request-side capture.
type RequestSnapshot struct {
	RequestID      string
	Method         string
	Path           string
	Query          url.Values
	Headers        http.Header
	ClientIP       string
	UserAgent      string
	Device         *Device
	Location       *geo.Location
	UserID         string
	SessionID      string
	OrganizationID string
	Body           any
	Timestamp      time.Time
}

// ResponseSnapshot is the immutable response-side capture.
type ResponseSnapshot struct {
	StatusCode    int
	StatusText    string
	Headers       http.Header
	ContentLength int64
	ContentType   string
	DurationMS    int64
	Body          any
	Timestamp     time.Time
}

// Capturer projects live requests/responses into snapshots. Enrichment
// (user-agent parsing, geolocation) is best-effort: failures leave the
// corresponding fields nil and never abort the capture.
type Capturer struct {
	sanitizer *sanitize.Sanitizer
	geo       geo.Provider
}

func New(sanitizer *sanitize.Sanitizer, geoProvider geo.Provider) *Capturer {
	if geoProvider == nil {
		geoProvider = geo.NopProvider{}
	}
	return &Capturer{sanitizer: sanitizer, geo: geoProvider}
}

// Request builds a RequestSnapshot. The request body is read and restored so
// downstream handlers observe it untouched; bodies that fail to parse as
// JSON snapshot as nil.
func (c *Capturer) Request(r *http.Request) *RequestSnapshot {
	ctx := r.Context()

	requestID := requestcontext.RequestID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}

	body := c.readRequestBody(r)
	sanitizedBody := c.sanitizer.Body(body, r.URL.Path)

	snapshot := &RequestSnapshot{
		RequestID:      requestID,
		Method:         r.Method,
		Path:           r.URL.Path,
		Query:          normalizeQuery(r.URL.Query()),
		Headers:        c.sanitizer.Headers(r.Header),
		ClientIP:       requestcontext.ClientIP(ctx),
		UserAgent:      requestcontext.UserAgent(ctx),
		UserID:         requestcontext.UserID(ctx),
		SessionID:      requestcontext.SessionID(ctx),
		OrganizationID: resolveOrganizationID(ctx, body),
		Body:           sanitizedBody,
		Timestamp:      requestcontext.Now(ctx),
	}

	snapshot.Device = parseDevice(snapshot.UserAgent)
	if snapshot.ClientIP != "" {
		snapshot.Location = c.geo.Lookup(snapshot.ClientIP)
	}

	return snapshot
}

// Response builds a ResponseSnapshot from a finished Recorder. A request
// aborted before any write snapshots with the recorder's zero state; the
// capture degrades instead of waiting for a response that will not arrive.
func (c *Capturer) Response(rec *Recorder, requestedAt time.Time) *ResponseSnapshot {
	now := time.Now()

	status := rec.Status()
	header := rec.Header()

	var body any
	if isJSONContentType(header.Get("Content-Type")) {
		body = c.sanitizer.ResponseBody(decodeJSON(rec.BodyBytes()))
	}

	return &ResponseSnapshot{
		StatusCode:    status,
		StatusText:    http.StatusText(status),
		Headers:       c.sanitizer.Headers(header),
		ContentLength: rec.BytesWritten(),
		ContentType:   header.Get("Content-Type"),
		DurationMS:    int64(now.Sub(requestedAt).Round(time.Millisecond) / time.Millisecond),
		Body:          body,
		Timestamp:     now,
	}
}

func (c *Capturer) readRequestBody(r *http.Request) any {
	if r.Body == nil || r.ContentLength == 0 {
		return nil
	}
	if r.ContentLength > maxBodyBytes {
		return nil
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes+1))
	// Restore the body regardless of read outcome.
	r.Body = io.NopCloser(bytes.NewReader(raw))
	if err != nil || len(raw) == 0 || len(raw) > maxBodyBytes {
		return nil
	}
	return decodeJSON(raw)
}

// decodeJSON parses a JSON payload, returning nil on non-JSON input.
func decodeJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return nil
	}
	return value
}

// normalizeQuery copies query values so the snapshot does not alias the
// request's URL, and drops empty keys.
func normalizeQuery(query url.Values) url.Values {
	if len(query) == 0 {
		return nil
	}
	out := make(url.Values, len(query))
	for key, values := range query {
		if key == "" {
			continue
		}
		out[key] = append([]string(nil), values...)
	}
	return out
}

// resolveOrganizationID prefers the authenticated user's organization and
// falls back to an organization reference in the request body.
func resolveOrganizationID(ctx context.Context, body any) string {
	if orgID := requestcontext.OrganizationID(ctx); orgID != "" {
		return orgID
	}
	obj, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	for _, key := range []string{"organizationId", "organization_id", "orgId"} {
		if value, ok := obj[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}

func parseDevice(uaString string) *Device {
	if uaString == "" {
		return nil
	}
	ua := useragent.New(uaString)

	browser, _ := ua.Browser()
	if browser == "" {
		browser = "unknown"
	}
	os := ua.OS()
	if os == "" {
		os = "unknown"
	}

	platform := "desktop"
	switch {
	case ua.Bot():
		platform = "bot"
	case ua.Mobile():
		platform = "mobile"
	}

	return &Device{Browser: browser, OS: os, Platform: platform}
}

func isJSONContentType(contentType string) bool {
	return strings.Contains(contentType, "application/json")
}
