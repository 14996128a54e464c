// Package sanitize strips sensitive fields from request/response payloads
// before they enter the audit trail. Sanitization is total: malformed or
// oversized input is truncated and logged, never surfaced as an error.
package sanitize

import (
	"log/slog"
	"net/http"
	"strings"
)

// Bounds on a single payload. Oversized input is truncated rather than
// rejected so a malicious body can never fail or stall the request.
const (
	maxDepth     = 10
	maxArrayLen  = 1000
	maxStringLen = 10000
)

const truncatedMarker = "[truncated]"

// denylistedKeys are removed at every nesting level. Keys are compared after
// lowercasing and stripping separators, so apiKey, api_key and Api-Key all
// match.
var denylistedKeys = map[string]struct{}{
	"password":   {},
	"token":      {},
	"secret":     {},
	"apikey":     {},
	"privatekey": {},
}

// strippedHeaders are removed from captured headers (case-insensitive).
var strippedHeaders = []string{
	"Authorization",
	"Cookie",
	"X-Api-Key",
	"X-Auth-Token",
}

// sensitiveBodyAllowlist is the key set kept for sensitive-path endpoints.
// Denylisting is not enough there: any unexpected field is dropped.
var sensitiveBodyAllowlist = map[string]struct{}{
	"email":    {},
	"username": {},
	"id":       {},
}

// responseAllowlist is the only shape a response body may contribute to an
// audit record.
var responseAllowlist = map[string]struct{}{
	"success": {},
	"message": {},
	"count":   {},
	"id":      {},
}

// Sanitizer scrubs headers and bodies. The zero value works without logging;
// use New to attach a logger for truncation warnings.
type Sanitizer struct {
	logger *slog.Logger
}

type Option func(*Sanitizer)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sanitizer) {
		s.logger = logger
	}
}

func New(opts ...Option) *Sanitizer {
	s := &Sanitizer{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Headers returns a copy of headers with credential-bearing entries removed.
func (s *Sanitizer) Headers(headers http.Header) http.Header {
	if headers == nil {
		return nil
	}
	out := make(http.Header, len(headers))
	for key, values := range headers {
		out[key] = append([]string(nil), values...)
	}
	for _, key := range strippedHeaders {
		out.Del(key)
	}
	return out
}

// Body removes denylisted keys from a decoded JSON value at every nesting
// level. For sensitive paths (password endpoints) the body collapses to an
// explicit allowlist instead. Non-object, non-array input is returned
// unchanged apart from string length capping.
func (s *Sanitizer) Body(body any, path string) any {
	if IsSensitivePath(path) {
		return s.projectAllowlist(body, sensitiveBodyAllowlist)
	}
	return s.scrub(body, 0, path)
}

// ResponseBody projects a decoded response body onto the response allowlist.
// Anything that is not a JSON object sanitizes to nil: arbitrary response
// payloads never reach the audit trail.
func (s *Sanitizer) ResponseBody(body any) any {
	obj, ok := body.(map[string]any)
	if !ok {
		return nil
	}
	out := make(map[string]any)
	for key, value := range obj {
		if _, keep := responseAllowlist[strings.ToLower(key)]; keep {
			out[key] = s.scrub(value, 1, "")
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// IsSensitivePath reports whether a request path gets allowlist-only body
// treatment. Matches any password-handling endpoint, including the hyphenated
// reset-password and forgot-password routes.
func IsSensitivePath(path string) bool {
	return strings.Contains(strings.ToLower(path), "password")
}

func (s *Sanitizer) projectAllowlist(body any, allowlist map[string]struct{}) any {
	obj, ok := body.(map[string]any)
	if !ok {
		// Scalars carry no field names; arrays on sensitive endpoints are
		// dropped wholesale.
		if _, isArray := body.([]any); isArray {
			return nil
		}
		return s.scrub(body, 0, "")
	}
	out := make(map[string]any)
	for key, value := range obj {
		if _, keep := allowlist[strings.ToLower(key)]; keep {
			out[key] = s.scrub(value, 1, "")
		}
	}
	return out
}

func (s *Sanitizer) scrub(value any, depth int, path string) any {
	if depth > maxDepth {
		s.warn("payload exceeds max depth, truncating", "path", path)
		return truncatedMarker
	}

	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, inner := range v {
			if isDenylisted(key) {
				continue
			}
			out[key] = s.scrub(inner, depth+1, path)
		}
		return out
	case []any:
		n := len(v)
		if n > maxArrayLen {
			s.warn("payload array exceeds max length, truncating", "path", path, "len", n)
			n = maxArrayLen
		}
		out := make([]any, n)
		for i := 0; i < n; i++ {
			out[i] = s.scrub(v[i], depth+1, path)
		}
		return out
	case string:
		if len(v) > maxStringLen {
			s.warn("payload string exceeds max length, truncating", "path", path, "len", len(v))
			return v[:maxStringLen]
		}
		return v
	default:
		return v
	}
}

func isDenylisted(key string) bool {
	normalized := strings.ToLower(key)
	normalized = strings.ReplaceAll(normalized, "_", "")
	normalized = strings.ReplaceAll(normalized, "-", "")
	_, denied := denylistedKeys[normalized]
	return denied
}

func (s *Sanitizer) warn(msg string, attrs ...any) {
	if s.logger != nil {
		s.logger.Warn(msg, attrs...)
	}
}
