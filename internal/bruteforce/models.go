// Package bruteforce tracks failed authentication attempts per identifier
// and decides between progressive delays and hard blocks. It is the one
// component of the security core that may intentionally slow down or reject
// a request.
package bruteforce

import (
	"strings"
	"time"
)

// IdentifierType distinguishes what a counter key refers to.
type IdentifierType string

const (
	IdentifierUser IdentifierType = "user"
	IdentifierIP   IdentifierType = "ip"
)

// Key builds the counter identifier for an attempt: the authenticated user
// when available, else the client IP.
//
// Scoping is per-identifier-global: one window per identifier across all
// gated routes. Per-route scoping would let an attacker rotate endpoints to
// reset windows.
func Key(userID, ip string) (string, IdentifierType) {
	if userID != "" {
		return "user:" + userID, IdentifierUser
	}
	return ip, IdentifierIP
}

// TypeOf reports the identifier type encoded in a key.
func TypeOf(identifier string) IdentifierType {
	if strings.HasPrefix(identifier, "user:") {
		return IdentifierUser
	}
	return IdentifierIP
}

// SecurityBlock is a time-bounded deny decision against an identifier.
// Expiry is a timestamp comparison at read time; no job clears blocks.
type SecurityBlock struct {
	Identifier     string         `json:"identifier"`
	IdentifierType IdentifierType `json:"identifier_type"`
	Reason         string         `json:"reason"`
	BlockedAt      time.Time      `json:"blocked_at"`
	ExpiresAt      time.Time      `json:"expires_at"`
}

// ActiveAt reports whether the block is still in force at the given time.
func (b *SecurityBlock) ActiveAt(now time.Time) bool {
	return b != nil && now.Before(b.ExpiresAt)
}

// RetryAfterAt returns the whole seconds until expiry, floored at zero.
func (b *SecurityBlock) RetryAfterAt(now time.Time) int {
	if b == nil {
		return 0
	}
	return max(int(b.ExpiresAt.Sub(now).Seconds()), 0)
}

// Decision is the engine's verdict for one gated request.
type Decision struct {
	Allowed         bool
	Delay           time.Duration
	RequiresCaptcha bool
	FailureCount    int // short-window count at decision time
	Block           *SecurityBlock
	RetryAfter      int // seconds, only set when not allowed
}

// FailureState describes counter state after recording one failed attempt,
// with the transitions the caller must surface as audit events.
type FailureState struct {
	ShortWindowCount int
	LongWindowCount  int
	CaptchaTriggered bool // crossed the warn threshold on this failure
	Block            *SecurityBlock
	BlockTriggered   bool // block was created by this failure
}
