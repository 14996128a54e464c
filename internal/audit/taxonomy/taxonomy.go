// Package taxonomy is the shared vocabulary for the audit pipeline: the
// event-type registry and the ordered risk / data-sensitivity enums.
// It is pure data; extending it must never require classifier changes.
package taxonomy

// RiskLevel is an ordered severity classification attached to audit records.
// The order matters: classification merges multiple matching rules by taking
// the most severe level, never downgrading.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskMedium
	RiskHigh
	RiskCritical
)

var riskNames = map[RiskLevel]string{
	RiskLow:      "low",
	RiskMedium:   "medium",
	RiskHigh:     "high",
	RiskCritical: "critical",
}

func (r RiskLevel) String() string {
	if name, ok := riskNames[r]; ok {
		return name
	}
	return "low"
}

// MaxRisk returns the more severe of two risk levels.
func MaxRisk(a, b RiskLevel) RiskLevel {
	if a > b {
		return a
	}
	return b
}

// DataSensitivity is an ordered confidentiality classification attached to
// an audit record's payload.
type DataSensitivity int

const (
	SensitivityPublic DataSensitivity = iota
	SensitivityInternal
	SensitivityConfidential
	SensitivityRestricted
)

var sensitivityNames = map[DataSensitivity]string{
	SensitivityPublic:       "public",
	SensitivityInternal:     "internal",
	SensitivityConfidential: "confidential",
	SensitivityRestricted:   "restricted",
}

func (s DataSensitivity) String() string {
	if name, ok := sensitivityNames[s]; ok {
		return name
	}
	return "internal"
}

// MaxSensitivity returns the more confidential of two sensitivity levels.
func MaxSensitivity(a, b DataSensitivity) DataSensitivity {
	if a > b {
		return a
	}
	return b
}

// EventCategory groups event types by their primary purpose. This enables
// different retention policies and downstream routing.
type EventCategory string

const (
	// CategoryAuth covers authentication lifecycle events.
	CategoryAuth EventCategory = "auth"
	// CategoryData covers CRUD activity on organizations, projects and tasks.
	CategoryData EventCategory = "data"
	// CategorySecurity covers rate limiting, lockouts and access violations.
	// These feed into SIEM systems and alerting pipelines.
	CategorySecurity EventCategory = "security"
	// CategoryAdmin covers privileged administrative operations.
	CategoryAdmin EventCategory = "admin"
)

// EventType is a hierarchical event identifier (e.g. "auth.login.success").
type EventType string

const (
	// Auth events
	EventAuthLoginSuccess         EventType = "auth.login.success"
	EventAuthLoginFailed          EventType = "auth.login.failed"
	EventAuthLogout               EventType = "auth.logout"
	EventAuthRegister             EventType = "auth.register"
	EventAuthPasswordResetRequest EventType = "auth.password_reset.request"
	EventAuthPasswordResetSuccess EventType = "auth.password_reset.success"
	EventAuthSessionRefresh       EventType = "auth.session.refresh"

	// Organization events
	EventOrgCreate       EventType = "org.create"
	EventOrgUpdate       EventType = "org.update"
	EventOrgDelete       EventType = "org.delete"
	EventOrgMemberAdd    EventType = "org.member.add"
	EventOrgMemberRemove EventType = "org.member.remove"

	// Project events
	EventProjectCreate EventType = "project.create"
	EventProjectUpdate EventType = "project.update"
	EventProjectDelete EventType = "project.delete"

	// Task events
	EventTaskCreate     EventType = "task.create"
	EventTaskUpdate     EventType = "task.update"
	EventTaskDelete     EventType = "task.delete"
	EventTaskBulkUpdate EventType = "task.bulk_update"
	EventTaskExport     EventType = "task.export"

	// Security events
	EventSecurityRateLimitExceeded EventType = "security.rate_limit_exceeded"
	EventSecurityBruteForceBlock   EventType = "security.brute_force_block"
	EventSecurityCaptchaRequired   EventType = "security.captcha_required"
	EventSecurityProgressiveDelay  EventType = "security.progressive_delay"
	EventSecurityAccessDenied      EventType = "security.access_denied"

	// Admin events
	EventAdminAuditAccess EventType = "admin.audit.access"
	EventAdminUserManage  EventType = "admin.user.manage"

	// Fallback for requests with no specific rule when LogAllRequests is on.
	EventAPIRequest EventType = "api.request"
)

// Entry is the registry metadata for one event type.
type Entry struct {
	Category    EventCategory
	DefaultRisk RiskLevel
}

// registry maps each event type to its metadata. New event types are data:
// add a constant and a row here, nothing else.
var registry = map[EventType]Entry{
	EventAuthLoginSuccess:         {CategoryAuth, RiskMedium},
	EventAuthLoginFailed:          {CategoryAuth, RiskHigh},
	EventAuthLogout:               {CategoryAuth, RiskLow},
	EventAuthRegister:             {CategoryAuth, RiskMedium},
	EventAuthPasswordResetRequest: {CategoryAuth, RiskMedium},
	EventAuthPasswordResetSuccess: {CategoryAuth, RiskHigh},
	EventAuthSessionRefresh:       {CategoryAuth, RiskLow},

	EventOrgCreate:       {CategoryData, RiskMedium},
	EventOrgUpdate:       {CategoryData, RiskMedium},
	EventOrgDelete:       {CategoryData, RiskHigh},
	EventOrgMemberAdd:    {CategoryData, RiskMedium},
	EventOrgMemberRemove: {CategoryData, RiskMedium},

	EventProjectCreate: {CategoryData, RiskLow},
	EventProjectUpdate: {CategoryData, RiskLow},
	EventProjectDelete: {CategoryData, RiskMedium},

	EventTaskCreate:     {CategoryData, RiskLow},
	EventTaskUpdate:     {CategoryData, RiskLow},
	EventTaskDelete:     {CategoryData, RiskLow},
	EventTaskBulkUpdate: {CategoryData, RiskMedium},
	EventTaskExport:     {CategoryData, RiskMedium},

	EventSecurityRateLimitExceeded: {CategorySecurity, RiskHigh},
	EventSecurityBruteForceBlock:   {CategorySecurity, RiskCritical},
	EventSecurityCaptchaRequired:   {CategorySecurity, RiskHigh},
	EventSecurityProgressiveDelay:  {CategorySecurity, RiskHigh},
	EventSecurityAccessDenied:      {CategorySecurity, RiskHigh},

	EventAdminAuditAccess: {CategoryAdmin, RiskHigh},
	EventAdminUserManage:  {CategoryAdmin, RiskHigh},

	EventAPIRequest: {CategoryData, RiskLow},
}

// Lookup returns the registry entry for an event type.
// Unknown events default to CategoryData / RiskLow.
func Lookup(t EventType) Entry {
	if entry, ok := registry[t]; ok {
		return entry
	}
	return Entry{CategoryData, RiskLow}
}

// Category returns the EventCategory for this event type.
func (t EventType) Category() EventCategory {
	return Lookup(t).Category
}

// DefaultRisk returns the registry's default risk level for this event type.
func (t EventType) DefaultRisk() RiskLevel {
	return Lookup(t).DefaultRisk
}

// Known reports whether the event type is registered.
func Known(t EventType) bool {
	_, ok := registry[t]
	return ok
}
