// Package classify maps (method, path, status) to an event type, risk level
// and data sensitivity. Narrow rules win on event identity; broad heuristics
// (bulk, export, admin) only ever raise the recorded risk, never lower it.
package classify

import (
	"net/url"
	"regexp"
	"strings"

	"taskboard/internal/audit/taxonomy"
)

// Input is everything the classifier may inspect. Body and Query feed the
// bulk/export predicates only; classification never mutates them.
type Input struct {
	Method     string
	Path       string
	StatusCode int
	Body       any
	Query      url.Values
}

// Classification is the derived triple attached to an audit record.
// EventType is empty when no rule matched; the caller decides whether to
// still record the request generically.
type Classification struct {
	EventType   taxonomy.EventType
	Risk        taxonomy.RiskLevel
	Sensitivity taxonomy.DataSensitivity
}

// Rule binds a route to its event types. OnFailure may be empty, in which
// case a >=400 response falls through to the heuristic tier.
type Rule struct {
	Method    string
	Path      string // exact path, or pattern with :param segments
	OnSuccess taxonomy.EventType
	OnFailure taxonomy.EventType
}

type compiledRule struct {
	Rule
	pattern *regexp.Regexp // nil for exact-match rules
}

// Classifier evaluates rules in strict precedence: exact match, pattern
// match, heuristics. Risk is the max across every matching tier.
type Classifier struct {
	exact    map[string]Rule // key: METHOD + " " + path
	patterns []compiledRule
}

// paramSegment matches one :param-style path segment.
var paramSegment = regexp.MustCompile(`:[^/]+`)

// New builds a classifier from a rule set, compiling :param paths to
// regexes where each parameter matches exactly one non-slash segment.
func New(rules []Rule) *Classifier {
	c := &Classifier{exact: make(map[string]Rule)}
	for _, rule := range rules {
		if !strings.Contains(rule.Path, ":") {
			c.exact[rule.Method+" "+rule.Path] = rule
			continue
		}
		expr := "^" + paramSegment.ReplaceAllString(rule.Path, `[^/]+`) + "$"
		compiled, err := regexp.Compile(expr)
		if err != nil {
			continue
		}
		c.patterns = append(c.patterns, compiledRule{Rule: rule, pattern: compiled})
	}
	return c
}

// NewDefault builds a classifier with the platform's endpoint table.
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// DefaultRules is the static endpoint-to-event table for the task platform.
// Extending coverage means adding rows, not classifier code.
func DefaultRules() []Rule {
	return []Rule{
		// Auth
		{Method: "POST", Path: "/api/v1/auth/login", OnSuccess: taxonomy.EventAuthLoginSuccess, OnFailure: taxonomy.EventAuthLoginFailed},
		{Method: "POST", Path: "/api/v1/auth/logout", OnSuccess: taxonomy.EventAuthLogout},
		{Method: "POST", Path: "/api/v1/auth/register", OnSuccess: taxonomy.EventAuthRegister},
		{Method: "POST", Path: "/api/v1/auth/refresh", OnSuccess: taxonomy.EventAuthSessionRefresh},
		{Method: "POST", Path: "/api/v1/auth/forgot-password", OnSuccess: taxonomy.EventAuthPasswordResetRequest},
		{Method: "POST", Path: "/api/v1/auth/reset-password", OnSuccess: taxonomy.EventAuthPasswordResetSuccess},

		// Organizations
		{Method: "POST", Path: "/api/v1/organizations", OnSuccess: taxonomy.EventOrgCreate},
		{Method: "PATCH", Path: "/api/v1/organizations/:id", OnSuccess: taxonomy.EventOrgUpdate},
		{Method: "PUT", Path: "/api/v1/organizations/:id", OnSuccess: taxonomy.EventOrgUpdate},
		{Method: "DELETE", Path: "/api/v1/organizations/:id", OnSuccess: taxonomy.EventOrgDelete},
		{Method: "POST", Path: "/api/v1/organizations/:id/members", OnSuccess: taxonomy.EventOrgMemberAdd},
		{Method: "DELETE", Path: "/api/v1/organizations/:id/members/:memberId", OnSuccess: taxonomy.EventOrgMemberRemove},

		// Projects
		{Method: "POST", Path: "/api/v1/projects", OnSuccess: taxonomy.EventProjectCreate},
		{Method: "PATCH", Path: "/api/v1/projects/:id", OnSuccess: taxonomy.EventProjectUpdate},
		{Method: "PUT", Path: "/api/v1/projects/:id", OnSuccess: taxonomy.EventProjectUpdate},
		{Method: "DELETE", Path: "/api/v1/projects/:id", OnSuccess: taxonomy.EventProjectDelete},

		// Tasks
		{Method: "POST", Path: "/api/v1/tasks", OnSuccess: taxonomy.EventTaskCreate},
		{Method: "PATCH", Path: "/api/v1/tasks/:id", OnSuccess: taxonomy.EventTaskUpdate},
		{Method: "PUT", Path: "/api/v1/tasks/:id", OnSuccess: taxonomy.EventTaskUpdate},
		{Method: "DELETE", Path: "/api/v1/tasks/:id", OnSuccess: taxonomy.EventTaskDelete},
		{Method: "POST", Path: "/api/v1/tasks/bulk", OnSuccess: taxonomy.EventTaskBulkUpdate},
		{Method: "GET", Path: "/api/v1/tasks/export", OnSuccess: taxonomy.EventTaskExport},

		// Audit read surface
		{Method: "GET", Path: "/api/v1/audit/records", OnSuccess: taxonomy.EventAdminAuditAccess},
	}
}

// Classify derives the classification triple for one finished request.
func (c *Classifier) Classify(in Input) Classification {
	eventType, risk := c.matchEvent(in)

	// Orthogonal escalations apply regardless of which tier fired: they can
	// only raise the recorded risk.
	if IsBulkOperation(in) {
		risk = taxonomy.MaxRisk(risk, taxonomy.RiskMedium)
	}
	if IsDataExport(in) {
		risk = taxonomy.MaxRisk(risk, taxonomy.RiskMedium)
	}
	if strings.Contains(in.Path, "/admin/") {
		risk = taxonomy.MaxRisk(risk, taxonomy.RiskHigh)
	}
	if in.Method == "DELETE" && eventType == "" {
		risk = taxonomy.MaxRisk(risk, taxonomy.RiskMedium)
	}

	return Classification{
		EventType:   eventType,
		Risk:        risk,
		Sensitivity: c.sensitivity(in),
	}
}

// matchEvent resolves the event identity: exact table first, then pattern
// table, then heuristics. First applicable tier wins on identity.
func (c *Classifier) matchEvent(in Input) (taxonomy.EventType, taxonomy.RiskLevel) {
	if rule, ok := c.exact[in.Method+" "+in.Path]; ok {
		if eventType, ok := rule.eventFor(in.StatusCode); ok {
			return eventType, eventType.DefaultRisk()
		}
	}

	for _, rule := range c.patterns {
		if rule.Method != in.Method || !rule.pattern.MatchString(in.Path) {
			continue
		}
		if eventType, ok := rule.eventFor(in.StatusCode); ok {
			return eventType, eventType.DefaultRisk()
		}
		break // first matching pattern wins; its miss falls to heuristics
	}

	return heuristicEvent(in)
}

// eventFor picks the rule's event for a status code. A failed response on a
// rule with no failure event does not match, so heuristics can take over.
func (r Rule) eventFor(status int) (taxonomy.EventType, bool) {
	if status >= 400 {
		if r.OnFailure != "" {
			return r.OnFailure, true
		}
		return "", false
	}
	return r.OnSuccess, true
}

// heuristicEvent is the fallback tier, evaluated in fixed order.
func heuristicEvent(in Input) (taxonomy.EventType, taxonomy.RiskLevel) {
	if strings.Contains(in.Path, "/auth/") && in.StatusCode >= 400 {
		return taxonomy.EventAuthLoginFailed, taxonomy.RiskHigh
	}

	if in.Method == "DELETE" {
		switch {
		case strings.Contains(in.Path, "/organizations/"):
			return taxonomy.EventOrgDelete, taxonomy.RiskMedium
		case strings.Contains(in.Path, "/projects/"):
			return taxonomy.EventProjectDelete, taxonomy.RiskMedium
		case strings.Contains(in.Path, "/tasks/"):
			return taxonomy.EventTaskDelete, taxonomy.RiskLow
		}
	}

	return "", taxonomy.RiskLow
}

func (c *Classifier) sensitivity(in Input) taxonomy.DataSensitivity {
	sensitivity := taxonomy.SensitivityInternal
	if strings.Contains(in.Path, "/auth/") {
		sensitivity = taxonomy.MaxSensitivity(sensitivity, taxonomy.SensitivityConfidential)
	}
	if strings.Contains(in.Path, "/audit/") {
		sensitivity = taxonomy.MaxSensitivity(sensitivity, taxonomy.SensitivityRestricted)
	}
	if IsDataExport(in) {
		sensitivity = taxonomy.MaxSensitivity(sensitivity, taxonomy.SensitivityConfidential)
	}
	return sensitivity
}

// IsBulkOperation reports whether the request acts on multiple resources:
// a bulk route, a /bulk path segment, or an items/ids array in the body.
func IsBulkOperation(in Input) bool {
	if strings.Contains(in.Path, "/bulk") {
		return true
	}
	obj, ok := in.Body.(map[string]any)
	if !ok {
		return false
	}
	for _, key := range []string{"items", "ids"} {
		if _, isArray := obj[key].([]any); isArray {
			return true
		}
	}
	return false
}

// IsDataExport reports whether the request extracts data in bulk form:
// an export route, ?export=true, or ?format=csv.
func IsDataExport(in Input) bool {
	if strings.HasSuffix(in.Path, "/export") || strings.Contains(in.Path, "/export/") {
		return true
	}
	if in.Query == nil {
		return false
	}
	return in.Query.Get("export") == "true" || in.Query.Get("format") == "csv"
}
