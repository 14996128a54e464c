package emit

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"taskboard/internal/audit/capture"
	"taskboard/internal/audit/classify"
	"taskboard/internal/audit/taxonomy"
)

// Record is the final persisted audit entity: the union of both snapshots,
// the classification, and derived metadata. Records are append-only and
// never mutated after creation.
type Record struct {
	ID string `json:"id"`

	// Classification
	EventType   taxonomy.EventType       `json:"event_type"`
	Category    taxonomy.EventCategory   `json:"category"`
	Risk        taxonomy.RiskLevel       `json:"risk"`
	Sensitivity taxonomy.DataSensitivity `json:"sensitivity"`

	// Request side
	RequestID      string              `json:"request_id"`
	Method         string              `json:"method"`
	Path           string              `json:"path"`
	Query          map[string][]string `json:"query,omitempty"`
	ClientIP       string              `json:"client_ip,omitempty"`
	UserAgent      string              `json:"user_agent,omitempty"`
	Device         *capture.Device     `json:"device,omitempty"`
	Location       *geoLocation        `json:"location,omitempty"`
	UserID         string              `json:"user_id,omitempty"`
	SessionID      string              `json:"session_id,omitempty"`
	OrganizationID string              `json:"organization_id,omitempty"`
	RequestBody    any                 `json:"request_body,omitempty"`

	// Response side
	StatusCode    int   `json:"status_code"`
	ContentLength int64 `json:"content_length"`
	DurationMS    int64 `json:"duration_ms"`
	ResponseBody  any   `json:"response_body,omitempty"`

	// Derived metadata
	ResourceType   string   `json:"resource_type,omitempty"`
	ResourceID     string   `json:"resource_id,omitempty"`
	AffectedCount  int      `json:"affected_count"`
	Tags           []string `json:"tags,omitempty"`
	ComplianceTags []string `json:"compliance_tags,omitempty"`
	Bulk           bool     `json:"bulk"`
	Export         bool     `json:"export"`
	SensitiveOp    bool     `json:"sensitive_op"`
	Reason         string   `json:"reason,omitempty"`

	Timestamp time.Time `json:"timestamp"`
}

type geoLocation struct {
	Country  string `json:"country,omitempty"`
	Region   string `json:"region,omitempty"`
	City     string `json:"city,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// BuildRecord assembles a Record from the pipeline stages' outputs. It is a
// pure function; persistence and scheduling live in the Emitter.
func BuildRecord(req *capture.RequestSnapshot, resp *capture.ResponseSnapshot, cls classify.Classification) Record {
	record := Record{
		ID:          uuid.NewString(),
		EventType:   cls.EventType,
		Category:    cls.EventType.Category(),
		Risk:        cls.Risk,
		Sensitivity: cls.Sensitivity,
		Timestamp:   req.Timestamp,
	}

	record.RequestID = req.RequestID
	record.Method = req.Method
	record.Path = req.Path
	record.Query = req.Query
	record.ClientIP = req.ClientIP
	record.UserAgent = req.UserAgent
	record.Device = req.Device
	record.UserID = req.UserID
	record.SessionID = req.SessionID
	record.OrganizationID = req.OrganizationID
	record.RequestBody = req.Body
	if req.Location != nil {
		record.Location = &geoLocation{
			Country:  req.Location.Country,
			Region:   req.Location.Region,
			City:     req.Location.City,
			Timezone: req.Location.Timezone,
		}
	}

	if resp != nil {
		record.StatusCode = resp.StatusCode
		record.ContentLength = resp.ContentLength
		record.DurationMS = resp.DurationMS
		record.ResponseBody = resp.Body
	}

	record.ResourceType, record.ResourceID = resourceFromPath(req.Path)
	record.Bulk = classify.IsBulkOperation(classify.Input{Method: req.Method, Path: req.Path, Body: req.Body, Query: req.Query})
	record.Export = classify.IsDataExport(classify.Input{Path: req.Path, Query: req.Query})
	record.SensitiveOp = cls.Sensitivity >= taxonomy.SensitivityConfidential
	record.AffectedCount = affectedCount(req.Body, record.Bulk)
	record.Tags = deriveTags(record)
	record.ComplianceTags = deriveComplianceTags(record)

	return record
}

// resourceFromPath extracts resource type and id from /api/v1/<type>/<id>.
// Verb segments (bulk, export) are not ids.
func resourceFromPath(path string) (string, string) {
	trimmed := strings.TrimPrefix(path, "/api/v1/")
	if trimmed == path {
		return "", ""
	}
	segments := strings.Split(strings.Trim(trimmed, "/"), "/")
	if len(segments) == 0 || segments[0] == "" {
		return "", ""
	}
	resourceType := segments[0]
	if len(segments) < 2 {
		return resourceType, ""
	}
	switch segments[1] {
	case "bulk", "export", "login", "logout", "register", "refresh",
		"forgot-password", "reset-password", "records":
		return resourceType, ""
	}
	return resourceType, segments[1]
}

// affectedCount estimates how many records the request touched: the length
// of a bulk ids/items array, else 1.
func affectedCount(body any, bulk bool) int {
	if bulk {
		if obj, ok := body.(map[string]any); ok {
			for _, key := range []string{"ids", "items"} {
				if arr, ok := obj[key].([]any); ok {
					return len(arr)
				}
			}
		}
	}
	return 1
}

func deriveTags(record Record) []string {
	var tags []string
	if record.Category != "" {
		tags = append(tags, string(record.Category))
	}
	if record.Bulk {
		tags = append(tags, "bulk")
	}
	if record.Export {
		tags = append(tags, "export")
	}
	if record.StatusCode >= 400 {
		tags = append(tags, "failed")
	}
	return tags
}

func deriveComplianceTags(record Record) []string {
	var tags []string
	if record.Export {
		tags = append(tags, "data-export")
	}
	if record.Sensitivity >= taxonomy.SensitivityConfidential {
		tags = append(tags, "confidential-access")
	}
	if record.Category == taxonomy.CategoryAuth || record.Category == taxonomy.CategorySecurity {
		tags = append(tags, "access-log")
	}
	return tags
}
