package middleware

import (
	"net/http"

	"taskboard/internal/audit/capture"
	"taskboard/internal/audit/classify"
	"taskboard/internal/audit/emit"
	"taskboard/internal/audit/taxonomy"
)

// RecordViolation routes a rate-limit or block decision through the same
// emitter as regular audit records. The surrounding limiting layer calls
// this whenever it returns a 429/403 decision, before writing the rejection.
// Violation events are always HIGH risk and CONFIDENTIAL.
func (i *Interceptor) RecordViolation(r *http.Request, statusCode int, eventType taxonomy.EventType, reason string) {
	defer func() {
		if p := recover(); p != nil {
			i.logger.Error("violation capture panicked", "panic", p, "path", r.URL.Path)
		}
	}()

	req := i.capturer.Request(r)

	cls := classify.Classification{
		EventType:   eventType,
		Risk:        taxonomy.MaxRisk(eventType.DefaultRisk(), taxonomy.RiskHigh),
		Sensitivity: taxonomy.SensitivityConfidential,
	}

	resp := &capture.ResponseSnapshot{
		StatusCode: statusCode,
		StatusText: http.StatusText(statusCode),
		Timestamp:  req.Timestamp,
	}

	record := emit.BuildRecord(req, resp, cls)
	record.Reason = reason
	i.emitter.Emit(record)
}
