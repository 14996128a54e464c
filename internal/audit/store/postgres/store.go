package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taskboard/internal/audit/emit"
	"taskboard/internal/audit/taxonomy"
)

// Store persists audit records to an append-only audit_records table.
// Rows are never updated or deleted by the application.
type Store struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Append(ctx context.Context, record emit.Record) error {
	requestBody, err := json.Marshal(record.RequestBody)
	if err != nil {
		requestBody = nil
	}
	responseBody, err := json.Marshal(record.ResponseBody)
	if err != nil {
		responseBody = nil
	}
	detail, err := json.Marshal(struct {
		Query          map[string][]string `json:"query,omitempty"`
		Device         any                 `json:"device,omitempty"`
		Location       any                 `json:"location,omitempty"`
		Tags           []string            `json:"tags,omitempty"`
		ComplianceTags []string            `json:"compliance_tags,omitempty"`
	}{record.Query, record.Device, record.Location, record.Tags, record.ComplianceTags})
	if err != nil {
		return fmt.Errorf("marshal audit detail: %w", err)
	}

	query := `
		INSERT INTO audit_records (
			id, event_type, category, risk, sensitivity,
			request_id, method, path, client_ip, user_agent,
			user_id, session_id, organization_id,
			status_code, content_length, duration_ms,
			resource_type, resource_id, affected_count,
			is_bulk, is_export, is_sensitive,
			request_body, response_body, detail, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
		        $11, $12, $13, $14, $15, $16, $17, $18, $19,
		        $20, $21, $22, $23, $24, $25, $26)
	`
	_, err = s.pool.Exec(ctx, query,
		record.ID,
		string(record.EventType),
		string(record.Category),
		record.Risk.String(),
		record.Sensitivity.String(),
		record.RequestID,
		record.Method,
		record.Path,
		record.ClientIP,
		record.UserAgent,
		nullable(record.UserID),
		nullable(record.SessionID),
		nullable(record.OrganizationID),
		record.StatusCode,
		record.ContentLength,
		record.DurationMS,
		nullable(record.ResourceType),
		nullable(record.ResourceID),
		record.AffectedCount,
		record.Bulk,
		record.Export,
		record.SensitiveOp,
		requestBody,
		responseBody,
		detail,
		record.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

// ListRecent returns the most recent N records, newest first. Only the
// columns the admin surface renders are hydrated.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]emit.Record, error) {
	query := `
		SELECT id, event_type, category, risk_int, sensitivity_int,
		       request_id, method, path, client_ip, user_id,
		       status_code, duration_ms, created_at
		FROM (
			SELECT *,
			       CASE risk WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 ELSE 3 END AS risk_int,
			       CASE sensitivity WHEN 'public' THEN 0 WHEN 'internal' THEN 1 WHEN 'confidential' THEN 2 ELSE 3 END AS sensitivity_int
			FROM audit_records
		) r
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func scanRecords(rows pgx.Rows) ([]emit.Record, error) {
	var records []emit.Record
	for rows.Next() {
		var record emit.Record
		var eventType, category string
		var risk, sensitivity int
		var userID *string
		if err := rows.Scan(
			&record.ID, &eventType, &category, &risk, &sensitivity,
			&record.RequestID, &record.Method, &record.Path, &record.ClientIP, &userID,
			&record.StatusCode, &record.DurationMS, &record.Timestamp,
		); err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		record.EventType = taxonomy.EventType(eventType)
		record.Category = taxonomy.EventCategory(category)
		record.Risk = taxonomy.RiskLevel(risk)
		record.Sensitivity = taxonomy.DataSensitivity(sensitivity)
		if userID != nil {
			record.UserID = *userID
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

// ListByUser returns every record attributed to one user, newest first.
func (s *Store) ListByUser(ctx context.Context, userID string) ([]emit.Record, error) {
	query := `
		SELECT id, event_type, category, risk_int, sensitivity_int,
		       request_id, method, path, client_ip, user_id,
		       status_code, duration_ms, created_at
		FROM (
			SELECT *,
			       CASE risk WHEN 'low' THEN 0 WHEN 'medium' THEN 1 WHEN 'high' THEN 2 ELSE 3 END AS risk_int,
			       CASE sensitivity WHEN 'public' THEN 0 WHEN 'internal' THEN 1 WHEN 'confidential' THEN 2 ELSE 3 END AS sensitivity_int
			FROM audit_records
			WHERE user_id = $1
		) r
		ORDER BY created_at DESC
	`
	rows, err := s.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("query audit records by user: %w", err)
	}
	defer rows.Close()
	return scanRecords(rows)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
