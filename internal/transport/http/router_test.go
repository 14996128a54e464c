package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/suite"

	"taskboard/internal/audit/capture"
	"taskboard/internal/audit/classify"
	"taskboard/internal/audit/emit"
	"taskboard/internal/audit/geo"
	auditmw "taskboard/internal/audit/middleware"
	"taskboard/internal/audit/sanitize"
	auditmemory "taskboard/internal/audit/store/memory"
	"taskboard/internal/audit/taxonomy"
	"taskboard/internal/bruteforce"
	bruteforcemw "taskboard/internal/bruteforce/middleware"
	bfmemory "taskboard/internal/bruteforce/store/memory"
	"taskboard/pkg/platform/middleware/auth"
)

const testSigningKey = "router-test-key"

// =============================================================================
// Router Test Suite
// =============================================================================
// Assembles the real middleware chain end to end: identity, audit interceptor
// and brute force gate around the stub handlers.

type RouterSuite struct {
	suite.Suite
	sink       *auditmemory.Store
	emitter    *emit.Emitter
	server     *httptest.Server
	stopWorker context.CancelFunc
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	s.sink = auditmemory.New()

	var err error
	s.emitter, err = emit.New(s.sink)
	s.Require().NoError(err)

	ctx, cancel := context.WithCancel(context.Background())
	s.stopWorker = cancel
	go func() { _ = s.emitter.Run(ctx) }()

	capturer := capture.New(sanitize.New(), geo.NopProvider{})
	interceptor := auditmw.New(auditmw.Config{}, capturer, classify.NewDefault(), s.emitter)

	engine, err := bruteforce.New(bfmemory.New())
	s.Require().NoError(err)
	gate := bruteforcemw.New(engine, bruteforcemw.WithAuditor(interceptor))

	router := NewRouter(Deps{
		Auth:       auth.New(testSigningKey),
		Audit:      interceptor,
		BruteForce: gate,
		QueueStats: func() (int, int64) { return s.emitter.QueueLen(), s.emitter.Dropped() },
		ListRecords: func(ctx context.Context, limit int) (any, error) {
			return s.sink.ListRecent(ctx, limit)
		},
		ListRecordsByUser: func(ctx context.Context, userID string) (any, error) {
			return s.sink.ListByUser(ctx, userID)
		},
	})
	s.server = httptest.NewServer(router)
}

func (s *RouterSuite) TearDownTest() {
	s.server.Close()
	s.stopWorker()
}

func (s *RouterSuite) get(path, token string) *http.Response {
	req, err := http.NewRequest("GET", s.server.URL+path, nil)
	s.Require().NoError(err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := s.server.Client().Do(req)
	s.Require().NoError(err)
	return resp
}

func (s *RouterSuite) adminToken() string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":  "admin-1",
		"role": "admin",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(testSigningKey))
	s.Require().NoError(err)
	return signed
}

func (s *RouterSuite) decode(resp *http.Response) map[string]any {
	defer resp.Body.Close()
	var body map[string]any
	s.Require().NoError(json.NewDecoder(resp.Body).Decode(&body))
	return body
}

// =============================================================================
// Operational Surface Tests
// =============================================================================

func (s *RouterSuite) TestOperationalEndpoints() {
	s.Run("health is up without redis", func() {
		resp := s.get("/health", "")
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Equal("ok", s.decode(resp)["status"])
	})

	s.Run("security status exposes queue stats", func() {
		resp := s.get("/api/v1/security/status", "")
		s.Equal(http.StatusOK, resp.StatusCode)
		body := s.decode(resp)
		s.Contains(body, "audit_queue_depth")
		s.Contains(body, "audit_records_dropped")
	})

	s.Run("operational endpoints leave no audit trail", func() {
		s.get("/health", "").Body.Close()
		s.get("/api/v1/security/status", "").Body.Close()
		time.Sleep(20 * time.Millisecond)
		s.Zero(s.sink.Len())
	})
}

// =============================================================================
// Audit Read Surface Tests
// =============================================================================

func (s *RouterSuite) TestAuditRecordsEndpoint() {
	s.Run("rejects non-admin callers", func() {
		resp := s.get("/api/v1/audit/records", "")
		s.Equal(http.StatusForbidden, resp.StatusCode)
		resp.Body.Close()
	})

	s.Run("admins read recent records and the read itself is audited", func() {
		resp := s.get("/api/v1/audit/records", s.adminToken())
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Contains(s.decode(resp), "records")

		s.Require().Eventually(func() bool { return s.sink.Len() >= 1 }, time.Second, 5*time.Millisecond)
		records, err := s.sink.ListRecent(context.Background(), 10)
		s.Require().NoError(err)

		var found bool
		for _, record := range records {
			if record.EventType == taxonomy.EventAdminAuditAccess {
				found = true
				s.Equal("admin-1", record.UserID)
				s.Equal(taxonomy.SensitivityRestricted, record.Sensitivity)
			}
		}
		s.True(found)
	})

	s.Run("user_id query narrows the listing to one user", func() {
		// The read above left an admin-attributed record in the sink.
		s.get("/api/v1/audit/records", s.adminToken()).Body.Close()
		s.Require().Eventually(func() bool { return s.sink.Len() >= 1 }, time.Second, 5*time.Millisecond)

		resp := s.get("/api/v1/audit/records?user_id=admin-1", s.adminToken())
		s.Equal(http.StatusOK, resp.StatusCode)
		records, ok := s.decode(resp)["records"].([]any)
		s.Require().True(ok)
		s.Require().NotEmpty(records)
		for _, entry := range records {
			s.Equal("admin-1", entry.(map[string]any)["user_id"])
		}

		resp = s.get("/api/v1/audit/records?user_id=someone-else", s.adminToken())
		s.Equal(http.StatusOK, resp.StatusCode)
		s.Empty(s.decode(resp)["records"])
	})
}

// =============================================================================
// Gated Auth Route Tests
// =============================================================================

func (s *RouterSuite) TestGatedLogin() {
	resp, err := s.server.Client().Post(s.server.URL+"/api/v1/auth/login", "application/json", nil)
	s.Require().NoError(err)
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	// The failed attempt produces both the login failure and the gate's
	// access denied violation.
	s.Require().Eventually(func() bool { return s.sink.Len() >= 2 }, time.Second, 5*time.Millisecond)
	records, err := s.sink.ListRecent(context.Background(), 10)
	s.Require().NoError(err)

	var events []taxonomy.EventType
	for _, record := range records {
		events = append(events, record.EventType)
	}
	s.Contains(events, taxonomy.EventAuthLoginFailed)
	s.Contains(events, taxonomy.EventSecurityAccessDenied)
}
