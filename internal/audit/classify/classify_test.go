package classify

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/suite"

	"taskboard/internal/audit/taxonomy"
)

// =============================================================================
// Classifier Test Suite
// =============================================================================

type ClassifierSuite struct {
	suite.Suite
	classifier *Classifier
}

func TestClassifierSuite(t *testing.T) {
	suite.Run(t, new(ClassifierSuite))
}

func (s *ClassifierSuite) SetupTest() {
	s.classifier = NewDefault()
}

// =============================================================================
// Exact Match Tests
// =============================================================================

func (s *ClassifierSuite) TestExactMatches() {
	s.Run("login success", func() {
		c := s.classifier.Classify(Input{Method: "POST", Path: "/api/v1/auth/login", StatusCode: 200})
		s.Equal(taxonomy.EventAuthLoginSuccess, c.EventType)
		s.Equal(taxonomy.RiskMedium, c.Risk)
		s.Equal(taxonomy.SensitivityConfidential, c.Sensitivity)
	})

	s.Run("login failure uses the failure event", func() {
		c := s.classifier.Classify(Input{Method: "POST", Path: "/api/v1/auth/login", StatusCode: 401})
		s.Equal(taxonomy.EventAuthLoginFailed, c.EventType)
		s.Equal(taxonomy.RiskHigh, c.Risk)
	})

	s.Run("password reset success is high risk", func() {
		c := s.classifier.Classify(Input{Method: "POST", Path: "/api/v1/auth/reset-password", StatusCode: 200})
		s.Equal(taxonomy.EventAuthPasswordResetSuccess, c.EventType)
		s.Equal(taxonomy.RiskHigh, c.Risk)
		s.Equal(taxonomy.SensitivityConfidential, c.Sensitivity)
	})

	s.Run("exact beats pattern and heuristic tiers", func() {
		c := s.classifier.Classify(Input{Method: "POST", Path: "/api/v1/tasks/bulk", StatusCode: 200})
		s.Equal(taxonomy.EventTaskBulkUpdate, c.EventType)
		s.Equal(taxonomy.RiskMedium, c.Risk)
	})
}

// =============================================================================
// Pattern Match Tests
// =============================================================================

func (s *ClassifierSuite) TestPatternMatches() {
	s.Run("organization delete by id", func() {
		c := s.classifier.Classify(Input{Method: "DELETE", Path: "/api/v1/organizations/abc-123", StatusCode: 200})
		s.Equal(taxonomy.EventOrgDelete, c.EventType)
		s.Equal(taxonomy.RiskHigh, c.Risk)
	})

	s.Run("task delete by id stays low risk", func() {
		c := s.classifier.Classify(Input{Method: "DELETE", Path: "/api/v1/tasks/42", StatusCode: 200})
		s.Equal(taxonomy.EventTaskDelete, c.EventType)
		s.Equal(taxonomy.RiskLow, c.Risk)
	})

	s.Run("param matches one segment only", func() {
		c := s.classifier.Classify(Input{Method: "DELETE", Path: "/api/v1/organizations/a/b/c", StatusCode: 200})
		s.NotEqual(taxonomy.EventOrgDelete, c.EventType)
	})

	s.Run("member removal", func() {
		c := s.classifier.Classify(Input{Method: "DELETE", Path: "/api/v1/organizations/o1/members/u9", StatusCode: 200})
		s.Equal(taxonomy.EventOrgMemberRemove, c.EventType)
	})

	s.Run("pattern rule failure with no failure event falls to heuristics", func() {
		c := s.classifier.Classify(Input{Method: "DELETE", Path: "/api/v1/projects/p1", StatusCode: 500})
		s.Equal(taxonomy.EventProjectDelete, c.EventType)
		s.Equal(taxonomy.RiskMedium, c.Risk)
	})
}

// =============================================================================
// Heuristic Tests
// =============================================================================

func (s *ClassifierSuite) TestHeuristics() {
	s.Run("failed auth on an unknown route counts as login failure", func() {
		c := s.classifier.Classify(Input{Method: "POST", Path: "/api/v1/auth/mfa/verify", StatusCode: 403})
		s.Equal(taxonomy.EventAuthLoginFailed, c.EventType)
		s.Equal(taxonomy.RiskHigh, c.Risk)
	})

	s.Run("unknown route yields no event", func() {
		c := s.classifier.Classify(Input{Method: "GET", Path: "/api/v1/tasks", StatusCode: 200})
		s.Empty(c.EventType)
		s.Equal(taxonomy.RiskLow, c.Risk)
		s.Equal(taxonomy.SensitivityInternal, c.Sensitivity)
	})

	s.Run("unmatched DELETE is escalated to medium", func() {
		c := s.classifier.Classify(Input{Method: "DELETE", Path: "/api/v1/widgets/1", StatusCode: 200})
		s.Empty(c.EventType)
		s.Equal(taxonomy.RiskMedium, c.Risk)
	})
}

// =============================================================================
// Risk Escalation Tests
// =============================================================================

func (s *ClassifierSuite) TestRiskEscalation() {
	s.Run("bulk body raises risk but never lowers it", func() {
		c := s.classifier.Classify(Input{
			Method:     "DELETE",
			Path:       "/api/v1/organizations/abc",
			StatusCode: 200,
			Body:       map[string]any{"ids": []any{"1", "2"}},
		})
		s.Equal(taxonomy.EventOrgDelete, c.EventType)
		s.Equal(taxonomy.RiskHigh, c.Risk)
	})

	s.Run("bulk body raises a low risk event to medium", func() {
		c := s.classifier.Classify(Input{
			Method:     "POST",
			Path:       "/api/v1/tasks",
			StatusCode: 200,
			Body:       map[string]any{"items": []any{map[string]any{}, map[string]any{}}},
		})
		s.Equal(taxonomy.EventTaskCreate, c.EventType)
		s.Equal(taxonomy.RiskMedium, c.Risk)
	})

	s.Run("export query escalates risk and sensitivity", func() {
		c := s.classifier.Classify(Input{
			Method:     "GET",
			Path:       "/api/v1/tasks",
			StatusCode: 200,
			Query:      url.Values{"format": {"csv"}},
		})
		s.Equal(taxonomy.RiskMedium, c.Risk)
		s.Equal(taxonomy.SensitivityConfidential, c.Sensitivity)
	})

	s.Run("admin path escalates to high", func() {
		c := s.classifier.Classify(Input{Method: "GET", Path: "/api/v1/admin/users", StatusCode: 200})
		s.Equal(taxonomy.RiskHigh, c.Risk)
	})
}

// =============================================================================
// Sensitivity Tests
// =============================================================================

func (s *ClassifierSuite) TestSensitivity() {
	s.Run("audit surface is restricted", func() {
		c := s.classifier.Classify(Input{Method: "GET", Path: "/api/v1/audit/records", StatusCode: 200})
		s.Equal(taxonomy.EventAdminAuditAccess, c.EventType)
		s.Equal(taxonomy.SensitivityRestricted, c.Sensitivity)
	})

	s.Run("default is internal", func() {
		c := s.classifier.Classify(Input{Method: "POST", Path: "/api/v1/projects", StatusCode: 200})
		s.Equal(taxonomy.SensitivityInternal, c.Sensitivity)
	})
}

// =============================================================================
// Predicate Tests
// =============================================================================

func (s *ClassifierSuite) TestPredicates() {
	s.Run("bulk detection", func() {
		s.True(IsBulkOperation(Input{Path: "/api/v1/tasks/bulk"}))
		s.True(IsBulkOperation(Input{Path: "/x", Body: map[string]any{"ids": []any{"1"}}}))
		s.True(IsBulkOperation(Input{Path: "/x", Body: map[string]any{"items": []any{}}}))
		s.False(IsBulkOperation(Input{Path: "/x", Body: map[string]any{"ids": "not-an-array"}}))
		s.False(IsBulkOperation(Input{Path: "/x", Body: "text"}))
	})

	s.Run("export detection", func() {
		s.True(IsDataExport(Input{Path: "/api/v1/tasks/export"}))
		s.True(IsDataExport(Input{Path: "/x", Query: url.Values{"export": {"true"}}}))
		s.True(IsDataExport(Input{Path: "/x", Query: url.Values{"format": {"csv"}}}))
		s.False(IsDataExport(Input{Path: "/x", Query: url.Values{"format": {"json"}}}))
		s.False(IsDataExport(Input{Path: "/x"}))
	})
}
