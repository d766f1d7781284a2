package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Iqra-23/intrusion-backend/models"
)

type stubStore struct {
	created []*models.Alert
	err     error
}

func (s *stubStore) Create(_ context.Context, alert *models.Alert) error {
	if s.err != nil {
		return s.err
	}
	alert.ID = uuid.New()
	s.created = append(s.created, alert)
	return nil
}

type stubDispatcher struct {
	dispatched []*models.Alert
	hints      []string
}

func (s *stubDispatcher) Dispatch(_ context.Context, alert *models.Alert, _ *models.LogRecord, hint string) {
	s.dispatched = append(s.dispatched, alert)
	s.hints = append(s.hints, hint)
}

func newTestClassifier() (*Classifier, *stubStore, *stubDispatcher) {
	store := &stubStore{}
	disp := &stubDispatcher{}
	return New(store, disp, zerolog.Nop()), store, disp
}

func logRecord(level models.LogLevel, message string, keywords ...string) *models.LogRecord {
	return &models.LogRecord{
		ID:       uuid.New(),
		Level:    level,
		Message:  message,
		Keywords: keywords,
	}
}

func TestClassifyBenignLogReturnsNil(t *testing.T) {
	c, store, disp := newTestClassifier()

	alert := c.Classify(context.Background(), logRecord(models.LevelInfo, "user logged in"), "")

	assert.Nil(t, alert)
	assert.Empty(t, store.created)
	assert.Empty(t, disp.dispatched)
}

func TestClassifyErrorLevelIsHigh(t *testing.T) {
	c, _, disp := newTestClassifier()

	alert := c.Classify(context.Background(), logRecord(models.LevelError, "unexpected failure"), "")

	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	assert.Equal(t, "Suspicious Activity Detected: ERROR", alert.Title)
	assert.Equal(t, "unexpected failure", alert.Description)
	// "error" is itself a vocabulary term, so it is the matched keyword.
	assert.Equal(t, []string{"error"}, alert.Keywords)
	assert.Len(t, disp.dispatched, 1)
}

func TestClassifySQLInjectionAtInfoLevelIsHigh(t *testing.T) {
	c, _, _ := newTestClassifier()

	alert := c.Classify(context.Background(),
		logRecord(models.LevelInfo, "possible sql injection detected in query"), "")

	require.NotNil(t, alert)
	// "sql injection" is a high-tier term, not critical; the level is not
	// "suspicious" either, so the critical rule cannot fire.
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	assert.Contains(t, alert.Keywords, "sql injection")
	assert.Contains(t, alert.Keywords, "injection")
}

func TestClassifySuspiciousLevelIsCritical(t *testing.T) {
	c, _, _ := newTestClassifier()

	alert := c.Classify(context.Background(), logRecord(models.LevelSuspicious, "odd session behavior"), "")

	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
	assert.Equal(t, "Suspicious Activity Detected: SUSPICIOUS", alert.Title)
}

func TestClassifyCriticalTermOverridesLevel(t *testing.T) {
	c, _, _ := newTestClassifier()

	alert := c.Classify(context.Background(), logRecord(models.LevelInfo, "data breach reported by customer"), "")

	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityCritical, alert.Severity)
}

func TestClassifyWarningLevelIsMedium(t *testing.T) {
	c, _, _ := newTestClassifier()

	alert := c.Classify(context.Background(), logRecord(models.LevelWarning, "disk usage at 85 percent"), "")

	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityMedium, alert.Severity)
	assert.Equal(t, []string{"warning"}, alert.Keywords)
}

func TestClassifyKeywordOverlapBothDirections(t *testing.T) {
	c, _, _ := newTestClassifier()

	// Tag "xss-attempt" contains the term "xss"; the message itself is clean.
	alert := c.Classify(context.Background(),
		logRecord(models.LevelInfo, "request rejected", "xss-attempt"), "")

	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	assert.Contains(t, alert.Keywords, "xss")
}

func TestClassifyShortTagMatchesLongerTerm(t *testing.T) {
	c, _, _ := newTestClassifier()

	// Tag "inject" is a substring of the vocabulary term "injection"; the
	// loose both-direction match is intentional.
	alert := c.Classify(context.Background(),
		logRecord(models.LevelInfo, "request rejected", "inject"), "")

	require.NotNil(t, alert)
	assert.Contains(t, alert.Keywords, "injection")
}

func TestClassifyEmptyMessageRiskyLevelStillRaises(t *testing.T) {
	c, _, _ := newTestClassifier()

	alert := c.Classify(context.Background(), logRecord(models.LevelError, ""), "")

	require.NotNil(t, alert)
	assert.Equal(t, models.SeverityHigh, alert.Severity)
	assert.Equal(t, []string{"error"}, alert.Keywords)
}

func TestClassifyNilLogReturnsNil(t *testing.T) {
	c, store, _ := newTestClassifier()

	assert.Nil(t, c.Classify(context.Background(), nil, ""))
	assert.Empty(t, store.created)
}

func TestClassifyPersistFailureSkipsDispatch(t *testing.T) {
	store := &stubStore{err: errors.New("db down")}
	disp := &stubDispatcher{}
	c := New(store, disp, zerolog.Nop())

	alert := c.Classify(context.Background(), logRecord(models.LevelError, "unexpected failure"), "")

	assert.Nil(t, alert)
	assert.Empty(t, disp.dispatched)
}

func TestClassifyPassesRecipientHint(t *testing.T) {
	c, _, disp := newTestClassifier()

	c.Classify(context.Background(), logRecord(models.LevelError, "boom"), "oncall@example.com")

	require.Len(t, disp.hints, 1)
	assert.Equal(t, "oncall@example.com", disp.hints[0])
}

func TestFindTermsEmptyInputs(t *testing.T) {
	assert.Empty(t, findTerms("", nil))
	assert.Empty(t, findTerms("clean message with nothing risky at all", nil))
}

func TestSeverityPriorityOrder(t *testing.T) {
	tests := []struct {
		name  string
		level models.LogLevel
		found []string
		want  models.Severity
	}{
		{"critical term beats high term", models.LevelInfo, []string{"exploit", "xss"}, models.SeverityCritical},
		{"high term beats medium term", models.LevelInfo, []string{"hack", "unauthorized"}, models.SeverityHigh},
		{"medium term alone", models.LevelInfo, []string{"intrusion"}, models.SeverityMedium},
		{"no tier term defaults low", models.LevelInfo, []string{"phishing"}, models.SeverityLow},
		{"error level beats medium term", models.LevelError, []string{"unauthorized"}, models.SeverityHigh},
		{"suspicious level always critical", models.LevelSuspicious, nil, models.SeverityCritical},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, severityFor(tc.level, tc.found))
		})
	}
}
