package classifier

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"github.com/Iqra-23/intrusion-backend/models"
)

// suspiciousKeywords is the fixed risk-term vocabulary scanned against log
// messages and keyword tags.
var suspiciousKeywords = []string{
	"critical",
	"vulnerability",
	"exploit",
	"sql injection",
	"xss",
	"csrf",
	"malware",
	"virus",
	"hack",
	"breach",
	"attack",
	"intrusion",
	"malicious",
	"phishing",
	"backdoor",
	"trojan",
	"ransomware",
	"ddos",
	"brute force",
	"injection",
	"shell",
	"payload",
	"penetration",
	"unauthorized",
	"high",
	"medium",
	"low",
	"error",
	"warning",
	"suspicious",
}

var criticalTerms = map[string]bool{
	"critical": true, "exploit": true, "breach": true, "attack": true,
}

var highTerms = map[string]bool{
	"sql injection": true, "xss": true, "malware": true, "virus": true, "hack": true,
}

var mediumTerms = map[string]bool{
	"unauthorized": true, "intrusion": true,
}

// AlertStore is the persistence capability the classifier needs. It only ever
// appends.
type AlertStore interface {
	Create(ctx context.Context, alert *models.Alert) error
}

// Dispatcher receives alerts the classifier has already persisted. It must
// not propagate failures back.
type Dispatcher interface {
	Dispatch(ctx context.Context, alert *models.Alert, rec *models.LogRecord, recipientHint string)
}

type Classifier struct {
	alerts     AlertStore
	dispatcher Dispatcher
	logger     zerolog.Logger
}

func New(alerts AlertStore, dispatcher Dispatcher, logger zerolog.Logger) *Classifier {
	return &Classifier{
		alerts:     alerts,
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "classifier").Logger(),
	}
}

// Classify scans a log record for risk terms and raises an alert when it
// judges the record suspicious. It returns the created alert, or nil when no
// alert is warranted or the alert could not be persisted. Safe to call
// concurrently for unrelated logs.
func (c *Classifier) Classify(ctx context.Context, rec *models.LogRecord, recipientHint string) *models.Alert {
	if rec == nil {
		return nil
	}

	found := findTerms(rec.Message, rec.Keywords)

	riskyLevel := rec.Level == models.LevelWarning ||
		rec.Level == models.LevelError ||
		rec.Level == models.LevelSuspicious

	if len(found) == 0 && !riskyLevel {
		return nil
	}

	alert := &models.Alert{
		LogID:       rec.ID,
		Severity:    severityFor(rec.Level, found),
		Title:       "Suspicious Activity Detected: " + strings.ToUpper(string(rec.Level)),
		Description: rec.Message,
		Keywords:    found,
	}
	if len(alert.Keywords) == 0 {
		alert.Keywords = []string{string(rec.Level)}
	}

	if err := c.alerts.Create(ctx, alert); err != nil {
		c.logger.Error().Err(err).Str("log_id", rec.ID.String()).Msg("alert persist failed, skipping dispatch")
		return nil
	}

	c.logger.Info().
		Str("alert_id", alert.ID.String()).
		Str("severity", string(alert.Severity)).
		Strs("keywords", alert.Keywords).
		Msg("alert raised")

	c.dispatcher.Dispatch(ctx, alert, rec, recipientHint)
	return alert
}

// findTerms returns the vocabulary terms present in the message or
// overlapping any keyword tag. Keyword matching is a substring check in both
// directions, which is deliberately loose: short terms like "low" can match
// unrelated words.
func findTerms(message string, keywords []string) []string {
	msg := strings.ToLower(message)
	tags := make([]string, len(keywords))
	for i, k := range keywords {
		tags[i] = strings.ToLower(k)
	}

	var found []string
	for _, term := range suspiciousKeywords {
		if msg != "" && strings.Contains(msg, term) {
			found = append(found, term)
			continue
		}
		for _, tag := range tags {
			if tag == "" {
				continue
			}
			if strings.Contains(tag, term) || strings.Contains(term, tag) {
				found = append(found, term)
				break
			}
		}
	}
	return found
}

// severityFor applies the priority-ordered tier rules; the first matching
// tier wins.
func severityFor(level models.LogLevel, found []string) models.Severity {
	if level == models.LevelSuspicious || anyIn(found, criticalTerms) {
		return models.SeverityCritical
	}
	if level == models.LevelError || anyIn(found, highTerms) {
		return models.SeverityHigh
	}
	if level == models.LevelWarning || anyIn(found, mediumTerms) {
		return models.SeverityMedium
	}
	return models.SeverityLow
}

func anyIn(terms []string, set map[string]bool) bool {
	for _, t := range terms {
		if set[t] {
			return true
		}
	}
	return false
}
