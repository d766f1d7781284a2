package kafka

import (
	"context"

	"github.com/google/uuid"

	"github.com/Iqra-23/intrusion-backend/models"
)

// SecurityEventPublisher adapts the raw producer to the domain-level events
// the pipelines emit.
type SecurityEventPublisher struct {
	producer *Producer
}

func NewSecurityEventPublisher(producer *Producer) *SecurityEventPublisher {
	return &SecurityEventPublisher{producer: producer}
}

func (p *SecurityEventPublisher) PublishAlertRaised(ctx context.Context, alert *models.Alert, rec *models.LogRecord) error {
	ev := NewSecurityEvent(rec.IPAddress, userIDString(rec.UserID), string(EventAlertRaised), rec.URL, rec.Method, rec.UserAgent)
	ev.Severity = string(alert.Severity)
	ev.Detail = alert.Title
	return p.producer.PublishSecurityEvent(ctx, ev)
}

func (p *SecurityEventPublisher) PublishTrafficSpike(ctx context.Context, te *models.TrafficEvent) error {
	ev := NewSecurityEvent(te.IP, userIDString(te.UserID), string(EventTrafficSpike), te.Path, te.Method, te.UserAgent)
	ev.AnomalyScore = te.AnomalyScore
	return p.producer.PublishSecurityEvent(ctx, ev)
}

func userIDString(id *uuid.UUID) string {
	if id == nil {
		return ""
	}
	return id.String()
}
