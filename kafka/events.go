package kafka

import (
	"time"

	"github.com/google/uuid"
)

// SecurityEvent is the wire record published to the security-events topic.
type SecurityEvent struct {
	ID           string    `json:"id"`
	IP           string    `json:"ip"`
	UserID       string    `json:"user_id"`
	EventType    string    `json:"event_type"`
	Severity     string    `json:"severity,omitempty"`
	AnomalyScore int       `json:"anomaly_score"`
	Endpoint     string    `json:"endpoint"`
	Method       string    `json:"method"`
	UserAgent    string    `json:"user_agent"`
	Detail       string    `json:"detail,omitempty"`
	Timestamp    int64     `json:"timestamp"`
	CreatedAt    time.Time `json:"created_at"`
}

func NewSecurityEvent(ip, userID, eventType, endpoint, method, userAgent string) *SecurityEvent {
	return &SecurityEvent{
		ID:        uuid.New().String(),
		IP:        ip,
		UserID:    userID,
		EventType: eventType,
		Endpoint:  endpoint,
		Method:    method,
		UserAgent: userAgent,
		Timestamp: time.Now().Unix(),
		CreatedAt: time.Now(),
	}
}

type EventType string

const (
	EventTrafficSpike  EventType = "TRAFFIC_SPIKE"
	EventHighAnomaly   EventType = "HIGH_ANOMALY"
	EventSuspiciousLog EventType = "SUSPICIOUS_LOG"
	EventAlertRaised   EventType = "ALERT_RAISED"
)
