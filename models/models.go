package models

import (
	"time"

	"github.com/google/uuid"
)

type LogLevel string

const (
	LevelDebug      LogLevel = "debug"
	LevelInfo       LogLevel = "info"
	LevelWarning    LogLevel = "warning"
	LevelError      LogLevel = "error"
	LevelSuspicious LogLevel = "suspicious"
)

func (l LogLevel) Valid() bool {
	switch l {
	case LevelDebug, LevelInfo, LevelWarning, LevelError, LevelSuspicious:
		return true
	}
	return false
}

type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// Geo holds the result of an IP geo lookup. A nil *Geo on a TrafficEvent
// means the lookup failed or was skipped.
type Geo struct {
	Country string  `json:"country"`
	City    string  `json:"city"`
	Region  string  `json:"region"`
	ISP     string  `json:"isp"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// TrafficEvent is one record per completed HTTP request. Events are
// immutable once created; the only mutation path is bulk deletion.
type TrafficEvent struct {
	ID             uuid.UUID         `json:"id"`
	IP             string            `json:"ip"`
	Method         string            `json:"method"`
	Path           string            `json:"path"`
	Status         int               `json:"status"`
	UserAgent      string            `json:"user_agent"`
	Headers        map[string]string `json:"headers"`
	SessionID      string            `json:"session_id"`
	UserID         *uuid.UUID        `json:"user_id,omitempty"`
	Geo            *Geo              `json:"geo,omitempty"`
	Module         string            `json:"module"`
	IsSpike        bool              `json:"is_spike"`
	Tags           []string          `json:"tags"`
	AnomalyScore   int               `json:"anomaly_score"`
	AnomalyReasons []string          `json:"anomaly_reasons"`
	DurationMs     int64             `json:"duration_ms"`
	CreatedAt      time.Time         `json:"created_at"`
}

// LogRecord is an application log entry submitted by the monitored app.
type LogRecord struct {
	ID         uuid.UUID  `json:"id"`
	Level      LogLevel   `json:"level"`
	Message    string     `json:"message"`
	Keywords   []string   `json:"keywords"`
	IPAddress  string     `json:"ip_address,omitempty"`
	UserAgent  string     `json:"user_agent,omitempty"`
	URL        string     `json:"url,omitempty"`
	Method     string     `json:"method,omitempty"`
	StatusCode int        `json:"status_code,omitempty"`
	UserID     *uuid.UUID `json:"user_id,omitempty"`
	Archived   bool       `json:"archived"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Alert is one record per suspicious-activity determination. It always
// references the log that triggered it.
type Alert struct {
	ID             uuid.UUID  `json:"id"`
	LogID          uuid.UUID  `json:"log_id"`
	Severity       Severity   `json:"severity"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Keywords       []string   `json:"keywords"`
	Acknowledged   bool       `json:"acknowledged"`
	AcknowledgedBy *uuid.UUID `json:"acknowledged_by,omitempty"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	Resolved       bool       `json:"resolved"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

type APIKey struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	APIKey    string    `json:"api_key"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// TrafficStats is the aggregate summary served to the dashboard.
type TrafficStats struct {
	Total           int64          `json:"total"`
	UniqueIPs       int64          `json:"unique_ips"`
	ByCountry       []CountryCount `json:"by_country"`
	ByMethod        []MethodCount  `json:"by_method"`
	SpikesLastHour  int64          `json:"spikes_last_hour"`
	HighAnomaly24h  int64          `json:"high_anomaly_24h"`
	AvgAnomalyScore float64        `json:"avg_anomaly_score"`
}

type CountryCount struct {
	Country string `json:"country"`
	Count   int64  `json:"count"`
}

type MethodCount struct {
	Method string `json:"method"`
	Count  int64  `json:"count"`
}

type LogStats struct {
	Total      int64 `json:"total"`
	Errors     int64 `json:"errors"`
	Warnings   int64 `json:"warnings"`
	Suspicious int64 `json:"suspicious"`
	Archived   int64 `json:"archived"`
}
