package traffic

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Iqra-23/intrusion-backend/detector"
	"github.com/Iqra-23/intrusion-backend/geo"
	"github.com/Iqra-23/intrusion-backend/middleware"
	"github.com/Iqra-23/intrusion-backend/models"
)

// EventStore is the append-only persistence capability for traffic events.
type EventStore interface {
	Create(ctx context.Context, ev *models.TrafficEvent) error
}

// SpikePublisher pushes spike-flagged events onto the security-event stream.
type SpikePublisher interface {
	PublishTrafficSpike(ctx context.Context, ev *models.TrafficEvent) error
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Recorder captures one TrafficEvent per completed HTTP request. All of its
// work runs after the response has been written; nothing it does can fail the
// request it observed.
type Recorder struct {
	store   EventStore
	window  detector.Window
	geo     geo.Resolver
	spikes  SpikePublisher
	logger  zerolog.Logger
	timeout time.Duration

	highRiskCountries []string

	// excludePrefixes keeps the recorder from logging its own reporting and
	// query endpoints.
	excludePrefixes []string
}

type RecorderOptions struct {
	Store             EventStore
	Window            detector.Window
	Geo               geo.Resolver
	Spikes            SpikePublisher
	Logger            zerolog.Logger
	HighRiskCountries []string
	ExcludePrefixes   []string
	Timeout           time.Duration
}

func NewRecorder(opts RecorderOptions) *Recorder {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.ExcludePrefixes == nil {
		opts.ExcludePrefixes = []string{"/api/traffic", "/api/alerts", "/api/logs", "/events", "/health"}
	}
	return &Recorder{
		store:             opts.Store,
		window:            opts.Window,
		geo:               opts.Geo,
		spikes:            opts.Spikes,
		logger:            opts.Logger.With().Str("component", "traffic-recorder").Logger(),
		timeout:           opts.Timeout,
		highRiskCountries: opts.HighRiskCountries,
		excludePrefixes:   opts.ExcludePrefixes,
	}
}

// Record wraps a handler and captures every non-excluded request after it
// completes.
func (rec *Recorder) Record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if rec.excluded(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		// Capture request attributes now; the request object is not safe to
		// touch once the handler goroutine returns.
		ip := ClientIP(r)
		method := r.Method
		path := r.URL.RequestURI()
		userAgent := r.UserAgent()
		sessionID := sessionID(r, ip, userAgent)
		headers := captureHeaders(r)
		userID := userIDFrom(r.Context())
		status := rw.statusCode

		go rec.capture(ip, method, path, status, userAgent, sessionID, headers, userID, start)
	})
}

func (rec *Recorder) capture(ip, method, path string, status int, userAgent, sessionID string,
	headers map[string]string, userID *uuid.UUID, start time.Time) {

	defer func() {
		if r := recover(); r != nil {
			rec.logger.Error().Interface("panic", r).Msg("traffic capture panicked")
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), rec.timeout)
	defer cancel()

	now := time.Now()

	var g *models.Geo
	if rec.geo != nil {
		g = rec.geo.Lookup(ctx, ip)
	}

	isSpike := false
	if rec.window != nil {
		spike, err := rec.window.IsSpike(ctx, ip, now)
		if err != nil {
			rec.logger.Warn().Err(err).Str("ip", ip).Msg("spike check failed")
		} else {
			isSpike = spike
		}
	}

	score, reasons := detector.Score(detector.ScoreInput{
		Method:            method,
		Path:              path,
		Status:            status,
		Geo:               g,
		IsSpike:           isSpike,
		UserAgent:         userAgent,
		HighRiskCountries: rec.highRiskCountries,
	})

	var tags []string
	if isSpike {
		tags = append(tags, "spike")
	}
	if status >= 500 {
		tags = append(tags, "server-error")
	} else if status >= 400 {
		tags = append(tags, "client-error")
	}

	ev := &models.TrafficEvent{
		IP:             ip,
		Method:         method,
		Path:           path,
		Status:         status,
		UserAgent:      userAgent,
		Headers:        headers,
		SessionID:      sessionID,
		UserID:         userID,
		Geo:            g,
		Module:         moduleLabel(path),
		IsSpike:        isSpike,
		Tags:           tags,
		AnomalyScore:   score,
		AnomalyReasons: reasons,
		DurationMs:     now.Sub(start).Milliseconds(),
		CreatedAt:      now,
	}

	if err := rec.store.Create(ctx, ev); err != nil {
		rec.logger.Error().Err(err).Str("ip", ip).Str("path", path).Msg("traffic event save failed")
		return
	}

	if isSpike && rec.spikes != nil {
		if err := rec.spikes.PublishTrafficSpike(ctx, ev); err != nil {
			rec.logger.Warn().Err(err).Str("ip", ip).Msg("spike event publish failed")
		}
	}
}

func (rec *Recorder) excluded(path string) bool {
	for _, p := range rec.excludePrefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}

// ClientIP resolves the originating address, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		ips := strings.Split(xff, ",")
		return strings.TrimSpace(ips[0])
	}

	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}

	ip := r.RemoteAddr
	if colonIdx := strings.LastIndex(ip, ":"); colonIdx != -1 {
		ip = ip[:colonIdx]
	}
	return strings.Trim(ip, "[]")
}

// sessionID prefers an explicit session header and falls back to a stable
// ip+user-agent pseudo-session.
func sessionID(r *http.Request, ip, userAgent string) string {
	if sid := r.Header.Get("X-Session-Id"); sid != "" {
		return sid
	}
	ua := userAgent
	if len(ua) > 40 {
		ua = ua[:40]
	}
	return ip + "-" + ua
}

// captureHeaders records the header subset worth keeping; full header capture
// would bloat every row with cookies and auth material.
func captureHeaders(r *http.Request) map[string]string {
	keys := []string{"Host", "Origin", "Referer", "Content-Type", "Accept-Language", "X-Forwarded-For"}
	h := make(map[string]string, len(keys))
	for _, k := range keys {
		v := r.Header.Get(k)
		if k == "Host" && v == "" {
			v = r.Host
		}
		if v != "" {
			h[strings.ToLower(k)] = v
		}
	}
	return h
}

// moduleLabel coarsely classifies which API area handled the request.
func moduleLabel(path string) string {
	p := strings.ToLower(path)
	switch {
	case strings.HasPrefix(p, "/api/auth"):
		return "auth"
	case strings.HasPrefix(p, "/api/logs"):
		return "logs"
	case strings.HasPrefix(p, "/api/dashboard"):
		return "dashboard"
	case strings.HasPrefix(p, "/app"):
		return "proxy"
	case strings.HasPrefix(p, "/api"):
		return "api"
	default:
		return "other"
	}
}

func userIDFrom(ctx context.Context) *uuid.UUID {
	raw := middleware.GetUserID(ctx)
	if raw == "" {
		return nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil
	}
	return &id
}
