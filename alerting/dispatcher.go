package alerting

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Iqra-23/intrusion-backend/mailer"
	"github.com/Iqra-23/intrusion-backend/models"
)

// Broadcaster is the real-time fan-out capability. Emit must be a no-op when
// no subscribers are connected.
type Broadcaster interface {
	Emit(name string, payload interface{})
}

// EventPublisher pushes alert events onto the security-event stream.
type EventPublisher interface {
	PublishAlertRaised(ctx context.Context, alert *models.Alert, rec *models.LogRecord) error
}

// Dispatcher fans a freshly persisted alert out to real-time subscribers, the
// event stream, and email. Every step is independently best-effort: a failure
// in one never blocks the others and nothing propagates to the caller.
type Dispatcher struct {
	hub        Broadcaster
	mail       mailer.Sender
	events     EventPublisher
	adminEmail string
	dashURL    string
	logger     zerolog.Logger
}

func NewDispatcher(hub Broadcaster, mail mailer.Sender, events EventPublisher, adminEmail, dashURL string, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		hub:        hub,
		mail:       mail,
		events:     events,
		adminEmail: adminEmail,
		dashURL:    dashURL,
		logger:     logger.With().Str("component", "dispatcher").Logger(),
	}
}

// NewAlertPayload is the shape broadcast to real-time subscribers.
type NewAlertPayload struct {
	ID          string    `json:"id"`
	Severity    string    `json:"severity"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	Keywords    []string  `json:"keywords"`
}

// Dispatch assumes the alert is already persisted. It does not deduplicate:
// two calls for equivalent input produce two broadcasts and two emails.
func (d *Dispatcher) Dispatch(ctx context.Context, alert *models.Alert, rec *models.LogRecord, recipientHint string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Msg("dispatch panicked")
		}
	}()

	d.broadcast(alert)
	d.publish(ctx, alert, rec)
	d.email(alert, rec, recipientHint)
}

func (d *Dispatcher) broadcast(alert *models.Alert) {
	if d.hub == nil {
		return
	}
	d.hub.Emit("new-alert", NewAlertPayload{
		ID:          alert.ID.String(),
		Severity:    string(alert.Severity),
		Title:       alert.Title,
		Description: alert.Description,
		CreatedAt:   alert.CreatedAt,
		Keywords:    alert.Keywords,
	})
}

func (d *Dispatcher) publish(ctx context.Context, alert *models.Alert, rec *models.LogRecord) {
	if d.events == nil {
		return
	}
	if err := d.events.PublishAlertRaised(ctx, alert, rec); err != nil {
		d.logger.Warn().Err(err).Str("alert_id", alert.ID.String()).Msg("event publish failed")
	}
}

func (d *Dispatcher) email(alert *models.Alert, rec *models.LogRecord, recipientHint string) {
	if d.mail == nil {
		return
	}

	to := recipientHint
	if to == "" {
		to = d.adminEmail
	}
	if to == "" {
		d.logger.Warn().Str("alert_id", alert.ID.String()).Msg("no email recipient configured")
		return
	}

	subject := fmt.Sprintf("%s Security Alert - Intrusion Backend", strings.ToUpper(string(alert.Severity)))

	var body strings.Builder
	body.WriteString(`<div style="font-family: Arial; padding: 20px;">`)
	body.WriteString("<h2>Security Alert</h2>")
	body.WriteString("<p><strong>Severity:</strong> " + strings.ToUpper(string(alert.Severity)) + "</p>")
	body.WriteString("<p><strong>Message:</strong> " + alert.Description + "</p>")
	body.WriteString("<p><strong>Time:</strong> " + rec.CreatedAt.Format(time.RFC1123) + "</p>")
	if len(alert.Keywords) > 0 {
		body.WriteString("<p><strong>Keywords:</strong> " + strings.Join(alert.Keywords, ", ") + "</p>")
	}
	body.WriteString(`<a href="` + d.dashURL + `/alerts">View Alert</a>`)
	body.WriteString("</div>")

	if err := d.mail.Send(mailer.Message{To: to, Subject: subject, HTML: body.String()}); err != nil {
		d.logger.Warn().Err(err).Str("alert_id", alert.ID.String()).Str("to", to).Msg("alert email failed")
	}
}
