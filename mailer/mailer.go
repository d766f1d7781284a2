package mailer

import (
	"fmt"
	"net/smtp"
	"strings"

	"github.com/rs/zerolog"
)

// Message is a single outbound notification email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Sender delivers notification emails. Implementations report failure via the
// returned error; callers in the alerting path treat any failure as
// best-effort and log it.
type Sender interface {
	Send(msg Message) error
}

// SMTPSender sends mail over plain SMTP with auth. When host or user is
// empty the sender is unconfigured and Send degrades to a logged no-op.
type SMTPSender struct {
	host     string
	port     string
	user     string
	password string
	logger   zerolog.Logger
}

func NewSMTPSender(host, port, user, password string, logger zerolog.Logger) *SMTPSender {
	return &SMTPSender{
		host:     host,
		port:     port,
		user:     user,
		password: password,
		logger:   logger.With().Str("component", "mailer").Logger(),
	}
}

func (s *SMTPSender) configured() bool {
	return s.host != "" && s.user != ""
}

func (s *SMTPSender) Send(msg Message) error {
	if !s.configured() {
		s.logger.Warn().Str("to", msg.To).Msg("mail not configured, skipping send")
		return nil
	}
	if msg.To == "" {
		return fmt.Errorf("no recipient")
	}

	to := bareAddress(msg.To)

	var body strings.Builder
	body.WriteString("From: " + s.user + "\r\n")
	body.WriteString("To: " + to + "\r\n")
	body.WriteString("Subject: " + msg.Subject + "\r\n")
	body.WriteString("MIME-Version: 1.0\r\n")
	body.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	body.WriteString("\r\n")
	body.WriteString(msg.HTML)

	auth := smtp.PlainAuth("", s.user, s.password, s.host)
	addr := s.host + ":" + s.port
	if err := smtp.SendMail(addr, auth, s.user, []string{to}, []byte(body.String())); err != nil {
		return fmt.Errorf("smtp send to %s: %w", to, err)
	}

	s.logger.Info().Str("to", to).Str("subject", msg.Subject).Msg("alert email sent")
	return nil
}

// bareAddress strips a "Name <addr>" display form down to addr; SMTP envelope
// recipients must be bare addresses.
func bareAddress(s string) string {
	if i := strings.Index(s, "<"); i != -1 {
		if j := strings.Index(s[i:], ">"); j != -1 {
			return s[i+1 : i+j]
		}
	}
	return s
}
