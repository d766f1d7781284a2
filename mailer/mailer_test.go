package mailer

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestSendUnconfiguredIsNoOp(t *testing.T) {
	s := NewSMTPSender("", "", "", "", zerolog.Nop())

	err := s.Send(Message{To: "admin@example.com", Subject: "x", HTML: "<p>x</p>"})
	assert.NoError(t, err)
}

func TestSendConfiguredRejectsEmptyRecipient(t *testing.T) {
	s := NewSMTPSender("smtp.example.com", "587", "alerts@example.com", "secret", zerolog.Nop())

	err := s.Send(Message{Subject: "x", HTML: "<p>x</p>"})
	assert.Error(t, err)
}

func TestBareAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"admin@example.com", "admin@example.com"},
		{"Security Team <soc@example.com>", "soc@example.com"},
		{"<soc@example.com>", "soc@example.com"},
		{"broken <soc@example.com", "broken <soc@example.com"},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, bareAddress(tc.in), tc.in)
	}
}
