package email

import (
	"bytes"
	"strings"
	"testing"
)

func TestBuildMessageHeaders(t *testing.T) {
	m := buildMessage("shop@example.test", "ana@example.test", "Appointment Confirmation for Corner Cuts", "Hello Ana")
	if got := m.GetHeader("To"); len(got) != 1 || got[0] != "ana@example.test" {
		t.Fatalf("unexpected To header: %v", got)
	}
	var buf bytes.Buffer
	if _, err := m.WriteTo(&buf); err != nil {
		t.Fatalf("write message: %v", err)
	}
	raw := buf.String()
	for _, want := range []string{"Subject: Appointment Confirmation for Corner Cuts", "Content-Type: text/plain", "Hello Ana"} {
		if !strings.Contains(raw, want) {
			t.Fatalf("message missing %q:\n%s", want, raw)
		}
	}
}

func TestNewSMTPSenderFallsBackToUsername(t *testing.T) {
	s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025, Username: "bookings@example.test"})
	if s.from != "bookings@example.test" {
		t.Fatalf("from = %q", s.from)
	}
	if s := NewSMTPSender(SMTPConfig{Host: "localhost", Port: 1025}); s.from != "no-reply@shopqueue.local" {
		t.Fatalf("from = %q", s.from)
	}
}
