package email

import (
	"crypto/tls"
	"strings"

	"gopkg.in/gomail.v2"
)

type Sender interface {
	Send(to string, subject string, body string) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	// InsecureSkipVerify is only meant for local relays such as Mailpit.
	InsecureSkipVerify bool
}

// SMTPSender delivers plain-text mail. Credentials are optional; an empty
// username sends unauthenticated.
type SMTPSender struct {
	dialer *gomail.Dialer
	from   string
}

func NewSMTPSender(cfg SMTPConfig) *SMTPSender {
	from := strings.TrimSpace(cfg.From)
	if from == "" {
		from = strings.TrimSpace(cfg.Username)
	}
	if from == "" {
		from = "no-reply@shopqueue.local"
	}
	d := gomail.NewDialer(strings.TrimSpace(cfg.Host), cfg.Port, cfg.Username, cfg.Password)
	if cfg.InsecureSkipVerify {
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &SMTPSender{dialer: d, from: from}
}

func (s *SMTPSender) Send(to string, subject string, body string) error {
	return s.dialer.DialAndSend(buildMessage(s.from, to, subject, body))
}

func buildMessage(from, to, subject, body string) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)
	return m
}
