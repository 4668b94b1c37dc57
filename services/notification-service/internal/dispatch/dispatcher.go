package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/shopqueue/libs/kafkax"
	"github.com/md-rashed-zaman/shopqueue/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/shopqueue/services/notification-service/internal/sms"
	"github.com/md-rashed-zaman/shopqueue/services/notification-service/internal/storage"
	"github.com/segmentio/kafka-go"
)

// Recorder persists delivery attempts.
type Recorder interface {
	Insert(ctx context.Context, n storage.Notification) error
}

type Dispatcher struct {
	email  email.Sender
	sms    sms.Sender
	store  Recorder
	logger *slog.Logger
	// failSuffix simulates delivery failure for recipients ending with it.
	failSuffix string
}

type Option func(*Dispatcher)

func WithFailSuffix(suffix string) Option {
	return func(d *Dispatcher) { d.failSuffix = strings.TrimSpace(suffix) }
}

func New(emailSender email.Sender, smsSender sms.Sender, store Recorder, logger *slog.Logger, opts ...Option) *Dispatcher {
	if smsSender == nil {
		smsSender = sms.NewNoopSender()
	}
	d := &Dispatcher{email: emailSender, sms: smsSender, store: store, logger: logger}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Handle delivers one booking event. Delivery failures are recorded and
// logged; only a failure to record is returned.
func (d *Dispatcher) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)

	var p Payload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		d.logger.Error("invalid appointment payload", "err", err, "event_id", meta.EventID)
		return nil
	}
	if p.AppointmentID == 0 || p.Time.IsZero() {
		d.logger.Error("missing appointment fields", "event_id", meta.EventID, "event_type", meta.EventType)
		return nil
	}
	rendered, err := Render(meta.EventType, p)
	if err != nil {
		d.logger.Warn("event ignored", "err", err, "event_id", meta.EventID)
		return nil
	}

	base := storage.Notification{
		EventID:       meta.EventID,
		EventType:     meta.EventType,
		AppointmentID: p.AppointmentID,
		ShopID:        p.ShopID,
		Subject:       rendered.Subject,
	}

	if p.CustomerEmail != "" {
		n := base
		n.Channel, n.Provider, n.Recipient = "email", "smtp", p.CustomerEmail
		err := d.deliver(p.CustomerEmail, func() error {
			return d.email.Send(p.CustomerEmail, rendered.Subject, rendered.Body)
		})
		if err := d.record(ctx, n, err); err != nil {
			return err
		}
	}
	if p.CustomerPhone != "" {
		n := base
		n.Channel, n.Provider, n.Recipient = "sms", d.sms.Provider(), p.CustomerPhone
		err := d.deliver(p.CustomerPhone, func() error {
			return d.sms.Send(ctx, p.CustomerPhone, rendered.SMS)
		})
		if err := d.record(ctx, n, err); err != nil {
			return err
		}
	}
	return nil
}

func (d *Dispatcher) deliver(recipient string, send func() error) error {
	if d.failSuffix != "" && strings.HasSuffix(recipient, d.failSuffix) {
		return fmt.Errorf("simulated failure for %s", recipient)
	}
	return send()
}

func (d *Dispatcher) record(ctx context.Context, n storage.Notification, sendErr error) error {
	n.Status = storage.StatusSent
	if sendErr != nil {
		n.Status = storage.StatusFailed
		n.Error = sendErr.Error()
		d.logger.Error("notification delivery failed",
			"err", sendErr,
			"channel", n.Channel,
			"appointment_id", n.AppointmentID,
			"event_type", n.EventType,
		)
	}
	if err := d.store.Insert(ctx, n); err != nil {
		d.logger.Error("failed to persist notification", "err", err, "appointment_id", n.AppointmentID)
		return fmt.Errorf("persist notification: %w", err)
	}
	d.logger.Info("notification processed",
		"appointment_id", n.AppointmentID,
		"channel", n.Channel,
		"status", n.Status,
	)
	return nil
}
