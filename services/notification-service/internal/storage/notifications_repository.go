package storage

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/shopqueue/libs/db"
)

const (
	StatusSent   = "sent"
	StatusFailed = "failed"
)

// Notification is one delivery attempt on one channel.
type Notification struct {
	ID            uuid.UUID
	EventID       string
	EventType     string
	AppointmentID int64
	ShopID        int64
	Channel       string
	Provider      string
	Recipient     string
	Subject       string
	Status        string
	Error         string
	CreatedAt     time.Time
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	if n.ID == uuid.Nil {
		n.ID = uuid.New()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications
			(id, event_id, event_type, appointment_id, shop_id, channel, provider, recipient, subject, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''))
	`, n.ID, n.EventID, n.EventType, n.AppointmentID, n.ShopID, n.Channel, n.Provider, n.Recipient, n.Subject, n.Status, n.Error)
	return err
}
