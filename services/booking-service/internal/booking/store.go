package booking

import (
	"context"
	"time"

	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/model"
)

// Store is the persistence the engine depends on. Lookups return
// model.ErrNotFound for missing rows.
type Store interface {
	GetShop(ctx context.Context, shopID int64) (model.Shop, error)
	GetAppointment(ctx context.Context, id int64) (model.Appointment, error)
	GetAppointmentByToken(ctx context.Context, token string) (model.Appointment, error)
	ListConfirmedInRange(ctx context.Context, shopID int64, start, end time.Time) ([]time.Time, error)
	ListBlockedInRange(ctx context.Context, shopID int64, start, end time.Time) ([]model.BlockedSlot, error)

	// InShopTx runs fn with writes to shopID serialized against every other
	// InShopTx for the same shop. fn receives the shop as read under that lock.
	// Returns model.ErrNotFound if the shop does not exist.
	InShopTx(ctx context.Context, shopID int64, fn func(tx Tx, shop model.Shop) error) error
}

// Tx is the write side, valid only inside InShopTx.
type Tx interface {
	CountConfirmed(ctx context.Context, shopID int64, at time.Time, excludeID int64) (int, error)
	ListConfirmedInRange(ctx context.Context, shopID int64, start, end time.Time) ([]time.Time, error)
	ListBlockedInRange(ctx context.Context, shopID int64, start, end time.Time) ([]model.BlockedSlot, error)
	// HasBookingOnDay reports whether email already holds an appointment of any
	// status at the shop within [start, end). Emails compare case-insensitively.
	HasBookingOnDay(ctx context.Context, shopID int64, email string, start, end time.Time) (bool, error)
	CountForDay(ctx context.Context, shopID int64, start, end time.Time) (int, error)
	TokenExists(ctx context.Context, token string) (bool, error)
	// InsertAppointment fills in ID and timestamps. Returns ErrDuplicateToken
	// when the token is taken.
	InsertAppointment(ctx context.Context, appt *model.Appointment) error
	AppointmentByID(ctx context.Context, id int64) (model.Appointment, error)
	AppointmentByToken(ctx context.Context, token string) (model.Appointment, error)
	UpdateAppointmentTime(ctx context.Context, id int64, at time.Time) error
	UpdateAppointmentStatus(ctx context.Context, id int64, status string) error
	EnqueueNotification(ctx context.Context, n Notification) error
}

const (
	EventBooked        = "booking.appointment.booked.v1"
	EventRescheduled   = "booking.appointment.rescheduled.v1"
	EventCancelled     = "booking.appointment.cancelled.v1"
	EventStatusChanged = "booking.appointment.status_changed.v1"
)

// Notification asks for the customer to be told about a change. Delivery is
// asynchronous and best effort.
type Notification struct {
	EventType   string
	Shop        model.Shop
	Appointment model.Appointment
	// PreviousTime is set for reschedules.
	PreviousTime time.Time
}
