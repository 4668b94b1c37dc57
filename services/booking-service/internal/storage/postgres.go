package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/shopqueue/libs/db"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/outbox"
)

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Postgres struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewPostgres(pool *db.Pool, outboxRepo *outbox.Repository) *Postgres {
	return &Postgres{pool: pool, outbox: outboxRepo}
}

const shopColumns = `id, shopkeeper_id, shop_name, address, timezone, opening_minute, closing_minute,
	appointment_duration, slot_capacity, created_at`

const appointmentColumns = `id, shop_id, customer_name, customer_phone, customer_email, appointment_time,
	status, appointment_token, created_at, updated_at`

func scanShop(row pgx.Row) (model.Shop, error) {
	var s model.Shop
	var opening, closing int
	err := row.Scan(&s.ID, &s.ShopkeeperID, &s.Name, &s.Address, &s.Timezone, &opening, &closing,
		&s.Duration, &s.Capacity, &s.CreatedAt)
	if err != nil {
		return model.Shop{}, notFoundOr(err)
	}
	s.Opening, s.Closing = model.TimeOfDay(opening), model.TimeOfDay(closing)
	return s, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var a model.Appointment
	err := row.Scan(&a.ID, &a.ShopID, &a.CustomerName, &a.CustomerPhone, &a.CustomerEmail, &a.Time,
		&a.Status, &a.Token, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return model.Appointment{}, notFoundOr(err)
	}
	return a, nil
}

func notFoundOr(err error) error {
	if db.IsNoRows(err) {
		return model.ErrNotFound
	}
	return err
}

func (p *Postgres) GetShop(ctx context.Context, shopID int64) (model.Shop, error) {
	return scanShop(p.pool.QueryRow(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1`, shopID))
}

func (p *Postgres) GetAppointment(ctx context.Context, id int64) (model.Appointment, error) {
	return scanAppointment(p.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
}

func (p *Postgres) GetAppointmentByToken(ctx context.Context, token string) (model.Appointment, error) {
	return scanAppointment(p.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE appointment_token = $1`, token))
}

func (p *Postgres) ListConfirmedInRange(ctx context.Context, shopID int64, start, end time.Time) ([]time.Time, error) {
	return listConfirmedInRange(ctx, p.pool, shopID, start, end)
}

func (p *Postgres) ListBlockedInRange(ctx context.Context, shopID int64, start, end time.Time) ([]model.BlockedSlot, error) {
	return listBlockedInRange(ctx, p.pool, shopID, start, end)
}

// InShopTx locks the shop row for the duration of fn, so every booking write
// for one shop runs one at a time.
func (p *Postgres) InShopTx(ctx context.Context, shopID int64, fn func(booking.Tx, model.Shop) error) error {
	return p.pool.WithTx(ctx, func(tx pgx.Tx) error {
		shop, err := scanShop(tx.QueryRow(ctx, `SELECT `+shopColumns+` FROM shops WHERE id = $1 FOR UPDATE`, shopID))
		if err != nil {
			return err
		}
		return fn(&postgresTx{tx: tx, outbox: p.outbox}, shop)
	})
}

func listConfirmedInRange(ctx context.Context, q querier, shopID int64, start, end time.Time) ([]time.Time, error) {
	rows, err := q.Query(ctx, `
		SELECT appointment_time
		FROM appointments
		WHERE shop_id = $1
			AND status = 'confirmed'
			AND appointment_time >= $2
			AND appointment_time < $3
		ORDER BY appointment_time
	`, shopID, start, end)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowTo[time.Time])
}

func listBlockedInRange(ctx context.Context, q querier, shopID int64, start, end time.Time) ([]model.BlockedSlot, error) {
	rows, err := q.Query(ctx, `
		SELECT id, shop_id, start_time, end_time, reason
		FROM blocked_slots
		WHERE shop_id = $1
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time
	`, shopID, start, end)
	if err != nil {
		return nil, err
	}
	return collectBlocked(rows)
}

func collectBlocked(rows pgx.Rows) ([]model.BlockedSlot, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.BlockedSlot, error) {
		var b model.BlockedSlot
		err := row.Scan(&b.ID, &b.ShopID, &b.Start, &b.End, &b.Reason)
		return b, err
	})
}

type postgresTx struct {
	tx     pgx.Tx
	outbox *outbox.Repository
}

func (t *postgresTx) CountConfirmed(ctx context.Context, shopID int64, at time.Time, excludeID int64) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT count(*)
		FROM appointments
		WHERE shop_id = $1 AND appointment_time = $2 AND status = 'confirmed' AND id <> $3
	`, shopID, at, excludeID).Scan(&n)
	return n, err
}

func (t *postgresTx) ListConfirmedInRange(ctx context.Context, shopID int64, start, end time.Time) ([]time.Time, error) {
	return listConfirmedInRange(ctx, t.tx, shopID, start, end)
}

func (t *postgresTx) ListBlockedInRange(ctx context.Context, shopID int64, start, end time.Time) ([]model.BlockedSlot, error) {
	return listBlockedInRange(ctx, t.tx, shopID, start, end)
}

func (t *postgresTx) HasBookingOnDay(ctx context.Context, shopID int64, email string, start, end time.Time) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE shop_id = $1
				AND lower(customer_email) = lower($2)
				AND appointment_time >= $3
				AND appointment_time < $4
		)
	`, shopID, email, start, end).Scan(&exists)
	return exists, err
}

func (t *postgresTx) CountForDay(ctx context.Context, shopID int64, start, end time.Time) (int, error) {
	var n int
	err := t.tx.QueryRow(ctx, `
		SELECT count(*) FROM appointments
		WHERE shop_id = $1 AND appointment_time >= $2 AND appointment_time < $3
	`, shopID, start, end).Scan(&n)
	return n, err
}

func (t *postgresTx) TokenExists(ctx context.Context, token string) (bool, error) {
	var exists bool
	err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE appointment_token = $1)`, token).Scan(&exists)
	return exists, err
}

// InsertAppointment relies on the unique token index. ON CONFLICT keeps the
// transaction usable so the caller can retry with another token.
func (t *postgresTx) InsertAppointment(ctx context.Context, appt *model.Appointment) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO appointments
			(shop_id, customer_name, customer_phone, customer_email, appointment_time, status, appointment_token)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (appointment_token) DO NOTHING
		RETURNING id, created_at, updated_at
	`, appt.ShopID, appt.CustomerName, appt.CustomerPhone, appt.CustomerEmail, appt.Time, appt.Status, appt.Token,
	).Scan(&appt.ID, &appt.CreatedAt, &appt.UpdatedAt)
	if db.IsNoRows(err) {
		return booking.ErrDuplicateToken
	}
	return err
}

func (t *postgresTx) AppointmentByID(ctx context.Context, id int64) (model.Appointment, error) {
	return scanAppointment(t.tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1 FOR UPDATE`, id))
}

func (t *postgresTx) AppointmentByToken(ctx context.Context, token string) (model.Appointment, error) {
	return scanAppointment(t.tx.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE appointment_token = $1 FOR UPDATE`, token))
}

func (t *postgresTx) UpdateAppointmentTime(ctx context.Context, id int64, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE appointments SET appointment_time = $2, updated_at = now() WHERE id = $1`, id, at)
	return affectedOne(tag, err)
}

func (t *postgresTx) UpdateAppointmentStatus(ctx context.Context, id int64, status string) error {
	tag, err := t.tx.Exec(ctx, `UPDATE appointments SET status = $2, updated_at = now() WHERE id = $1`, id, status)
	return affectedOne(tag, err)
}

// EnqueueNotification writes the outbox row inside a savepoint. A failure
// rolls back only the savepoint and leaves the booking transaction intact.
func (t *postgresTx) EnqueueNotification(ctx context.Context, n booking.Notification) error {
	if t.outbox == nil {
		return errors.New("outbox not configured")
	}
	evt, err := AppointmentEvent(n)
	if err != nil {
		return err
	}
	sp, err := t.tx.Begin(ctx)
	if err != nil {
		return fmt.Errorf("savepoint: %w", err)
	}
	if err := t.outbox.Insert(ctx, sp, evt); err != nil {
		_ = sp.Rollback(ctx)
		return fmt.Errorf("insert outbox event: %w", err)
	}
	return sp.Commit(ctx)
}

func affectedOne(tag pgconn.CommandTag, err error) error {
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return model.ErrNotFound
	}
	return nil
}

var (
	_ booking.Store = (*Postgres)(nil)
	_ booking.Tx    = (*postgresTx)(nil)
)
