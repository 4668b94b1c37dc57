package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/shopqueue/libs/db"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/model"
)

// checkErr reports a CHECK constraint rejection as invalid input.
func checkErr(err error) error {
	if !db.IsCheckViolation(err) {
		return err
	}
	var pgErr *pgconn.PgError
	errors.As(err, &pgErr)
	return &booking.ValidationError{Field: pgErr.ColumnName, Msg: "violates " + pgErr.ConstraintName}
}

func (p *Postgres) CreateShop(ctx context.Context, shop *model.Shop) error {
	err := p.pool.QueryRow(ctx, `
		INSERT INTO shops
			(shopkeeper_id, shop_name, address, timezone, opening_minute, closing_minute, appointment_duration, slot_capacity)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at
	`, shop.ShopkeeperID, shop.Name, shop.Address, shop.Timezone, int(shop.Opening), int(shop.Closing),
		shop.Duration, shop.Capacity).Scan(&shop.ID, &shop.CreatedAt)
	return checkErr(err)
}

// UpdateShop rewrites the shop's settings. The UPDATE takes the same row lock
// as InShopTx, so it never interleaves with a booking for that shop.
func (p *Postgres) UpdateShop(ctx context.Context, shop model.Shop) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE shops
		SET shop_name = $2,
			address = $3,
			timezone = $4,
			opening_minute = $5,
			closing_minute = $6,
			appointment_duration = $7,
			slot_capacity = $8
		WHERE id = $1
	`, shop.ID, shop.Name, shop.Address, shop.Timezone, int(shop.Opening), int(shop.Closing), shop.Duration, shop.Capacity)
	return affectedOne(tag, checkErr(err))
}

func (p *Postgres) ListShops(ctx context.Context, limit int) ([]model.Shop, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := p.pool.Query(ctx, `SELECT `+shopColumns+` FROM shops ORDER BY id LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	return collectShops(rows)
}

func (p *Postgres) ListShopsByOwner(ctx context.Context, shopkeeperID string) ([]model.Shop, error) {
	rows, err := p.pool.Query(ctx, `SELECT `+shopColumns+` FROM shops WHERE shopkeeper_id = $1 ORDER BY id`, shopkeeperID)
	if err != nil {
		return nil, err
	}
	return collectShops(rows)
}

func collectShops(rows pgx.Rows) ([]model.Shop, error) {
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Shop, error) {
		return scanShop(row)
	})
}

// ListAppointments returns the shop's appointments in [start, end) ordered by
// time. A zero start or end leaves that side open.
func (p *Postgres) ListAppointments(ctx context.Context, shopID int64, start, end time.Time, limit int) ([]model.Appointment, error) {
	if limit <= 0 {
		limit = 200
	}
	var from, to *time.Time
	if !start.IsZero() {
		from = &start
	}
	if !end.IsZero() {
		to = &end
	}
	rows, err := p.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE shop_id = $1
			AND ($2::timestamptz IS NULL OR appointment_time >= $2)
			AND ($3::timestamptz IS NULL OR appointment_time < $3)
		ORDER BY appointment_time, id
		LIMIT $4
	`, shopID, from, to, limit)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Appointment, error) {
		return scanAppointment(row)
	})
}

// CreateBlockedSlot locks the shop first so a booking in flight either sees
// the new block or commits before it exists.
func (p *Postgres) CreateBlockedSlot(ctx context.Context, slot *model.BlockedSlot) error {
	return p.pool.WithTx(ctx, func(tx pgx.Tx) error {
		var id int64
		if err := tx.QueryRow(ctx, `SELECT id FROM shops WHERE id = $1 FOR UPDATE`, slot.ShopID).Scan(&id); err != nil {
			return notFoundOr(err)
		}
		err := tx.QueryRow(ctx, `
			INSERT INTO blocked_slots (shop_id, start_time, end_time, reason)
			VALUES ($1, $2, $3, $4)
			RETURNING id
		`, slot.ShopID, slot.Start, slot.End, slot.Reason).Scan(&slot.ID)
		return checkErr(err)
	})
}

func (p *Postgres) ListBlockedSlots(ctx context.Context, shopID int64) ([]model.BlockedSlot, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, shop_id, start_time, end_time, reason
		FROM blocked_slots
		WHERE shop_id = $1
		ORDER BY start_time
	`, shopID)
	if err != nil {
		return nil, err
	}
	return collectBlocked(rows)
}

func (p *Postgres) DeleteBlockedSlot(ctx context.Context, shopID, blockID int64) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM blocked_slots WHERE id = $1 AND shop_id = $2`, blockID, shopID)
	return affectedOne(tag, err)
}
