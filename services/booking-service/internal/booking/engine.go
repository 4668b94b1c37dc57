package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/tokens"
)

const defaultMaxTokenAttempts = 1000

type Engine struct {
	store            Store
	logger           *slog.Logger
	now              func() time.Time
	tokens           tokens.Generator
	maxTokenAttempts int
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTokenGenerator replaces the letter+digits generator used by Book.
func WithTokenGenerator(g tokens.Generator) Option {
	return func(e *Engine) { e.tokens = g }
}

func WithMaxTokenAttempts(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.maxTokenAttempts = n
		}
	}
}

func NewEngine(store Store, logger *slog.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		store:            store,
		logger:           logger,
		now:              time.Now,
		tokens:           tokens.LetterDigits{},
		maxTokenAttempts: defaultMaxTokenAttempts,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

type Customer struct {
	Name  string
	Phone string
	Email string
}

func (c Customer) normalize() (Customer, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Phone = strings.TrimSpace(c.Phone)
	c.Email = strings.TrimSpace(c.Email)
	switch {
	case c.Name == "":
		return c, invalid("customer_name", "is required")
	case c.Phone == "":
		return c, invalid("customer_phone", "is required")
	case c.Email == "":
		return c, invalid("customer_email", "is required")
	}
	addr, err := mail.ParseAddress(c.Email)
	if err != nil || addr.Address != c.Email {
		return c, invalid("customer_email", "is not a valid email address")
	}
	return c, nil
}

type Availability struct {
	Shop  model.Shop
	Date  time.Time
	Slots []time.Time
}

// Availability returns the bookable slots of shopID on date, in order. A slot
// is bookable when it is under capacity and its start is not inside a blocked
// interval.
func (e *Engine) Availability(ctx context.Context, shopID int64, date time.Time) (Availability, error) {
	shop, err := e.store.GetShop(ctx, shopID)
	if err != nil {
		return Availability{}, e.lookupErr(err, "shop")
	}
	dayStart, dayEnd := availability.DayBounds(shop, date)

	confirmed, err := e.store.ListConfirmedInRange(ctx, shop.ID, dayStart, dayEnd)
	if err != nil {
		return Availability{}, fmt.Errorf("list confirmed appointments: %w", err)
	}
	blocked, err := e.store.ListBlockedInRange(ctx, shop.ID, dayStart, dayEnd)
	if err != nil {
		return Availability{}, fmt.Errorf("list blocked slots: %w", err)
	}

	grid := availability.GenerateSlots(shop, date)
	slots := availability.Filter(grid, availability.CountConfirmed(confirmed), shop.Capacity, availability.FromBlockedSlots(blocked))
	return Availability{Shop: shop, Date: dayStart, Slots: slots}, nil
}

// Book reserves the slot at requested for the customer.
func (e *Engine) Book(ctx context.Context, shopID int64, customer Customer, requested time.Time) (model.Appointment, model.Shop, error) {
	customer, err := customer.normalize()
	if err != nil {
		return model.Appointment{}, model.Shop{}, err
	}
	if requested.IsZero() {
		return model.Appointment{}, model.Shop{}, invalid("appointment_time", "is required")
	}

	var appt model.Appointment
	var booked model.Shop
	err = e.inShop(ctx, shopID, func(tx Tx, shop model.Shop) error {
		if !availability.OnGrid(shop, requested) {
			return invalid("appointment_time", "is not one of the shop's slots")
		}
		dayStart, dayEnd := availability.DayBounds(shop, requested.In(shop.Location()))
		if err := e.checkBlocked(ctx, tx, shop, requested, dayStart, dayEnd); err != nil {
			return err
		}
		if err := e.checkSameDay(ctx, tx, shop, customer.Email, dayStart, dayEnd); err != nil {
			return err
		}
		if err := e.checkCapacity(ctx, tx, shop, requested, 0); err != nil {
			return err
		}

		appt = newAppointment(shop, customer, requested)
		if err := e.insertWithToken(ctx, tx, &appt, e.tokens, e.maxTokenAttempts); err != nil {
			return err
		}
		booked = shop
		e.notify(ctx, tx, Notification{EventType: EventBooked, Shop: shop, Appointment: appt})
		return nil
	})
	if err != nil {
		return model.Appointment{}, model.Shop{}, err
	}
	e.logger.Info("appointment booked", "shop_id", booked.ID, "appointment_id", appt.ID, "token", appt.Token)
	return appt, booked, nil
}

// BookQueue books the first free slot on date that starts no earlier than now,
// using a queue-position token.
func (e *Engine) BookQueue(ctx context.Context, shopID int64, customer Customer, date time.Time) (model.Appointment, model.Shop, error) {
	customer, err := customer.normalize()
	if err != nil {
		return model.Appointment{}, model.Shop{}, err
	}

	var appt model.Appointment
	var booked model.Shop
	err = e.inShop(ctx, shopID, func(tx Tx, shop model.Shop) error {
		day := date
		if day.IsZero() {
			day = availability.LocalDate(shop, e.now())
		}
		dayStart, dayEnd := availability.DayBounds(shop, day)
		if err := e.checkSameDay(ctx, tx, shop, customer.Email, dayStart, dayEnd); err != nil {
			return err
		}

		confirmed, err := tx.ListConfirmedInRange(ctx, shop.ID, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("list confirmed appointments: %w", err)
		}
		blocked, err := tx.ListBlockedInRange(ctx, shop.ID, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("list blocked slots: %w", err)
		}
		open := availability.Filter(availability.GenerateSlots(shop, day), availability.CountConfirmed(confirmed), shop.Capacity, availability.FromBlockedSlots(blocked))
		slot, ok := availability.FirstAtOrAfter(open, e.now())
		if !ok {
			return conflict("no slots available")
		}

		queued, err := tx.CountForDay(ctx, shop.ID, dayStart, dayEnd)
		if err != nil {
			return fmt.Errorf("count appointments: %w", err)
		}
		gen := tokens.Queue{ShopID: shop.ID, Start: queued + 1}
		appt = newAppointment(shop, customer, slot)
		err = e.insertWithToken(ctx, tx, &appt, gen, min(e.maxTokenAttempts, tokens.Space(gen)))
		if errors.Is(err, ErrTokenSpaceExhausted) {
			// Queue tokens are unique for the shop's lifetime, so 999 positions is a hard cap.
			e.logger.Warn("queue token positions exhausted", "shop_id", shop.ID)
			return conflict("queue is full")
		}
		if err != nil {
			return err
		}
		booked = shop
		e.notify(ctx, tx, Notification{EventType: EventBooked, Shop: shop, Appointment: appt})
		return nil
	})
	if err != nil {
		return model.Appointment{}, model.Shop{}, err
	}
	e.logger.Info("queue appointment booked", "shop_id", booked.ID, "appointment_id", appt.ID, "token", appt.Token)
	return appt, booked, nil
}

// Reschedule moves the appointment to newTime and marks it confirmed, whatever
// its previous status.
func (e *Engine) Reschedule(ctx context.Context, token string, newTime time.Time) (model.Appointment, error) {
	if newTime.IsZero() {
		return model.Appointment{}, invalid("appointment_time", "is required")
	}
	current, err := e.byToken(ctx, token)
	if err != nil {
		return model.Appointment{}, err
	}

	var appt model.Appointment
	err = e.inShop(ctx, current.ShopID, func(tx Tx, shop model.Shop) error {
		locked, err := tx.AppointmentByToken(ctx, current.Token)
		if err != nil {
			return e.lookupErr(err, "appointment")
		}
		if !availability.OnGrid(shop, newTime) {
			return invalid("appointment_time", "is not one of the shop's slots")
		}
		dayStart, dayEnd := availability.DayBounds(shop, newTime.In(shop.Location()))
		if err := e.checkBlocked(ctx, tx, shop, newTime, dayStart, dayEnd); err != nil {
			return err
		}
		if err := e.checkCapacity(ctx, tx, shop, newTime, locked.ID); err != nil {
			return err
		}

		if err := tx.UpdateAppointmentTime(ctx, locked.ID, newTime); err != nil {
			return fmt.Errorf("update appointment time: %w", err)
		}
		if err := tx.UpdateAppointmentStatus(ctx, locked.ID, model.StatusConfirmed); err != nil {
			return fmt.Errorf("update appointment status: %w", err)
		}
		previous := locked.Time
		appt = locked
		appt.Time = newTime
		appt.Status = model.StatusConfirmed
		e.notify(ctx, tx, Notification{EventType: EventRescheduled, Shop: shop, Appointment: appt, PreviousTime: previous})
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// CancelByShop cancels on behalf of the shop. Appointments that are already
// cancelled in either way are a conflict.
func (e *Engine) CancelByShop(ctx context.Context, shopkeeperID string, appointmentID int64) (model.Appointment, error) {
	return e.shopTransition(ctx, shopkeeperID, appointmentID, func(appt model.Appointment) error {
		if model.IsCancelled(appt.Status) {
			return conflict("appointment is already cancelled")
		}
		return nil
	}, model.StatusCancelledByShop, EventCancelled)
}

// CancelByCustomer cancels by token. Cancelling an appointment the customer
// already cancelled succeeds without sending another notification.
func (e *Engine) CancelByCustomer(ctx context.Context, token string) (model.Appointment, error) {
	current, err := e.byToken(ctx, token)
	if err != nil {
		return model.Appointment{}, err
	}

	var appt model.Appointment
	err = e.inShop(ctx, current.ShopID, func(tx Tx, shop model.Shop) error {
		locked, err := tx.AppointmentByToken(ctx, current.Token)
		if err != nil {
			return e.lookupErr(err, "appointment")
		}
		appt = locked
		if locked.Status == model.StatusCancelled {
			return nil
		}
		if err := tx.UpdateAppointmentStatus(ctx, locked.ID, model.StatusCancelled); err != nil {
			return fmt.Errorf("update appointment status: %w", err)
		}
		appt.Status = model.StatusCancelled
		e.notify(ctx, tx, Notification{EventType: EventCancelled, Shop: shop, Appointment: appt})
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

// SetStatus lets the shop move an appointment to any known status. Moving
// back to confirmed re-checks slot capacity.
func (e *Engine) SetStatus(ctx context.Context, shopkeeperID string, appointmentID int64, status string) (model.Appointment, error) {
	status = strings.TrimSpace(status)
	if !model.ValidStatus(status) {
		return model.Appointment{}, invalid("status", fmt.Sprintf("unknown status %q", status))
	}
	event := EventStatusChanged
	if model.IsCancelled(status) {
		event = EventCancelled
	}
	return e.shopTransition(ctx, shopkeeperID, appointmentID, nil, status, event)
}

// Lookup resolves a token to its appointment regardless of status.
func (e *Engine) Lookup(ctx context.Context, token string) (model.Appointment, error) {
	return e.byToken(ctx, token)
}

func (e *Engine) shopTransition(ctx context.Context, shopkeeperID string, appointmentID int64, guard func(model.Appointment) error, status, event string) (model.Appointment, error) {
	current, err := e.store.GetAppointment(ctx, appointmentID)
	if err != nil {
		return model.Appointment{}, e.lookupErr(err, "appointment")
	}

	var appt model.Appointment
	err = e.inShop(ctx, current.ShopID, func(tx Tx, shop model.Shop) error {
		if shop.ShopkeeperID != shopkeeperID {
			return ErrForbidden
		}
		locked, err := tx.AppointmentByID(ctx, appointmentID)
		if err != nil {
			return e.lookupErr(err, "appointment")
		}
		if guard != nil {
			if err := guard(locked); err != nil {
				return err
			}
		}
		if status == model.StatusConfirmed && locked.Status != model.StatusConfirmed {
			if err := e.checkCapacity(ctx, tx, shop, locked.Time, locked.ID); err != nil {
				return err
			}
		}
		if err := tx.UpdateAppointmentStatus(ctx, locked.ID, status); err != nil {
			return fmt.Errorf("update appointment status: %w", err)
		}
		appt = locked
		appt.Status = status
		e.notify(ctx, tx, Notification{EventType: event, Shop: shop, Appointment: appt})
		return nil
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (e *Engine) inShop(ctx context.Context, shopID int64, fn func(Tx, model.Shop) error) error {
	err := e.store.InShopTx(ctx, shopID, fn)
	if errors.Is(err, model.ErrNotFound) {
		return notFound("shop")
	}
	return err
}

func (e *Engine) byToken(ctx context.Context, token string) (model.Appointment, error) {
	token = strings.ToUpper(strings.TrimSpace(token))
	if token == "" {
		return model.Appointment{}, invalid("token", "is required")
	}
	appt, err := e.store.GetAppointmentByToken(ctx, token)
	if err != nil {
		return model.Appointment{}, e.lookupErr(err, "appointment")
	}
	return appt, nil
}

func (e *Engine) lookupErr(err error, resource string) error {
	if errors.Is(err, model.ErrNotFound) {
		return notFound(resource)
	}
	return fmt.Errorf("get %s: %w", resource, err)
}

func (e *Engine) checkBlocked(ctx context.Context, tx Tx, shop model.Shop, at, dayStart, dayEnd time.Time) error {
	blocked, err := tx.ListBlockedInRange(ctx, shop.ID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("list blocked slots: %w", err)
	}
	if availability.Blocked(at, availability.FromBlockedSlots(blocked)) {
		return conflict("slot is blocked")
	}
	return nil
}

func (e *Engine) checkSameDay(ctx context.Context, tx Tx, shop model.Shop, email string, dayStart, dayEnd time.Time) error {
	exists, err := tx.HasBookingOnDay(ctx, shop.ID, email, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("check same-day booking: %w", err)
	}
	if exists {
		return conflict("customer already has an appointment at this shop on this date")
	}
	return nil
}

func (e *Engine) checkCapacity(ctx context.Context, tx Tx, shop model.Shop, at time.Time, excludeID int64) error {
	n, err := tx.CountConfirmed(ctx, shop.ID, at, excludeID)
	if err != nil {
		return fmt.Errorf("count confirmed: %w", err)
	}
	if n >= shop.Capacity {
		return conflict("slot full")
	}
	return nil
}

// insertWithToken pre-checks each candidate and still relies on the store's
// unique constraint, retrying on ErrDuplicateToken.
func (e *Engine) insertWithToken(ctx context.Context, tx Tx, appt *model.Appointment, gen tokens.Generator, attempts int) error {
	for attempt := 0; attempt < attempts; attempt++ {
		token := gen.Generate(attempt)
		taken, err := tx.TokenExists(ctx, token)
		if err != nil {
			return fmt.Errorf("check token: %w", err)
		}
		if taken {
			continue
		}
		appt.Token = token
		err = tx.InsertAppointment(ctx, appt)
		if errors.Is(err, ErrDuplicateToken) {
			e.logger.Debug("token collision on insert, retrying", "token", token, "attempt", attempt)
			continue
		}
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
		return nil
	}
	appt.Token = ""
	return ErrTokenSpaceExhausted
}

// notify enqueues n; failures are logged and never fail the caller.
func (e *Engine) notify(ctx context.Context, tx Tx, n Notification) {
	if err := tx.EnqueueNotification(ctx, n); err != nil {
		e.logger.Warn("notification enqueue failed",
			"err", err,
			"event_type", n.EventType,
			"appointment_id", n.Appointment.ID,
		)
	}
}

func newAppointment(shop model.Shop, c Customer, at time.Time) model.Appointment {
	return model.Appointment{
		ShopID:        shop.ID,
		CustomerName:  c.Name,
		CustomerPhone: c.Phone,
		CustomerEmail: c.Email,
		Time:          at,
		Status:        model.StatusConfirmed,
	}
}
