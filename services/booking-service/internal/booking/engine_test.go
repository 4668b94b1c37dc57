package booking_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/tokens"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func day() time.Time { return time.Date(2026, 1, 28, 0, 0, 0, 0, time.UTC) }

func at(h, m int) time.Time { return day().Add(time.Duration(h)*time.Hour + time.Duration(m)*time.Minute) }

func customer(n int) booking.Customer {
	return booking.Customer{Name: fmt.Sprintf("Customer %d", n), Phone: "+8801700000000", Email: fmt.Sprintf("c%d@example.test", n)}
}

func newShop(t *testing.T, m *storage.Memory, mutate func(*model.Shop)) model.Shop {
	t.Helper()
	shop := model.Shop{ShopkeeperID: "owner-1", Name: "Corner", Opening: 9 * 60, Closing: 12 * 60, Duration: 30, Capacity: 1, Timezone: "UTC"}
	if mutate != nil {
		mutate(&shop)
	}
	require.NoError(t, shop.Validate())
	require.NoError(t, m.CreateShop(context.Background(), &shop))
	return shop
}

func newEngine(m booking.Store, opts ...booking.Option) *booking.Engine {
	opts = append([]booking.Option{booking.WithClock(func() time.Time { return at(0, 0) })}, opts...)
	return booking.NewEngine(m, quiet, opts...)
}

func TestMorningScenario(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(m)

	avail, err := e.Availability(ctx, shop.ID, day())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(9, 0), at(9, 30), at(10, 0), at(10, 30), at(11, 0), at(11, 30)}, avail.Slots)

	_, _, err = e.Book(ctx, shop.ID, customer(1), at(9, 0))
	require.NoError(t, err)
	_, _, err = e.Book(ctx, shop.ID, customer(2), at(9, 0))
	require.Error(t, err)
	assert.True(t, booking.IsConflict(err), "expected conflict, got %v", err)

	require.NoError(t, m.CreateBlockedSlot(ctx, &model.BlockedSlot{ShopID: shop.ID, Start: at(10, 0), End: at(10, 30)}))
	avail, err = e.Availability(ctx, shop.ID, day())
	require.NoError(t, err)
	assert.Equal(t, []time.Time{at(9, 30), at(10, 30), at(11, 0), at(11, 30)}, avail.Slots)
}

func TestBookSameCustomerSameDayRejected(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, func(s *model.Shop) { s.Capacity = 5 })
	e := newEngine(m)

	_, _, err := e.Book(ctx, shop.ID, customer(1), at(9, 0))
	require.NoError(t, err)

	again := customer(1)
	again.Email = "C1@Example.Test"
	_, _, err = e.Book(ctx, shop.ID, again, at(11, 30))
	assert.True(t, booking.IsConflict(err), "expected conflict, got %v", err)

	// Another day is fine.
	_, _, err = e.Book(ctx, shop.ID, customer(1), at(24+9, 0))
	assert.NoError(t, err)
}

func TestBookSameDayCountsCancelledAppointments(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(m)

	appt, _, err := e.Book(ctx, shop.ID, customer(1), at(9, 0))
	require.NoError(t, err)
	_, err = e.CancelByCustomer(ctx, appt.Token)
	require.NoError(t, err)

	_, _, err = e.Book(ctx, shop.ID, customer(1), at(10, 0))
	assert.True(t, booking.IsConflict(err), "expected conflict, got %v", err)
}

func TestBookValidation(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(m)

	cases := map[string]struct {
		c  booking.Customer
		at time.Time
	}{
		"missing name":  {booking.Customer{Phone: "1", Email: "a@b.test"}, at(9, 0)},
		"missing phone": {booking.Customer{Name: "A", Email: "a@b.test"}, at(9, 0)},
		"bad email":     {booking.Customer{Name: "A", Phone: "1", Email: "not-an-email"}, at(9, 0)},
		"missing time":  {customer(1), time.Time{}},
		"off grid":      {customer(1), at(9, 15)},
		"after closing": {customer(1), at(12, 0)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := e.Book(ctx, shop.ID, tc.c, tc.at)
			assert.True(t, booking.IsValidation(err), "expected validation error, got %v", err)
		})
	}
	assert.Empty(t, m.Notifications())
}

func TestBookUnknownShop(t *testing.T) {
	e := newEngine(storage.NewMemory())
	_, _, err := e.Book(context.Background(), 404, customer(1), at(9, 0))
	assert.True(t, booking.IsNotFound(err), "expected not found, got %v", err)

	_, err = e.Availability(context.Background(), 404, day())
	assert.True(t, booking.IsNotFound(err))
}

func TestBookBlockedSlotRejected(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, func(s *model.Shop) { s.Capacity = 3 })
	require.NoError(t, m.CreateBlockedSlot(ctx, &model.BlockedSlot{ShopID: shop.ID, Start: at(10, 0), End: at(11, 0)}))
	e := newEngine(m)

	_, _, err := e.Book(ctx, shop.ID, customer(1), at(10, 30))
	var ce *booking.ConflictError
	require.True(t, errors.As(err, &ce), "expected conflict, got %v", err)
	assert.Equal(t, "slot is blocked", ce.Reason)

	_, _, err = e.Book(ctx, shop.ID, customer(1), at(11, 0))
	assert.NoError(t, err)
}

func TestBlockedSlotNeverListedEvenUnderCapacity(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, func(s *model.Shop) {
		s.Capacity = 10
		s.Closing = 17 * 60
		s.Duration = 15
	})
	blocks := []model.BlockedSlot{
		{ShopID: shop.ID, Start: at(9, 10), End: at(9, 50)},
		{ShopID: shop.ID, Start: at(13, 0), End: at(14, 0)},
		{ShopID: shop.ID, Start: at(-3, 0), End: at(9, 1)},
	}
	for i := range blocks {
		require.NoError(t, m.CreateBlockedSlot(ctx, &blocks[i]))
	}
	avail, err := newEngine(m).Availability(ctx, shop.ID, day())
	require.NoError(t, err)
	require.NotEmpty(t, avail.Slots)
	for _, s := range avail.Slots {
		for _, b := range blocks {
			assert.False(t, !s.Before(b.Start) && s.Before(b.End), "slot %s inside blocked [%s, %s)", s, b.Start, b.End)
		}
	}
}

func TestCapacityAboveOne(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, func(s *model.Shop) { s.Capacity = 2 })
	e := newEngine(m)

	for i := 1; i <= 2; i++ {
		_, _, err := e.Book(ctx, shop.ID, customer(i), at(9, 0))
		require.NoError(t, err)
	}
	_, _, err := e.Book(ctx, shop.ID, customer(3), at(9, 0))
	assert.True(t, booking.IsConflict(err))

	avail, err := e.Availability(ctx, shop.ID, day())
	require.NoError(t, err)
	assert.NotContains(t, avail.Slots, at(9, 0))
}

func TestCancelKeepsRowAndTokenResolvable(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(m)

	appt, _, err := e.Book(ctx, shop.ID, customer(1), at(9, 0))
	require.NoError(t, err)

	cancelled, err := e.CancelByCustomer(ctx, appt.Token)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, cancelled.Status)

	got, err := e.Lookup(ctx, appt.Token)
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)
	assert.Equal(t, model.StatusCancelled, got.Status)

	// The freed slot is bookable again.
	_, _, err = e.Book(ctx, shop.ID, customer(2), at(9, 0))
	assert.NoError(t, err)
}

func TestCancelByCustomerIsIdempotent(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(m)

	appt, _, err := e.Book(ctx, shop.ID, customer(1), at(9, 0))
	require.NoError(t, err)
	_, err = e.CancelByCustomer(ctx, appt.Token)
	require.NoError(t, err)
	second, err := e.CancelByCustomer(ctx, appt.Token)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, second.Status)

	var cancels int
	for _, n := range m.Notifications() {
		if n.EventType == booking.EventCancelled {
			cancels++
		}
	}
	assert.Equal(t, 1, cancels)
}

func TestCancelByShop(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(m)

	appt, _, err := e.Book(ctx, shop.ID, customer(1), at(9, 0))
	require.NoError(t, err)

	_, err = e.CancelByShop(ctx, "someone-else", appt.ID)
	assert.ErrorIs(t, err, booking.ErrForbidden)

	got, err := e.CancelByShop(ctx, shop.ShopkeeperID, appt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelledByShop, got.Status)

	_, err = e.CancelByShop(ctx, shop.ShopkeeperID, appt.ID)
	assert.True(t, booking.IsConflict(err), "expected conflict on double cancel, got %v", err)

	_, err = e.CancelByShop(ctx, shop.ShopkeeperID, 9999)
	assert.True(t, booking.IsNotFound(err))
}

func TestRescheduleExcludesSelfAndRevives(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(m)

	appt, _, err := e.Book(ctx, shop.ID, customer(1), at(9, 0))
	require.NoError(t, err)

	// Same slot: it must not count itself.
	moved, err := e.Reschedule(ctx, appt.Token, at(9, 0))
	require.NoError(t, err)
	assert.True(t, moved.Time.Equal(at(9, 0)))

	_, err = e.CancelByCustomer(ctx, appt.Token)
	require.NoError(t, err)

	moved, err = e.Reschedule(ctx, appt.Token, at(10, 30))
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, moved.Status)
	assert.True(t, moved.Time.Equal(at(10, 30)))

	other, _, err := e.Book(ctx, shop.ID, customer(2), at(11, 0))
	require.NoError(t, err)
	_, err = e.Reschedule(ctx, other.Token, at(10, 30))
	assert.True(t, booking.IsConflict(err), "expected slot full, got %v", err)

	_, err = e.Reschedule(ctx, other.Token, at(10, 45))
	assert.True(t, booking.IsValidation(err))

	_, err = e.Reschedule(ctx, "Z-0000", at(11, 30))
	assert.True(t, booking.IsNotFound(err))

	last := m.Notifications()[len(m.Notifications())-1]
	assert.Equal(t, booking.EventBooked, last.EventType)
	var rescheduled []booking.Notification
	for _, n := range m.Notifications() {
		if n.EventType == booking.EventRescheduled {
			rescheduled = append(rescheduled, n)
		}
	}
	require.Len(t, rescheduled, 2)
	assert.True(t, rescheduled[1].PreviousTime.Equal(at(9, 0)))
}

func TestSetStatus(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(m)

	first, _, err := e.Book(ctx, shop.ID, customer(1), at(9, 0))
	require.NoError(t, err)

	_, err = e.SetStatus(ctx, shop.ShopkeeperID, first.ID, "pending")
	assert.True(t, booking.IsValidation(err))

	done, err := e.SetStatus(ctx, shop.ShopkeeperID, first.ID, model.StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)

	// Completed no longer holds the slot, so another customer can take it.
	_, _, err = e.Book(ctx, shop.ID, customer(2), at(9, 0))
	require.NoError(t, err)

	_, err = e.SetStatus(ctx, shop.ShopkeeperID, first.ID, model.StatusConfirmed)
	assert.True(t, booking.IsConflict(err), "re-confirming into a full slot must fail, got %v", err)

	_, err = e.SetStatus(ctx, "intruder", first.ID, model.StatusCompleted)
	assert.ErrorIs(t, err, booking.ErrForbidden)
}

func TestBookQueue(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(m, booking.WithClock(func() time.Time { return at(9, 10) }))

	first, _, err := e.BookQueue(ctx, shop.ID, customer(1), time.Time{})
	require.NoError(t, err)
	assert.True(t, first.Time.Equal(at(9, 30)), "expected first slot after now, got %s", first.Time)
	assert.Equal(t, fmt.Sprintf("T%02d-001", shop.ID), first.Token)

	second, _, err := e.BookQueue(ctx, shop.ID, customer(2), day())
	require.NoError(t, err)
	assert.True(t, second.Time.Equal(at(10, 0)))
	assert.Equal(t, fmt.Sprintf("T%02d-002", shop.ID), second.Token)

	_, _, err = e.BookQueue(ctx, shop.ID, customer(1), day())
	assert.True(t, booking.IsConflict(err), "same-day rule applies to the queue")

	// 09:00 is already past; 10:30 through 11:30 remain.
	for i := 3; i <= 5; i++ {
		_, _, err = e.BookQueue(ctx, shop.ID, customer(i), day())
		require.NoError(t, err)
	}
	_, _, err = e.BookQueue(ctx, shop.ID, customer(6), day())
	var ce *booking.ConflictError
	require.True(t, errors.As(err, &ce), "expected conflict, got %v", err)
	assert.Equal(t, "no slots available", ce.Reason)
}

func TestBookQueueSkipsTakenPosition(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	// The letter generator is forced to mint what would be the next queue token.
	e := newEngine(m, booking.WithTokenGenerator(fixedTokens{fmt.Sprintf("T%02d-002", shop.ID)}))

	_, _, err := e.Book(ctx, shop.ID, customer(1), at(11, 30))
	require.NoError(t, err)

	q, _, err := e.BookQueue(ctx, shop.ID, customer(2), day())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("T%02d-003", shop.ID), q.Token)
}

func TestBookQueueSecondDayContinuesNumbering(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(m, booking.WithClock(func() time.Time { return at(9, 10) }))

	for i := 1; i <= 3; i++ {
		appt, _, err := e.BookQueue(ctx, shop.ID, customer(i), day())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("T%02d-%03d", shop.ID, i), appt.Token)
	}

	// Positions are unique across days, so the next day picks up after the last issued one.
	tomorrow := day().AddDate(0, 0, 1)
	first, _, err := e.BookQueue(ctx, shop.ID, customer(1), tomorrow)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("T%02d-004", shop.ID), first.Token)
	assert.True(t, first.Time.Equal(tomorrow.Add(9*time.Hour)), "got %s", first.Time)

	second, _, err := e.BookQueue(ctx, shop.ID, customer(2), tomorrow)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("T%02d-005", shop.ID), second.Token)
	assert.True(t, second.Time.Equal(tomorrow.Add(9*time.Hour+30*time.Minute)))
}

// fullStore reports every token as already issued.
type fullStore struct {
	*storage.Memory
}

func (f fullStore) InShopTx(ctx context.Context, shopID int64, fn func(booking.Tx, model.Shop) error) error {
	return f.Memory.InShopTx(ctx, shopID, func(tx booking.Tx, shop model.Shop) error {
		return fn(fullTx{tx}, shop)
	})
}

type fullTx struct {
	booking.Tx
}

func (fullTx) TokenExists(context.Context, string) (bool, error) { return true, nil }

func TestBookQueueFullIsConflict(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(fullStore{m})

	_, _, err := e.BookQueue(ctx, shop.ID, customer(1), day())
	var ce *booking.ConflictError
	require.True(t, errors.As(err, &ce), "expected conflict, got %v", err)
	assert.Equal(t, "queue is full", ce.Reason)
	assert.NotErrorIs(t, err, booking.ErrTokenSpaceExhausted)

	got, err := m.ListAppointments(ctx, shop.ID, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Empty(t, got)
}

type fixedTokens []string

func (f fixedTokens) Generate(attempt int) string { return f[attempt%len(f)] }

// collidingTokens returns already used tokens before handing out a new one,
// forcing the retry path on every booking.
type collidingTokens struct {
	mu      sync.Mutex
	rng     *rand.Rand
	issued  []string
	retries atomic.Int64
}

func (c *collidingTokens) Generate(attempt int) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if attempt == 0 && len(c.issued) > 0 {
		c.retries.Add(1)
		return c.issued[len(c.issued)/2]
	}
	return tokens.LetterDigits{IntN: c.rng.IntN}.Generate(attempt)
}

func (c *collidingTokens) record(tok string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.issued = append(c.issued, tok)
}

func TestTenThousandBookingsHaveUniqueTokens(t *testing.T) {
	if testing.Short() {
		t.Skip("long running")
	}
	ctx := context.Background()
	m := storage.NewMemory()
	// 24h of one-minute slots with room for seven per slot is enough for 10,000 distinct customers in a day.
	shop := newShop(t, m, func(s *model.Shop) {
		s.Opening = 0
		s.Closing = 24 * 60
		s.Duration = 1
		s.Capacity = 7
	})
	gen := &collidingTokens{rng: rand.New(rand.NewPCG(1, 2))}
	e := newEngine(m, booking.WithTokenGenerator(gen))

	seen := make(map[string]bool, 10000)
	for i := 0; i < 10000; i++ {
		slot := day().Add(time.Duration(i%(24*60)) * time.Minute)
		appt, _, err := e.Book(ctx, shop.ID, customer(i), slot)
		require.NoError(t, err, "booking %d", i)
		require.False(t, seen[appt.Token], "duplicate token %s", appt.Token)
		seen[appt.Token] = true
		gen.record(appt.Token)
	}
	assert.Len(t, seen, 10000)
	assert.Greater(t, gen.retries.Load(), int64(9000), "collision retry must be exercised")
}

// blindStore hides existing tokens from the pre-check so collisions are only
// caught by the insert.
type blindStore struct {
	*storage.Memory
}

func (b blindStore) InShopTx(ctx context.Context, shopID int64, fn func(booking.Tx, model.Shop) error) error {
	return b.Memory.InShopTx(ctx, shopID, func(tx booking.Tx, shop model.Shop) error {
		return fn(blindTx{tx}, shop)
	})
}

type blindTx struct {
	booking.Tx
}

func (blindTx) TokenExists(context.Context, string) (bool, error) { return false, nil }

func TestInsertConflictRetriesWithFreshToken(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, func(s *model.Shop) { s.Capacity = 3 })
	e := newEngine(blindStore{m}, booking.WithTokenGenerator(fixedTokens{"A-0001", "A-0001", "B-0002"}))

	first, _, err := e.Book(ctx, shop.ID, customer(1), at(9, 0))
	require.NoError(t, err)
	assert.Equal(t, "A-0001", first.Token)

	second, _, err := e.Book(ctx, shop.ID, customer(2), at(9, 0))
	require.NoError(t, err)
	assert.Equal(t, "B-0002", second.Token)
}

func TestTokenSpaceExhausted(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, func(s *model.Shop) { s.Capacity = 3 })
	e := newEngine(m, booking.WithTokenGenerator(fixedTokens{"A-0001"}), booking.WithMaxTokenAttempts(5))

	_, _, err := e.Book(ctx, shop.ID, customer(1), at(9, 0))
	require.NoError(t, err)
	_, _, err = e.Book(ctx, shop.ID, customer(2), at(9, 0))
	assert.ErrorIs(t, err, booking.ErrTokenSpaceExhausted)

	got, err := m.ListAppointments(ctx, shop.ID, time.Time{}, time.Time{}, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

// failingNotifyStore makes every notification enqueue fail.
type failingNotifyStore struct {
	*storage.Memory
}

func (f failingNotifyStore) InShopTx(ctx context.Context, shopID int64, fn func(booking.Tx, model.Shop) error) error {
	return f.Memory.InShopTx(ctx, shopID, func(tx booking.Tx, shop model.Shop) error {
		return fn(failingNotifyTx{tx}, shop)
	})
}

type failingNotifyTx struct {
	booking.Tx
}

func (failingNotifyTx) EnqueueNotification(context.Context, booking.Notification) error {
	return errors.New("smtp relay down")
}

func TestNotificationFailureDoesNotFailBooking(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, nil)
	e := newEngine(failingNotifyStore{m})

	appt, _, err := e.Book(ctx, shop.ID, customer(1), at(9, 0))
	require.NoError(t, err)
	got, err := e.Lookup(ctx, appt.Token)
	require.NoError(t, err)
	assert.Equal(t, model.StatusConfirmed, got.Status)

	_, err = e.CancelByCustomer(ctx, appt.Token)
	assert.NoError(t, err)
}

func TestConcurrentBookingsNeverExceedCapacity(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	const capacity = 3
	shop := newShop(t, m, func(s *model.Shop) { s.Capacity = capacity })
	e := newEngine(m)

	slots := []time.Time{at(9, 0), at(9, 30), at(10, 0)}
	var wg sync.WaitGroup
	var ok, full atomic.Int64
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, err := e.Book(ctx, shop.ID, customer(i), slots[i%len(slots)])
			switch {
			case err == nil:
				ok.Add(1)
			case booking.IsConflict(err):
				full.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(capacity*len(slots)), ok.Load())
	assert.Equal(t, int64(60-capacity*len(slots)), full.Load())

	for _, slot := range slots {
		appts, err := m.ListAppointments(ctx, shop.ID, slot, slot.Add(time.Minute), 0)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(appts), capacity)
	}
}

func TestAvailabilityInShopTimezone(t *testing.T) {
	ctx := context.Background()
	m := storage.NewMemory()
	shop := newShop(t, m, func(s *model.Shop) { s.Timezone = "America/New_York" })
	e := newEngine(m)

	avail, err := e.Availability(ctx, shop.ID, day())
	require.NoError(t, err)
	require.Len(t, avail.Slots, 6)
	// 09:00 EST is 14:00 UTC in January.
	assert.True(t, avail.Slots[0].Equal(at(14, 0)), "got %s", avail.Slots[0].UTC())

	_, _, err = e.Book(ctx, shop.ID, customer(1), at(14, 0))
	require.NoError(t, err)
	// 11:00 local, same shop-local day.
	_, _, err = e.Book(ctx, shop.ID, customer(1), at(16, 0))
	assert.True(t, booking.IsConflict(err))
}
