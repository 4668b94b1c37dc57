package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/model"
)

// maxMemoryNotifications bounds the notification log; the oldest entries are
// dropped first.
const maxMemoryNotifications = 1000

// Memory is an in-process store with the same contract as Postgres. Writers
// to one shop are serialized by a per-shop mutex. Used for tests and for
// running the service without a database.
type Memory struct {
	mu            sync.RWMutex
	shops         map[int64]model.Shop
	appointments  map[int64]model.Appointment
	tokens        map[string]int64
	blocked       map[int64]model.BlockedSlot
	shopLocks     map[int64]*sync.Mutex
	notifications []booking.Notification
	nextShopID    int64
	nextApptID    int64
	nextBlockID   int64
	now           func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		shops:        map[int64]model.Shop{},
		appointments: map[int64]model.Appointment{},
		tokens:       map[string]int64{},
		blocked:      map[int64]model.BlockedSlot{},
		shopLocks:    map[int64]*sync.Mutex{},
		now:          time.Now,
	}
}

// Notifications returns the most recent notifications, oldest first.
func (m *Memory) Notifications() []booking.Notification {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]booking.Notification(nil), m.notifications...)
}

func (m *Memory) CreateShop(_ context.Context, shop *model.Shop) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextShopID++
	shop.ID = m.nextShopID
	shop.CreatedAt = m.now().UTC()
	m.shops[shop.ID] = *shop
	m.shopLocks[shop.ID] = &sync.Mutex{}
	return nil
}

func (m *Memory) UpdateShop(_ context.Context, shop model.Shop) error {
	lock, err := m.shopLock(shop.ID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.shops[shop.ID]
	if !ok {
		return model.ErrNotFound
	}
	shop.CreatedAt = existing.CreatedAt
	m.shops[shop.ID] = shop
	return nil
}

func (m *Memory) GetShop(_ context.Context, shopID int64) (model.Shop, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	shop, ok := m.shops[shopID]
	if !ok {
		return model.Shop{}, model.ErrNotFound
	}
	return shop, nil
}

func (m *Memory) ListShops(_ context.Context, limit int) ([]model.Shop, error) {
	return m.filterShops(func(model.Shop) bool { return true }, limit), nil
}

func (m *Memory) ListShopsByOwner(_ context.Context, shopkeeperID string) ([]model.Shop, error) {
	return m.filterShops(func(s model.Shop) bool { return s.ShopkeeperID == shopkeeperID }, 0), nil
}

func (m *Memory) filterShops(keep func(model.Shop) bool, limit int) []model.Shop {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Shop
	for _, s := range m.shops {
		if keep(s) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

func (m *Memory) GetAppointment(_ context.Context, id int64) (model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	appt, ok := m.appointments[id]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return appt, nil
}

func (m *Memory) GetAppointmentByToken(_ context.Context, token string) (model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.tokens[token]
	if !ok {
		return model.Appointment{}, model.ErrNotFound
	}
	return m.appointments[id], nil
}

// ListAppointments returns the shop's appointments in [start, end) ordered by
// time. A zero start or end leaves that side open.
func (m *Memory) ListAppointments(_ context.Context, shopID int64, start, end time.Time, limit int) ([]model.Appointment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.Appointment
	for _, a := range m.appointments {
		if a.ShopID != shopID {
			continue
		}
		if !start.IsZero() && a.Time.Before(start) {
			continue
		}
		if !end.IsZero() && !a.Time.Before(end) {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Time.Equal(out[j].Time) {
			return out[i].ID < out[j].ID
		}
		return out[i].Time.Before(out[j].Time)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) ListConfirmedInRange(_ context.Context, shopID int64, start, end time.Time) ([]time.Time, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.confirmedInRange(shopID, start, end), nil
}

func (m *Memory) confirmedInRange(shopID int64, start, end time.Time) []time.Time {
	var out []time.Time
	for _, a := range m.appointments {
		if a.ShopID == shopID && a.Status == model.StatusConfirmed && !a.Time.Before(start) && a.Time.Before(end) {
			out = append(out, a.Time)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

func (m *Memory) ListBlockedInRange(_ context.Context, shopID int64, start, end time.Time) ([]model.BlockedSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.blockedInRange(shopID, start, end), nil
}

func (m *Memory) blockedInRange(shopID int64, start, end time.Time) []model.BlockedSlot {
	day := availability.Interval{Start: start, End: end}
	var out []model.BlockedSlot
	for _, b := range m.blocked {
		if b.ShopID == shopID && availability.Overlaps(day, availability.Interval{Start: b.Start, End: b.End}) {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out
}

func (m *Memory) ListBlockedSlots(_ context.Context, shopID int64) ([]model.BlockedSlot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []model.BlockedSlot
	for _, b := range m.blocked {
		if b.ShopID == shopID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start.Before(out[j].Start) })
	return out, nil
}

func (m *Memory) CreateBlockedSlot(_ context.Context, slot *model.BlockedSlot) error {
	lock, err := m.shopLock(slot.ShopID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextBlockID++
	slot.ID = m.nextBlockID
	m.blocked[slot.ID] = *slot
	return nil
}

func (m *Memory) DeleteBlockedSlot(_ context.Context, shopID, blockID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.blocked[blockID]
	if !ok || b.ShopID != shopID {
		return model.ErrNotFound
	}
	delete(m.blocked, blockID)
	return nil
}

func (m *Memory) InShopTx(ctx context.Context, shopID int64, fn func(booking.Tx, model.Shop) error) error {
	lock, err := m.shopLock(shopID)
	if err != nil {
		return err
	}
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	shop, err := m.GetShop(ctx, shopID)
	if err != nil {
		return err
	}
	return fn(&memoryTx{m: m}, shop)
}

func (m *Memory) shopLock(shopID int64) (*sync.Mutex, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lock, ok := m.shopLocks[shopID]
	if !ok {
		return nil, model.ErrNotFound
	}
	return lock, nil
}

// memoryTx writes straight through. The engine runs every check before its
// first write, so there is nothing to roll back on the error paths it has.
type memoryTx struct {
	m *Memory
}

func (t *memoryTx) CountConfirmed(_ context.Context, shopID int64, at time.Time, excludeID int64) (int, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	n := 0
	for _, a := range t.m.appointments {
		if a.ShopID == shopID && a.ID != excludeID && a.Status == model.StatusConfirmed && a.Time.Equal(at) {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) ListConfirmedInRange(_ context.Context, shopID int64, start, end time.Time) ([]time.Time, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	return t.m.confirmedInRange(shopID, start, end), nil
}

func (t *memoryTx) ListBlockedInRange(_ context.Context, shopID int64, start, end time.Time) ([]model.BlockedSlot, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	return t.m.blockedInRange(shopID, start, end), nil
}

func (t *memoryTx) HasBookingOnDay(_ context.Context, shopID int64, email string, start, end time.Time) (bool, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	for _, a := range t.m.appointments {
		if a.ShopID == shopID && strings.EqualFold(a.CustomerEmail, email) && !a.Time.Before(start) && a.Time.Before(end) {
			return true, nil
		}
	}
	return false, nil
}

func (t *memoryTx) CountForDay(_ context.Context, shopID int64, start, end time.Time) (int, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	n := 0
	for _, a := range t.m.appointments {
		if a.ShopID == shopID && !a.Time.Before(start) && a.Time.Before(end) {
			n++
		}
	}
	return n, nil
}

func (t *memoryTx) TokenExists(_ context.Context, token string) (bool, error) {
	t.m.mu.RLock()
	defer t.m.mu.RUnlock()
	_, ok := t.m.tokens[token]
	return ok, nil
}

func (t *memoryTx) InsertAppointment(_ context.Context, appt *model.Appointment) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	if _, taken := t.m.tokens[appt.Token]; taken {
		return booking.ErrDuplicateToken
	}
	t.m.nextApptID++
	now := t.m.now().UTC()
	appt.ID = t.m.nextApptID
	appt.CreatedAt, appt.UpdatedAt = now, now
	t.m.appointments[appt.ID] = *appt
	t.m.tokens[appt.Token] = appt.ID
	return nil
}

func (t *memoryTx) AppointmentByID(ctx context.Context, id int64) (model.Appointment, error) {
	return t.m.GetAppointment(ctx, id)
}

func (t *memoryTx) AppointmentByToken(ctx context.Context, token string) (model.Appointment, error) {
	return t.m.GetAppointmentByToken(ctx, token)
}

func (t *memoryTx) UpdateAppointmentTime(_ context.Context, id int64, at time.Time) error {
	return t.update(id, func(a *model.Appointment) { a.Time = at })
}

func (t *memoryTx) UpdateAppointmentStatus(_ context.Context, id int64, status string) error {
	return t.update(id, func(a *model.Appointment) { a.Status = status })
}

func (t *memoryTx) update(id int64, fn func(*model.Appointment)) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	a, ok := t.m.appointments[id]
	if !ok {
		return model.ErrNotFound
	}
	fn(&a)
	a.UpdatedAt = t.m.now().UTC()
	t.m.appointments[id] = a
	return nil
}

func (t *memoryTx) EnqueueNotification(_ context.Context, n booking.Notification) error {
	t.m.mu.Lock()
	defer t.m.mu.Unlock()
	t.m.notifications = append(t.m.notifications, n)
	if over := len(t.m.notifications) - maxMemoryNotifications; over > 0 {
		t.m.notifications = append(t.m.notifications[:0], t.m.notifications[over:]...)
	}
	return nil
}

var (
	_ booking.Store = (*Memory)(nil)
	_ booking.Tx    = (*memoryTx)(nil)
)
