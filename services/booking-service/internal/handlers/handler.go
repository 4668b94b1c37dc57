package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/shopqueue/libs/auth"
	"github.com/md-rashed-zaman/shopqueue/libs/httpx"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/model"
)

// ShopStore is the shop and blocked-slot management the handlers need on top
// of the booking engine.
type ShopStore interface {
	CreateShop(ctx context.Context, shop *model.Shop) error
	UpdateShop(ctx context.Context, shop model.Shop) error
	GetShop(ctx context.Context, shopID int64) (model.Shop, error)
	ListShops(ctx context.Context, limit int) ([]model.Shop, error)
	ListShopsByOwner(ctx context.Context, shopkeeperID string) ([]model.Shop, error)
	ListAppointments(ctx context.Context, shopID int64, start, end time.Time, limit int) ([]model.Appointment, error)
	CreateBlockedSlot(ctx context.Context, slot *model.BlockedSlot) error
	ListBlockedSlots(ctx context.Context, shopID int64) ([]model.BlockedSlot, error)
	DeleteBlockedSlot(ctx context.Context, shopID, blockID int64) error
}

// Config is everything the handlers need from the environment, resolved once
// at startup.
type Config struct {
	// JWTSecret verifies shopkeeper bearer tokens.
	JWTSecret string
	// BookingLimiter, if set, wraps the public routes that create appointments.
	BookingLimiter httpx.Middleware
	// MaxListLimit caps ?limit= on list endpoints.
	MaxListLimit int
}

type Handler struct {
	engine *booking.Engine
	shops  ShopStore
	logger *slog.Logger
	cfg    Config
}

func New(engine *booking.Engine, shops ShopStore, logger *slog.Logger, cfg Config) *Handler {
	if cfg.MaxListLimit <= 0 {
		cfg.MaxListLimit = 500
	}
	return &Handler{engine: engine, shops: shops, logger: logger, cfg: cfg}
}

// Register mounts every booking route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	limited := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, h.cfg.BookingLimiter)
	}
	mux.HandleFunc("GET /api/v1/shops", h.ListShops)
	mux.HandleFunc("GET /api/v1/shops/{id}", h.GetShop)
	mux.HandleFunc("GET /api/v1/shops/{id}/availability", h.Availability)
	mux.Handle("POST /api/v1/shops/{id}/appointments", limited(h.Book))
	mux.Handle("POST /api/v1/shops/{id}/queue", limited(h.BookQueue))
	mux.HandleFunc("GET /api/v1/appointments/{token}", h.Lookup)
	mux.Handle("PUT /api/v1/appointments/{token}", limited(h.Reschedule))
	mux.HandleFunc("DELETE /api/v1/appointments/{token}", h.CancelByCustomer)

	owner := func(fn http.HandlerFunc) http.Handler {
		return httpx.Chain(fn, auth.RequireBearer(h.cfg.JWTSecret))
	}
	mux.Handle("POST /api/v1/my-shops", owner(h.CreateShop))
	mux.Handle("GET /api/v1/my-shops", owner(h.ListMyShops))
	mux.Handle("PUT /api/v1/my-shops/{id}", owner(h.UpdateShop))
	mux.Handle("GET /api/v1/my-shops/{id}/appointments", owner(h.ListShopAppointments))
	mux.Handle("POST /api/v1/my-shops/{id}/blocked-slots", owner(h.CreateBlockedSlot))
	mux.Handle("GET /api/v1/my-shops/{id}/blocked-slots", owner(h.ListBlockedSlots))
	mux.Handle("DELETE /api/v1/my-shops/{id}/blocked-slots/{blockID}", owner(h.DeleteBlockedSlot))
	mux.Handle("DELETE /api/v1/my-shops/appointments/{id}", owner(h.CancelByShop))
	mux.Handle("PUT /api/v1/my-shops/appointments/{id}", owner(h.SetStatus))
}

// writeEngineError maps booking errors to status codes. Anything untyped is a
// server error and is logged, not echoed.
func (h *Handler) writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case booking.IsValidation(err):
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
	case booking.IsConflict(err):
		httpx.WriteError(w, http.StatusConflict, err.Error())
	case booking.IsNotFound(err), errors.Is(err, model.ErrNotFound):
		msg := err.Error()
		if errors.Is(err, model.ErrNotFound) {
			msg = "not found"
		}
		httpx.WriteError(w, http.StatusNotFound, msg)
	case errors.Is(err, booking.ErrForbidden):
		httpx.WriteError(w, http.StatusForbidden, "forbidden")
	default:
		h.logger.Error("request failed",
			"err", err,
			"path", r.URL.Path,
			"request_id", httpx.RequestIDFromContext(r.Context()),
		)
		httpx.WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

const dateLayout = "2006-01-02"

func parseDate(raw string) (time.Time, error) {
	return time.Parse(dateLayout, strings.TrimSpace(raw))
}

// parseInstant accepts RFC 3339 or a local date-time without offset, which is
// read in the shop's time zone.
func parseInstant(raw string, loc *time.Location) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	for _, layout := range []string{"2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02 15:04"} {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.New("appointment_time must be ISO-8601")
}

func (h *Handler) listLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return fallback
	}
	return min(n, h.cfg.MaxListLimit)
}
