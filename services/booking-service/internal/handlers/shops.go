package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/shopqueue/libs/auth"
	"github.com/md-rashed-zaman/shopqueue/libs/httpx"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/model"
)

// shopRequest is used for create and partial update; nil fields are left unchanged.
type shopRequest struct {
	ShopName            *string `json:"shop_name"`
	Address             *string `json:"address"`
	Timezone            *string `json:"timezone"`
	OpeningTime         *string `json:"opening_time"`
	ClosingTime         *string `json:"closing_time"`
	AppointmentDuration *int    `json:"appointment_duration"`
	SlotCapacity        *int    `json:"slot_capacity"`
}

func (req shopRequest) apply(s *model.Shop) error {
	if req.ShopName != nil {
		s.Name = strings.TrimSpace(*req.ShopName)
	}
	if req.Address != nil {
		s.Address = strings.TrimSpace(*req.Address)
	}
	if req.Timezone != nil {
		s.Timezone = strings.TrimSpace(*req.Timezone)
	}
	if req.OpeningTime != nil {
		t, err := model.ParseTimeOfDay(*req.OpeningTime)
		if err != nil {
			return err
		}
		s.Opening = t
	}
	if req.ClosingTime != nil {
		t, err := model.ParseTimeOfDay(*req.ClosingTime)
		if err != nil {
			return err
		}
		s.Closing = t
	}
	if req.AppointmentDuration != nil {
		s.Duration = *req.AppointmentDuration
	}
	if req.SlotCapacity != nil {
		s.Capacity = *req.SlotCapacity
	}
	return nil
}

func (h *Handler) CreateShop(w http.ResponseWriter, r *http.Request) {
	var req shopRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	shop := model.Shop{
		ShopkeeperID: auth.SubjectFromContext(r.Context()),
		Opening:      model.DefaultOpening,
		Closing:      model.DefaultClosing,
	}
	if err := req.apply(&shop); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	shop.ApplyDefaults()
	if err := shop.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.shops.CreateShop(r.Context(), &shop); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.logger.Info("shop created", "shop_id", shop.ID, "shopkeeper_id", shop.ShopkeeperID)
	httpx.WriteJSON(w, http.StatusCreated, toShopView(shop))
}

func (h *Handler) ListMyShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.shops.ListShopsByOwner(r.Context(), auth.SubjectFromContext(r.Context()))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	out := make([]shopView, 0, len(shops))
	for _, s := range shops {
		out = append(out, toShopView(s))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) UpdateShop(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.ownedShop(w, r)
	if !ok {
		return
	}
	var req shopRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.apply(&shop); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := shop.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.shops.UpdateShop(r.Context(), shop); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toShopView(shop))
}

// ListShopAppointments lists a shop's appointments of every status, optionally
// for one shop-local date.
func (h *Handler) ListShopAppointments(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.ownedShop(w, r)
	if !ok {
		return
	}
	var start, end time.Time
	if raw := r.URL.Query().Get("date"); raw != "" {
		date, err := parseDate(raw)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		start, end = availability.DayBounds(shop, date)
	}
	appts, err := h.shops.ListAppointments(r.Context(), shop.ID, start, end, h.listLimit(r, 200))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	out := make([]appointmentView, 0, len(appts))
	for _, a := range appts {
		out = append(out, toAppointmentView(a, shop))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

type blockedSlotRequest struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason"`
}

func (h *Handler) CreateBlockedSlot(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.ownedShop(w, r)
	if !ok {
		return
	}
	var req blockedSlotRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	start, err := parseInstant(req.StartTime, shop.Location())
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "start_time must be ISO-8601")
		return
	}
	end, err := parseInstant(req.EndTime, shop.Location())
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "end_time must be ISO-8601")
		return
	}
	slot := model.BlockedSlot{ShopID: shop.ID, Start: start, End: end, Reason: strings.TrimSpace(req.Reason)}
	if err := slot.Validate(); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.shops.CreateBlockedSlot(r.Context(), &slot); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, toBlockedSlotView(slot, shop.Location()))
}

func (h *Handler) ListBlockedSlots(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.ownedShop(w, r)
	if !ok {
		return
	}
	slots, err := h.shops.ListBlockedSlots(r.Context(), shop.ID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	out := make([]blockedSlotView, 0, len(slots))
	for _, s := range slots {
		out = append(out, toBlockedSlotView(s, shop.Location()))
	}
	httpx.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) DeleteBlockedSlot(w http.ResponseWriter, r *http.Request) {
	shop, ok := h.ownedShop(w, r)
	if !ok {
		return
	}
	blockID, ok := pathID(r, "blockID")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid blocked slot id")
		return
	}
	if err := h.shops.DeleteBlockedSlot(r.Context(), shop.ID, blockID); err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) CancelByShop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	appt, err := h.engine.CancelByShop(r.Context(), auth.SubjectFromContext(r.Context()), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.writeAppointment(w, r, "Appointment cancelled by shop", appt)
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid appointment id")
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	appt, err := h.engine.SetStatus(r.Context(), auth.SubjectFromContext(r.Context()), id, req.Status)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.writeAppointment(w, r, "Appointment status updated", appt)
}

// ownedShop loads the {id} shop and checks it belongs to the caller, writing
// the error response itself when it does not.
func (h *Handler) ownedShop(w http.ResponseWriter, r *http.Request) (model.Shop, bool) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid shop id")
		return model.Shop{}, false
	}
	shop, err := h.shops.GetShop(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return model.Shop{}, false
	}
	if shop.ShopkeeperID != auth.SubjectFromContext(r.Context()) {
		h.writeEngineError(w, r, booking.ErrForbidden)
		return model.Shop{}, false
	}
	return shop, true
}
