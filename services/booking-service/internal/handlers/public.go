package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/md-rashed-zaman/shopqueue/libs/httpx"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/model"
)

func (h *Handler) ListShops(w http.ResponseWriter, r *http.Request) {
	shops, err := h.shops.ListShops(r.Context(), h.listLimit(r, 100))
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

func (h *Handler) GetShop(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid shop id")
		return
	}
	shop, err := h.shops.GetShop(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toShopView(shop))
}

type availabilityResponse struct {
	ShopName       string   `json:"shop_name"`
	SlotCapacity   int      `json:"slot_capacity"`
	Date           string   `json:"date"`
	AvailableSlots []string `json:"available_slots"`
}

func (h *Handler) Availability(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid shop id")
		return
	}
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return
	}

	avail, err := h.engine.Availability(r.Context(), id, date)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	loc := avail.Shop.Location()
	slots := make([]string, 0, len(avail.Slots))
	for _, s := range avail.Slots {
		slots = append(slots, s.In(loc).Format(time.RFC3339))
	}
	httpx.WriteJSON(w, http.StatusOK, availabilityResponse{
		ShopName:       avail.Shop.Name,
		SlotCapacity:   avail.Shop.Capacity,
		Date:           date.Format(dateLayout),
		AvailableSlots: slots,
	})
}

type customerRequest struct {
	CustomerName  string `json:"customer_name"`
	CustomerPhone string `json:"customer_phone"`
	CustomerEmail string `json:"customer_email"`
}

func (c customerRequest) toCustomer() booking.Customer {
	return booking.Customer{Name: c.CustomerName, Phone: c.CustomerPhone, Email: c.CustomerEmail}
}

type bookRequest struct {
	customerRequest
	AppointmentTime string `json:"appointment_time"`
}

func (h *Handler) Book(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid shop id")
		return
	}
	var req bookRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.AppointmentTime == "" {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_time is required")
		return
	}

	// Naive times are wall clock in the shop's zone, so the shop is needed to parse them.
	shop, err := h.shops.GetShop(r.Context(), id)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	at, err := parseInstant(req.AppointmentTime, shop.Location())
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	appt, booked, err := h.engine.Book(r.Context(), id, req.toCustomer(), at)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, bookingResponse{
		Message:            "Appointment booked successfully",
		AppointmentToken:   appt.Token,
		AppointmentDetails: toAppointmentView(appt, booked),
	})
}

type queueRequest struct {
	customerRequest
	Date string `json:"date,omitempty"`
}

func (h *Handler) BookQueue(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		httpx.WriteError(w, http.StatusBadRequest, "invalid shop id")
		return
	}
	var req queueRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	var date time.Time
	if req.Date != "" {
		d, err := parseDate(req.Date)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
			return
		}
		date = d
	}

	appt, booked, err := h.engine.BookQueue(r.Context(), id, req.toCustomer(), date)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, bookingResponse{
		Message:            "You are in the queue",
		AppointmentToken:   appt.Token,
		AppointmentDetails: toAppointmentView(appt, booked),
	})
}

func (h *Handler) Lookup(w http.ResponseWriter, r *http.Request) {
	appt, err := h.engine.Lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	shop, err := h.shops.GetShop(r.Context(), appt.ShopID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentView(appt, shop))
}

type rescheduleRequest struct {
	AppointmentTime string `json:"appointment_time"`
}

func (h *Handler) Reschedule(w http.ResponseWriter, r *http.Request) {
	var req rescheduleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.AppointmentTime == "" {
		httpx.WriteError(w, http.StatusBadRequest, "appointment_time is required")
		return
	}

	current, err := h.engine.Lookup(r.Context(), r.PathValue("token"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	shop, err := h.shops.GetShop(r.Context(), current.ShopID)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	at, err := parseInstant(req.AppointmentTime, shop.Location())
	if err != nil {
		httpx.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	appt, err := h.engine.Reschedule(r.Context(), current.Token, at)
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appointmentMessage{
		Message:            "Appointment rescheduled",
		AppointmentDetails: toAppointmentView(appt, shop),
	})
}

func (h *Handler) CancelByCustomer(w http.ResponseWriter, r *http.Request) {
	appt, err := h.engine.CancelByCustomer(r.Context(), r.PathValue("token"))
	if err != nil {
		h.writeEngineError(w, r, err)
		return
	}
	h.writeAppointment(w, r, "Appointment cancelled", appt)
}

func (h *Handler) writeAppointment(w http.ResponseWriter, r *http.Request, msg string, appt model.Appointment) {
	shop, err := h.shops.GetShop(r.Context(), appt.ShopID)
	if err != nil && !errors.Is(err, model.ErrNotFound) {
		h.writeEngineError(w, r, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appointmentMessage{Message: msg, AppointmentDetails: toAppointmentView(appt, shop)})
}
