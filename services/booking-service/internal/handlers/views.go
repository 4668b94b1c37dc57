package handlers

import (
	"time"

	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/model"
)

type shopView struct {
	ID                  int64  `json:"id"`
	ShopName            string `json:"shop_name"`
	Address             string `json:"address,omitempty"`
	Timezone            string `json:"timezone"`
	OpeningTime         string `json:"opening_time"`
	ClosingTime         string `json:"closing_time"`
	AppointmentDuration int    `json:"appointment_duration"`
	SlotCapacity        int    `json:"slot_capacity"`
}

func toShopView(s model.Shop) shopView {
	return shopView{
		ID:                  s.ID,
		ShopName:            s.Name,
		Address:             s.Address,
		Timezone:            s.Timezone,
		OpeningTime:         s.Opening.String(),
		ClosingTime:         s.Closing.String(),
		AppointmentDuration: s.Duration,
		SlotCapacity:        s.Capacity,
	}
}

type appointmentView struct {
	ID               int64  `json:"id"`
	ShopID           int64  `json:"shop_id"`
	ShopName         string `json:"shop_name,omitempty"`
	CustomerName     string `json:"customer_name"`
	CustomerPhone    string `json:"customer_phone"`
	CustomerEmail    string `json:"customer_email"`
	AppointmentTime  string `json:"appointment_time"`
	Status           string `json:"status"`
	AppointmentToken string `json:"appointment_token"`
}

// toAppointmentView renders times in the shop's zone so customers see wall
// clock times.
func toAppointmentView(a model.Appointment, shop model.Shop) appointmentView {
	return appointmentView{
		ID:               a.ID,
		ShopID:           a.ShopID,
		ShopName:         shop.Name,
		CustomerName:     a.CustomerName,
		CustomerPhone:    a.CustomerPhone,
		CustomerEmail:    a.CustomerEmail,
		AppointmentTime:  a.Time.In(shop.Location()).Format(time.RFC3339),
		Status:           a.Status,
		AppointmentToken: a.Token,
	}
}

type blockedSlotView struct {
	ID        int64  `json:"id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Reason    string `json:"reason,omitempty"`
}

func toBlockedSlotView(b model.BlockedSlot, loc *time.Location) blockedSlotView {
	return blockedSlotView{
		ID:        b.ID,
		StartTime: b.Start.In(loc).Format(time.RFC3339),
		EndTime:   b.End.In(loc).Format(time.RFC3339),
		Reason:    b.Reason,
	}
}

type bookingResponse struct {
	Message            string          `json:"message"`
	AppointmentToken   string          `json:"appointment_token"`
	AppointmentDetails appointmentView `json:"appointment_details"`
}

type appointmentMessage struct {
	Message            string          `json:"message"`
	AppointmentDetails appointmentView `json:"appointment_details"`
}
