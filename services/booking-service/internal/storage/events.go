package storage

import (
	"encoding/json"
	"strconv"

	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/shopqueue/services/booking-service/internal/outbox"
)

// AppointmentEvent builds the outbox envelope for a notification.
func AppointmentEvent(n booking.Notification) (outbox.Event, error) {
	a := n.Appointment
	payload, err := json.Marshal(outbox.AppointmentPayload{
		AppointmentID: a.ID,
		Token:         a.Token,
		Status:        a.Status,
		ShopID:        n.Shop.ID,
		ShopName:      n.Shop.Name,
		ShopAddress:   n.Shop.Address,
		Timezone:      n.Shop.Timezone,
		CustomerName:  a.CustomerName,
		CustomerEmail: a.CustomerEmail,
		CustomerPhone: a.CustomerPhone,
		Time:          a.Time.UTC(),
		PreviousTime:  n.PreviousTime.UTC(),
	})
	if err != nil {
		return outbox.Event{}, err
	}
	return outbox.Event{
		AggregateType: "appointment",
		AggregateID:   strconv.FormatInt(a.ID, 10),
		EventType:     n.EventType,
		Payload:       payload,
	}, nil
}
