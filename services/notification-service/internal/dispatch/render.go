package dispatch

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"
)

const (
	EventBooked        = "booking.appointment.booked.v1"
	EventRescheduled   = "booking.appointment.rescheduled.v1"
	EventCancelled     = "booking.appointment.cancelled.v1"
	EventStatusChanged = "booking.appointment.status_changed.v1"
)

// Topics lists every booking event the service reacts to.
var Topics = []string{EventBooked, EventRescheduled, EventCancelled, EventStatusChanged}

// Payload mirrors the booking-service appointment event body.
type Payload struct {
	AppointmentID int64     `json:"appointment_id"`
	Token         string    `json:"appointment_token"`
	Status        string    `json:"status"`
	ShopID        int64     `json:"shop_id"`
	ShopName      string    `json:"shop_name"`
	ShopAddress   string    `json:"shop_address,omitempty"`
	Timezone      string    `json:"timezone"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CustomerPhone string    `json:"customer_phone"`
	Time          time.Time `json:"appointment_time"`
	PreviousTime  time.Time `json:"previous_time,omitzero"`
}

// Message is a rendered notification. SMS is the short form of Body.
type Message struct {
	Subject string
	Body    string
	SMS     string
}

const humanLayout = "Monday, January 02, 2006 at 03:04 PM"

func (p Payload) location() *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func (p Payload) when(t time.Time) string {
	return t.In(p.location()).Format(humanLayout)
}

// Render builds the customer-facing message for an event.
func Render(eventType string, p Payload) (Message, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", p.CustomerName)

	var msg Message
	switch eventType {
	case EventBooked:
		msg.Subject = "Appointment Confirmation for " + p.ShopName
		b.WriteString("Your appointment has been confirmed!\n\n")
		fmt.Fprintf(&b, "Shop: %s\n", p.ShopName)
		if p.ShopAddress != "" {
			fmt.Fprintf(&b, "Address: %s\n", p.ShopAddress)
		}
		fmt.Fprintf(&b, "Time: %s\n", p.when(p.Time))
		fmt.Fprintf(&b, "Your Token: %s\n\nThank you!\n", p.Token)
		msg.SMS = fmt.Sprintf("%s: appointment confirmed for %s. Token %s", p.ShopName, p.when(p.Time), p.Token)
	case EventRescheduled:
		msg.Subject = "Appointment Rescheduled for " + p.ShopName
		b.WriteString("Your appointment has been successfully rescheduled!\n\n")
		if !p.PreviousTime.IsZero() {
			fmt.Fprintf(&b, "Previous Time: %s\n", p.when(p.PreviousTime))
		}
		fmt.Fprintf(&b, "New Time: %s\n", p.when(p.Time))
		fmt.Fprintf(&b, "Your Token: %s\n\nThank you!\n", p.Token)
		msg.SMS = fmt.Sprintf("%s: appointment %s moved to %s", p.ShopName, p.Token, p.when(p.Time))
	case EventCancelled:
		msg.Subject = "Appointment Cancellation for " + p.ShopName
		by := ""
		if p.Status == "cancelled_by_shop" {
			by = " by the shop"
		}
		fmt.Fprintf(&b, "Your appointment for %s has been cancelled%s.\n\nThank you.\n", p.when(p.Time), by)
		msg.SMS = fmt.Sprintf("%s: appointment %s on %s cancelled%s", p.ShopName, p.Token, p.when(p.Time), by)
	case EventStatusChanged:
		msg.Subject = "Appointment Update from " + p.ShopName
		fmt.Fprintf(&b, "Your appointment for %s is now %s.\n", p.when(p.Time), strings.ReplaceAll(p.Status, "_", " "))
		fmt.Fprintf(&b, "Your Token: %s\n\nThank you.\n", p.Token)
		msg.SMS = fmt.Sprintf("%s: appointment %s is now %s", p.ShopName, p.Token, strings.ReplaceAll(p.Status, "_", " "))
	default:
		return Message{}, fmt.Errorf("unsupported event type %q", eventType)
	}
	msg.Body = b.String()
	return msg, nil
}
