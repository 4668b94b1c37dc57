package outbox

import "time"

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the JSON body of every booking.appointment.* event.
// notification-service decodes the same field names.
type AppointmentPayload struct {
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
