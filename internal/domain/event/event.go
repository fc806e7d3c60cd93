package event

import (
	"time"

	"github.com/google/uuid"
)

// Payload keys shared by publishers and subscribers
const (
	KeyVoucherType    = "voucher_type"
	KeyPreviousStatus = "previous_status"
	KeyNewStatus      = "new_status"
	KeyAction         = "action"
	KeyStage          = "stage"
	KeyReason         = "reason"
	KeyAmount         = "amount"
	KeyActorPIN       = "actor_pin"
	KeyActorName      = "actor_name"
	KeyCreatorPIN     = "creator_pin"
)

// Event represents a domain event about one voucher
type Event struct {
	ID            string                 `json:"id"`
	Type          Type                   `json:"type"`
	VoucherNumber string                 `json:"voucher_number"`
	Payload       map[string]interface{} `json:"payload"`
	Timestamp     time.Time              `json:"timestamp"`
	CorrelationID string                 `json:"correlation_id"`
}

// NewEvent creates a domain event with a fresh ID that starts its own correlation chain
func NewEvent(eventType Type, voucherNumber string, payload map[string]interface{}) *Event {
	id := uuid.NewString()
	return NewEventWithCorrelation(eventType, voucherNumber, payload, id)
}

// NewEventWithCorrelation creates an event linked to an existing correlation chain
func NewEventWithCorrelation(eventType Type, voucherNumber string, payload map[string]interface{}, correlationID string) *Event {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return &Event{
		ID:            uuid.NewString(),
		Type:          eventType,
		VoucherNumber: voucherNumber,
		Payload:       payload,
		Timestamp:     time.Now(),
		CorrelationID: correlationID,
	}
}

// WithPayload returns a copy of the event with one more payload entry
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	c := *e
	c.Payload = newPayload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}
