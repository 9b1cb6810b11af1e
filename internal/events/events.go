package events

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"amenityhub/internal/models"
)

const (
	EventReservationCreated     = "reservation.created"
	EventReservationConfirmed   = "reservation.confirmed"
	EventReservationCancelled   = "reservation.cancelled"
	EventReservationExpired     = "reservation.expired"
	EventReservationCompleted   = "reservation.completed"
	EventReservationRescheduled = "reservation.rescheduled"
)

// AllTypes lists every event type the booking service emits.
var AllTypes = []string{
	EventReservationCreated,
	EventReservationConfirmed,
	EventReservationCancelled,
	EventReservationExpired,
	EventReservationCompleted,
	EventReservationRescheduled,
}

// TypeForStatus maps a reservation status to the event announcing it.
func TypeForStatus(s models.Status) string {
	switch s {
	case models.StatusConfirmed:
		return EventReservationConfirmed
	case models.StatusCancelled:
		return EventReservationCancelled
	case models.StatusExpired:
		return EventReservationExpired
	case models.StatusCompleted:
		return EventReservationCompleted
	default:
		return EventReservationCreated
	}
}

// ReservationEventPayload is the reservation snapshot sent to consumers.
// The confirmation reference is a bearer token and never leaves the service
// through events; Confirmed only says whether one is attached.
type ReservationEventPayload struct {
	ReservationID string    `json:"reservation_id"`
	ResourceID    string    `json:"resource_id"`
	ResourceName  string    `json:"resource_name,omitempty"`
	RequesterID   string    `json:"requester_id"`
	Status        string    `json:"status"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	Confirmed     bool      `json:"confirmed"`
	ChangedBy     string    `json:"changed_by,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

func NewReservationPayload(r *models.Reservation, changedBy string) ReservationEventPayload {
	return ReservationEventPayload{
		ReservationID: r.ID,
		ResourceID:    r.ResourceID,
		ResourceName:  r.ResourceName,
		RequesterID:   r.RequesterID,
		Status:        string(r.Status),
		Start:         r.Interval.Start,
		End:           r.Interval.End,
		Confirmed:     r.ConfirmationRef != "",
		ChangedBy:     changedBy,
		OccurredAt:    r.UpdatedAt,
	}
}

// Key is the partitioning key for the event: events of one resource stay ordered.
func (p ReservationEventPayload) Key() string {
	return p.ResourceID
}

type Event struct {
	Type      string
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

type EventHandler func(event *Event) error

// keyed is implemented by payloads that choose their own partition key.
type keyed interface {
	Key() string
}

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for the given event types.
func (b *EventBus) Subscribe(handler EventHandler, eventTypes ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range eventTypes {
		b.subscribers[t] = append(b.subscribers[t], handler)
	}
}

// Publish runs the handlers of event.Type synchronously and joins their errors.
func (b *EventBus) Publish(event *Event) error {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var errs []error
	for _, handler := range handlers {
		if err := handler(event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// PublishJSON serializes the payload and publishes an event. A nil bus is a no-op.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}
	event, err := NewJSONEvent(eventType, payload)
	if err != nil {
		return err
	}
	return b.Publish(&event)
}

func NewJSONEvent(eventType string, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	event := Event{Type: eventType, Payload: raw, CreatedAt: time.Now().UTC()}
	if k, ok := payload.(keyed); ok {
		event.Key = k.Key()
	}
	return event, nil
}
