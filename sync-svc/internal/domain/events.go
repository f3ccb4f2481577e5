package domain

const (
	EventTableOpened = "table.opened"
	EventTableClosed = "table.closed"
)

// Envelope holds the wrapper fields of a streamed frame. Only EventType takes
// part in classification; the rest is carried for logging and filtering.
type Envelope struct {
	EventID      string
	EventType    string
	OccurredAt   string
	RestaurantID string
}

// Event is the closed set of classified frames: OrderUpsert,
// TableOpenedEvent, TableClosedEvent and Unrecognized.
type Event interface {
	Meta() Envelope
	isEvent()
}

type OrderUpsert struct {
	Envelope
	Order Order
}

type TableOpenedEvent struct {
	Envelope
	Table Table
}

type TableClosedEvent struct {
	Envelope
	TableID  string
	ClosedAt string
}

type Unrecognized struct {
	Envelope
	Reason string
}

func (e Envelope) Meta() Envelope { return e }

func (OrderUpsert) isEvent()      {}
func (TableOpenedEvent) isEvent() {}
func (TableClosedEvent) isEvent() {}
func (Unrecognized) isEvent()     {}

const (
	ReasonInvalidJSON    = "invalid json"
	ReasonMissingPayload = "missing payload"
	ReasonUnhandled      = "unhandled event"
)

// Classify turns a raw frame into exactly one Event and never fails.
// An order payload wins over event_type because the producer emits several
// order event types that all share upsert semantics.
func Classify(raw string) Event {
	f, ok := DecodeFields([]byte(raw))
	if !ok {
		return Unrecognized{Reason: ReasonInvalidJSON}
	}
	env := Envelope{
		EventID:      f.Str("event_id"),
		EventType:    f.Str("event_type"),
		OccurredAt:   f.Str("occurred_at"),
		RestaurantID: f.Str("restaurant_id"),
	}
	payload, ok := f.Object("payload")
	if !ok {
		return Unrecognized{Envelope: env, Reason: ReasonMissingPayload}
	}

	if payload.Str("orderId") != "" {
		return OrderUpsert{Envelope: env, Order: OrderFromFields(payload)}
	}
	tableID := payload.Str("tableId")
	switch {
	case env.EventType == EventTableOpened && tableID != "":
		return TableOpenedEvent{Envelope: env, Table: OpenedTable(payload, env.RestaurantID)}
	case env.EventType == EventTableClosed && tableID != "":
		return TableClosedEvent{Envelope: env, TableID: tableID, ClosedAt: payload.Str("closedAt")}
	}
	return Unrecognized{Envelope: env, Reason: ReasonUnhandled}
}
