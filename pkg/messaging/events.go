package messaging

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types
const (
	// Lot lifecycle events
	EventLotCreated = "lot.created"
	EventLotUpdated = "lot.updated"
	EventLotDeleted = "lot.deleted"
	EventLotExpired = "lot.expired"

	// Stock movement events
	EventStockReserved = "lot.stock.reserved"
	EventStockReleased = "lot.stock.released"
	EventStockConsumed = "lot.stock.consumed"
	EventStockAdjusted = "lot.stock.adjusted"

	// User sync events (consumed from the user service)
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

// Exchange names
const (
	ExchangeLotEvents  = "lot.events"
	ExchangeUserEvents = "user.events"
)

// Event is the base event structure
type Event struct {
	ID            string          `json:"id"`
	Type          string          `json:"type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	CorrelationID string          `json:"correlation_id"`
	Data          json.RawMessage `json:"data"`
}

// NewEvent creates a new event with the given type and data
func NewEvent(eventType, source, correlationID string, data interface{}) (*Event, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Event{
		ID:            GenerateEventID(),
		Type:          eventType,
		Source:        source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: correlationID,
		Data:          dataBytes,
	}, nil
}

// UnmarshalData unmarshals the event data into the provided struct
func (e *Event) UnmarshalData(v interface{}) error {
	return json.Unmarshal(e.Data, v)
}

// GenerateEventID returns a unique event identifier
func GenerateEventID() string {
	return uuid.New().String()
}

// Lot events

// LotCreatedEvent is published when a lot/batch is received into inventory
type LotCreatedEvent struct {
	LotID       string     `json:"lot_id"`
	LotNumber   string     `json:"lot_number"`
	BatchNumber *string    `json:"batch_number,omitempty"`
	ProductID   string     `json:"product_id"`
	AgencyID    string     `json:"agency_id"`
	Quantity    int64      `json:"quantity"`
	ExpiryDate  *time.Time `json:"expiry_date,omitempty"`
	CreatedBy   string     `json:"created_by"`
}

// LotUpdatedEvent is published when lot metadata or status changes
type LotUpdatedEvent struct {
	LotID     string         `json:"lot_id"`
	LotNumber string         `json:"lot_number"`
	Fields    map[string]any `json:"fields"`
	UpdatedBy string         `json:"updated_by"`
}

// LotDeletedEvent is published for both soft and hard deletes
type LotDeletedEvent struct {
	LotID     string `json:"lot_id"`
	LotNumber string `json:"lot_number"`
	Hard      bool   `json:"hard"`
	Reason    string `json:"reason,omitempty"`
	DeletedBy string `json:"deleted_by"`
}

// LotExpiredEvent is published when a lot is promoted to EXPIRED status
type LotExpiredEvent struct {
	LotID      string     `json:"lot_id"`
	LotNumber  string     `json:"lot_number"`
	ProductID  string     `json:"product_id"`
	ExpiryDate *time.Time `json:"expiry_date,omitempty"`
	Remaining  int64      `json:"remaining_quantity"`
}

// StockChangedEvent is published for every quantity ledger entry
// (reserve, release, consume, adjust).
type StockChangedEvent struct {
	LotID          string `json:"lot_id"`
	LotNumber      string `json:"lot_number"`
	ProductID      string `json:"product_id"`
	ChangeType     string `json:"change_type"`
	QuantityBefore int64  `json:"quantity_before"`
	QuantityAfter  int64  `json:"quantity_after"`
	QuantityChange int64  `json:"quantity_change"`
	Reason         string `json:"reason,omitempty"`
	PerformedBy    string `json:"performed_by"`
}

// User sync events

// UserCreatedEvent is consumed to populate the local user cache
type UserCreatedEvent struct {
	UserID      string   `json:"user_id"`
	Email       string   `json:"email"`
	Name        string   `json:"name"`
	RoleName    string   `json:"role_name"`
	Permissions []string `json:"permissions"`
	AgencyID    string   `json:"agency_id"`
}

// UserUpdatedEvent is consumed to refresh the local user cache
type UserUpdatedEvent struct {
	UserID      string   `json:"user_id"`
	Email       *string  `json:"email,omitempty"`
	Name        *string  `json:"name,omitempty"`
	RoleName    *string  `json:"role_name,omitempty"`
	Permissions []string `json:"permissions,omitempty"`
}

// UserDeletedEvent is consumed to evict a user from the local cache
type UserDeletedEvent struct {
	UserID string `json:"user_id"`
}
