package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/teamhub-backend/pkg/enums"
)

// CreditTransferredEvent is emitted after a peer-to-peer transfer commits.
type CreditTransferredEvent struct {
	EntryID    uuid.UUID       `json:"entry_id"`
	SenderID   uuid.UUID       `json:"sender_id"`
	ReceiverID uuid.UUID       `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
}

// TopUpRequestedEvent announces a new top-up waiting for an administrator.
type TopUpRequestedEvent struct {
	EntryID    uuid.UUID               `json:"entry_id"`
	ReceiverID uuid.UUID               `json:"receiver_id"`
	Amount     decimal.Decimal         `json:"amount"`
	Status     enums.LedgerEntryStatus `json:"status"`
}

// TopUpSettledEvent is emitted when a top-up reaches a terminal status.
type TopUpSettledEvent struct {
	EntryID    uuid.UUID               `json:"entry_id"`
	ReceiverID uuid.UUID               `json:"receiver_id"`
	Amount     decimal.Decimal         `json:"amount"`
	Status     enums.LedgerEntryStatus `json:"status"`
	SettledBy  uuid.UUID               `json:"settled_by"`
}

// MealOrderCreatedEvent is emitted per order after the debit commits.
type MealOrderCreatedEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	UserID     uuid.UUID       `json:"user_id"`
	MealSlotID uuid.UUID       `json:"meal_slot_id"`
	SlotDate   time.Time       `json:"slot_date"`
	MealType   enums.MealType  `json:"meal_type"`
	Quantity   int             `json:"quantity"`
	Charged    decimal.Decimal `json:"charged"`
}

// MealOrderCanceledEvent is emitted per refunded order, whether the user
// cancelled it or the slot was removed.
type MealOrderCanceledEvent struct {
	OrderID    uuid.UUID       `json:"order_id"`
	UserID     uuid.UUID       `json:"user_id"`
	MealSlotID uuid.UUID       `json:"meal_slot_id"`
	Refunded   decimal.Decimal `json:"refunded"`
	Reason     string          `json:"reason"`
}

// MealSlotEvent describes slot creation and deletion.
type MealSlotEvent struct {
	MealSlotID    uuid.UUID       `json:"meal_slot_id"`
	Date          time.Time       `json:"date"`
	MealType      enums.MealType  `json:"meal_type"`
	Price         decimal.Decimal `json:"price"`
	RefundedCount int             `json:"refunded_count,omitempty"`
}
