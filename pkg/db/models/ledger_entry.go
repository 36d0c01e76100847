package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/enums"
)

// LedgerEntry records one balance-affecting event. Rows are never deleted and
// only PENDING top-ups ever change status.
type LedgerEntry struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Kind        enums.LedgerEntryKind   `gorm:"column:kind;type:ledger_entry_kind;not null;index:idx_ledger_entries_kind_status,priority:1" json:"kind"`
	Status      enums.LedgerEntryStatus `gorm:"column:status;type:ledger_entry_status;not null;index:idx_ledger_entries_kind_status,priority:2" json:"status"`
	Amount      decimal.Decimal         `gorm:"column:amount;type:numeric(11,2);not null" json:"amount"`
	SenderID    *uuid.UUID              `gorm:"column:sender_id;type:uuid;index" json:"sender_id,omitempty"`
	ReceiverID  *uuid.UUID              `gorm:"column:receiver_id;type:uuid;index" json:"receiver_id,omitempty"`
	MealOrderID *uuid.UUID              `gorm:"column:meal_order_id;type:uuid;index" json:"meal_order_id,omitempty"`
	MealSlotID  *uuid.UUID              `gorm:"column:meal_slot_id;type:uuid" json:"meal_slot_id,omitempty"`
	BatchID     *uuid.UUID              `gorm:"column:batch_id;type:uuid" json:"batch_id,omitempty"`
	Description string                  `gorm:"column:description;not null;default:''" json:"description"`
	DocumentRef *string                 `gorm:"column:document_ref" json:"document_ref,omitempty"`
	SettledBy   *uuid.UUID              `gorm:"column:settled_by;type:uuid" json:"settled_by,omitempty"`
	SettledAt   *time.Time              `gorm:"column:settled_at" json:"settled_at,omitempty"`
	CreatedAt   time.Time               `gorm:"column:created_at;autoCreateTime;index" json:"created_at"`

	Sender   *User `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Receiver *User `gorm:"foreignKey:ReceiverID" json:"receiver,omitempty"`
}

func (e *LedgerEntry) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
