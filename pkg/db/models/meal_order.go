package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/enums"
)

// MealOrder is one user's purchase of a meal slot. SlotDate and MealType are
// copied from the slot so the one-order-per-sitting rule is a unique index.
type MealOrder struct {
	ID               uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	PaymentProfileID uuid.UUID         `gorm:"column:payment_profile_id;type:uuid;not null;uniqueIndex:ux_meal_orders_profile_slot,priority:1;uniqueIndex:ux_meal_orders_profile_date_meal,priority:1" json:"payment_profile_id"`
	MealSlotID       uuid.UUID         `gorm:"column:meal_slot_id;type:uuid;not null;uniqueIndex:ux_meal_orders_profile_slot,priority:2;index" json:"meal_slot_id"`
	SlotDate         time.Time         `gorm:"column:slot_date;type:date;not null;uniqueIndex:ux_meal_orders_profile_date_meal,priority:2" json:"slot_date"`
	MealType         enums.MealType    `gorm:"column:meal_type;type:meal_type;not null;uniqueIndex:ux_meal_orders_profile_date_meal,priority:3" json:"meal_type"`
	Quantity         int               `gorm:"column:quantity;not null;default:1" json:"quantity"`
	PaymentMode      enums.PaymentMode `gorm:"column:payment_mode;type:payment_mode;not null" json:"payment_mode"`
	ChargedAmount    decimal.Decimal   `gorm:"column:charged_amount;type:numeric(11,2);not null" json:"charged_amount"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	MealSlot       *MealSlot       `gorm:"foreignKey:MealSlotID" json:"meal_slot,omitempty"`
	PaymentProfile *PaymentProfile `gorm:"foreignKey:PaymentProfileID" json:"payment_profile,omitempty"`
}

func (o *MealOrder) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}
