package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/enums"
)

// PaymentProfile holds a user's default meal payment mode and owns their orders.
type PaymentProfile struct {
	ID             uuid.UUID         `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	UserID         uuid.UUID         `gorm:"column:user_id;type:uuid;not null;uniqueIndex" json:"user_id"`
	DefaultPayment enums.PaymentMode `gorm:"column:default_payment;type:payment_mode;not null;default:'dfc'" json:"default_payment"`
	CreatedAt      time.Time         `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time         `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (p *PaymentProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
