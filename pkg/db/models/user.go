package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// User is the identity row shared with the auth service. Balance is only
// written by the credit and meal services.
type User struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Username    string          `gorm:"column:username;not null;uniqueIndex" json:"username"`
	Email       *string         `gorm:"column:email" json:"email,omitempty"`
	IsSuperuser bool            `gorm:"column:is_superuser;not null;default:false" json:"is_superuser"`
	Balance     decimal.Decimal `gorm:"column:balance;type:numeric(11,2);not null;default:0" json:"balance"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (u *User) BeforeCreate(*gorm.DB) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	return nil
}
