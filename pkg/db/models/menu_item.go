package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/enums"
)

// MenuItem is a catalog dish or side. MaxQuantity caps how many portions a
// single order may request.
type MenuItem struct {
	ID          uuid.UUID          `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Name        string             `gorm:"column:name;not null" json:"name"`
	Description string             `gorm:"column:description;not null;default:''" json:"description"`
	Kind        enums.MenuItemKind `gorm:"column:kind;type:menu_item_kind;not null" json:"kind"`
	Price       decimal.Decimal    `gorm:"column:price;type:numeric(11,2);not null" json:"price"`
	MaxQuantity int                `gorm:"column:max_quantity;not null;default:1" json:"max_quantity"`
	CreatedAt   time.Time          `gorm:"column:created_at;autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time          `gorm:"column:updated_at;autoUpdateTime" json:"updated_at"`
}

func (m *MenuItem) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
