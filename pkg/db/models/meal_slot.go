package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/enums"
)

// MealSlot is a dated sitting with a fixed food/side pairing. Price is the sum
// of the item prices at creation and never recomputed.
type MealSlot struct {
	ID        uuid.UUID       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	Date      time.Time       `gorm:"column:date;type:date;not null;uniqueIndex:ux_meal_slots_food_date_meal,priority:2;uniqueIndex:ux_meal_slots_side_date_meal,priority:2" json:"date"`
	MealType  enums.MealType  `gorm:"column:meal_type;type:meal_type;not null;uniqueIndex:ux_meal_slots_food_date_meal,priority:3;uniqueIndex:ux_meal_slots_side_date_meal,priority:3" json:"meal_type"`
	FoodID    *uuid.UUID      `gorm:"column:food_id;type:uuid;uniqueIndex:ux_meal_slots_food_date_meal,priority:1" json:"food_id,omitempty"`
	SideID    *uuid.UUID      `gorm:"column:side_id;type:uuid;uniqueIndex:ux_meal_slots_side_date_meal,priority:1" json:"side_id,omitempty"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(11,2);not null" json:"price"`
	CreatedBy uuid.UUID       `gorm:"column:created_by;type:uuid;not null" json:"created_by"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime" json:"created_at"`

	Food *MenuItem `gorm:"foreignKey:FoodID" json:"food,omitempty"`
	Side *MenuItem `gorm:"foreignKey:SideID" json:"side,omitempty"`
}

func (s *MealSlot) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}
