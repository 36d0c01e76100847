package meals

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/teamhub-backend/pkg/db"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
)

// Repository persists slots, orders and payment profiles. Lock* methods must
// run inside a transaction; the lock is released when it ends.
type Repository interface {
	WithTx(tx *gorm.DB) Repository

	EnsureProfile(ctx context.Context, userID uuid.UUID) (*models.PaymentProfile, error)
	FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.PaymentProfile, error)
	FindProfilesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.PaymentProfile, error)
	UpdateProfileDefault(ctx context.Context, profileID uuid.UUID, mode enums.PaymentMode) error

	CreateSlot(ctx context.Context, slot *models.MealSlot) error
	FindSlot(ctx context.Context, id uuid.UUID) (*models.MealSlot, error)
	LockSlots(ctx context.Context, ids []uuid.UUID) ([]models.MealSlot, error)
	ListSlotsFrom(ctx context.Context, from time.Time) ([]models.MealSlot, error)
	DeleteSlot(ctx context.Context, id uuid.UUID) error

	CreateOrder(ctx context.Context, order *models.MealOrder) error
	HasOrderForSitting(ctx context.Context, profileID uuid.UUID, date time.Time, mealType enums.MealType) (bool, error)
	LockProfileOrders(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID) ([]models.MealOrder, error)
	LockSlotOrders(ctx context.Context, slotID uuid.UUID) ([]models.MealOrder, error)
	ListProfileOrders(ctx context.Context, profileID uuid.UUID) ([]models.MealOrder, error)
	DeleteOrders(ctx context.Context, ids []uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// EnsureProfile returns the user's profile, creating it with the default
// payment mode on first use. Concurrent callers converge on one row.
func (r *repository) EnsureProfile(ctx context.Context, userID uuid.UUID) (*models.PaymentProfile, error) {
	profile := models.PaymentProfile{
		UserID:         userID,
		DefaultPayment: enums.PaymentModeDeductFromCredit,
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(&profile).Error; err != nil {
		return nil, err
	}
	return r.FindProfileByUserID(ctx, userID)
}

func (r *repository) FindProfileByUserID(ctx context.Context, userID uuid.UUID) (*models.PaymentProfile, error) {
	var profile models.PaymentProfile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindProfilesByIDs(ctx context.Context, ids []uuid.UUID) ([]models.PaymentProfile, error) {
	var profiles []models.PaymentProfile
	if len(ids) == 0 {
		return profiles, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

func (r *repository) UpdateProfileDefault(ctx context.Context, profileID uuid.UUID, mode enums.PaymentMode) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentProfile{}).
		Where("id = ?", profileID).
		Update("default_payment", mode).Error
}

func (r *repository) CreateSlot(ctx context.Context, slot *models.MealSlot) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(slot).Error
}

func (r *repository) FindSlot(ctx context.Context, id uuid.UUID) (*models.MealSlot, error) {
	var slot models.MealSlot
	if err := r.db.WithContext(ctx).
		Preload("Food").
		Preload("Side").
		First(&slot, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &slot, nil
}

// LockSlots locks the given slots in id order. Missing ids are simply absent
// from the result.
func (r *repository) LockSlots(ctx context.Context, ids []uuid.UUID) ([]models.MealSlot, error) {
	var slots []models.MealSlot
	if len(ids) == 0 {
		return slots, nil
	}
	if err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *repository) ListSlotsFrom(ctx context.Context, from time.Time) ([]models.MealSlot, error) {
	var slots []models.MealSlot
	if err := r.db.WithContext(ctx).
		Preload("Food").
		Preload("Side").
		Where("date >= ?", from).
		Order("date ASC").
		Order("meal_type ASC").
		Order("id ASC").
		Find(&slots).Error; err != nil {
		return nil, err
	}
	return slots, nil
}

func (r *repository) DeleteSlot(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&models.MealSlot{}, "id = ?", id).Error
}

func (r *repository) CreateOrder(ctx context.Context, order *models.MealOrder) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(order).Error
}

func (r *repository) HasOrderForSitting(ctx context.Context, profileID uuid.UUID, date time.Time, mealType enums.MealType) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&models.MealOrder{}).
		Where("payment_profile_id = ? AND slot_date = ? AND meal_type = ?", profileID, date, mealType).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) LockProfileOrders(ctx context.Context, profileID uuid.UUID, ids []uuid.UUID) ([]models.MealOrder, error) {
	var orders []models.MealOrder
	if len(ids) == 0 {
		return orders, nil
	}
	if err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("payment_profile_id = ? AND id IN ?", profileID, ids).
		Order("id ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) LockSlotOrders(ctx context.Context, slotID uuid.UUID) ([]models.MealOrder, error) {
	var orders []models.MealOrder
	if err := db.ForUpdate(r.db.WithContext(ctx)).
		Where("meal_slot_id = ?", slotID).
		Order("id ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) ListProfileOrders(ctx context.Context, profileID uuid.UUID) ([]models.MealOrder, error) {
	var orders []models.MealOrder
	if err := r.db.WithContext(ctx).
		Preload("MealSlot").
		Preload("MealSlot.Food").
		Preload("MealSlot.Side").
		Where("payment_profile_id = ?", profileID).
		Order("slot_date DESC").
		Order("meal_type ASC").
		Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *repository) DeleteOrders(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&models.MealOrder{}).Error
}
