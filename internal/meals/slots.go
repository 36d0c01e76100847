package meals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/internal/ledger"
	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/db"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox/payloads"
)

// CreateSlotInput schedules a sitting. At least one of FoodID and SideID is
// required.
type CreateSlotInput struct {
	Date     time.Time
	MealType enums.MealType
	FoodID   *uuid.UUID
	SideID   *uuid.UUID
}

// DeleteSlotResult reports the refunds issued while removing a slot.
type DeleteSlotResult struct {
	SlotID        uuid.UUID       `json:"slot_id"`
	RefundedCount int             `json:"refunded_count"`
	RefundedTotal decimal.Decimal `json:"refunded_total"`
}

const (
	cancelReasonUser        = "user_canceled"
	cancelReasonSlotRemoved = "slot_deleted"
)

func (s *service) CreateSlot(ctx context.Context, actor auth.Actor, input CreateSlotInput) (*models.MealSlot, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !input.MealType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid meal type")
	}
	if input.FoodID == nil && input.SideID == nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "food or side is required")
	}
	if input.Date.IsZero() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "date is required")
	}
	date := DateOnly(input.Date)
	if !beyondWindow(date, s.now(), s.cfg.AdminLeadDays) {
		return nil, pkgerrors.New(pkgerrors.CodeDateIsPast, "date is inside the reservation window").
			WithDetails(map[string]any{"lead_days": s.cfg.AdminLeadDays})
	}

	price := decimal.Zero
	food, err := s.loadItem(ctx, input.FoodID, enums.MenuItemKindFood)
	if err != nil {
		return nil, err
	}
	if food != nil {
		price = price.Add(food.Price)
	}
	side, err := s.loadItem(ctx, input.SideID, enums.MenuItemKindSide)
	if err != nil {
		return nil, err
	}
	if side != nil {
		price = price.Add(side.Price)
	}

	slot := &models.MealSlot{
		Date:      date,
		MealType:  input.MealType,
		FoodID:    input.FoodID,
		SideID:    input.SideID,
		Price:     price,
		CreatedBy: actor.UserID,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).CreateSlot(ctx, slot); err != nil {
			if db.IsUniqueViolation(err, "") {
				return pkgerrors.New(pkgerrors.CodeConflict, "a slot with this item already exists for the date and meal")
			}
			return dependency(err, "create meal slot")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMealSlotCreated,
			AggregateType: enums.AggregateMealSlot,
			AggregateID:   slot.ID,
			Actor:         outbox.ActorFrom(actor),
			Data: payloads.MealSlotEvent{
				MealSlotID: slot.ID,
				Date:       slot.Date,
				MealType:   slot.MealType,
				Price:      slot.Price,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	slot.Food = food
	slot.Side = side

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"meal_slot_id": slot.ID.String(),
		"date":         slot.Date.Format(time.DateOnly),
		"meal_type":    string(slot.MealType),
	})
	s.logg.Info(logCtx, "meal_slot.created")
	return slot, nil
}

func (s *service) loadItem(ctx context.Context, id *uuid.UUID, kind enums.MenuItemKind) (*models.MenuItem, error) {
	if id == nil {
		return nil, nil
	}
	item, err := s.menu.FindByID(ctx, *id)
	if err != nil {
		return nil, notFound(err, fmt.Sprintf("%s item not found", kind), "load menu item")
	}
	if item.Kind != kind {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("menu item is not a %s", kind))
	}
	return item, nil
}

// DeleteSlot refunds every order on the slot, then removes the orders and the
// slot. Nothing is refunded when the slot is already inside the admin window.
func (s *service) DeleteSlot(ctx context.Context, actor auth.Actor, slotID uuid.UUID) (*DeleteSlotResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	result := &DeleteSlotResult{SlotID: slotID, RefundedTotal: decimal.Zero}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		slots, err := repo.LockSlots(ctx, []uuid.UUID{slotID})
		if err != nil {
			return dependency(err, "lock meal slot")
		}
		if len(slots) == 0 {
			return pkgerrors.New(pkgerrors.CodeNotFound, "meal slot not found")
		}
		slot := slots[0]
		if !beyondWindow(slot.Date, s.now(), s.cfg.AdminLeadDays) {
			return pkgerrors.New(pkgerrors.CodeDateIsPast, "date is inside the reservation window").
				WithDetails(map[string]any{"lead_days": s.cfg.AdminLeadDays})
		}

		orders, err := repo.LockSlotOrders(ctx, slot.ID)
		if err != nil {
			return dependency(err, "lock slot orders")
		}
		owners, err := s.orderOwners(ctx, repo, orders)
		if err != nil {
			return err
		}
		userIDs := make([]uuid.UUID, 0, len(owners))
		for _, userID := range owners {
			userIDs = append(userIDs, userID)
		}
		balances := s.balances.WithTx(tx)
		if _, err := balances.LockMany(ctx, userIDs...); err != nil {
			return dependency(err, "lock order owners")
		}

		orderIDs := make([]uuid.UUID, 0, len(orders))
		for i := range orders {
			order := orders[i]
			userID := owners[order.PaymentProfileID]
			if err := s.refund(ctx, tx, actor, userID, order, cancelReasonSlotRemoved); err != nil {
				return err
			}
			orderIDs = append(orderIDs, order.ID)
			result.RefundedTotal = result.RefundedTotal.Add(order.ChargedAmount)
		}
		result.RefundedCount = len(orderIDs)

		if err := repo.DeleteOrders(ctx, orderIDs); err != nil {
			return dependency(err, "delete slot orders")
		}
		if err := repo.DeleteSlot(ctx, slot.ID); err != nil {
			return dependency(err, "delete meal slot")
		}
		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventMealSlotDeleted,
			AggregateType: enums.AggregateMealSlot,
			AggregateID:   slot.ID,
			Actor:         outbox.ActorFrom(actor),
			Data: payloads.MealSlotEvent{
				MealSlotID:    slot.ID,
				Date:          slot.Date,
				MealType:      slot.MealType,
				Price:         slot.Price,
				RefundedCount: result.RefundedCount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"meal_slot_id":   slotID.String(),
		"refunded_count": result.RefundedCount,
		"refunded_total": result.RefundedTotal.StringFixed(2),
	})
	s.logg.Info(logCtx, "meal_slot.deleted")
	return result, nil
}

// ListUpcomingSlots returns slots from today onwards.
func (s *service) ListUpcomingSlots(ctx context.Context) ([]models.MealSlot, error) {
	slots, err := s.repo.ListSlotsFrom(ctx, DateOnly(s.now()))
	if err != nil {
		return nil, dependency(err, "list meal slots")
	}
	return slots, nil
}

// orderOwners maps each order's payment profile to the owning user.
func (s *service) orderOwners(ctx context.Context, repo Repository, orders []models.MealOrder) (map[uuid.UUID]uuid.UUID, error) {
	profileIDs := make([]uuid.UUID, 0, len(orders))
	for _, order := range orders {
		profileIDs = append(profileIDs, order.PaymentProfileID)
	}
	profiles, err := repo.FindProfilesByIDs(ctx, profileIDs)
	if err != nil {
		return nil, dependency(err, "load payment profiles")
	}
	owners := make(map[uuid.UUID]uuid.UUID, len(profiles))
	for _, profile := range profiles {
		owners[profile.ID] = profile.UserID
	}
	for _, order := range orders {
		if _, ok := owners[order.PaymentProfileID]; !ok {
			return nil, pkgerrors.New(pkgerrors.CodeInternal, "order has no payment profile")
		}
	}
	return owners, nil
}

// refund credits the order's charged snapshot back to userID and records the
// matching ORDER_CREDIT entry. The caller holds the user's row lock.
func (s *service) refund(ctx context.Context, tx *gorm.DB, actor auth.Actor, userID uuid.UUID, order models.MealOrder, reason string) error {
	if order.ChargedAmount.IsPositive() {
		if err := s.creditOrder(ctx, tx, userID, order, reason); err != nil {
			return err
		}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventMealOrderCanceled,
		AggregateType: enums.AggregateMealOrder,
		AggregateID:   order.ID,
		Actor:         outbox.ActorFrom(actor),
		Data: payloads.MealOrderCanceledEvent{
			OrderID:    order.ID,
			UserID:     userID,
			MealSlotID: order.MealSlotID,
			Refunded:   order.ChargedAmount,
			Reason:     reason,
		},
	})
}

func (s *service) creditOrder(ctx context.Context, tx *gorm.DB, userID uuid.UUID, order models.MealOrder, reason string) error {
	if _, err := s.balances.WithTx(tx).Adjust(ctx, userID, order.ChargedAmount); err != nil {
		return dependency(err, "refund order")
	}
	orderID := order.ID
	slotID := order.MealSlotID
	receiverID := userID
	if _, err := s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
		Kind:        enums.LedgerEntryKindOrderCredit,
		Status:      enums.LedgerEntryStatusAccepted,
		Amount:      order.ChargedAmount,
		ReceiverID:  &receiverID,
		MealOrderID: &orderID,
		MealSlotID:  &slotID,
		Description: fmt.Sprintf("refund %s %s x%d (%s)", order.MealType, order.SlotDate.Format(time.DateOnly), order.Quantity, reason),
	}); err != nil {
		return dependency(err, "record order refund")
	}
	return nil
}
