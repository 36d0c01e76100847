package meals

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/internal/ledger"
	"github.com/angelmondragon/teamhub-backend/internal/menu"
	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/db"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox/payloads"
)

// CreateOrderInput requests Quantity portions of a slot. A zero Quantity
// means one portion. PaymentMode is only consulted when the profile asks
// each time.
type CreateOrderInput struct {
	MealSlotID  uuid.UUID
	Quantity    int
	PaymentMode *enums.PaymentMode
}

// CancelResult lists which orders were refunded and which were left alone
// because their date is already inside the cancellation window.
type CancelResult struct {
	Canceled []uuid.UUID    `json:"canceled"`
	Skipped  []uuid.UUID    `json:"skipped"`
	Refunded decimal.Decimal `json:"refunded"`
}

// ItemFailure describes why one request in a batch was rejected.
type ItemFailure struct {
	Index   int            `json:"index"`
	Code    pkgerrors.Code `json:"code"`
	Message string         `json:"message"`
}

type sitting struct {
	date     time.Time
	mealType enums.MealType
}

// ParseOrderIDs converts raw identifiers into order ids. An empty list or a
// malformed id is invalid input.
func ParseOrderIDs(raw []string) ([]uuid.UUID, error) {
	if len(raw) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "ids must be a non-empty list")
	}
	ids := make([]uuid.UUID, 0, len(raw))
	for _, value := range raw {
		id, err := uuid.Parse(strings.TrimSpace(value))
		if err != nil || id == uuid.Nil {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "ids must be valid identifiers").
				WithDetails(map[string]any{"id": value})
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s *service) CreateOrder(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*models.MealOrder, error) {
	orders, err := s.placeOrders(ctx, actor, []CreateOrderInput{input}, false)
	if err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// CreateOrders places every order or none. The total is debited once and
// each order gets its own ledger entry tagged with a shared batch id.
func (s *service) CreateOrders(ctx context.Context, actor auth.Actor, inputs []CreateOrderInput) ([]models.MealOrder, error) {
	if len(inputs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "orders must be a non-empty list")
	}
	return s.placeOrders(ctx, actor, inputs, true)
}

func (s *service) placeOrders(ctx context.Context, actor auth.Actor, inputs []CreateOrderInput, batch bool) ([]models.MealOrder, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}

	slotIDs := make([]uuid.UUID, 0, len(inputs))
	for _, input := range inputs {
		slotIDs = append(slotIDs, input.MealSlotID)
	}

	var placed []models.MealOrder
	var total decimal.Decimal
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		slots, err := repo.LockSlots(ctx, dedupe(slotIDs))
		if err != nil {
			return dependency(err, "lock meal slots")
		}
		slotByID := make(map[uuid.UUID]models.MealSlot, len(slots))
		for _, slot := range slots {
			slotByID[slot.ID] = slot
		}

		balances := s.balances.WithTx(tx)
		user, err := balances.Lock(ctx, actor.UserID)
		if err != nil {
			return notFound(err, "user not found", "lock user")
		}
		profile, err := repo.EnsureProfile(ctx, actor.UserID)
		if err != nil {
			return dependency(err, "resolve payment profile")
		}

		orders := make([]models.MealOrder, 0, len(inputs))
		seen := make(map[sitting]struct{}, len(inputs))
		var failures error
		for i, input := range inputs {
			order, err := s.prepareOrder(ctx, repo, s.menu.WithTx(tx), profile, slotByID, seen, input)
			if err != nil {
				failures = multierr.Append(failures, itemError{index: i, err: err})
				continue
			}
			orders = append(orders, *order)
		}
		if failures != nil {
			return batchError(failures, batch)
		}

		total = decimal.Zero
		for _, order := range orders {
			total = total.Add(order.ChargedAmount)
		}
		if user.Balance.LessThan(total) {
			return insufficient(user.Balance, total)
		}
		if total.IsPositive() {
			if _, err := balances.Adjust(ctx, actor.UserID, total.Neg()); err != nil {
				return dependency(err, "debit orders")
			}
		}

		var batchID *uuid.UUID
		if batch {
			id := uuid.New()
			batchID = &id
		}
		for i := range orders {
			if err := s.persistOrder(ctx, tx, actor, &orders[i], batchID); err != nil {
				return err
			}
		}
		placed = orders
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"order_count": len(placed),
		"charged":     total.StringFixed(2),
	})
	s.logg.Info(logCtx, "meal_order.created")
	return placed, nil
}

// prepareOrder validates one request against the locked slot and the
// profile's existing orders. Checks run limit first, then duplicates.
func (s *service) prepareOrder(
	ctx context.Context,
	repo Repository,
	catalog menu.Repository,
	profile *models.PaymentProfile,
	slots map[uuid.UUID]models.MealSlot,
	seen map[sitting]struct{},
	input CreateOrderInput,
) (*models.MealOrder, error) {
	slot, ok := slots[input.MealSlotID]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "meal slot not found")
	}

	quantity := input.Quantity
	if quantity == 0 {
		quantity = 1
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}
	limit, err := quantityLimit(ctx, catalog, slot)
	if err != nil {
		return nil, err
	}
	if quantity > limit {
		return nil, pkgerrors.New(pkgerrors.CodeLimitExceeded, "quantity exceeds item limit").
			WithDetails(map[string]any{"limit": limit})
	}

	key := sitting{date: DateOnly(slot.Date), mealType: slot.MealType}
	if _, dup := seen[key]; dup {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateMealSlot, "meal already ordered for this date")
	}
	exists, err := repo.HasOrderForSitting(ctx, profile.ID, key.date, key.mealType)
	if err != nil {
		return nil, dependency(err, "check existing orders")
	}
	if exists {
		return nil, pkgerrors.New(pkgerrors.CodeDuplicateMealSlot, "meal already ordered for this date")
	}

	mode, err := resolvePaymentMode(profile.DefaultPayment, input.PaymentMode)
	if err != nil {
		return nil, err
	}
	seen[key] = struct{}{}

	return &models.MealOrder{
		PaymentProfileID: profile.ID,
		MealSlotID:       slot.ID,
		SlotDate:         key.date,
		MealType:         slot.MealType,
		Quantity:         quantity,
		PaymentMode:      mode,
		ChargedAmount:    slot.Price.Mul(decimal.NewFromInt(int64(quantity))).Round(2),
	}, nil
}

// quantityLimit is the food's limit, or the side's when the slot has no food.
func quantityLimit(ctx context.Context, catalog menu.Repository, slot models.MealSlot) (int, error) {
	itemID := slot.FoodID
	if itemID == nil {
		itemID = slot.SideID
	}
	if itemID == nil {
		return 0, pkgerrors.New(pkgerrors.CodeInternal, "meal slot has no items")
	}
	item, err := catalog.FindByID(ctx, *itemID)
	if err != nil {
		return 0, notFound(err, "menu item not found", "load menu item")
	}
	return item.MaxQuantity, nil
}

// resolvePaymentMode applies the profile default unless it asks each time,
// in which case the request must name a concrete mode.
func resolvePaymentMode(profileDefault enums.PaymentMode, requested *enums.PaymentMode) (enums.PaymentMode, error) {
	mode := profileDefault
	if profileDefault == enums.PaymentModeAskEachTime {
		if requested == nil {
			return "", pkgerrors.New(pkgerrors.CodeValidation, "payment mode is required")
		}
		mode = *requested
	}
	if !mode.IsOrderMode() {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "invalid payment mode")
	}
	if mode == enums.PaymentModeGateway {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "gateway payments are not available")
	}
	return mode, nil
}

func (s *service) persistOrder(ctx context.Context, tx *gorm.DB, actor auth.Actor, order *models.MealOrder, batchID *uuid.UUID) error {
	if err := s.repo.WithTx(tx).CreateOrder(ctx, order); err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.New(pkgerrors.CodeDuplicateMealSlot, "meal already ordered for this date")
		}
		return dependency(err, "create meal order")
	}

	if order.ChargedAmount.IsPositive() {
		senderID := actor.UserID
		orderID := order.ID
		slotID := order.MealSlotID
		if _, err := s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
			Kind:        enums.LedgerEntryKindOrderDebit,
			Status:      enums.LedgerEntryStatusAccepted,
			Amount:      order.ChargedAmount,
			SenderID:    &senderID,
			MealOrderID: &orderID,
			MealSlotID:  &slotID,
			BatchID:     batchID,
			Description: fmt.Sprintf("%s %s x%d", order.MealType, order.SlotDate.Format(time.DateOnly), order.Quantity),
		}); err != nil {
			return dependency(err, "record order debit")
		}
	}

	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventMealOrderCreated,
		AggregateType: enums.AggregateMealOrder,
		AggregateID:   order.ID,
		Actor:         outbox.ActorFrom(actor),
		Data: payloads.MealOrderCreatedEvent{
			OrderID:    order.ID,
			UserID:     actor.UserID,
			MealSlotID: order.MealSlotID,
			SlotDate:   order.SlotDate,
			MealType:   order.MealType,
			Quantity:   order.Quantity,
			Charged:    order.ChargedAmount,
		},
	})
}

// CancelOrders refunds the caller's orders that are still beyond the
// cancellation window. Every id must belong to the caller.
func (s *service) CancelOrders(ctx context.Context, actor auth.Actor, orderIDs []uuid.UUID) (*CancelResult, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if len(orderIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "ids must be a non-empty list")
	}
	ids := dedupe(orderIDs)

	result := &CancelResult{Canceled: []uuid.UUID{}, Skipped: []uuid.UUID{}, Refunded: decimal.Zero}
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		profile, err := repo.FindProfileByUserID(ctx, actor.UserID)
		if err != nil {
			return notFound(err, "meal order not found", "load payment profile")
		}
		orders, err := repo.LockProfileOrders(ctx, profile.ID, ids)
		if err != nil {
			return dependency(err, "lock meal orders")
		}
		if len(orders) != len(ids) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "meal order not found").
				WithDetails(map[string]any{"missing": missingIDs(ids, orders)})
		}

		now := s.now()
		var cancellable []models.MealOrder
		for _, order := range orders {
			if beyondWindow(order.SlotDate, now, s.cfg.CancelLeadDays) {
				cancellable = append(cancellable, order)
				continue
			}
			result.Skipped = append(result.Skipped, order.ID)
		}
		if len(cancellable) == 0 {
			return pkgerrors.New(pkgerrors.CodeWindowClosed, "cancellation window closed").
				WithDetails(map[string]any{"lead_days": s.cfg.CancelLeadDays})
		}

		if _, err := s.balances.WithTx(tx).Lock(ctx, actor.UserID); err != nil {
			return notFound(err, "user not found", "lock user")
		}
		canceledIDs := make([]uuid.UUID, 0, len(cancellable))
		for _, order := range cancellable {
			if err := s.refund(ctx, tx, actor, actor.UserID, order, cancelReasonUser); err != nil {
				return err
			}
			canceledIDs = append(canceledIDs, order.ID)
			result.Refunded = result.Refunded.Add(order.ChargedAmount)
		}
		if err := repo.DeleteOrders(ctx, canceledIDs); err != nil {
			return dependency(err, "delete meal orders")
		}
		result.Canceled = canceledIDs
		return nil
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"canceled": len(result.Canceled),
		"skipped":  len(result.Skipped),
		"refunded": result.Refunded.StringFixed(2),
	})
	s.logg.Info(logCtx, "meal_order.canceled")
	return result, nil
}

// ListOrders returns the caller's orders, newest sitting first.
func (s *service) ListOrders(ctx context.Context, actor auth.Actor) ([]models.MealOrder, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	profile, err := s.repo.FindProfileByUserID(ctx, actor.UserID)
	if err != nil {
		if db.IsNotFound(err) {
			return []models.MealOrder{}, nil
		}
		return nil, dependency(err, "load payment profile")
	}
	orders, err := s.repo.ListProfileOrders(ctx, profile.ID)
	if err != nil {
		return nil, dependency(err, "list meal orders")
	}
	return orders, nil
}

type itemError struct {
	index int
	err   error
}

func (e itemError) Error() string {
	return fmt.Sprintf("order %d: %v", e.index, e.err)
}

func (e itemError) Unwrap() error {
	return e.err
}

// batchError surfaces the first failure's code. Batches also list every
// failing item in the details.
func batchError(failures error, batch bool) error {
	errs := multierr.Errors(failures)
	first := errs[0].(itemError)
	if !batch {
		return first.err
	}

	typed := pkgerrors.As(first.err)
	if typed == nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, failures, "validate orders")
	}
	items := make([]ItemFailure, 0, len(errs))
	for _, err := range errs {
		item := err.(itemError)
		failure := ItemFailure{Index: item.index, Code: pkgerrors.CodeInternal, Message: item.err.Error()}
		if t := pkgerrors.As(item.err); t != nil {
			failure.Code = t.Code()
			failure.Message = t.Message()
		}
		items = append(items, failure)
	}
	return pkgerrors.New(typed.Code(), typed.Message()).WithDetails(map[string]any{"failures": items})
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func missingIDs(requested []uuid.UUID, found []models.MealOrder) []uuid.UUID {
	present := make(map[uuid.UUID]struct{}, len(found))
	for _, order := range found {
		present[order.ID] = struct{}{}
	}
	var missing []uuid.UUID
	for _, id := range requested {
		if _, ok := present[id]; !ok {
			missing = append(missing, id)
		}
	}
	return missing
}
