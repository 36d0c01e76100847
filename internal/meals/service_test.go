package meals

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/internal/balance"
	"github.com/angelmondragon/teamhub-backend/internal/ledger"
	"github.com/angelmondragon/teamhub-backend/internal/menu"
	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/config"
	"github.com/angelmondragon/teamhub-backend/pkg/db/dbtest"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox"
)

var baseNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type harness struct {
	conn  *gorm.DB
	svc   *service
	clock time.Time
	admin auth.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	conn := dbtest.Open(t)
	entries, err := ledger.NewService(ledger.NewRepository(conn), nil)
	require.NoError(t, err)
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})

	built, err := NewService(
		NewRepository(conn),
		menu.NewRepository(conn),
		dbtest.Client(conn),
		balance.NewAccessor(conn),
		entries,
		outbox.NewService(outbox.NewRepository(conn), logg),
		config.MealsConfig{AdminLeadDays: 2, CancelLeadDays: 1},
		logg,
	)
	require.NoError(t, err)

	h := &harness{conn: conn, svc: built.(*service), clock: baseNow}
	h.svc.now = func() time.Time { return h.clock }
	h.admin = actorFor(dbtest.SeedUser(t, conn, "root", "0", true))
	return h
}

func actorFor(user models.User) auth.Actor {
	return auth.Actor{UserID: user.ID, Username: user.Username, IsSuperuser: user.IsSuperuser}
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func day(offset int) time.Time {
	return DateOnly(baseNow).AddDate(0, 0, offset)
}

func (h *harness) user(t *testing.T, name, balance string) auth.Actor {
	t.Helper()
	return actorFor(dbtest.SeedUser(t, h.conn, name, balance, false))
}

func (h *harness) item(t *testing.T, name string, kind enums.MenuItemKind, price string, limit int) models.MenuItem {
	t.Helper()
	item := models.MenuItem{Name: name, Kind: kind, Price: dec(price), MaxQuantity: limit}
	require.NoError(t, h.conn.Create(&item).Error)
	return item
}

func (h *harness) slot(t *testing.T, date time.Time, meal enums.MealType, food, side *models.MenuItem) *models.MealSlot {
	t.Helper()
	input := CreateSlotInput{Date: date, MealType: meal}
	if food != nil {
		input.FoodID = &food.ID
	}
	if side != nil {
		input.SideID = &side.ID
	}
	slot, err := h.svc.CreateSlot(context.Background(), h.admin, input)
	require.NoError(t, err)
	return slot
}

func (h *harness) orderCount(t *testing.T) int64 {
	t.Helper()
	var count int64
	require.NoError(t, h.conn.Model(&models.MealOrder{}).Count(&count).Error)
	return count
}

func TestCreateSlotSnapshotsPrice(t *testing.T) {
	h := newHarness(t)
	food := h.item(t, "Kebab", enums.MenuItemKindFood, "12.00", 2)
	side := h.item(t, "Salad", enums.MenuItemKindSide, "3.50", 1)

	slot := h.slot(t, day(5), enums.MealTypeLunch, &food, &side)
	assert.True(t, slot.Price.Equal(dec("15.5")))
	assert.Equal(t, day(5), slot.Date)

	require.NoError(t, h.conn.Model(&models.MenuItem{}).Where("id = ?", food.ID).Update("price", dec("20")).Error)

	reloaded, err := h.svc.repo.FindSlot(context.Background(), slot.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.Price.Equal(dec("15.5")))
}

func TestCreateSlotValidation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	food := h.item(t, "Kebab", enums.MenuItemKindFood, "12.00", 2)
	side := h.item(t, "Salad", enums.MenuItemKindSide, "3.50", 1)
	carol := h.user(t, "carol", "0")

	_, err := h.svc.CreateSlot(ctx, carol, CreateSlotInput{Date: day(5), MealType: enums.MealTypeLunch, FoodID: &food.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))

	_, err = h.svc.CreateSlot(ctx, h.admin, CreateSlotInput{Date: day(2), MealType: enums.MealTypeLunch, FoodID: &food.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDateIsPast))

	_, err = h.svc.CreateSlot(ctx, h.admin, CreateSlotInput{Date: day(5), MealType: enums.MealTypeLunch})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.CreateSlot(ctx, h.admin, CreateSlotInput{Date: day(5), MealType: enums.MealTypeLunch, FoodID: &side.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	missing := uuid.New()
	_, err = h.svc.CreateSlot(ctx, h.admin, CreateSlotInput{Date: day(5), MealType: enums.MealTypeLunch, FoodID: &missing})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	h.slot(t, day(5), enums.MealTypeLunch, &food, nil)
	_, err = h.svc.CreateSlot(ctx, h.admin, CreateSlotInput{Date: day(5), MealType: enums.MealTypeLunch, FoodID: &food.ID, SideID: &side.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestOrderAndCancelRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	carol := h.user(t, "carol", "1000")
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "300", 3)
	steak := h.item(t, "Steak", enums.MenuItemKindFood, "500", 1)
	lunch := h.slot(t, day(5), enums.MealTypeLunch, &stew, nil)
	dinner := h.slot(t, day(5), enums.MealTypeDinner, &steak, nil)

	order, err := h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: lunch.ID, Quantity: 2})
	require.NoError(t, err)
	assert.True(t, order.ChargedAmount.Equal(dec("600")))
	assert.Equal(t, enums.PaymentModeDeductFromCredit, order.PaymentMode)
	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("400")))

	_, err = h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: dinner.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))
	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("400")))

	result, err := h.svc.CancelOrders(ctx, carol, []uuid.UUID{order.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{order.ID}, result.Canceled)
	assert.Empty(t, result.Skipped)
	assert.True(t, result.Refunded.Equal(dec("600")))
	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("1000")))

	assert.EqualValues(t, 1, dbtest.CountEntries(t, h.conn, "kind = ?", enums.LedgerEntryKindOrderDebit))
	assert.EqualValues(t, 1, dbtest.CountEntries(t, h.conn, "kind = ?", enums.LedgerEntryKindOrderCredit))
	assert.Zero(t, h.orderCount(t))
}

func TestRefundUsesChargedSnapshot(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	carol := h.user(t, "carol", "100")
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "30", 3)
	lunch := h.slot(t, day(5), enums.MealTypeLunch, &stew, nil)

	order, err := h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: lunch.ID})
	require.NoError(t, err)
	require.NoError(t, h.conn.Model(&models.MealSlot{}).Where("id = ?", lunch.ID).Update("price", dec("45")).Error)

	_, err = h.svc.CancelOrders(ctx, carol, []uuid.UUID{order.ID})
	require.NoError(t, err)
	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("100")))
}

func TestCreateOrderLimitExceeded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	carol := h.user(t, "carol", "1000")
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "10", 2)
	soup := h.item(t, "Soup", enums.MenuItemKindSide, "5", 1)
	lunch := h.slot(t, day(5), enums.MealTypeLunch, &stew, &soup)
	sideOnly := h.slot(t, day(6), enums.MealTypeDinner, nil, &soup)

	_, err := h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: lunch.ID, Quantity: 3})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeLimitExceeded))

	_, err = h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: sideOnly.ID, Quantity: 2})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeLimitExceeded))

	_, err = h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: lunch.ID, Quantity: -1})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	_, err = h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: uuid.New()})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	order, err := h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: lunch.ID, Quantity: 2})
	require.NoError(t, err)
	assert.True(t, order.ChargedAmount.Equal(dec("30")))
	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("970")))
}

func TestDuplicateSittingRejected(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	carol := h.user(t, "carol", "1000")
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "10", 2)
	rice := h.item(t, "Rice", enums.MenuItemKindFood, "8", 2)
	first := h.slot(t, day(5), enums.MealTypeLunch, &stew, nil)
	second := h.slot(t, day(5), enums.MealTypeLunch, &rice, nil)

	_, err := h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: first.ID})
	require.NoError(t, err)

	_, err = h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: second.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateMealSlot))
	_, err = h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: first.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateMealSlot))

	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("990")))
	assert.EqualValues(t, 1, h.orderCount(t))
}

func TestCreateOrdersBatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	carol := h.user(t, "carol", "100")
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "20", 3)
	lunch := h.slot(t, day(5), enums.MealTypeLunch, &stew, nil)
	dinner := h.slot(t, day(5), enums.MealTypeDinner, &stew, nil)
	tomorrow := h.slot(t, day(6), enums.MealTypeLunch, &stew, nil)

	orders, err := h.svc.CreateOrders(ctx, carol, []CreateOrderInput{
		{MealSlotID: lunch.ID, Quantity: 2},
		{MealSlotID: dinner.ID},
	})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("40")))

	var entries []models.LedgerEntry
	require.NoError(t, h.conn.Where("kind = ?", enums.LedgerEntryKindOrderDebit).Find(&entries).Error)
	require.Len(t, entries, 2)
	require.NotNil(t, entries[0].BatchID)
	require.NotNil(t, entries[1].BatchID)
	assert.Equal(t, *entries[0].BatchID, *entries[1].BatchID)

	_, err = h.svc.CreateOrders(ctx, carol, []CreateOrderInput{{MealSlotID: tomorrow.ID, Quantity: 3}})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInsufficientFunds))
	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("40")))
	assert.EqualValues(t, 2, h.orderCount(t))

	_, err = h.svc.CreateOrders(ctx, carol, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))
}

func TestCreateOrdersBatchIsAllOrNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	carol := h.user(t, "carol", "100")
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "20", 1)
	rice := h.item(t, "Rice", enums.MenuItemKindFood, "10", 1)
	lunch := h.slot(t, day(5), enums.MealTypeLunch, &stew, nil)
	lunchAlt := h.slot(t, day(5), enums.MealTypeLunch, &rice, nil)
	dinner := h.slot(t, day(5), enums.MealTypeDinner, &stew, nil)

	_, err := h.svc.CreateOrders(ctx, carol, []CreateOrderInput{
		{MealSlotID: dinner.ID},
		{MealSlotID: lunch.ID},
		{MealSlotID: lunchAlt.ID},
		{MealSlotID: dinner.ID, Quantity: 5},
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDuplicateMealSlot))

	details, ok := pkgerrors.As(err).Details().(map[string]any)
	require.True(t, ok)
	failures, ok := details["failures"].([]ItemFailure)
	require.True(t, ok)
	require.Len(t, failures, 2)
	assert.Equal(t, 2, failures[0].Index)
	assert.Equal(t, pkgerrors.CodeDuplicateMealSlot, failures[0].Code)
	assert.Equal(t, 3, failures[1].Index)
	assert.Equal(t, pkgerrors.CodeLimitExceeded, failures[1].Code)

	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("100")))
	assert.Zero(t, h.orderCount(t))
	assert.Zero(t, dbtest.CountEntries(t, h.conn, ""))
}

func TestConcurrentBatchesCannotDoubleBookSitting(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	carol := h.user(t, "carol", "100")
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "20", 1)
	lunch := h.slot(t, day(5), enums.MealTypeLunch, &stew, nil)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok        int
		duplicate int
	)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.svc.CreateOrders(ctx, carol, []CreateOrderInput{{MealSlotID: lunch.ID}})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				ok++
			} else if pkgerrors.IsCode(err, pkgerrors.CodeDuplicateMealSlot) {
				duplicate++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, ok)
	assert.Equal(t, 3, duplicate)
	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("80")))
}

func TestPaymentModeResolution(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	carol := h.user(t, "carol", "100")
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "20", 1)
	lunch := h.slot(t, day(5), enums.MealTypeLunch, &stew, nil)

	_, err := h.svc.UpdateProfile(ctx, carol, UpdateProfileInput{DefaultPayment: enums.PaymentModeAskEachTime})
	require.NoError(t, err)

	_, err = h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: lunch.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	gateway := enums.PaymentModeGateway
	_, err = h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: lunch.ID, PaymentMode: &gateway})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	credit := enums.PaymentModeDeductFromCredit
	order, err := h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: lunch.ID, PaymentMode: &credit})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentModeDeductFromCredit, order.PaymentMode)
}

func TestCancelOrdersRules(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	carol := h.user(t, "carol", "100")
	dave := h.user(t, "dave", "100")
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "10", 1)
	soon := h.slot(t, day(3), enums.MealTypeLunch, &stew, nil)
	later := h.slot(t, day(6), enums.MealTypeLunch, &stew, nil)

	soonOrder, err := h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: soon.ID})
	require.NoError(t, err)
	laterOrder, err := h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: later.ID})
	require.NoError(t, err)
	daveOrder, err := h.svc.CreateOrder(ctx, dave, CreateOrderInput{MealSlotID: later.ID})
	require.NoError(t, err)

	_, err = h.svc.CancelOrders(ctx, carol, nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))

	_, err = h.svc.CancelOrders(ctx, carol, []uuid.UUID{laterOrder.ID, daveOrder.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	// Two days later the first sitting is inside the one-day cancel window.
	h.clock = baseNow.AddDate(0, 0, 2)
	_, err = h.svc.CancelOrders(ctx, carol, []uuid.UUID{soonOrder.ID})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeWindowClosed))
	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("80")))

	result, err := h.svc.CancelOrders(ctx, carol, []uuid.UUID{soonOrder.ID, laterOrder.ID, laterOrder.ID})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{laterOrder.ID}, result.Canceled)
	assert.Equal(t, []uuid.UUID{soonOrder.ID}, result.Skipped)
	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("90")))
	assert.True(t, dbtest.Balance(t, h.conn, dave.UserID).Equal(dec("90")))
	assert.EqualValues(t, 2, h.orderCount(t))
}

func TestDeleteSlotRefundsEveryOrder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "15", 3)
	lunch := h.slot(t, day(6), enums.MealTypeLunch, &stew, nil)

	users := []auth.Actor{h.user(t, "carol", "100"), h.user(t, "dave", "100"), h.user(t, "erin", "100")}
	for i, user := range users {
		_, err := h.svc.CreateOrder(ctx, user, CreateOrderInput{MealSlotID: lunch.ID, Quantity: i + 1})
		require.NoError(t, err)
	}
	assert.True(t, dbtest.Balance(t, h.conn, users[2].UserID).Equal(dec("55")))

	result, err := h.svc.DeleteSlot(ctx, h.admin, lunch.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, result.RefundedCount)
	assert.True(t, result.RefundedTotal.Equal(dec("90")))

	for _, user := range users {
		assert.True(t, dbtest.Balance(t, h.conn, user.UserID).Equal(dec("100")))
	}
	assert.EqualValues(t, 3, dbtest.CountEntries(t, h.conn, "kind = ?", enums.LedgerEntryKindOrderCredit))
	assert.Zero(t, h.orderCount(t))

	_, err = h.svc.repo.FindSlot(ctx, lunch.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestDeleteSlotInsideWindowRefundsNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	carol := h.user(t, "carol", "100")
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "15", 3)
	lunch := h.slot(t, day(4), enums.MealTypeLunch, &stew, nil)
	_, err := h.svc.CreateOrder(ctx, carol, CreateOrderInput{MealSlotID: lunch.ID})
	require.NoError(t, err)

	h.clock = baseNow.AddDate(0, 0, 2)
	_, err = h.svc.DeleteSlot(ctx, h.admin, lunch.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDateIsPast))
	assert.True(t, dbtest.Balance(t, h.conn, carol.UserID).Equal(dec("85")))
	assert.EqualValues(t, 1, h.orderCount(t))
	assert.Zero(t, dbtest.CountEntries(t, h.conn, "kind = ?", enums.LedgerEntryKindOrderCredit))

	_, err = h.svc.DeleteSlot(ctx, carol, lunch.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeForbidden))
	_, err = h.svc.DeleteSlot(ctx, h.admin, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestProfileBillsAndListings(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	carol := h.user(t, "carol", "-42.50")
	dave := h.user(t, "dave", "30")
	stew := h.item(t, "Stew", enums.MenuItemKindFood, "10", 1)
	lunch := h.slot(t, day(5), enums.MealTypeLunch, &stew, nil)
	h.slot(t, day(7), enums.MealTypeDinner, &stew, nil)

	profile, err := h.svc.GetProfile(ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentModeDeductFromCredit, profile.DefaultPayment)
	assert.True(t, profile.Bills.Debt.Equal(dec("42.5")))
	assert.True(t, profile.Bills.Credit.IsZero())
	assert.Empty(t, profile.Orders)

	again, err := h.svc.GetProfile(ctx, carol)
	require.NoError(t, err)
	assert.Equal(t, profile.ID, again.ID)

	_, err = h.svc.CreateOrder(ctx, dave, CreateOrderInput{MealSlotID: lunch.ID})
	require.NoError(t, err)
	daveProfile, err := h.svc.UpdateProfile(ctx, dave, UpdateProfileInput{DefaultPayment: enums.PaymentModeAskEachTime})
	require.NoError(t, err)
	assert.Equal(t, enums.PaymentModeAskEachTime, daveProfile.DefaultPayment)
	assert.True(t, daveProfile.Bills.Credit.Equal(dec("20")))
	require.Len(t, daveProfile.Orders, 1)

	_, err = h.svc.UpdateProfile(ctx, dave, UpdateProfileInput{DefaultPayment: "cash"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	orders, err := h.svc.ListOrders(ctx, dave)
	require.NoError(t, err)
	require.Len(t, orders, 1)
	require.NotNil(t, orders[0].MealSlot)
	assert.Equal(t, lunch.ID, orders[0].MealSlot.ID)

	none, err := h.svc.ListOrders(ctx, h.user(t, "erin", "0"))
	require.NoError(t, err)
	assert.Empty(t, none)

	slots, err := h.svc.ListUpcomingSlots(ctx)
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, lunch.ID, slots[0].ID)
	require.NotNil(t, slots[0].Food)
	assert.Equal(t, "Stew", slots[0].Food.Name)

	h.clock = baseNow.AddDate(0, 0, 6)
	slots, err = h.svc.ListUpcomingSlots(ctx)
	require.NoError(t, err)
	assert.Len(t, slots, 1)
}

func TestParseOrderIDs(t *testing.T) {
	id := uuid.New()
	ids, err := ParseOrderIDs([]string{" " + id.String() + " "})
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{id}, ids)

	_, err = ParseOrderIDs(nil)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))
	_, err = ParseOrderIDs([]string{id.String(), "not-an-id"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeInvalidInput))
}
