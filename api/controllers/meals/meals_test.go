package meals

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/teamhub-backend/api/middleware"
	internalmeals "github.com/angelmondragon/teamhub-backend/internal/meals"
	"github.com/angelmondragon/teamhub-backend/internal/menu"
	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
)

type testMealsService struct {
	internalmeals.Service

	createSlotFn   func(ctx context.Context, actor auth.Actor, input internalmeals.CreateSlotInput) (*models.MealSlot, error)
	deleteSlotFn   func(ctx context.Context, actor auth.Actor, slotID uuid.UUID) (*internalmeals.DeleteSlotResult, error)
	createOrderFn  func(ctx context.Context, actor auth.Actor, input internalmeals.CreateOrderInput) (*models.MealOrder, error)
	createOrdersFn func(ctx context.Context, actor auth.Actor, inputs []internalmeals.CreateOrderInput) ([]models.MealOrder, error)
	cancelFn       func(ctx context.Context, actor auth.Actor, ids []uuid.UUID) (*internalmeals.CancelResult, error)
	updateFn       func(ctx context.Context, actor auth.Actor, input internalmeals.UpdateProfileInput) (*internalmeals.ProfileView, error)
}

func (s *testMealsService) CreateSlot(ctx context.Context, actor auth.Actor, input internalmeals.CreateSlotInput) (*models.MealSlot, error) {
	return s.createSlotFn(ctx, actor, input)
}

func (s *testMealsService) DeleteSlot(ctx context.Context, actor auth.Actor, slotID uuid.UUID) (*internalmeals.DeleteSlotResult, error) {
	return s.deleteSlotFn(ctx, actor, slotID)
}

func (s *testMealsService) CreateOrder(ctx context.Context, actor auth.Actor, input internalmeals.CreateOrderInput) (*models.MealOrder, error) {
	return s.createOrderFn(ctx, actor, input)
}

func (s *testMealsService) CreateOrders(ctx context.Context, actor auth.Actor, inputs []internalmeals.CreateOrderInput) ([]models.MealOrder, error) {
	return s.createOrdersFn(ctx, actor, inputs)
}

func (s *testMealsService) CancelOrders(ctx context.Context, actor auth.Actor, ids []uuid.UUID) (*internalmeals.CancelResult, error) {
	return s.cancelFn(ctx, actor, ids)
}

func (s *testMealsService) UpdateProfile(ctx context.Context, actor auth.Actor, input internalmeals.UpdateProfileInput) (*internalmeals.ProfileView, error) {
	return s.updateFn(ctx, actor, input)
}

type testMenuService struct {
	menu.Service

	listFn   func(ctx context.Context, kind *enums.MenuItemKind) ([]models.MenuItem, error)
	createFn func(ctx context.Context, actor auth.Actor, input menu.CreateItemInput) (*models.MenuItem, error)
}

func (s *testMenuService) List(ctx context.Context, kind *enums.MenuItemKind) ([]models.MenuItem, error) {
	return s.listFn(ctx, kind)
}

func (s *testMenuService) Create(ctx context.Context, actor auth.Actor, input menu.CreateItemInput) (*models.MenuItem, error) {
	return s.createFn(ctx, actor, input)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func asUser(req *http.Request, admin bool) *http.Request {
	actor := auth.Actor{UserID: uuid.New(), Username: "alice", IsSuperuser: admin}
	return req.WithContext(middleware.WithActor(req.Context(), actor))
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestCreateSlotParsesDate(t *testing.T) {
	foodID := uuid.New()
	var got internalmeals.CreateSlotInput
	svc := &testMealsService{
		createSlotFn: func(ctx context.Context, actor auth.Actor, input internalmeals.CreateSlotInput) (*models.MealSlot, error) {
			got = input
			return &models.MealSlot{ID: uuid.New(), Date: input.Date, MealType: input.MealType}, nil
		},
	}

	body := `{"date":"2026-03-20","meal_type":"LUNCH","food_id":"` + foodID.String() + `"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/meals/slots", strings.NewReader(body)), true)
	resp := httptest.NewRecorder()
	CreateSlot(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), got.Date)
	assert.Equal(t, enums.MealTypeLunch, got.MealType)
	require.NotNil(t, got.FoodID)
	assert.Equal(t, foodID, *got.FoodID)
	assert.Nil(t, got.SideID)
}

func TestCreateSlotRejectsBadDate(t *testing.T) {
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/meals/slots", strings.NewReader(`{"date":"20/03/2026","meal_type":"lunch"}`)), true)
	resp := httptest.NewRecorder()
	CreateSlot(&testMealsService{}, testLogger())(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestDeleteSlotNoContent(t *testing.T) {
	slotID := uuid.New()
	svc := &testMealsService{
		deleteSlotFn: func(ctx context.Context, actor auth.Actor, id uuid.UUID) (*internalmeals.DeleteSlotResult, error) {
			return &internalmeals.DeleteSlotResult{SlotID: id, RefundedCount: 2, RefundedTotal: decimal.NewFromInt(600)}, nil
		},
	}

	req := withURLParam(asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/meals/slots/"+slotID.String(), nil), true), "slotId", slotID.String())
	resp := httptest.NewRecorder()
	DeleteSlot(svc, testLogger())(resp, req)

	assert.Equal(t, http.StatusNoContent, resp.Code)
	assert.Empty(t, resp.Body.String())
}

func TestCreateOrderMapsPaymentMode(t *testing.T) {
	slotID := uuid.New()
	var got internalmeals.CreateOrderInput
	svc := &testMealsService{
		createOrderFn: func(ctx context.Context, actor auth.Actor, input internalmeals.CreateOrderInput) (*models.MealOrder, error) {
			got = input
			return &models.MealOrder{ID: uuid.New(), MealSlotID: input.MealSlotID}, nil
		},
	}

	body := `{"meal_slot_id":"` + slotID.String() + `","quantity":2,"payment_mode":"DFC"}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/meals/orders", strings.NewReader(body)), false)
	resp := httptest.NewRecorder()
	CreateOrder(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, slotID, got.MealSlotID)
	assert.Equal(t, 2, got.Quantity)
	require.NotNil(t, got.PaymentMode)
	assert.Equal(t, enums.PaymentModeDeductFromCredit, *got.PaymentMode)
}

func TestCreateOrdersBatchFailureDetails(t *testing.T) {
	svc := &testMealsService{
		createOrdersFn: func(ctx context.Context, actor auth.Actor, inputs []internalmeals.CreateOrderInput) ([]models.MealOrder, error) {
			require.Len(t, inputs, 2)
			return nil, pkgerrors.New(pkgerrors.CodeLimitExceeded, "quantity exceeds item limit").
				WithDetails(map[string]any{"failures": []internalmeals.ItemFailure{{Index: 1, Code: pkgerrors.CodeLimitExceeded, Message: "quantity exceeds item limit"}}})
		},
	}

	body := `{"orders":[{"meal_slot_id":"` + uuid.NewString() + `"},{"meal_slot_id":"` + uuid.NewString() + `","quantity":9}]}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/meals/orders/bulk", strings.NewReader(body)), false)
	resp := httptest.NewRecorder()
	CreateOrders(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	var payload struct {
		Error struct {
			Code    string `json:"code"`
			Details struct {
				Failures []internalmeals.ItemFailure `json:"failures"`
			} `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, string(pkgerrors.CodeLimitExceeded), payload.Error.Code)
	require.Len(t, payload.Error.Details.Failures, 1)
	assert.Equal(t, 1, payload.Error.Details.Failures[0].Index)
}

func TestCreateOrdersRejectsEmptyBatch(t *testing.T) {
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/meals/orders/bulk", strings.NewReader(`{"orders":[]}`)), false)
	resp := httptest.NewRecorder()
	CreateOrders(&testMealsService{}, testLogger())(resp, req)
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCancelOrdersParsesIDs(t *testing.T) {
	first, second := uuid.New(), uuid.New()
	svc := &testMealsService{
		cancelFn: func(ctx context.Context, actor auth.Actor, ids []uuid.UUID) (*internalmeals.CancelResult, error) {
			return &internalmeals.CancelResult{Canceled: ids[:1], Skipped: ids[1:], Refunded: decimal.NewFromInt(300)}, nil
		},
	}

	body := `{"ids":["` + first.String() + `","` + second.String() + `"]}`
	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/meals/orders/bulk-delete", strings.NewReader(body)), false)
	resp := httptest.NewRecorder()
	CancelOrders(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	var payload struct {
		Data internalmeals.CancelResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	assert.Equal(t, []uuid.UUID{first}, payload.Data.Canceled)
	assert.Equal(t, []uuid.UUID{second}, payload.Data.Skipped)
}

func TestCancelOrdersInvalidInput(t *testing.T) {
	cases := map[string]string{
		"empty list": `{"ids":[]}`,
		"bad id":     `{"ids":["nope"]}`,
		"missing":    `{}`,
		"null":       `{"ids":null}`,
		"string":     `{"ids":"abc"}`,
		"object":     `{"ids":{"a":1}}`,
		"numbers":    `{"ids":[1,2]}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/meals/orders/bulk-delete", strings.NewReader(body)), false)
			resp := httptest.NewRecorder()
			CancelOrders(&testMealsService{}, testLogger())(resp, req)

			require.Equal(t, http.StatusBadRequest, resp.Code)
			assert.Contains(t, resp.Body.String(), string(pkgerrors.CodeInvalidInput))
		})
	}
}

func TestCancelOrderUsesPathID(t *testing.T) {
	orderID := uuid.New()
	var got []uuid.UUID
	svc := &testMealsService{
		cancelFn: func(ctx context.Context, actor auth.Actor, ids []uuid.UUID) (*internalmeals.CancelResult, error) {
			got = ids
			return &internalmeals.CancelResult{Canceled: ids, Refunded: decimal.Zero}, nil
		},
	}

	req := withURLParam(asUser(httptest.NewRequest(http.MethodDelete, "/api/v1/meals/orders/"+orderID.String(), nil), false), "orderId", orderID.String())
	resp := httptest.NewRecorder()
	CancelOrder(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, []uuid.UUID{orderID}, got)
}

func TestUpdateProfileLowercasesMode(t *testing.T) {
	var got internalmeals.UpdateProfileInput
	svc := &testMealsService{
		updateFn: func(ctx context.Context, actor auth.Actor, input internalmeals.UpdateProfileInput) (*internalmeals.ProfileView, error) {
			got = input
			return &internalmeals.ProfileView{DefaultPayment: input.DefaultPayment}, nil
		},
	}

	req := asUser(httptest.NewRequest(http.MethodPatch, "/api/v1/meals/profile", strings.NewReader(`{"default_payment":"ETQ"}`)), false)
	resp := httptest.NewRecorder()
	UpdateProfile(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, enums.PaymentModeAskEachTime, got.DefaultPayment)
}

func TestListMenuKindFilter(t *testing.T) {
	var got *enums.MenuItemKind
	svc := &testMenuService{
		listFn: func(ctx context.Context, kind *enums.MenuItemKind) ([]models.MenuItem, error) {
			got = kind
			return []models.MenuItem{}, nil
		},
	}

	resp := httptest.NewRecorder()
	ListMenu(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/meals/menu?kind=SIDE", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	require.NotNil(t, got)
	assert.Equal(t, enums.MenuItemKindSide, *got)

	resp = httptest.NewRecorder()
	ListMenu(svc, testLogger())(resp, httptest.NewRequest(http.MethodGet, "/api/v1/meals/menu?kind=dessert", nil))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestCreateMenuItem(t *testing.T) {
	var got menu.CreateItemInput
	svc := &testMenuService{
		createFn: func(ctx context.Context, actor auth.Actor, input menu.CreateItemInput) (*models.MenuItem, error) {
			got = input
			return &models.MenuItem{ID: uuid.New(), Name: input.Name}, nil
		},
	}

	req := asUser(httptest.NewRequest(http.MethodPost, "/api/v1/meals/menu", strings.NewReader(`{"name":" Rice ","kind":"side","price":"40.00","max_quantity":3}`)), true)
	resp := httptest.NewRecorder()
	CreateMenuItem(svc, testLogger())(resp, req)

	require.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, "Rice", got.Name)
	assert.Equal(t, enums.MenuItemKindSide, got.Kind)
	assert.True(t, got.Price.Equal(decimal.NewFromInt(40)))
	assert.Equal(t, 3, got.MaxQuantity)
}
