package meals

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/teamhub-backend/api/middleware"
	"github.com/angelmondragon/teamhub-backend/api/responses"
	"github.com/angelmondragon/teamhub-backend/api/validators"
	internalmeals "github.com/angelmondragon/teamhub-backend/internal/meals"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
)

const maxBulkOrders = 50

type orderRequest struct {
	MealSlotID  uuid.UUID `json:"meal_slot_id" validate:"required"`
	Quantity    int       `json:"quantity" validate:"min=0"`
	PaymentMode *string   `json:"payment_mode"`
}

type bulkOrderRequest struct {
	Orders []orderRequest `json:"orders" validate:"required,min=1,max=50,dive"`
}

type bulkDeleteRequest struct {
	IDs json.RawMessage `json:"ids"`
}

// orderIDs decodes ids lazily so a non-list payload reports INVALID_INPUT
// instead of a generic body validation error.
func (b bulkDeleteRequest) orderIDs() ([]string, error) {
	if len(b.IDs) == 0 {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal(b.IDs, &ids); err != nil {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidInput, "ids must be a list of order identifiers")
	}
	return ids, nil
}

func (o orderRequest) input() internalmeals.CreateOrderInput {
	input := internalmeals.CreateOrderInput{MealSlotID: o.MealSlotID, Quantity: o.Quantity}
	if o.PaymentMode != nil {
		mode := enums.PaymentMode(strings.ToLower(strings.TrimSpace(*o.PaymentMode)))
		input.PaymentMode = &mode
	}
	return input
}

// ListOrders returns the caller's orders, newest sitting first.
func ListOrders(svc internalmeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "meals service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orders, err := svc.ListOrders(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, orders)
	}
}

// CreateOrder places a single order and debits the caller.
func CreateOrder(svc internalmeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "meals service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req orderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.CreateOrder(r.Context(), actor, req.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// CreateOrders places a batch of orders; any failure rejects the whole batch.
func CreateOrders(svc internalmeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "meals service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bulkOrderRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		inputs := make([]internalmeals.CreateOrderInput, 0, len(req.Orders))
		for _, item := range req.Orders {
			inputs = append(inputs, item.input())
		}

		orders, err := svc.CreateOrders(r.Context(), actor, inputs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, orders)
	}
}

// CancelOrders refunds the listed orders still outside the cancellation window.
func CancelOrders(svc internalmeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "meals service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req bulkDeleteRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		raw, err := req.orderIDs()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		ids, err := internalmeals.ParseOrderIDs(raw)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if len(ids) > maxBulkOrders {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInvalidInput, "too many ids").
				WithDetails(map[string]any{"max": maxBulkOrders}))
			return
		}

		result, err := svc.CancelOrders(r.Context(), actor, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// CancelOrder is the single-order form of CancelOrders.
func CancelOrder(svc internalmeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "meals service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ids, err := internalmeals.ParseOrderIDs([]string{chi.URLParam(r, "orderId")})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.CancelOrders(r.Context(), actor, ids)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
