package meals

import (
	"net/http"
	"strings"
	"time"

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

type createSlotRequest struct {
	Date     string     `json:"date" validate:"required,datetime=2006-01-02"`
	MealType string     `json:"meal_type" validate:"required"`
	FoodID   *uuid.UUID `json:"food_id"`
	SideID   *uuid.UUID `json:"side_id"`
}

// ListSlots returns slots from today onwards.
func ListSlots(svc internalmeals.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "meals service unavailable"))
			return
		}
		slots, err := svc.ListUpcomingSlots(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, slots)
	}
}

// CreateSlot schedules a food/side pairing for a future sitting.
func CreateSlot(svc internalmeals.Service, logg *logger.Logger) http.HandlerFunc {
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

		var req createSlotRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		date, err := time.Parse(time.DateOnly, req.Date)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid date"))
			return
		}

		slot, err := svc.CreateSlot(r.Context(), actor, internalmeals.CreateSlotInput{
			Date:     date,
			MealType: enums.MealType(strings.ToLower(strings.TrimSpace(req.MealType))),
			FoodID:   req.FoodID,
			SideID:   req.SideID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, slot)
	}
}

// DeleteSlot refunds every order on the slot and then removes it.
func DeleteSlot(svc internalmeals.Service, logg *logger.Logger) http.HandlerFunc {
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

		slotID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "slotId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid slot id"))
			return
		}

		result, err := svc.DeleteSlot(r.Context(), actor, slotID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if logg != nil {
			ctx := logg.WithFields(r.Context(), map[string]any{
				"slot_id":        result.SlotID.String(),
				"refunded_count": result.RefundedCount,
			})
			logg.Info(ctx, "meal_slot.delete.responded")
		}
		responses.WriteNoContent(w)
	}
}
