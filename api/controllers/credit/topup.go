package credit

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/teamhub-backend/api/middleware"
	"github.com/angelmondragon/teamhub-backend/api/responses"
	"github.com/angelmondragon/teamhub-backend/api/validators"
	"github.com/angelmondragon/teamhub-backend/internal/topups"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
	"github.com/angelmondragon/teamhub-backend/pkg/pagination"
)

type createTopUpRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=255"`
	DocumentRef *string         `json:"document_ref" validate:"omitempty,max=512"`
}

type settleTopUpRequest struct {
	Status enums.LedgerEntryStatus `json:"status"`
}

// CreateTopUp records a top-up request for the caller.
func CreateTopUp(svc topups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createTopUpRequest
		check := func(keys []string) error {
			return topups.CheckFields(actor.IsSuperuser, topups.ActionCreate, keys)
		}
		if err := validators.DecodeJSONBodyChecked(r, &req, check); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Create(r.Context(), actor, topups.CreateInput{
			Amount:      req.Amount,
			Description: validators.SanitizeString(req.Description, maxDescriptionLen),
			DocumentRef: req.DocumentRef,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, entry)
	}
}

// SettleTopUp accepts or rejects a pending top-up.
func SettleTopUp(svc topups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entryID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "topupId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid topup id"))
			return
		}

		var req settleTopUpRequest
		check := func(keys []string) error {
			return topups.CheckFields(actor.IsSuperuser, topups.ActionSettle, keys)
		}
		if err := validators.DecodeJSONBodyChecked(r, &req, check); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Settle(r.Context(), actor, topups.SettleInput{EntryID: entryID, Status: req.Status})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// ListTopUps pages through top-ups; non-administrators only see their own.
func ListTopUps(svc topups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		params, err := parseListParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.List(r.Context(), actor, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// TopUpInstructions returns the card details to pay into plus the caller balance.
func TopUpInstructions(svc topups.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "topup service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		info, err := svc.Instructions(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, info)
	}
}

func parseListParams(r *http.Request) (topups.ListParams, error) {
	limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
	if err != nil {
		return topups.ListParams{}, err
	}
	params := topups.ListParams{
		Search: validators.SanitizeString(r.URL.Query().Get("search"), maxDescriptionLen),
		Params: pagination.Params{
			Limit:  limit,
			Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
		},
	}

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status := enums.LedgerEntryStatus(strings.ToLower(raw))
		if !status.IsValid() {
			return topups.ListParams{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter").
				WithDetails(map[string]any{"field": "status"})
		}
		params.Status = &status
	}

	if params.CreatedFrom, err = validators.ParseQueryTime(r, "created_from"); err != nil {
		return topups.ListParams{}, err
	}
	if params.CreatedTo, err = validators.ParseQueryTime(r, "created_to"); err != nil {
		return topups.ListParams{}, err
	}
	return params, nil
}
