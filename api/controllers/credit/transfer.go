package credit

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/teamhub-backend/api/middleware"
	"github.com/angelmondragon/teamhub-backend/api/responses"
	"github.com/angelmondragon/teamhub-backend/api/validators"
	"github.com/angelmondragon/teamhub-backend/internal/transfers"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
)

const maxDescriptionLen = 255

type transferRequest struct {
	ReceiverUsername string          `json:"receiver_username"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description" validate:"max=255"`
}

type checkDestinationRequest struct {
	ReceiverUsername string `json:"receiver_username"`
}

// Transfer moves credit from the caller to the named receiver.
func Transfer(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req transferRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		entry, err := svc.Transfer(r.Context(), actor, transfers.TransferInput{
			ReceiverUsername: req.ReceiverUsername,
			Amount:           req.Amount,
			Description:      validators.SanitizeString(req.Description, maxDescriptionLen),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, entry)
	}
}

// CheckDestination resolves the receiver without moving any credit.
func CheckDestination(svc transfers.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "transfer service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req checkDestinationRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		dest, err := svc.CheckDestination(r.Context(), actor, req.ReceiverUsername)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, dest)
	}
}
