package credit

import (
	"net/http"

	"github.com/angelmondragon/teamhub-backend/api/middleware"
	"github.com/angelmondragon/teamhub-backend/api/responses"
	"github.com/angelmondragon/teamhub-backend/internal/reporting"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
)

// Summary reports balance and ledger aggregates scoped to the caller.
func Summary(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reporting service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		summary, err := svc.Summary(r.Context(), actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, summary)
	}
}
