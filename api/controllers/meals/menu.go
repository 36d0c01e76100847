package meals

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/teamhub-backend/api/middleware"
	"github.com/angelmondragon/teamhub-backend/api/responses"
	"github.com/angelmondragon/teamhub-backend/api/validators"
	"github.com/angelmondragon/teamhub-backend/internal/menu"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
)

type createMenuItemRequest struct {
	Name        string          `json:"name" validate:"required,max=128"`
	Description string          `json:"description" validate:"max=1024"`
	Kind        string          `json:"kind" validate:"required,oneof=food side"`
	Price       decimal.Decimal `json:"price"`
	MaxQuantity int             `json:"max_quantity" validate:"min=0"`
}

type updateMenuItemRequest struct {
	Name        *string          `json:"name" validate:"omitempty,max=128"`
	Description *string          `json:"description" validate:"omitempty,max=1024"`
	Price       *decimal.Decimal `json:"price"`
	MaxQuantity *int             `json:"max_quantity"`
}

// ListMenu returns the catalog, optionally filtered by ?kind=food|side.
func ListMenu(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}

		var kind *enums.MenuItemKind
		if raw := strings.TrimSpace(r.URL.Query().Get("kind")); raw != "" {
			parsed, err := enums.ParseMenuItemKind(strings.ToLower(raw))
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid kind filter"))
				return
			}
			kind = &parsed
		}

		items, err := svc.List(r.Context(), kind)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

func CreateMenuItem(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var req createMenuItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), actor, menu.CreateItemInput{
			Name:        strings.TrimSpace(req.Name),
			Description: strings.TrimSpace(req.Description),
			Kind:        enums.MenuItemKind(req.Kind),
			Price:       req.Price,
			MaxQuantity: req.MaxQuantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

func UpdateMenuItem(svc menu.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "menu service unavailable"))
			return
		}
		actor, err := middleware.RequireActor(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		itemID, err := uuid.Parse(strings.TrimSpace(chi.URLParam(r, "itemId")))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid menu item id"))
			return
		}

		var req updateMenuItemRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), actor, itemID, menu.UpdateItemInput{
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
			MaxQuantity: req.MaxQuantity,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}
