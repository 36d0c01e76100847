package menu

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
)

// Service manages the food and side catalog that meal slots draw from.
// Changing a price never touches existing slots; they keep their snapshot.
type Service interface {
	List(ctx context.Context, kind *enums.MenuItemKind) ([]models.MenuItem, error)
	Get(ctx context.Context, id uuid.UUID) (*models.MenuItem, error)
	Create(ctx context.Context, actor auth.Actor, input CreateItemInput) (*models.MenuItem, error)
	Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateItemInput) (*models.MenuItem, error)
}

type CreateItemInput struct {
	Name        string
	Description string
	Kind        enums.MenuItemKind
	Price       decimal.Decimal
	MaxQuantity int
}

// UpdateItemInput applies only the non-nil fields.
type UpdateItemInput struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	MaxQuantity *int
}

type service struct {
	repo Repository
}

func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context, kind *enums.MenuItemKind) ([]models.MenuItem, error) {
	if kind != nil && !kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid menu item kind")
	}
	items, err := s.repo.List(ctx, kind)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list menu items")
	}
	return items, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.MenuItem, error) {
	item, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapNotFound(err)
	}
	return item, nil
}

func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateItemInput) (*models.MenuItem, error) {
	if !actor.IsSuperuser {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	if !input.Kind.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid menu item kind")
	}
	if err := validatePrice(input.Price); err != nil {
		return nil, err
	}
	maxQuantity := input.MaxQuantity
	if maxQuantity == 0 {
		maxQuantity = 1
	}
	if maxQuantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "max quantity must be at least 1")
	}

	item := &models.MenuItem{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Kind:        input.Kind,
		Price:       input.Price.Round(2),
		MaxQuantity: maxQuantity,
	}
	if err := s.repo.Create(ctx, item); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create menu item")
	}
	return item, nil
}

func (s *service) Update(ctx context.Context, actor auth.Actor, id uuid.UUID, input UpdateItemInput) (*models.MenuItem, error) {
	if !actor.IsSuperuser {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required")
	}

	updates := map[string]any{}
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
		}
		updates["name"] = name
	}
	if input.Description != nil {
		updates["description"] = strings.TrimSpace(*input.Description)
	}
	if input.Price != nil {
		if err := validatePrice(*input.Price); err != nil {
			return nil, err
		}
		updates["price"] = input.Price.Round(2)
	}
	if input.MaxQuantity != nil {
		if *input.MaxQuantity < 1 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "max quantity must be at least 1")
		}
		updates["max_quantity"] = *input.MaxQuantity
	}
	if len(updates) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "no fields to update")
	}

	if err := s.repo.Update(ctx, id, updates); err != nil {
		return nil, mapNotFound(err)
	}
	return s.Get(ctx, id)
}

func validatePrice(price decimal.Decimal) error {
	if price.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "price cannot be negative")
	}
	return nil
}

func mapNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "menu item not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load menu item")
}
