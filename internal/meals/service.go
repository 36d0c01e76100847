// Package meals schedules meal slots and sells them against user credit.
//
// Every order, cancellation and slot removal moves money, so each one runs
// in a single transaction that also writes the ledger entries explaining the
// change. Locks are taken slots first, then orders, then users.
package meals

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/internal/balance"
	"github.com/angelmondragon/teamhub-backend/internal/ledger"
	"github.com/angelmondragon/teamhub-backend/internal/menu"
	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/config"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service exposes slot administration and self-service ordering.
type Service interface {
	CreateSlot(ctx context.Context, actor auth.Actor, input CreateSlotInput) (*models.MealSlot, error)
	DeleteSlot(ctx context.Context, actor auth.Actor, slotID uuid.UUID) (*DeleteSlotResult, error)
	ListUpcomingSlots(ctx context.Context) ([]models.MealSlot, error)

	CreateOrder(ctx context.Context, actor auth.Actor, input CreateOrderInput) (*models.MealOrder, error)
	CreateOrders(ctx context.Context, actor auth.Actor, inputs []CreateOrderInput) ([]models.MealOrder, error)
	CancelOrders(ctx context.Context, actor auth.Actor, orderIDs []uuid.UUID) (*CancelResult, error)
	ListOrders(ctx context.Context, actor auth.Actor) ([]models.MealOrder, error)

	GetProfile(ctx context.Context, actor auth.Actor) (*ProfileView, error)
	UpdateProfile(ctx context.Context, actor auth.Actor, input UpdateProfileInput) (*ProfileView, error)
}

type service struct {
	repo     Repository
	menu     menu.Repository
	tx       txRunner
	balances balance.Accessor
	ledger   ledger.Service
	outbox   outboxPublisher
	cfg      config.MealsConfig
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the meal order service.
func NewService(
	repo Repository,
	catalog menu.Repository,
	tx txRunner,
	balances balance.Accessor,
	entries ledger.Service,
	outbox outboxPublisher,
	cfg config.MealsConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("meals repository required")
	}
	if catalog == nil {
		return nil, fmt.Errorf("menu repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance accessor required")
	}
	if entries == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		menu:     catalog,
		tx:       tx,
		balances: balances,
		ledger:   entries,
		outbox:   outbox,
		cfg:      cfg,
		logg:     logg,
		now:      time.Now,
	}, nil
}

func requireUser(actor auth.Actor) error {
	if actor.UserID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	return nil
}

func requireAdmin(actor auth.Actor) error {
	if err := requireUser(actor); err != nil {
		return err
	}
	if !actor.IsSuperuser {
		return pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required")
	}
	return nil
}

func dependency(err error, msg string) error {
	if typed := pkgerrors.As(err); typed != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}

func notFound(err error, msg, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, msg)
	}
	return dependency(err, op)
}

func insufficient(available, required decimal.Decimal) error {
	return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient credit").
		WithDetails(map[string]any{"balance": available, "required": required})
}
