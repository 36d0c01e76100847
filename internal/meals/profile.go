package meals

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
)

// Bills splits the balance into what the user owes and what they hold.
type Bills struct {
	Debt   decimal.Decimal `json:"debt"`
	Credit decimal.Decimal `json:"credit"`
}

// ProfileView is the payment profile with its bills and orders.
type ProfileView struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uuid.UUID          `json:"user_id"`
	DefaultPayment enums.PaymentMode  `json:"default_payment"`
	Bills          Bills              `json:"bills"`
	Orders         []models.MealOrder `json:"orders"`
}

type UpdateProfileInput struct {
	DefaultPayment enums.PaymentMode
}

func billsFor(balance decimal.Decimal) Bills {
	bills := Bills{Debt: decimal.Zero, Credit: decimal.Zero}
	if balance.IsNegative() {
		bills.Debt = balance.Abs()
	} else {
		bills.Credit = balance
	}
	return bills
}

func (s *service) GetProfile(ctx context.Context, actor auth.Actor) (*ProfileView, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	return s.loadProfile(ctx, actor, nil)
}

// UpdateProfile changes the default payment mode. Ask-each-time is allowed
// here even though it cannot be stamped on an order.
func (s *service) UpdateProfile(ctx context.Context, actor auth.Actor, input UpdateProfileInput) (*ProfileView, error) {
	if err := requireUser(actor); err != nil {
		return nil, err
	}
	if !input.DefaultPayment.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment mode")
	}
	return s.loadProfile(ctx, actor, &input.DefaultPayment)
}

func (s *service) loadProfile(ctx context.Context, actor auth.Actor, mode *enums.PaymentMode) (*ProfileView, error) {
	var view *ProfileView
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		profile, err := repo.EnsureProfile(ctx, actor.UserID)
		if err != nil {
			return dependency(err, "resolve payment profile")
		}
		if mode != nil && *mode != profile.DefaultPayment {
			if err := repo.UpdateProfileDefault(ctx, profile.ID, *mode); err != nil {
				return dependency(err, "update payment profile")
			}
			profile.DefaultPayment = *mode
		}

		current, err := s.balances.WithTx(tx).Get(ctx, actor.UserID)
		if err != nil {
			return notFound(err, "user not found", "load balance")
		}
		orders, err := repo.ListProfileOrders(ctx, profile.ID)
		if err != nil {
			return dependency(err, "list meal orders")
		}
		view = &ProfileView{
			ID:             profile.ID,
			UserID:         profile.UserID,
			DefaultPayment: profile.DefaultPayment,
			Bills:          billsFor(current),
			Orders:         orders,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return view, nil
}
