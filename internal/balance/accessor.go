// Package balance reads and mutates the spendable credit stored on users.
//
// Every mutation goes through Adjust, which takes an exclusive row lock
// before reading. Callers must bind the accessor to the transaction that also
// writes the ledger entry explaining the change.
package balance

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/db"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
)

type Accessor interface {
	WithTx(tx *gorm.DB) Accessor
	Get(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	Lock(ctx context.Context, userID uuid.UUID) (*models.User, error)
	LockMany(ctx context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]*models.User, error)
	Adjust(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error)
}

type accessor struct {
	db *gorm.DB
}

// NewAccessor returns an accessor bound to conn.
func NewAccessor(conn *gorm.DB) Accessor {
	return &accessor{db: conn}
}

func (a *accessor) WithTx(tx *gorm.DB) Accessor {
	if tx == nil {
		return a
	}
	return &accessor{db: tx}
}

// Get reads the balance without locking. Use it for display only.
func (a *accessor) Get(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var user models.User
	if err := a.db.WithContext(ctx).Select("id", "balance").First(&user, "id = ?", userID).Error; err != nil {
		return decimal.Zero, err
	}
	return user.Balance, nil
}

// Lock loads the user row with FOR UPDATE. The lock is held until the
// surrounding transaction ends.
func (a *accessor) Lock(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	var user models.User
	if err := db.ForUpdate(a.db.WithContext(ctx)).First(&user, "id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// LockMany locks several users in ascending id order so two transactions
// touching the same pair cannot deadlock.
func (a *accessor) LockMany(ctx context.Context, userIDs ...uuid.UUID) (map[uuid.UUID]*models.User, error) {
	ordered := make([]uuid.UUID, 0, len(userIDs))
	seen := make(map[uuid.UUID]struct{}, len(userIDs))
	for _, id := range userIDs {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].String() < ordered[j].String()
	})

	locked := make(map[uuid.UUID]*models.User, len(ordered))
	for _, id := range ordered {
		user, err := a.Lock(ctx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = user
	}
	return locked, nil
}

// Adjust applies delta to the user's balance and returns the new value. It
// performs no sufficiency checks.
func (a *accessor) Adjust(ctx context.Context, userID uuid.UUID, delta decimal.Decimal) (decimal.Decimal, error) {
	user, err := a.Lock(ctx, userID)
	if err != nil {
		return decimal.Zero, err
	}
	next := user.Balance.Add(delta)
	if err := a.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", userID).
		Update("balance", next).Error; err != nil {
		return decimal.Zero, err
	}
	return next, nil
}
