// Package reporting aggregates ledger entries into read-only summaries.
package reporting

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/teamhub-backend/internal/ledger"
	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
)

type balanceReader interface {
	Get(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
}

type debtReader interface {
	SumNegativeBalances(ctx context.Context) (decimal.Decimal, error)
}

type Service interface {
	Summary(ctx context.Context, actor auth.Actor) (*Summary, error)
}

// Summary is the credit overview shown on the dashboard. Administrators see
// figures across every user; everyone else sees entries they received.
type Summary struct {
	Balance       decimal.Decimal `json:"balance"`
	Debt          decimal.Decimal `json:"debt"`
	CreditInMonth decimal.Decimal `json:"credit_in_month"`
	Blocked       decimal.Decimal `json:"blocked"`
	Total         decimal.Decimal `json:"total"`
}

type service struct {
	entries  ledger.Repository
	balances balanceReader
	debts    debtReader
	now      func() time.Time
}

func NewService(entries ledger.Repository, balances balanceReader, debts debtReader) (Service, error) {
	if entries == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance reader required")
	}
	if debts == nil {
		return nil, fmt.Errorf("debt reader required")
	}
	return &service{
		entries:  entries,
		balances: balances,
		debts:    debts,
		now:      time.Now,
	}, nil
}

func (s *service) Summary(ctx context.Context, actor auth.Actor) (*Summary, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	current, err := s.balances.Get(ctx, actor.UserID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load balance")
	}

	// Order debits and refunds are meal bookkeeping, not credit movement.
	scope := ledger.Filter{
		Kinds: []enums.LedgerEntryKind{enums.LedgerEntryKindTransfer, enums.LedgerEntryKindTopUp},
	}
	if !actor.IsSuperuser {
		receiverID := actor.UserID
		scope.ReceiverID = &receiverID
	}

	summary := &Summary{Balance: current, Debt: decimal.Zero}
	if actor.IsSuperuser {
		negative, err := s.debts.SumNegativeBalances(ctx)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum debts")
		}
		summary.Debt = negative.Abs()
	} else if current.IsNegative() {
		summary.Debt = current.Abs()
	}

	monthStart, monthEnd := monthBounds(s.now())
	inMonth := scope
	inMonth.Statuses = []enums.LedgerEntryStatus{enums.LedgerEntryStatusAccepted}
	inMonth.CreatedFrom = &monthStart
	inMonth.CreatedTo = &monthEnd
	if summary.CreditInMonth, err = s.entries.Sum(ctx, inMonth); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum monthly credit")
	}

	blocked := scope
	blocked.Statuses = []enums.LedgerEntryStatus{enums.LedgerEntryStatusRejected}
	if summary.Blocked, err = s.entries.Sum(ctx, blocked); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum blocked credit")
	}

	if summary.Total, err = s.entries.Sum(ctx, scope); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "sum entries")
	}
	return summary, nil
}

// monthBounds returns the UTC calendar month containing t as [start, end).
func monthBounds(t time.Time) (time.Time, time.Time) {
	y, m, _ := t.UTC().Date()
	start := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return start, start.AddDate(0, 1, 0)
}
