package topups

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/internal/balance"
	"github.com/angelmondragon/teamhub-backend/internal/ledger"
	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/config"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
	"github.com/angelmondragon/teamhub-backend/pkg/metrics"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/teamhub-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service implements the top-up approval workflow.
type Service interface {
	Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.LedgerEntry, error)
	Settle(ctx context.Context, actor auth.Actor, input SettleInput) (*models.LedgerEntry, error)
	List(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error)
	Instructions(ctx context.Context, actor auth.Actor) (*Instructions, error)
}

// CreateInput is a request to add credit to the caller's own balance.
type CreateInput struct {
	Amount      decimal.Decimal
	Description string
	DocumentRef *string
}

// SettleInput moves a pending top-up to a terminal status.
type SettleInput struct {
	EntryID uuid.UUID
	Status  enums.LedgerEntryStatus
}

// ListParams filters the top-up listing.
type ListParams struct {
	Status      *enums.LedgerEntryStatus
	CreatedFrom *time.Time
	CreatedTo   *time.Time
	Search      string
	pagination.Params
}

// ListResult is one page of top-ups.
type ListResult struct {
	Items  []models.LedgerEntry `json:"items"`
	Cursor string               `json:"cursor"`
}

// Instructions tells a user where to send money before requesting a top-up.
type Instructions struct {
	CardNumber string          `json:"card_number"`
	OwnerName  string          `json:"owner_name"`
	Balance    decimal.Decimal `json:"balance"`
}

type service struct {
	repo     ledger.Repository
	entries  ledger.Service
	tx       txRunner
	balances balance.Accessor
	outbox   outboxPublisher
	cfg      config.TopUpConfig
	metrics  *metrics.LedgerMetrics
	logg     *logger.Logger
	now      func() time.Time
}

// NewService wires the top-up workflow. A nil metrics collector disables
// settlement counters.
func NewService(
	repo ledger.Repository,
	entries ledger.Service,
	tx txRunner,
	balances balance.Accessor,
	outbox outboxPublisher,
	cfg config.TopUpConfig,
	m *metrics.LedgerMetrics,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	if entries == nil {
		return nil, fmt.Errorf("ledger service required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if balances == nil {
		return nil, fmt.Errorf("balance accessor required")
	}
	if outbox == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		repo:     repo,
		entries:  entries,
		tx:       tx,
		balances: balances,
		outbox:   outbox,
		cfg:      cfg,
		metrics:  m,
		logg:     logg,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// Create records a top-up for the caller. Requests from administrators are
// accepted and credited immediately; everyone else waits for review.
func (s *service) Create(ctx context.Context, actor auth.Actor, input CreateInput) (*models.LedgerEntry, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	if err := ledger.CheckAmount(input.Amount); err != nil {
		return nil, err
	}
	amount := input.Amount

	status := enums.LedgerEntryStatusPending
	if actor.IsSuperuser {
		status = enums.LedgerEntryStatusAccepted
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = "top-up"
	}

	var entry *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		receiverID := actor.UserID
		if status == enums.LedgerEntryStatusAccepted {
			if _, err := s.balances.WithTx(tx).Adjust(ctx, receiverID, amount); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return pkgerrors.New(pkgerrors.CodeUserNotFound, "user not found")
				}
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit top-up")
			}
		}

		record := ledger.RecordEntryInput{
			Kind:        enums.LedgerEntryKindTopUp,
			Status:      status,
			Amount:      amount,
			ReceiverID:  &receiverID,
			Description: description,
			DocumentRef: trimmedRef(input.DocumentRef),
		}
		if status == enums.LedgerEntryStatusAccepted {
			settledBy := actor.UserID
			settledAt := s.now()
			record.SettledBy = &settledBy
			record.SettledAt = &settledAt
		}

		var err error
		entry, err = s.entries.WithTx(tx).Record(ctx, record)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record top-up")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTopUpRequested,
			AggregateType: enums.AggregateLedgerEntry,
			AggregateID:   entry.ID,
			Actor:         outbox.ActorFrom(actor),
			Data: payloads.TopUpRequestedEvent{
				EntryID:    entry.ID,
				ReceiverID: receiverID,
				Amount:     amount,
				Status:     status,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"entry_id": entry.ID.String(),
		"status":   string(status),
		"amount":   amount.StringFixed(2),
	})
	s.logg.Info(logCtx, "topup.created")
	return entry, nil
}

// Settle accepts or rejects a pending top-up. The entry row is locked and the
// status update only applies while it is still pending, so the credit lands
// at most once no matter how many administrators race.
func (s *service) Settle(ctx context.Context, actor auth.Actor, input SettleInput) (*models.LedgerEntry, error) {
	if !actor.IsSuperuser {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "administrator role required")
	}
	if input.EntryID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "top-up id required")
	}
	if !input.Status.IsTerminal() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "status must be accepted or rejected")
	}

	var settled *models.LedgerEntry
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		entry, err := repo.LockByID(ctx, input.EntryID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "top-up not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load top-up")
		}
		if entry.Kind != enums.LedgerEntryKindTopUp {
			return pkgerrors.New(pkgerrors.CodeNotFound, "top-up not found")
		}
		if entry.Status != enums.LedgerEntryStatusPending {
			return invalidTransition(entry.Status)
		}

		ok, err := repo.Settle(ctx, entry.ID, input.Status, actor.UserID, s.now())
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle top-up")
		}
		if !ok {
			return invalidTransition(entry.Status)
		}

		if input.Status == enums.LedgerEntryStatusAccepted {
			if entry.ReceiverID == nil {
				return pkgerrors.New(pkgerrors.CodeInternal, "top-up has no receiver")
			}
			if _, err := s.balances.WithTx(tx).Adjust(ctx, *entry.ReceiverID, entry.Amount); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit top-up")
			}
		}

		settled, err = repo.FindByID(ctx, entry.ID)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reload top-up")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventTopUpSettled,
			AggregateType: enums.AggregateLedgerEntry,
			AggregateID:   settled.ID,
			Actor:         outbox.ActorFrom(actor),
			Data: payloads.TopUpSettledEvent{
				EntryID:    settled.ID,
				ReceiverID: *settled.ReceiverID,
				Amount:     settled.Amount,
				Status:     settled.Status,
				SettledBy:  actor.UserID,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	s.metrics.ObserveSettlement(settled.Status)
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"entry_id": settled.ID.String(),
		"status":   string(settled.Status),
	})
	s.logg.Info(logCtx, "topup.settled")
	return settled, nil
}

// List returns top-ups newest first. Non-administrators only see entries
// they received.
func (s *service) List(ctx context.Context, actor auth.Actor, params ListParams) (*ListResult, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	filter := ledger.Filter{
		Kinds:       []enums.LedgerEntryKind{enums.LedgerEntryKindTopUp},
		CreatedFrom: params.CreatedFrom,
		CreatedTo:   params.CreatedTo,
		Search:      params.Search,
		Limit:       pagination.LimitWithBuffer(params.Limit),
	}
	if params.Status != nil {
		if !params.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid status filter")
		}
		filter.Statuses = []enums.LedgerEntryStatus{*params.Status}
	}
	if !actor.IsSuperuser {
		receiverID := actor.UserID
		filter.ReceiverID = &receiverID
	}
	if params.Cursor != "" {
		cursor, err := pagination.ParseCursor(params.Cursor)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
		}
		filter.Cursor = cursor
	}

	items, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list top-ups")
	}

	page, next := pagination.Trim(items, params.Limit, func(e models.LedgerEntry) pagination.Cursor {
		return pagination.Cursor{CreatedAt: e.CreatedAt, ID: e.ID}
	})
	return &ListResult{Items: page, Cursor: next}, nil
}

// Instructions returns the configured destination card with the caller's
// current balance.
func (s *service) Instructions(ctx context.Context, actor auth.Actor) (*Instructions, error) {
	current, err := s.balances.Get(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeUserNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load balance")
	}
	return &Instructions{
		CardNumber: s.cfg.CardNumber,
		OwnerName:  s.cfg.OwnerName,
		Balance:    current,
	}, nil
}

func invalidTransition(current enums.LedgerEntryStatus) error {
	return pkgerrors.New(pkgerrors.CodeInvalidStateTransition, "top-up already settled").
		WithDetails(map[string]any{"status": current})
}

func trimmedRef(ref *string) *string {
	if ref == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*ref)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
