package transfers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/internal/balance"
	"github.com/angelmondragon/teamhub-backend/internal/ledger"
	"github.com/angelmondragon/teamhub-backend/pkg/auth"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/teamhub-backend/pkg/errors"
	"github.com/angelmondragon/teamhub-backend/pkg/logger"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox"
	"github.com/angelmondragon/teamhub-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type userDirectory interface {
	FindByUsername(ctx context.Context, username string) (*models.User, error)
}

// Service moves credit between two users.
type Service interface {
	Transfer(ctx context.Context, actor auth.Actor, input TransferInput) (*models.LedgerEntry, error)
	CheckDestination(ctx context.Context, actor auth.Actor, username string) (*Destination, error)
}

// TransferInput describes a peer-to-peer transfer request.
type TransferInput struct {
	ReceiverUsername string
	Amount           decimal.Decimal
	Description      string
}

// Destination is the public view of a transfer receiver.
type Destination struct {
	UserID   uuid.UUID `json:"user_id"`
	Username string    `json:"username"`
}

type service struct {
	users    userDirectory
	tx       txRunner
	balances balance.Accessor
	ledger   ledger.Service
	outbox   outboxPublisher
	logg     *logger.Logger
}

// NewService builds a transfer service with the required dependencies.
func NewService(users userDirectory, tx txRunner, balances balance.Accessor, entries ledger.Service, outbox outboxPublisher, logg *logger.Logger) (Service, error) {
	if users == nil {
		return nil, fmt.Errorf("user directory required")
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
		users:    users,
		tx:       tx,
		balances: balances,
		ledger:   entries,
		outbox:   outbox,
		logg:     logg,
	}, nil
}

// CheckDestination resolves username the same way Transfer does without
// moving any money.
func (s *service) CheckDestination(ctx context.Context, actor auth.Actor, username string) (*Destination, error) {
	receiver, err := s.resolveReceiver(ctx, actor, username)
	if err != nil {
		return nil, err
	}
	return &Destination{UserID: receiver.ID, Username: receiver.Username}, nil
}

// Transfer debits the actor and credits the receiver in one transaction.
// Checks run in a fixed order: unknown receiver, self transfer, non-positive
// amount, then funds against the locked sender row.
func (s *service) Transfer(ctx context.Context, actor auth.Actor, input TransferInput) (*models.LedgerEntry, error) {
	if actor.UserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}
	receiver, err := s.resolveReceiver(ctx, actor, input.ReceiverUsername)
	if err != nil {
		return nil, err
	}
	if err := ledger.CheckAmount(input.Amount); err != nil {
		return nil, err
	}
	amount := input.Amount

	description := strings.TrimSpace(input.Description)
	if description == "" {
		description = fmt.Sprintf("transfer from %s to %s", actor.Username, receiver.Username)
	}

	var entry *models.LedgerEntry
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		balances := s.balances.WithTx(tx)
		locked, err := balances.LockMany(ctx, actor.UserID, receiver.ID)
		if err != nil {
			return mapLookupError(err, pkgerrors.CodeUserNotFound, "user not found")
		}
		sender, ok := locked[actor.UserID]
		if !ok {
			return pkgerrors.New(pkgerrors.CodeUserNotFound, "sender not found")
		}
		if sender.Balance.LessThan(amount) {
			return pkgerrors.New(pkgerrors.CodeInsufficientFunds, "insufficient credit").
				WithDetails(map[string]any{"balance": sender.Balance, "amount": amount})
		}

		if _, err := balances.Adjust(ctx, actor.UserID, amount.Neg()); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "debit sender")
		}
		if _, err := balances.Adjust(ctx, receiver.ID, amount); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "credit receiver")
		}

		senderID := actor.UserID
		receiverID := receiver.ID
		entry, err = s.ledger.WithTx(tx).Record(ctx, ledger.RecordEntryInput{
			Kind:        enums.LedgerEntryKindTransfer,
			Status:      enums.LedgerEntryStatusAccepted,
			Amount:      amount,
			SenderID:    &senderID,
			ReceiverID:  &receiverID,
			Description: description,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "record transfer entry")
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventCreditTransferred,
			AggregateType: enums.AggregateLedgerEntry,
			AggregateID:   entry.ID,
			Actor:         outbox.ActorFrom(actor),
			Data: payloads.CreditTransferredEvent{
				EntryID:    entry.ID,
				SenderID:   senderID,
				ReceiverID: receiverID,
				Amount:     amount,
			},
		})
	})
	if err != nil {
		return nil, err
	}

	logCtx := s.logg.WithFields(ctx, map[string]any{
		"entry_id":    entry.ID.String(),
		"receiver_id": receiver.ID.String(),
		"amount":      amount.StringFixed(2),
	})
	s.logg.Info(logCtx, "transfer.completed")
	return entry, nil
}

func (s *service) resolveReceiver(ctx context.Context, actor auth.Actor, username string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUserNotFound, "user not found")
	}
	receiver, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		return nil, mapLookupError(err, pkgerrors.CodeUserNotFound, "user not found")
	}
	if receiver.ID == actor.UserID {
		return nil, pkgerrors.New(pkgerrors.CodeSelfTransfer, "cannot transfer credit to yourself")
	}
	return receiver, nil
}

func mapLookupError(err error, code pkgerrors.Code, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(code, msg)
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup user")
}
