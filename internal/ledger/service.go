package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	"github.com/angelmondragon/teamhub-backend/pkg/metrics"
)

// Service records ledger entries. Callers pass a transaction-bound service so
// the entry commits together with the balance change it explains.
type Service interface {
	WithTx(tx *gorm.DB) Service
	Record(ctx context.Context, input RecordEntryInput) (*models.LedgerEntry, error)
}

type service struct {
	repo    Repository
	metrics *metrics.LedgerMetrics
}

// RecordEntryInput captures the immutable data a ledger entry requires.
type RecordEntryInput struct {
	Kind        enums.LedgerEntryKind   `json:"kind"`
	Status      enums.LedgerEntryStatus `json:"status"`
	Amount      decimal.Decimal         `json:"amount"`
	SenderID    *uuid.UUID              `json:"sender_id,omitempty"`
	ReceiverID  *uuid.UUID              `json:"receiver_id,omitempty"`
	MealOrderID *uuid.UUID              `json:"meal_order_id,omitempty"`
	MealSlotID  *uuid.UUID              `json:"meal_slot_id,omitempty"`
	BatchID     *uuid.UUID              `json:"batch_id,omitempty"`
	Description string                  `json:"description"`
	DocumentRef *string                 `json:"document_ref,omitempty"`
	SettledBy   *uuid.UUID              `json:"settled_by,omitempty"`
	SettledAt   *time.Time              `json:"settled_at,omitempty"`
}

// NewService wires a ledger service with the provided repository. A nil
// metrics collector disables instrumentation.
func NewService(repo Repository, m *metrics.LedgerMetrics) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo, metrics: m}, nil
}

func (s *service) WithTx(tx *gorm.DB) Service {
	return &service{repo: s.repo.WithTx(tx), metrics: s.metrics}
}

func (s *service) Record(ctx context.Context, input RecordEntryInput) (*models.LedgerEntry, error) {
	if err := input.validate(); err != nil {
		return nil, err
	}

	entry := &models.LedgerEntry{
		Kind:        input.Kind,
		Status:      input.Status,
		Amount:      input.Amount,
		SenderID:    input.SenderID,
		ReceiverID:  input.ReceiverID,
		MealOrderID: input.MealOrderID,
		MealSlotID:  input.MealSlotID,
		BatchID:     input.BatchID,
		Description: input.Description,
		DocumentRef: input.DocumentRef,
		SettledBy:   input.SettledBy,
		SettledAt:   input.SettledAt,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}
	s.metrics.ObserveEntry(entry.Kind, entry.Status, entry.Amount)
	return entry, nil
}

func (in RecordEntryInput) validate() error {
	if !in.Kind.IsValid() {
		return fmt.Errorf("invalid ledger entry kind %q", in.Kind)
	}
	if !in.Status.IsValid() {
		return fmt.Errorf("invalid ledger entry status %q", in.Status)
	}
	if !in.Amount.IsPositive() {
		return fmt.Errorf("ledger amount must be positive")
	}
	if in.Status == enums.LedgerEntryStatusPending && in.Kind != enums.LedgerEntryKindTopUp {
		return fmt.Errorf("only top-up entries may be pending")
	}
	if in.Status == enums.LedgerEntryStatusPending && (in.SettledBy != nil || in.SettledAt != nil) {
		return fmt.Errorf("pending entries cannot carry a settlement")
	}

	switch in.Kind {
	case enums.LedgerEntryKindTransfer:
		if in.SenderID == nil || in.ReceiverID == nil {
			return fmt.Errorf("transfer requires sender and receiver")
		}
	case enums.LedgerEntryKindTopUp, enums.LedgerEntryKindOrderCredit:
		if in.ReceiverID == nil {
			return fmt.Errorf("%s requires a receiver", in.Kind)
		}
	case enums.LedgerEntryKindOrderDebit:
		if in.SenderID == nil {
			return fmt.Errorf("order debit requires a sender")
		}
	}

	if in.Kind == enums.LedgerEntryKindOrderDebit || in.Kind == enums.LedgerEntryKindOrderCredit {
		if in.MealOrderID == nil {
			return fmt.Errorf("%s requires a meal order", in.Kind)
		}
	}
	return nil
}
