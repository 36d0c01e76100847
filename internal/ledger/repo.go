package ledger

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/teamhub-backend/pkg/db"
	"github.com/angelmondragon/teamhub-backend/pkg/db/models"
	"github.com/angelmondragon/teamhub-backend/pkg/enums"
	"github.com/angelmondragon/teamhub-backend/pkg/pagination"
)

// Repository manages persistence for ledger entries.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, entry *models.LedgerEntry) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	LockByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error)
	Settle(ctx context.Context, id uuid.UUID, status enums.LedgerEntryStatus, settledBy uuid.UUID, settledAt time.Time) (bool, error)
	List(ctx context.Context, filter Filter) ([]models.LedgerEntry, error)
	Sum(ctx context.Context, filter Filter) (decimal.Decimal, error)
}

// Filter narrows list and aggregate queries. Zero values are ignored.
type Filter struct {
	Kinds         []enums.LedgerEntryKind
	Statuses      []enums.LedgerEntryStatus
	ReceiverID    *uuid.UUID
	ParticipantID *uuid.UUID
	CreatedFrom   *time.Time
	CreatedTo     *time.Time
	Search        string
	Cursor        *pagination.Cursor
	Limit         int
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a ledger repository bound to the provided database.
func NewRepository(conn *gorm.DB) Repository {
	return &repository{db: conn}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, entry *models.LedgerEntry) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := r.db.WithContext(ctx).
		Preload("Sender").
		Preload("Receiver").
		First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *repository) LockByID(ctx context.Context, id uuid.UUID) (*models.LedgerEntry, error) {
	var entry models.LedgerEntry
	if err := db.ForUpdate(r.db.WithContext(ctx)).First(&entry, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// Settle moves a pending entry to status. It reports false when the row was
// no longer pending, leaving it untouched.
func (r *repository) Settle(ctx context.Context, id uuid.UUID, status enums.LedgerEntryStatus, settledBy uuid.UUID, settledAt time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.LedgerEntry{}).
		Where("id = ? AND status = ?", id, enums.LedgerEntryStatusPending).
		Updates(map[string]any{
			"status":     status,
			"settled_by": settledBy,
			"settled_at": settledAt,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) List(ctx context.Context, filter Filter) ([]models.LedgerEntry, error) {
	query := applyFilter(r.db.WithContext(ctx).Model(&models.LedgerEntry{}), filter)
	if filter.Cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var entries []models.LedgerEntry
	if err := query.
		Preload("Sender").
		Preload("Receiver").
		Order("created_at DESC").
		Order("id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (r *repository) Sum(ctx context.Context, filter Filter) (decimal.Decimal, error) {
	var total decimal.Decimal
	row := applyFilter(r.db.WithContext(ctx).Model(&models.LedgerEntry{}), filter).
		Select("COALESCE(SUM(amount), 0)").
		Row()
	if err := row.Scan(&total); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func applyFilter(query *gorm.DB, filter Filter) *gorm.DB {
	if len(filter.Kinds) > 0 {
		query = query.Where("kind IN ?", filter.Kinds)
	}
	if len(filter.Statuses) > 0 {
		query = query.Where("status IN ?", filter.Statuses)
	}
	if filter.ReceiverID != nil {
		query = query.Where("receiver_id = ?", *filter.ReceiverID)
	}
	if filter.ParticipantID != nil {
		query = query.Where("(sender_id = ? OR receiver_id = ?)", *filter.ParticipantID, *filter.ParticipantID)
	}
	if filter.CreatedFrom != nil {
		query = query.Where("created_at >= ?", *filter.CreatedFrom)
	}
	if filter.CreatedTo != nil {
		query = query.Where("created_at < ?", *filter.CreatedTo)
	}
	if term := strings.TrimSpace(filter.Search); term != "" {
		pattern := "%" + strings.ToLower(term) + "%"
		query = query.Where(
			"(LOWER(description) LIKE ? OR receiver_id IN (SELECT id FROM users WHERE LOWER(username) LIKE ?))",
			pattern, pattern,
		)
	}
	return query
}
