package commission

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staybook/internal/database"
)

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) DB() *gorm.DB {
	return r.db
}

// Enqueue stores c unless a collection for the same correlation id exists,
// in which case the stored row is returned with created=false.
func (r *Repository) Enqueue(ctx context.Context, c *Collection) (*Collection, bool, error) {
	if existing, err := r.GetByCorrelationID(ctx, c.CorrelationID); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, false, err
	}

	if c.Status == "" {
		c.Status = StatusPending
	}
	if err := r.db.WithContext(ctx).Create(c).Error; err != nil {
		if database.IsUniqueViolation(err) {
			existing, gerr := r.GetByCorrelationID(ctx, c.CorrelationID)
			if gerr != nil {
				return nil, false, gerr
			}
			return existing, false, nil
		}
		return nil, false, err
	}
	return c, true, nil
}

func (r *Repository) Get(ctx context.Context, id string) (*Collection, error) {
	var c Collection
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *Repository) GetByCorrelationID(ctx context.Context, correlationID string) (*Collection, error) {
	var c Collection
	if err := r.db.WithContext(ctx).Where("correlation_id = ?", correlationID).Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

// ClaimDue returns up to limit in-flight collections whose next attempt is
// due, and pushes their next attempt out by lease so that a concurrent worker
// does not pick them up while this one runs.
func (r *Repository) ClaimDue(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]Collection, error) {
	var due []Collection
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status IN ? AND next_attempt_at <= ?", []Status{StatusPending, StatusRetrying}, now.UTC()).
			Order("next_attempt_at ASC").
			Limit(limit).
			Find(&due).Error; err != nil {
			return err
		}
		if len(due) == 0 {
			return nil
		}

		ids := make([]string, 0, len(due))
		for _, c := range due {
			ids = append(ids, c.ID)
		}
		return tx.Model(&Collection{}).
			Where("id IN ?", ids).
			Update("next_attempt_at", now.UTC().Add(lease)).Error
	})
	if err != nil {
		return nil, err
	}
	return due, nil
}

func (r *Repository) MarkCollected(ctx context.Context, id string, attempts int, rc Receipt) error {
	at := rc.CollectedAt.UTC()
	return r.db.WithContext(ctx).
		Model(&Collection{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          StatusCollected,
			"attempts":        attempts,
			"transfer_id":     rc.TransferID,
			"collected_minor": rc.AmountMinor,
			"collected_at":    &at,
			"last_error":      "",
		}).Error
}

func (r *Repository) MarkRetry(ctx context.Context, id string, attempts int, next time.Time, lastErr string) error {
	return r.db.WithContext(ctx).
		Model(&Collection{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":          StatusRetrying,
			"attempts":        attempts,
			"next_attempt_at": next.UTC(),
			"last_error":      lastErr,
		}).Error
}

// MarkTerminal moves a collection to failed or abandoned.
func (r *Repository) MarkTerminal(ctx context.Context, id string, status Status, attempts int, lastErr string) error {
	return r.db.WithContext(ctx).
		Model(&Collection{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     status,
			"attempts":   attempts,
			"last_error": lastErr,
		}).Error
}

// Reset re-queues a failed or abandoned collection for an immediate attempt
// with a fresh attempt budget.
func (r *Repository) Reset(ctx context.Context, id string, now time.Time) (*Collection, error) {
	c, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == StatusCollected {
		return nil, ErrInvalidState
	}

	res := r.db.WithContext(ctx).
		Model(&Collection{}).
		Where("id = ? AND status <> ?", id, StatusCollected).
		Updates(map[string]any{
			"status":          StatusPending,
			"attempts":        0,
			"next_attempt_at": now.UTC(),
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrInvalidState
	}
	return r.Get(ctx, id)
}
