package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"staybook/internal/database"
	"staybook/internal/domain/catalog"
	"staybook/internal/domain/money"
)

// Ledger is the durable booking store. The overlap invariant for succeeded
// bookings is enforced here, inside the insert transaction, with the parent
// resource row locked so concurrent writers for one resource serialize.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

func (l *Ledger) DB() *gorm.DB {
	return l.db
}

// OverlapQuery describes an overlap probe against the ledger.
type OverlapQuery struct {
	ResourceID       int64
	Window           Window
	ExcludeBookingID int64
	IncludePending   bool
}

// ReserveIfFree creates a booking for the direct (non payment-gated) path.
// b.ResourceID is required; the booking is written as-is if no conflicting
// succeeded booking exists.
func (l *Ledger) ReserveIfFree(ctx context.Context, b *Booking) (*Booking, error) {
	if b.ResourceID == nil {
		return nil, fmt.Errorf("%w: resource is required", ErrValidation)
	}
	if err := b.Window().Validate(); err != nil {
		return nil, err
	}
	if b.PaymentStatus == PaymentSucceeded && b.CorrelationID() == "" {
		return nil, fmt.Errorf("%w: succeeded booking requires a payment correlation id", ErrValidation)
	}
	if err := checkAmounts(b); err != nil {
		return nil, err
	}

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockResource(tx, *b.ResourceID); err != nil {
			return err
		}
		conflict, err := overlapExists(tx, OverlapQuery{ResourceID: *b.ResourceID, Window: b.Window()})
		if err != nil {
			return err
		}
		if conflict {
			return ErrConflict
		}
		return tx.Create(b).Error
	})
	if err != nil {
		return nil, err
	}
	return b, nil
}

// CreateIdempotent records the booking for a confirmed payment. An existing
// succeeded booking for correlationID is returned unchanged with created=false.
// A pending or failed row for the same id is promoted to succeeded, subject to
// the same overlap check as a fresh insert.
func (l *Ledger) CreateIdempotent(ctx context.Context, correlationID string, kind Kind, b *Booking) (*Booking, bool, error) {
	if strings.TrimSpace(correlationID) == "" {
		return nil, false, fmt.Errorf("%w: correlation id is required", ErrValidation)
	}
	if err := b.Window().Validate(); err != nil {
		return nil, false, err
	}
	if err := checkAmounts(b); err != nil {
		return nil, false, err
	}

	existing, err := l.GetByCorrelationID(ctx, correlationID)
	switch {
	case err == nil:
		if existing.Kind != kind {
			return nil, false, fmt.Errorf("%w: %s is %s, event says %s", ErrKindMismatch, correlationID, existing.Kind, kind)
		}
		if existing.PaymentStatus == PaymentSucceeded {
			return existing, false, nil
		}
	case errors.Is(err, ErrNotFound):
	default:
		return nil, false, err
	}

	var (
		out     *Booking
		created bool
	)
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if b.ResourceID != nil {
			if err := lockResource(tx, *b.ResourceID); err != nil {
				return err
			}
		}

		// Re-read under the lock: a concurrent delivery may have committed
		// between the optimistic read above and the lock.
		var current Booking
		err := tx.Where("payment_correlation_id = ?", correlationID).Take(&current).Error
		found := err == nil
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if found {
			if current.Kind != kind {
				return fmt.Errorf("%w: %s is %s, event says %s", ErrKindMismatch, correlationID, current.Kind, kind)
			}
			if current.PaymentStatus == PaymentSucceeded {
				out = &current
				return nil
			}
		}

		if b.ResourceID != nil {
			q := OverlapQuery{ResourceID: *b.ResourceID, Window: b.Window()}
			if found {
				q.ExcludeBookingID = current.ID
			}
			conflict, err := overlapExists(tx, q)
			if err != nil {
				return err
			}
			if conflict {
				return ErrConflict
			}
		}

		cid := correlationID
		b.Kind = kind
		b.PaymentCorrelationID = &cid
		b.PaymentStatus = PaymentSucceeded

		if found {
			b.ID = current.ID
			b.CreatedAt = current.CreatedAt
			b.NotificationSent = current.NotificationSent
			b.NotificationMethod = current.NotificationMethod
			b.NotifiedAt = current.NotifiedAt
			res := tx.Model(&Booking{}).
				Where("id = ? AND payment_status <> ?", current.ID, PaymentSucceeded).
				Select("*").
				Omit("id", "created_at").
				Updates(b)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return fmt.Errorf("booking %d changed concurrently", current.ID)
			}
		} else if err := tx.Create(b).Error; err != nil {
			return err
		}
		out = b
		created = true
		return nil
	})

	if err != nil {
		if database.IsUniqueViolation(err) {
			// Lost the insert race for a resource-less booking; the winner's
			// row is the answer.
			winner, gerr := l.GetByCorrelationID(ctx, correlationID)
			if gerr != nil {
				return nil, false, gerr
			}
			if winner.Kind != kind {
				return nil, false, fmt.Errorf("%w: %s is %s, event says %s", ErrKindMismatch, correlationID, winner.Kind, kind)
			}
			return winner, false, nil
		}
		return nil, false, err
	}
	return out, created, nil
}

// CreatePending stores a pending stub correlated to a payment intent created
// at checkout. Pending rows never reserve inventory. A repeat for the same
// correlation id returns the stored row.
func (l *Ledger) CreatePending(ctx context.Context, correlationID string, b *Booking) (*Booking, error) {
	if strings.TrimSpace(correlationID) == "" {
		return nil, fmt.Errorf("%w: correlation id is required", ErrValidation)
	}
	cid := correlationID
	b.PaymentCorrelationID = &cid
	b.PaymentStatus = PaymentPending

	if err := l.db.WithContext(ctx).Create(b).Error; err != nil {
		if database.IsUniqueViolation(err) {
			return l.GetByCorrelationID(ctx, correlationID)
		}
		return nil, err
	}
	return b, nil
}

// MarkFailed moves pending bookings for correlationID to failed. Succeeded
// bookings are never downgraded by a late or out-of-order failure event.
func (l *Ledger) MarkFailed(ctx context.Context, correlationID string) (int64, error) {
	res := l.db.WithContext(ctx).
		Model(&Booking{}).
		Where("payment_correlation_id = ? AND payment_status = ?", correlationID, PaymentPending).
		Updates(map[string]any{
			"payment_status": PaymentFailed,
			"updated_at":     time.Now().UTC(),
		})
	return res.RowsAffected, res.Error
}

// RecordNotification stores the confirmation metadata. It is a standalone
// update, outside any booking transaction.
func (l *Ledger) RecordNotification(ctx context.Context, bookingID int64, method string, at time.Time) error {
	return l.db.WithContext(ctx).
		Model(&Booking{}).
		Where("id = ?", bookingID).
		Updates(map[string]any{
			"notification_sent":   true,
			"notification_method": method,
			"notified_at":         at.UTC(),
		}).Error
}

func (l *Ledger) GetByID(ctx context.Context, id int64) (*Booking, error) {
	var b Booking
	if err := l.db.WithContext(ctx).First(&b, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

func (l *Ledger) GetByCorrelationID(ctx context.Context, correlationID string) (*Booking, error) {
	var b Booking
	err := l.db.WithContext(ctx).
		Where("payment_correlation_id = ?", correlationID).
		Take(&b).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &b, nil
}

// HasOverlap is the read-only probe used by the availability helpers.
func (l *Ledger) HasOverlap(ctx context.Context, q OverlapQuery) (bool, error) {
	return overlapExists(l.db.WithContext(ctx), q)
}

// BusyResourceIDs lists the tenant's resources holding a succeeded booking
// that overlaps w.
func (l *Ledger) BusyResourceIDs(ctx context.Context, tenantID int64, w Window) (map[int64]bool, error) {
	var ids []int64
	err := l.db.WithContext(ctx).
		Model(&Booking{}).
		Where("tenant_id = ? AND resource_id IS NOT NULL", tenantID).
		Where("payment_status = ?", PaymentSucceeded).
		Where("check_in < ? AND check_out > ?", w.CheckOut, w.CheckIn).
		Distinct().
		Pluck("resource_id", &ids).Error
	if err != nil {
		return nil, err
	}
	out := make(map[int64]bool, len(ids))
	for _, id := range ids {
		out[id] = true
	}
	return out, nil
}

// ActiveAround returns succeeded bookings for resourceID whose stay touches
// day (check-in on or before day, check-out on or after day).
func (l *Ledger) ActiveAround(ctx context.Context, resourceID int64, day time.Time) ([]Booking, error) {
	var rows []Booking
	err := l.db.WithContext(ctx).
		Where("resource_id = ? AND payment_status = ?", resourceID, PaymentSucceeded).
		Where("check_in <= ? AND check_out >= ?", day, day).
		Order("check_in").
		Find(&rows).Error
	return rows, err
}

func lockResource(tx *gorm.DB, resourceID int64) error {
	var res catalog.Resource
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", resourceID).
		Take(&res).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: resource %d", ErrResourceUnavailable, resourceID)
		}
		return err
	}
	if !res.IsActive {
		return fmt.Errorf("%w: resource %d is inactive", ErrResourceUnavailable, resourceID)
	}
	return nil
}

func overlapExists(tx *gorm.DB, q OverlapQuery) (bool, error) {
	statuses := []PaymentStatus{PaymentSucceeded}
	if q.IncludePending {
		statuses = append(statuses, PaymentPending)
	}

	db := tx.Model(&Booking{}).
		Where("resource_id = ?", q.ResourceID).
		Where("payment_status IN ?", statuses).
		Where("check_in < ? AND check_out > ?", q.Window.CheckOut, q.Window.CheckIn)
	if q.ExcludeBookingID != 0 {
		db = db.Where("id <> ?", q.ExcludeBookingID)
	}

	var cnt int64
	if err := db.Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

func checkAmounts(b *Booking) error {
	if !b.Split().Valid() {
		return fmt.Errorf("%w: commission %d + owner %d != gross %d",
			money.ErrInvalidSplit, b.CommissionMinor, b.OwnerMinor, b.GrossMinor)
	}
	return nil
}
