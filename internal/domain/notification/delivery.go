package notification

import (
	"context"
	"time"

	"gorm.io/gorm"
)

type Channel string

const (
	ChannelEmail   Channel = "email"
	ChannelWebhook Channel = "webhook"
	ChannelAMQP    Channel = "amqp"
)

type DeliveryStatus string

const (
	DeliverySent    DeliveryStatus = "sent"
	DeliveryFailed  DeliveryStatus = "failed"
	DeliverySkipped DeliveryStatus = "skipped"
)

// Delivery is one audit row per side-effect attempt batch.
type Delivery struct {
	ID        int64          `gorm:"primaryKey" json:"id"`
	BookingID int64          `gorm:"not null;index" json:"booking_id"`
	Channel   Channel        `gorm:"type:varchar(16);not null" json:"channel"`
	Status    DeliveryStatus `gorm:"type:varchar(16);not null" json:"status"`
	Attempts  int            `gorm:"not null;default:0" json:"attempts"`
	Locale    string         `gorm:"type:varchar(8)" json:"locale,omitempty"`
	Error     string         `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (Delivery) TableName() string { return "notification_deliveries" }

type DeliveryRepository struct {
	db *gorm.DB
}

func NewDeliveryRepository(db *gorm.DB) *DeliveryRepository {
	return &DeliveryRepository{db: db}
}

func (r *DeliveryRepository) Record(ctx context.Context, d *Delivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *DeliveryRepository) ListByBooking(ctx context.Context, bookingID int64) ([]Delivery, error) {
	var out []Delivery
	err := r.db.WithContext(ctx).
		Where("booking_id = ?", bookingID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *DeliveryRepository) DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-age)
	res := r.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&Delivery{})
	return res.RowsAffected, res.Error
}

// CleanupService prunes the delivery audit log.
type CleanupService struct {
	repo    *DeliveryRepository
	loggerf func(format string, args ...interface{})
}

func NewCleanupService(repo *DeliveryRepository, loggerf func(format string, args ...interface{})) *CleanupService {
	if loggerf == nil {
		loggerf = func(string, ...interface{}) {}
	}
	return &CleanupService{repo: repo, loggerf: loggerf}
}

func (c *CleanupService) CleanupOldDeliveries(ctx context.Context, daysToKeep int) (int64, error) {
	startTime := time.Now()

	deleted, err := c.repo.DeleteOlderThan(ctx, time.Duration(daysToKeep*24)*time.Hour)
	if err != nil {
		c.loggerf("level=error msg=delivery_cleanup_failed err=%v", err)
		return 0, err
	}

	c.loggerf("level=info msg=delivery_cleanup deleted=%d duration=%s", deleted, time.Since(startTime))
	return deleted, nil
}
