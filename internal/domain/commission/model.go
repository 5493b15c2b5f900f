package commission

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusRetrying  Status = "retrying"
	StatusCollected Status = "collected"
	// StatusFailed is terminal after the attempt budget is spent.
	StatusFailed Status = "failed"
	// StatusAbandoned is terminal: the originating payment was canceled.
	StatusAbandoned Status = "abandoned"
)

func (s Status) InFlight() bool {
	return s == StatusPending || s == StatusRetrying
}

// Collection is the durable retry state of one deferred commission.
type Collection struct {
	ID             string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	BookingID      int64      `gorm:"not null;uniqueIndex" json:"booking_id"`
	TenantID       int64      `gorm:"not null;index" json:"tenant_id"`
	CorrelationID  string     `gorm:"type:varchar(255);not null;uniqueIndex" json:"payment_correlation_id"`
	SubAccountID   string     `gorm:"type:varchar(64);not null;index" json:"sub_account_id"`
	AmountMinor    int64      `gorm:"not null" json:"amount_minor"`
	Currency       string     `gorm:"type:varchar(3);not null" json:"currency"`
	Status         Status     `gorm:"type:varchar(16);not null;index" json:"status"`
	Attempts       int        `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt  time.Time  `gorm:"not null;index" json:"next_attempt_at"`
	LastError      string     `gorm:"type:text" json:"last_error,omitempty"`
	TransferID     string     `gorm:"type:varchar(255)" json:"transfer_id,omitempty"`
	CollectedMinor int64      `gorm:"not null;default:0" json:"collected_minor"`
	CollectedAt    *time.Time `json:"collected_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (Collection) TableName() string { return "commission_collections" }

func (c *Collection) BeforeCreate(*gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// IdempotencyKey is sent with the transfer so a retried attempt can never
// move the commission twice.
func (c *Collection) IdempotencyKey() string {
	return "commission-" + c.ID
}

// Receipt is the outcome of a successful collection.
type Receipt struct {
	CollectionID string    `json:"collection_id"`
	TransferID   string    `json:"transfer_id"`
	AmountMinor  int64     `json:"amount_minor"`
	Currency     string    `json:"currency"`
	CollectedAt  time.Time `json:"collected_at"`
}
