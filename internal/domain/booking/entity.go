package booking

import (
	"strings"
	"time"

	"staybook/internal/domain/money"
)

type Kind string

const (
	KindNightStay Kind = "night_stay"
	KindDayUse    Kind = "day_use"
	KindClassic   Kind = "classic"
)

func (k Kind) Valid() bool {
	switch k {
	case KindNightStay, KindDayUse, KindClassic:
		return true
	}
	return false
}

// DayUse reports whether the tenant's day-use commission regime applies.
func (k Kind) DayUse() bool { return k == KindDayUse }

// Language reduces a guest locale such as "fr-FR" or "pt_BR" to its
// lowercase language subtag. Anything that is not 2 or 3 ASCII letters
// becomes "", which means the default locale.
func Language(raw string) string {
	l := strings.ToLower(strings.TrimSpace(raw))
	if i := strings.IndexAny(l, "-_"); i >= 0 {
		l = l[:i]
	}
	if len(l) < 2 || len(l) > 3 {
		return ""
	}
	for _, c := range l {
		if c < 'a' || c > 'z' {
			return ""
		}
	}
	return l
}

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentFailed    PaymentStatus = "failed"
)

// Booking is one reservation record. PaymentCorrelationID is the processor's
// payment-intent id and the idempotency key for payment-gated creation.
type Booking struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	TenantID   int64  `gorm:"not null;index" json:"tenant_id"`
	ResourceID *int64 `gorm:"index" json:"resource_id,omitempty"`
	Kind       Kind   `gorm:"type:varchar(20);not null" json:"kind"`

	GuestFirstName string `gorm:"type:varchar(255)" json:"guest_first_name"`
	GuestLastName  string `gorm:"type:varchar(255)" json:"guest_last_name"`
	GuestEmail     string `gorm:"type:varchar(255)" json:"guest_email"`
	GuestPhone     string `gorm:"type:varchar(64)" json:"guest_phone,omitempty"`
	Locale         string `gorm:"type:varchar(8)" json:"locale"`

	CheckIn  time.Time `gorm:"not null;index" json:"check_in"`
	CheckOut time.Time `gorm:"not null;index" json:"check_out"`
	Adults   int       `gorm:"not null;default:1" json:"adults"`
	Children int       `gorm:"not null;default:0" json:"children"`

	GrossMinor         int64  `gorm:"not null" json:"gross_minor"`
	CommissionMinor    int64  `gorm:"not null" json:"commission_minor"`
	OwnerMinor         int64  `gorm:"not null" json:"owner_minor"`
	AddonsMinor        *int64 `json:"addons_minor,omitempty"`
	OccupancyTaxMinor  *int64 `json:"occupancy_tax_minor,omitempty"`
	Currency           string `gorm:"type:varchar(3)" json:"currency"`
	CommissionDeferred bool   `gorm:"not null;default:false" json:"commission_deferred"`

	PaymentCorrelationID *string       `gorm:"type:varchar(255);uniqueIndex" json:"payment_correlation_id,omitempty"`
	PaymentStatus        PaymentStatus `gorm:"type:varchar(20);not null;index" json:"payment_status"`

	NotificationSent   bool       `gorm:"not null;default:false" json:"notification_sent"`
	NotificationMethod string     `gorm:"type:varchar(32)" json:"notification_method,omitempty"`
	NotifiedAt         *time.Time `json:"notified_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Booking) TableName() string { return "bookings" }

func (b *Booking) Window() Window {
	return Window{CheckIn: b.CheckIn, CheckOut: b.CheckOut}
}

func (b *Booking) Split() money.Split {
	return money.Split{GrossMinor: b.GrossMinor, CommissionMinor: b.CommissionMinor, OwnerMinor: b.OwnerMinor}
}

func (b *Booking) ApplySplit(s money.Split) {
	b.GrossMinor = s.GrossMinor
	b.CommissionMinor = s.CommissionMinor
	b.OwnerMinor = s.OwnerMinor
}

func (b *Booking) CorrelationID() string {
	if b.PaymentCorrelationID == nil {
		return ""
	}
	return *b.PaymentCorrelationID
}
