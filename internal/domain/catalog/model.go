package catalog

import (
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/money"
)

// Tenant carries the per-tenant settings the booking core reads.
type Tenant struct {
	ID                   int64               `gorm:"primaryKey" json:"id"`
	Name                 string              `gorm:"type:varchar(255);not null" json:"name"`
	Currency             string              `gorm:"type:varchar(3);not null;default:'eur'" json:"currency"`
	SubAccountID         string              `gorm:"type:varchar(64);index" json:"sub_account_id"`
	CommissionRate       decimal.Decimal     `gorm:"type:numeric(7,4);not null;default:0" json:"commission_rate"`
	DayUseCommissionRate decimal.NullDecimal `gorm:"type:numeric(7,4)" json:"day_use_commission_rate"`
	FixedFeeMinor        int64               `gorm:"not null;default:0" json:"fixed_fee_minor"`
	OccupancyTaxEnabled  bool                `gorm:"not null;default:false" json:"occupancy_tax_enabled"`
	OccupancyTaxRate     decimal.NullDecimal `gorm:"type:numeric(7,4)" json:"occupancy_tax_rate"`
	DayPassPriceMinor    int64               `gorm:"not null;default:0" json:"day_pass_price_minor"`
	CheckoutTime         string              `gorm:"type:varchar(5)" json:"checkout_time"`
	Timezone             string              `gorm:"type:varchar(64)" json:"timezone"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

func (Tenant) TableName() string { return "tenants" }

// CommissionRateFor picks the day-use or stay regime. An unset day-use rate
// falls back to the stay rate.
func (t *Tenant) CommissionRateFor(dayUse bool) (decimal.Decimal, error) {
	rate := t.CommissionRate
	if dayUse && t.DayUseCommissionRate.Valid {
		rate = t.DayUseCommissionRate.Decimal
	}
	if !money.ValidRate(rate) {
		return decimal.Zero, fmt.Errorf("tenant %d commission rate %s: %w", t.ID, rate, money.ErrInvalidDecimal)
	}
	return rate, nil
}

// OccupancyTaxFor returns the tax owed on a lodging amount, zero when disabled.
func (t *Tenant) OccupancyTaxFor(lodgingMinor int64) (int64, error) {
	if !t.OccupancyTaxEnabled || !t.OccupancyTaxRate.Valid {
		return 0, nil
	}
	rate := t.OccupancyTaxRate.Decimal
	if !money.ValidRate(rate) {
		return 0, fmt.Errorf("tenant %d occupancy tax rate %s: %w", t.ID, rate, money.ErrInvalidDecimal)
	}
	return money.PercentOf(lodgingMinor, rate), nil
}

// Location resolves the tenant timezone, UTC when unset or unknown.
func (t *Tenant) Location() *time.Location {
	if t.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(t.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CheckoutClock parses CheckoutTime ("HH:MM"). ok is false when the tenant has
// not configured one.
func (t *Tenant) CheckoutClock() (hour, minute int, ok bool) {
	if strings.TrimSpace(t.CheckoutTime) == "" {
		return 0, 0, false
	}
	parsed, err := time.Parse("15:04", strings.TrimSpace(t.CheckoutTime))
	if err != nil {
		return 0, 0, false
	}
	return parsed.Hour(), parsed.Minute(), true
}

// Resource is a bookable unit (room, parking spot). Resources are deactivated,
// never deleted, once bookings reference them.
type Resource struct {
	ID            int64     `gorm:"primaryKey" json:"id"`
	TenantID      int64     `gorm:"not null;index" json:"tenant_id"`
	Name          string    `gorm:"type:varchar(255);not null" json:"name"`
	PriceMinor    int64     `gorm:"not null" json:"price_minor"`
	IsActive      bool      `gorm:"not null;default:true;index" json:"is_active"`
	PetAllowed    bool      `gorm:"not null;default:false" json:"pet_allowed"`
	DayUseAllowed bool      `gorm:"not null;default:false" json:"day_use_allowed"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (Resource) TableName() string { return "resources" }

// CapabilityFilter narrows resource listings; nil fields are ignored.
type CapabilityFilter struct {
	PetAllowed    *bool
	DayUseAllowed *bool
}
