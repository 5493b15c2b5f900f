package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook/internal/domain/money"
)

type CreateTenantRequest struct {
	Name                 string              `json:"name" validate:"required,max=255"`
	Currency             string              `json:"currency" validate:"required,len=3,alpha"`
	SubAccountID         string              `json:"sub_account_id" validate:"required,max=64"`
	CommissionRate       *decimal.Decimal    `json:"commission_rate" validate:"required"`
	DayUseCommissionRate decimal.NullDecimal `json:"day_use_commission_rate"`
	FixedFeeMinor        int64               `json:"fixed_fee_minor" validate:"gte=0"`
	OccupancyTaxEnabled  bool                `json:"occupancy_tax_enabled"`
	OccupancyTaxRate     decimal.NullDecimal `json:"occupancy_tax_rate"`
	DayPassPriceMinor    int64               `json:"day_pass_price_minor" validate:"gte=0"`
	CheckoutTime         string              `json:"checkout_time"`
	Timezone             string              `json:"timezone"`
}

// Tenant checks the fields the tag validator cannot and builds the model.
func (r CreateTenantRequest) Tenant() (*Tenant, error) {
	if r.CommissionRate == nil {
		return nil, fmt.Errorf("%w: commission_rate is required", ErrInvalidSettings)
	}
	rates := map[string]decimal.NullDecimal{
		"commission_rate":         decimal.NewNullDecimal(*r.CommissionRate),
		"day_use_commission_rate": r.DayUseCommissionRate,
		"occupancy_tax_rate":      r.OccupancyTaxRate,
	}
	for field, rate := range rates {
		if rate.Valid && !money.ValidRate(rate.Decimal) {
			return nil, fmt.Errorf("%w: %s must be a percentage between 0 and 100", ErrInvalidSettings, field)
		}
	}
	if r.OccupancyTaxEnabled && !r.OccupancyTaxRate.Valid {
		return nil, fmt.Errorf("%w: occupancy_tax_rate is required when the tax is enabled", ErrInvalidSettings)
	}
	if r.CheckoutTime != "" {
		if _, err := time.Parse("15:04", r.CheckoutTime); err != nil {
			return nil, fmt.Errorf("%w: checkout_time must be HH:MM", ErrInvalidSettings)
		}
	}
	if r.Timezone != "" {
		if _, err := time.LoadLocation(r.Timezone); err != nil {
			return nil, fmt.Errorf("%w: unknown timezone %q", ErrInvalidSettings, r.Timezone)
		}
	}

	return &Tenant{
		Name:                 strings.TrimSpace(r.Name),
		Currency:             strings.ToLower(r.Currency),
		SubAccountID:         r.SubAccountID,
		CommissionRate:       *r.CommissionRate,
		DayUseCommissionRate: r.DayUseCommissionRate,
		FixedFeeMinor:        r.FixedFeeMinor,
		OccupancyTaxEnabled:  r.OccupancyTaxEnabled,
		OccupancyTaxRate:     r.OccupancyTaxRate,
		DayPassPriceMinor:    r.DayPassPriceMinor,
		CheckoutTime:         r.CheckoutTime,
		Timezone:             r.Timezone,
	}, nil
}

type CreateResourceRequest struct {
	Name          string `json:"name" validate:"required,max=255"`
	PriceMinor    int64  `json:"price_minor" validate:"gt=0"`
	PetAllowed    bool   `json:"pet_allowed"`
	DayUseAllowed bool   `json:"day_use_allowed"`
}

type ResourceListResponse struct {
	TenantID  int64      `json:"tenant_id"`
	Resources []Resource `json:"resources"`
}
