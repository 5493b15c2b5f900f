// Package domain groups the persisted models of every bounded context so the
// binaries migrate one consistent schema.
package domain

import (
	"staybook/internal/domain/booking"
	"staybook/internal/domain/catalog"
	"staybook/internal/domain/commission"
	"staybook/internal/domain/notification"
)

// Models returns the gorm models in dependency order.
func Models() []any {
	return []any{
		&catalog.Tenant{},
		&catalog.Resource{},
		&booking.Booking{},
		&commission.Collection{},
		&notification.Delivery{},
	}
}
