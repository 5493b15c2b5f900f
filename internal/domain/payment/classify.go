package payment

import (
	"fmt"
	"strconv"
	"strings"

	"staybook/internal/domain/booking"
	"staybook/internal/pkg/validator"
)

// Metadata keys carried on the payment intent.
const (
	MetaKind         = "booking_kind"
	MetaTenantID     = "tenant_id"
	MetaResourceID   = "resource_id"
	MetaFirstName    = "guest_first_name"
	MetaLastName     = "guest_last_name"
	MetaEmail        = "guest_email"
	MetaPhone        = "guest_phone"
	MetaLocale       = "locale"
	MetaCheckIn      = "check_in"
	MetaCheckOut     = "check_out"
	MetaAdults       = "adults"
	MetaChildren     = "children"
	MetaAddonsTotal  = "addons_total"
	MetaOccupancyTax = "occupancy_tax"
)

type Guest struct {
	FirstName string `validate:"required,max=255"`
	LastName  string `validate:"required,max=255"`
	Email     string `validate:"required,email"`
	Phone     string `validate:"max=64"`
	Locale    string `validate:"locale"`
}

type Party struct {
	Adults   int `validate:"min=1,max=50"`
	Children int `validate:"min=0,max=50"`
}

// Payload is the typed form of an event's metadata. Exactly one of
// NightStay, DayUse and Classic.
type Payload interface {
	Kind() booking.Kind
	Tenant() int64
	Resource() *int64
	draft() *booking.Booking
}

type NightStay struct {
	TenantID          int64 `validate:"gt=0"`
	ResourceID        int64 `validate:"gt=0"`
	Guest             Guest
	Party             Party
	Window            booking.Window
	AddonsMinor       int64 `validate:"min=0"`
	OccupancyTaxMinor int64 `validate:"min=0"`
}

type DayUse struct {
	TenantID    int64 `validate:"gt=0"`
	ResourceID  int64 `validate:"gt=0"`
	Guest       Guest
	Party       Party
	Window      booking.Window
	AddonsMinor int64 `validate:"min=0"`
}

// Classic is a multi-night stay that may not be bound to a resource.
type Classic struct {
	TenantID          int64 `validate:"gt=0"`
	ResourceID        *int64
	Guest             Guest
	Party             Party
	Window            booking.Window
	AddonsMinor       int64 `validate:"min=0"`
	OccupancyTaxMinor int64 `validate:"min=0"`
}

func (NightStay) Kind() booking.Kind { return booking.KindNightStay }
func (p NightStay) Tenant() int64    { return p.TenantID }
func (p NightStay) Resource() *int64 {
	id := p.ResourceID
	return &id
}

func (DayUse) Kind() booking.Kind { return booking.KindDayUse }
func (p DayUse) Tenant() int64    { return p.TenantID }
func (p DayUse) Resource() *int64 {
	id := p.ResourceID
	return &id
}

func (Classic) Kind() booking.Kind { return booking.KindClassic }
func (p Classic) Tenant() int64    { return p.TenantID }
func (p Classic) Resource() *int64 { return p.ResourceID }

func (p NightStay) draft() *booking.Booking {
	b := baseDraft(p.TenantID, p.Resource(), p.Guest, p.Party, p.Window)
	b.Kind = booking.KindNightStay
	b.AddonsMinor = optional(p.AddonsMinor)
	b.OccupancyTaxMinor = optional(p.OccupancyTaxMinor)
	return b
}

func (p DayUse) draft() *booking.Booking {
	b := baseDraft(p.TenantID, p.Resource(), p.Guest, p.Party, p.Window)
	b.Kind = booking.KindDayUse
	b.AddonsMinor = optional(p.AddonsMinor)
	return b
}

func (p Classic) draft() *booking.Booking {
	b := baseDraft(p.TenantID, p.ResourceID, p.Guest, p.Party, p.Window)
	b.Kind = booking.KindClassic
	b.AddonsMinor = optional(p.AddonsMinor)
	b.OccupancyTaxMinor = optional(p.OccupancyTaxMinor)
	return b
}

// Classify parses event metadata into a typed payload. Every failure wraps
// ErrClassification.
func Classify(meta map[string]string) (Payload, error) {
	r := metaReader{meta: meta}
	kind := booking.Kind(r.str(MetaKind))
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown booking kind %q", ErrClassification, kind)
	}

	tenantID := r.int64(MetaTenantID, true)
	guest := Guest{
		FirstName: r.str(MetaFirstName),
		LastName:  r.str(MetaLastName),
		Email:     r.str(MetaEmail),
		Phone:     r.str(MetaPhone),
		Locale:    booking.Language(r.str(MetaLocale)),
	}
	party := Party{
		Adults:   int(r.int64(MetaAdults, false)),
		Children: int(r.int64(MetaChildren, false)),
	}
	if party.Adults == 0 && r.str(MetaAdults) == "" {
		party.Adults = 1
	}
	addons := r.int64(MetaAddonsTotal, false)

	var p Payload
	switch kind {
	case booking.KindNightStay:
		p = NightStay{
			TenantID:          tenantID,
			ResourceID:        r.int64(MetaResourceID, true),
			Guest:             guest,
			Party:             party,
			Window:            r.window(true),
			AddonsMinor:       addons,
			OccupancyTaxMinor: r.int64(MetaOccupancyTax, false),
		}
	case booking.KindDayUse:
		w := r.window(false)
		if r.err == nil && w.CheckIn.IsZero() {
			w, r.err = booking.DayUseWindow(r.str(MetaCheckIn))
		}
		if r.err == nil && w.Nights() != 1 {
			r.err = fmt.Errorf("day use spans %d days", w.Nights())
		}
		p = DayUse{
			TenantID:    tenantID,
			ResourceID:  r.int64(MetaResourceID, true),
			Guest:       guest,
			Party:       party,
			Window:      w,
			AddonsMinor: addons,
		}
	case booking.KindClassic:
		var rid *int64
		if r.str(MetaResourceID) != "" {
			id := r.int64(MetaResourceID, true)
			rid = &id
		}
		p = Classic{
			TenantID:          tenantID,
			ResourceID:        rid,
			Guest:             guest,
			Party:             party,
			Window:            r.window(true),
			AddonsMinor:       addons,
			OccupancyTaxMinor: r.int64(MetaOccupancyTax, false),
		}
	}

	if r.err != nil {
		return nil, fmt.Errorf("%w: %v", ErrClassification, r.err)
	}
	if err := validator.Struct(p); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrClassification, kind, err)
	}
	return p, nil
}

// EncodeMetadata is the inverse of Classify, used when creating intents.
func EncodeMetadata(p Payload) map[string]string {
	b := p.draft()
	m := map[string]string{
		MetaKind:      string(p.Kind()),
		MetaTenantID:  strconv.FormatInt(p.Tenant(), 10),
		MetaFirstName: b.GuestFirstName,
		MetaLastName:  b.GuestLastName,
		MetaEmail:     b.GuestEmail,
		MetaLocale:    b.Locale,
		MetaCheckIn:   booking.FormatDate(b.CheckIn),
		MetaCheckOut:  booking.FormatDate(b.CheckOut),
		MetaAdults:    strconv.Itoa(b.Adults),
		MetaChildren:  strconv.Itoa(b.Children),
	}
	if rid := p.Resource(); rid != nil {
		m[MetaResourceID] = strconv.FormatInt(*rid, 10)
	}
	if b.GuestPhone != "" {
		m[MetaPhone] = b.GuestPhone
	}
	if b.AddonsMinor != nil {
		m[MetaAddonsTotal] = strconv.FormatInt(*b.AddonsMinor, 10)
	}
	if b.OccupancyTaxMinor != nil {
		m[MetaOccupancyTax] = strconv.FormatInt(*b.OccupancyTaxMinor, 10)
	}
	return m
}

type metaReader struct {
	meta map[string]string
	err  error
}

func (r *metaReader) str(key string) string {
	return strings.TrimSpace(r.meta[key])
}

func (r *metaReader) int64(key string, required bool) int64 {
	raw := r.str(key)
	if raw == "" {
		if required && r.err == nil {
			r.err = fmt.Errorf("missing %s", key)
		}
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("bad %s %q", key, raw)
	}
	return v
}

// window parses the stay bounds. Without requireOut a missing check-out
// yields the zero Window.
func (r *metaReader) window(requireOut bool) booking.Window {
	if r.err != nil {
		return booking.Window{}
	}
	in, out := r.str(MetaCheckIn), r.str(MetaCheckOut)
	if in == "" {
		r.err = fmt.Errorf("missing %s", MetaCheckIn)
		return booking.Window{}
	}
	if out == "" {
		if requireOut {
			r.err = fmt.Errorf("missing %s", MetaCheckOut)
		}
		return booking.Window{}
	}
	w, err := booking.ParseWindow(in, out)
	if err != nil {
		r.err = err
	}
	return w
}

func baseDraft(tenantID int64, resourceID *int64, g Guest, party Party, w booking.Window) *booking.Booking {
	return &booking.Booking{
		TenantID:       tenantID,
		ResourceID:     resourceID,
		GuestFirstName: g.FirstName,
		GuestLastName:  g.LastName,
		GuestEmail:     g.Email,
		GuestPhone:     g.Phone,
		Locale:         g.Locale,
		CheckIn:        w.CheckIn,
		CheckOut:       w.CheckOut,
		Adults:         party.Adults,
		Children:       party.Children,
	}
}

func optional(v int64) *int64 {
	if v == 0 {
		return nil
	}
	return &v
}
