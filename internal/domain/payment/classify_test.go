package payment

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook/internal/domain/booking"
)

func nightStayMeta() map[string]string {
	return map[string]string{
		MetaKind:        "night_stay",
		MetaTenantID:    "1",
		MetaResourceID:  "7",
		MetaFirstName:   "Ada",
		MetaLastName:    "Lovelace",
		MetaEmail:       "ada@example.com",
		MetaLocale:      "FR",
		MetaCheckIn:     "2025-07-10",
		MetaCheckOut:    "2025-07-15",
		MetaAdults:      "2",
		MetaChildren:    "1",
		MetaAddonsTotal: "1500",
	}
}

func TestClassify_NightStay(t *testing.T) {
	p, err := Classify(nightStayMeta())
	require.NoError(t, err)

	stay, ok := p.(NightStay)
	require.True(t, ok)
	assert.Equal(t, int64(7), stay.ResourceID)
	assert.Equal(t, "fr", stay.Guest.Locale)
	assert.Equal(t, 5, stay.Window.Nights())
	assert.Equal(t, 2, stay.Party.Adults)

	b := p.draft()
	assert.Equal(t, booking.KindNightStay, b.Kind)
	require.NotNil(t, b.AddonsMinor)
	assert.Equal(t, int64(1500), *b.AddonsMinor)
	assert.Nil(t, b.OccupancyTaxMinor)
}

func TestClassify_RegionalLocale(t *testing.T) {
	cases := map[string]string{
		"fr-FR":  "fr",
		"pt_BR":  "pt",
		" EN ":   "en",
		"fil":    "fil",
		"x":      "",
		"fr-FR!": "fr",
		"12":     "",
		"":       "",
	}
	for raw, want := range cases {
		meta := nightStayMeta()
		meta[MetaLocale] = raw
		p, err := Classify(meta)
		require.NoError(t, err, "locale %q", raw)
		assert.Equal(t, want, p.(NightStay).Guest.Locale, "locale %q", raw)
	}
}

func TestClassify_DayUseDerivesWindow(t *testing.T) {
	meta := nightStayMeta()
	meta[MetaKind] = "day_use"
	delete(meta, MetaCheckOut)

	p, err := Classify(meta)
	require.NoError(t, err)
	d := p.(DayUse)
	assert.Equal(t, "2025-07-11", booking.FormatDate(d.Window.CheckOut))

	meta[MetaCheckOut] = "2025-07-13"
	_, err = Classify(meta)
	assert.ErrorIs(t, err, ErrClassification)
}

func TestClassify_ClassicWithoutResource(t *testing.T) {
	meta := nightStayMeta()
	meta[MetaKind] = "classic"
	delete(meta, MetaResourceID)

	p, err := Classify(meta)
	require.NoError(t, err)
	assert.Nil(t, p.Resource())
	assert.Equal(t, booking.KindClassic, p.Kind())
}

func TestClassify_Rejects(t *testing.T) {
	cases := map[string]func(m map[string]string){
		"unknown kind":      func(m map[string]string) { m[MetaKind] = "hourly" },
		"missing kind":      func(m map[string]string) { delete(m, MetaKind) },
		"missing tenant":    func(m map[string]string) { delete(m, MetaTenantID) },
		"missing resource":  func(m map[string]string) { delete(m, MetaResourceID) },
		"bad resource":      func(m map[string]string) { m[MetaResourceID] = "seven" },
		"missing email":     func(m map[string]string) { delete(m, MetaEmail) },
		"bad email":         func(m map[string]string) { m[MetaEmail] = "not-an-email" },
		"missing check-out": func(m map[string]string) { delete(m, MetaCheckOut) },
		"zero nights":       func(m map[string]string) { m[MetaCheckOut] = m[MetaCheckIn] },
		"bad date":          func(m map[string]string) { m[MetaCheckIn] = "10/07/2025" },
		"negative addons":   func(m map[string]string) { m[MetaAddonsTotal] = "-1" },
		"zero adults":       func(m map[string]string) { m[MetaAdults] = "0" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			meta := nightStayMeta()
			mutate(meta)
			_, err := Classify(meta)
			assert.ErrorIs(t, err, ErrClassification)
		})
	}
}

func TestEncodeMetadata_ClassifiesBack(t *testing.T) {
	rid := int64(3)
	in := Classic{
		TenantID:          4,
		ResourceID:        &rid,
		Guest:             Guest{FirstName: "Grace", LastName: "Hopper", Email: "grace@example.com", Locale: "es"},
		Party:             Party{Adults: 2},
		Window:            booking.NewWindow(mustDate("2025-09-01"), mustDate("2025-09-04")),
		OccupancyTaxMinor: 900,
	}

	out, err := Classify(EncodeMetadata(in))
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func mustDate(s string) time.Time {
	d, err := booking.ParseDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
