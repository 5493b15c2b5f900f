package commission

import (
	"context"
	"sort"
	"strings"
	"time"

	"staybook/internal/domain/booking"
)

// ReportLine compares, for one sub-account and currency, the commission the
// ledger says is owed on deferred bookings with what was actually collected.
type ReportLine struct {
	SubAccountID     string `json:"sub_account_id"`
	Currency         string `json:"currency"`
	Bookings         int64  `json:"bookings"`
	ExpectedMinor    int64  `json:"expected_minor"`
	CollectedMinor   int64  `json:"collected_minor"`
	InFlightMinor    int64  `json:"in_flight_minor"`
	OutstandingMinor int64  `json:"outstanding_minor"`
	Pending          int    `json:"pending"`
	Failed           int    `json:"failed"`
	Abandoned        int    `json:"abandoned"`
	Missing          int64  `json:"missing"`
	Discrepancy      bool   `json:"discrepancy"`
}

// Report dates are inclusive calendar days.
type Report struct {
	From           string       `json:"from"`
	To             string       `json:"to"`
	ToleranceMinor int64        `json:"tolerance_minor"`
	Lines          []ReportLine `json:"lines"`
	Discrepancies  int          `json:"discrepancies"`
}

type reportKey struct {
	subAccount string
	currency   string
}

type expectedRow struct {
	SubAccountID string
	Currency     string
	Bookings     int64
	Total        int64
}

// Report covers deferred bookings created in [from, to). A line is flagged
// when expected minus collected, ignoring collections still in flight,
// exceeds toleranceMinor.
func (r *Repository) Report(ctx context.Context, from, to time.Time, toleranceMinor int64) (*Report, error) {
	var expected []expectedRow
	if err := r.db.WithContext(ctx).
		Table("bookings AS b").
		Select("t.sub_account_id AS sub_account_id, LOWER(b.currency) AS currency, COUNT(*) AS bookings, COALESCE(SUM(b.commission_minor), 0) AS total").
		Joins("JOIN tenants t ON t.id = b.tenant_id").
		Where("b.commission_deferred = ? AND b.payment_status = ? AND b.created_at >= ? AND b.created_at < ?",
			true, booking.PaymentSucceeded, from.UTC(), to.UTC()).
		Group("t.sub_account_id, LOWER(b.currency)").
		Scan(&expected).Error; err != nil {
		return nil, err
	}

	var cols []Collection
	if err := r.db.WithContext(ctx).
		Table("commission_collections AS c").
		Select("c.*").
		Joins("JOIN bookings b ON b.id = c.booking_id").
		Where("b.created_at >= ? AND b.created_at < ?", from.UTC(), to.UTC()).
		Scan(&cols).Error; err != nil {
		return nil, err
	}

	lines := make(map[reportKey]*ReportLine)
	line := func(k reportKey) *ReportLine {
		l, ok := lines[k]
		if !ok {
			l = &ReportLine{SubAccountID: k.subAccount, Currency: k.currency}
			lines[k] = l
		}
		return l
	}

	for _, e := range expected {
		l := line(reportKey{e.SubAccountID, strings.ToLower(e.Currency)})
		l.Bookings = e.Bookings
		l.ExpectedMinor = e.Total
	}

	tasks := make(map[reportKey]int64)
	for _, c := range cols {
		k := reportKey{c.SubAccountID, strings.ToLower(c.Currency)}
		l := line(k)
		tasks[k]++
		switch {
		case c.Status == StatusCollected:
			l.CollectedMinor += c.CollectedMinor
		case c.Status.InFlight():
			l.InFlightMinor += c.AmountMinor
			l.Pending++
		case c.Status == StatusFailed:
			l.Failed++
		case c.Status == StatusAbandoned:
			l.Abandoned++
		}
	}

	out := &Report{
		From:           booking.FormatDate(from),
		To:             booking.FormatDate(to.AddDate(0, 0, -1)),
		ToleranceMinor: toleranceMinor,
		Lines:          make([]ReportLine, 0, len(lines)),
	}
	for k, l := range lines {
		if missing := l.Bookings - tasks[k]; missing > 0 {
			l.Missing = missing
		}
		l.OutstandingMinor = l.ExpectedMinor - l.CollectedMinor
		diff := l.OutstandingMinor - l.InFlightMinor
		if diff < 0 {
			diff = -diff
		}
		l.Discrepancy = diff > toleranceMinor
		if l.Discrepancy {
			out.Discrepancies++
		}
		out.Lines = append(out.Lines, *l)
	}
	sort.Slice(out.Lines, func(i, j int) bool {
		if out.Lines[i].SubAccountID != out.Lines[j].SubAccountID {
			return out.Lines[i].SubAccountID < out.Lines[j].SubAccountID
		}
		return out.Lines[i].Currency < out.Lines[j].Currency
	})
	return out, nil
}
