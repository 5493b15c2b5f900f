package booking

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Window is a half-open stay [CheckIn, CheckOut) at day granularity. A
// checkout on day N and a check-in on day N do not overlap.
type Window struct {
	CheckIn  time.Time
	CheckOut time.Time
}

// Date truncates t to its calendar day, expressed as UTC midnight.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: bad date %q", ErrValidation, s)
	}
	return Date(d), nil
}

func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func NewWindow(checkIn, checkOut time.Time) Window {
	return Window{CheckIn: Date(checkIn), CheckOut: Date(checkOut)}
}

// ParseWindow parses "YYYY-MM-DD" bounds and validates them.
func ParseWindow(checkIn, checkOut string) (Window, error) {
	in, err := ParseDate(checkIn)
	if err != nil {
		return Window{}, err
	}
	out, err := ParseDate(checkOut)
	if err != nil {
		return Window{}, err
	}
	w := Window{CheckIn: in, CheckOut: out}
	return w, w.Validate()
}

func (w Window) Validate() error {
	if w.CheckIn.IsZero() || w.CheckOut.IsZero() {
		return fmt.Errorf("%w: window bounds are required", ErrValidation)
	}
	if !w.CheckOut.After(w.CheckIn) {
		return fmt.Errorf("%w: check-out must be after check-in", ErrValidation)
	}
	return nil
}

func (w Window) Nights() int {
	return int(w.CheckOut.Sub(w.CheckIn).Hours() / 24)
}

func (w Window) Overlaps(o Window) bool {
	return w.CheckIn.Before(o.CheckOut) && o.CheckIn.Before(w.CheckOut)
}

func (w Window) String() string {
	return fmt.Sprintf("[%s, %s)", FormatDate(w.CheckIn), FormatDate(w.CheckOut))
}
