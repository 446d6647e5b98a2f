package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the canonical, sortable form of a work date.
const DateLayout = "2006-01-02"

type (
	// Date is a calendar day in UTC with no time component.
	Date struct {
		time.Time
	}

	// WageRecord is one payment to a worker for a day of work.
	WageRecord struct {
		ID         int64           `json:"id"`
		WorkerName string          `json:"worker_name"`
		Category   string          `json:"category,omitempty"`
		Amount     decimal.Decimal `json:"salary"`
		WorkDate   Date            `json:"date"`
		Note       string          `json:"notes,omitempty"`
	}

	// Worker is a registered person records can be attributed to.
	Worker struct {
		ID       int64  `json:"id"`
		Name     string `json:"worker_name"`
		Category string `json:"category,omitempty"`
		Contact  string `json:"contact,omitempty"`
	}
)

var (
	ErrValidation       = errors.New("validation failed")
	ErrDuplicate        = errors.New("duplicate")
	ErrNotFound         = errors.New("not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrEmptyInput       = errors.New("empty input")

	ErrInvalidDate     = fmt.Errorf("%w: invalid date", ErrValidation)
	ErrInvalidAmount   = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrEmptyWorkerName = fmt.Errorf("%w: empty worker name", ErrValidation)
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string. Out of range days are rejected
// rather than normalised into the next month.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{Time: t}, nil
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return NewDate(y, int(m), d)
}

func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format(DateLayout)
}

// MonthKey returns the YYYY-MM bucket the date belongs to.
func (d Date) MonthKey() string {
	return d.Format("2006-01")
}

func (d Date) Validate() error {
	if d.IsZero() {
		return fmt.Errorf("%w: date cannot be zero", ErrInvalidDate)
	}
	return nil
}

// Before and After compare calendar days.
func (d Date) Before(o Date) bool { return d.Time.Before(o.Time) }
func (d Date) After(o Date) bool  { return d.Time.After(o.Time) }
func (d Date) Equal(o Date) bool  { return d.Time.Equal(o.Time) }

// MarshalText implements encoding.TextMarshaler using the canonical layout.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	if len(b) == 0 {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON overrides the promoted time.Time encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "null" {
		s = ""
	}
	return d.UnmarshalText([]byte(s))
}

func (r WageRecord) Validate() error {
	if strings.TrimSpace(r.WorkerName) == "" {
		return ErrEmptyWorkerName
	}
	if err := r.WorkDate.Validate(); err != nil {
		return err
	}
	return CheckAmount(r.Amount)
}

func (w Worker) Validate() error {
	if strings.TrimSpace(w.Name) == "" {
		return ErrEmptyWorkerName
	}
	return nil
}

// Unavailable wraps an underlying I/O error as ErrStoreUnavailable.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}
