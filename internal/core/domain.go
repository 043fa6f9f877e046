package core

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"time"
)

type (
	// MonthKey identifies a ledger month as YYYY-MM.
	MonthKey string

	Money struct {
		Cents int64
	}

	// Month holds the fixed line items of one ledger month. JSON names are
	// the ones the browser client has always sent.
	Month struct {
		Internet Money `json:"gInternet"`
		Expensa  Money `json:"gExpensa"`
		Agua     Money `json:"gAgua"`
		Gas      Money `json:"gGas"`
		Luz      Money `json:"gLuz"`
		Tarjeta  Money `json:"gTarjeta"`
		Auto     Money `json:"gAuto"`
		Cochera  Money `json:"gCochera"`
		Catastro Money `json:"iCatastro"` // income
		Admin    Money `json:"iAdmin"`    // income
	}

	// MonthEntry pairs a month with its key, used where ordering matters.
	MonthEntry struct {
		Key   MonthKey
		Month Month
	}
)

var (
	ErrInvalidMonthKey = errors.New("invalid month key")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrNegativeAmount  = errors.New("negative amount")
)

var monthKeyPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)

// ParseMonthKey validates s as YYYY-MM with a month between 01 and 12.
func ParseMonthKey(s string) (MonthKey, error) {
	if !monthKeyPattern.MatchString(s) {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	if _, err := time.Parse("2006-01", s); err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidMonthKey, s)
	}
	return MonthKey(s), nil
}

func (k MonthKey) String() string {
	return string(k)
}

func (m Money) Validate() error {
	if m.Cents < 0 {
		return ErrNegativeAmount
	}
	return nil
}

func (m Month) Validate() error {
	for _, f := range m.fields() {
		if err := f.amount.Validate(); err != nil {
			return fmt.Errorf("%s: %w", f.name, err)
		}
	}
	return nil
}

type field struct {
	name   string
	amount Money
}

func (m Month) fields() []field {
	return []field{
		{"gInternet", m.Internet},
		{"gExpensa", m.Expensa},
		{"gAgua", m.Agua},
		{"gGas", m.Gas},
		{"gLuz", m.Luz},
		{"gTarjeta", m.Tarjeta},
		{"gAuto", m.Auto},
		{"gCochera", m.Cochera},
		{"iCatastro", m.Catastro},
		{"iAdmin", m.Admin},
	}
}

// SortedMonths returns the map entries ordered by key ascending.
func SortedMonths(months map[MonthKey]Month) []MonthEntry {
	out := make([]MonthEntry, 0, len(months))
	for k, m := range months {
		out = append(out, MonthEntry{Key: k, Month: m})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}
