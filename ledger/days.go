package ledger

import (
	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Decimal day amounts
// =============================================================================
// Durations and entitlements are whole business days today, but amounts are
// decimal so half-day policies don't force a representation change later.

type Days struct {
	Value decimal.Decimal
}

func DaysOf(n int) Days {
	return Days{Value: decimal.NewFromInt(int64(n))}
}

func DaysFromFloat(f float64) Days {
	return Days{Value: decimal.NewFromFloat(f)}
}

func DaysFromString(s string) (Days, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Days{}, err
	}
	return Days{Value: d}, nil
}

func Zero() Days { return Days{Value: decimal.Zero} }

func (a Days) Add(b Days) Days        { return Days{Value: a.Value.Add(b.Value)} }
func (a Days) Sub(b Days) Days        { return Days{Value: a.Value.Sub(b.Value)} }
func (a Days) IsNegative() bool       { return a.Value.IsNegative() }
func (a Days) IsZero() bool           { return a.Value.IsZero() }
func (a Days) Equal(b Days) bool      { return a.Value.Equal(b.Value) }
func (a Days) LessThan(b Days) bool   { return a.Value.LessThan(b.Value) }
func (a Days) GreaterThan(b Days) bool { return a.Value.GreaterThan(b.Value) }
func (a Days) Float64() float64       { f, _ := a.Value.Float64(); return f }
func (a Days) String() string         { return a.Value.String() }
