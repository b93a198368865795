package timesheet

import "github.com/shopspring/decimal"

var minutesPerHour = decimal.NewFromInt(60)

// Totals holds the figures derived from a timesheet's line items. None of
// these values are ever persisted.
type Totals struct {
	Minutes int
	Hours   decimal.Decimal
	Cost    decimal.Decimal
}

// ComputeTotals derives total minutes, hours, and cost for a set of
// line-item minutes billed at an hourly rate. Hours and cost are rounded to
// 2 decimal places with halves away from zero, so 37 minutes yields 0.62
// hours. Deterministic and order-independent.
func ComputeTotals(rate decimal.Decimal, minutes []int) Totals {
	sum := 0
	for _, m := range minutes {
		sum += m
	}
	hours := decimal.NewFromInt(int64(sum)).Div(minutesPerHour).Round(2)
	cost := hours.Mul(rate).Round(2)
	return Totals{Minutes: sum, Hours: hours, Cost: cost}
}
