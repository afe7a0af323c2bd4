package ledger

import (
	"fmt"

	"github.com/cockroachdb/apd/v3"
)

// MaxDecimals bounds the display precision of the token.
const MaxDecimals = 18

// FormatAmount renders a minor-unit quantity as an exact decimal string,
// e.g. FormatAmount(10_000_000, 6) == "10.000000".
func FormatAmount(amount int64, decimals int32) string {
	return apd.New(amount, -decimals).Text('f')
}

// ParseAmount converts a decimal string into minor units. Values carrying
// more fractional digits than decimals, or exceeding int64, are rejected.
func ParseAmount(s string, decimals int32) (int64, error) {
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if d.Form != apd.Finite {
		return 0, fmt.Errorf("parse amount %q: not a finite number", s)
	}

	ctx := apd.BaseContext.WithPrecision(40)
	var scaled apd.Decimal
	cond, err := ctx.Quantize(&scaled, d, -decimals)
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	if cond.Inexact() {
		return 0, fmt.Errorf("parse amount %q: more than %d fractional digits", s, decimals)
	}

	scaled.Exponent = 0
	n, err := scaled.Int64()
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", s, err)
	}
	return n, nil
}
