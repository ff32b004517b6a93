// Package money implements the EAC Money literal domain.
//
// What: a currency code restricted to the closed set {USD, EUR, GBP}
// paired with an exact decimal amount.
// How: amounts are math/big.Rat, the same representation a hand-written
// SQL engine's decimal column type uses for exact decimal arithmetic,
// so money math never degrades to float64. Currency codes are validated with
// golang.org/x/text/currency so the accepted-code check and its error
// message come from a real ISO-4217 table instead of a hand-rolled
// switch.
// Why: money arithmetic never mixes currencies; this is the value the
// type checker and interpreter both consult to enforce that invariant.
package money

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/text/currency"
)

// Allowed is the closed currency set EAC accepts.
var Allowed = map[string]bool{"USD": true, "EUR": true, "GBP": true}

// Money is an exact decimal amount in one of the allowed currencies.
type Money struct {
	Currency string
	Amount   *big.Rat
}

// ParseCurrency validates a currency code against both the closed EAC
// set and ISO-4217 (via golang.org/x/text/currency), returning the
// canonical upper-case code.
func ParseCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	unit, err := currency.ParseISO(code)
	if err != nil {
		return "", errors.Wrapf(err, "currency code %q is not a valid ISO-4217 code", code)
	}
	canon := unit.String()
	if !Allowed[canon] {
		return "", errors.Errorf("currency %q is not one of the allowed EAC currencies (USD, EUR, GBP)", canon)
	}
	return canon, nil
}

// ParseAmount parses a decimal literal into an exact rational,
// stripping `_` thousands separators.
func ParseAmount(lit string) (*big.Rat, error) {
	clean := strings.ReplaceAll(lit, "_", "")
	r, ok := new(big.Rat).SetString(clean)
	if !ok {
		return nil, errors.Errorf("invalid money amount %q", lit)
	}
	return r, nil
}

// New constructs a Money value, validating the currency code.
func New(currencyCode string, amount *big.Rat) (Money, error) {
	canon, err := ParseCurrency(currencyCode)
	if err != nil {
		return Money{}, err
	}
	return Money{Currency: canon, Amount: amount}, nil
}

// String renders the currency and the amount rounded to two fractional
// digits, e.g. "USD 12.50".
func (m Money) String() string {
	return fmt.Sprintf("%s %s", m.Currency, m.DecimalString())
}

// DecimalString renders the amount rounded to exactly two fractional
// digits, instead of the numerator/denominator form big.Rat.String
// would show.
func (m Money) DecimalString() string {
	f, _ := m.Amount.Float64()
	s := fmt.Sprintf("%.2f", f)
	return s
}

// Add returns m+o. Both sides must share a currency.
func Add(a, b Money) (Money, error) {
	if a.Currency != b.Currency {
		return Money{}, errors.Errorf("currency mismatch: %s vs %s", a.Currency, b.Currency)
	}
	return Money{Currency: a.Currency, Amount: new(big.Rat).Add(a.Amount, b.Amount)}, nil
}

// Sub returns m-o. Both sides must share a currency.
func Sub(a, b Money) (Money, error) {
	if a.Currency != b.Currency {
		return Money{}, errors.Errorf("currency mismatch: %s vs %s", a.Currency, b.Currency)
	}
	return Money{Currency: a.Currency, Amount: new(big.Rat).Sub(a.Amount, b.Amount)}, nil
}

// MulScalar returns m*n, preserving currency.
func MulScalar(a Money, n *big.Rat) Money {
	return Money{Currency: a.Currency, Amount: new(big.Rat).Mul(a.Amount, n)}
}

// Compare compares two Money values of the same currency. Mismatched
// currencies are a programmer error by this point (the type checker
// must reject them earlier) and return an error rather than panicking.
func Compare(a, b Money) (int, error) {
	if a.Currency != b.Currency {
		return 0, errors.Errorf("currency mismatch: %s vs %s", a.Currency, b.Currency)
	}
	return a.Amount.Cmp(b.Amount), nil
}
