package money

import (
	"math/big"
	"testing"
)

func TestParseCurrencyAcceptsAllowedCodes(t *testing.T) {
	for _, code := range []string{"usd", "EUR", "gbp"} {
		canon, err := ParseCurrency(code)
		if err != nil {
			t.Fatalf("ParseCurrency(%q): %v", code, err)
		}
		if !Allowed[canon] {
			t.Fatalf("ParseCurrency(%q) = %q, not in Allowed", code, canon)
		}
	}
}

func TestParseCurrencyRejectsDisallowedISOCode(t *testing.T) {
	if _, err := ParseCurrency("JPY"); err == nil {
		t.Fatal("expected JPY to be rejected (not in the EAC allowed set)")
	}
}

func TestParseCurrencyRejectsUnknownCode(t *testing.T) {
	if _, err := ParseCurrency("QQQ"); err == nil {
		t.Fatal("expected a nonsense code to fail ISO-4217 parsing")
	}
}

func TestAddRequiresMatchingCurrency(t *testing.T) {
	a, _ := New("USD", mustRat(t, "10.00"))
	b, _ := New("EUR", mustRat(t, "5.00"))
	if _, err := Add(a, b); err == nil {
		t.Fatal("expected currency mismatch error")
	}
}

func TestAddSumsSameCurrency(t *testing.T) {
	a, _ := New("USD", mustRat(t, "10.50"))
	b, _ := New("USD", mustRat(t, "0.25"))
	sum, err := Add(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if got := sum.DecimalString(); got != "10.75" {
		t.Fatalf("got %s, want 10.75", got)
	}
}

func TestCompareOrdersByAmount(t *testing.T) {
	a, _ := New("USD", mustRat(t, "1.00"))
	b, _ := New("USD", mustRat(t, "2.00"))
	cmp, err := Compare(a, b)
	if err != nil {
		t.Fatal(err)
	}
	if cmp >= 0 {
		t.Fatalf("Compare(1.00, 2.00) = %d, want < 0", cmp)
	}
}

func mustRat(t *testing.T, s string) *big.Rat {
	t.Helper()
	r, err := ParseAmount(s)
	if err != nil {
		t.Fatal(err)
	}
	return r
}
