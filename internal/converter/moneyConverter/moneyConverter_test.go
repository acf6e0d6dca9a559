package moneyConverter

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestFormat(t *testing.T) {
	cases := []struct {
		amount   string
		currency string
		want     string
	}{
		{"8500", "USD", "$8,500.00"},
		{"0.005", "USD", "$0.01"},
		{"150.5", "ZZZ", "150.50 ZZZ"},
	}
	for _, tc := range cases {
		if got := Format(decimal.RequireFromString(tc.amount), tc.currency); got != tc.want {
			t.Errorf("Format(%s, %s) = %q, want %q", tc.amount, tc.currency, got, tc.want)
		}
	}
}
