package core

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1.00", true},
		{"1.0", "1.00", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half away from zero
		{" 2.50 ", "2.50", true},
		{"99999999.99", "99999999.99", true},
		{"100000000", "", false},
		{"-1", "", false},
		{"+1", "", false},
		{"0", "", false},
		{"0.001", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || FormatAmount(got) != tc.out {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, FormatAmount(got), err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestEffect(t *testing.T) {
	amount := decimal.RequireFromString("12.50")
	if got := Effect(KindExpense, amount); !got.Equal(decimal.RequireFromString("-12.50")) {
		t.Fatalf("expense effect = %s", got)
	}
	if got := Effect(KindIncome, amount); !got.Equal(amount) {
		t.Fatalf("income effect = %s", got)
	}
}

func TestApplyReverseRoundTrip(t *testing.T) {
	start := decimal.RequireFromString("100.00")
	for _, k := range []Kind{KindExpense, KindIncome} {
		tx := Transaction{Kind: k, Amount: decimal.RequireFromString("33.33")}
		if got := Reverse(Apply(start, tx), tx); !got.Equal(start) {
			t.Fatalf("%s: apply+reverse = %s, want %s", k, got, start)
		}
	}
}
