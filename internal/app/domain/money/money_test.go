package money

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestConvertUSD(t *testing.T) {
	cases := []struct {
		name string
		usd  string
		rate string
		want string
	}{
		{"even division", "100", "50", "2"},
		{"sub-unit result", "1", "50", "0.02"},
		{"repeating decimal rounds at native scale", "1", "3", "0.333333333333333333"},
		{"half rounds away from zero", "1", "6", "0.166666666666666667"},
		{"zero usd", "0", "50", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ConvertUSD(dec(tc.usd), dec(tc.rate))
			if err != nil {
				t.Fatalf("ConvertUSD(%s, %s): %v", tc.usd, tc.rate, err)
			}
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("ConvertUSD(%s, %s) = %s, want %s", tc.usd, tc.rate, got, tc.want)
			}
		})
	}
}

func TestConvertUSDRejectsBadInputs(t *testing.T) {
	if _, err := ConvertUSD(dec("-1"), dec("50")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative usd: got %v, want ErrInvalidAmount", err)
	}
	if _, err := ConvertUSD(dec("1"), decimal.Zero); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("zero rate: got %v, want ErrInvalidAmount", err)
	}
	if _, err := ConvertUSD(dec("1"), dec("-50")); !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("negative rate: got %v, want ErrInvalidAmount", err)
	}
}

func TestFeeSplit(t *testing.T) {
	fee, net := FeeSplit(dec("2"), 50)
	if !fee.Equal(dec("0.01")) || !net.Equal(dec("1.99")) {
		t.Fatalf("FeeSplit(2, 50) = %s/%s, want 0.01/1.99", fee, net)
	}

	fee, net = FeeSplit(dec("1"), 30)
	if !fee.Equal(dec("0.003")) || !net.Equal(dec("0.997")) {
		t.Fatalf("FeeSplit(1, 30) = %s/%s, want 0.003/0.997", fee, net)
	}

	// fee + net must reassemble the original amount exactly.
	amount := dec("1.234567890123456789")
	fee, net = FeeSplit(amount, 125)
	if !fee.Add(net).Equal(amount) {
		t.Fatalf("fee %s + net %s != %s", fee, net, amount)
	}
}

func TestFeeSplitZeroBps(t *testing.T) {
	fee, net := FeeSplit(dec("2"), 0)
	if fee.Sign() != 0 || !net.Equal(dec("2")) {
		t.Fatalf("FeeSplit(2, 0) = %s/%s, want 0/2", fee, net)
	}
}

func TestParseAmount(t *testing.T) {
	got, err := ParseAmount("  1.5 ")
	if err != nil {
		t.Fatalf("ParseAmount: %v", err)
	}
	if !got.Equal(dec("1.5")) {
		t.Fatalf("ParseAmount = %s, want 1.5", got)
	}

	for _, bad := range []string{"", "abc", "0", "-1"} {
		if _, err := ParseAmount(bad); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("ParseAmount(%q): got %v, want ErrInvalidAmount", bad, err)
		}
	}
}
