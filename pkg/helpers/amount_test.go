package helpers

import (
	"math/big"
	"testing"
)

func TestParseDecimal(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    *big.Rat
		wantErr bool
	}{
		{name: "integer", input: "100", want: big.NewRat(100, 1)},
		{name: "fraction", input: "0.5", want: big.NewRat(1, 2)},
		{name: "small fraction", input: "0.0001", want: big.NewRat(1, 10000)},
		{name: "leading dot", input: ".5", want: big.NewRat(1, 2)},
		{name: "trailing dot", input: "5.", want: big.NewRat(5, 1)},
		{name: "zero", input: "0", want: big.NewRat(0, 1)},
		{name: "high precision", input: "1.000000000000000001", want: new(big.Rat).SetFrac(mustInt("1000000000000000001"), mustInt("1000000000000000000"))},
		{name: "empty", input: "", wantErr: true},
		{name: "bare dot", input: ".", wantErr: true},
		{name: "two dots", input: "1.2.3", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "explicit plus", input: "+1", wantErr: true},
		{name: "scientific", input: "1e18", wantErr: true},
		{name: "grouping", input: "1,000", wantErr: true},
		{name: "whitespace", input: " 1", wantErr: true},
		{name: "hex", input: "0x10", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDecimal(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseDecimal(%q) = %v, want error", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseDecimal(%q) error: %v", tt.input, err)
			}
			if got.Cmp(tt.want) != 0 {
				t.Errorf("ParseDecimal(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFormatDecimal(t *testing.T) {
	tests := []struct {
		name     string
		r        *big.Rat
		decimals int
		want     string
	}{
		{name: "integer", r: big.NewRat(100, 1), decimals: 6, want: "100"},
		{name: "half", r: big.NewRat(1, 2), decimals: 6, want: "0.5"},
		{name: "trim trailing zeros", r: big.NewRat(25, 10), decimals: 8, want: "2.5"},
		{name: "rounds to precision", r: big.NewRat(1, 3), decimals: 4, want: "0.3333"},
		{name: "zero", r: big.NewRat(0, 1), decimals: 6, want: "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FormatDecimal(tt.r, tt.decimals); got != tt.want {
				t.Errorf("FormatDecimal = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"1", "0.001", "2850.75", "123456.789"} {
		r, err := ParseDecimal(s)
		if err != nil {
			t.Fatalf("ParseDecimal(%q) error: %v", s, err)
		}
		if got := FormatDecimal(r, 18); got != s {
			t.Errorf("round trip %q = %q", s, got)
		}
	}
}

func mustInt(s string) *big.Int {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad test integer: " + s)
	}
	return i
}
