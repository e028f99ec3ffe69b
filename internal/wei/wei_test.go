package wei

import (
	"math/big"
	"testing"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"0", "0"},
		{"1", "1000000000000000000"},
		{"5", "5000000000000000000"},
		{"0.25", "250000000000000000"},
		{"0.000000000000000001", "1"},
		{"10.5", "10500000000000000000"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := Parse(tc.in)
			if err != nil {
				t.Fatalf("Parse(%q): %v", tc.in, err)
			}
			want, _ := new(big.Int).SetString(tc.want, 10)
			if got.Cmp(want) != 0 {
				t.Fatalf("Parse(%q) = %s, want %s", tc.in, got, want)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "-1", "1e", "0.0000000000000000001", "1,5"} {
		t.Run(in, func(t *testing.T) {
			if _, err := Parse(in); err == nil {
				t.Fatalf("Parse(%q) should fail", in)
			}
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, in := range []string{"0", "1", "5", "0.25", "10.5"} {
		w, err := Parse(in)
		if err != nil {
			t.Fatalf("Parse(%q): %v", in, err)
		}
		if got := Format(w); got != in {
			t.Fatalf("Format(Parse(%q)) = %q", in, got)
		}
	}
	if got := Format(nil); got != "0" {
		t.Fatalf("Format(nil) = %q", got)
	}
}
