package epoch

import "testing"

func TestValidate(t *testing.T) {
	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected zero-length config to be rejected")
	}
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestAt(t *testing.T) {
	cfg := Config{Seconds: 100}
	cases := []struct {
		unix int64
		want uint64
	}{
		{unix: 0, want: 0},
		{unix: -5, want: 0},
		{unix: 99, want: 0},
		{unix: 100, want: 1},
		{unix: 250, want: 2},
	}
	for _, tc := range cases {
		if got := cfg.At(tc.unix); got != tc.want {
			t.Fatalf("At(%d) = %d, want %d", tc.unix, got, tc.want)
		}
	}
}
