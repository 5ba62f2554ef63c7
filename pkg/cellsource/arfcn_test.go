package cellsource

import "testing"

func TestLTEFrequencyHz(t *testing.T) {
	cases := []struct {
		arfcn uint64
		want  uint64
	}{
		{2750, 2_620_000_000},
		{1710, 1_856_000_000},
		{300, 2_140_000_000},
	}
	for _, c := range cases {
		got, err := LTEFrequencyHz(c.arfcn)
		if err != nil {
			t.Fatalf("LTEFrequencyHz(%d): unexpected error: %v", c.arfcn, err)
		}
		if got != c.want {
			t.Errorf("LTEFrequencyHz(%d) = %d, want %d", c.arfcn, got, c.want)
		}
	}
}

func TestLTEFrequencyHzOutOfRange(t *testing.T) {
	if _, err := LTEFrequencyHz(999_999); err == nil {
		t.Fatal("expected error for out-of-range arfcn")
	}
}

func TestPRBFromCellID(t *testing.T) {
	cases := []struct {
		cellID uint64
		want   uint16
	}{
		{21, 50},   // O2 override
		{41, 100},  // O2 override
		{6, 50},    // Telekom override
		{7, 100},   // Telekom override
		{99999, 100}, // default
	}
	for _, c := range cases {
		if got := PRBFromCellID(c.cellID); got != c.want {
			t.Errorf("PRBFromCellID(%d) = %d, want %d", c.cellID, got, c.want)
		}
	}
}

func TestNRFrequencyHz(t *testing.T) {
	cases := []struct {
		arfcn uint64
		want  uint64
	}{
		{422000, 2_110_000_000},
		{620000, 3_300_000_000},
		{2016667, 24_250_080_000},
	}
	for _, c := range cases {
		got, err := NRFrequencyHz(c.arfcn)
		if err != nil {
			t.Fatalf("NRFrequencyHz(%d): unexpected error: %v", c.arfcn, err)
		}
		if got != c.want {
			t.Errorf("NRFrequencyHz(%d) = %d, want %d", c.arfcn, got, c.want)
		}
	}
}
