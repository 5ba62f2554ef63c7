package downloader

import "testing"

func TestExtractRttUsFindsMarker(t *testing.T) {
	buf := append([]byte("some payload padding..."), 0xAA, 0xAB, 0xAC, 0x00, 0x01, 0x86, 0xA0, 0xBA, 0xBB, 0xBC)
	got, ok := extractRttUs(buf)
	if !ok {
		t.Fatal("extractRttUs: expected ok=true")
	}
	if got != 100000 {
		t.Errorf("extractRttUs = %d, want 100000", got)
	}
}

func TestExtractRttUsNoMarkerReturnsFalse(t *testing.T) {
	buf := []byte("just a plain payload with no marker in it at all")
	if _, ok := extractRttUs(buf); ok {
		t.Error("extractRttUs: expected ok=false for a buffer without the marker")
	}
}

func TestExtractRttUsShortBufferReturnsFalse(t *testing.T) {
	if _, ok := extractRttUs([]byte{0xAA, 0xAB}); ok {
		t.Error("extractRttUs: expected ok=false for a buffer shorter than the marker")
	}
}

func TestShareTypeFromPath(t *testing.T) {
	cases := []struct {
		path string
		want int
	}{
		{"/download/fair2/100mb", 2},
		{"/download/fair1/100mb", 1},
		{"/download/plain/100mb", 0},
	}
	for _, c := range cases {
		got := shareTypeFromPath(c.path)
		if int(got) != c.want {
			t.Errorf("shareTypeFromPath(%q) = %d, want %d", c.path, got, c.want)
		}
	}
}
