package ngwire

import (
	"bytes"
	"testing"

	"github.com/nectard/nectard/pkg"
)

func TestDecodeRejectsOversizeFrame(t *testing.T) {
	buf := make([]byte, MaxFrameSize+1)
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error for oversize frame")
	}
}

func TestDecodeRejectsUnknownPreamble(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, Version}
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error for unknown preamble")
	}
}

func TestDecodeStartFrame(t *testing.T) {
	f, err := Decode(EncodeStart())
	if err != nil {
		t.Fatalf("Decode(EncodeStart()): %v", err)
	}
	if f.Type != TypeStart {
		t.Errorf("Type = %v, want Start", f.Type)
	}
	if len(f.Payload) != 0 {
		t.Errorf("Start frame payload should be empty, got %d bytes", len(f.Payload))
	}
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := Config{CellID: 7, RntiShare: 1, LogDci: 1, Interval: 20}
	raw, err := EncodeConfig(cfg)
	if err != nil {
		t.Fatalf("EncodeConfig: %v", err)
	}

	f, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Type != TypeConfig {
		t.Fatalf("Type = %v, want Config", f.Type)
	}

	var got Config
	if err := got.UnmarshalBinary(f.Payload); err != nil {
		t.Fatalf("UnmarshalBinary: %v", err)
	}
	if got != cfg {
		t.Errorf("round-tripped Config = %+v, want %+v", got, cfg)
	}
}

func TestCellDciRoundTrip(t *testing.T) {
	want := pkg.NgScopeCellDci{
		CellID:          3,
		TimeStampUs:     123456789,
		TTI:             42,
		TotalDlTbsBit:   50000,
		TotalUlTbsBit:   12000,
		TotalDlPrb:      100,
		TotalUlPrb:      50,
		TotalDlNoTbsPrb: 5,
		TotalUlNoTbsPrb: 2,
		NofRnti:         2,
	}
	want.RntiList[0] = pkg.RntiDci{Rnti: 0x1234, DlTbsBit: 4000, DlPrb: 10, DlNoTbsPrb: 1, UlTbsBit: 1000, UlPrb: 5, UlNoTbsPrb: 0}
	want.RntiList[1] = pkg.RntiDci{Rnti: 0x5678, DlTbsBit: 8000, DlPrb: 20, DlNoTbsPrb: 0, UlTbsBit: 2000, UlPrb: 8, UlNoTbsPrb: 1}

	raw := EncodeCellDci(want)

	f, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if f.Type != TypeCellDci {
		t.Fatalf("Type = %v, want CellDci", f.Type)
	}
	if len(f.Payload) != CellDciPayloadSize {
		t.Fatalf("payload size = %d, want %d", len(f.Payload), CellDciPayloadSize)
	}

	got, err := DecodeCellDci(f.Payload)
	if err != nil {
		t.Fatalf("DecodeCellDci: %v", err)
	}
	if got != want {
		t.Errorf("round-tripped CellDci = %+v, want %+v", got, want)
	}
}

func TestDecodeDci(t *testing.T) {
	payload := make([]byte, DciPayloadSize)
	payload[0] = 9
	copy(payload[4:12], []byte{0xEF, 0xBE, 0xAD, 0xDE, 0, 0, 0, 0})

	d, err := DecodeDci(payload)
	if err != nil {
		t.Fatalf("DecodeDci: %v", err)
	}
	if d.CellID != 9 {
		t.Errorf("CellID = %d, want 9", d.CellID)
	}
	if d.TimeStampUs != 0xDEADBEEF {
		t.Errorf("TimeStampUs = %#x, want 0xDEADBEEF", d.TimeStampUs)
	}
}

func TestDecodeRejectsWrongPayloadLength(t *testing.T) {
	buf := append(bytes.Clone([]byte{0xAA, 0xAA, 0xAA, 0xAA, Version}), make([]byte, 3)...)
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error for wrong Dci payload length")
	}
}
