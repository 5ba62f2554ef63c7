package cellsource

import "testing"

func TestParseMilesightReply(t *testing.T) {
	body := []byte(`{
		"result": [{
			"get": [{
				"value": {
					"modem": {
						"cellid": "1C17302",
						"net_type": "LTE",
						"signal": "31asu (-51dBm)"
					},
					"more": {
						"earfcn": "1300",
						"rsrp": "-77dBm",
						"rsrq": "-8dB"
					}
				}
			}]
		}]
	}`)

	got, err := parseMilesightReply(body)
	if err != nil {
		t.Fatalf("parseMilesightReply: unexpected error: %v", err)
	}
	if len(got.Cells) != 1 {
		t.Fatalf("expected 1 cell, got %d", len(got.Cells))
	}
	c := got.Cells[0]
	if c.CellID != 0x1C17302 {
		t.Errorf("CellID = %#x, want %#x", c.CellID, 0x1C17302)
	}
	if c.CellType.String() != "LTE" {
		t.Errorf("CellType = %s, want LTE", c.CellType)
	}
	if c.RSSI != -51.0 {
		t.Errorf("RSSI = %v, want -51.0", c.RSSI)
	}
	if c.RSRP != -77.0 {
		t.Errorf("RSRP = %v, want -77.0", c.RSRP)
	}
	if c.RSRQ != -8.0 {
		t.Errorf("RSRQ = %v, want -8.0", c.RSRQ)
	}
	if c.Frequency != 1_815_000_000 {
		t.Errorf("Frequency = %d, want 1815000000", c.Frequency)
	}
	if c.NofPRB != 100 {
		t.Errorf("NofPRB = %d, want 100 (default, cell id 0x1C17302 has no override)", c.NofPRB)
	}
}
