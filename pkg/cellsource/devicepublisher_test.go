package cellsource

import "testing"

func TestParseDevicePublisherCells(t *testing.T) {
	nodeB := uint64(20321)
	cells := []devicePublisherCell{{
		NodeB: &nodeB,
		Type:  "LTE",
		Arfcn: 1801,
		Rssi:  -89,
		Rsrp:  -120,
		Rsrq:  -13,
	}}

	got, err := parseDevicePublisherCells(cells)
	if err != nil {
		t.Fatalf("parseDevicePublisherCells: unexpected error: %v", err)
	}
	if len(got.Cells) != 1 {
		t.Fatalf("expected 1 cell, got %d", len(got.Cells))
	}
	c := got.Cells[0]
	if c.CellID != 20321 {
		t.Errorf("CellID = %d, want 20321", c.CellID)
	}
	if c.Frequency != 1_865_100_000 {
		t.Errorf("Frequency = %d, want 1865100000", c.Frequency)
	}
	if c.NofPRB != 100 {
		t.Errorf("NofPRB = %d, want 100 (default, cell id 20321 has no override)", c.NofPRB)
	}
}

func TestParseDevicePublisherCellsIdentifierPrecedence(t *testing.T) {
	cid := uint64(1)
	pci := uint64(2)
	nodeB := uint64(3)
	cells := []devicePublisherCell{{Cid: &cid, Pci: &pci, NodeB: &nodeB, Type: "LTE", Arfcn: 300}}

	got, err := parseDevicePublisherCells(cells)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Cells[0].CellID != 1 {
		t.Errorf("CellID = %d, want cid (1) to take precedence", got.Cells[0].CellID)
	}
}
