package logsink

import (
	"bufio"
	"bytes"
	"testing"

	"github.com/nectard/nectard/pkg"
)

func TestDciTableRoundTrip(t *testing.T) {
	want := []pkg.NgScopeCellDci{
		{TimeStampUs: 1000, NofRnti: 2, RntiList: [pkg.MaxRntiPerDci]pkg.RntiDci{
			{Rnti: 11, DlTbsBit: 2048, DlPrb: 4, UlTbsBit: 512, UlPrb: 1},
			{Rnti: 22, DlTbsBit: 1024, DlPrb: 2},
		}},
		{TimeStampUs: 2000, NofRnti: 0},
	}

	var buf bytes.Buffer
	bw := bufio.NewWriter(&buf)
	for _, d := range want {
		if err := writeDciRecord(bw, d); err != nil {
			t.Fatalf("writeDciRecord: %v", err)
		}
	}
	if err := bw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}

	got, err := readDciTable(&buf)
	if err != nil {
		t.Fatalf("readDciTable: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("readDciTable returned %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].TimeStampUs != want[i].TimeStampUs || got[i].NofRnti != want[i].NofRnti {
			t.Errorf("record %d header mismatch: got %+v, want %+v", i, got[i], want[i])
		}
		for j := 0; j < int(want[i].NofRnti); j++ {
			if got[i].RntiList[j] != want[i].RntiList[j] {
				t.Errorf("record %d rnti %d mismatch: got %+v, want %+v", i, j, got[i].RntiList[j], want[i].RntiList[j])
			}
		}
	}
}
