package logsink

import (
	"bufio"
	"encoding/binary"
	"io"

	"github.com/nectard/nectard/pkg"
)

// dciRecordHeaderSize is the fixed per-record header (timestamp u64 +
// nof_rnti u8) preceding nof_rnti RNTI entries (§4.7).
const dciRecordHeaderSize = 9
const dciRntiEntrySize = 20

// writeDciRecord appends one binary-table row: timestamp_us (u64 LE),
// nof_rnti (u8), then nof_rnti RNTI entries (rnti u16, reserved u16,
// dl_tbs_bit u32, dl_prb u16, dl_no_tbs_prb u16, ul_tbs_bit u32,
// ul_prb u16, ul_no_tbs_prb u16 — the same entry layout as the DCI wire
// protocol's RNTI records).
func writeDciRecord(w *bufio.Writer, d pkg.NgScopeCellDci) error {
	var hdr [dciRecordHeaderSize]byte
	binary.LittleEndian.PutUint64(hdr[0:8], d.TimeStampUs)
	hdr[8] = d.NofRnti
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}

	for _, r := range d.Rntis() {
		var buf [dciRntiEntrySize]byte
		binary.LittleEndian.PutUint16(buf[0:2], r.Rnti)
		binary.LittleEndian.PutUint32(buf[4:8], r.DlTbsBit)
		binary.LittleEndian.PutUint16(buf[8:10], r.DlPrb)
		binary.LittleEndian.PutUint16(buf[10:12], r.DlNoTbsPrb)
		binary.LittleEndian.PutUint32(buf[12:16], r.UlTbsBit)
		binary.LittleEndian.PutUint16(buf[16:18], r.UlPrb)
		binary.LittleEndian.PutUint16(buf[18:20], r.UlNoTbsPrb)
		if _, err := w.Write(buf[:]); err != nil {
			return err
		}
	}
	return nil
}

// readDciTable decodes a full binary table written by writeDciRecord,
// used by tests to round-trip the format.
func readDciTable(r io.Reader) ([]pkg.NgScopeCellDci, error) {
	br := bufio.NewReader(r)
	var out []pkg.NgScopeCellDci
	for {
		var hdr [dciRecordHeaderSize]byte
		if _, err := io.ReadFull(br, hdr[:]); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return out, err
		}
		d := pkg.NgScopeCellDci{
			TimeStampUs: binary.LittleEndian.Uint64(hdr[0:8]),
			NofRnti:     hdr[8],
		}
		for i := 0; i < int(d.NofRnti) && i < pkg.MaxRntiPerDci; i++ {
			var buf [dciRntiEntrySize]byte
			if _, err := io.ReadFull(br, buf[:]); err != nil {
				return out, err
			}
			d.RntiList[i] = pkg.RntiDci{
				Rnti:       binary.LittleEndian.Uint16(buf[0:2]),
				DlTbsBit:   binary.LittleEndian.Uint32(buf[4:8]),
				DlPrb:      binary.LittleEndian.Uint16(buf[8:10]),
				DlNoTbsPrb: binary.LittleEndian.Uint16(buf[10:12]),
				UlTbsBit:   binary.LittleEndian.Uint32(buf[12:16]),
				UlPrb:      binary.LittleEndian.Uint16(buf[16:18]),
				UlNoTbsPrb: binary.LittleEndian.Uint16(buf[18:20]),
			}
		}
		out = append(out, d)
	}
}
