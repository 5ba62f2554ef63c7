package ngwire

import (
	"encoding/binary"
	"fmt"

	"github.com/nectard/nectard/pkg"
)

// Wire layout (§6, fixed C-struct, little-endian; every field sits on at
// least a 4-byte boundary, the u64 time stamp at offset 4):
//
// Dci payload (40 bytes, aggregate-only, no per-RNTI breakdown):
//
//	offset  size  field
//	0       1     cell_id (u8)
//	1       3     reserved (alignment)
//	4       8     time_stamp_us (u64)
//	12      2     tti (u16)
//	14      2     reserved (alignment)
//	16      4     total_dl_tbs_bit (u32)
//	20      4     total_ul_tbs_bit (u32)
//	24      4     total_dl_prb (u32)
//	28      4     total_ul_prb (u32)
//	32      4     total_dl_no_tbs_prb (u32)
//	36      4     total_ul_no_tbs_prb (u32)
//
// CellDci payload (448 bytes, 48-byte header + 20 × 20-byte RNTI entries):
//
//	offset  size  field
//	0       1     cell_id (u8)
//	1       3     reserved
//	4       8     time_stamp_us (u64)
//	12      2     tti (u16)
//	14      2     reserved
//	16      4     total_dl_tbs_bit (u32)
//	20      4     total_ul_tbs_bit (u32)
//	24      4     total_dl_prb (u32)
//	28      4     total_ul_prb (u32)
//	32      4     total_dl_no_tbs_prb (u32)
//	36      4     total_ul_no_tbs_prb (u32)
//	40      1     nof_rnti (u8)
//	41      7     reserved
//	48      400   rnti_list[20], 20 bytes each:
//	               0  2  rnti (u16)
//	               2  2  reserved
//	               4  4  dl_tbs_bit (u32)
//	               8  2  dl_prb (u16)
//	               10 2  dl_no_tbs_prb (u16)
//	               12 4  ul_tbs_bit (u32)
//	               16 2  ul_prb (u16)
//	               18 2  ul_no_tbs_prb (u16)

const cellDciHeaderSize = 48
const rntiEntrySize = 20

// DecodeDci decodes a Dci frame payload into an aggregate-only
// NgScopeCellDci (nof_rnti is always zero; there is no per-RNTI data
// in this frame type).
func DecodeDci(payload []byte) (pkg.NgScopeCellDci, error) {
	if len(payload) != DciPayloadSize {
		return pkg.NgScopeCellDci{}, fmt.Errorf("ngwire: dci payload is %d bytes, want %d", len(payload), DciPayloadSize)
	}
	d := pkg.NgScopeCellDci{
		CellID:             payload[0],
		TimeStampUs:        binary.LittleEndian.Uint64(payload[4:12]),
		TTI:                binary.LittleEndian.Uint16(payload[12:14]),
		TotalDlTbsBit:      uint64(binary.LittleEndian.Uint32(payload[16:20])),
		TotalUlTbsBit:      uint64(binary.LittleEndian.Uint32(payload[20:24])),
		TotalDlPrb:         binary.LittleEndian.Uint32(payload[24:28]),
		TotalUlPrb:         binary.LittleEndian.Uint32(payload[28:32]),
		TotalDlNoTbsPrb:    binary.LittleEndian.Uint32(payload[32:36]),
		TotalUlNoTbsPrb:    binary.LittleEndian.Uint32(payload[36:40]),
	}
	return d, nil
}

// DecodeCellDci decodes a CellDci frame payload into a fully populated
// NgScopeCellDci, including its per-RNTI list.
func DecodeCellDci(payload []byte) (pkg.NgScopeCellDci, error) {
	if len(payload) != CellDciPayloadSize {
		return pkg.NgScopeCellDci{}, fmt.Errorf("ngwire: cell_dci payload is %d bytes, want %d", len(payload), CellDciPayloadSize)
	}

	d := pkg.NgScopeCellDci{
		CellID:          payload[0],
		TimeStampUs:     binary.LittleEndian.Uint64(payload[4:12]),
		TTI:             binary.LittleEndian.Uint16(payload[12:14]),
		TotalDlTbsBit:   uint64(binary.LittleEndian.Uint32(payload[16:20])),
		TotalUlTbsBit:   uint64(binary.LittleEndian.Uint32(payload[20:24])),
		TotalDlPrb:      binary.LittleEndian.Uint32(payload[24:28]),
		TotalUlPrb:      binary.LittleEndian.Uint32(payload[28:32]),
		TotalDlNoTbsPrb: binary.LittleEndian.Uint32(payload[32:36]),
		TotalUlNoTbsPrb: binary.LittleEndian.Uint32(payload[36:40]),
		NofRnti:         payload[40],
	}
	if d.NofRnti > pkg.MaxRntiPerDci {
		return pkg.NgScopeCellDci{}, fmt.Errorf("ngwire: cell_dci nof_rnti %d exceeds max %d", d.NofRnti, pkg.MaxRntiPerDci)
	}

	rntis := payload[cellDciHeaderSize:]
	for i := 0; i < pkg.MaxRntiPerDci; i++ {
		e := rntis[i*rntiEntrySize : (i+1)*rntiEntrySize]
		d.RntiList[i] = pkg.RntiDci{
			Rnti:       binary.LittleEndian.Uint16(e[0:2]),
			DlTbsBit:   binary.LittleEndian.Uint32(e[4:8]),
			DlPrb:      binary.LittleEndian.Uint16(e[8:10]),
			DlNoTbsPrb: binary.LittleEndian.Uint16(e[10:12]),
			UlTbsBit:   binary.LittleEndian.Uint32(e[12:16]),
			UlPrb:      binary.LittleEndian.Uint16(e[16:18]),
			UlNoTbsPrb: binary.LittleEndian.Uint16(e[18:20]),
		}
	}
	return d, nil
}

// EncodeCellDci serialises a NgScopeCellDci back into a CellDci frame
// (used by tests and by any loopback/replay tooling).
func EncodeCellDci(d pkg.NgScopeCellDci) []byte {
	payload := make([]byte, CellDciPayloadSize)
	payload[0] = d.CellID
	binary.LittleEndian.PutUint64(payload[4:12], d.TimeStampUs)
	binary.LittleEndian.PutUint16(payload[12:14], d.TTI)
	binary.LittleEndian.PutUint32(payload[16:20], uint32(d.TotalDlTbsBit))
	binary.LittleEndian.PutUint32(payload[20:24], uint32(d.TotalUlTbsBit))
	binary.LittleEndian.PutUint32(payload[24:28], d.TotalDlPrb)
	binary.LittleEndian.PutUint32(payload[28:32], d.TotalUlPrb)
	binary.LittleEndian.PutUint32(payload[32:36], d.TotalDlNoTbsPrb)
	binary.LittleEndian.PutUint32(payload[36:40], d.TotalUlNoTbsPrb)
	payload[40] = d.NofRnti

	for i := 0; i < pkg.MaxRntiPerDci; i++ {
		r := d.RntiList[i]
		e := payload[cellDciHeaderSize+i*rntiEntrySize : cellDciHeaderSize+(i+1)*rntiEntrySize]
		binary.LittleEndian.PutUint16(e[0:2], r.Rnti)
		binary.LittleEndian.PutUint32(e[4:8], r.DlTbsBit)
		binary.LittleEndian.PutUint16(e[8:10], r.DlPrb)
		binary.LittleEndian.PutUint16(e[10:12], r.DlNoTbsPrb)
		binary.LittleEndian.PutUint32(e[12:16], r.UlTbsBit)
		binary.LittleEndian.PutUint16(e[16:18], r.UlPrb)
		binary.LittleEndian.PutUint16(e[18:20], r.UlNoTbsPrb)
	}
	return frame(TypeCellDci, payload)
}
