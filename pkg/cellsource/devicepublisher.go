package cellsource

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/nectard/nectard/pkg"
)

// DevicePublisher polls a generic REST device-publisher endpoint that
// returns a flat JSON object per cell (§6). The cell identifier prefers
// cid, falling back to pci then nodeB then 0 when none are present,
// matching the precedence the field names are listed in below.
type DevicePublisher struct {
	url    string
	client *http.Client
}

func NewDevicePublisher(url string) *DevicePublisher {
	return &DevicePublisher{url: url, client: &http.Client{Timeout: 5 * time.Second}}
}

func (d *DevicePublisher) Name() string { return "device-publisher" }

type devicePublisherCell struct {
	Cid    *uint64 `json:"cid"`
	Pci    *uint64 `json:"pci"`
	NodeB  *uint64 `json:"nodeB"`
	Type   string  `json:"type"`
	Arfcn  uint64  `json:"arfcn"`
	Rssi   float64 `json:"rssi"`
	Rsrp   float64 `json:"rsrp"`
	Rsrq   float64 `json:"rsrq"`
}

func (d *DevicePublisher) Fetch(ctx context.Context) (pkg.CellInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return pkg.CellInfo{}, err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return pkg.CellInfo{}, fmt.Errorf("cellsource: device-publisher request: %w", err)
	}
	defer resp.Body.Close()

	var cells []devicePublisherCell
	if err := json.NewDecoder(resp.Body).Decode(&cells); err != nil {
		return pkg.CellInfo{}, fmt.Errorf("cellsource: decoding device-publisher reply: %w", err)
	}
	return parseDevicePublisherCells(cells)
}

func parseDevicePublisherCells(cells []devicePublisherCell) (pkg.CellInfo, error) {
	out := make([]pkg.SingleCell, 0, len(cells))
	for _, c := range cells {
		cellID := uint64(0)
		switch {
		case c.Cid != nil:
			cellID = *c.Cid
		case c.Pci != nil:
			cellID = *c.Pci
		case c.NodeB != nil:
			cellID = *c.NodeB
		}

		var cellType pkg.CellType
		if strings.EqualFold(c.Type, "NR") {
			cellType = pkg.CellTypeNR
		} else {
			cellType = pkg.CellTypeLTE
		}

		var freq uint64
		var err error
		if cellType == pkg.CellTypeLTE {
			freq, err = LTEFrequencyHz(c.Arfcn)
		} else {
			freq, err = NRFrequencyHz(c.Arfcn)
		}
		if err != nil {
			return pkg.CellInfo{}, err
		}

		out = append(out, pkg.SingleCell{
			CellID:    cellID,
			CellType:  cellType,
			NofPRB:    PRBFromCellID(cellID),
			Frequency: freq,
			RSSI:      c.Rssi,
			RSRP:      c.Rsrp,
			RSRQ:      c.Rsrq,
		})
	}
	return pkg.CellInfo{Cells: out}, nil
}
