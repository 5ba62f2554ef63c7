// Package cellsource implements the CellSource worker (§4.2): periodic
// polling of a cell-info back-end, ARFCN→frequency conversion, and
// change-triggered broadcast of CellInfo onto the cell bus.
package cellsource

import (
	"context"

	"github.com/nectard/nectard/pkg"
)

// Backend fetches one CellInfo snapshot from a cell-info HTTP back-end
// (§6). Milesight and DevicePublisher are the two concrete variants;
// main picks one by the configured tag once at startup, and the
// CellSource worker then holds it as this interface, so no poll does a
// type switch. Each implementation builds its own HTTP client.
type Backend interface {
	// Fetch performs one poll and returns the observed cells.
	Fetch(ctx context.Context) (pkg.CellInfo, error)
	// Name identifies the backend for logging.
	Name() string
}
