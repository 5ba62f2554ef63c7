package downloader

import (
	"strings"

	"github.com/nectard/nectard/pkg"
)

// shareTypeFromPath infers rnti_share_type from a substring of the
// download path (§4.6).
func shareTypeFromPath(path string) pkg.RntiShareType {
	switch {
	case strings.Contains(path, "fair2"):
		return pkg.RntiShareGreedy
	case strings.Contains(path, "fair1"):
		return pkg.RntiShareDlOccurrences
	default:
		return pkg.RntiShareAll
	}
}
