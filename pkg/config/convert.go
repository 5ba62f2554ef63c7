package config

import (
	"github.com/nectard/nectard/pkg"
	"github.com/nectard/nectard/pkg/model"
)

// Schedule converts the YAML (fixed_ms | rtt_factor) pair into the
// model.Schedule ModelHandler expects.
func (s ScheduleConfig) Schedule() model.Schedule {
	if s.RttFactor != 0 {
		return model.RttDerivedSchedule(s.RttFactor)
	}
	return model.FixedSchedule(s.FixedMs)
}

// ShareType resolves the configured share-type name to the enum
// ModelHandler's Calculate takes (§4.5). Validate already rejects any
// other value, so the default case is unreachable in practice.
func (m ModelConfig) ShareType() pkg.RntiShareType {
	switch m.RntiShareType {
	case "dl_occurrences":
		return pkg.RntiShareDlOccurrences
	case "greedy":
		return pkg.RntiShareGreedy
	default:
		return pkg.RntiShareAll
	}
}
