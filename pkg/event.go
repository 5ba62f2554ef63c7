package pkg

import "time"

// Event is a lifecycle/telemetry event forwarded by the supervisor and
// published to external sinks (MQTT, logsink).
type Event struct {
	Timestamp time.Time
	Type      string
	Reason    string
	Data      map[string]interface{}
}
