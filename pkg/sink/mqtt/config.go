package mqtt

// Config holds the MQTT broker connection and topic settings (§7).
type Config struct {
	Broker      string
	Port        int
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
	QoS         int
	Retain      bool
	Enabled     bool
}

// DefaultConfig returns the disabled-by-default MQTT configuration; the
// side-channel only activates when the operator sets mqtt.enabled in
// the YAML config (§7).
func DefaultConfig() Config {
	return Config{
		Broker:      "localhost",
		Port:        1883,
		ClientID:    "nectard",
		TopicPrefix: "nectard",
		QoS:         1,
		Retain:      false,
		Enabled:     false,
	}
}
