package mqtt

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	MQTT "github.com/eclipse/paho.mqtt.golang"

	"github.com/nectard/nectard/pkg/logx"
)

// Client publishes nectard telemetry to an external MQTT broker. It is
// a thin wrapper over paho.mqtt.golang with a per-second rate limiter
// in front of Publish so a burst of MetricA ticks (every few ms, §4.5)
// never floods the broker.
type Client struct {
	client MQTT.Client
	log    *logx.Logger
	config Config

	connected   bool
	lastPublish time.Time

	limiter *rateLimiter
}

// NewClient builds a Client; Connect must be called before publish has
// any effect.
func NewClient(config Config, log *logx.Logger) *Client {
	return &Client{
		log:     log,
		config:  config,
		limiter: &rateLimiter{maxMessages: 20, windowSize: time.Second},
	}
}

// Connect establishes the broker connection. A disabled config is a
// no-op so the caller can always construct and Connect a Client
// unconditionally.
func (c *Client) Connect() error {
	if !c.config.Enabled {
		c.log.Debug("mqtt sink disabled")
		return nil
	}

	opts := MQTT.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", c.config.Broker, c.config.Port))
	opts.SetClientID(c.config.ClientID)
	if c.config.Username != "" {
		opts.SetUsername(c.config.Username)
		opts.SetPassword(c.config.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectRetryInterval(5 * time.Second)
	opts.SetMaxReconnectInterval(time.Minute)
	opts.SetOnConnectHandler(c.onConnect)
	opts.SetConnectionLostHandler(c.onConnectionLost)

	c.client = MQTT.NewClient(opts)
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt: connect: %w", token.Error())
	}

	c.log.Info("mqtt sink connected", "broker", c.config.Broker, "port", c.config.Port)
	return nil
}

// Disconnect closes the broker connection, if any.
func (c *Client) Disconnect() {
	if c.client != nil && c.connected {
		c.client.Disconnect(250)
		c.connected = false
		c.log.Info("mqtt sink disconnected")
	}
}

func (c *Client) onConnect(MQTT.Client) {
	c.connected = true
	c.log.Info("mqtt connection established")
}

func (c *Client) onConnectionLost(_ MQTT.Client, err error) {
	c.connected = false
	c.log.Warn("mqtt connection lost", "error", err.Error())
}

// IsConnected reports whether the underlying client believes itself
// connected.
func (c *Client) IsConnected() bool {
	return c.connected && c.client != nil && c.client.IsConnected()
}

// publish marshals v to JSON and publishes it under topic. It returns
// without publishing when disabled, not connected, or rate limited, and
// never returns an error to the caller; otherwise it waits on the
// publish token until paho completes the send, logging a failure.
func (c *Client) publish(topic string, v interface{}) {
	if !c.config.Enabled || !c.IsConnected() {
		return
	}
	if !c.limiter.allow() {
		c.log.Debug("mqtt rate limit exceeded, dropping message", "topic", topic)
		return
	}

	data, err := json.Marshal(v)
	if err != nil {
		c.log.Warn("mqtt json marshal failed", "topic", topic, "error", err.Error())
		return
	}

	token := c.client.Publish(topic, byte(c.config.QoS), c.config.Retain, data)
	if token.Wait() && token.Error() != nil {
		c.log.Warn("mqtt publish failed", "topic", topic, "error", token.Error().Error())
		return
	}
	c.lastPublish = time.Now()
}

// rateLimiter is a fixed-window counter: at most maxMessages publishes
// per windowSize.
type rateLimiter struct {
	mu           sync.Mutex
	lastReset    time.Time
	count        int
	maxMessages  int
	windowSize   time.Duration
}

func (rl *rateLimiter) allow() bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	if now.Sub(rl.lastReset) >= rl.windowSize {
		rl.count = 0
		rl.lastReset = now
	}
	if rl.count < rl.maxMessages {
		rl.count++
		return true
	}
	return false
}
