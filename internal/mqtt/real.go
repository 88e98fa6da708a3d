package mqtt

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

const (
	connectTimeout = 10 * time.Second
	publishTimeout = 5 * time.Second
	inboxSize      = 32

	// DefaultBufferSize is how many publishes are held while disconnected.
	DefaultBufferSize = 100
)

// Options configures RealClient.
type Options struct {
	Broker     string
	ClientID   string
	Username   string
	Password   string
	Prefix     string
	BufferSize int // messages held while disconnected
}

// RealClient talks to an actual MQTT broker. Messages published while the
// connection is down are held in a ring buffer and replayed on reconnect.
type RealClient struct {
	client paho.Client
	topics Topics
	inbox  chan []byte
	log    *log.Entry

	mu  sync.Mutex
	buf *ringBuffer
}

// NewRealClient connects to the broker and subscribes to the command topic.
// The subscription is renewed on every reconnect.
func NewRealClient(o Options) (*RealClient, error) {
	if o.ClientID == "" {
		o.ClientID = "hydro-controller"
	}
	if o.BufferSize <= 0 {
		o.BufferSize = DefaultBufferSize
	}

	c := &RealClient{
		topics: NewTopics(o.Prefix),
		inbox:  make(chan []byte, inboxSize),
		log:    log.WithField("component", "mqtt"),
		buf:    newRingBuffer(o.BufferSize),
	}

	will, _ := FormatSystemPayload(SystemEvent{Timestamp: time.Now(), Event: "OFFLINE", Reason: "unexpected_disconnect"})

	opts := paho.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetCleanSession(true).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5*time.Second).
		SetConnectTimeout(connectTimeout).
		SetWill(c.topics.System, string(will), 1, true).
		SetOnConnectHandler(c.onConnect).
		SetConnectionLostHandler(func(_ paho.Client, err error) {
			c.log.Warnf("connection lost: %v", err)
		})
	if o.Username != "" {
		opts.SetUsername(o.Username)
		opts.SetPassword(o.Password)
	}

	c.client = paho.NewClient(opts)
	token := c.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// Local control must not wait on the broker; paho keeps retrying.
		c.log.Warnf("broker %s not reachable yet, retrying in background", o.Broker)
		return c, nil
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return c, nil
}

func (c *RealClient) onConnect(client paho.Client) {
	token := client.Subscribe(c.topics.Command, 1, func(_ paho.Client, msg paho.Message) {
		payload := append([]byte(nil), msg.Payload()...)
		select {
		case c.inbox <- payload:
		default:
			c.log.Warnf("command inbox full, dropping message")
		}
	})
	if token.WaitTimeout(publishTimeout) && token.Error() != nil {
		c.log.Errorf("subscribe %s: %v", c.topics.Command, token.Error())
	}

	c.mu.Lock()
	pending := c.buf.drainAll()
	c.mu.Unlock()
	if len(pending) > 0 {
		c.log.Infof("replaying %d buffered messages", len(pending))
	}
	for _, m := range pending {
		client.Publish(m.topic, m.qos, m.retained, m.payload)
	}
	c.log.Infof("connected, listening on %s", c.topics.Command)
}

// Commands returns the channel of inbound command envelopes.
func (c *RealClient) Commands() <-chan []byte {
	return c.inbox
}

// IsConnected reports whether the broker connection is up.
func (c *RealClient) IsConnected() bool {
	return c.client.IsConnectionOpen()
}

// PublishKeepalive sends a heartbeat. Heartbeats are not buffered: a stale
// one carries no information.
func (c *RealClient) PublishKeepalive(ka Keepalive) error {
	payload, err := FormatKeepalivePayload(ka)
	if err != nil {
		return fmt.Errorf("format keepalive: %w", err)
	}
	if !c.IsConnected() {
		return fmt.Errorf("publish keepalive: not connected")
	}
	return c.send(c.topics.Keepalive, 0, false, payload)
}

// PublishStatus sends a status snapshot, retained so new subscribers see it.
func (c *RealClient) PublishStatus(payload []byte) error {
	return c.publish(c.topics.Status, 0, true, payload)
}

// PublishConfig sends a parameter report.
func (c *RealClient) PublishConfig(report ConfigReport) error {
	payload, err := FormatConfigPayload(report)
	if err != nil {
		return fmt.Errorf("format config: %w", err)
	}
	return c.publish(c.topics.Config, 1, true, payload)
}

// PublishSystem sends a system lifecycle event to the MQTT broker.
func (c *RealClient) PublishSystem(event SystemEvent) error {
	payload, err := FormatSystemPayload(event)
	if err != nil {
		return fmt.Errorf("format system payload: %w", err)
	}
	// QoS 1 (at-least-once) for lifecycle events
	return c.publish(c.topics.System, 1, event.Retained, payload)
}

// publish sends now, or buffers the message while disconnected.
func (c *RealClient) publish(topic string, qos byte, retained bool, payload []byte) error {
	if !c.IsConnected() {
		c.mu.Lock()
		c.buf.push(bufferedMsg{topic: topic, payload: payload, qos: qos, retained: retained})
		c.mu.Unlock()
		return nil
	}
	return c.send(topic, qos, retained, payload)
}

func (c *RealClient) send(topic string, qos byte, retained bool, payload []byte) error {
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(publishTimeout) {
		return fmt.Errorf("publish %s: timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker.
func (c *RealClient) Close() error {
	c.client.Disconnect(1000) // 1 second timeout
	return nil
}
