package mqtt

import (
	"errors"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/dokzlo13/espanel/internal/led"
	"github.com/dokzlo13/espanel/internal/sensor"
)

// ErrConnectTimeout is returned when the broker does not accept the
// connection in time.
var ErrConnectTimeout = errors.New("mqtt connection timeout")

var connectTimeout = 10 * time.Second

// RealPublisher publishes to an actual MQTT broker.
type RealPublisher struct {
	client paho.Client
	prefix string
}

// NewRealPublisher creates a publisher connected to the given broker.
func NewRealPublisher(broker, clientID, prefix string) (*RealPublisher, error) {
	opts := paho.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(5 * time.Second)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		// Stops the connect-retry loop; the caller runs without telemetry.
		client.Disconnect(0)
		return nil, fmt.Errorf("%w: %s", ErrConnectTimeout, broker)
	}
	if err := token.Error(); err != nil {
		client.Disconnect(0)
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &RealPublisher{
		client: client,
		prefix: prefix,
	}, nil
}

// PublishReading sends a sensor poll result to <prefix>/dht.
func (p *RealPublisher) PublishReading(res sensor.Result) error {
	payload, err := FormatReading(res)
	if err != nil {
		return fmt.Errorf("format reading: %w", err)
	}
	return p.publish(TopicDHT, payload)
}

// PublishColor sends an LED change to <prefix>/led.
func (p *RealPublisher) PublishColor(change led.Change) error {
	payload, err := FormatColor(change)
	if err != nil {
		return fmt.Errorf("format color: %w", err)
	}
	return p.publish(TopicLED, payload)
}

func (p *RealPublisher) publish(topic string, payload []byte) error {
	// QoS 0 (at-most-once), not retained
	token := p.client.Publish(p.prefix+"/"+topic, 0, false, payload)
	if !token.WaitTimeout(5 * time.Second) {
		return fmt.Errorf("publish %s timeout", topic)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("publish %s: %w", topic, err)
	}
	return nil
}

// IsConnected reports whether the client currently holds a broker connection.
func (p *RealPublisher) IsConnected() bool {
	return p.client.IsConnected()
}

// Close disconnects from the broker.
func (p *RealPublisher) Close() error {
	p.client.Disconnect(1000) // 1 second timeout
	return nil
}
