// internal/mqtt/client.go
package mqtt

import (
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"

	"github.com/alegjs044/Gecko-house-sub000/internal/ingest"
)

// MessageHandler receives every inbound (topic, payload) pair.
type MessageHandler func(topic, payload string)

// Client wraps the paho connection for the gateway: wildcard subscribe
// on the terrario namespace and plain-text publishes for echoes and
// forwarded device commands. Reconnects are owned by paho; the core
// only logs the transitions.
type Client struct {
	client paho.Client
	qos    byte
	log    *zap.Logger
}

func NewClient(broker, clientID, username, password string, qos int, log *zap.Logger) *Client {
	c := &Client{qos: byte(qos), log: log}

	opts := paho.NewClientOptions()
	opts.AddBroker(broker)
	opts.SetClientID(clientID)
	if username != "" {
		opts.SetUsername(username)
		opts.SetPassword(password)
	}
	opts.SetCleanSession(true)
	opts.SetAutoReconnect(true)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		log.Warn("mqtt connection lost", zap.Error(err))
	})
	opts.SetOnConnectHandler(func(_ paho.Client) {
		log.Info("connected to mqtt broker", zap.String("broker", broker))
	})

	c.client = paho.NewClient(opts)
	return c
}

// Connect blocks until the broker accepts the session or fails.
func (c *Client) Connect() error {
	token := c.client.Connect()
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt connect: %w", err)
	}
	return nil
}

// Subscribe registers the handler for every topic under the gateway's
// namespace. Paho invokes it on its own goroutines.
func (c *Client) Subscribe(handler MessageHandler) error {
	filter := ingest.Namespace + "/+/+"
	token := c.client.Subscribe(filter, c.qos, func(_ paho.Client, msg paho.Message) {
		handler(msg.Topic(), string(msg.Payload()))
	})
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt subscribe %q: %w", filter, err)
	}
	c.log.Info("subscribed", zap.String("filter", filter))
	return nil
}

// Publish sends one plain-text payload.
func (c *Client) Publish(topic, payload string) error {
	token := c.client.Publish(topic, c.qos, false, payload)
	token.Wait()
	if err := token.Error(); err != nil {
		return fmt.Errorf("mqtt publish %q: %w", topic, err)
	}
	return nil
}

// Close disconnects from the broker, allowing in-flight work to finish.
func (c *Client) Close() {
	if c.client.IsConnected() {
		c.client.Disconnect(250)
	}
}
