// Package mqtt is the message bus of the device sessions.
//
// Outbound messages are queued on channel C and sent by Service, so publishing never waits for the broker.
// Subscriptions are remembered and restored after a reconnect.
package mqtt

import (
	"errors"
	"fmt"
	"sync"
	"time"

	mqttlib "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"github.com/womat/debug"
)

// quiesce is the specified number of milliseconds to wait for existing work to be completed.
const (
	quiesce = 250
	// queueSize is the capacity of channel C.
	queueSize = 64
	// subscribeTimeout is the time to wait for the acknowledgment of a (un)subscription.
	subscribeTimeout = 5 * time.Second
	// clientPrefix is the prefix of generated client ids.
	clientPrefix = "tgrill-"
)

var (
	ErrNotConnected = errors.New("mqtt broker isn't connected")
	ErrQueueFull    = errors.New("mqtt send queue is full")
)

// Handler contains the handler of the mqtt broker.
type Handler struct {
	handler mqttlib.Client
	// C is the channel to service the mqtt message
	// sending a message to channel C will send the message.
	C   chan Message
	qos byte

	// mu guards subscriptions
	mu            sync.Mutex
	subscriptions map[string]func([]byte)
}

// Message contains the properties of the mqtt message.
type Message struct {
	Topic    string
	Payload  []byte
	Qos      byte
	Retained bool
}

// Options are the connection parameters of the broker.
type Options struct {
	// Broker is the broker url, e.g. tcp://localhost:1883. If empty no connection is established.
	Broker   string
	ClientID string
	Username string
	Password string
	// Qos is the quality of service of commands and subscriptions.
	Qos byte
}

// New generate a new mqtt broker client.
func New() *Handler {
	return &Handler{
		C:             make(chan Message, queueSize),
		subscriptions: map[string]func([]byte){},
	}
}

// Connect connects to the mqtt broker.
// If no broker is defined, no mqtt message are send.
// The client reconnects automatically, subscriptions are restored on each connect.
func (m *Handler) Connect(o Options) error {
	if o.Broker == "" {
		return nil
	}

	if o.ClientID == "" {
		o.ClientID = clientPrefix + uuid.NewString()
	}

	opts := mqttlib.NewClientOptions().
		AddBroker(o.Broker).
		SetClientID(o.ClientID).
		SetUsername(o.Username).
		SetPassword(o.Password).
		SetAutoReconnect(true).
		SetOnConnectHandler(func(mqttlib.Client) { m.resubscribe() }).
		SetConnectionLostHandler(func(_ mqttlib.Client, err error) {
			debug.ErrorLog.Printf("connection to mqtt broker lost: %v", err)
		})

	debug.InfoLog.Printf("connecting to mqtt broker %v as %v", o.Broker, o.ClientID)

	m.qos = o.Qos
	m.handler = mqttlib.NewClient(opts)
	return m.ReConnect()
}

// ReConnect reconnects to the defined mqtt broker.
func (m *Handler) ReConnect() error {
	t := m.handler.Connect()
	<-t.Done()
	return t.Error()
}

// Disconnect will end the connection to the broker.
func (m *Handler) Disconnect() error {
	if m.handler == nil {
		return nil
	}

	m.handler.Disconnect(quiesce)
	return nil
}

// IsConnected returns true if the broker connection is up.
func (m *Handler) IsConnected() bool {
	return m.handler != nil && m.handler.IsConnected()
}

// Publish queues a not retained message with the configured qos.
// It doesn't wait for the broker and fails with ErrQueueFull if the queue is full.
func (m *Handler) Publish(topic string, payload []byte) error {
	if m.handler == nil {
		return ErrNotConnected
	}
	return m.Send(Message{Topic: topic, Payload: payload, Qos: m.qos})
}

// Send queues msg without blocking. Messages are dropped by Service if no broker is defined.
func (m *Handler) Send(msg Message) error {
	select {
	case m.C <- msg:
		return nil
	default:
		return ErrQueueFull
	}
}

// Subscribe registers handler for topic. The handler is called with the payload of each message.
// The subscription is restored after a reconnect.
func (m *Handler) Subscribe(topic string, handler func(payload []byte)) error {
	m.mu.Lock()
	m.subscriptions[topic] = handler
	m.mu.Unlock()

	if !m.IsConnected() {
		debug.DebugLog.Printf("mqtt broker isn't connected, subscription %v is deferred", topic)
		return nil
	}

	return m.subscribe(topic, handler)
}

// Unsubscribe removes the subscription of topic.
func (m *Handler) Unsubscribe(topic string) error {
	m.mu.Lock()
	delete(m.subscriptions, topic)
	m.mu.Unlock()

	if !m.IsConnected() {
		return nil
	}

	return wait(m.handler.Unsubscribe(topic), "unsubscribe "+topic)
}

func (m *Handler) subscribe(topic string, handler func([]byte)) error {
	debug.DebugLog.Printf("subscribing topic %v", topic)

	t := m.handler.Subscribe(topic, m.qos, func(_ mqttlib.Client, msg mqttlib.Message) {
		debug.TraceLog.Printf("received %v bytes on topic %v", len(msg.Payload()), msg.Topic())
		handler(msg.Payload())
	})

	return wait(t, "subscribe "+topic)
}

// resubscribe restores all subscriptions, it's called on each (re)connect.
func (m *Handler) resubscribe() {
	m.mu.Lock()
	subs := make(map[string]func([]byte), len(m.subscriptions))
	for topic, h := range m.subscriptions {
		subs[topic] = h
	}
	m.mu.Unlock()

	for topic, h := range subs {
		if err := m.subscribe(topic, h); err != nil {
			debug.ErrorLog.Print(err)
		}
	}
}

// wait waits for the token and returns its error.
func wait(t mqttlib.Token, op string) error {
	if !t.WaitTimeout(subscribeTimeout) {
		return fmt.Errorf("%v: timeout", op)
	}
	if err := t.Error(); err != nil {
		return fmt.Errorf("%v: %w", op, err)
	}
	return nil
}

// Service listen to a message on the channel C and send the message to mqtt.
// If no handler or topic is defined, the message will be ignored.
// Messages are published in the order they are queued.
func (m *Handler) Service() {
	for msg := range m.C {
		if m.handler == nil || msg.Topic == "" {
			continue
		}

		if !m.handler.IsConnected() {
			debug.ErrorLog.Printf("mqtt broker isn't connected, dropping message to topic %v", msg.Topic)
			continue
		}

		debug.DebugLog.Printf("publishing %v bytes to topic %v", len(msg.Payload), msg.Topic)
		t := m.handler.Publish(msg.Topic, msg.Qos, msg.Retained, msg.Payload)

		// the asynchronous nature of this library makes it easy to forget to check for errors.
		// Consider using a go routine to log these
		go func(topic string) {
			<-t.Done()
			if err := t.Error(); err != nil {
				debug.ErrorLog.Printf("publishing topic %v: %v", topic, err)
			}
		}(msg.Topic)
	}
}
