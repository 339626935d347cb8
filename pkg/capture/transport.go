package capture

import (
	"time"

	"github.com/womat/debug"
)

// Bus is the message bus wrapped by Transport.
type Bus interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(payload []byte)) error
	Unsubscribe(topic string) error
}

// Transport records all frames passing a bus.
type Transport struct {
	bus      Bus
	recorder *Recorder
	now      func() time.Time
}

// NewTransport wraps bus, frames are written to recorder.
func NewTransport(bus Bus, recorder *Recorder) *Transport {
	return &Transport{bus: bus, recorder: recorder, now: time.Now}
}

// Publish records the payload as outbound frame and publishes it.
// Only frames accepted by the bus are recorded.
func (t *Transport) Publish(topic string, payload []byte) error {
	if err := t.bus.Publish(topic, payload); err != nil {
		return err
	}
	t.record(Outbound, topic, payload)
	return nil
}

// Subscribe records each inbound frame before it's passed to handler.
func (t *Transport) Subscribe(topic string, handler func(payload []byte)) error {
	return t.bus.Subscribe(topic, func(payload []byte) {
		t.record(Inbound, topic, payload)
		handler(payload)
	})
}

// Unsubscribe removes the subscription of topic.
func (t *Transport) Unsubscribe(topic string) error {
	return t.bus.Unsubscribe(topic)
}

func (t *Transport) record(d Direction, topic string, payload []byte) {
	rec := Record{Time: t.now(), Direction: d, Topic: topic, Payload: append([]byte(nil), payload...)}
	if err := t.recorder.Write(rec); err != nil {
		debug.ErrorLog.Printf("capture %v frame: %v", d, err)
	}
}
