// Package grill synchronizes the state of one smoker with the device.
//
// The device doesn't answer requests. The state is rebuilt from the packets the device emits
// and a periodic heartbeat keeps the command channel of the device responsive.
package grill

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"tgrill/pkg/protocol"

	"github.com/womat/debug"
)

var (
	ErrNotActive     = errors.New("device session is not active")
	ErrInvalidTarget = errors.New("invalid target temperature")
)

const (
	// DefaultInterval is the default period of the heartbeat cycle.
	DefaultInterval = 5 * time.Second
	// DefaultSpacing is the delay between the commands of a heartbeat cycle.
	// Commands sent back-to-back are dropped by the device.
	DefaultSpacing = 200 * time.Millisecond
)

// Transport is the publish/subscribe message bus.
// Publish must not wait for the acknowledgment of the broker.
type Transport interface {
	Publish(topic string, payload []byte) error
	Subscribe(topic string, handler func(payload []byte)) error
	Unsubscribe(topic string) error
}

// CommandTopic returns the topic the device receives commands on.
func CommandTopic(deviceID string) string {
	return deviceID + "/app2dev"
}

// TelemetryTopic returns the topic the device publishes its status on.
func TelemetryTopic(deviceID string) string {
	return deviceID + "/dev2app"
}

// SessionStatus is the state of the device session.
type SessionStatus int

const (
	// Disconnected means no handshake was sent yet (or the session was stopped).
	Disconnected SessionStatus = iota
	// Active means the handshake was sent and the heartbeat is running.
	Active
)

// String returns the session status name.
func (s SessionStatus) String() string {
	if s == Active {
		return "active"
	}
	return "disconnected"
}

// Config defines the device session.
type Config struct {
	DeviceID string
	Unit     protocol.Unit
	// Interval is the period of the heartbeat cycle.
	Interval time.Duration
	// Spacing is the delay between two commands of a heartbeat cycle.
	Spacing time.Duration
	Layout  protocol.Layout
}

// pollCycle is the command sequence of a heartbeat.
var pollCycle = []protocol.Intent{protocol.Handshake, protocol.PollStatus, protocol.PollTemps, protocol.PollTarget}

// Synchronizer owns the state of one device session.
type Synchronizer struct {
	config    Config
	transport Transport
	now       func() time.Time

	// lifecycle serializes Start and Stop, it's never held by inbound packets or intents.
	lifecycle sync.Mutex

	// mu guards the fields below; inbound packets, heartbeat and user intents are serialized by mu.
	// mu is never held while calling the transport's Subscribe or Unsubscribe.
	mu       sync.Mutex
	state    State
	status   SessionStatus
	version  uint64
	onChange func(State)
	cancel   context.CancelFunc
	// done is closed when the heartbeat of the session has stopped and the session is torn down.
	done chan struct{}

	// notifyMu serializes observer calls, notified is the version of the last delivered snapshot.
	notifyMu sync.Mutex
	notified uint64
}

// New returns a synchronizer in state Disconnected.
func New(c Config, t Transport) *Synchronizer {
	if c.Interval <= 0 {
		c.Interval = DefaultInterval
	}
	if c.Spacing <= 0 {
		c.Spacing = DefaultSpacing
	}
	if c.Layout == (protocol.Layout{}) {
		c.Layout = protocol.DefaultLayout
	}

	return &Synchronizer{
		config:    c,
		transport: t,
		now:       time.Now,
		state:     newState(c.Unit),
	}
}

// OnChange registers the observer called with a snapshot whenever the state changes.
func (s *Synchronizer) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// State returns a snapshot of the current state.
func (s *Synchronizer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Status returns the session status.
func (s *Synchronizer) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Start subscribes to the telemetry topic, sends the handshake and starts the heartbeat.
// Starting an active session does nothing. The session ends with Stop or when ctx is cancelled.
// Packets delivered during the subscription are applied to the state.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	status, prev := s.status, s.done
	s.mu.Unlock()

	if status == Active {
		return nil
	}
	// the previous session is still unsubscribing
	if prev != nil {
		<-prev
	}

	topic := TelemetryTopic(s.config.DeviceID)
	if err := s.transport.Subscribe(topic, s.HandlePayload); err != nil {
		return fmt.Errorf("subscribe %v: %w", topic, err)
	}

	// a failed handshake is repeated by the next heartbeat
	_ = s.publish(protocol.Command{Intent: protocol.Handshake})

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	s.cancel, s.done = cancel, done
	s.status = Active
	s.mu.Unlock()

	go s.heartbeat(ctx, done)

	debug.InfoLog.Printf("device %v: session started (heartbeat %v)", s.config.DeviceID, s.config.Interval)
	return nil
}

// Stop stops the heartbeat and unsubscribes the telemetry topic. No further commands are sent.
// A command of the heartbeat in progress is completed, Stop waits for it.
func (s *Synchronizer) Stop() {
	s.lifecycle.Lock()
	defer s.lifecycle.Unlock()

	s.mu.Lock()
	cancel, done := s.cancel, s.done
	s.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-done
}

// teardown ends the session, it's called by the heartbeat when its context is cancelled.
// Intents are rejected from now on.
func (s *Synchronizer) teardown() {
	s.mu.Lock()
	s.status = Disconnected
	s.mu.Unlock()

	topic := TelemetryTopic(s.config.DeviceID)
	if err := s.transport.Unsubscribe(topic); err != nil {
		debug.ErrorLog.Printf("unsubscribe %v: %v", topic, err)
	}

	debug.InfoLog.Printf("device %v: session stopped", s.config.DeviceID)
}

// HandlePayload decodes an inbound payload and applies it to the state.
// Malformed payloads are ignored. The device is authoritative, reported values overwrite optimistic ones.
func (s *Synchronizer) HandlePayload(payload []byte) {
	debug.TraceLog.Printf("device %v: received %v", s.config.DeviceID, hex.EncodeToString(payload))

	u := protocol.Decode(payload, s.config.Layout)
	if u.Empty() {
		return
	}

	s.mu.Lock()
	changed := s.state.apply(u)
	s.commit(changed)
}

// SetPower switches the smoker on or off.
// The command is published and the state is updated without waiting for the confirmation of the device.
func (s *Synchronizer) SetPower(on bool) error {
	c := protocol.Command{Intent: protocol.PowerOff}
	mode := protocol.ModeOff
	if on {
		c.Intent, mode = protocol.PowerOn, protocol.ModeHeating
	}

	s.mu.Lock()
	if s.status != Active {
		s.mu.Unlock()
		return ErrNotActive
	}

	if err := s.publish(c); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%v: %w", c.Intent, err)
	}

	changed := s.state.Mode != mode
	s.state.Mode = mode
	s.commit(changed)
	return nil
}

// SetTarget sets the target temperature (display unit). The value is clamped to the limits of the unit.
// Like SetPower the state is updated optimistically.
func (s *Synchronizer) SetTarget(value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return ErrInvalidTarget
	}

	s.mu.Lock()
	if s.status != Active {
		s.mu.Unlock()
		return ErrNotActive
	}

	t := s.config.Unit.ClampTarget(value)
	if err := s.publish(protocol.Command{Intent: protocol.SetTarget, Value: t}); err != nil {
		s.mu.Unlock()
		return fmt.Errorf("set target: %w", err)
	}

	changed := s.state.Target != t
	s.state.Target = t
	s.commit(changed)
	return nil
}

// commit must be called with s.mu held, it releases s.mu and notifies the observer if changed.
func (s *Synchronizer) commit(changed bool) {
	if !changed {
		s.mu.Unlock()
		return
	}

	s.version++
	v, snapshot, fn := s.version, s.state.clone(), s.onChange
	s.mu.Unlock()

	if fn == nil {
		return
	}

	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()

	// a newer snapshot was already delivered by a concurrent caller
	if v <= s.notified {
		return
	}
	s.notified = v
	fn(snapshot)
}

// publish encodes and publishes a command. Errors are logged and not retried.
func (s *Synchronizer) publish(c protocol.Command) error {
	b, err := protocol.Encode(c, s.config.Unit)
	if err != nil {
		debug.ErrorLog.Printf("device %v: %v", s.config.DeviceID, err)
		return err
	}

	debug.DebugLog.Printf("device %v: sending %v (%v)", s.config.DeviceID, c.Intent, hex.EncodeToString(b))

	if err = s.transport.Publish(CommandTopic(s.config.DeviceID), b); err != nil {
		debug.ErrorLog.Printf("device %v: publishing %v: %v", s.config.DeviceID, c.Intent, err)
		return err
	}

	return nil
}
