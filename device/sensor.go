package device

import (
	"sync"
	"time"

	"github.com/arloliu/go-nxt/nxt"
)

// Sensor is the capability interface shared by all sensor variants:
// configuration push, a single refresh of the cached reading, and the
// attachment bookkeeping the Brick needs. Concrete variants add typed
// accessors and edge events on top.
type Sensor interface {
	// Init pushes the sensor's type/mode configuration to the brick. It is
	// called by Brick.Connect and must be called again whenever the
	// configuration changes before readings are trusted.
	Init() error

	// Poll refreshes the cached reading and fires edge events. Polling
	// while disconnected is a no-op.
	Poll() error

	// Port returns the input port the sensor is attached to.
	Port() nxt.InputPort

	// PollInterval returns the auto-poll cadence; zero disables
	// auto-polling for this sensor.
	PollInterval() time.Duration

	attach(b *Brick, port nxt.InputPort) error
}

// baseSensor holds the state common to every sensor variant. The brick
// back-reference is non-owning; the Brick owns its port slots.
type baseSensor struct {
	mu           sync.Mutex
	brick        *Brick
	port         nxt.InputPort
	typ          nxt.SensorType
	mode         nxt.SensorMode
	pollInterval time.Duration
	last         *nxt.InputValues
}

func (s *baseSensor) attach(b *Brick, port nxt.InputPort) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.brick != nil {
		return ErrAlreadyAttached
	}
	s.brick = b
	s.port = port

	return nil
}

// Port returns the input port the sensor is attached to.
func (s *baseSensor) Port() nxt.InputPort {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.port
}

// Type returns the configured sensor type.
func (s *baseSensor) Type() nxt.SensorType {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.typ
}

// Mode returns the configured sensor mode.
func (s *baseSensor) Mode() nxt.SensorMode {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.mode
}

// PollInterval returns the auto-poll cadence.
func (s *baseSensor) PollInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pollInterval
}

// SetPollInterval changes the auto-poll cadence. Zero disables
// auto-polling. Takes effect on the next Connect.
func (s *baseSensor) SetPollInterval(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.pollInterval = d
}

// LastReading returns a copy of the most recent poll result, or nil before
// the first poll.
func (s *baseSensor) LastReading() *nxt.InputValues {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return nil
	}
	vals := *s.last

	return &vals
}

// conn returns the brick connection, or ErrNotAttached.
func (s *baseSensor) conn() (*nxt.Conn, error) {
	s.mu.Lock()
	brick := s.brick
	s.mu.Unlock()

	if brick == nil {
		return nil, ErrNotAttached
	}

	return brick.Conn(), nil
}

// connected reports whether the owning brick is connected; detached sensors
// are never connected.
func (s *baseSensor) connected() bool {
	s.mu.Lock()
	brick := s.brick
	s.mu.Unlock()

	return brick != nil && brick.IsConnected()
}

// pushInputMode sends the current type/mode configuration to the device.
func (s *baseSensor) pushInputMode() error {
	conn, err := s.conn()
	if err != nil {
		return err
	}

	s.mu.Lock()
	port, typ, mode := s.port, s.typ, s.mode
	s.mu.Unlock()

	return conn.SetInputMode(port, typ, mode)
}

// thresholdEvents implements the shared above/below edge detection over an
// integer derived value. fired listeners receive the new value.
//
// The zero value has no threshold crossing armed until prev is seeded by
// the first observation; crossing must be called under the owning sensor's
// mutex and the returned listeners invoked after it is released.
type thresholdEvents struct {
	threshold int
	above     []func(value int)
	below     []func(value int)
}

// crossing reports which listener set, if any, a prev→cur transition fires.
// A reading at the threshold counts as above. No listeners fire without a
// prior baseline.
func (e *thresholdEvents) crossing(hasPrev bool, prev, cur int) []func(int) {
	if !hasPrev {
		return nil
	}

	switch {
	case prev < e.threshold && cur >= e.threshold:
		return e.above
	case prev >= e.threshold && cur < e.threshold:
		return e.below
	default:
		return nil
	}
}
