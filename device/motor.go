package device

import (
	"sync"
	"time"

	"github.com/arloliu/go-nxt/nxt"
)

// Motor is one NXT servo motor. It holds the last commanded state and the
// last polled tachometer counters; the Brick owns the port slot, the motor
// only keeps a non-owning back-reference.
type Motor struct {
	mu           sync.Mutex
	brick        *Brick
	port         nxt.OutputPort
	pollInterval time.Duration
	prev         *nxt.OutputState
	last         *nxt.OutputState
}

// NewMotor creates a detached motor. Auto-polling of the tacho counters is
// disabled by default; enable it with SetPollInterval before connecting.
func NewMotor() *Motor {
	return &Motor{}
}

func (m *Motor) attach(b *Brick, port nxt.OutputPort) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.brick != nil {
		return ErrAlreadyAttached
	}
	m.brick = b
	m.port = port

	return nil
}

// Port returns the output port the motor is attached to.
func (m *Motor) Port() nxt.OutputPort {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.port
}

// PollInterval returns the auto-poll cadence; zero disables auto-polling.
func (m *Motor) PollInterval() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.pollInterval
}

// SetPollInterval changes the auto-poll cadence. Zero disables
// auto-polling. Takes effect on the next Connect.
func (m *Motor) SetPollInterval(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.pollInterval = d
}

func (m *Motor) conn() (*nxt.Conn, error) {
	m.mu.Lock()
	brick := m.brick
	m.mu.Unlock()

	if brick == nil {
		return nil, ErrNotAttached
	}

	return brick.Conn(), nil
}

// Run drives the motor with speed regulation. Power and turnRatio are
// clamped to [-100, 100]; tachoLimit is the movement limit in degrees, 0
// meaning run until further notice.
func (m *Motor) Run(power, turnRatio int, tachoLimit uint32) error {
	conn, err := m.conn()
	if err != nil {
		return err
	}

	return conn.SetOutputState(m.Port(), power,
		nxt.MotorOn|nxt.Regulated, nxt.RegulationSpeed,
		turnRatio, nxt.RunStateRunning, tachoLimit)
}

// Brake stops the motor with electronic braking, holding the position.
func (m *Motor) Brake() error {
	conn, err := m.conn()
	if err != nil {
		return err
	}

	return conn.SetOutputState(m.Port(), 0,
		nxt.MotorOn|nxt.Brake|nxt.Regulated, nxt.RegulationSpeed,
		0, nxt.RunStateRunning, 0)
}

// Idle cuts power and lets the motor coast to a stop.
func (m *Motor) Idle() error {
	conn, err := m.conn()
	if err != nil {
		return err
	}

	return conn.SetOutputState(m.Port(), 0,
		0, nxt.RegulationIdle, 0, nxt.RunStateIdle, 0)
}

// ResetPosition resets the motor's position counter. When relative is true
// only the position relative to the last movement is reset.
func (m *Motor) ResetPosition(relative bool) error {
	conn, err := m.conn()
	if err != nil {
		return err
	}

	return conn.ResetMotorPosition(m.Port(), relative)
}

// Poll refreshes the cached tachometer state. Polling while disconnected is
// a no-op.
func (m *Motor) Poll() error {
	m.mu.Lock()
	brick := m.brick
	m.mu.Unlock()

	if brick == nil || !brick.IsConnected() {
		return nil
	}

	state, err := brick.Conn().GetOutputState(m.Port())
	if err != nil {
		return err
	}

	m.mu.Lock()
	m.prev = m.last
	m.last = state
	m.mu.Unlock()

	return nil
}

// State returns a copy of the last polled motor state, or nil before the
// first poll.
func (m *Motor) State() *nxt.OutputState {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.last == nil {
		return nil
	}
	state := *m.last

	return &state
}

// TachoCount returns the degrees turned since the last reset, from the last
// polled state.
func (m *Motor) TachoCount() int32 {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.last == nil {
		return 0
	}

	return m.last.TachoCount
}

// MotorPair drives two motors in lockstep using the firmware's synchronized
// regulation, as used for differential-drive vehicles.
//
// A pair-level mutex makes each Run/Brake/Idle atomic from the caller's
// perspective: the two SetOutputState exchanges of one call never interleave
// with those of a concurrent call.
type MotorPair struct {
	mu    sync.Mutex
	left  *Motor
	right *Motor
}

// NewMotorPair creates a synchronized pair from two motors. Both must be
// attached to the same brick by the time the pair is driven.
func NewMotorPair(left, right *Motor) *MotorPair {
	return &MotorPair{left: left, right: right}
}

// Left returns the left motor.
func (p *MotorPair) Left() *Motor { return p.left }

// Right returns the right motor.
func (p *MotorPair) Right() *Motor { return p.right }

// conn validates the pair's attachment and returns the shared connection.
func (p *MotorPair) conn() (*nxt.Conn, error) {
	p.left.mu.Lock()
	leftBrick := p.left.brick
	p.left.mu.Unlock()
	p.right.mu.Lock()
	rightBrick := p.right.brick
	p.right.mu.Unlock()

	if leftBrick == nil || rightBrick == nil {
		return nil, ErrNotAttached
	}
	if leftBrick != rightBrick {
		return nil, ErrDifferentBricks
	}

	return leftBrick.Conn(), nil
}

// Run drives both motors in lockstep. A positive turnRatio steers toward
// the right motor, negative toward the left; both power and turnRatio are
// clamped to [-100, 100].
func (p *MotorPair) Run(power, turnRatio int, tachoLimit uint32) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.conn()
	if err != nil {
		return err
	}

	mode := nxt.MotorOn | nxt.Regulated
	if err := conn.SetOutputState(p.left.Port(), power, mode,
		nxt.RegulationSync, turnRatio, nxt.RunStateRunning, tachoLimit); err != nil {
		return err
	}

	return conn.SetOutputState(p.right.Port(), power, mode,
		nxt.RegulationSync, turnRatio, nxt.RunStateRunning, tachoLimit)
}

// Brake stops both motors with electronic braking.
func (p *MotorPair) Brake() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.conn()
	if err != nil {
		return err
	}

	mode := nxt.MotorOn | nxt.Brake | nxt.Regulated
	if err := conn.SetOutputState(p.left.Port(), 0, mode,
		nxt.RegulationSync, 0, nxt.RunStateRunning, 0); err != nil {
		return err
	}

	return conn.SetOutputState(p.right.Port(), 0, mode,
		nxt.RegulationSync, 0, nxt.RunStateRunning, 0)
}

// Idle cuts power to both motors and lets them coast.
func (p *MotorPair) Idle() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.conn()
	if err != nil {
		return err
	}

	if err := conn.SetOutputState(p.left.Port(), 0,
		0, nxt.RegulationIdle, 0, nxt.RunStateIdle, 0); err != nil {
		return err
	}

	return conn.SetOutputState(p.right.Port(), 0,
		0, nxt.RegulationIdle, 0, nxt.RunStateIdle, 0)
}
