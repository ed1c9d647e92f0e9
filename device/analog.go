package device

import "github.com/arloliu/go-nxt/nxt"

// Passive analog sensors: touch, light, and sound. They are read with
// GetInputValues; the firmware derives the scaled value from the configured
// mode.

// analogSensor is the common implementation of the passive-analog variants.
type analogSensor struct {
	baseSensor
}

// Init pushes the sensor's type and mode to the brick.
func (s *analogSensor) Init() error {
	return s.pushInputMode()
}

// readValues polls the device and rotates the cached reading pair. It
// returns the previous and current readings; prev is nil on the first poll.
func (s *analogSensor) readValues() (prev, cur *nxt.InputValues, err error) {
	conn, err := s.conn()
	if err != nil {
		return nil, nil, err
	}

	vals, err := conn.GetInputValues(s.Port())
	if err != nil {
		return nil, nil, err
	}

	s.mu.Lock()
	prev = s.last
	s.last = vals
	s.mu.Unlock()

	return prev, vals, nil
}

// TouchSensor is the NXT touch sensor: a pressed/released switch with edge
// events.
type TouchSensor struct {
	analogSensor
	pressed  []func()
	released []func()
}

// NewTouchSensor creates a detached touch sensor with the default poll
// interval.
func NewTouchSensor() *TouchSensor {
	s := &TouchSensor{}
	s.typ = nxt.Switch
	s.mode = nxt.BooleanMode
	s.pollInterval = DefaultPollInterval

	return s
}

// OnPressed registers a listener fired when a poll observes the released to
// pressed transition.
func (s *TouchSensor) OnPressed(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pressed = append(s.pressed, fn)
}

// OnReleased registers a listener fired when a poll observes the pressed to
// released transition.
func (s *TouchSensor) OnReleased(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.released = append(s.released, fn)
}

// Pressed reports whether the last poll observed the sensor pressed.
func (s *TouchSensor) Pressed() bool {
	reading := s.LastReading()

	return reading != nil && reading.Scaled != 0
}

// Poll refreshes the cached reading and fires at most one of the pressed or
// released events. The first poll establishes the baseline and never fires.
func (s *TouchSensor) Poll() error {
	if !s.connected() {
		return nil
	}

	prev, cur, err := s.readValues()
	if err != nil {
		return err
	}

	var fire []func()
	s.mu.Lock()
	if prev != nil {
		wasPressed := prev.Scaled != 0
		isPressed := cur.Scaled != 0
		if !wasPressed && isPressed {
			fire = s.pressed
		} else if wasPressed && !isPressed {
			fire = s.released
		}
	}
	s.mu.Unlock()

	for _, fn := range fire {
		fn()
	}

	return nil
}

// thresholdSensor is the common implementation of the analog variants that
// report a percentage and fire threshold-crossing events.
type thresholdSensor struct {
	analogSensor
	events thresholdEvents
}

// SetThreshold sets the scaled-value threshold the crossing events compare
// against. A reading at the threshold counts as above.
func (s *thresholdSensor) SetThreshold(threshold int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events.threshold = threshold
}

// Threshold returns the configured threshold.
func (s *thresholdSensor) Threshold() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.events.threshold
}

// OnThresholdAbove registers a listener fired when consecutive polls cross
// from below the threshold to at or above it.
func (s *thresholdSensor) OnThresholdAbove(fn func(value int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events.above = append(s.events.above, fn)
}

// OnThresholdBelow registers a listener fired when consecutive polls cross
// from at or above the threshold to below it.
func (s *thresholdSensor) OnThresholdBelow(fn func(value int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events.below = append(s.events.below, fn)
}

// Value returns the scaled reading of the last poll, or -1 before the first
// poll.
func (s *thresholdSensor) Value() int {
	reading := s.LastReading()
	if reading == nil {
		return -1
	}

	return int(reading.Scaled)
}

// Poll refreshes the cached reading and fires at most one of the above or
// below crossing events. The first poll establishes the baseline and never
// fires.
func (s *thresholdSensor) Poll() error {
	if !s.connected() {
		return nil
	}

	prev, cur, err := s.readValues()
	if err != nil {
		return err
	}

	s.mu.Lock()
	fire := s.events.crossing(prev != nil, int(prevScaled(prev)), int(cur.Scaled))
	s.mu.Unlock()

	for _, fn := range fire {
		fn(int(cur.Scaled))
	}

	return nil
}

func prevScaled(prev *nxt.InputValues) int16 {
	if prev == nil {
		return 0
	}

	return prev.Scaled
}

// LightSensor is the NXT light sensor. In active mode the floodlight LED is
// on and the sensor measures reflected light; in inactive mode it measures
// ambient light. The scaled reading is a 0-100 illumination percentage.
type LightSensor struct {
	thresholdSensor
}

// NewLightSensor creates a detached light sensor. floodlight selects active
// (LED on) or inactive (ambient) mode.
func NewLightSensor(floodlight bool) *LightSensor {
	s := &LightSensor{}
	if floodlight {
		s.typ = nxt.LightActive
	} else {
		s.typ = nxt.LightInactive
	}
	s.mode = nxt.FullScaleMode
	s.pollInterval = DefaultPollInterval

	return s
}

// SetFloodlight switches the LED on or off. The new configuration is pushed
// immediately when the brick is connected; readings are not trusted until
// the push succeeds.
func (s *LightSensor) SetFloodlight(on bool) error {
	s.mu.Lock()
	if on {
		s.typ = nxt.LightActive
	} else {
		s.typ = nxt.LightInactive
	}
	s.mu.Unlock()

	if !s.connected() {
		return nil
	}

	return s.Init()
}

// Intensity returns the illumination percentage of the last poll, or -1
// before the first poll.
func (s *LightSensor) Intensity() int { return s.Value() }

// SoundSensor is the NXT sound sensor. The scaled reading is a 0-100 sound
// level percentage, measured flat (dB) or with human-ear weighting (dBA).
type SoundSensor struct {
	thresholdSensor
}

// NewSoundSensor creates a detached sound sensor. adjusted selects dBA
// (human-ear weighted) measurement instead of flat dB.
func NewSoundSensor(adjusted bool) *SoundSensor {
	s := &SoundSensor{}
	if adjusted {
		s.typ = nxt.SoundDBA
	} else {
		s.typ = nxt.SoundDB
	}
	s.mode = nxt.FullScaleMode
	s.pollInterval = DefaultPollInterval

	return s
}

// Level returns the sound level percentage of the last poll, or -1 before
// the first poll.
func (s *SoundSensor) Level() int { return s.Value() }
