package device

import (
	"errors"
	"fmt"
	"time"

	"github.com/arloliu/go-nxt/nxt"
)

// Digital sensors speak their own protocol over the brick's low-speed (I2C)
// passthrough: a request goes out with LSWrite, LSGetStatus is polled until
// the addressed device has produced the reply bytes, and LSRead collects
// them.

const (
	// lsStatusPollInterval is the delay between consecutive LSGetStatus
	// polls while waiting for a digital sensor to answer.
	lsStatusPollInterval = 10 * time.Millisecond

	// lsStatusRetryLimit bounds the status-poll loop; the ultrasonic sensor
	// answers well within this budget.
	lsStatusRetryLimit = 50

	// lsDrainLimit bounds the stale-byte drain during Init.
	lsDrainLimit = 8
)

// I2CSensor is a digital sensor on the low-speed bus. It serves as the base
// of the concrete digital variants and can be used directly to drive custom
// I2C devices.
type I2CSensor struct {
	baseSensor
	address byte
}

// NewI2CSensor creates a detached generic digital sensor with the given bus
// address, powered and configured per typ and mode (typically
// nxt.LowSpeed9V and nxt.RawMode).
func NewI2CSensor(address byte, typ nxt.SensorType, mode nxt.SensorMode) *I2CSensor {
	s := &I2CSensor{address: address}
	s.typ = typ
	s.mode = mode
	s.pollInterval = DefaultPollInterval

	return s
}

// Address returns the sensor's I2C bus address.
func (s *I2CSensor) Address() byte { return s.address }

// Init pushes the port configuration and drains any stale bytes left in the
// low-speed buffer from a previous session, so the first real exchange does
// not consume leftovers.
func (s *I2CSensor) Init() error {
	if err := s.pushInputMode(); err != nil {
		return err
	}

	return s.drain()
}

// Poll refreshes nothing by itself on the generic sensor; concrete variants
// override it. It exists so a bare I2CSensor can still be attached.
func (s *I2CSensor) Poll() error {
	return nil
}

func (s *I2CSensor) drain() error {
	conn, err := s.conn()
	if err != nil {
		return err
	}
	port := s.Port()

	for i := 0; i < lsDrainLimit; i++ {
		n, err := conn.LSGetStatus(port)
		if err != nil {
			// A bus error here just means nothing usable is buffered.
			var perr *nxt.ProtocolError
			if errors.As(err, &perr) {
				return nil
			}

			return err
		}
		if n == 0 {
			return nil
		}

		if _, err := conn.LSRead(port); err != nil {
			return err
		}
	}

	return nil
}

// Exchange performs one digital-sensor transaction: write tx, wait until
// rxLen reply bytes are ready, and read them.
//
// Two device statuses are recovered locally rather than propagated: a
// pending-communication status renews the status poll, and a communication
// bus error is cleared with a dummy read and reported as a nil, no-data
// result. Every other fault propagates. When rxLen is zero the exchange is
// write-only and returns immediately after LSWrite.
func (s *I2CSensor) Exchange(tx []byte, rxLen int) ([]byte, error) {
	conn, err := s.conn()
	if err != nil {
		return nil, err
	}
	port := s.Port()

	if err := conn.LSWrite(port, tx, rxLen); err != nil {
		return nil, err
	}
	if rxLen == 0 {
		return nil, nil
	}

	for retry := 0; retry < lsStatusRetryLimit; retry++ {
		n, err := conn.LSGetStatus(port)
		if err != nil {
			var perr *nxt.ProtocolError
			if !errors.As(err, &perr) {
				return nil, err
			}

			switch perr.Status {
			case nxt.StatusPendingCommunication:
				// Transaction still in flight; renew the status query.
			case nxt.StatusBusError:
				s.clearBusError(conn, port)
				return nil, nil
			default:
				return nil, err
			}
		} else if n >= rxLen {
			return conn.LSRead(port)
		}

		time.Sleep(lsStatusPollInterval)
	}

	return nil, fmt.Errorf("%w: port %s after %d status polls", ErrLSResponseTimeout, port, lsStatusRetryLimit)
}

// clearBusError issues a dummy read-at-address to clear a communication bus
// error. Failures here are irrelevant; the bus is already known bad and the
// caller reports a no-data result.
func (s *I2CSensor) clearBusError(conn *nxt.Conn, port nxt.InputPort) {
	_ = conn.LSWrite(port, []byte{s.address, 0x00}, 1)
	_, _ = conn.LSRead(port)
}

// Ultrasonic sensor register map (LEGO hardware developer kit).
const (
	ultrasonicAddress = 0x02

	usRegVersion         = 0x00
	usRegProductID       = 0x08
	usRegSensorType      = 0x10
	usRegUnits           = 0x14
	usRegCommandState    = 0x41
	usRegMeasurement0    = 0x42
	usCmdContinuousMeter = 0x02

	// UltrasonicNoEcho is the distance reading reported when no echo was
	// received within range.
	UltrasonicNoEcho = 255

	// ultrasonicMeasurements is the number of measurement registers.
	ultrasonicMeasurements = 8
)

// UltrasonicSensor is the NXT ultrasonic distance sensor, a digital sensor
// reporting distances of 0-255 cm. A reading of UltrasonicNoEcho means no
// object was in range.
type UltrasonicSensor struct {
	I2CSensor
	events      thresholdEvents
	hasDistance bool
	distance    int
}

// NewUltrasonicSensor creates a detached ultrasonic sensor.
func NewUltrasonicSensor() *UltrasonicSensor {
	s := &UltrasonicSensor{}
	s.address = ultrasonicAddress
	s.typ = nxt.LowSpeed9V
	s.mode = nxt.RawMode
	s.pollInterval = DefaultPollInterval

	return s
}

// Init configures the port, drains stale low-speed bytes, and switches the
// sensor to continuous measurement.
func (s *UltrasonicSensor) Init() error {
	if err := s.I2CSensor.Init(); err != nil {
		return err
	}

	_, err := s.Exchange([]byte{s.address, usRegCommandState, usCmdContinuousMeter}, 0)

	return err
}

// ReadDistance reads the first measurement register. ok is false when the
// bus glitched and no reading was obtained; the caller should simply try
// again on the next poll.
func (s *UltrasonicSensor) ReadDistance() (cm int, ok bool, err error) {
	return s.ReadMeasurement(0)
}

// ReadMeasurement reads one of the eight measurement registers. index must
// be in [0, 7].
func (s *UltrasonicSensor) ReadMeasurement(index int) (cm int, ok bool, err error) {
	if index < 0 || index >= ultrasonicMeasurements {
		return 0, false, &nxt.ValidationError{
			Field:  "measurement index",
			Reason: fmt.Sprintf("%d outside range [0, %d]", index, ultrasonicMeasurements-1),
		}
	}

	data, err := s.Exchange([]byte{s.address, byte(usRegMeasurement0 + index)}, 1)
	if err != nil {
		return 0, false, err
	}
	if len(data) == 0 {
		return 0, false, nil
	}

	return int(data[0]), true, nil
}

// Version reads the sensor's firmware version string.
func (s *UltrasonicSensor) Version() (string, error) {
	return s.readString(usRegVersion)
}

// ProductID reads the sensor's product ID string.
func (s *UltrasonicSensor) ProductID() (string, error) {
	return s.readString(usRegProductID)
}

// SensorType reads the sensor's type string.
func (s *UltrasonicSensor) SensorType() (string, error) {
	return s.readString(usRegSensorType)
}

// Units reads the sensor's measurement units string (typically "10E-2m").
func (s *UltrasonicSensor) Units() (string, error) {
	return s.readString(usRegUnits)
}

func (s *UltrasonicSensor) readString(reg byte) (string, error) {
	data, err := s.Exchange([]byte{s.address, reg}, 8)
	if err != nil {
		return "", err
	}

	for i, b := range data {
		if b == 0 {
			return string(data[:i]), nil
		}
	}

	return string(data), nil
}

// SetThreshold sets the distance threshold in cm for the crossing events.
func (s *UltrasonicSensor) SetThreshold(cm int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events.threshold = cm
}

// Threshold returns the configured distance threshold.
func (s *UltrasonicSensor) Threshold() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.events.threshold
}

// OnThresholdAbove registers a listener fired when consecutive polls cross
// from nearer than the threshold to at or beyond it.
func (s *UltrasonicSensor) OnThresholdAbove(fn func(cm int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events.above = append(s.events.above, fn)
}

// OnThresholdBelow registers a listener fired when consecutive polls cross
// from at or beyond the threshold to nearer than it.
func (s *UltrasonicSensor) OnThresholdBelow(fn func(cm int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events.below = append(s.events.below, fn)
}

// Distance returns the distance of the last poll in cm, or -1 before the
// first successful poll.
func (s *UltrasonicSensor) Distance() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.hasDistance {
		return -1
	}

	return s.distance
}

// Poll reads the distance and fires at most one of the crossing events. A
// no-data reading (recovered bus error) leaves the cached distance and the
// baseline untouched.
func (s *UltrasonicSensor) Poll() error {
	if !s.connected() {
		return nil
	}

	cm, ok, err := s.ReadDistance()
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	s.mu.Lock()
	fire := s.events.crossing(s.hasDistance, s.distance, cm)
	s.distance = cm
	s.hasDistance = true
	s.mu.Unlock()

	for _, fn := range fire {
		fn(cm)
	}

	return nil
}
