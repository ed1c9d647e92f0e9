package nxt

import "fmt"

// Field size limits. String parameters are validated against these before
// any bytes are framed; the wire fields reserve one extra byte for the
// terminating NUL.
const (
	// MaxFileNameLen is the longest file name the flash filesystem accepts
	// (15.3 format).
	MaxFileNameLen = 19
	// MaxBrickNameLen is the longest brick name SetBrickName accepts.
	MaxBrickNameLen = 15
	// MaxMessageLen is the longest mailbox message payload, excluding the
	// terminating NUL.
	MaxMessageLen = 59
	// MaxLSDataLen is the most data bytes a single low-speed (I2C)
	// transaction can carry in either direction.
	MaxLSDataLen = 16

	fileNameField  = MaxFileNameLen + 1
	brickNameField = MaxBrickNameLen + 1
)

// OutputPort identifies a motor port.
type OutputPort byte

const (
	PortA OutputPort = iota
	PortB
	PortC
	// PortAll addresses all three motor ports at once.
	PortAll OutputPort = 0xFF
)

// String returns the port letter.
func (p OutputPort) String() string {
	switch p {
	case PortA:
		return "A"
	case PortB:
		return "B"
	case PortC:
		return "C"
	case PortAll:
		return "ABC"
	default:
		return fmt.Sprintf("output port 0x%02X", byte(p))
	}
}

// InputPort identifies a sensor port. The wire value is zero-based; the
// printed form matches the 1-4 labels on the brick.
type InputPort byte

const (
	Port1 InputPort = iota
	Port2
	Port3
	Port4
)

// String returns the port number as labeled on the brick.
func (p InputPort) String() string {
	if p <= Port4 {
		return fmt.Sprintf("%d", p+1)
	}
	return fmt.Sprintf("input port 0x%02X", byte(p))
}

// OutputMode is the motor mode bitmask of SetOutputState.
type OutputMode byte

const (
	// MotorOn enables power to the motor.
	MotorOn OutputMode = 0x01
	// Brake applies electronic braking at zero power.
	Brake OutputMode = 0x02
	// Regulated enables the regulation selected by RegulationMode.
	Regulated OutputMode = 0x04
)

// RegulationMode selects the motor regulation algorithm.
type RegulationMode byte

const (
	RegulationIdle  RegulationMode = 0x00
	RegulationSpeed RegulationMode = 0x01
	// RegulationSync keeps two motors in lockstep, honoring the turn ratio.
	RegulationSync RegulationMode = 0x02
)

// RunState is the motor run state of SetOutputState.
type RunState byte

const (
	RunStateIdle     RunState = 0x00
	RunStateRampUp   RunState = 0x10
	RunStateRunning  RunState = 0x20
	RunStateRampDown RunState = 0x40
)

// SensorType selects the hardware type configured by SetInputMode.
type SensorType byte

const (
	NoSensor      SensorType = 0x00
	Switch        SensorType = 0x01
	Temperature   SensorType = 0x02
	Reflection    SensorType = 0x03
	Angle         SensorType = 0x04
	LightActive   SensorType = 0x05
	LightInactive SensorType = 0x06
	SoundDB       SensorType = 0x07
	SoundDBA      SensorType = 0x08
	Custom        SensorType = 0x09
	LowSpeed      SensorType = 0x0A
	// LowSpeed9V powers the I2C bus with 9V, required by the ultrasonic
	// sensor.
	LowSpeed9V SensorType = 0x0B
)

// SensorMode selects how the firmware derives the scaled value from the raw
// reading.
type SensorMode byte

const (
	RawMode             SensorMode = 0x00
	BooleanMode         SensorMode = 0x20
	TransitionCountMode SensorMode = 0x40
	PeriodCounterMode   SensorMode = 0x60
	FullScaleMode       SensorMode = 0x80
	CelsiusMode         SensorMode = 0xA0
	FahrenheitMode      SensorMode = 0xC0
	AngleStepMode       SensorMode = 0xE0

	// SlopeMask and ModeMask split the mode byte into its slope and mode
	// fields.
	SlopeMask SensorMode = 0x1F
	ModeMask  SensorMode = 0xE0
)

// Mailbox identifies a message queue on the brick. Local mailboxes are 0-9;
// 10-19 address the response mailboxes of a running program.
type Mailbox byte

const maxMailbox Mailbox = 19

// PollBuffer selects which poll buffer PollCommandLength/PollCommand read.
type PollBuffer byte

const (
	// PollBufferDefault is the standard poll buffer.
	PollBufferDefault PollBuffer = 0x00
	// PollBufferHighSpeed is the high-speed buffer.
	PollBufferHighSpeed PollBuffer = 0x01
)

// OutputState is the full motor state reported by GetOutputState.
type OutputState struct {
	Port       OutputPort
	Power      int8
	Mode       OutputMode
	Regulation RegulationMode
	TurnRatio  int8
	RunState   RunState
	// TachoLimit is the current movement limit in degrees, 0 meaning run
	// forever.
	TachoLimit uint32
	// TachoCount counts degrees since the last motor reset.
	TachoCount int32
	// BlockTachoCount is the position relative to the last programmed
	// movement.
	BlockTachoCount int32
	// RotationCount is the position relative to the last reset of the
	// rotation sensor.
	RotationCount int32
}

// InputValues is the sensor reading reported by GetInputValues.
type InputValues struct {
	Port       InputPort
	Valid      bool
	Calibrated bool
	Type       SensorType
	Mode       SensorMode
	// Raw is the raw A/D reading.
	Raw uint16
	// Normalized is the type-dependent normalized reading, 0-1023.
	Normalized uint16
	// Scaled is the mode-dependent scaled reading.
	Scaled int16
	// CalibratedValue is currently unused by the firmware.
	CalibratedValue int16
}

// Version is the protocol and firmware version reported by
// GetFirmwareVersion.
type Version struct {
	ProtocolMinor byte
	ProtocolMajor byte
	FirmwareMinor byte
	FirmwareMajor byte
}

func (v Version) String() string {
	return fmt.Sprintf("protocol %d.%d, firmware %d.%02d",
		v.ProtocolMajor, v.ProtocolMinor, v.FirmwareMajor, v.FirmwareMinor)
}

// DeviceInfo is the identity block reported by GetDeviceInfo.
type DeviceInfo struct {
	BrickName        string
	BluetoothAddress [7]byte
	SignalStrength   uint32
	FreeUserFlash    uint32
}

// BluetoothAddressString formats the Bluetooth address in the usual
// colon-separated form, dropping the trailing alignment byte.
func (d *DeviceInfo) BluetoothAddressString() string {
	a := d.BluetoothAddress
	return fmt.Sprintf("%02X:%02X:%02X:%02X:%02X:%02X", a[0], a[1], a[2], a[3], a[4], a[5])
}

// FindResult is the outcome of FindFirst/FindNext. When Found is false the
// remaining fields are zero and no handle was allocated.
type FindResult struct {
	Found  bool
	Handle byte
	Name   string
	Size   uint32
}

// ModuleID is the 32-bit firmware module identifier.
//
// The firmware documents the layout as PP TT CC FF, but the reference
// documentation is inconsistent about which byte is which. The accessors
// below pin one mapping; do not "correct" them against the documentation.
type ModuleID uint32

// PP returns the module ID's PP field.
func (id ModuleID) PP() byte { return byte(id >> 24) }

// TT returns the module ID's TT field.
func (id ModuleID) TT() byte { return byte(id >> 16) }

// CC returns the module ID's CC field.
func (id ModuleID) CC() byte { return byte(id >> 8) }

// FF returns the module ID's FF field.
func (id ModuleID) FF() byte { return byte(id) }

func (id ModuleID) String() string {
	return fmt.Sprintf("0x%08X", uint32(id))
}

// ModuleInfo is the outcome of RequestFirstModule/RequestNextModule. When
// Found is false the remaining fields are zero and no handle was allocated.
type ModuleInfo struct {
	Found     bool
	Handle    byte
	Name      string
	ID        ModuleID
	Size      uint32
	IOMapSize uint16
}
