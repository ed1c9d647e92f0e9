package nxt

import (
	"fmt"
	"time"

	"github.com/arloliu/go-nxt/internal/util"
)

// Direct commands: the real-time control opcode space (0x00-0x13).
//
// Commands that carry no return data are sent fire-and-forget unless the
// connection was configured with WithReplyRequired; commands that return
// data always request a reply.

// StartProgram starts the named .rxe program on the brick.
func (c *Conn) StartProgram(name string) error {
	if err := validateFileName(name); err != nil {
		return err
	}

	req := c.directTelegram(OpStartProgram, fileNameField, false)
	putString(req, 2, fileNameField, name)

	_, err := c.Exchange(req)

	return err
}

// StopProgram stops the currently running program.
func (c *Conn) StopProgram() error {
	req := c.directTelegram(OpStopProgram, 0, false)
	_, err := c.Exchange(req)

	return err
}

// PlaySoundFile plays the named .rso sound file, optionally looping until
// StopSoundPlayback.
func (c *Conn) PlaySoundFile(name string, loop bool) error {
	if err := validateFileName(name); err != nil {
		return err
	}

	req := c.directTelegram(OpPlaySoundFile, 1+fileNameField, false)
	req[2] = boolByte(loop)
	putString(req, 3, fileNameField, name)

	_, err := c.Exchange(req)

	return err
}

// PlayTone plays a tone at the given frequency. The brick supports
// 200-14000 Hz; the duration is truncated to whole milliseconds.
func (c *Conn) PlayTone(frequency uint16, duration time.Duration) error {
	req := c.directTelegram(OpPlayTone, 4, false)
	putUint16(req, 2, frequency)
	putUint16(req, 4, uint16(util.Clamp(duration.Milliseconds(), 0, 0xFFFF)))

	_, err := c.Exchange(req)

	return err
}

// SetOutputState programs a motor port. Power and turnRatio are clamped to
// [-100, 100] before framing. tachoLimit is the movement limit in degrees,
// 0 meaning run forever.
func (c *Conn) SetOutputState(
	port OutputPort,
	power int,
	mode OutputMode,
	regulation RegulationMode,
	turnRatio int,
	runState RunState,
	tachoLimit uint32,
) error {
	power = util.Clamp(power, -100, 100)
	turnRatio = util.Clamp(turnRatio, -100, 100)

	req := c.directTelegram(OpSetOutputState, 10, false)
	req[2] = byte(port)
	req[3] = byte(int8(power))
	req[4] = byte(mode)
	req[5] = byte(regulation)
	req[6] = byte(int8(turnRatio))
	req[7] = byte(runState)
	putUint32(req, 8, tachoLimit)

	_, err := c.Exchange(req)

	return err
}

// SetInputMode configures the sensor type and mode of an input port. The
// configuration must be pushed before readings from the port are trusted.
func (c *Conn) SetInputMode(port InputPort, typ SensorType, mode SensorMode) error {
	req := c.directTelegram(OpSetInputMode, 3, false)
	req[2] = byte(port)
	req[3] = byte(typ)
	req[4] = byte(mode)

	_, err := c.Exchange(req)

	return err
}

// GetOutputState reads the full motor state of a port.
func (c *Conn) GetOutputState(port OutputPort) (*OutputState, error) {
	req := c.directTelegram(OpGetOutputState, 1, true)
	req[2] = byte(port)

	reply, err := c.Exchange(req)
	if err != nil {
		return nil, err
	}
	if err := checkReplyLen(OpGetOutputState, reply, 25); err != nil {
		return nil, err
	}
	if reply[3] != byte(port) {
		return nil, echoByteError(OpGetOutputState, "port", byte(port), reply[3])
	}

	return &OutputState{
		Port:            OutputPort(reply[3]),
		Power:           int8(reply[4]),
		Mode:            OutputMode(reply[5]),
		Regulation:      RegulationMode(reply[6]),
		TurnRatio:       int8(reply[7]),
		RunState:        RunState(reply[8]),
		TachoLimit:      getUint32(reply, 9),
		TachoCount:      getInt32(reply, 13),
		BlockTachoCount: getInt32(reply, 17),
		RotationCount:   getInt32(reply, 21),
	}, nil
}

// GetInputValues reads the current sensor values of an input port.
func (c *Conn) GetInputValues(port InputPort) (*InputValues, error) {
	req := c.directTelegram(OpGetInputValues, 1, true)
	req[2] = byte(port)

	reply, err := c.Exchange(req)
	if err != nil {
		return nil, err
	}
	if err := checkReplyLen(OpGetInputValues, reply, 16); err != nil {
		return nil, err
	}
	if reply[3] != byte(port) {
		return nil, echoByteError(OpGetInputValues, "port", byte(port), reply[3])
	}

	return &InputValues{
		Port:            InputPort(reply[3]),
		Valid:           reply[4] != 0,
		Calibrated:      reply[5] != 0,
		Type:            SensorType(reply[6]),
		Mode:            SensorMode(reply[7]),
		Raw:             getUint16(reply, 8),
		Normalized:      getUint16(reply, 10),
		Scaled:          getInt16(reply, 12),
		CalibratedValue: getInt16(reply, 14),
	}, nil
}

// ResetInputScaledValue resets the accumulated scaled value of an input
// port (transition and period counter modes).
func (c *Conn) ResetInputScaledValue(port InputPort) error {
	req := c.directTelegram(OpResetInputScaledValue, 1, false)
	req[2] = byte(port)

	_, err := c.Exchange(req)

	return err
}

// MessageWrite posts a message to a mailbox queue on the brick. The message
// may be at most MaxMessageLen bytes; a terminating NUL is appended on the
// wire.
func (c *Conn) MessageWrite(mailbox Mailbox, message string) error {
	if mailbox > maxMailbox {
		return &ValidationError{Field: "mailbox", Reason: fmt.Sprintf("%d exceeds maximum %d", mailbox, maxMailbox)}
	}
	if len(message) > MaxMessageLen {
		return &ValidationError{
			Field:  "message",
			Reason: fmt.Sprintf("%d bytes exceeds maximum %d", len(message), MaxMessageLen),
		}
	}

	size := len(message) + 1 // terminating NUL
	req := c.directTelegram(OpMessageWrite, 2+size, false)
	req[2] = byte(mailbox)
	req[3] = byte(size)
	putString(req, 4, size, message)

	_, err := c.Exchange(req)

	return err
}

// ResetMotorPosition resets a motor's position counter. When relative is
// true only the position relative to the last movement is reset.
func (c *Conn) ResetMotorPosition(port OutputPort, relative bool) error {
	req := c.directTelegram(OpResetMotorPosition, 2, false)
	req[2] = byte(port)
	req[3] = boolByte(relative)

	_, err := c.Exchange(req)

	return err
}

// BatteryLevel reads the battery voltage in millivolts.
func (c *Conn) BatteryLevel() (uint16, error) {
	req := c.directTelegram(OpGetBatteryLevel, 0, true)

	reply, err := c.Exchange(req)
	if err != nil {
		return 0, err
	}
	if err := checkReplyLen(OpGetBatteryLevel, reply, 5); err != nil {
		return 0, err
	}

	return getUint16(reply, 3), nil
}

// StopSoundPlayback stops any sound or tone currently playing.
func (c *Conn) StopSoundPlayback() error {
	req := c.directTelegram(OpStopSoundPlayback, 0, false)
	_, err := c.Exchange(req)

	return err
}

// KeepAlive resets the brick's sleep timer and returns the configured sleep
// time limit. A zero limit means the brick never sleeps.
func (c *Conn) KeepAlive() (time.Duration, error) {
	req := c.directTelegram(OpKeepAlive, 0, true)

	reply, err := c.Exchange(req)
	if err != nil {
		return 0, err
	}
	if err := checkReplyLen(OpKeepAlive, reply, 7); err != nil {
		return 0, err
	}

	return time.Duration(getUint32(reply, 3)) * time.Millisecond, nil
}

// LSGetStatus reports how many bytes are ready to be read from the
// low-speed (I2C) port.
func (c *Conn) LSGetStatus(port InputPort) (int, error) {
	req := c.directTelegram(OpLSGetStatus, 1, true)
	req[2] = byte(port)

	reply, err := c.Exchange(req)
	if err != nil {
		return 0, err
	}
	if err := checkReplyLen(OpLSGetStatus, reply, 4); err != nil {
		return 0, err
	}

	return int(reply[3]), nil
}

// LSWrite starts a low-speed (I2C) transaction: tx is written to the bus
// and rxLen reply bytes are requested from the addressed device. Both
// directions are capped at MaxLSDataLen bytes.
func (c *Conn) LSWrite(port InputPort, tx []byte, rxLen int) error {
	if len(tx) == 0 || len(tx) > MaxLSDataLen {
		return &ValidationError{
			Field:  "low-speed tx data",
			Reason: fmt.Sprintf("%d bytes outside range [1, %d]", len(tx), MaxLSDataLen),
		}
	}
	if rxLen < 0 || rxLen > MaxLSDataLen {
		return &ValidationError{
			Field:  "low-speed rx length",
			Reason: fmt.Sprintf("%d outside range [0, %d]", rxLen, MaxLSDataLen),
		}
	}

	req := c.directTelegram(OpLSWrite, 3+len(tx), false)
	req[2] = byte(port)
	req[3] = byte(len(tx))
	req[4] = byte(rxLen)
	copy(req[5:], tx)

	_, err := c.Exchange(req)

	return err
}

// LSRead collects the reply bytes of a low-speed (I2C) transaction started
// by LSWrite. The caller should poll LSGetStatus until enough bytes are
// ready.
func (c *Conn) LSRead(port InputPort) ([]byte, error) {
	req := c.directTelegram(OpLSRead, 1, true)
	req[2] = byte(port)

	reply, err := c.Exchange(req)
	if err != nil {
		return nil, err
	}
	if err := checkReplyLen(OpLSRead, reply, 20); err != nil {
		return nil, err
	}

	n := int(reply[3])
	if n > MaxLSDataLen {
		return nil, &FramingError{Opcode: OpLSRead, Field: "bytes read", Want: MaxLSDataLen, Got: reply[3]}
	}

	return util.CloneSlice(reply[4:4+n], 0), nil
}

// CurrentProgramName returns the name of the currently running program.
func (c *Conn) CurrentProgramName() (string, error) {
	req := c.directTelegram(OpGetCurrentProgramName, 0, true)

	reply, err := c.Exchange(req)
	if err != nil {
		return "", err
	}
	if err := checkReplyLen(OpGetCurrentProgramName, reply, 3+fileNameField); err != nil {
		return "", err
	}

	return getString(reply, 3, fileNameField), nil
}

// MessageRead reads (and optionally removes) a message from a remote
// mailbox, directing the reply through the given local mailbox.
func (c *Conn) MessageRead(remote, local Mailbox, remove bool) (string, error) {
	if remote > maxMailbox {
		return "", &ValidationError{Field: "remote mailbox", Reason: fmt.Sprintf("%d exceeds maximum %d", remote, maxMailbox)}
	}
	if local > maxMailbox {
		return "", &ValidationError{Field: "local mailbox", Reason: fmt.Sprintf("%d exceeds maximum %d", local, maxMailbox)}
	}

	req := c.directTelegram(OpMessageRead, 3, true)
	req[2] = byte(remote)
	req[3] = byte(local)
	req[4] = boolByte(remove)

	reply, err := c.Exchange(req)
	if err != nil {
		return "", err
	}
	if err := checkReplyLen(OpMessageRead, reply, 5+MaxMessageLen); err != nil {
		return "", err
	}
	if reply[3] != byte(local) {
		return "", echoByteError(OpMessageRead, "local mailbox", byte(local), reply[3])
	}

	size := int(reply[4])
	if size > MaxMessageLen {
		size = MaxMessageLen
	}

	return getString(reply, 5, size), nil
}

func validateFileName(name string) error {
	if len(name) > MaxFileNameLen {
		return &ValidationError{
			Field:  "file name",
			Reason: fmt.Sprintf("%q is %d bytes, maximum is %d", name, len(name), MaxFileNameLen),
		}
	}

	return nil
}

func checkReplyLen(op OpCode, reply []byte, want int) error {
	if len(reply) < want {
		return fmt.Errorf("nxt: command %s reply truncated: got %d bytes, want %d", op, len(reply), want)
	}

	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}

	return 0
}
