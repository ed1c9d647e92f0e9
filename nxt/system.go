package nxt

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-nxt/internal/util"
)

// System commands: the device-management opcode space (0x80 and above),
// covering the flash filesystem, device identity, firmware module
// introspection, and poll buffers.
//
// FindFirst/FindNext and RequestFirstModule/RequestNextModule deliberately
// translate their "not found" statuses into Found=false results; every
// other non-success status is a fault.

// OpenRead opens a file on the brick for reading and returns its handle and
// size.
func (c *Conn) OpenRead(name string) (handle byte, size uint32, err error) {
	if err := validateFileName(name); err != nil {
		return 0, 0, err
	}

	req := c.systemTelegram(OpOpenRead, fileNameField, true)
	putString(req, 2, fileNameField, name)

	reply, err := c.Exchange(req)
	if err != nil {
		return 0, 0, err
	}
	if err := checkReplyLen(OpOpenRead, reply, 8); err != nil {
		return 0, 0, err
	}

	return reply[3], getUint32(reply, 4), nil
}

// OpenWrite creates a file of the given size on the brick and returns a
// write handle.
func (c *Conn) OpenWrite(name string, size uint32) (byte, error) {
	return c.openWithSize(OpOpenWrite, name, size)
}

// OpenWriteLinear creates a file in contiguous flash, as required for
// executable and sound files.
func (c *Conn) OpenWriteLinear(name string, size uint32) (byte, error) {
	return c.openWithSize(OpOpenWriteLinear, name, size)
}

// OpenWriteData creates a data file of the given size.
func (c *Conn) OpenWriteData(name string, size uint32) (byte, error) {
	return c.openWithSize(OpOpenWriteData, name, size)
}

func (c *Conn) openWithSize(op OpCode, name string, size uint32) (byte, error) {
	if err := validateFileName(name); err != nil {
		return 0, err
	}

	req := c.systemTelegram(op, fileNameField+4, true)
	putString(req, 2, fileNameField, name)
	putUint32(req, 2+fileNameField, size)

	reply, err := c.Exchange(req)
	if err != nil {
		return 0, err
	}
	if err := checkReplyLen(op, reply, 4); err != nil {
		return 0, err
	}

	return reply[3], nil
}

// OpenAppendData opens an existing data file for appending and returns the
// handle and the remaining available size.
func (c *Conn) OpenAppendData(name string) (handle byte, available uint32, err error) {
	if err := validateFileName(name); err != nil {
		return 0, 0, err
	}

	req := c.systemTelegram(OpOpenAppendData, fileNameField, true)
	putString(req, 2, fileNameField, name)

	reply, err := c.Exchange(req)
	if err != nil {
		return 0, 0, err
	}
	if err := checkReplyLen(OpOpenAppendData, reply, 8); err != nil {
		return 0, 0, err
	}

	return reply[3], getUint32(reply, 4), nil
}

// ReadFile reads up to n bytes from an open file handle.
func (c *Conn) ReadFile(handle byte, n int) ([]byte, error) {
	if n < 0 || n > 0xFFFF {
		return nil, &ValidationError{Field: "read length", Reason: fmt.Sprintf("%d outside range [0, 65535]", n)}
	}

	req := c.systemTelegram(OpRead, 3, true)
	req[2] = handle
	putUint16(req, 3, uint16(n))

	reply, err := c.Exchange(req)
	if err != nil {
		return nil, err
	}
	if err := checkReplyLen(OpRead, reply, 6); err != nil {
		return nil, err
	}
	if reply[3] != handle {
		return nil, echoByteError(OpRead, "handle", handle, reply[3])
	}

	read := int(getUint16(reply, 4))
	if err := checkReplyLen(OpRead, reply, 6+read); err != nil {
		return nil, err
	}

	return util.CloneSlice(reply[6:6+read], 0), nil
}

// WriteFile writes data to an open file handle and returns the number of
// bytes the brick accepted.
func (c *Conn) WriteFile(handle byte, data []byte) (int, error) {
	if len(data) > MaxTelegramSize-3 {
		return 0, &ValidationError{
			Field:  "write data",
			Reason: fmt.Sprintf("%d bytes exceeds maximum %d per telegram", len(data), MaxTelegramSize-3),
		}
	}

	req := c.systemTelegram(OpWrite, 1+len(data), true)
	req[2] = handle
	copy(req[3:], data)

	reply, err := c.Exchange(req)
	if err != nil {
		return 0, err
	}
	if err := checkReplyLen(OpWrite, reply, 6); err != nil {
		return 0, err
	}
	if reply[3] != handle {
		return 0, echoByteError(OpWrite, "handle", handle, reply[3])
	}

	return int(getUint16(reply, 4)), nil
}

// CloseFile closes an open file handle.
func (c *Conn) CloseFile(handle byte) error {
	req := c.systemTelegram(OpClose, 1, true)
	req[2] = handle

	reply, err := c.Exchange(req)
	if err != nil {
		return err
	}
	if err := checkReplyLen(OpClose, reply, 4); err != nil {
		return err
	}
	if reply[3] != handle {
		return echoByteError(OpClose, "handle", handle, reply[3])
	}

	return nil
}

// DeleteFile removes a file from the brick's flash filesystem.
func (c *Conn) DeleteFile(name string) error {
	if err := validateFileName(name); err != nil {
		return err
	}

	req := c.systemTelegram(OpDelete, fileNameField, true)
	putString(req, 2, fileNameField, name)

	reply, err := c.Exchange(req)
	if err != nil {
		return err
	}
	if err := checkReplyLen(OpDelete, reply, 3+fileNameField); err != nil {
		return err
	}
	if echoed := getString(reply, 3, fileNameField); echoed != name {
		return &EchoError{Opcode: OpDelete, Field: "file name", Want: fmt.Sprintf("%q", name), Got: fmt.Sprintf("%q", echoed)}
	}

	return nil
}

// FindFirst starts a directory listing matching the given pattern (for
// example "*.*" or "*.rxe"). A pattern that matches nothing yields
// Found=false, not an error. When Found is true the returned handle must be
// passed to FindNext or released with CloseFile.
func (c *Conn) FindFirst(pattern string) (*FindResult, error) {
	if err := validateFileName(pattern); err != nil {
		return nil, err
	}

	req := c.systemTelegram(OpFindFirst, fileNameField, true)
	putString(req, 2, fileNameField, pattern)

	return c.findReply(OpFindFirst, req)
}

// FindNext continues a directory listing started by FindFirst. The end of
// the listing yields Found=false, not an error.
func (c *Conn) FindNext(handle byte) (*FindResult, error) {
	req := c.systemTelegram(OpFindNext, 1, true)
	req[2] = handle

	return c.findReply(OpFindNext, req)
}

func (c *Conn) findReply(op OpCode, req []byte) (*FindResult, error) {
	reply, err := c.Exchange(req)
	if err != nil {
		var perr *ProtocolError
		if errors.As(err, &perr) && perr.Status == StatusFileNotFound {
			return &FindResult{Found: false}, nil
		}

		return nil, err
	}
	if err := checkReplyLen(op, reply, 28); err != nil {
		return nil, err
	}

	return &FindResult{
		Found:  true,
		Handle: reply[3],
		Name:   getString(reply, 4, fileNameField),
		Size:   getUint32(reply, 24),
	}, nil
}

// FirmwareVersion reads the protocol and firmware version of the brick.
func (c *Conn) FirmwareVersion() (*Version, error) {
	req := c.systemTelegram(OpGetFirmwareVersion, 0, true)

	reply, err := c.Exchange(req)
	if err != nil {
		return nil, err
	}
	if err := checkReplyLen(OpGetFirmwareVersion, reply, 7); err != nil {
		return nil, err
	}

	return &Version{
		ProtocolMinor: reply[3],
		ProtocolMajor: reply[4],
		FirmwareMinor: reply[5],
		FirmwareMajor: reply[6],
	}, nil
}

// SetBrickName renames the brick. Names longer than MaxBrickNameLen are
// rejected before any bytes are sent.
func (c *Conn) SetBrickName(name string) error {
	if len(name) > MaxBrickNameLen {
		return &ValidationError{
			Field:  "brick name",
			Reason: fmt.Sprintf("%q is %d bytes, maximum is %d", name, len(name), MaxBrickNameLen),
		}
	}

	req := c.systemTelegram(OpSetBrickName, brickNameField, false)
	putString(req, 2, brickNameField, name)

	_, err := c.Exchange(req)

	return err
}

// GetDeviceInfo reads the brick's name, Bluetooth address, signal strength,
// and free flash space.
func (c *Conn) GetDeviceInfo() (*DeviceInfo, error) {
	req := c.systemTelegram(OpGetDeviceInfo, 0, true)

	reply, err := c.Exchange(req)
	if err != nil {
		return nil, err
	}
	if err := checkReplyLen(OpGetDeviceInfo, reply, 33); err != nil {
		return nil, err
	}

	info := &DeviceInfo{
		BrickName:      getString(reply, 3, 15),
		SignalStrength: getUint32(reply, 25),
		FreeUserFlash:  getUint32(reply, 29),
	}
	copy(info.BluetoothAddress[:], reply[18:25])

	return info, nil
}

// DeleteUserFlash erases all files from the brick's flash filesystem. The
// brick takes around 3 seconds to respond.
func (c *Conn) DeleteUserFlash() error {
	req := c.systemTelegram(OpDeleteUserFlash, 0, true)
	_, err := c.Exchange(req)

	return err
}

// PollCommandLength reports how many bytes are available in the given poll
// buffer.
func (c *Conn) PollCommandLength(buffer PollBuffer) (int, error) {
	req := c.systemTelegram(OpPollCommandLength, 1, true)
	req[2] = byte(buffer)

	reply, err := c.Exchange(req)
	if err != nil {
		return 0, err
	}
	if err := checkReplyLen(OpPollCommandLength, reply, 5); err != nil {
		return 0, err
	}
	if reply[3] != byte(buffer) {
		return 0, echoByteError(OpPollCommandLength, "poll buffer", byte(buffer), reply[3])
	}

	return int(reply[4]), nil
}

// PollCommand reads up to length bytes from the given poll buffer.
func (c *Conn) PollCommand(buffer PollBuffer, length int) ([]byte, error) {
	if length < 0 || length > MaxTelegramSize-5 {
		return nil, &ValidationError{
			Field:  "poll length",
			Reason: fmt.Sprintf("%d outside range [0, %d]", length, MaxTelegramSize-5),
		}
	}

	req := c.systemTelegram(OpPollCommand, 2, true)
	req[2] = byte(buffer)
	req[3] = byte(length)

	reply, err := c.Exchange(req)
	if err != nil {
		return nil, err
	}
	if err := checkReplyLen(OpPollCommand, reply, 5); err != nil {
		return nil, err
	}
	if reply[3] != byte(buffer) {
		return nil, echoByteError(OpPollCommand, "poll buffer", byte(buffer), reply[3])
	}

	read := int(reply[4])
	if err := checkReplyLen(OpPollCommand, reply, 5+read); err != nil {
		return nil, err
	}

	return util.CloneSlice(reply[5:5+read], 0), nil
}

// RequestFirstModule starts a firmware module listing matching the given
// pattern (for example "*.mod"). A pattern that matches nothing, or
// exhausted module handles, yield Found=false, not an error.
func (c *Conn) RequestFirstModule(pattern string) (*ModuleInfo, error) {
	if err := validateFileName(pattern); err != nil {
		return nil, err
	}

	req := c.systemTelegram(OpRequestFirstModule, fileNameField, true)
	putString(req, 2, fileNameField, pattern)

	return c.moduleReply(OpRequestFirstModule, req)
}

// RequestNextModule continues a module listing started by
// RequestFirstModule. The end of the listing yields Found=false, not an
// error.
func (c *Conn) RequestNextModule(handle byte) (*ModuleInfo, error) {
	req := c.systemTelegram(OpRequestNextModule, 1, true)
	req[2] = handle

	return c.moduleReply(OpRequestNextModule, req)
}

func (c *Conn) moduleReply(op OpCode, req []byte) (*ModuleInfo, error) {
	reply, err := c.Exchange(req)
	if err != nil {
		var perr *ProtocolError
		if errors.As(err, &perr) &&
			(perr.Status == StatusModuleNotFound || perr.Status == StatusNoMoreHandles) {
			return &ModuleInfo{Found: false}, nil
		}

		return nil, err
	}
	if err := checkReplyLen(op, reply, 34); err != nil {
		return nil, err
	}

	return &ModuleInfo{
		Found:     true,
		Handle:    reply[3],
		Name:      getString(reply, 4, fileNameField),
		ID:        ModuleID(getUint32(reply, 24)),
		Size:      getUint32(reply, 28),
		IOMapSize: getUint16(reply, 32),
	}, nil
}

// CloseModuleHandle releases a module listing handle.
func (c *Conn) CloseModuleHandle(handle byte) error {
	req := c.systemTelegram(OpCloseModuleHandle, 1, true)
	req[2] = handle

	reply, err := c.Exchange(req)
	if err != nil {
		return err
	}
	if err := checkReplyLen(OpCloseModuleHandle, reply, 4); err != nil {
		return err
	}
	if reply[3] != handle {
		return echoByteError(OpCloseModuleHandle, "handle", handle, reply[3])
	}

	return nil
}

// ReadIOMap reads n bytes from a firmware module's IO map at the given
// offset.
func (c *Conn) ReadIOMap(id ModuleID, offset uint16, n int) ([]byte, error) {
	if n < 0 || n > MaxTelegramSize-9 {
		return nil, &ValidationError{
			Field:  "IO map read length",
			Reason: fmt.Sprintf("%d outside range [0, %d]", n, MaxTelegramSize-9),
		}
	}

	req := c.systemTelegram(OpReadIOMap, 8, true)
	putUint32(req, 2, uint32(id))
	putUint16(req, 6, offset)
	putUint16(req, 8, uint16(n))

	reply, err := c.Exchange(req)
	if err != nil {
		return nil, err
	}
	if err := checkReplyLen(OpReadIOMap, reply, 9); err != nil {
		return nil, err
	}
	if echoed := ModuleID(getUint32(reply, 3)); echoed != id {
		return nil, &EchoError{Opcode: OpReadIOMap, Field: "module ID", Want: id.String(), Got: echoed.String()}
	}

	read := int(getUint16(reply, 7))
	if err := checkReplyLen(OpReadIOMap, reply, 9+read); err != nil {
		return nil, err
	}

	return util.CloneSlice(reply[9:9+read], 0), nil
}

// WriteIOMap writes data into a firmware module's IO map at the given
// offset and returns the number of bytes written.
func (c *Conn) WriteIOMap(id ModuleID, offset uint16, data []byte) (int, error) {
	if len(data) > MaxTelegramSize-10 {
		return 0, &ValidationError{
			Field:  "IO map write data",
			Reason: fmt.Sprintf("%d bytes exceeds maximum %d per telegram", len(data), MaxTelegramSize-10),
		}
	}

	req := c.systemTelegram(OpWriteIOMap, 8+len(data), true)
	putUint32(req, 2, uint32(id))
	putUint16(req, 6, offset)
	putUint16(req, 8, uint16(len(data)))
	copy(req[10:], data)

	reply, err := c.Exchange(req)
	if err != nil {
		return 0, err
	}
	if err := checkReplyLen(OpWriteIOMap, reply, 9); err != nil {
		return 0, err
	}
	if echoed := ModuleID(getUint32(reply, 3)); echoed != id {
		return 0, &EchoError{Opcode: OpWriteIOMap, Field: "module ID", Want: id.String(), Got: echoed.String()}
	}

	return int(getUint16(reply, 7)), nil
}
