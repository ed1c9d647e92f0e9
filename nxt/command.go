package nxt

import "fmt"

// Telegram type values occupying byte 0 of every telegram.
// Bit 0x80 (NoReplyFlag) suppresses the device reply.
const (
	// DirectTelegram marks a direct command that expects a reply.
	DirectTelegram byte = 0x00
	// SystemTelegram marks a system command that expects a reply.
	SystemTelegram byte = 0x01
	// ReplyTelegram is the marker byte of every reply telegram.
	ReplyTelegram byte = 0x02
	// NoReplyFlag, OR-ed into the telegram type, tells the device not to
	// send a reply.
	NoReplyFlag byte = 0x80
)

// OpCode identifies a device command.
//
// Direct commands live in the range 0x00-0x13 and system commands at 0x80
// and above; both opcode spaces are framed identically.
type OpCode byte

// Direct command opcodes (NXT Bluetooth Developer Kit, Appendix 2).
const (
	OpStartProgram          OpCode = 0x00
	OpStopProgram           OpCode = 0x01
	OpPlaySoundFile         OpCode = 0x02
	OpPlayTone              OpCode = 0x03
	OpSetOutputState        OpCode = 0x04
	OpSetInputMode          OpCode = 0x05
	OpGetOutputState        OpCode = 0x06
	OpGetInputValues        OpCode = 0x07
	OpResetInputScaledValue OpCode = 0x08
	OpMessageWrite          OpCode = 0x09
	OpResetMotorPosition    OpCode = 0x0A
	OpGetBatteryLevel       OpCode = 0x0B
	OpStopSoundPlayback     OpCode = 0x0C
	OpKeepAlive             OpCode = 0x0D
	OpLSGetStatus           OpCode = 0x0E
	OpLSWrite               OpCode = 0x0F
	OpLSRead                OpCode = 0x10
	OpGetCurrentProgramName OpCode = 0x11
	OpMessageRead           OpCode = 0x13
)

// System command opcodes (NXT Bluetooth Developer Kit, Appendix 1).
const (
	OpOpenRead           OpCode = 0x80
	OpOpenWrite          OpCode = 0x81
	OpRead               OpCode = 0x82
	OpWrite              OpCode = 0x83
	OpClose              OpCode = 0x84
	OpDelete             OpCode = 0x85
	OpFindFirst          OpCode = 0x86
	OpFindNext           OpCode = 0x87
	OpGetFirmwareVersion OpCode = 0x88
	OpOpenWriteLinear    OpCode = 0x89
	OpOpenWriteData      OpCode = 0x8B
	OpOpenAppendData     OpCode = 0x8C
	OpRequestFirstModule OpCode = 0x90
	OpRequestNextModule  OpCode = 0x91
	OpCloseModuleHandle  OpCode = 0x92
	OpReadIOMap          OpCode = 0x94
	OpWriteIOMap         OpCode = 0x95
	OpSetBrickName       OpCode = 0x98
	OpGetDeviceInfo      OpCode = 0x9B
	OpDeleteUserFlash    OpCode = 0xA0
	OpPollCommandLength  OpCode = 0xA1
	OpPollCommand        OpCode = 0xA2
)

// String returns the opcode in hex form.
func (op OpCode) String() string {
	return fmt.Sprintf("0x%02X", byte(op))
}

// Status is the status byte the device places at offset 2 of every reply.
type Status byte

// StatusSuccess indicates a successfully executed command.
const StatusSuccess Status = 0x00

// Direct command status codes.
const (
	StatusPendingCommunication Status = 0x20
	StatusMailboxQueueEmpty    Status = 0x40
	StatusRequestFailed        Status = 0xBD
	StatusUnknownCommand       Status = 0xBE
	StatusInsanePacket         Status = 0xBF
	StatusOutOfRange           Status = 0xC0
	StatusBusError             Status = 0xDD
	StatusCommBufferFull       Status = 0xDE
	StatusInvalidConnection    Status = 0xDF
	StatusChannelBusy          Status = 0xE0
	StatusNoActiveProgram      Status = 0xEC
	StatusIllegalSize          Status = 0xED
	StatusIllegalMailbox       Status = 0xEE
	StatusInvalidField         Status = 0xEF
	StatusBadInputOutput       Status = 0xF0
	StatusInsufficientMemory   Status = 0xFB
	StatusBadArguments         Status = 0xFF
)

// System command status codes.
const (
	StatusNoMoreHandles       Status = 0x81
	StatusNoSpace             Status = 0x82
	StatusNoMoreFiles         Status = 0x83
	StatusEOFExpected         Status = 0x84
	StatusEndOfFile           Status = 0x85
	StatusNotLinearFile       Status = 0x86
	StatusFileNotFound        Status = 0x87
	StatusHandleAlreadyClosed Status = 0x88
	StatusNoLinearSpace       Status = 0x89
	StatusUndefinedError      Status = 0x8A
	StatusFileBusy            Status = 0x8B
	StatusNoWriteBuffers      Status = 0x8C
	StatusAppendNotPossible   Status = 0x8D
	StatusFileFull            Status = 0x8E
	StatusFileExists          Status = 0x8F
	StatusModuleNotFound      Status = 0x90
	StatusOutOfBoundary       Status = 0x91
	StatusIllegalFileName     Status = 0x92
	StatusIllegalHandle       Status = 0x93
)

var statusNames = map[Status]string{
	StatusSuccess:              "success",
	StatusPendingCommunication: "pending communication transaction in progress",
	StatusMailboxQueueEmpty:    "specified mailbox queue is empty",
	StatusRequestFailed:        "request failed",
	StatusUnknownCommand:       "unknown command opcode",
	StatusInsanePacket:         "insane packet",
	StatusOutOfRange:           "data contains out-of-range values",
	StatusBusError:             "communication bus error",
	StatusCommBufferFull:       "no free memory in communication buffer",
	StatusInvalidConnection:    "specified channel/connection is not valid",
	StatusChannelBusy:          "specified channel/connection not configured or busy",
	StatusNoActiveProgram:      "no active program",
	StatusIllegalSize:          "illegal size specified",
	StatusIllegalMailbox:       "illegal mailbox queue ID specified",
	StatusInvalidField:         "attempted to access invalid field of a structure",
	StatusBadInputOutput:       "bad input or output specified",
	StatusInsufficientMemory:   "insufficient memory available",
	StatusBadArguments:         "bad arguments",
	StatusNoMoreHandles:        "no more handles",
	StatusNoSpace:              "no space",
	StatusNoMoreFiles:          "no more files",
	StatusEOFExpected:          "end of file expected",
	StatusEndOfFile:            "end of file",
	StatusNotLinearFile:        "not a linear file",
	StatusFileNotFound:         "file not found",
	StatusHandleAlreadyClosed:  "handle already closed",
	StatusNoLinearSpace:        "no linear space",
	StatusUndefinedError:       "undefined error",
	StatusFileBusy:             "file is busy",
	StatusNoWriteBuffers:       "no write buffers",
	StatusAppendNotPossible:    "append not possible",
	StatusFileFull:             "file is full",
	StatusFileExists:           "file exists",
	StatusModuleNotFound:       "module not found",
	StatusOutOfBoundary:        "out of boundary",
	StatusIllegalFileName:      "illegal file name",
	StatusIllegalHandle:        "illegal handle",
}

// String returns a human-readable description of the status code.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("unknown status 0x%02X", byte(s))
}
