package device

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-nxt/nxt"
)

func TestBrickAttachValidation(t *testing.T) {
	require := require.New(t)

	brick, err := NewBrick(&fakeTransport{})
	require.NoError(err)

	require.ErrorIs(brick.AttachMotor(NewMotor(), nxt.PortAll), ErrInvalidPort)
	require.ErrorIs(brick.AttachSensor(NewTouchSensor(), nxt.InputPort(4)), ErrInvalidPort)

	m := NewMotor()
	require.NoError(brick.AttachMotor(m, nxt.PortA))
	require.ErrorIs(brick.AttachMotor(NewMotor(), nxt.PortA), ErrPortOccupied)
	require.Same(m, brick.Motor(nxt.PortA))
	require.Nil(brick.Motor(nxt.PortB))

	touch := NewTouchSensor()
	require.NoError(brick.AttachSensor(touch, nxt.Port1))
	require.ErrorIs(brick.AttachSensor(NewSoundSensor(false), nxt.Port1), ErrPortOccupied)
	require.Same(Sensor(touch), brick.Sensor(nxt.Port1))
	require.Nil(brick.Sensor(nxt.Port2))
}

func TestBrickConnectDisconnect(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{}
	brick, err := NewBrick(transport)
	require.NoError(err)
	require.False(brick.IsConnected())

	require.NoError(brick.Connect())
	require.True(brick.IsConnected())
	require.True(transport.IsOpen())

	// Connecting again is a no-op.
	require.NoError(brick.Connect())

	require.NoError(brick.Disconnect())
	require.False(brick.IsConnected())
	require.False(transport.IsOpen())

	require.NoError(brick.Disconnect())
}

func TestBrickConnectInitFailureRollsBack(t *testing.T) {
	require := require.New(t)

	// With a required reply, a failing SetInputMode surfaces during Connect.
	transport := &fakeTransport{handler: func(req []byte) []byte {
		return replyTelegram(nxt.OpCode(req[1]), nxt.StatusBadInputOutput)
	}}

	brick, err := NewBrick(transport, nxt.WithReplyRequired(true))
	require.NoError(err)

	touch := NewTouchSensor()
	touch.SetPollInterval(0)
	require.NoError(brick.AttachSensor(touch, nxt.Port1))

	require.Error(brick.Connect())
	require.False(brick.IsConnected())
	require.False(transport.IsOpen())
}

func TestBrickStartsPollTasks(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{handler: scaledScript(0)}
	brick, err := NewBrick(transport)
	require.NoError(err)

	touch := NewTouchSensor() // default poll interval
	require.NoError(brick.AttachSensor(touch, nxt.Port1))

	require.NoError(brick.Connect())
	defer func() { _ = brick.Disconnect() }()

	// Auto-polling refreshes the reading without an explicit Poll call.
	require.Eventually(func() bool {
		return touch.LastReading() != nil
	}, time.Second, 10*time.Millisecond)
}

func TestBrickKeepAlive(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{handler: func(req []byte) []byte {
		payload := make([]byte, 4)
		binary.LittleEndian.PutUint32(payload, 600000)
		return replyTelegram(nxt.OpCode(req[1]), nxt.StatusSuccess, payload...)
	}}

	brick := newTestBrick(t, transport, nil, nil)

	require.Zero(brick.SleepTimeout())

	limit, err := brick.KeepAlive()
	require.NoError(err)
	require.Equal(10*time.Minute, limit)
	require.Equal(10*time.Minute, brick.SleepTimeout())
}

func TestBrickListFiles(t *testing.T) {
	require := require.New(t)

	files := []struct {
		name string
		size uint32
	}{
		{"DEMO.RXE", 2048},
		{"SOUND.RSO", 512},
	}

	next := 0
	transport := &fakeTransport{handler: func(req []byte) []byte {
		op := nxt.OpCode(req[1])
		switch op {
		case nxt.OpFindFirst, nxt.OpFindNext:
			if next >= len(files) {
				return replyTelegram(op, nxt.StatusFileNotFound)
			}
			payload := make([]byte, 25)
			payload[0] = 0x01 // handle
			copy(payload[1:], files[next].name)
			binary.LittleEndian.PutUint32(payload[21:], files[next].size)
			next++
			return replyTelegram(op, nxt.StatusSuccess, payload...)
		case nxt.OpClose:
			return replyTelegram(op, nxt.StatusSuccess, req[2])
		default:
			return replyTelegram(op, nxt.StatusSuccess)
		}
	}}

	brick := newTestBrick(t, transport, nil, nil)

	listing, err := brick.ListFiles("*.*")
	require.NoError(err)
	require.Len(listing, 2)
	require.Equal("DEMO.RXE", listing[0].Name)
	require.Equal(uint32(2048), listing[0].Size)
	require.Equal("SOUND.RSO", listing[1].Name)

	// The listing handle was released.
	require.Len(transport.requestsFor(nxt.OpClose), 1)
}

func TestBrickListFilesEmpty(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{handler: func(req []byte) []byte {
		return replyTelegram(nxt.OpCode(req[1]), nxt.StatusFileNotFound)
	}}

	brick := newTestBrick(t, transport, nil, nil)

	listing, err := brick.ListFiles("*.rxe")
	require.NoError(err)
	require.Empty(listing)
	// No handle was allocated, so none is closed.
	require.Empty(transport.requestsFor(nxt.OpClose))
}

func TestBrickDownloadFile(t *testing.T) {
	require := require.New(t)

	content := bytes.Repeat([]byte{0x5A}, 100)
	offset := 0

	transport := &fakeTransport{handler: func(req []byte) []byte {
		op := nxt.OpCode(req[1])
		switch op {
		case nxt.OpOpenRead:
			payload := make([]byte, 5)
			payload[0] = 0x01
			binary.LittleEndian.PutUint32(payload[1:], uint32(len(content)))
			return replyTelegram(op, nxt.StatusSuccess, payload...)
		case nxt.OpRead:
			n := int(binary.LittleEndian.Uint16(req[3:]))
			if n > len(content)-offset {
				n = len(content) - offset
			}
			payload := make([]byte, 3+n)
			payload[0] = req[2]
			binary.LittleEndian.PutUint16(payload[1:], uint16(n))
			copy(payload[3:], content[offset:offset+n])
			offset += n
			return replyTelegram(op, nxt.StatusSuccess, payload...)
		case nxt.OpClose:
			return replyTelegram(op, nxt.StatusSuccess, req[2])
		default:
			return replyTelegram(op, nxt.StatusSuccess)
		}
	}}

	brick := newTestBrick(t, transport, nil, nil)

	data, err := brick.DownloadFile("DATA.LOG")
	require.NoError(err)
	require.Equal(content, data)

	// 100 bytes need two reads at the telegram-bounded chunk size.
	require.Len(transport.requestsFor(nxt.OpRead), 2)
	require.Len(transport.requestsFor(nxt.OpClose), 1)
}

func TestBrickUploadFile(t *testing.T) {
	require := require.New(t)

	content := bytes.Repeat([]byte{0xA5}, 100)
	var received []byte

	transport := &fakeTransport{handler: func(req []byte) []byte {
		op := nxt.OpCode(req[1])
		switch op {
		case nxt.OpDelete:
			// Nothing to replace.
			return replyTelegram(op, nxt.StatusFileNotFound)
		case nxt.OpOpenWrite:
			return replyTelegram(op, nxt.StatusSuccess, 0x02)
		case nxt.OpWrite:
			data := req[3:]
			received = append(received, data...)
			payload := make([]byte, 3)
			payload[0] = req[2]
			binary.LittleEndian.PutUint16(payload[1:], uint16(len(data)))
			return replyTelegram(op, nxt.StatusSuccess, payload...)
		case nxt.OpClose:
			return replyTelegram(op, nxt.StatusSuccess, req[2])
		default:
			return replyTelegram(op, nxt.StatusSuccess)
		}
	}}

	brick := newTestBrick(t, transport, nil, nil)

	require.NoError(brick.UploadFile("DATA.LOG", content))
	require.Equal(content, received)
	require.Len(transport.requestsFor(nxt.OpWrite), 2)
	require.Len(transport.requestsFor(nxt.OpClose), 1)
}

func TestBrickListModules(t *testing.T) {
	require := require.New(t)

	sent := false
	transport := &fakeTransport{handler: func(req []byte) []byte {
		op := nxt.OpCode(req[1])
		switch op {
		case nxt.OpRequestFirstModule:
			sent = true
			payload := make([]byte, 31)
			payload[0] = 0x01
			copy(payload[1:], "Output.mod")
			binary.LittleEndian.PutUint32(payload[21:], 0x00020001)
			binary.LittleEndian.PutUint16(payload[29:], 100)
			return replyTelegram(op, nxt.StatusSuccess, payload...)
		case nxt.OpRequestNextModule:
			return replyTelegram(op, nxt.StatusNoMoreHandles)
		case nxt.OpCloseModuleHandle:
			return replyTelegram(op, nxt.StatusSuccess, req[2])
		default:
			return replyTelegram(op, nxt.StatusSuccess)
		}
	}}

	brick := newTestBrick(t, transport, nil, nil)

	modules, err := brick.ListModules("*.mod")
	require.NoError(err)
	require.True(sent)
	require.Len(modules, 1)
	require.Equal("Output.mod", modules[0].Name)
	require.Equal(nxt.ModuleID(0x00020001), modules[0].ID)
	require.Len(transport.requestsFor(nxt.OpCloseModuleHandle), 1)
}
