package device

import (
	"encoding/binary"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/go-nxt/nxt"
)

func TestMotorNotAttached(t *testing.T) {
	require := require.New(t)

	m := NewMotor()
	require.ErrorIs(m.Run(75, 0, 0), ErrNotAttached)
	require.ErrorIs(m.Brake(), ErrNotAttached)
	require.ErrorIs(m.Idle(), ErrNotAttached)
	require.ErrorIs(m.ResetPosition(false), ErrNotAttached)
}

func TestMotorRunEncoding(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{}
	m := NewMotor()
	newTestBrick(t, transport, map[nxt.OutputPort]*Motor{nxt.PortB: m}, nil)

	require.NoError(m.Run(75, 0, 360))

	reqs := transport.requestsFor(nxt.OpSetOutputState)
	require.Len(reqs, 1)
	req := reqs[0]
	require.Equal(byte(nxt.PortB), req[2])
	require.Equal(byte(75), req[3])
	require.Equal(byte(nxt.MotorOn|nxt.Regulated), req[4])
	require.Equal(byte(nxt.RegulationSpeed), req[5])
	require.Equal(byte(nxt.RunStateRunning), req[7])
	require.Equal(uint32(360), binary.LittleEndian.Uint32(req[8:]))
}

func TestMotorBrakeAndIdle(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{}
	m := NewMotor()
	newTestBrick(t, transport, map[nxt.OutputPort]*Motor{nxt.PortA: m}, nil)

	require.NoError(m.Brake())
	require.NoError(m.Idle())

	reqs := transport.requestsFor(nxt.OpSetOutputState)
	require.Len(reqs, 2)

	brake := reqs[0]
	require.Equal(byte(0), brake[3]) // zero power
	require.Equal(byte(nxt.MotorOn|nxt.Brake|nxt.Regulated), brake[4])

	idle := reqs[1]
	require.Equal(byte(0), idle[4]) // no mode bits
	require.Equal(byte(nxt.RunStateIdle), idle[7])
}

func TestMotorPoll(t *testing.T) {
	require := require.New(t)

	tacho := int32(-720)
	transport := &fakeTransport{handler: func(req []byte) []byte {
		payload := make([]byte, 22)
		payload[0] = req[2] // port echo
		binary.LittleEndian.PutUint32(payload[10:], uint32(tacho))

		return replyTelegram(nxt.OpGetOutputState, nxt.StatusSuccess, payload...)
	}}

	m := NewMotor()
	newTestBrick(t, transport, map[nxt.OutputPort]*Motor{nxt.PortC: m}, nil)

	require.Nil(m.State())
	require.Zero(m.TachoCount())

	require.NoError(m.Poll())
	require.Equal(int32(-720), m.TachoCount())
	require.Equal(nxt.PortC, m.State().Port)
}

func TestMotorPollWhileDisconnected(t *testing.T) {
	require := require.New(t)

	m := NewMotor()
	require.NoError(m.Poll())

	transport := &fakeTransport{}
	brick := newTestBrick(t, transport, map[nxt.OutputPort]*Motor{nxt.PortA: m}, nil)
	require.NoError(brick.Disconnect())

	before := transport.writeCount()
	require.NoError(m.Poll())
	require.Equal(before, transport.writeCount())
}

func TestMotorPairValidation(t *testing.T) {
	require := require.New(t)

	left := NewMotor()
	right := NewMotor()

	pair := NewMotorPair(left, right)
	require.ErrorIs(pair.Run(75, 0, 0), ErrNotAttached)

	brickA, err := NewBrick(&fakeTransport{})
	require.NoError(err)
	brickB, err := NewBrick(&fakeTransport{})
	require.NoError(err)

	require.NoError(brickA.AttachMotor(left, nxt.PortB))
	require.NoError(brickB.AttachMotor(right, nxt.PortC))

	// Synchronized regulation cannot span two bricks.
	require.ErrorIs(pair.Run(75, 0, 0), ErrDifferentBricks)
}

func TestMotorPairRunSynchronized(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{}
	left := NewMotor()
	right := NewMotor()
	newTestBrick(t, transport, map[nxt.OutputPort]*Motor{nxt.PortB: left, nxt.PortC: right}, nil)

	pair := NewMotorPair(left, right)
	require.NoError(pair.Run(75, -50, 0))

	reqs := transport.requestsFor(nxt.OpSetOutputState)
	require.Len(reqs, 2)
	require.Equal(byte(nxt.PortB), reqs[0][2])
	require.Equal(byte(nxt.PortC), reqs[1][2])

	for _, req := range reqs {
		require.Equal(byte(75), req[3])
		require.Equal(byte(nxt.RegulationSync), req[5])
		require.Equal(byte(0xCE), req[6]) // -50 as two's complement
	}
}

func TestMotorPairConcurrentCommands(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{}
	left := NewMotor()
	right := NewMotor()
	newTestBrick(t, transport, map[nxt.OutputPort]*Motor{nxt.PortB: left, nxt.PortC: right}, nil)

	pair := NewMotorPair(left, right)

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for n := 0; n < callers; n++ {
		go func() {
			defer wg.Done()
			_ = pair.Run(50, 0, 0)
		}()
	}
	wg.Wait()

	// The pair mutex keeps each command's two exchanges together: the
	// recorded requests strictly alternate left, right, left, right.
	reqs := transport.requestsFor(nxt.OpSetOutputState)
	require.Len(reqs, 2*callers)
	for i, req := range reqs {
		want := byte(nxt.PortB)
		if i%2 == 1 {
			want = byte(nxt.PortC)
		}
		require.Equal(want, req[2], "request %d", i)
	}
}
