package nxt

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeTransport is a scripted in-memory transport. Each framed request
// is recorded; when the request expects a reply, handler produces the
// inner reply telegram, which is framed into the read buffer.
type fakeTransport struct {
	mu      sync.Mutex
	opened  bool
	reads   int
	writes  [][]byte
	readBuf []byte
	handler func(req []byte) []byte
}

func (t *fakeTransport) Open() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opened = true

	return nil
}

func (t *fakeTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.opened = false

	return nil
}

func (t *fakeTransport) IsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.opened
}

func (t *fakeTransport) SetTimeout(time.Duration) error { return nil }

func (t *fakeTransport) Write(buf []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	framed := make([]byte, len(buf))
	copy(framed, buf)
	t.writes = append(t.writes, framed)

	if len(framed) < 3 {
		return errors.New("fake: short frame")
	}

	req := framed[2:]
	if req[0]&NoReplyFlag != 0 || t.handler == nil {
		return nil
	}

	reply := t.handler(req)
	if reply == nil {
		return nil
	}

	frame := make([]byte, 2+len(reply))
	putUint16(frame, 0, uint16(len(reply)))
	copy(frame[2:], reply)
	t.readBuf = append(t.readBuf, frame...)

	return nil
}

func (t *fakeTransport) Read(buf []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.reads++
	if len(t.readBuf) < len(buf) {
		return errors.New("fake: read past scripted data")
	}
	copy(buf, t.readBuf)
	t.readBuf = t.readBuf[len(buf):]

	return nil
}

func (t *fakeTransport) writeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.writes)
}

func (t *fakeTransport) readCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.reads
}

func (t *fakeTransport) write(i int) []byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.writes[i]
}

// replyTelegram builds an inner reply telegram.
func replyTelegram(op OpCode, status Status, payload ...byte) []byte {
	reply := make([]byte, 3+len(payload))
	reply[0] = ReplyTelegram
	reply[1] = byte(op)
	reply[2] = byte(status)
	copy(reply[3:], payload)

	return reply
}

// okReply answers any request with a success reply carrying the given
// payload.
func okReply(payload ...byte) func(req []byte) []byte {
	return func(req []byte) []byte {
		return replyTelegram(OpCode(req[1]), StatusSuccess, payload...)
	}
}

func newTestConn(t *testing.T, transport Transport, opts ...ConnOption) *Conn {
	t.Helper()

	conn, err := NewConn(transport, opts...)
	require.NoError(t, err)
	require.NoError(t, conn.Open())

	return conn
}

func TestNewConnNilTransport(t *testing.T) {
	conn, err := NewConn(nil)
	require.ErrorIs(t, err, ErrTransportNil)
	require.Nil(t, conn)
}

func TestConnOpenClose(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{}
	conn, err := NewConn(transport)
	require.NoError(err)
	require.False(conn.IsOpen())

	require.NoError(conn.Open())
	require.True(conn.IsOpen())
	require.True(transport.IsOpen())

	// Opening and closing are idempotent.
	require.NoError(conn.Open())
	require.NoError(conn.Close())
	require.False(conn.IsOpen())
	require.False(transport.IsOpen())
	require.NoError(conn.Close())
}

func TestExchangeNotConnected(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{}
	conn, err := NewConn(transport)
	require.NoError(err)

	_, err = conn.BatteryLevel()
	require.ErrorIs(err, ErrNotConnected)
	require.Zero(transport.writeCount())
}

func TestExchangeFraming(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{handler: okReply(0xE8, 0x1C)} // 7400 mV
	conn := newTestConn(t, transport)

	mv, err := conn.BatteryLevel()
	require.NoError(err)
	require.Equal(uint16(7400), mv)

	// One write carries the whole frame: length prefix plus telegram.
	require.Equal(1, transport.writeCount())
	require.Equal([]byte{0x02, 0x00, DirectTelegram, byte(OpGetBatteryLevel)}, transport.write(0))
}

func TestExchangeNoReplySkipsRead(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{}
	conn := newTestConn(t, transport)

	require.NoError(conn.StopProgram())

	require.Equal(1, transport.writeCount())
	require.Zero(transport.readCount())
	// NoReplyFlag is set on the telegram type byte.
	require.Equal(DirectTelegram|NoReplyFlag, transport.write(0)[2])
}

func TestExchangeReplyRequired(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{handler: okReply()}
	conn := newTestConn(t, transport, WithReplyRequired(true))

	require.NoError(conn.StopProgram())

	// The reply policy turned a fire-and-forget command into a round trip.
	require.Equal(DirectTelegram, transport.write(0)[2])
	require.Equal(2, transport.readCount())
}

func TestExchangeReplyValidation(t *testing.T) {
	t.Run("truncated reply", func(t *testing.T) {
		transport := &fakeTransport{handler: func(req []byte) []byte {
			return []byte{ReplyTelegram, req[1]}
		}}
		conn := newTestConn(t, transport)

		_, err := conn.BatteryLevel()
		var ferr *FramingError
		require.ErrorAs(t, err, &ferr)
		require.Equal(t, "reply length", ferr.Field)
	})

	t.Run("bad reply marker", func(t *testing.T) {
		transport := &fakeTransport{handler: func(req []byte) []byte {
			return []byte{0x00, req[1], byte(StatusSuccess), 0, 0}
		}}
		conn := newTestConn(t, transport)

		_, err := conn.BatteryLevel()
		var ferr *FramingError
		require.ErrorAs(t, err, &ferr)
		require.Equal(t, "reply marker", ferr.Field)
		require.Equal(t, ReplyTelegram, ferr.Want)
	})

	t.Run("bad opcode echo", func(t *testing.T) {
		transport := &fakeTransport{handler: func(req []byte) []byte {
			return replyTelegram(OpKeepAlive, StatusSuccess, 0, 0)
		}}
		conn := newTestConn(t, transport)

		_, err := conn.BatteryLevel()
		var ferr *FramingError
		require.ErrorAs(t, err, &ferr)
		require.Equal(t, "opcode echo", ferr.Field)
		require.Equal(t, byte(OpGetBatteryLevel), ferr.Want)
		require.Equal(t, byte(OpKeepAlive), ferr.Got)
	})

	t.Run("non-success status", func(t *testing.T) {
		transport := &fakeTransport{handler: func(req []byte) []byte {
			return replyTelegram(OpCode(req[1]), StatusRequestFailed)
		}}
		conn := newTestConn(t, transport)

		_, err := conn.BatteryLevel()
		var perr *ProtocolError
		require.ErrorAs(t, err, &perr)
		require.Equal(t, OpGetBatteryLevel, perr.Opcode)
		require.Equal(t, StatusRequestFailed, perr.Status)
	})
}

func TestExchangeSerialized(t *testing.T) {
	require := require.New(t)

	transport := &fakeTransport{handler: okReply(0x00, 0x1C)}
	conn := newTestConn(t, transport)

	const callers = 8
	var wg sync.WaitGroup
	wg.Add(callers)
	for n := 0; n < callers; n++ {
		go func() {
			defer wg.Done()
			_, _ = conn.BatteryLevel()
		}()
	}
	wg.Wait()

	// Each exchange produced exactly one complete frame; the connection
	// mutex keeps concurrent requests from interleaving on the wire.
	require.Equal(callers, transport.writeCount())
	for i := 0; i < callers; i++ {
		require.Equal([]byte{0x02, 0x00, DirectTelegram, byte(OpGetBatteryLevel)}, transport.write(i))
	}
}

func TestExchangeWriteFailure(t *testing.T) {
	transport := &failingTransport{err: errors.New("link dropped")}
	conn := newTestConn(t, transport)

	_, err := conn.BatteryLevel()
	var terr *TransportError
	require.ErrorAs(t, err, &terr)
	require.Equal(t, "write", terr.Op)
	require.ErrorIs(t, err, transport.err)
}

// failingTransport fails every read and write.
type failingTransport struct {
	err  error
	open bool
}

func (t *failingTransport) Open() error { t.open = true; return nil }

func (t *failingTransport) Close() error { t.open = false; return nil }

func (t *failingTransport) IsOpen() bool { return t.open }

func (t *failingTransport) SetTimeout(time.Duration) error { return nil }

func (t *failingTransport) Write([]byte) error { return t.err }

func (t *failingTransport) Read([]byte) error { return t.err }
