package device

import (
	"encoding/binary"
	"errors"
	"sync"
	"time"

	"github.com/arloliu/go-nxt/nxt"
)

// fakeTransport is a scripted in-memory transport. Each framed request is
// recorded; when the request expects a reply, handler produces the inner
// reply telegram, which is framed into the read buffer.
type fakeTransport struct {
	mu      sync.Mutex
	opened  bool
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
	if req[0]&nxt.NoReplyFlag != 0 || t.handler == nil {
		return nil
	}

	reply := t.handler(req)
	if reply == nil {
		return nil
	}

	frame := make([]byte, 2+len(reply))
	binary.LittleEndian.PutUint16(frame, uint16(len(reply)))
	copy(frame[2:], reply)
	t.readBuf = append(t.readBuf, frame...)

	return nil
}

func (t *fakeTransport) Read(buf []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if len(t.readBuf) < len(buf) {
		return errors.New("fake: read past scripted data")
	}
	copy(buf, t.readBuf)
	t.readBuf = t.readBuf[len(buf):]

	return nil
}

// setHandler swaps the reply script, typically after Connect has finished
// driving the initialization exchanges.
func (t *fakeTransport) setHandler(handler func(req []byte) []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.handler = handler
}

func (t *fakeTransport) writeCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	return len(t.writes)
}

// requests returns the inner telegrams of all recorded writes.
func (t *fakeTransport) requests() [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()

	reqs := make([][]byte, 0, len(t.writes))
	for _, framed := range t.writes {
		reqs = append(reqs, framed[2:])
	}

	return reqs
}

// requestsFor returns the recorded inner telegrams carrying the given
// opcode.
func (t *fakeTransport) requestsFor(op nxt.OpCode) [][]byte {
	var reqs [][]byte
	for _, req := range t.requests() {
		if nxt.OpCode(req[1]) == op {
			reqs = append(reqs, req)
		}
	}

	return reqs
}

// replyTelegram builds an inner reply telegram.
func replyTelegram(op nxt.OpCode, status nxt.Status, payload ...byte) []byte {
	reply := make([]byte, 3+len(payload))
	reply[0] = nxt.ReplyTelegram
	reply[1] = byte(op)
	reply[2] = byte(status)
	copy(reply[3:], payload)

	return reply
}

// inputValuesReply builds a GetInputValues reply echoing the requested port
// and carrying the given scaled value.
func inputValuesReply(req []byte, scaled int16) []byte {
	payload := make([]byte, 13)
	payload[0] = req[2] // port echo
	payload[1] = 1      // valid
	binary.LittleEndian.PutUint16(payload[9:], uint16(scaled))

	return replyTelegram(nxt.OpGetInputValues, nxt.StatusSuccess, payload...)
}

// scaledScript answers GetInputValues with a scripted sequence of scaled
// values, repeating the last value once the script is exhausted.
func scaledScript(values ...int16) func(req []byte) []byte {
	i := 0

	return func(req []byte) []byte {
		if nxt.OpCode(req[1]) != nxt.OpGetInputValues {
			return replyTelegram(nxt.OpCode(req[1]), nxt.StatusSuccess)
		}

		v := values[len(values)-1]
		if i < len(values) {
			v = values[i]
			i++
		}

		return inputValuesReply(req, v)
	}
}
