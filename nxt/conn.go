package nxt

import (
	"sync"

	"github.com/arloliu/go-nxt/logger"
)

// Conn frames telegrams onto a Transport and exchanges them with the NXT.
//
// Every telegram is prefixed with a 2-byte little-endian length of the inner
// telegram (the prefix itself is not counted). When the telegram type has
// NoReplyFlag clear, the device answers with a reply telegram that is read
// synchronously before Exchange returns.
//
// A mutex totally orders exchanges: a new request does not begin framing
// until the previous request/reply pair has completed, so no two requests
// ever interleave on the wire.
type Conn struct {
	mu        sync.Mutex
	transport Transport
	cfg       *ConnConfig
	logger    logger.Logger
	open      bool
}

// NewConn creates a Conn over the given transport.
func NewConn(transport Transport, opts ...ConnOption) (*Conn, error) {
	if transport == nil {
		return nil, ErrTransportNil
	}

	cfg, err := NewConnConfig(opts...)
	if err != nil {
		return nil, err
	}

	return &Conn{
		transport: transport,
		cfg:       cfg,
		logger:    cfg.logger,
	}, nil
}

// Open establishes the transport link and applies the exchange timeout.
// Opening an already-open connection is a no-op.
func (c *Conn) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.open {
		return nil
	}

	if err := c.transport.Open(); err != nil {
		return &TransportError{Op: "open", Err: err}
	}
	if err := c.transport.SetTimeout(c.cfg.exchangeTimeout); err != nil {
		_ = c.transport.Close()
		return &TransportError{Op: "open", Err: err}
	}

	c.open = true
	c.logger.Info("connection opened", "timeout", c.cfg.exchangeTimeout)

	return nil
}

// Close tears the transport link down. Closing an already-closed connection
// is a no-op. In-flight exchanges are not cancelled; callers must stop
// issuing commands (polling, keep-alive) before closing.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil
	}

	c.open = false
	if err := c.transport.Close(); err != nil {
		return &TransportError{Op: "close", Err: err}
	}

	c.logger.Info("connection closed")

	return nil
}

// IsOpen reports whether the connection is open.
func (c *Conn) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.open
}

// GetLogger returns the logger associated with the connection.
func (c *Conn) GetLogger() logger.Logger { return c.logger }

// ReplyRequired returns whether fire-and-forget commands request a reply.
func (c *Conn) ReplyRequired() bool { return c.cfg.replyRequired }

// Exchange frames and writes req, and, when byte 0 of req has NoReplyFlag
// clear, reads and validates the reply telegram.
//
// The returned slice is the full reply telegram (marker, opcode echo,
// status, payload), or nil for no-reply requests. A non-success status byte
// is returned as *ProtocolError alongside the reply so that callers may
// translate benign statuses; the reply is only valid when it framed
// correctly (marker and opcode echo already verified).
func (c *Conn) Exchange(req []byte) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.open {
		return nil, ErrNotConnected
	}

	op := OpCode(req[1])

	// One Write per framed request: length prefix and telegram go out
	// together so concurrent callers can never interleave partial frames.
	framed := make([]byte, 2+len(req))
	putUint16(framed, 0, uint16(len(req)))
	copy(framed[2:], req)

	c.logger.Debug("send telegram", "opcode", op, "len", len(req))

	if err := c.transport.Write(framed); err != nil {
		return nil, &TransportError{Op: "write", Err: err}
	}

	if req[0]&NoReplyFlag != 0 {
		return nil, nil
	}

	return c.readReply(op)
}

// readReply reads one length-prefixed reply telegram and validates its
// marker, opcode echo, and status byte, in that order.
func (c *Conn) readReply(op OpCode) ([]byte, error) {
	var lenBuf [2]byte
	if err := c.transport.Read(lenBuf[:]); err != nil {
		return nil, &TransportError{Op: "read", Err: err}
	}

	length := getUint16(lenBuf[:], 0)
	if length < 3 {
		return nil, &FramingError{Opcode: op, Field: "reply length", Want: 3, Got: byte(length)}
	}

	reply := make([]byte, length)
	if err := c.transport.Read(reply); err != nil {
		return nil, &TransportError{Op: "read", Err: err}
	}

	if reply[0] != ReplyTelegram {
		return nil, &FramingError{Opcode: op, Field: "reply marker", Want: ReplyTelegram, Got: reply[0]}
	}
	if OpCode(reply[1]) != op {
		return nil, &FramingError{Opcode: op, Field: "opcode echo", Want: byte(op), Got: reply[1]}
	}

	c.logger.Debug("recv telegram", "opcode", op, "status", Status(reply[2]), "len", length)

	if status := Status(reply[2]); status != StatusSuccess {
		return reply, &ProtocolError{Opcode: op, Status: status}
	}

	return reply, nil
}

// directTelegram builds a direct command telegram header. When reply is
// false the connection's reply policy decides whether a reply is requested.
func (c *Conn) directTelegram(op OpCode, payloadLen int, reply bool) []byte {
	req := make([]byte, 2+payloadLen)
	req[0] = DirectTelegram
	if !reply && !c.cfg.replyRequired {
		req[0] |= NoReplyFlag
	}
	req[1] = byte(op)

	return req
}

// systemTelegram builds a system command telegram header, under the same
// reply policy as directTelegram.
func (c *Conn) systemTelegram(op OpCode, payloadLen int, reply bool) []byte {
	req := make([]byte, 2+payloadLen)
	req[0] = SystemTelegram
	if !reply && !c.cfg.replyRequired {
		req[0] |= NoReplyFlag
	}
	req[1] = byte(op)

	return req
}
