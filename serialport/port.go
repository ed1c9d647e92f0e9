// Package serialport implements nxt.Transport over a serial port using
// go.bug.st/serial, which is how a Bluetooth link to the brick surfaces on
// every desktop platform (a virtual COM port such as COM4 or
// /dev/rfcomm0).
package serialport

import (
	"errors"
	"fmt"
	"sync"
	"time"

	serial "go.bug.st/serial"

	"github.com/arloliu/go-nxt/nxt"
)

// DefaultBaudRate is used when no baud rate is configured. The Bluetooth
// SPP layer ignores it, but the serial stack requires one.
const DefaultBaudRate = 115200

// ErrReadTimeout indicates that a read did not complete within the
// configured timeout.
var ErrReadTimeout = errors.New("serialport: read timeout")

// Port is a serial-port transport. It is driven by nxt.Conn, which
// serializes all access; Port itself only guards its open/closed state.
type Port struct {
	mu      sync.Mutex
	name    string
	mode    *serial.Mode
	timeout time.Duration
	port    serial.Port
}

var _ nxt.Transport = (*Port)(nil)

// New creates a transport for the named port (for example "COM4" or
// "/dev/rfcomm0"). The port is not opened until Open.
func New(name string) *Port {
	return &Port{
		name:    name,
		mode:    &serial.Mode{BaudRate: DefaultBaudRate},
		timeout: nxt.DefaultExchangeTimeout,
	}
}

// List returns the serial port names present on the system.
func List() ([]string, error) {
	return serial.GetPortsList()
}

// Open opens the serial port. Opening an already-open port is a no-op.
func (p *Port) Open() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port != nil {
		return nil
	}

	port, err := serial.Open(p.name, p.mode)
	if err != nil {
		return fmt.Errorf("serialport: open %s: %w", p.name, err)
	}
	if err := port.SetReadTimeout(p.timeout); err != nil {
		_ = port.Close()
		return fmt.Errorf("serialport: set read timeout on %s: %w", p.name, err)
	}

	p.port = port

	return nil
}

// Close closes the serial port. Closing an already-closed port is a no-op.
func (p *Port) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil
	}

	err := p.port.Close()
	p.port = nil

	return err
}

// IsOpen reports whether the port is open.
func (p *Port) IsOpen() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.port != nil
}

// SetTimeout sets the per-call read deadline.
func (p *Port) SetTimeout(d time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.timeout = d
	if p.port != nil {
		return p.port.SetReadTimeout(d)
	}

	return nil
}

// Write blocks until all of buf is written.
func (p *Port) Write(buf []byte) error {
	port, err := p.get()
	if err != nil {
		return err
	}

	for written := 0; written < len(buf); {
		n, err := port.Write(buf[written:])
		written += n

		if err != nil {
			return err
		}
	}

	return nil
}

// Read blocks until exactly len(buf) bytes are read or the timeout
// elapses. go.bug.st/serial reports a timeout as a zero-byte read with no
// error, which is mapped to ErrReadTimeout here.
func (p *Port) Read(buf []byte) error {
	port, err := p.get()
	if err != nil {
		return err
	}

	for read := 0; read < len(buf); {
		n, err := port.Read(buf[read:])
		read += n

		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: got %d of %d bytes", ErrReadTimeout, read, len(buf))
		}
	}

	return nil
}

func (p *Port) get() (serial.Port, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.port == nil {
		return nil, errors.New("serialport: port not open")
	}

	return p.port, nil
}
