package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/arloliu/go-nxt/logger"
	"github.com/arloliu/go-nxt/nxt"
)

// KeepAliveInterval is the fixed period of the keep-alive task.
//
// The protocol documentation suggests pinging at half the brick's reported
// sleep timeout. A fixed 60-second period is used instead; every stock
// sleep setting tolerates it, and the reported timeout is still available
// via SleepTimeout.
const KeepAliveInterval = 60 * time.Second

const (
	motorSlots  = 3
	sensorSlots = 4

	// File transfer chunk sizes, bounded by the 64-byte telegram limit.
	maxReadChunk  = nxt.MaxTelegramSize - 6
	maxWriteChunk = nxt.MaxTelegramSize - 3
)

// Brick is the NXT controller unit: three motor ports, four sensor ports, a
// connection, and the keep-alive and polling tasks.
//
// A port slot holds at most one attached device; attaching stores the
// brick/port back-reference in the device. Attach everything before
// calling Connect.
type Brick struct {
	mu         sync.Mutex
	conn       *nxt.Conn
	logger     logger.Logger
	motors     [motorSlots]*Motor
	sensors    [sensorSlots]Sensor
	poller     *Poller
	connected  bool
	sleepLimit time.Duration
}

// NewBrick creates a Brick over the given transport. opts configure the
// underlying connection.
func NewBrick(transport nxt.Transport, opts ...nxt.ConnOption) (*Brick, error) {
	conn, err := nxt.NewConn(transport, opts...)
	if err != nil {
		return nil, err
	}

	return &Brick{
		conn:   conn,
		logger: conn.GetLogger(),
	}, nil
}

// Conn returns the underlying protocol connection for direct command
// access.
func (b *Brick) Conn() *nxt.Conn { return b.conn }

// IsConnected reports whether the brick is connected.
func (b *Brick) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.connected
}

// AttachMotor places a motor into the given port slot.
func (b *Brick) AttachMotor(m *Motor, port nxt.OutputPort) error {
	if port > nxt.PortC {
		return fmt.Errorf("%w: motor port %s", ErrInvalidPort, port)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.motors[port] != nil {
		return fmt.Errorf("%w: motor port %s", ErrPortOccupied, port)
	}
	if err := m.attach(b, port); err != nil {
		return err
	}
	b.motors[port] = m

	return nil
}

// AttachSensor places a sensor into the given port slot.
func (b *Brick) AttachSensor(s Sensor, port nxt.InputPort) error {
	if port > nxt.Port4 {
		return fmt.Errorf("%w: sensor port %s", ErrInvalidPort, port)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.sensors[port] != nil {
		return fmt.Errorf("%w: sensor port %s", ErrPortOccupied, port)
	}
	if err := s.attach(b, port); err != nil {
		return err
	}
	b.sensors[port] = s

	return nil
}

// Motor returns the motor attached to the given port, or nil.
func (b *Brick) Motor(port nxt.OutputPort) *Motor {
	if port > nxt.PortC {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.motors[port]
}

// Sensor returns the sensor attached to the given port, or nil.
func (b *Brick) Sensor(port nxt.InputPort) Sensor {
	if port > nxt.Port4 {
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sensors[port]
}

// Connect opens the connection, re-initializes every attached sensor's
// device-side configuration, and starts auto-polling and the keep-alive
// task. Connecting an already-connected brick is a no-op.
func (b *Brick) Connect() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.connected {
		return nil
	}

	if err := b.conn.Open(); err != nil {
		return err
	}

	// Mark connected before sensor init; init and polling go through the
	// same serialized connection either way.
	b.connected = true

	for _, s := range b.sensors {
		if s == nil {
			continue
		}
		if err := s.Init(); err != nil {
			b.connected = false
			_ = b.conn.Close()

			return fmt.Errorf("init sensor on port %s: %w", s.Port(), err)
		}
	}

	b.poller = NewPoller(context.Background(), b.logger)
	b.startTasks()

	b.logger.Info("brick connected")

	return nil
}

// startTasks registers the per-device poll tasks and the keep-alive task.
// Called with b.mu held.
func (b *Brick) startTasks() {
	for _, s := range b.sensors {
		if s == nil || s.PollInterval() <= 0 {
			continue
		}
		s := s
		name := fmt.Sprintf("sensor-port-%s", s.Port())
		_ = b.poller.StartInterval(name, s.PollInterval(), func() bool {
			if !b.IsConnected() {
				return false
			}
			if err := s.Poll(); err != nil {
				b.logger.Warn("sensor poll failed", "port", s.Port(), "error", err)
			}

			return true
		})
	}

	for _, m := range b.motors {
		if m == nil || m.PollInterval() <= 0 {
			continue
		}
		m := m
		name := fmt.Sprintf("motor-port-%s", m.Port())
		_ = b.poller.StartInterval(name, m.PollInterval(), func() bool {
			if !b.IsConnected() {
				return false
			}
			if err := m.Poll(); err != nil {
				b.logger.Warn("motor poll failed", "port", m.Port(), "error", err)
			}

			return true
		})
	}

	_ = b.poller.StartInterval("keep-alive", KeepAliveInterval, func() bool {
		if !b.IsConnected() {
			return false
		}

		limit, err := b.conn.KeepAlive()
		if err != nil {
			b.logger.Warn("keep-alive failed", "error", err)
			return true
		}

		b.mu.Lock()
		b.sleepLimit = limit
		b.mu.Unlock()

		return true
	})
}

// Disconnect stops auto-polling and the keep-alive task, waits for them,
// then closes the connection. Disconnecting an already-disconnected brick
// is a no-op.
func (b *Brick) Disconnect() error {
	b.mu.Lock()
	if !b.connected {
		b.mu.Unlock()
		return nil
	}
	b.connected = false
	poller := b.poller
	b.poller = nil
	b.mu.Unlock()

	// Stop tasks before closing so no exchange races the teardown.
	if poller != nil {
		poller.Stop()
	}

	b.logger.Info("brick disconnected")

	return b.conn.Close()
}

// SleepTimeout returns the sleep time limit last reported by the brick, or
// zero before the first keep-alive round trip.
func (b *Brick) SleepTimeout() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.sleepLimit
}

// KeepAlive pings the brick immediately, resetting its sleep timer, and
// records the reported sleep limit.
func (b *Brick) KeepAlive() (time.Duration, error) {
	limit, err := b.conn.KeepAlive()
	if err != nil {
		return 0, err
	}

	b.mu.Lock()
	b.sleepLimit = limit
	b.mu.Unlock()

	return limit, nil
}

// BatteryLevel reads the battery voltage in millivolts.
func (b *Brick) BatteryLevel() (uint16, error) {
	return b.conn.BatteryLevel()
}

// FirmwareVersion reads the protocol and firmware version.
func (b *Brick) FirmwareVersion() (*nxt.Version, error) {
	return b.conn.FirmwareVersion()
}

// DeviceInfo reads the brick's name, Bluetooth address, signal strength,
// and free flash space.
func (b *Brick) DeviceInfo() (*nxt.DeviceInfo, error) {
	return b.conn.GetDeviceInfo()
}

// SetName renames the brick.
func (b *Brick) SetName(name string) error {
	return b.conn.SetBrickName(name)
}

// PlayTone plays a tone through the brick's speaker.
func (b *Brick) PlayTone(frequency uint16, duration time.Duration) error {
	return b.conn.PlayTone(frequency, duration)
}

// StartProgram starts the named program on the brick.
func (b *Brick) StartProgram(name string) error {
	return b.conn.StartProgram(name)
}

// StopProgram stops the currently running program.
func (b *Brick) StopProgram() error {
	return b.conn.StopProgram()
}

// ListFiles lists the files matching the given pattern (for example "*.*").
func (b *Brick) ListFiles(pattern string) ([]nxt.FindResult, error) {
	var files []nxt.FindResult

	res, err := b.conn.FindFirst(pattern)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return files, nil
	}

	handle := res.Handle
	// The firmware releases the handle itself once the listing is
	// exhausted; closing again then reports an already-closed handle,
	// which is fine to ignore.
	defer func() { _ = b.conn.CloseFile(handle) }()

	for res.Found {
		files = append(files, *res)

		res, err = b.conn.FindNext(handle)
		if err != nil {
			return files, err
		}
	}

	return files, nil
}

// ListModules lists the firmware modules matching the given pattern (for
// example "*.mod").
func (b *Brick) ListModules(pattern string) ([]nxt.ModuleInfo, error) {
	var modules []nxt.ModuleInfo

	res, err := b.conn.RequestFirstModule(pattern)
	if err != nil {
		return nil, err
	}
	if !res.Found {
		return modules, nil
	}

	handle := res.Handle
	defer func() { _ = b.conn.CloseModuleHandle(handle) }()

	for res.Found {
		modules = append(modules, *res)

		res, err = b.conn.RequestNextModule(handle)
		if err != nil {
			return modules, err
		}
	}

	return modules, nil
}

// DownloadFile reads a whole file from the brick's flash filesystem.
func (b *Brick) DownloadFile(name string) ([]byte, error) {
	handle, size, err := b.conn.OpenRead(name)
	if err != nil {
		return nil, err
	}
	defer func() { _ = b.conn.CloseFile(handle) }()

	data := make([]byte, 0, size)
	for len(data) < int(size) {
		chunk := int(size) - len(data)
		if chunk > maxReadChunk {
			chunk = maxReadChunk
		}

		part, err := b.conn.ReadFile(handle, chunk)
		if err != nil {
			return nil, err
		}
		if len(part) == 0 {
			break
		}
		data = append(data, part...)
	}

	return data, nil
}

// UploadFile writes a whole file to the brick's flash filesystem, replacing
// any existing file of the same name.
func (b *Brick) UploadFile(name string, data []byte) error {
	// A leftover file of the same name would make OpenWrite fail with
	// "file exists"; a missing one makes this delete benignly fail.
	_ = b.conn.DeleteFile(name)

	handle, err := b.conn.OpenWrite(name, uint32(len(data)))
	if err != nil {
		return err
	}
	defer func() { _ = b.conn.CloseFile(handle) }()

	for off := 0; off < len(data); {
		chunk := len(data) - off
		if chunk > maxWriteChunk {
			chunk = maxWriteChunk
		}

		n, err := b.conn.WriteFile(handle, data[off:off+chunk])
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("device: brick accepted 0 bytes writing %q", name)
		}
		off += n
	}

	return nil
}

// DeleteFile removes a file from the brick's flash filesystem.
func (b *Brick) DeleteFile(name string) error {
	return b.conn.DeleteFile(name)
}

// MessageWrite posts a message to a mailbox on the brick.
func (b *Brick) MessageWrite(mailbox nxt.Mailbox, message string) error {
	return b.conn.MessageWrite(mailbox, message)
}

// MessageRead reads (and removes) a message from a remote mailbox.
func (b *Brick) MessageRead(remote, local nxt.Mailbox) (string, error) {
	return b.conn.MessageRead(remote, local, true)
}
