package device

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/arloliu/go-nxt/logger"
)

// DefaultPollInterval is the cadence at which auto-polled devices refresh
// their cached reading.
const DefaultPollInterval = 100 * time.Millisecond

// PollFunc is one periodic task body. It should return true to keep the
// task running, or false to stop it.
type PollFunc func() bool

// Poller runs named periodic tasks, each on its own ticker goroutine. The
// Brick uses it to drive device refresh cycles and the keep-alive task; the
// tasks communicate with the connection only through the synchronized
// command methods, so no extra signaling is needed.
type Poller struct {
	mu      sync.Mutex
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	logger  logger.Logger
	tasks   *xsync.MapOf[string, *pollTask]
	stopped bool
}

// pollTask is one registered task: its ticker and the cancel that releases
// its goroutine.
type pollTask struct {
	ticker *time.Ticker
	cancel context.CancelFunc
}

// NewPoller creates a Poller. ctx bounds the lifetime of every task.
func NewPoller(ctx context.Context, l logger.Logger) *Poller {
	p := &Poller{
		logger: l,
		tasks:  xsync.NewMapOf[string, *pollTask](),
	}
	p.ctx, p.cancel = context.WithCancel(ctx)

	return p
}

// StartInterval starts a named task executing fn every interval. Task names
// must be unique while the task runs.
func (p *Poller) StartInterval(name string, interval time.Duration, fn PollFunc) error {
	if interval <= 0 {
		return fmt.Errorf("device: invalid poll interval %v", interval)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return fmt.Errorf("device: poller already stopped")
	}

	ctx, cancel := context.WithCancel(p.ctx)
	task := &pollTask{ticker: time.NewTicker(interval), cancel: cancel}
	if _, loaded := p.tasks.LoadOrStore(name, task); loaded {
		task.ticker.Stop()
		cancel()

		return fmt.Errorf("device: poll task %q already exists", name)
	}

	p.logger.Debug("start poll task", "name", name, "interval", interval)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			task.cancel()
			task.ticker.Stop()
			// Remove only this task's own registration; the name may
			// already belong to a new task after StopInterval.
			p.tasks.Compute(name, func(cur *pollTask, loaded bool) (*pollTask, bool) {
				return cur, !loaded || cur == task
			})
			p.logger.Debug("poll task terminated", "name", name)
		}()

		for {
			select {
			case <-ctx.Done():
				return
			case <-task.ticker.C:
				if !p.callWithRecover(name, fn) {
					return
				}
			}
		}
	}()

	return nil
}

// StopInterval stops the named task and releases its goroutine. Stopping an
// unknown task is a no-op.
func (p *Poller) StopInterval(name string) {
	if task, ok := p.tasks.LoadAndDelete(name); ok {
		task.cancel()
	}
}

// Stop cancels all tasks and waits for their goroutines to terminate. The
// Poller cannot be reused afterwards.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return
	}
	p.stopped = true
	p.mu.Unlock()

	p.cancel()
	p.wg.Wait()
}

// TaskCount returns the number of registered tasks.
func (p *Poller) TaskCount() int {
	return p.tasks.Size()
}

// callWithRecover calls fn with panic protection; a panicking task is
// logged and kept running.
func (p *Poller) callWithRecover(name string, fn PollFunc) (cont bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("panic in poll task", "name", name, "panic", r)
			cont = true
		}
	}()

	return fn()
}
