// Package pool implements the lazy device pool: a bounded registry that
// materializes device actors on first query, deduplicates concurrent
// creation, evicts idle devices, and recovers from actor crashes.
package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/awksedgreep/snmp-sim-go/internal/agent"
	"github.com/awksedgreep/snmp-sim-go/internal/device"
)

var (
	// ErrUnknownPortRange is returned for ports outside every assignment.
	ErrUnknownPortRange = errors.New("port not in any assignment")

	// ErrPoolExhausted is returned when a create would exceed max devices.
	// It is the pool's only backpressure signal.
	ErrPoolExhausted = errors.New("device pool exhausted")

	// ErrActorStartFailed wraps factory failures.
	ErrActorStartFailed = errors.New("device actor failed to start")

	// ErrPoolClosed is returned after Close.
	ErrPoolClosed = errors.New("device pool closed")
)

// Defaults for Config fields left zero.
const (
	DefaultIdleTimeout = 30 * time.Minute
	DefaultMaxDevices  = 10_000
)

// Factory materializes the actor for a port.
type Factory func(port int, t device.Type) (*agent.VirtualDevice, error)

// Config carries the pool's recognized options.
type Config struct {
	IdleTimeout    time.Duration
	MaxDevices     int
	ReaperInterval time.Duration

	// Now and Factory are injection points for tests. Zero values mean the
	// wall clock and the real actor factory.
	Now     func() time.Time
	Factory Factory
}

func (c *Config) normalize() {
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.MaxDevices <= 0 {
		c.MaxDevices = DefaultMaxDevices
	}
	if c.ReaperInterval <= 0 {
		c.ReaperInterval = c.IdleTimeout / 2
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.Factory == nil {
		c.Factory = func(port int, t device.Type) (*agent.VirtualDevice, error) {
			return agent.NewVirtualDevice(port, t, agent.Options{})
		}
	}
}

// Stats is a snapshot of pool counters. DevicesCreatedTotal, CleanedUpTotal, and
// CrashedTotal are monotonic for the pool's lifetime; ActiveCount tracks the
// live registry.
type Stats struct {
	ActiveCount         int
	DevicesCreatedTotal uint64
	CleanedUpTotal      uint64
	CrashedTotal        uint64
	PeakCount           int
}

// entry is one registry slot. Until ready closes it represents an in-flight
// creation; afterwards exactly one of dev or err is set.
type entry struct {
	ready chan struct{}
	dev   *agent.VirtualDevice
	err   error
}

// Pool is the lazy device pool. The registry is mutated only under mu;
// actors never reach back into it.
type Pool struct {
	cfg Config

	mu          sync.Mutex
	assignments *device.PortAssignments
	entries     map[int]*entry
	closed      bool

	active  int
	peak    int
	created uint64
	cleaned uint64
	crashed uint64

	reaper *cron.Cron
	logger zerolog.Logger
}

// New creates a pool. Port assignments must be configured before devices can
// be created.
func New(cfg Config) *Pool {
	cfg.normalize()
	return &Pool{
		cfg:     cfg,
		entries: make(map[int]*entry),
		logger:  log.With().Str("component", "pool").Logger(),
	}
}

// ConfigurePortAssignments replaces the active assignments. Pre-existing
// devices are unaffected.
func (p *Pool) ConfigurePortAssignments(pa *device.PortAssignments) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.assignments = pa
}

// GetOrCreate returns the live device for a port, materializing it on first
// use. Concurrent callers for the same port rendezvous on a single creation;
// the losers wait for the winner and receive the same handle.
func (p *Pool) GetOrCreate(ctx context.Context, port int) (*agent.VirtualDevice, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			return nil, ErrPoolClosed
		}
		if p.assignments == nil || !p.assignments.Contains(port) {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: port %d", ErrUnknownPortRange, port)
		}

		if e, ok := p.entries[port]; ok {
			p.mu.Unlock()
			dev, err := p.await(ctx, e)
			if err != nil {
				return nil, err
			}
			if dev.Alive() {
				return dev, nil
			}
			// Terminated since creation. The monitor removes the entry;
			// yield to it and retry with a fresh actor.
			p.waitRemoved(port, e)
			continue
		}

		if len(p.entries) >= p.cfg.MaxDevices {
			p.mu.Unlock()
			return nil, fmt.Errorf("%w: limit %d", ErrPoolExhausted, p.cfg.MaxDevices)
		}

		devType := p.assignments.DetermineDeviceType(port)
		e := &entry{ready: make(chan struct{})}
		p.entries[port] = e
		p.mu.Unlock()

		return p.materialize(port, devType, e)
	}
}

// await blocks until an in-flight entry resolves.
func (p *Pool) await(ctx context.Context, e *entry) (*agent.VirtualDevice, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-e.ready:
	}
	if e.err != nil {
		return nil, e.err
	}
	return e.dev, nil
}

// waitRemoved blocks until the crash monitor has dropped the dead entry so a
// retry observes a clean registry slot.
func (p *Pool) waitRemoved(port int, dead *entry) {
	for {
		p.mu.Lock()
		current, ok := p.entries[port]
		p.mu.Unlock()
		if !ok || current != dead {
			return
		}
		time.Sleep(time.Millisecond)
	}
}

// materialize runs the winning creation for a port.
func (p *Pool) materialize(port int, devType device.Type, e *entry) (*agent.VirtualDevice, error) {
	dev, err := p.cfg.Factory(port, devType)

	p.mu.Lock()
	if err != nil {
		e.err = fmt.Errorf("%w: port %d: %v", ErrActorStartFailed, port, err)
		if p.entries[port] == e {
			delete(p.entries, port)
		}
		p.mu.Unlock()
		close(e.ready)
		return nil, e.err
	}

	e.dev = dev
	p.created++
	metricDevicesCreated.Inc()
	if p.entries[port] == e {
		p.active++
		if p.active > p.peak {
			p.peak = p.active
			metricDevicesPeak.Set(float64(p.peak))
		}
		metricDevicesActive.Set(float64(p.active))
		p.mu.Unlock()
		close(e.ready)
		go p.monitor(port, e)
		return dev, nil
	}

	// The registry slot no longer holds this entry. The eviction paths all
	// skip unresolved entries, so this is a defensive path: the creation
	// completes and the device is stopped immediately.
	p.mu.Unlock()
	close(e.ready)
	go dev.Stop()
	return dev, nil
}

// monitor watches one actor and removes its registry entry the moment it
// terminates. Deliberate evictions remove the entry first, so anything the
// monitor still finds is a crash.
func (p *Pool) monitor(port int, e *entry) {
	<-e.dev.Done()

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.entries[port] != e {
		return
	}
	delete(p.entries, port)
	p.active--
	p.crashed++
	metricDevicesActive.Set(float64(p.active))
	metricDevicesCrashed.Inc()
	p.logger.Warn().Int("port", port).Msg("device terminated unexpectedly, removed from registry")
}

// ShutdownDevice stops the device on a port. Idempotent: absent ports are a
// no-op.
func (p *Pool) ShutdownDevice(port int) {
	p.mu.Lock()
	e, ok := p.entries[port]
	if !ok || !resolved(e) || e.dev == nil {
		p.mu.Unlock()
		return
	}
	delete(p.entries, port)
	p.active--
	p.cleaned++
	metricDevicesActive.Set(float64(p.active))
	metricDevicesCleaned.Inc()
	p.mu.Unlock()

	e.dev.Stop()
}

// ShutdownAllDevices stops every live actor and clears the registry. Lifetime
// counters keep their values; in-flight creations are skipped: they complete,
// register, and stay live until a later shutdown or idle sweep evicts them.
func (p *Pool) ShutdownAllDevices() {
	p.mu.Lock()
	victims := make([]*agent.VirtualDevice, 0, len(p.entries))
	for port, e := range p.entries {
		if !resolved(e) || e.dev == nil {
			continue
		}
		delete(p.entries, port)
		p.active--
		p.cleaned++
		victims = append(victims, e.dev)
	}
	metricDevicesActive.Set(float64(p.active))
	metricDevicesCleaned.Add(float64(len(victims)))
	p.mu.Unlock()

	var wg sync.WaitGroup
	for _, dev := range victims {
		wg.Add(1)
		go func(d *agent.VirtualDevice) {
			defer wg.Done()
			d.Stop()
		}(dev)
	}
	wg.Wait()

	p.logger.Info().Int("stopped", len(victims)).Msg("all devices shut down")
}

// CleanupIdleDevices evicts every device idle for at least the configured
// timeout. Returns the number evicted.
func (p *Pool) CleanupIdleDevices() int {
	cutoff := p.cfg.Now().Add(-p.cfg.IdleTimeout).UnixNano()

	p.mu.Lock()
	victims := make([]*agent.VirtualDevice, 0)
	for port, e := range p.entries {
		if !resolved(e) || e.dev == nil {
			continue
		}
		if e.dev.LastActivityNanos() > cutoff {
			continue
		}
		delete(p.entries, port)
		p.active--
		p.cleaned++
		victims = append(victims, e.dev)
	}
	metricDevicesActive.Set(float64(p.active))
	metricDevicesCleaned.Add(float64(len(victims)))
	p.mu.Unlock()

	for _, dev := range victims {
		dev.Stop()
	}

	if len(victims) > 0 {
		p.logger.Info().Int("evicted", len(victims)).Msg("idle devices cleaned up")
	}
	return len(victims)
}

// StartReaper schedules periodic idle cleanup. CleanupIdleDevices stays
// callable on demand regardless.
func (p *Pool) StartReaper() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reaper != nil {
		return nil
	}
	c := cron.New()
	spec := fmt.Sprintf("@every %s", p.cfg.ReaperInterval)
	if _, err := c.AddFunc(spec, func() { p.CleanupIdleDevices() }); err != nil {
		return fmt.Errorf("schedule reaper: %w", err)
	}
	c.Start()
	p.reaper = c
	p.logger.Info().Str("interval", p.cfg.ReaperInterval.String()).Msg("idle reaper started")
	return nil
}

// Close stops the reaper, shuts every device down, and rejects further
// creates.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	reaper := p.reaper
	p.reaper = nil
	p.mu.Unlock()

	if reaper != nil {
		<-reaper.Stop().Done()
	}
	p.ShutdownAllDevices()
}

// GetStats returns a snapshot of the pool counters.
func (p *Pool) GetStats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{
		ActiveCount:         p.active,
		DevicesCreatedTotal: p.created,
		CleanedUpTotal:      p.cleaned,
		CrashedTotal:        p.crashed,
		PeakCount:           p.peak,
	}
}

// resolved reports whether an entry's creation has finished.
func resolved(e *entry) bool {
	select {
	case <-e.ready:
		return true
	default:
		return false
	}
}
