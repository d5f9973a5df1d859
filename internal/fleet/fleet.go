// Package fleet orchestrates bulk device population startup and teardown on
// top of the lazy pool: it partitions a port range across device types, fans
// creation out over a bounded worker pool, and aggregates the result.
package fleet

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/awksedgreep/snmp-sim-go/internal/device"
	"github.com/awksedgreep/snmp-sim-go/internal/pool"
)

// ErrPopulationIncomplete is returned when fewer than the success threshold
// of requested devices came up.
var ErrPopulationIncomplete = errors.New("device population incomplete")

// successThreshold is the fraction of requested devices that must start for
// a population startup to count as Ok.
const successThreshold = 0.8

// Defaults for Options fields left zero.
const (
	DefaultParallelWorkers = 10
	DefaultPerTaskTimeout  = 10 * time.Second
)

// Options carries the recognized startup options.
type Options struct {
	PortRange       device.PortRange
	ParallelWorkers int
	PerTaskTimeout  time.Duration
}

func (o *Options) normalize() {
	if o.ParallelWorkers <= 0 {
		o.ParallelWorkers = DefaultParallelWorkers
	}
	if o.PerTaskTimeout <= 0 {
		o.PerTaskTimeout = DefaultPerTaskTimeout
	}
}

// Failure records one port that did not come up.
type Failure struct {
	Port int
	Type device.Type
	Err  error
}

// StartupResult aggregates a population startup.
type StartupResult struct {
	TotalDevices   int
	PerTypeCreated map[device.Type]int
	Failures       []Failure
}

// Status reports the orchestrator's book-keeping.
type Status struct {
	ActiveDevices int
	StartedAt     time.Time
	LastError     error
}

// Manager drives population lifecycle against one pool.
type Manager struct {
	pool *pool.Pool

	mu        sync.Mutex
	startedAt time.Time
	lastErr   error

	logger zerolog.Logger
}

// NewManager creates a fleet manager for the pool.
func NewManager(p *pool.Pool) *Manager {
	return &Manager{
		pool:   p,
		logger: log.With().Str("component", "fleet").Logger(),
	}
}

// StartDevicePopulation partitions opts.PortRange across the specs in order,
// configures the pool assignments, and creates every device through a
// bounded worker pool. The startup is Ok when at least 80% of the requested
// devices came up; otherwise the result is returned alongside
// ErrPopulationIncomplete.
func (m *Manager) StartDevicePopulation(ctx context.Context, specs []device.TypeCount, opts Options) (StartupResult, error) {
	opts.normalize()

	result := StartupResult{PerTypeCreated: make(map[device.Type]int)}

	pa, err := device.BuildPortAssignmentsInOrder(specs, opts.PortRange)
	if err != nil {
		m.recordError(err)
		return result, err
	}
	m.pool.ConfigurePortAssignments(pa)

	requested := 0
	for _, s := range specs {
		requested += s.Count
	}

	type job struct {
		port    int
		devType device.Type
	}
	jobs := make(chan job)
	var (
		resMu sync.Mutex
		wg    sync.WaitGroup
	)

	for i := 0; i < opts.ParallelWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				taskCtx, cancel := context.WithTimeout(ctx, opts.PerTaskTimeout)
				_, err := m.pool.GetOrCreate(taskCtx, j.port)
				cancel()

				resMu.Lock()
				if err != nil {
					result.Failures = append(result.Failures, Failure{Port: j.port, Type: j.devType, Err: err})
				} else {
					result.TotalDevices++
					result.PerTypeCreated[j.devType]++
				}
				resMu.Unlock()
			}
		}()
	}

feed:
	for _, s := range specs {
		for _, port := range pa.Ports(s.Type) {
			select {
			case <-ctx.Done():
				// Workers drain what is already queued; nothing new goes in.
				break feed
			case jobs <- job{port: port, devType: s.Type}:
			}
		}
	}
	close(jobs)
	wg.Wait()

	m.mu.Lock()
	m.startedAt = time.Now()
	m.mu.Unlock()

	m.logger.Info().
		Int("requested", requested).
		Int("created", result.TotalDevices).
		Int("failures", len(result.Failures)).
		Msg("population startup finished")

	if requested > 0 && float64(result.TotalDevices) < successThreshold*float64(requested) {
		err := fmt.Errorf("%w: %d of %d devices started", ErrPopulationIncomplete, result.TotalDevices, requested)
		m.recordError(err)
		return result, err
	}

	m.recordError(nil)
	return result, nil
}

// StartDeviceMix starts a named population preset.
func (m *Manager) StartDeviceMix(ctx context.Context, name string, opts Options) (StartupResult, error) {
	mix, err := device.GetDeviceMix(name)
	if err != nil {
		m.recordError(err)
		return StartupResult{PerTypeCreated: make(map[device.Type]int)}, err
	}

	specs := make([]device.TypeCount, 0, len(mix))
	for _, t := range device.AllTypes() {
		if mix[t] > 0 {
			specs = append(specs, device.TypeCount{Type: t, Count: mix[t]})
		}
	}
	return m.StartDevicePopulation(ctx, specs, opts)
}

// ShutdownDevicePopulation stops every device and resets the startup
// book-keeping. Pool lifetime counters are untouched.
func (m *Manager) ShutdownDevicePopulation() {
	m.pool.ShutdownAllDevices()

	m.mu.Lock()
	m.startedAt = time.Time{}
	m.lastErr = nil
	m.mu.Unlock()
}

// GetStartupStatus reports current population state.
func (m *Manager) GetStartupStatus() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Status{
		ActiveDevices: m.pool.GetStats().ActiveCount,
		StartedAt:     m.startedAt,
		LastError:     m.lastErr,
	}
}

func (m *Manager) recordError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}
