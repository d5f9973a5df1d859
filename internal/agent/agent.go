// Package agent implements the per-port device actor. Each VirtualDevice
// owns its simulation state behind a single-consumer request channel: callers
// talk to the device through request/reply, never through shared memory.
package agent

import (
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gosnmp/gosnmp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/awksedgreep/snmp-sim-go/internal/behavior"
	"github.com/awksedgreep/snmp-sim-go/internal/device"
	"github.com/awksedgreep/snmp-sim-go/internal/profile"
)

// ErrStopped is returned for requests against a terminated device.
var ErrStopped = errors.New("device stopped")

// stopGrace bounds how long Stop waits for the actor loop before abandoning
// it.
const stopGrace = time.Second

// Info is a read-only snapshot of a device's identity and activity.
type Info struct {
	DeviceID      string
	Port          int
	DeviceType    device.Type
	SysName       string
	UptimeSeconds float64
	PollCount     int64
	LastActivity  time.Time
}

// VirtualDevice is one simulated SNMP device. All state mutation happens on
// the actor goroutine; exported methods are request/reply over the mailbox.
type VirtualDevice struct {
	id      string
	port    int
	devType device.Type
	sysName string

	profile   *profile.Store
	behaviors *behavior.Binder
	sim       *behavior.Simulator
	state     *device.State // owned by run(); never touched outside it

	calls chan func()
	quit  chan struct{}
	done  chan struct{}

	stopOnce sync.Once
	doneOnce sync.Once

	startTime    time.Time
	now          func() time.Time
	lastActivity atomic.Int64
	pollCount    atomic.Int64

	logger zerolog.Logger
}

// Options configures a new device actor. Zero values pick sensible defaults:
// a type-appropriate profile, the default behavior bindings, the wall clock,
// and a seed derived from the port.
type Options struct {
	SysName   string
	Profile   *profile.Store
	Behaviors *behavior.Binder
	Seed      int64
	Now       func() time.Time
	Mailbox   int
}

// NewVirtualDevice creates and starts the actor for one port.
func NewVirtualDevice(port int, devType device.Type, opts Options) (*VirtualDevice, error) {
	chars, err := device.CharacteristicsFor(devType)
	if err != nil {
		return nil, err
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Seed == 0 {
		opts.Seed = int64(port)
	}
	if opts.SysName == "" {
		opts.SysName = string(devType) + "-" + uuid.NewString()[:8]
	}
	if opts.Profile == nil {
		opts.Profile = profile.BuildDefault(opts.SysName, chars.SysDescrPrefix, chars.TypicalInterfaces, chars.SignalMonitoring)
	}
	if opts.Behaviors == nil {
		opts.Behaviors = behavior.DefaultBinder(devType)
	}
	if opts.Mailbox <= 0 {
		opts.Mailbox = 32
	}

	now := opts.Now()
	seedRNG := rand.New(rand.NewSource(opts.Seed))

	d := &VirtualDevice{
		id:        uuid.NewString(),
		port:      port,
		devType:   devType,
		sysName:   opts.SysName,
		profile:   opts.Profile,
		behaviors: opts.Behaviors,
		sim:       behavior.NewSimulatorWithClock(opts.Seed, opts.Now),
		state:     device.NewState("", port, devType, seedRNG, now),
		calls:     make(chan func(), opts.Mailbox),
		quit:      make(chan struct{}),
		done:      make(chan struct{}),
		startTime: now,
		now:       opts.Now,
		logger: log.With().
			Str("component", "device").
			Int("port", port).
			Str("type", string(devType)).
			Logger(),
	}
	d.state.DeviceID = d.id
	d.lastActivity.Store(now.UnixNano())

	go d.run()
	return d, nil
}

// run is the actor loop. A panic in a request handler terminates the actor;
// the pool observes Done and drops the registry entry.
func (d *VirtualDevice) run() {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error().Interface("panic", r).Msg("device actor crashed")
		}
		d.signalDone()
	}()

	for {
		select {
		case <-d.quit:
			return
		case fn := <-d.calls:
			fn()
		}
	}
}

func (d *VirtualDevice) signalDone() {
	d.doneOnce.Do(func() { close(d.done) })
}

// call runs fn on the actor goroutine and waits for it. Returns ErrStopped
// when the actor has terminated.
func (d *VirtualDevice) call(fn func()) error {
	ready := make(chan struct{})
	wrapped := func() {
		defer close(ready)
		fn()
	}
	select {
	case <-d.done:
		return ErrStopped
	case d.calls <- wrapped:
	}
	select {
	case <-d.done:
		return ErrStopped
	case <-ready:
		return nil
	}
}

// touch records externally-observable activity for the idle reaper.
func (d *VirtualDevice) touch() {
	d.lastActivity.Store(d.now().UnixNano())
}

// tick advances the owned state to the current instant. Actor goroutine only.
func (d *VirtualDevice) tick() {
	d.state.UptimeSeconds = d.now().Sub(d.startTime).Seconds()
	d.state.LastActivityNanos = d.lastActivity.Load()
}

// HandlePacket processes a raw SNMP request and returns the marshalled
// response, or nil when the device cannot answer.
func (d *VirtualDevice) HandlePacket(packet []byte) []byte {
	d.touch()
	d.pollCount.Add(1)

	var response []byte
	err := d.call(func() {
		d.tick()
		response = d.respond(packet)
	})
	if err != nil {
		return nil
	}
	return response
}

// Info returns a snapshot of the device.
func (d *VirtualDevice) Info() Info {
	d.touch()

	info := Info{
		DeviceID:     d.id,
		Port:         d.port,
		DeviceType:   d.devType,
		SysName:      d.sysName,
		PollCount:    d.pollCount.Load(),
		LastActivity: time.Unix(0, d.lastActivity.Load()),
	}
	err := d.call(func() {
		d.tick()
		info.UptimeSeconds = d.state.UptimeSeconds
	})
	if err != nil {
		// Terminated device: report what we can without the actor.
		info.UptimeSeconds = d.now().Sub(d.startTime).Seconds()
	}
	return info
}

// Value simulates the current value of a single OID through the actor
// boundary. Used by the UDP front-end and by tests.
func (d *VirtualDevice) Value(oid string) (profile.Datum, bool) {
	d.touch()

	var (
		datum profile.Datum
		ok    bool
	)
	if err := d.call(func() {
		d.tick()
		datum, ok = d.valueLocked(oid)
	}); err != nil {
		return profile.Datum{}, false
	}
	return datum, ok
}

// valueLocked resolves one OID against profile and behavior. Actor goroutine
// only.
func (d *VirtualDevice) valueLocked(oid string) (profile.Datum, bool) {
	base, ok := d.profile.Get(oid)
	if !ok {
		return profile.Datum{}, false
	}
	desc := d.behaviors.Resolve(oid)
	return d.sim.Simulate(oid, base, desc, d.state), true
}

// Stop terminates the actor cooperatively, abandoning it after the grace
// period. Safe to call repeatedly.
func (d *VirtualDevice) Stop() {
	d.stopOnce.Do(func() { close(d.quit) })
	select {
	case <-d.done:
	case <-time.After(stopGrace):
		d.logger.Warn().Msg("device did not stop within grace period, abandoning")
		d.signalDone()
	}
}

// Kill terminates the actor immediately, the way an unrecoverable internal
// failure would. The pool's monitor observes it as a crash.
func (d *VirtualDevice) Kill() {
	// Panic on the actor goroutine so the crash takes the real path through
	// run's recover.
	select {
	case d.calls <- func() { panic("killed") }:
	case <-d.done:
	}
}

// Done is closed when the actor goroutine has terminated for any reason.
func (d *VirtualDevice) Done() <-chan struct{} { return d.done }

// Alive reports whether the actor is still serving requests.
func (d *VirtualDevice) Alive() bool {
	select {
	case <-d.done:
		return false
	default:
		return true
	}
}

// ID returns the device's unique ID.
func (d *VirtualDevice) ID() string { return d.id }

// Port returns the device's UDP port.
func (d *VirtualDevice) Port() int { return d.port }

// Type returns the device's type.
func (d *VirtualDevice) Type() device.Type { return d.devType }

// LastActivityNanos returns the UnixNano timestamp of the last
// externally-observable operation. Read by the pool's reaper.
func (d *VirtualDevice) LastActivityNanos() int64 { return d.lastActivity.Load() }

// respond builds an SNMP response for a raw request. SNMP uses ASN.1 BER;
// the PDU type sits near the start of the message, which is enough to pick
// the response shape without a full decode. Actor goroutine only.
func (d *VirtualDevice) respond(packet []byte) []byte {
	var pduType byte
	if len(packet) > 6 {
		pduType = packet[5]
	}

	switch pduType {
	case 0xA1: // GetNext-Request
		return d.marshalResponse(d.nextVars(profile.OIDSysDescr, 1))
	case 0xA3: // SetRequest: read-only fleet
		return d.marshalErrorResponse(gosnmp.ReadOnly)
	case 0xA5: // GetBulk-Request
		return d.marshalResponse(d.nextVars(profile.OIDSysDescr, 10))
	default: // GetRequest or unrecognized
		vars := make([]gosnmp.SnmpPDU, 0, 2)
		for _, oid := range []string{profile.OIDSysDescr, profile.OIDSysUpTime} {
			if datum, ok := d.valueLocked(oid); ok {
				vars = append(vars, gosnmp.SnmpPDU{Name: oid, Type: datum.Type, Value: datum.Value})
			}
		}
		return d.marshalResponse(vars)
	}
}

// nextVars walks the profile from the OID after start, simulating each value.
func (d *VirtualDevice) nextVars(start string, max int) []gosnmp.SnmpPDU {
	vars := make([]gosnmp.SnmpPDU, 0, max)
	current := start
	for len(vars) < max {
		next, _, ok := d.profile.GetNext(current)
		if !ok {
			break
		}
		if datum, found := d.valueLocked(next); found {
			vars = append(vars, gosnmp.SnmpPDU{Name: next, Type: datum.Type, Value: datum.Value})
		}
		current = next
	}
	return vars
}

func (d *VirtualDevice) marshalResponse(vars []gosnmp.SnmpPDU) []byte {
	packet := &gosnmp.SnmpPacket{
		Version:   gosnmp.Version2c,
		Community: "public",
		PDUType:   gosnmp.GetResponse,
		RequestID: 1,
		Variables: vars,
	}
	data, err := packet.MarshalMsg()
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to marshal response")
		return nil
	}
	return data
}

func (d *VirtualDevice) marshalErrorResponse(code gosnmp.SNMPError) []byte {
	packet := &gosnmp.SnmpPacket{
		Version:    gosnmp.Version2c,
		Community:  "public",
		PDUType:    gosnmp.GetResponse,
		RequestID:  1,
		Error:      code,
		ErrorIndex: 1,
		Variables:  []gosnmp.SnmpPDU{},
	}
	data, err := packet.MarshalMsg()
	if err != nil {
		d.logger.Error().Err(err).Msg("failed to marshal error response")
		return nil
	}
	return data
}
