package behavior

import (
	"math"
	"math/rand"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/awksedgreep/snmp-sim-go/internal/device"
	"github.com/awksedgreep/snmp-sim-go/internal/profile"
)

const counterModulus = uint64(1) << 32

// Simulator generates live values from behavior descriptors. It carries its
// own RNG and clock so every device actor owns an uncontended instance and
// tests can pin both.
type Simulator struct {
	rng *rand.Rand
	now func() time.Time
}

// NewSimulator creates a simulator seeded for one device.
func NewSimulator(seed int64) *Simulator {
	return NewSimulatorWithClock(seed, time.Now)
}

// NewSimulatorWithClock creates a simulator with an injected clock. The clock
// drives time-of-day factors and counter sampling intervals.
func NewSimulatorWithClock(seed int64, now func() time.Time) *Simulator {
	if seed == 0 {
		seed = 1
	}
	if now == nil {
		now = time.Now
	}
	return &Simulator{rng: rand.New(rand.NewSource(seed)), now: now}
}

// Simulate produces the current typed value for one OID. It never fails: an
// unrecognized or nil descriptor degrades to the static profile value. The
// state's counter accumulators are advanced in place; the caller (the device
// actor) owns st and serializes access.
func (s *Simulator) Simulate(oid string, datum profile.Datum, desc Descriptor, st *device.State) profile.Datum {
	switch d := desc.(type) {
	case TrafficCounter:
		return s.trafficCounter(oid, datum, d, st)
	case UtilizationGauge:
		return s.utilizationGauge(datum, d, st)
	case SNRGauge:
		return s.snrGauge(datum, d, st)
	case PowerGauge:
		return s.powerGauge(datum, d, st)
	case ErrorCounter:
		return s.errorCounter(oid, datum, d, st)
	case UptimeCounter:
		return s.uptimeCounter(datum, d, st)
	case StatusEnum:
		return s.statusEnum(st)
	case TemperatureGauge:
		return s.temperatureGauge(datum, d, st)
	case StaticValue:
		return datum
	default:
		return datum
	}
}

func (s *Simulator) trafficCounter(oid string, datum profile.Datum, d TrafficCounter, st *device.State) profile.Datum {
	base := baseUint64(datum)

	rate := s.sampleRate(d.RateRange)
	if d.TimeOfDayVariation {
		rate *= timeOfDayFactor(s.now())
	}
	rate *= utilizationOrDefault(st)
	if d.BurstProbability > 0 && s.rng.Float64() < d.BurstProbability {
		rate *= 2 + s.rng.Float64()*3
	}

	// Increment convention: bytes, i.e. sampled bits/sec over the elapsed
	// interval divided by 8.
	elapsed := s.advanceSample(oid, st)
	increment := uint64(rate * elapsed / 8)

	acc := accumulate(oid, st, increment)
	return counter32(base + acc)
}

func (s *Simulator) errorCounter(oid string, datum profile.Datum, d ErrorCounter, st *device.State) profile.Datum {
	base := baseUint64(datum)

	rate := s.sampleRate(d.RateRange)
	if d.CorrelationWithUtilization {
		rate *= (1 - signalOrDefault(st)) + utilizationOrDefault(st)
	}
	if d.ErrorBurstProbability > 0 && s.rng.Float64() < d.ErrorBurstProbability {
		rate *= 10 + s.rng.Float64()*40
	}

	elapsed := s.advanceSample(oid, st)
	increment := uint64(rate * elapsed)

	acc := accumulate(oid, st, increment)
	return counter32(base + acc)
}

func (s *Simulator) utilizationGauge(datum profile.Datum, d UtilizationGauge, st *device.State) profile.Datum {
	v := d.Range.Mid()

	if d.Pattern == "daily_variation" {
		peakCenter := float64(d.PeakHours[0]+d.PeakHours[1]) / 2
		h := hourOfDay(s.now())
		v += d.Range.Width() / 4 * math.Cos(2*math.Pi*(h-peakCenter)/24)
	}

	if st != nil && st.UtilizationBias > 0 {
		v *= st.UtilizationBias
	}
	v += s.rng.NormFloat64() * d.Range.Width() * 0.05

	return gauge32(v, d.Range)
}

func (s *Simulator) snrGauge(datum profile.Datum, d SNRGauge, st *device.State) profile.Datum {
	v := d.Range.Mid()
	v -= d.DegradationFactor * utilizationOrDefault(st) * d.Range.Width()
	v += s.rng.NormFloat64() * d.Range.Width() * 0.02
	return gauge32(v, d.Range)
}

func (s *Simulator) powerGauge(datum profile.Datum, d PowerGauge, st *device.State) profile.Datum {
	var center float64
	if d.Range.Lo < 0 && d.Range.Hi > 0 {
		center = 0
	} else {
		center = d.Range.Mid()
	}

	v := center + (signalOrDefault(st)-0.5)*d.Range.Width()
	if d.WeatherCorrelation && st != nil {
		v -= math.Max(0, st.TemperatureCelsius-25) * 0.05 * d.Range.Width()
	}
	v += s.rng.NormFloat64() * d.Range.Width() * 0.02
	return gauge32(v, d.Range)
}

func (s *Simulator) uptimeCounter(datum profile.Datum, d UptimeCounter, st *device.State) profile.Datum {
	if d.ResetProbability > 0 && s.rng.Float64() < d.ResetProbability {
		// One-sample agent restart: this reply reports zero, the epoch is
		// untouched.
		return profile.Datum{Type: gosnmp.TimeTicks, Value: uint32(0)}
	}
	rate := d.IncrementRate
	if rate <= 0 {
		rate = 100
	}
	ticks := uint64(uptimeOrDefault(st)*rate) % counterModulus
	return profile.Datum{Type: gosnmp.TimeTicks, Value: uint32(ticks)}
}

func (s *Simulator) statusEnum(st *device.State) profile.Datum {
	health, errRate := 1.0, 0.0
	if st != nil {
		health = st.HealthScore
		errRate = st.ErrorRate
	}
	score := health - 2*errRate
	var status string
	switch {
	case score > 0.7:
		status = "up"
	case score > 0.4:
		status = "degraded"
	default:
		status = "down"
	}
	return profile.Datum{Type: gosnmp.OctetString, Value: status}
}

func (s *Simulator) temperatureGauge(datum profile.Datum, d TemperatureGauge, st *device.State) profile.Datum {
	v, ok := baseFloat(datum)
	if !ok {
		v = d.Range.Mid()
	}
	if d.LoadCorrelation && st != nil {
		v += st.CPUUtilization * 30
	}
	v += s.rng.NormFloat64() * 1.5
	return gauge32(v, d.Range)
}

// sampleRate draws uniformly from the rate range, tolerating inverted or
// degenerate bounds.
func (s *Simulator) sampleRate(r RateRange) float64 {
	lo, hi := r.Min, r.Max
	if hi < lo {
		lo, hi = hi, lo
	}
	if hi <= 0 {
		return 0
	}
	return lo + s.rng.Float64()*(hi-lo)
}

// advanceSample returns the elapsed seconds since this OID was last sampled
// and records the new sample time. The first sample spans the device's whole
// uptime so freshly-created devices answer with plausible history.
func (s *Simulator) advanceSample(oid string, st *device.State) float64 {
	if st == nil {
		return 1
	}
	nowNs := s.now().UnixNano()
	last, seen := st.LastSampleNanos[oid]
	if st.LastSampleNanos == nil {
		st.LastSampleNanos = make(map[string]int64)
	}
	st.LastSampleNanos[oid] = nowNs
	if !seen {
		return uptimeOrDefault(st)
	}
	elapsed := float64(nowNs-last) / float64(time.Second)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

// accumulate adds the increment to the OID's 64-bit accumulator and returns
// the cumulative growth. Counter32 wraps are computed against this total so
// values never run backward under clock skew.
func accumulate(oid string, st *device.State, increment uint64) uint64 {
	if st == nil {
		return increment
	}
	if st.CounterAccumulators == nil {
		st.CounterAccumulators = make(map[string]uint64)
	}
	st.CounterAccumulators[oid] += increment
	return st.CounterAccumulators[oid]
}

// timeOfDayFactor is a bell-shaped daily modulation peaking mid-afternoon
// (~14:00) and bottoming out in the early morning. Stays within [0.5, 1.5].
func timeOfDayFactor(t time.Time) float64 {
	h := hourOfDay(t)
	return 1 + 0.5*math.Cos(2*math.Pi*(h-14)/24)
}

func hourOfDay(t time.Time) float64 {
	return float64(t.Hour()) + float64(t.Minute())/60
}

func utilizationOrDefault(st *device.State) float64 {
	if st == nil || st.InterfaceUtilization <= 0 {
		return 0.5
	}
	return st.InterfaceUtilization
}

func signalOrDefault(st *device.State) float64 {
	if st == nil || st.SignalQuality <= 0 {
		return 0.5
	}
	return st.SignalQuality
}

func uptimeOrDefault(st *device.State) float64 {
	if st == nil || st.UptimeSeconds < 0 {
		return 0
	}
	return st.UptimeSeconds
}

func counter32(total uint64) profile.Datum {
	return profile.Datum{Type: gosnmp.Counter32, Value: uint32(total % counterModulus)}
}

func gauge32(v float64, r Range) profile.Datum {
	v = math.Round(v)
	if r.Hi > r.Lo {
		// Clamp to the integers inside the range so rounding cannot step
		// past a fractional bound.
		v = math.Max(math.Ceil(r.Lo), math.Min(math.Floor(r.Hi), v))
	}
	return profile.Datum{Type: gosnmp.Gauge32, Value: int32(v)}
}

// baseUint64 extracts a non-negative integer base from a profile datum.
func baseUint64(d profile.Datum) uint64 {
	switch v := d.Value.(type) {
	case uint32:
		return uint64(v)
	case uint64:
		return v
	case uint:
		return uint64(v)
	case int:
		if v < 0 {
			return 0
		}
		return uint64(v)
	case int32:
		if v < 0 {
			return 0
		}
		return uint64(v)
	case int64:
		if v < 0 {
			return 0
		}
		return uint64(v)
	default:
		return 0
	}
}

func baseFloat(d profile.Datum) (float64, bool) {
	switch v := d.Value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}
