package poolmodbus

import (
	"errors"
	"sync"
)

var errBoardUnavailable = errors.New("pool board unavailable")

func CreateTestPoolBoardReader(probes ProbeConfig) *TestPoolBoardReader {
	return &TestPoolBoardReader{
		probes: probes,
		relays: make(map[uint16]bool),
		measurements: Measurements{
			PH:          testFloat(7.25),
			Temperature: 26.5,
			Pressure:    1.15,
			Current:     testFloat(3.2),
			WaterLevel:  55,
			Chlorine:    testFloat(1.8),
			Turbidity:   testFloat(12),
		},
	}
}

// TestPoolBoardReader is an in-memory board used by actor and adapter tests.
// Relay writes are recorded and can be inspected or made to fail.
type TestPoolBoardReader struct {
	mu           sync.Mutex
	probes       ProbeConfig
	relays       map[uint16]bool
	measurements Measurements
	FailWrites   bool
	FailReads    bool
	opened       bool
}

func (b *TestPoolBoardReader) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = true
	return nil
}

func (b *TestPoolBoardReader) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opened = false
	return nil
}

func (b *TestPoolBoardReader) ReadMeasurements() (*Measurements, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailReads {
		return nil, errBoardUnavailable
	}
	m := b.measurements
	if !b.probes.HasPH {
		m.PH = nil
	}
	if !b.probes.HasChlorine {
		m.Chlorine = nil
	}
	if !b.probes.HasTurbidity {
		m.Turbidity = nil
	}
	if !b.probes.HasCurrent {
		m.Current = nil
	}
	return &m, nil
}

func (b *TestPoolBoardReader) SetRelay(coil uint16, on bool) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailWrites {
		return errBoardUnavailable
	}
	b.relays[coil] = on
	return nil
}

// SetMeasurements replaces the canned readings.
func (b *TestPoolBoardReader) SetMeasurements(m Measurements) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.measurements = m
}

// RelayState reports the last written value for a coil.
func (b *TestPoolBoardReader) RelayState(coil uint16) (bool, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	on, known := b.relays[coil]
	return on, known
}

func testFloat(v float64) *float64 {
	return &v
}
