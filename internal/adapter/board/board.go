package board

import (
	"fmt"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/port"
	"github.com/notanaas/aqua-guard-raspi-client/pkg/poolmodbus"
)

// PoolBoard adapts the Modbus pool board to the core sensor and actuator
// ports. The relay map comes from device configuration; actuators without a
// configured coil are simply not part of this board's registry.
type PoolBoard struct {
	reader poolmodbus.PoolBoardReader
	relays map[domain.Actuator]uint16
	order  []domain.Actuator
}

func NewPoolBoard(reader poolmodbus.PoolBoardReader, relayConfig map[string]uint) (*PoolBoard, error) {
	relays := make(map[domain.Actuator]uint16, len(relayConfig))
	for id, coil := range relayConfig {
		actuator, ok := domain.ParseActuator(id)
		if !ok {
			return nil, fmt.Errorf("unknown actuator in relay config: %q", id)
		}
		relays[actuator] = uint16(coil)
	}
	// registry order follows the canonical actuator order
	var order []domain.Actuator
	for _, a := range domain.Actuators() {
		if _, ok := relays[a]; ok {
			order = append(order, a)
		}
	}
	return &PoolBoard{
		reader: reader,
		relays: relays,
		order:  order,
	}, nil
}

func (b *PoolBoard) Open() error {
	return b.reader.Open()
}

func (b *PoolBoard) Close() error {
	return b.reader.Close()
}

// ReadSnapshot reads every probe once. Weather forecast and cleaning mode are
// not board concerns; the control loop fills them in afterwards.
func (b *PoolBoard) ReadSnapshot() (*domain.SensorSnapshot, error) {
	m, err := b.reader.ReadMeasurements()
	if err != nil {
		return nil, err
	}
	return &domain.SensorSnapshot{
		PH:            m.PH,
		Temperature:   m.Temperature,
		Pressure:      m.Pressure,
		Current:       m.Current,
		WaterLevel:    m.WaterLevel,
		Motion:        m.Motion,
		ChlorineLevel: m.Chlorine,
		Turbidity:     m.Turbidity,
	}, nil
}

func (b *PoolBoard) Registry() []domain.Actuator {
	return b.order
}

func (b *PoolBoard) Write(actuator domain.Actuator, on bool) error {
	coil, ok := b.relays[actuator]
	if !ok {
		return fmt.Errorf("actuator %s has no relay on this board", actuator)
	}
	return b.reader.SetRelay(coil, on)
}

var _ port.SensorBoard = (*PoolBoard)(nil)
var _ port.ActuatorBank = (*PoolBoard)(nil)
