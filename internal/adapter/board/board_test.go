package board

import (
	"testing"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/pkg/poolmodbus"

	"github.com/stretchr/testify/assert"
)

func testRelayConfig() map[string]uint {
	return map[string]uint{
		string(domain.ActuatorChlorinePump): 0,
		string(domain.ActuatorPoolFilter):   1,
		string(domain.ActuatorPoolHeater):   2,
	}
}

func TestNewPoolBoardRejectsUnknownActuator(t *testing.T) {

	assert := assert.New(t)

	reader := poolmodbus.CreateTestPoolBoardReader(poolmodbus.ProbeConfig{})
	_, err := NewPoolBoard(reader, map[string]uint{"discoBall": 9})
	assert.Error(err)
}

func TestPoolBoardRegistryOrderIsCanonical(t *testing.T) {

	assert := assert.New(t)

	reader := poolmodbus.CreateTestPoolBoardReader(poolmodbus.ProbeConfig{})
	b, err := NewPoolBoard(reader, testRelayConfig())
	assert.NoError(err)

	assert.Equal([]domain.Actuator{
		domain.ActuatorChlorinePump,
		domain.ActuatorPoolFilter,
		domain.ActuatorPoolHeater,
	}, b.Registry())
}

func TestPoolBoardReadSnapshot(t *testing.T) {

	assert := assert.New(t)

	reader := poolmodbus.CreateTestPoolBoardReader(poolmodbus.ProbeConfig{
		HasPH:       true,
		HasChlorine: true,
	})
	b, err := NewPoolBoard(reader, testRelayConfig())
	assert.NoError(err)

	snapshot, err := b.ReadSnapshot()
	assert.NoError(err)
	assert.Equal(7.25, *snapshot.PH, "pH value")
	assert.Equal(1.8, *snapshot.ChlorineLevel, "chlorine value")
	assert.Nil(snapshot.Turbidity, "absent turbidity probe")
	assert.Equal(26.5, snapshot.Temperature, "temperature value")
}

func TestPoolBoardWriteMapsToCoil(t *testing.T) {

	assert := assert.New(t)

	reader := poolmodbus.CreateTestPoolBoardReader(poolmodbus.ProbeConfig{})
	b, err := NewPoolBoard(reader, testRelayConfig())
	assert.NoError(err)

	assert.NoError(b.Write(domain.ActuatorPoolHeater, true))
	on, known := reader.RelayState(2)
	assert.True(known, "coil 2 written")
	assert.True(on, "coil 2 on")

	assert.Error(b.Write(domain.ActuatorPoolCover, true), "no relay configured")
}
