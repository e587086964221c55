package poolmodbus

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTestBoardReadMeasurements(t *testing.T) {

	assert := assert.New(t)

	board := CreateTestPoolBoardReader(ProbeConfig{
		HasPH:        true,
		HasChlorine:  true,
		HasTurbidity: true,
		HasCurrent:   true,
	})
	assert.NoError(board.Open())

	m, err := board.ReadMeasurements()
	assert.NoError(err)
	assert.Equal(7.25, *m.PH, "pH value")
	assert.Equal(26.5, m.Temperature, "temperature value")
	assert.Equal(1.8, *m.Chlorine, "chlorine value")
	assert.False(m.Motion, "motion value")

	assert.NoError(board.Close())
}

func TestTestBoardAbsentProbesAreNil(t *testing.T) {

	assert := assert.New(t)

	board := CreateTestPoolBoardReader(ProbeConfig{})

	m, err := board.ReadMeasurements()
	assert.NoError(err)
	assert.Nil(m.PH, "pH absent")
	assert.Nil(m.Chlorine, "chlorine absent")
	assert.Nil(m.Turbidity, "turbidity absent")
	assert.Nil(m.Current, "current absent")
	assert.Equal(26.5, m.Temperature, "temperature still read")
}

func TestTestBoardRelayWrites(t *testing.T) {

	assert := assert.New(t)

	board := CreateTestPoolBoardReader(ProbeConfig{})

	assert.NoError(board.SetRelay(3, true))
	on, known := board.RelayState(3)
	assert.True(known, "relay known")
	assert.True(on, "relay on")

	assert.NoError(board.SetRelay(3, false))
	on, _ = board.RelayState(3)
	assert.False(on, "relay off")

	_, known = board.RelayState(5)
	assert.False(known, "untouched relay unknown")
}

func TestTestBoardFailures(t *testing.T) {

	assert := assert.New(t)

	board := CreateTestPoolBoardReader(ProbeConfig{})
	board.FailReads = true
	board.FailWrites = true

	_, err := board.ReadMeasurements()
	assert.Error(err, "read failure")
	assert.Error(board.SetRelay(0, true), "write failure")
}

func TestAnalogScaling(t *testing.T) {

	assert := assert.New(t)

	// 725 => 7.25, negative raw values map through int16
	positive := uint16(725)
	negative := uint16(0xFF6A)
	assert.Equal(7.25, float64(int16(positive))/analogScale)
	assert.Equal(-1.5, float64(int16(negative))/analogScale)
}
