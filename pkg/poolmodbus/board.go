package poolmodbus

import (
	"fmt"
	"time"

	"github.com/simonvetter/modbus"
	"go.uber.org/zap"
)

// Register map of the pool I/O board.
//
// Input registers carry analog probe values scaled by 100 (a register value of
// 725 means 7.25). Discrete input 0 is the motion detector. Coils drive the
// actuator relays; their addresses come from device configuration.
const (
	REG_PH          = 0
	REG_TEMPERATURE = 1
	REG_PRESSURE    = 2
	REG_CURRENT     = 3
	REG_WATER_LEVEL = 4
	REG_CHLORINE    = 5
	REG_TURBIDITY   = 6

	DISCRETE_INPUT_MOTION = 0

	analogScale = 100
)

// Measurements is one full read of the board. Probes not installed on this
// board are nil.
type Measurements struct {
	PH          *float64
	Temperature float64
	Pressure    float64
	Current     *float64
	WaterLevel  float64
	Chlorine    *float64
	Turbidity   *float64
	Motion      bool
}

// ProbeConfig states which optional probes are wired to the board. Reading a
// register of an absent probe returns floating garbage, so absent probes are
// never read at all.
type ProbeConfig struct {
	HasPH        bool
	HasChlorine  bool
	HasTurbidity bool
	HasCurrent   bool
}

type PoolBoardReader interface {
	Open() error
	Close() error
	ReadMeasurements() (*Measurements, error)
	SetRelay(coil uint16, on bool) error
}

type ModbusClient struct {
	client     *modbus.ModbusClient
	instrument []ModbusInstrument
}

type ModbusInstrument struct {
	RecordTime func(fnName string, readTime time.Duration)
}

func (reader ModbusClient) readRegister(addr uint16) (uint16, error) {
	defer RecordTimer("ReadRegister", reader.instrument)()
	return reader.client.ReadRegister(addr, modbus.INPUT_REGISTER)
}

func (reader ModbusClient) readDiscreteInput(addr uint16) (bool, error) {
	defer RecordTimer("ReadDiscreteInput", reader.instrument)()
	return reader.client.ReadDiscreteInput(addr)
}

func (reader ModbusClient) writeCoil(addr uint16, value bool) error {
	defer RecordTimer("WriteCoil", reader.instrument)()
	return reader.client.WriteCoil(addr, value)
}

func RecordTimer(name string, instrument []ModbusInstrument) func() {
	if instrument == nil {
		return func() {}
	}

	start := time.Now()
	return func() {
		duration := time.Since(start)
		for i := range instrument {
			instrument[i].RecordTime(name, duration)
		}
	}
}

type PoolBoardModbusReader struct {
	ModbusClient

	logger *zap.Logger
	probes ProbeConfig
}

func (b *PoolBoardModbusReader) Open() error {
	return b.client.Open()
}

func (b PoolBoardModbusReader) Close() error {
	return b.client.Close()
}

func (b PoolBoardModbusReader) ReadMeasurements() (*Measurements, error) {
	var m Measurements
	var err error

	if b.probes.HasPH {
		m.PH, err = b.readAnalog(REG_PH)
		if err != nil {
			return nil, err
		}
	}
	temp, err := b.readAnalog(REG_TEMPERATURE)
	if err != nil {
		return nil, err
	}
	m.Temperature = *temp

	pressure, err := b.readAnalog(REG_PRESSURE)
	if err != nil {
		return nil, err
	}
	m.Pressure = *pressure

	if b.probes.HasCurrent {
		m.Current, err = b.readAnalog(REG_CURRENT)
		if err != nil {
			return nil, err
		}
	}

	level, err := b.readAnalog(REG_WATER_LEVEL)
	if err != nil {
		return nil, err
	}
	m.WaterLevel = *level

	if b.probes.HasChlorine {
		m.Chlorine, err = b.readAnalog(REG_CHLORINE)
		if err != nil {
			return nil, err
		}
	}
	if b.probes.HasTurbidity {
		m.Turbidity, err = b.readAnalog(REG_TURBIDITY)
		if err != nil {
			return nil, err
		}
	}

	m.Motion, err = b.readDiscreteInput(DISCRETE_INPUT_MOTION)
	if err != nil {
		return nil, err
	}

	return &m, nil
}

func (b PoolBoardModbusReader) SetRelay(coil uint16, on bool) error {
	return b.writeCoil(coil, on)
}

func (b PoolBoardModbusReader) readAnalog(addr uint16) (*float64, error) {
	raw, err := b.readRegister(addr)
	if err != nil {
		return nil, err
	}
	value := float64(int16(raw)) / analogScale
	return &value, nil
}

func debugLoggerInstrumentation(logger *zap.Logger) *ModbusInstrument {
	return &ModbusInstrument{
		RecordTime: func(fnName string, readTime time.Duration) {
			logger.Debug("modbus op", zap.String("fn", fnName), zap.Int64("millis", readTime.Milliseconds()))
		},
	}
}

func CreatePoolBoardModbusReader(ip string, port uint, unitId uint8, timeout time.Duration,
	probes ProbeConfig, logger *zap.Logger, instrumentation *ModbusInstrument) (PoolBoardReader, error) {
	client, err := modbus.NewClient(&modbus.ClientConfiguration{
		URL:     fmt.Sprintf("tcp://%s:%d", ip, port),
		Timeout: timeout,
	})
	if err != nil {
		return nil, err
	}

	// instrumentation
	var inst []ModbusInstrument
	logInst := debugLoggerInstrumentation(logger.With(zap.String("target", "poolboard"), zap.Uint8("unit", unitId)))
	if logInst != nil {
		inst = append(inst, *logInst)
	}
	if instrumentation != nil {
		inst = append(inst, *instrumentation)
	}

	if unitId > 0 {
		err = client.SetUnitId(unitId)
		if err != nil {
			return nil, err
		}
	}

	board := PoolBoardModbusReader{
		ModbusClient: ModbusClient{
			client:     client,
			instrument: inst,
		},
		logger: logger,
		probes: probes,
	}
	return &board, nil
}
