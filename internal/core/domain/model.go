package domain

// Actuator is the closed set of controllable pool devices. Action lists and
// relay registries are keyed by this type; ids coming from the wire are mapped
// through ParseActuator so an unknown id can be ignored explicitly.
type Actuator string

const (
	ActuatorChlorinePump   Actuator = "chlorinePump"
	ActuatorPoolFilter     Actuator = "poolFilter"
	ActuatorPoolVacuum     Actuator = "poolVacuum"
	ActuatorWaterFillPump  Actuator = "waterFillPump"
	ActuatorWaterDrainPump Actuator = "waterDrainPump"
	ActuatorPoolHeater     Actuator = "poolHeater"
	ActuatorPoolCover      Actuator = "poolCover"
	ActuatorLEDLights      Actuator = "ledLights"
	ActuatorFilterMotor    Actuator = "filterMotor"
)

// Actuators lists every known actuator in a stable order.
func Actuators() []Actuator {
	return []Actuator{
		ActuatorChlorinePump,
		ActuatorPoolFilter,
		ActuatorPoolVacuum,
		ActuatorWaterFillPump,
		ActuatorWaterDrainPump,
		ActuatorPoolHeater,
		ActuatorPoolCover,
		ActuatorLEDLights,
		ActuatorFilterMotor,
	}
}

// ParseActuator maps a wire id to an Actuator. ok is false for ids outside the
// closed set.
func ParseActuator(id string) (Actuator, bool) {
	switch Actuator(id) {
	case ActuatorChlorinePump, ActuatorPoolFilter, ActuatorPoolVacuum,
		ActuatorWaterFillPump, ActuatorWaterDrainPump, ActuatorPoolHeater,
		ActuatorPoolCover, ActuatorLEDLights, ActuatorFilterMotor:
		return Actuator(id), true
	}
	return "", false
}

type WeatherForecast string

const (
	WeatherSunny   WeatherForecast = "sunny"
	WeatherRainy   WeatherForecast = "rainy"
	WeatherUnknown WeatherForecast = "unknown"
)

// SensorSnapshot holds the readings collected at the start of one tick.
// Optional probes (pH, chlorine, turbidity, current) are pointers: a nil value
// fails every threshold comparison and therefore fires no rule, which is the
// required behavior for a missing field.
type SensorSnapshot struct {
	PH               *float64        `json:"pH,omitempty"`
	Temperature      float64         `json:"temperature"`
	Pressure         float64         `json:"pressure"`
	Current          *float64        `json:"current,omitempty"`
	WaterLevel       float64         `json:"waterLevel"`
	Motion           bool            `json:"motion"`
	ChlorineLevel    *float64        `json:"chlorineLevel,omitempty"`
	Turbidity        *float64        `json:"turbidity,omitempty"`
	WeatherForecast  WeatherForecast `json:"weatherForecast,omitempty"`
	PoolBeingCleaned bool            `json:"poolBeingCleaned"`
}

// ZeroSnapshot is the neutral snapshot substituted when the sensor board
// cannot be read. Optional probes stay nil so no threshold rule fires on
// made-up values.
func ZeroSnapshot() SensorSnapshot {
	return SensorSnapshot{WeatherForecast: WeatherUnknown}
}

// PoolConfig carries the per-device pool thresholds. Loaded once at startup
// (or fetched from the server) and never mutated by the rule engine.
type PoolConfig struct {
	MinWaterLevel      float64 `mapstructure:"min_water_level" json:"minWaterLevel"`
	MaxWaterLevel      float64 `mapstructure:"max_water_level" json:"maxWaterLevel"`
	DesiredTemperature float64 `mapstructure:"desired_temperature" json:"desiredTemperature"`
}

// DeviceSettings is the server-side view of the device configuration returned
// by GET /api/devices/user-and-settings.
type DeviceSettings struct {
	Pool            PoolConfig      `json:"poolInfo"`
	WeatherForecast WeatherForecast `json:"weatherForecast,omitempty"`
}

// Action is one actuator command emitted by the rule engine or returned by the
// server. Actions carry no identity; a list may contain several entries for
// the same actuator and the dispatcher applies them in order, so the last one
// wins.
type Action struct {
	Actuator Actuator `json:"actuator"`
	Command  bool     `json:"command"`
	Message  string   `json:"message"`
}

type EndpointRole string

const (
	EndpointPrimary EndpointRole = "primary"
	EndpointBackup  EndpointRole = "backup"
)

// Endpoint is one sync server target. Static configuration.
type Endpoint struct {
	URL  string
	Role EndpointRole
}

// TickRecord is the per-tick row handed to the tick recorder.
type TickRecord struct {
	Snapshot SensorSnapshot
	Applied  []Action
}

// LedgerBlock is one entry of the local audit hash chain. Hash covers the
// serialized data plus the previous block's hash.
type LedgerBlock struct {
	Timestamp    int64  `json:"timestamp"`
	EventType    string `json:"event_type"`
	Data         any    `json:"data"`
	PreviousHash string `json:"previous_hash"`
	Hash         string `json:"hash"`
}
