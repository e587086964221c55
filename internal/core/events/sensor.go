package events

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"

	. "github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"

	"github.com/carlmjohnson/versioninfo"
)

const (
	SENSOR_ID_BRIDGE_STATE     = "bridge"
	SENSOR_ID_POOL_PH          = "pool_ph"
	SENSOR_ID_POOL_TEMPERATURE = "pool_temperature"
	SENSOR_ID_POOL_PRESSURE    = "pool_pressure"
	SENSOR_ID_POOL_CURRENT     = "pool_current"
	SENSOR_ID_POOL_WATER_LEVEL = "pool_water_level"
	SENSOR_ID_POOL_CHLORINE    = "pool_chlorine"
	SENSOR_ID_POOL_TURBIDITY   = "pool_turbidity"
	SENSOR_ID_POOL_MOTION      = "pool_motion"
	SENSOR_ID_WEATHER_FORECAST = "weather_forecast"
	SWITCH_ID_CLEANING_MODE    = "cleaning_mode"
	STATE_CLASS_MEASUREMENT    = "measurement"
	DEVICE_CLASS_TEMPERATURE   = "temperature"
	DEVICE_CLASS_PRESSURE      = "pressure"
	DEVICE_CLASS_CURRENT       = "current"
	DEVICE_CLASS_MOTION        = "motion"
	DEVICE_CLASS_CONNECTIVITY  = "connectivity"
	ENTITY_CLASS_DIAGNOSTIC    = "diagnostic"
	SENSOR_TYPE_SENSOR         = "sensor"
	SENSOR_TYPE_BINARY         = "binary_sensor"
)

func BridgeDevice(baseTopic string) Device {
	return Device{
		Id:           fmt.Sprintf("aquaguard_bridge_%s", md5HashShort(baseTopic)),
		Manufacturer: "AquaGuard",
		Model:        "AquaGuard Bridge",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("AquaGuard %s", md5HashShort(baseTopic)),
	}
}

func PoolDevice(serial string) Device {
	return Device{
		Id:           fmt.Sprintf("aquaguard_pool_%s", md5HashShort(serial)),
		Manufacturer: "AquaGuard",
		Model:        "Pool Controller",
		Version:      versioninfo.Short(),
		Name:         fmt.Sprintf("Pool %s", md5HashShort(serial)),
	}
}

func IdDevice(device Device) Device {
	return Device{
		Id:   device.Id,
		Name: device.Name,
	}
}

func BridgeSensors(bridgeDevice Device) []GenericSensor {

	var sensors []GenericSensor

	// Bridge connection state
	sensors = append(sensors, GenericSensor{
		Device:         bridgeDevice,
		Id:             SENSOR_ID_BRIDGE_STATE,
		SensorType:     SENSOR_TYPE_BINARY,
		Name:           "Connection state",
		DeviceClass:    DEVICE_CLASS_CONNECTIVITY,
		EntityCategory: ENTITY_CLASS_DIAGNOSTIC,
		UniqueId:       uniqueId(bridgeDevice.Id, SENSOR_ID_BRIDGE_STATE),
	})

	return sensors
}

// PoolSensors builds the sensor set for one pool device. Optional probes that
// are not installed on the board are left out so they never show up in Home
// Assistant as permanently unavailable entities.
func PoolSensors(poolDevice Device, hasPH, hasChlorine, hasTurbidity, hasCurrent bool) []GenericSensor {

	var sensors []GenericSensor

	if hasPH {
		sensors = append(sensors, GenericSensor{
			Device:     poolDevice,
			Id:         SENSOR_ID_POOL_PH,
			SensorType: SENSOR_TYPE_SENSOR,
			Name:       "Pool pH",
			StateClass: STATE_CLASS_MEASUREMENT,
			Icon:       "mdi:ph",
			UniqueId:   uniqueId(poolDevice.Id, SENSOR_ID_POOL_PH),
		})
	}

	// Water temperature
	sensors = append(sensors, GenericSensor{
		Device:            poolDevice,
		Id:                SENSOR_ID_POOL_TEMPERATURE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Water temperature",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_TEMPERATURE,
		UnitOfMeasurement: "°C",
		UniqueId:          uniqueId(poolDevice.Id, SENSOR_ID_POOL_TEMPERATURE),
	})

	// Filter pressure
	sensors = append(sensors, GenericSensor{
		Device:            poolDevice,
		Id:                SENSOR_ID_POOL_PRESSURE,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Filter pressure",
		StateClass:        STATE_CLASS_MEASUREMENT,
		DeviceClass:       DEVICE_CLASS_PRESSURE,
		UnitOfMeasurement: "bar",
		UniqueId:          uniqueId(poolDevice.Id, SENSOR_ID_POOL_PRESSURE),
	})

	if hasCurrent {
		sensors = append(sensors, GenericSensor{
			Device:            poolDevice,
			Id:                SENSOR_ID_POOL_CURRENT,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              "Pump current",
			StateClass:        STATE_CLASS_MEASUREMENT,
			DeviceClass:       DEVICE_CLASS_CURRENT,
			UnitOfMeasurement: "A",
			UniqueId:          uniqueId(poolDevice.Id, SENSOR_ID_POOL_CURRENT),
		})
	}

	// Water level
	sensors = append(sensors, GenericSensor{
		Device:            poolDevice,
		Id:                SENSOR_ID_POOL_WATER_LEVEL,
		SensorType:        SENSOR_TYPE_SENSOR,
		Name:              "Water level",
		StateClass:        STATE_CLASS_MEASUREMENT,
		UnitOfMeasurement: "%",
		Icon:              "mdi:waves-arrow-up",
		UniqueId:          uniqueId(poolDevice.Id, SENSOR_ID_POOL_WATER_LEVEL),
	})

	if hasChlorine {
		sensors = append(sensors, GenericSensor{
			Device:            poolDevice,
			Id:                SENSOR_ID_POOL_CHLORINE,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              "Chlorine level",
			StateClass:        STATE_CLASS_MEASUREMENT,
			UnitOfMeasurement: "ppm",
			Icon:              "mdi:test-tube",
			UniqueId:          uniqueId(poolDevice.Id, SENSOR_ID_POOL_CHLORINE),
		})
	}

	if hasTurbidity {
		sensors = append(sensors, GenericSensor{
			Device:            poolDevice,
			Id:                SENSOR_ID_POOL_TURBIDITY,
			SensorType:        SENSOR_TYPE_SENSOR,
			Name:              "Turbidity",
			StateClass:        STATE_CLASS_MEASUREMENT,
			UnitOfMeasurement: "NTU",
			Icon:              "mdi:blur",
			UniqueId:          uniqueId(poolDevice.Id, SENSOR_ID_POOL_TURBIDITY),
		})
	}

	// Motion
	sensors = append(sensors, GenericSensor{
		Device:      poolDevice,
		Id:          SENSOR_ID_POOL_MOTION,
		SensorType:  SENSOR_TYPE_BINARY,
		Name:        "Pool motion",
		DeviceClass: DEVICE_CLASS_MOTION,
		UniqueId:    uniqueId(poolDevice.Id, SENSOR_ID_POOL_MOTION),
	})

	// Weather forecast
	sensors = append(sensors, GenericSensor{
		Device:     poolDevice,
		Id:         SENSOR_ID_WEATHER_FORECAST,
		SensorType: SENSOR_TYPE_SENSOR,
		Name:       "Weather forecast",
		Icon:       "mdi:weather-partly-cloudy",
		UniqueId:   uniqueId(poolDevice.Id, SENSOR_ID_WEATHER_FORECAST),
	})

	return sensors
}

// ActuatorSwitches exposes one switch per driven actuator plus the cleaning
// mode toggle.
func ActuatorSwitches(poolDevice Device, actuators []Actuator) []GenericSwitch {

	var switches []GenericSwitch

	for _, a := range actuators {
		switches = append(switches, GenericSwitch{
			Device:   poolDevice,
			Id:       string(a),
			Name:     actuatorName(a),
			UniqueId: uniqueId(poolDevice.Id, string(a)),
			Icon:     actuatorIcon(a),
		})
	}

	// Cleaning mode
	switches = append(switches, GenericSwitch{
		Device:   poolDevice,
		Id:       SWITCH_ID_CLEANING_MODE,
		Name:     "Cleaning mode",
		UniqueId: uniqueId(poolDevice.Id, SWITCH_ID_CLEANING_MODE),
		Icon:     "mdi:broom",
	})

	return switches
}

func actuatorName(a Actuator) string {
	switch a {
	case ActuatorChlorinePump:
		return "Chlorine pump"
	case ActuatorPoolFilter:
		return "Pool filter"
	case ActuatorPoolVacuum:
		return "Pool vacuum"
	case ActuatorWaterFillPump:
		return "Water fill pump"
	case ActuatorWaterDrainPump:
		return "Water drain pump"
	case ActuatorPoolHeater:
		return "Pool heater"
	case ActuatorPoolCover:
		return "Pool cover"
	case ActuatorLEDLights:
		return "LED lights"
	case ActuatorFilterMotor:
		return "Filter motor"
	}
	return string(a)
}

func actuatorIcon(a Actuator) string {
	switch a {
	case ActuatorChlorinePump:
		return "mdi:water-pump"
	case ActuatorPoolFilter, ActuatorFilterMotor:
		return "mdi:air-filter"
	case ActuatorPoolVacuum:
		return "mdi:robot-vacuum"
	case ActuatorWaterFillPump:
		return "mdi:water-plus"
	case ActuatorWaterDrainPump:
		return "mdi:water-minus"
	case ActuatorPoolHeater:
		return "mdi:radiator"
	case ActuatorPoolCover:
		return "mdi:window-shutter"
	case ActuatorLEDLights:
		return "mdi:led-strip"
	}
	return "mdi:toggle-switch"
}

func uniqueId(baseId, id string) string {
	return fmt.Sprintf("uid_%s_%s", baseId, id)
}

func md5Hash(text string) string {
	hash := md5.Sum([]byte(text))
	return hex.EncodeToString(hash[:])
}

func md5HashShort(text string) string {
	hash := md5Hash(text)
	return hash[0:8]
}
