package events

import (
	. "github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
)

// SnapshotToUpdateEvents converts one tick snapshot into MQTT sensor update
// events. Missing optional probes produce no event at all, which keeps their
// last published value on the broker.
func SnapshotToUpdateEvents(snapshot SensorSnapshot) []any {
	var events []any

	if snapshot.PH != nil {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_POOL_PH,
			},
			Value:    *snapshot.PH,
			Decimals: 2,
		})
	}
	// Water temperature
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_POOL_TEMPERATURE,
		},
		Value:    snapshot.Temperature,
		Decimals: 1,
	})
	// Filter pressure
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_POOL_PRESSURE,
		},
		Value:    snapshot.Pressure,
		Decimals: 2,
	})
	if snapshot.Current != nil {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_POOL_CURRENT,
			},
			Value:    *snapshot.Current,
			Decimals: 2,
		})
	}
	// Water level
	events = append(events, FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_POOL_WATER_LEVEL,
		},
		Value:    snapshot.WaterLevel,
		Decimals: 1,
	})
	if snapshot.ChlorineLevel != nil {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_POOL_CHLORINE,
			},
			Value:    *snapshot.ChlorineLevel,
			Decimals: 2,
		})
	}
	if snapshot.Turbidity != nil {
		events = append(events, FloatSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_POOL_TURBIDITY,
			},
			Value:    *snapshot.Turbidity,
			Decimals: 1,
		})
	}
	// Motion
	events = append(events, BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SENSOR_ID_POOL_MOTION,
		},
		Value: snapshot.Motion,
	})
	if snapshot.WeatherForecast != "" {
		events = append(events, TextSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: SENSOR_ID_WEATHER_FORECAST,
			},
			Value: string(snapshot.WeatherForecast),
		})
	}

	return events
}

// AppliedActionsToUpdateEvents reflects applied actuator commands on their
// MQTT switches. A later entry for the same actuator overwrites the earlier
// one, matching dispatcher order.
func AppliedActionsToUpdateEvents(applied []Action) []any {
	state := make(map[Actuator]bool)
	var order []Actuator
	for _, a := range applied {
		if _, seen := state[a.Actuator]; !seen {
			order = append(order, a.Actuator)
		}
		state[a.Actuator] = a.Command
	}

	var events []any
	for _, actuator := range order {
		events = append(events, SwitchSensorUpdateEvent{
			SensorUpdateEventMixIn: SensorUpdateEventMixIn{
				Id: string(actuator),
			},
			Value: state[actuator],
		})
	}
	return events
}

// CleaningModeToUpdateEvent reflects the cleaning mode toggle.
func CleaningModeToUpdateEvent(enabled bool) any {
	return SwitchSensorUpdateEvent{
		SensorUpdateEventMixIn: SensorUpdateEventMixIn{
			Id: SWITCH_ID_CLEANING_MODE,
		},
		Value: enabled,
	}
}
