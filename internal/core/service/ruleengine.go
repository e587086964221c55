package service

import (
	"fmt"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/port"
)

const (
	phMin = 7.2
	phMax = 7.8

	chlorineMinPPM = 1
	chlorineMaxPPM = 3

	turbidityMaxNTU = 50

	// heater hysteresis: ON below desired, OFF above desired+2, nothing between
	heaterHysteresisBand = 2

	coverColdTemperature = 15

	nightStartHour = 18
	nightEndHour   = 6
)

// DefaultRuleEngine evaluates the fixed pool rule set. It is pure: no I/O, no
// clock access (the current hour is an explicit input) and no state between
// calls. Rules never observe each other's output; conflicting chlorinePump
// commands from rules 1 and 2 are both emitted and resolved by the
// dispatcher's in-order apply.
type DefaultRuleEngine struct{}

func NewDefaultRuleEngine() *DefaultRuleEngine {
	return &DefaultRuleEngine{}
}

func (e *DefaultRuleEngine) Evaluate(snapshot domain.SensorSnapshot, cfg domain.PoolConfig, currentHour int) []domain.Action {
	var actions []domain.Action

	// Rule 1: pH band 7.2-7.8. A missing pH reading fails both comparisons
	// and fires neither branch.
	if snapshot.PH != nil {
		switch {
		case *snapshot.PH < phMin:
			actions = append(actions, domain.Action{
				Actuator: domain.ActuatorChlorinePump,
				Command:  true,
				Message:  fmt.Sprintf("pH is low (Current: %g), activating chlorine pump to increase pH.", *snapshot.PH),
			})
		case *snapshot.PH > phMax:
			actions = append(actions, domain.Action{
				Actuator: domain.ActuatorChlorinePump,
				Command:  false,
				Message:  fmt.Sprintf("pH is high (Current: %g), deactivating chlorine pump to lower pH.", *snapshot.PH),
			})
		}
	}

	// Rule 2: chlorine band 1-3 ppm. May conflict with rule 1 on the same
	// actuator; both entries stay in the list.
	if snapshot.ChlorineLevel != nil {
		switch {
		case *snapshot.ChlorineLevel < chlorineMinPPM:
			actions = append(actions, domain.Action{
				Actuator: domain.ActuatorChlorinePump,
				Command:  true,
				Message:  fmt.Sprintf("Chlorine level is low (Current: %g ppm), activating chlorine pump.", *snapshot.ChlorineLevel),
			})
		case *snapshot.ChlorineLevel > chlorineMaxPPM:
			actions = append(actions, domain.Action{
				Actuator: domain.ActuatorChlorinePump,
				Command:  false,
				Message:  fmt.Sprintf("Chlorine level is high (Current: %g ppm), deactivating chlorine pump.", *snapshot.ChlorineLevel),
			})
		}
	}

	// Rule 3: turbidity. Emits filter + vacuum ON together, never an OFF.
	if snapshot.Turbidity != nil && *snapshot.Turbidity > turbidityMaxNTU {
		actions = append(actions, domain.Action{
			Actuator: domain.ActuatorPoolFilter,
			Command:  true,
			Message:  fmt.Sprintf("Water turbidity is high (Current: %g NTU), running pool filter.", *snapshot.Turbidity),
		})
		actions = append(actions, domain.Action{
			Actuator: domain.ActuatorPoolVacuum,
			Command:  true,
			Message:  fmt.Sprintf("Water turbidity is high (Current: %g NTU), activating pool vacuum.", *snapshot.Turbidity),
		})
	}

	// Rule 4: water level. Branches are mutually exclusive by construction.
	switch {
	case snapshot.WaterLevel < cfg.MinWaterLevel:
		actions = append(actions, domain.Action{
			Actuator: domain.ActuatorWaterFillPump,
			Command:  true,
			Message:  fmt.Sprintf("Water level is low (Current: %g), activating water fill pump.", snapshot.WaterLevel),
		})
	case snapshot.WaterLevel > cfg.MaxWaterLevel:
		actions = append(actions, domain.Action{
			Actuator: domain.ActuatorWaterDrainPump,
			Command:  true,
			Message:  fmt.Sprintf("Water level is high (Current: %g), activating water drainage pump.", snapshot.WaterLevel),
		})
	}

	// Rule 5: heater with hysteresis band [desired, desired+2].
	switch {
	case snapshot.Temperature < cfg.DesiredTemperature:
		actions = append(actions, domain.Action{
			Actuator: domain.ActuatorPoolHeater,
			Command:  true,
			Message:  fmt.Sprintf("Water temperature is low (Current: %g), activating pool heater.", snapshot.Temperature),
		})
	case snapshot.Temperature > cfg.DesiredTemperature+heaterHysteresisBand:
		actions = append(actions, domain.Action{
			Actuator: domain.ActuatorPoolHeater,
			Command:  false,
			Message:  fmt.Sprintf("Water temperature is high (Current: %g), deactivating pool heater.", snapshot.Temperature),
		})
	}

	// Rule 6: pool cover. The only rule that always emits exactly one action.
	night := isNight(currentHour)
	if night || snapshot.WeatherForecast == domain.WeatherRainy || snapshot.Temperature < coverColdTemperature {
		actions = append(actions, domain.Action{
			Actuator: domain.ActuatorPoolCover,
			Command:  true,
			Message:  "Pool cover activated due to night time or weather conditions.",
		})
	} else {
		actions = append(actions, domain.Action{
			Actuator: domain.ActuatorPoolCover,
			Command:  false,
			Message:  "Pool cover deactivated, conditions are favorable.",
		})
	}

	// Rule 7: LED lights. Asymmetric with rule 6: no explicit OFF.
	if night || snapshot.PoolBeingCleaned {
		actions = append(actions, domain.Action{
			Actuator: domain.ActuatorLEDLights,
			Command:  true,
			Message:  "It's night time or the pool is being cleaned, activating LED lights.",
		})
	}

	return actions
}

// isNight classifies hour>=18 or hour<=6, bounds inclusive.
func isNight(hour int) bool {
	return hour >= nightStartHour || hour <= nightEndHour
}

// ensure interface compliance
var _ port.RuleEngine = (*DefaultRuleEngine)(nil)
