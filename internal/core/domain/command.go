package domain

import "fmt"

// ControlCommand is a manual override parsed from an MQTT command topic and
// routed to the control loop.

type ControlCommand interface {
	ActorRequest
	ControlCommand() string
}

type ControlCommandMixIn struct {
	ActorRequestMixIn
}

func (r ControlCommandMixIn) ControlCommand() string {
	return fmt.Sprintf("%T", r)
}

// ManualActuatorRequest forces a single actuator on or off, bypassing the rule
// engine for this write only. The next tick may override it.
type ManualActuatorRequest struct {
	ControlCommandMixIn
	Actuator Actuator
	On       bool
}

// SetCleaningModeRequest toggles the poolBeingCleaned flag that feeds the LED
// rule on subsequent ticks.
type SetCleaningModeRequest struct {
	ControlCommandMixIn
	Enable bool
}

// ensure interface compliance
var _ ControlCommand = (*ManualActuatorRequest)(nil)
var _ ControlCommand = (*SetCleaningModeRequest)(nil)
