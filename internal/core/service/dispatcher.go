package service

import (
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/port"

	"go.uber.org/zap"
)

// ActuatorDispatcher applies action lists to an actuator bank. Actions are
// applied strictly in order so a later entry for the same actuator wins.
// Actuators outside the bank's registry are ignored silently, a write error is
// logged and the remaining actions still run, and repeating the last command
// for an actuator is a no-op.
type ActuatorDispatcher struct {
	bank     port.ActuatorBank
	registry map[domain.Actuator]struct{}
	last     map[domain.Actuator]bool
	logger   *zap.Logger
}

func NewActuatorDispatcher(bank port.ActuatorBank, logger *zap.Logger) *ActuatorDispatcher {
	registry := make(map[domain.Actuator]struct{})
	for _, a := range bank.Registry() {
		registry[a] = struct{}{}
	}
	return &ActuatorDispatcher{
		bank:     bank,
		registry: registry,
		last:     make(map[domain.Actuator]bool),
		logger:   logger.With(zap.String("service", "dispatcher")),
	}
}

// Apply writes every action in order and returns the applied and failed
// subsets. Unknown actuators land in neither.
func (d *ActuatorDispatcher) Apply(actions []domain.Action) (applied []domain.Action, failed []domain.Action) {
	for _, action := range actions {
		if _, ok := d.registry[action.Actuator]; !ok {
			d.logger.Debug("ignoring unknown actuator", zap.String("actuator", string(action.Actuator)))
			continue
		}
		if last, ok := d.last[action.Actuator]; ok && last == action.Command {
			// relay already in the requested state
			applied = append(applied, action)
			continue
		}
		if err := d.bank.Write(action.Actuator, action.Command); err != nil {
			d.logger.Error("actuator write failed",
				zap.String("actuator", string(action.Actuator)),
				zap.Bool("command", action.Command),
				zap.Error(err))
			failed = append(failed, action)
			continue
		}
		d.last[action.Actuator] = action.Command
		applied = append(applied, action)
	}
	return applied, failed
}

// AllOff drives every registered actuator to OFF, bypassing the idempotency
// cache so the hardware is really written. Used on shutdown.
func (d *ActuatorDispatcher) AllOff() error {
	var firstErr error
	for _, a := range d.bank.Registry() {
		if err := d.bank.Write(a, false); err != nil {
			d.logger.Error("actuator off failed", zap.String("actuator", string(a)), zap.Error(err))
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		d.last[a] = false
	}
	return firstErr
}

// State reports the last commanded value for an actuator.
func (d *ActuatorDispatcher) State(a domain.Actuator) (on bool, known bool) {
	on, known = d.last[a]
	return on, known
}
