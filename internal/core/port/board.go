package port

import (
	"context"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
)

// SensorBoard reads one snapshot of every installed pool probe. How the values
// are obtained (Modbus, GPIO, I2C) is an adapter concern; the core only sees
// the normalized snapshot.
type SensorBoard interface {
	Open() error
	Close() error
	ReadSnapshot() (*domain.SensorSnapshot, error)
}

// ActuatorBank writes boolean commands to the relays of registered actuators.
type ActuatorBank interface {
	Open() error
	Close() error
	// Registry returns the actuators this bank can drive, in a stable order.
	Registry() []domain.Actuator
	Write(actuator domain.Actuator, on bool) error
}

// RuleEngine maps a snapshot and pool thresholds to an ordered action list.
// Implementations must be pure: identical inputs produce list-equal output.
type RuleEngine interface {
	Evaluate(snapshot domain.SensorSnapshot, cfg domain.PoolConfig, currentHour int) []domain.Action
}

// TickRecorder persists one control-loop tick.
type TickRecorder interface {
	Record(rec domain.TickRecord) error
}

// CloudGateway is the authenticated connection to the coordination server.
type CloudGateway interface {
	// Send uploads a snapshot and returns the server-supplied action list.
	// A nil error with an empty list is a valid outcome. Both-endpoints-down
	// surfaces as an error; the caller skips the remote part of the tick.
	Send(ctx context.Context, snapshot domain.SensorSnapshot) ([]domain.Action, error)
	FetchSettings(ctx context.Context) (*domain.DeviceSettings, error)
	Notify(ctx context.Context, message, level string) error
	SyncLedger(ctx context.Context, blocks []domain.LedgerBlock) error
}
