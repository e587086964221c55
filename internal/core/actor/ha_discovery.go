package actor

import (
	"errors"
	"fmt"
	"time"

	"github.com/notanaas/aqua-guard-raspi-client/internal/config"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/events"
	"github.com/notanaas/aqua-guard-raspi-client/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

// HADiscoveryActor publishes the Home Assistant discovery config once both the
// hardware and MQTT actors report healthy. Sensors for probes that are not
// installed on this board are never announced.
type HADiscoveryActor struct {
	config               *config.Config
	behavior             actor.Behavior
	stash                *actorutil.Stash
	hardwareActor        *actor.PID
	mqttActor            *actor.PID
	hardwareActorHealthy bool
	mqttActorHealthy     bool
	healthyRecv          int

	logger *zap.Logger
}

func NewHADiscoveryActor(config *config.Config, hardwareActor *actor.PID, mqttActor *actor.PID, logger *zap.Logger) *HADiscoveryActor {
	act := &HADiscoveryActor{
		config:        config,
		hardwareActor: hardwareActor,
		mqttActor:     mqttActor,
		behavior:      actor.NewBehavior(),
		stash:         &actorutil.Stash{},
		logger:        actorutil.ActorLogger(domain.ACTOR_ID_HA_DISCOVERY, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HADiscoveryActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HADiscoveryActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hadiscovery@starting started")

		// Check Hardware and MQTT actor healthy
		state.healthyRecv = 0
		state.hardwareActorHealthy = false
		state.mqttActorHealthy = false
		// Hardware Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.hardwareActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_HARDWARE,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		actorutil.PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 2*time.Second), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		state.behavior.Become(state.WaitingHealthyReceive)
	case *actor.Restarting:
	default:
		state.logger.Debug("hadiscovery@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) WaitingHealthyReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthResponse:
		state.logger.Debug("hadiscovery@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.healthyRecv++
		if msg.Healthy {
			switch msg.Id {
			case domain.ACTOR_ID_HARDWARE:
				state.hardwareActorHealthy = true
			case domain.ACTOR_ID_MQTT:
				state.mqttActorHealthy = true
			}
		}
		if state.healthyRecv == 2 {

			if state.hardwareActorHealthy && state.mqttActorHealthy {
				state.publishDiscovery(ctx)
				state.behavior.Become(state.Done)
				state.stash.UnstashAll(ctx)
			} else {
				panic(errors.New("MQTT Actor or Hardware Actor are not healthy"))
			}
		}
	default:
		state.logger.Debug("hadiscovery@healthcheck: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HADiscoveryActor) Done(ctx actor.Context) {

}

func (state *HADiscoveryActor) publishDiscovery(ctx actor.Context) {
	var sensors []domain.GenericSensor
	var switches []domain.GenericSwitch

	bridgeDevice := events.BridgeDevice(state.config.MQTT.BaseTopic)
	sensors = append(sensors, events.BridgeSensors(bridgeDevice)...)

	poolDevice := events.PoolDevice(state.config.Device.Serial)
	poolDevice.ViaDevice = bridgeDevice.Id
	poolSensors := events.PoolSensors(poolDevice,
		state.config.Board.HasPHProbe,
		state.config.Board.HasChlorineProbe,
		state.config.Board.HasTurbidityProbe,
		state.config.Board.HasCurrentSensor)
	for i := range poolSensors {
		if i > 0 {
			poolSensors[i].Device = events.IdDevice(poolDevice)
		}
		sensors = append(sensors, poolSensors[i])
	}

	switches = append(switches, events.ActuatorSwitches(events.IdDevice(poolDevice), state.wiredActuators())...)

	ctx.Send(state.mqttActor, domain.PublishDiscoveryRequest{
		Sensors:  sensors,
		Switches: switches,
	})
}

// wiredActuators returns the actuators with a configured relay, in canonical
// order. Only those get an MQTT switch.
func (state *HADiscoveryActor) wiredActuators() []domain.Actuator {
	var out []domain.Actuator
	for _, a := range domain.Actuators() {
		if _, ok := state.config.Board.Relays[string(a)]; ok {
			out = append(out, a)
		}
	}
	return out
}
