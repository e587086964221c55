package actor

import (
	"errors"
	"fmt"
	"log"
	"time"

	adactor "github.com/notanaas/aqua-guard-raspi-client/internal/adapter/actor"
	"github.com/notanaas/aqua-guard-raspi-client/internal/config"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/port"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/service"
	. "github.com/notanaas/aqua-guard-raspi-client/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"go.uber.org/zap"
)

type MQTTActorProvider func(*eventstream.EventStream) *adactor.MQTTActor

type HardwareActorProvider func() *adactor.HardwareActor

// MasterOfPuppetsActor supervises the whole actor tree: the hardware actor
// (pool board I/O), the MQTT actor, the control loop and the optional HA
// discovery actor. It also fans health checks out to its children and routes
// parsed MQTT commands to the control loop.
type MasterOfPuppetsActor struct {
	config   config.Config
	behavior actor.Behavior
	stash    *Stash

	currentHealthCheck healthCheckResult
	eventStream        *eventstream.EventStream
	hardwareActor      *actor.PID
	mqttActor          *actor.PID
	controlLoopActor   *actor.PID

	hardwareActorProvider HardwareActorProvider
	mqttActorProvider     MQTTActorProvider
	gateway               port.CloudGateway
	recorder              port.TickRecorder
	ledger                *service.AuditLedger

	logger *zap.Logger
}

type healthCheckResult struct {
	hardwareActorHealthy    bool
	mqttActorHealthy        bool
	controlLoopActorHealthy bool
	checksReceived          int
	respondTo               *actor.PID
}

func NewMasterOfPuppetsActor(config config.Config, hardwareActorProvider HardwareActorProvider,
	mqttActorProvider MQTTActorProvider, gateway port.CloudGateway, recorder port.TickRecorder,
	ledger *service.AuditLedger, logger *zap.Logger) *MasterOfPuppetsActor {
	act := &MasterOfPuppetsActor{
		config:                config,
		behavior:              actor.NewBehavior(),
		stash:                 &Stash{},
		logger:                ActorLogger(domain.ACTOR_ID_MASTER, logger),
		eventStream:           &eventstream.EventStream{},
		hardwareActorProvider: hardwareActorProvider,
		mqttActorProvider:     mqttActorProvider,
		gateway:               gateway,
		recorder:              recorder,
		ledger:                ledger,
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *MasterOfPuppetsActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *MasterOfPuppetsActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("master@starting started")

		state.currentHealthCheck = healthCheckResult{}
		state.currentHealthCheck.reset()

		hardwareActorPID, err := state.startHardwareActor(ctx)
		if err != nil {
			panic(err)
		}
		state.hardwareActor = hardwareActorPID

		mqttActorPID, err := state.startMQTTActor(ctx)
		if err != nil {
			panic(err)
		}
		state.mqttActor = mqttActorPID

		controlLoopActorPID, err := state.startControlLoopActor(ctx)
		if err != nil {
			panic(err)
		}
		state.controlLoopActor = controlLoopActorPID

		if state.config.MQTT.HADiscoveryEnable {
			_, err := state.startHADiscoveryActor(ctx)
			if err != nil {
				panic(err)
			}
		}

		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	default:
		state.logger.Debug("master@starting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("master@default ActorHealthRequest")
		state.currentHealthCheck.reset()
		state.currentHealthCheck.respondTo = ctx.Sender()
		// Hardware Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.hardwareActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_HARDWARE,
				Healthy: false,
			}
		})
		// MQTT Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.mqttActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_MQTT,
				Healthy: false,
			}
		})
		// ControlLoop Actor Request
		PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.controlLoopActor, domain.ActorHealthRequest{}, 500*time.Millisecond), func(err error) any {
			return domain.ActorHealthResponse{
				Id:      domain.ACTOR_ID_CONTROL_LOOP,
				Healthy: false,
			}
		})

		ctx.SetReceiveTimeout(1 * time.Second)

		state.behavior.BecomeStacked(state.HealthCheckReceive)
	case adactor.ParsedCommand:
		// redirect parsed MQTT command to the control loop
		state.logger.Debug("master@default parsedCommand", zap.Any("command", msg.Command))
		if msg.Command != nil {
			cmd, err := ParsedMQTTCommandToCommand(*msg.Command)
			if err == nil && cmd != nil {
				switch pcmd := cmd.(type) {
				case domain.ControlCommand:
					ctx.Send(state.controlLoopActor, pcmd)
				}
			}
		}
	case *actor.Terminated:
		// a hardware actor that gives up takes the whole tree down: a
		// controller that cannot reach the board must not pretend to run
		if msg.Who.Id == fmt.Sprintf("%s/%s", domain.ACTOR_ID_MASTER, domain.ACTOR_ID_HARDWARE) {
			state.logger.Error("master@default hardware terminated")
			panic(errors.New("hardware terminated"))
		}
	default:
		state.logger.Debug("master@default stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) HealthCheckReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.ReceiveTimeout:
		// a child that does not answer counts as unhealthy
		state.currentHealthCheck.respond(ctx)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case domain.ActorHealthResponse:
		state.logger.Debug("master@healthcheck ActorHealthResponse", zap.String("sender", msg.Id), zap.Bool("healthy", msg.Healthy))
		state.currentHealthCheck.checksReceived++
		if msg.Healthy {
			if msg.Id == domain.ACTOR_ID_HARDWARE {
				state.currentHealthCheck.hardwareActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_MQTT {
				state.currentHealthCheck.mqttActorHealthy = true
			} else if msg.Id == domain.ACTOR_ID_CONTROL_LOOP {
				state.currentHealthCheck.controlLoopActorHealthy = true
			}
		}
		if state.currentHealthCheck.allReceived() {

			state.currentHealthCheck.respond(ctx)

			state.behavior.UnbecomeStacked()
			state.stash.UnstashAll(ctx)
		} else {
			ctx.SetReceiveTimeout(1 * time.Second)
		}
	default:
		state.logger.Debug("master@healthcheck stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *MasterOfPuppetsActor) startHardwareActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	hardwareProps := actor.PropsFromProducer(func() actor.Actor {
		return state.hardwareActorProvider()
	}, actor.WithSupervisor(supervisor))
	hardwareActorPID, err := ctx.SpawnNamed(hardwareProps, domain.ACTOR_ID_HARDWARE)
	if err != nil {
		return nil, err
	}

	return hardwareActorPID, nil
}

func (state *MasterOfPuppetsActor) startMQTTActor(ctx actor.Context) (*actor.PID, error) {

	supervisor := actor.NewExponentialBackoffStrategy(10*time.Second, 1*time.Second)

	mqttProps := actor.PropsFromProducer(func() actor.Actor {
		return state.mqttActorProvider(state.eventStream)
	}, actor.WithSupervisor(supervisor))
	mqttActorPID, err := ctx.SpawnNamed(mqttProps, domain.ACTOR_ID_MQTT)
	if err != nil {
		return nil, err
	}

	return mqttActorPID, nil
}

func (state *MasterOfPuppetsActor) startControlLoopActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	controlLoopProps := actor.PropsFromProducer(func() actor.Actor {
		return NewControlLoopActor(&state.config, state.hardwareActor, state.eventStream,
			service.NewDefaultRuleEngine(), state.gateway, state.recorder, state.ledger, state.logger)
	}, actor.WithSupervisor(supervisor))
	controlLoopActorPID, err := ctx.SpawnNamed(controlLoopProps, domain.ACTOR_ID_CONTROL_LOOP)
	if err != nil {
		return nil, err
	}

	return controlLoopActorPID, nil
}

func (state *MasterOfPuppetsActor) startHADiscoveryActor(ctx actor.Context) (*actor.PID, error) {

	decider := func(reason interface{}) actor.Directive {
		log.Printf("handling failure for child. reason: %v", reason)
		return actor.RestartDirective
	}
	supervisor := actor.NewOneForOneStrategy(1, 10*time.Second, decider)

	haDiscProps := actor.PropsFromProducer(func() actor.Actor {
		return NewHADiscoveryActor(&state.config, state.hardwareActor, state.mqttActor, state.logger)
	}, actor.WithSupervisor(supervisor))
	haDiscPID, err := ctx.SpawnNamed(haDiscProps, domain.ACTOR_ID_HA_DISCOVERY)
	if err != nil {
		return nil, err
	}

	return haDiscPID, nil
}

func (state *healthCheckResult) reset() {
	state.hardwareActorHealthy = false
	state.mqttActorHealthy = false
	state.controlLoopActorHealthy = false
	state.checksReceived = 0
}

func (state *healthCheckResult) allReceived() bool {
	return state.checksReceived == 3
}

func (state *healthCheckResult) allHealthy() bool {
	return state.hardwareActorHealthy && state.mqttActorHealthy && state.controlLoopActorHealthy
}

func (state *healthCheckResult) respond(ctx actor.Context) {
	resp := domain.ActorHealthResponse{
		Id:      domain.ACTOR_ID_MASTER,
		Healthy: state.allHealthy(),
	}
	if state.respondTo != nil {
		ctx.Send(state.respondTo, resp)
	}
}
