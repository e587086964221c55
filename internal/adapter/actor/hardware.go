package actor

import (
	"fmt"
	"time"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/port"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/service"
	"github.com/notanaas/aqua-guard-raspi-client/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"go.uber.org/zap"
)

const (
	HARDWARE_ACTOR_ID = "hardware"
)

// PoolHardware is the full pool board: probes plus actuator relays.
type PoolHardware interface {
	port.SensorBoard
	port.ActuatorBank
}

// HardwareActor owns the pool board. All board I/O runs as a background task
// while the actor stashes incoming messages, so one slow Modbus read never
// blocks the mailbox. On stop, every actuator is driven OFF before the board
// connection closes.
type HardwareActor struct {
	behavior   actor.Behavior
	stash      *actorutil.Stash
	hw         PoolHardware
	dispatcher *service.ActuatorDispatcher
	logger     *zap.Logger
}

type backgroundTaskResult struct {
	message any
	replyTo *actor.PID
}

func NewHardwareActor(hw PoolHardware, logger *zap.Logger) *HardwareActor {
	act := &HardwareActor{
		hw:         hw,
		dispatcher: service.NewActuatorDispatcher(hw, logger),
		behavior:   actor.NewBehavior(),
		stash:      &actorutil.Stash{},
		logger:     actorutil.ActorLogger(HARDWARE_ACTOR_ID, logger),
	}
	act.behavior.Become(act.StartingReceive)
	return act
}

func (state *HardwareActor) Receive(context actor.Context) {
	state.behavior.Receive(context)
}

func (state *HardwareActor) StartingReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.logger.Debug("hardware@starting started")
		if err := state.hw.Open(); err != nil {
			panic(err)
		}
		state.behavior.Become(state.DefaultReceive)
		state.stash.UnstashAll(ctx)
	case *actor.Restarting:
		state.hw.Close()
	default:
		state.logger.Debug("hardware@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

func (state *HardwareActor) DefaultReceive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.logger.Debug("hardware@default: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      HARDWARE_ACTOR_ID,
			Healthy: true,
			State:   "idle",
		})
	case domain.ReadSnapshotRequest:
		state.logger.Debug("hardware@default: ReadSnapshotRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTask(ctx, state.readSnapshot),
			mapTaskResult[domain.ReadSnapshotResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.ReadSnapshotResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(2 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingHardware)
	case domain.DispatchActionsRequest:
		state.logger.Debug("hardware@default: DispatchActionsRequest", zap.Int("actions", len(msg.Actions)))
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actions := msg.Actions
		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.DispatchActionsResponse {
			applied, failed := state.dispatcher.Apply(actions)
			return &domain.DispatchActionsResponse{
				Applied: applied,
				Failed:  failed,
			}
		}),
			mapTaskResult[domain.DispatchActionsResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.DispatchActionsResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(5 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingHardware)
	case domain.AllActuatorsOffRequest:
		state.logger.Debug("hardware@default: AllActuatorsOffRequest")
		sender := actorutil.ForRequest(msg).ReplyTo(ctx)

		actorutil.MapBackgroundTask(actorutil.NewBackgroundTaskNoError(ctx, func() *domain.AllActuatorsOffResponse {
			return &domain.AllActuatorsOffResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: state.dispatcher.AllOff(),
				},
			}
		}),
			mapTaskResult[domain.AllActuatorsOffResponse](sender)).Recover(func(err error) backgroundTaskResult {
			return backgroundTaskResult{
				message: domain.AllActuatorsOffResponse{
					ActorResponseMixIn: domain.ActorResponseMixIn{
						ResponseError: err,
					},
				},
				replyTo: sender,
			}
		}).WithTimeout(5 * time.Second).PipeTo(ctx.Self())
		state.behavior.BecomeStacked(state.WaitingHardware)
	case *actor.Stopping:
		state.shutdown()
	default:
		state.logger.Debug("hardware@default default recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

func (state *HardwareActor) WaitingHardware(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case backgroundTaskResult:
		state.logger.Debug("hardware@waiting backgroundTaskResult", zap.String("type", fmt.Sprintf("%T", msg.message)))
		ctx.Send(msg.replyTo, msg.message)
		state.behavior.UnbecomeStacked()
		state.stash.UnstashAll(ctx)
	case *actor.Stopping:
		state.shutdown()
	default:
		state.logger.Debug("hardware@waiting stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.stash.Stash(ctx, msg)
	}
}

// shutdown drives every actuator OFF before releasing the board. A pool left
// with a running heater or chlorine pump is a safety hazard, so OFF errors are
// only logged and never abort the close.
func (state *HardwareActor) shutdown() {
	if err := state.dispatcher.AllOff(); err != nil {
		state.logger.Error("actuators off on shutdown failed", zap.Error(err))
	}
	state.hw.Close()
}

func (a *HardwareActor) readSnapshot() (*domain.ReadSnapshotResponse, error) {
	snapshot, err := a.hw.ReadSnapshot()
	if err != nil {
		a.logger.Error("board read failed", zap.Error(err))
		return nil, err
	}
	return &domain.ReadSnapshotResponse{
		Snapshot: snapshot,
	}, nil
}

func mapTaskResult[T any](sender *actor.PID) func(t *T) *backgroundTaskResult {
	return func(t *T) *backgroundTaskResult {
		return &backgroundTaskResult{
			message: *t,
			replyTo: sender,
		}
	}
}
