package actor

import (
	"context"
	"fmt"
	"time"

	"github.com/notanaas/aqua-guard-raspi-client/internal/config"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/events"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/port"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/service"
	. "github.com/notanaas/aqua-guard-raspi-client/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/asynkron/protoactor-go/scheduler"
	"go.uber.org/zap"
)

// ControlLoopActor runs the periodic sense-evaluate-act cycle. The actor is a
// two-state machine (idle/ticking): a tick that is still in flight blocks the
// next one, and the next tick is only scheduled once the current one has fully
// finished or aborted. Local rule actions are applied before the cloud
// round-trip so a dead network can never delay a safety response.
type ControlLoopActor struct {
	ActorWithStates
	scheduler     *scheduler.TimerScheduler
	stash         *Stash
	hardwareActor *actor.PID
	config        *config.Config
	eventStream   *eventstream.EventStream
	ruleEngine    port.RuleEngine
	gateway       port.CloudGateway
	recorder      port.TickRecorder
	ledger        *service.AuditLedger

	poolCfg      domain.PoolConfig
	forecast     domain.WeatherForecast
	cleaningMode bool
	nowFn        func() time.Time

	logger *zap.Logger
}

type controlTick struct {
}

type settingsResult struct {
	settings *domain.DeviceSettings
	err      error
}

type remoteSyncResult struct {
	actions []domain.Action
	err     error
}

type asyncOpResult struct {
	err error
}

func NewControlLoopActor(cfg *config.Config, hardwareActor *actor.PID, eventStream *eventstream.EventStream,
	ruleEngine port.RuleEngine, gateway port.CloudGateway, recorder port.TickRecorder,
	ledger *service.AuditLedger, logger *zap.Logger) *ControlLoopActor {
	act := &ControlLoopActor{
		config:        cfg,
		hardwareActor: hardwareActor,
		stash:         &Stash{},
		logger:        ActorLogger(domain.ACTOR_ID_CONTROL_LOOP, logger),
		eventStream:   eventStream,
		ruleEngine:    ruleEngine,
		gateway:       gateway,
		recorder:      recorder,
		ledger:        ledger,
		poolCfg:       cfg.Pool,
		forecast:      domain.WeatherUnknown,
		nowFn:         time.Now,
		ActorWithStates: ActorWithStates{
			Behavior: actor.NewBehavior(),
		},
	}
	act.Become(CLStartingState{
		actor: act,
	})
	return act
}

func (state *ControlLoopActor) Receive(context actor.Context) {
	state.Behavior.Receive(context)
}

func (state *ControlLoopActor) readInterval() time.Duration {
	return time.Duration(state.config.Control.ReadIntervalMillis) * time.Millisecond
}

func (state *ControlLoopActor) requestTimeout() time.Duration {
	return time.Duration(state.config.Control.RequestTimeoutMillis) * time.Millisecond
}

// Starting state

type CLStartingState struct {
	ActorState
	actor *ControlLoopActor
}

func (state CLStartingState) Name() string {
	return "starting"
}

func (state CLStartingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *actor.Started:
		state.actor.logger.Debug("control_loop@starting started")

		state.actor.scheduler = scheduler.NewTimerScheduler(ctx)

		// fetch device settings from the server; local config is the fallback
		gateway := state.actor.gateway
		timeout := state.actor.requestTimeout()
		NewBackgroundTaskNoError(ctx, func() *settingsResult {
			reqCtx, cancel := context.WithTimeout(context.Background(), timeout)
			defer cancel()
			settings, err := gateway.FetchSettings(reqCtx)
			return &settingsResult{settings: settings, err: err}
		}).WithTimeout(timeout + time.Second).Recover(func(err error) settingsResult {
			return settingsResult{err: err}
		}).PipeTo(ctx.Self())

		state.actor.Become(CLWaitingSettingsState{
			actor: state.actor,
		})
	case *actor.Restarting:
	default:
		state.actor.logger.Debug("control_loop@starting: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Waiting settings state

type CLWaitingSettingsState struct {
	ActorState
	actor *ControlLoopActor
}

func (state CLWaitingSettingsState) Name() string {
	return "waitingSettings"
}

func (state CLWaitingSettingsState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case settingsResult:
		if msg.err != nil {
			state.actor.logger.Warn("control_loop@waitingSettings: settings fetch failed, using local config", zap.Error(msg.err))
		} else if msg.settings != nil {
			state.actor.applySettings(*msg.settings)
		}
		state.actor.Become(CLIdleState{
			actor: state.actor,
		}.OnEnter(ctx))
		state.actor.stash.UnstashAll(ctx)
	case *actor.Stopping, *actor.Stopped:
	default:
		state.actor.logger.Debug("control_loop@waitingSettings: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

// Idle state

type CLIdleState struct {
	ActorState
	actor *ControlLoopActor
}

func (state CLIdleState) Name() string {
	return "idle"
}

func (state CLIdleState) OnEnter(ctx actor.Context) CLIdleState {
	// the next tick is armed only from here, so two ticks can never overlap
	state.actor.scheduler.RequestOnce(state.actor.readInterval(), ctx.Self(), controlTick{})
	return state
}

func (state CLIdleState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("control_loop@idle: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CONTROL_LOOP,
			Healthy: true,
			State:   state.Name(),
		})
	case controlTick:
		state.actor.logger.Debug("control_loop@idle: tick")
		state.actor.Become(NewCLTickingState(state.actor).OnEnterAction(ctx))
	case domain.ControlCommand:
		state.actor.handleControlCommand(ctx, msg)
	case domain.DispatchActionsResponse:
		// result of a manual actuator write
		if msg.HasResponseError() {
			state.actor.logger.Error("control_loop@idle: manual dispatch error", zap.Error(msg.GetResponseError()))
		} else {
			state.actor.publishActuatorUpdates(msg.Applied)
		}
	default:
		state.actor.logger.Debug("control_loop@idle: recv", zap.String("type", fmt.Sprintf("%T", msg)))
	}
}

// Ticking state

func NewCLTickingState(fromActor *ControlLoopActor) CLTickingState {
	return CLTickingState{
		actor: fromActor,
		phase: "read",
	}
}

type CLTickingState struct {
	ActorState
	actor    *ControlLoopActor
	phase    string // read, localDispatch, sync, remoteDispatch
	snapshot domain.SensorSnapshot
	applied  []domain.Action
	failed   []domain.Action
}

func (state CLTickingState) Name() string {
	return "ticking"
}

func (state CLTickingState) OnEnterAction(ctx actor.Context) CLTickingState {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.actor.hardwareActor,
		domain.ReadSnapshotRequest{}, state.actor.requestTimeout()),
		func(err error) any {
			return domain.ReadSnapshotResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
	// abort guard: a stuck tick returns to idle instead of freezing the loop
	ctx.SetReceiveTimeout(4 * state.actor.requestTimeout())
	return state
}

func (state CLTickingState) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case domain.ActorHealthRequest:
		state.actor.logger.Debug("control_loop@ticking: ActorHealthRequest")
		ctx.Respond(domain.ActorHealthResponse{
			Id:      domain.ACTOR_ID_CONTROL_LOOP,
			Healthy: true,
			State:   state.Name(),
		})
	case controlTick:
		// a tick is already running, drop this one
		state.actor.logger.Debug("control_loop@ticking: tick skipped, previous still in flight")
	case domain.SetCleaningModeRequest:
		// safe to apply mid-tick, takes effect next evaluation
		state.actor.setCleaningMode(msg.Enable)
	case domain.ReadSnapshotResponse:
		if state.phase != "read" {
			return
		}
		if msg.HasResponseError() || msg.Snapshot == nil {
			state.actor.logger.Error("control_loop@ticking: board read failed, using neutral snapshot", zap.Error(msg.GetResponseError()))
			state.snapshot = domain.ZeroSnapshot()
		} else {
			state.snapshot = *msg.Snapshot
		}
		state.snapshot.WeatherForecast = state.actor.forecast
		state.snapshot.PoolBeingCleaned = state.actor.cleaningMode

		localActions := state.actor.ruleEngine.Evaluate(state.snapshot, state.actor.poolCfg, state.actor.nowFn().Hour())
		state.actor.logger.Debug("control_loop@ticking: rules evaluated", zap.Int("actions", len(localActions)))

		state.phase = "localDispatch"
		state.actor.Become(state)
		state.actor.dispatch(ctx, localActions)
	case domain.DispatchActionsResponse:
		switch state.phase {
		case "localDispatch":
			state.collectDispatch(msg)
			state.phase = "sync"
			state.actor.Become(state)
			state.startRemoteSync(ctx)
		case "remoteDispatch":
			state.collectDispatch(msg)
			state.finish(ctx)
		}
	case remoteSyncResult:
		if state.phase != "sync" {
			return
		}
		if msg.err != nil {
			// offline tick: local actions already applied, just finish
			state.actor.logger.Warn("control_loop@ticking: cloud sync failed", zap.Error(msg.err))
			state.finish(ctx)
			return
		}
		if len(msg.actions) == 0 {
			state.finish(ctx)
			return
		}
		state.actor.logger.Debug("control_loop@ticking: server actions", zap.Int("actions", len(msg.actions)))
		state.phase = "remoteDispatch"
		state.actor.Become(state)
		state.actor.dispatch(ctx, msg.actions)
	case *actor.ReceiveTimeout:
		ctx.SetReceiveTimeout(0)
		state.actor.logger.Error("control_loop@ticking: tick aborted on timeout", zap.String("phase", state.phase))
		state.actor.Become(CLIdleState{
			actor: state.actor,
		}.OnEnter(ctx))
		state.actor.stash.UnstashAll(ctx)
	case *actor.Stopping, *actor.Stopped:
	default:
		state.actor.logger.Debug("control_loop@ticking: stash", zap.String("type", fmt.Sprintf("%T", msg)))
		state.actor.stash.Stash(ctx, msg)
	}
}

func (state *CLTickingState) collectDispatch(msg domain.DispatchActionsResponse) {
	if msg.HasResponseError() {
		state.actor.logger.Error("control_loop@ticking: dispatch error", zap.Error(msg.GetResponseError()))
		return
	}
	state.applied = append(state.applied, msg.Applied...)
	state.failed = append(state.failed, msg.Failed...)
}

func (state CLTickingState) startRemoteSync(ctx actor.Context) {
	gateway := state.actor.gateway
	timeout := state.actor.requestTimeout()
	snapshot := state.snapshot
	NewBackgroundTaskNoError(ctx, func() *remoteSyncResult {
		reqCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		actions, err := gateway.Send(reqCtx, snapshot)
		return &remoteSyncResult{actions: actions, err: err}
	}).WithTimeout(timeout + time.Second).Recover(func(err error) remoteSyncResult {
		return remoteSyncResult{err: err}
	}).PipeTo(ctx.Self())
}

// finish records the tick, feeds the audit ledger, publishes sensor and switch
// updates, reports failed actuators, and returns to idle (arming the next
// tick).
func (state CLTickingState) finish(ctx actor.Context) {
	ctx.SetReceiveTimeout(0)

	record := domain.TickRecord{
		Snapshot: state.snapshot,
		Applied:  state.applied,
	}
	recorder := state.actor.recorder
	logger := state.actor.logger
	NewBackgroundTaskNoError(ctx, func() *asyncOpResult {
		return &asyncOpResult{err: recorder.Record(record)}
	}).OnSuccess(func(r asyncOpResult) {
		if r.err != nil {
			logger.Error("control_loop@ticking: tick record failed", zap.Error(r.err))
		}
	}).Run()

	state.actor.ledger.Append("sensor_data", state.snapshot)
	for _, action := range state.applied {
		state.actor.ledger.Append("actuator_action", action)
	}
	for _, action := range state.failed {
		state.actor.ledger.Append("actuator_failure", action)
	}

	state.actor.publishSnapshotUpdates(state.snapshot)
	state.actor.publishActuatorUpdates(state.applied)
	state.actor.notifyFailures(ctx, state.failed)

	state.actor.Become(CLIdleState{
		actor: state.actor,
	}.OnEnter(ctx))
	state.actor.stash.UnstashAll(ctx)
}

// Other actor function helpers

func (state *ControlLoopActor) applySettings(settings domain.DeviceSettings) {
	if settings.Pool.MaxWaterLevel > settings.Pool.MinWaterLevel {
		state.poolCfg = settings.Pool
	} else {
		state.logger.Warn("control_loop: ignoring invalid pool thresholds from server",
			zap.Float64("min", settings.Pool.MinWaterLevel), zap.Float64("max", settings.Pool.MaxWaterLevel))
	}
	if settings.WeatherForecast != "" {
		state.forecast = settings.WeatherForecast
	}
	state.logger.Info("control_loop: device settings applied",
		zap.Float64("minWaterLevel", state.poolCfg.MinWaterLevel),
		zap.Float64("maxWaterLevel", state.poolCfg.MaxWaterLevel),
		zap.Float64("desiredTemperature", state.poolCfg.DesiredTemperature),
		zap.String("forecast", string(state.forecast)))
}

func (state *ControlLoopActor) handleControlCommand(ctx actor.Context, cmd domain.ControlCommand) {
	switch pcmd := cmd.(type) {
	case domain.ManualActuatorRequest:
		state.logger.Debug("control_loop: manual actuator command",
			zap.String("actuator", string(pcmd.Actuator)), zap.Bool("on", pcmd.On))
		state.dispatch(ctx, []domain.Action{{
			Actuator: pcmd.Actuator,
			Command:  pcmd.On,
			Message:  "Manual override",
		}})
	case domain.SetCleaningModeRequest:
		state.setCleaningMode(pcmd.Enable)
	}
}

func (state *ControlLoopActor) setCleaningMode(enable bool) {
	if state.cleaningMode == enable {
		return
	}
	state.logger.Info("control_loop: cleaning mode", zap.Bool("enabled", enable))
	state.cleaningMode = enable
	state.ledger.Append("cleaning_mode", enable)
	state.eventStream.Publish(events.CleaningModeToUpdateEvent(enable))
}

func (state *ControlLoopActor) dispatch(ctx actor.Context, actions []domain.Action) {
	PipeToSelfWithRecover(ctx, ctx.RequestFuture(state.hardwareActor,
		domain.DispatchActionsRequest{Actions: actions}, state.requestTimeout()),
		func(err error) any {
			return domain.DispatchActionsResponse{
				ActorResponseMixIn: domain.ActorResponseMixIn{
					ResponseError: err,
				},
			}
		})
}

func (state *ControlLoopActor) publishSnapshotUpdates(snapshot domain.SensorSnapshot) {
	for _, ev := range events.SnapshotToUpdateEvents(snapshot) {
		state.eventStream.Publish(ev)
	}
}

func (state *ControlLoopActor) publishActuatorUpdates(applied []domain.Action) {
	for _, ev := range events.AppliedActionsToUpdateEvents(applied) {
		state.eventStream.Publish(ev)
	}
}

func (state *ControlLoopActor) notifyFailures(ctx actor.Context, failed []domain.Action) {
	if len(failed) == 0 {
		return
	}
	gateway := state.gateway
	timeout := state.requestTimeout()
	logger := state.logger
	NewBackgroundTaskNoError(ctx, func() *asyncOpResult {
		reqCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		var firstErr error
		for _, action := range failed {
			message := fmt.Sprintf("Failed to drive actuator %s", action.Actuator)
			if err := gateway.Notify(reqCtx, message, "error"); err != nil && firstErr == nil {
				firstErr = err
			}
		}
		return &asyncOpResult{err: firstErr}
	}).OnSuccess(func(r asyncOpResult) {
		if r.err != nil {
			logger.Warn("control_loop: failure notification not delivered", zap.Error(r.err))
		}
	}).Run()
}
