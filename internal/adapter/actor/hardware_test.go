package actor

import (
	"testing"
	"time"

	"github.com/notanaas/aqua-guard-raspi-client/internal/adapter/board"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/util/actorutil"
	"github.com/notanaas/aqua-guard-raspi-client/pkg/poolmodbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func newTestHardware(t *testing.T) (*poolmodbus.TestPoolBoardReader, *board.PoolBoard) {
	reader := poolmodbus.CreateTestPoolBoardReader(poolmodbus.ProbeConfig{
		HasPH:       true,
		HasChlorine: true,
	})
	b, err := board.NewPoolBoard(reader, map[string]uint{
		string(domain.ActuatorChlorinePump): 0,
		string(domain.ActuatorPoolFilter):   1,
		string(domain.ActuatorPoolHeater):   2,
	})
	if err != nil {
		t.Fatal(err)
	}
	return reader, b
}

func TestReadSnapshotHardwareActor(t *testing.T) {

	assert := assert.New(t)

	reader, b := newTestHardware(t)
	_ = reader

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewHardwareActor(b, logger) })
	pid := context.Spawn(props)

	time.Sleep(100 * time.Millisecond)

	result, err := context.RequestFuture(pid, domain.ReadSnapshotRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.ReadSnapshotResponse)

	assert.False(resp.HasResponseError(), "no response error")
	assert.Equal(7.25, *resp.Snapshot.PH, "pH value")
	assert.Equal(26.5, resp.Snapshot.Temperature, "temperature value")

	context.Stop(pid)
	as.Shutdown()
}

func TestDispatchActionsHardwareActor(t *testing.T) {

	assert := assert.New(t)

	reader, b := newTestHardware(t)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewHardwareActor(b, logger) })
	pid := context.Spawn(props)

	time.Sleep(100 * time.Millisecond)

	msg := domain.DispatchActionsRequest{
		Actions: []domain.Action{
			{Actuator: domain.ActuatorChlorinePump, Command: true},
			{Actuator: domain.ActuatorPoolCover, Command: true}, // no relay, ignored
			{Actuator: domain.ActuatorPoolHeater, Command: true},
		},
	}
	result, err := context.RequestFuture(pid, msg, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.DispatchActionsResponse)

	assert.Len(resp.Applied, 2, "applied actions")
	assert.Empty(resp.Failed, "failed actions")

	on, _ := reader.RelayState(0)
	assert.True(on, "chlorine pump relay")
	on, _ = reader.RelayState(2)
	assert.True(on, "heater relay")
	_, known := reader.RelayState(3)
	assert.False(known, "cover has no relay")

	context.Stop(pid)
	as.Shutdown()
}

func TestAllActuatorsOffHardwareActor(t *testing.T) {

	assert := assert.New(t)

	reader, b := newTestHardware(t)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewHardwareActor(b, logger) })
	pid := context.Spawn(props)

	time.Sleep(100 * time.Millisecond)

	_, err := context.RequestFuture(pid, domain.DispatchActionsRequest{
		Actions: []domain.Action{
			{Actuator: domain.ActuatorChlorinePump, Command: true},
			{Actuator: domain.ActuatorPoolFilter, Command: true},
		},
	}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}

	result, err := context.RequestFuture(pid, domain.AllActuatorsOffRequest{}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp := result.(domain.AllActuatorsOffResponse)
	assert.False(resp.HasResponseError(), "no response error")

	for _, coil := range []uint16{0, 1, 2} {
		on, known := reader.RelayState(coil)
		assert.True(known, "coil written")
		assert.False(on, "coil off")
	}

	context.Stop(pid)
	as.Shutdown()
}

func TestHardwareActorStopDrivesActuatorsOff(t *testing.T) {

	assert := assert.New(t)

	reader, b := newTestHardware(t)

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)
	context := as.Root

	props := actor.PropsFromProducer(func() actor.Actor { return NewHardwareActor(b, logger) })
	pid := context.Spawn(props)

	time.Sleep(100 * time.Millisecond)

	_, err := context.RequestFuture(pid, domain.DispatchActionsRequest{
		Actions: []domain.Action{
			{Actuator: domain.ActuatorPoolHeater, Command: true},
		},
	}, 5*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}

	context.StopFuture(pid).Wait()

	on, known := reader.RelayState(2)
	assert.True(known, "heater coil written")
	assert.False(on, "heater off after stop")

	as.Shutdown()
}
