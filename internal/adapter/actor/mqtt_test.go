package actor

import (
	"testing"
	"time"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/events"
	"github.com/notanaas/aqua-guard-raspi-client/internal/util"
	"github.com/notanaas/aqua-guard-raspi-client/internal/util/actorutil"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMQTTActor(t *testing.T) {

	cfg := util.LoadTestConfig()

	logger := zap.Must(zap.NewDevelopment())

	as := actorutil.NewActorSystemWithZapLogger(logger)

	context := as.Root

	es := eventstream.EventStream{}

	props := actor.PropsFromProducer(func() actor.Actor { return NewTestMQTTActor(&cfg, &es, logger) })
	pid := context.Spawn(props)

	time.Sleep(500 * time.Millisecond)

	msg := domain.ActorHealthRequest{}
	result, err := context.RequestFuture(pid, msg, 2*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	resp, ok := result.(domain.ActorHealthResponse)
	assert.True(t, ok)
	assert.NotNil(t, resp)

	es.Publish(domain.FloatSensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: events.SENSOR_ID_POOL_TEMPERATURE,
		},
		Value:    26.5,
		Decimals: 1,
	})
	es.Publish(domain.BinarySensorUpdateEvent{
		SensorUpdateEventMixIn: domain.SensorUpdateEventMixIn{
			Id: events.SENSOR_ID_POOL_MOTION,
		},
		Value: true,
	})

	time.Sleep(500 * time.Millisecond)

	context.Stop(pid)

	time.Sleep(500 * time.Millisecond)

	as.Shutdown()
}
