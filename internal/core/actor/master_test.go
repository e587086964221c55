package actor

import (
	"fmt"
	"path/filepath"
	"testing"
	"time"

	adactor "github.com/notanaas/aqua-guard-raspi-client/internal/adapter/actor"
	"github.com/notanaas/aqua-guard-raspi-client/internal/adapter/board"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/service"
	"github.com/notanaas/aqua-guard-raspi-client/internal/recorder"
	"github.com/notanaas/aqua-guard-raspi-client/internal/util"
	"github.com/notanaas/aqua-guard-raspi-client/pkg/poolmodbus"

	"github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestMasterActor(t *testing.T) {

	as := actor.NewActorSystem()
	context := as.Root

	cfg := util.LoadTestConfig()
	cfg.Control.LogFile = filepath.Join(t.TempDir(), "pool_log.csv")
	logCfg := zap.NewDevelopmentConfig()
	logCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)
	logger := zap.Must(logCfg.Build())

	gateway := &fakeGateway{
		settings: domain.DeviceSettings{
			Pool: cfg.Pool,
		},
	}
	ledger := service.NewAuditLedger()
	rec := recorder.NewCSVRecorder(cfg.Control.LogFile, logger)

	props := actor.PropsFromProducer(func() actor.Actor {
		return NewMasterOfPuppetsActor(cfg, func() *adactor.HardwareActor {
			reader := poolmodbus.CreateTestPoolBoardReader(poolmodbus.ProbeConfig{
				HasPH:       true,
				HasChlorine: true,
			})
			b, err := board.NewPoolBoard(reader, cfg.Board.Relays)
			if err != nil {
				panic(err)
			}
			return adactor.NewHardwareActor(b, logger)
		}, func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(&cfg, es, logger)
		}, gateway, rec, ledger, logger)
	})
	pid, err := context.SpawnNamed(props, "master")
	if err != nil {
		t.Error(err)
		return
	}

	time.Sleep(2 * time.Second)

	res, err := context.RequestFuture(pid, domain.ActorHealthRequest{}, 10*time.Second).Result()
	if err != nil {
		t.Error(err)
		return
	}
	healthResp, ok := res.(domain.ActorHealthResponse)
	assert.True(t, ok)
	fmt.Printf("Health response: %+v\n", healthResp)
	assert.NotNil(t, healthResp)

	assert.True(t, healthResp.Healthy, "healthy is true")

	context.Stop(pid)

	as.Shutdown()
}
