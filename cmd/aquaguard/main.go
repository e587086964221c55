package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	adactor "github.com/notanaas/aqua-guard-raspi-client/internal/adapter/actor"
	"github.com/notanaas/aqua-guard-raspi-client/internal/adapter/board"
	"github.com/notanaas/aqua-guard-raspi-client/internal/cloud"
	"github.com/notanaas/aqua-guard-raspi-client/internal/config"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/actor"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/service"
	"github.com/notanaas/aqua-guard-raspi-client/internal/recorder"
	"github.com/notanaas/aqua-guard-raspi-client/internal/server"
	"github.com/notanaas/aqua-guard-raspi-client/internal/util/actorutil"
	"github.com/notanaas/aqua-guard-raspi-client/pkg/poolmodbus"

	pactor "github.com/asynkron/protoactor-go/actor"
	"github.com/asynkron/protoactor-go/eventstream"
	"github.com/reugn/go-quartz/job"
	"github.com/reugn/go-quartz/quartz"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func gracefulShutdown(apiServer *http.Server, done chan bool) {
	// Create context that listens for the interrupt signal from the OS.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Listen for the interrupt signal.
	<-ctx.Done()

	log.Println("shutting down gracefully, press Ctrl+C again to force")

	// The context is used to inform the server it has 5 seconds to finish
	// the request it is currently handling
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := apiServer.Shutdown(ctx); err != nil {
		log.Printf("Server forced to shutdown with error: %v", err)
	}

	log.Println("Server exiting")

	// Notify the main goroutine that the shutdown is complete
	done <- true
}

func main() {

	// load and print config
	cfg, err := initConfig()
	if err != nil {
		slog.Error("config errors", "error", err)
		return
	}
	safePrintConfig(*cfg)

	// zap logger
	zapCfg := zap.NewProductionConfig()
	zapCfg.Level = zap.NewAtomicLevelAt(cfg.LogLevel)

	logger := zap.Must(zapCfg.Build())

	// init actor system
	as := actorutil.NewActorSystemWithZapLogger(logger)
	ctx := as.Root

	defer logger.Sync()

	// cloud gateway (session + sync client)
	httpClient := &http.Client{Timeout: time.Duration(cfg.Control.RequestTimeoutMillis) * time.Millisecond}
	session := cloud.NewSessionManager(httpClient, cfg.Sync.PrimaryURL, cloud.Credentials{
		Serial:   cfg.Device.Serial,
		Password: cfg.Device.Password,
	}, logger)
	gateway := cloud.NewSyncClient(httpClient,
		domain.Endpoint{URL: cfg.Sync.PrimaryURL, Role: domain.EndpointPrimary},
		domain.Endpoint{URL: cfg.Sync.BackupURL, Role: domain.EndpointBackup},
		cfg.Device.Serial, session, logger)

	ledger := service.NewAuditLedger()
	tickRecorder := recorder.NewCSVRecorder(cfg.Control.LogFile, logger)

	// init hardware actor provider
	hardwareProv, err := hardwareActorProvider(cfg, logger)
	if err != nil {
		panic(err)
	}

	props := pactor.PropsFromProducer(func() pactor.Actor {
		return actor.NewMasterOfPuppetsActor(*cfg, hardwareProv, mqttActorProvider(cfg, logger),
			gateway, tickRecorder, ledger, logger)
	})
	pid, err := ctx.SpawnNamed(props, domain.ACTOR_ID_MASTER)
	if err != nil {
		return
	}

	// scheduled jobs: CSV rotation and audit ledger upload
	sched, err := startScheduledJobs(cfg, gateway, tickRecorder, ledger, logger)
	if err != nil {
		panic(err)
	}

	server := server.NewServer(*cfg, ctx, pid, ledger)
	// Create a done channel to signal when the shutdown is complete
	done := make(chan bool, 1)

	// Run graceful shutdown in a separate goroutine
	go gracefulShutdown(server, done)

	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		panic(fmt.Sprintf("http server error: %s", err))
	}

	// Wait for the graceful shutdown to complete
	<-done
	log.Println("Graceful shutdown complete.")

	sched.Stop()
	ctx.StopFuture(pid).Wait()
	as.Shutdown()
}

func initConfig() (*config.Config, error) {

	// alias PORT => AQUAGUARD_PORT
	if port := os.Getenv("PORT"); port != "" {
		os.Setenv("AQUAGUARD_PORT", port)
	}

	setConfigDefaults()

	viper.SetEnvPrefix("aquaguard")
	viper.AutomaticEnv()

	// if defined, try to load config from yaml file
	if cfgFile := os.Getenv("CONFIG_FILE"); cfgFile != "" {
		if _, err := os.Stat(cfgFile); err == nil {
			slog.Info("Using config", "file", cfgFile)
			viper.SetConfigFile(cfgFile)

			err = viper.ReadInConfig()
			if err != nil {
				slog.Error("Error reading config file", "error", err)
			}
		}
	}

	var cfg config.Config

	err := viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	// parse log level
	switch viper.GetString("log_level") {
	case "trace":
		cfg.LogLevel = zap.DebugLevel
	case "debug":
		cfg.LogLevel = zap.DebugLevel
	case "info":
		cfg.LogLevel = zap.InfoLevel
	case "error":
		cfg.LogLevel = zap.ErrorLevel
	case "warn":
		cfg.LogLevel = zap.WarnLevel
	case "fatal":
		cfg.LogLevel = zap.FatalLevel
	default:
		cfg.LogLevel = zap.InfoLevel
	}

	// check and fix base topic
	baseTopic, err := config.CheckMQTTTopic(cfg.MQTT.BaseTopic)
	if err != nil {
		return nil, errors.New("invalid base topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.BaseTopic = baseTopic

	// check and fix homeassistant discovery topic
	hadBaseTopic, err := config.CheckMQTTTopic(cfg.MQTT.HADiscoveryTopic)
	if err != nil {
		return nil, errors.New("invalid homeassistant discovery topic. can only contain letters, numbers and underscores")
	}
	cfg.MQTT.HADiscoveryTopic = hadBaseTopic

	// check bounds
	if cfg.Control.ReadIntervalMillis < 1000 {
		return nil, errors.New("config param control.read_interval_millis should be >= 1000ms")
	}
	if cfg.Control.RequestTimeoutMillis < 500 {
		return nil, errors.New("config param control.request_timeout_millis should be >= 500ms")
	}
	if cfg.Pool.MinWaterLevel >= cfg.Pool.MaxWaterLevel {
		return nil, errors.New("config param pool.min_water_level must be < pool.max_water_level")
	}
	if cfg.Sync.PrimaryURL == "" {
		return nil, errors.New("config param sync.primary_url is required")
	}
	if cfg.Sync.BackupURL == "" {
		cfg.Sync.BackupURL = cfg.Sync.PrimaryURL
	}
	if cfg.Device.Serial == "" {
		return nil, errors.New("config param device.serial is required")
	}

	return &cfg, nil
}

func hardwareActorProvider(cfg *config.Config, logger *zap.Logger) (actor.HardwareActorProvider, error) {

	reader, err := poolmodbus.CreatePoolBoardModbusReader(cfg.Board.Host, cfg.Board.Port,
		uint8(cfg.Board.UnitId), 1*time.Second, poolmodbus.ProbeConfig{
			HasPH:        cfg.Board.HasPHProbe,
			HasChlorine:  cfg.Board.HasChlorineProbe,
			HasTurbidity: cfg.Board.HasTurbidityProbe,
			HasCurrent:   cfg.Board.HasCurrentSensor,
		}, logger, nil)
	if err != nil {
		return nil, err
	}

	poolBoard, err := board.NewPoolBoard(reader, cfg.Board.Relays)
	if err != nil {
		return nil, err
	}

	return func() *adactor.HardwareActor {
		return adactor.NewHardwareActor(poolBoard, logger)
	}, nil
}

func mqttActorProvider(cfg *config.Config, logger *zap.Logger) actor.MQTTActorProvider {
	if !cfg.MQTT.Enable {
		// no broker configured: dummy actor that drains the event stream
		return func(es *eventstream.EventStream) *adactor.MQTTActor {
			return adactor.NewTestMQTTActor(cfg, es, logger)
		}
	}
	return func(es *eventstream.EventStream) *adactor.MQTTActor {
		return adactor.NewMQTTActor(cfg, es, logger)
	}
}

func startScheduledJobs(cfg *config.Config, gateway *cloud.SyncClient, tickRecorder *recorder.CSVRecorder,
	ledger *service.AuditLedger, logger *zap.Logger) (quartz.Scheduler, error) {

	sched, err := quartz.NewStdScheduler()
	if err != nil {
		return nil, err
	}
	sched.Start(context.Background())

	// periodic audit ledger upload
	syncInterval := time.Duration(cfg.Control.LedgerSyncIntervalMillis) * time.Millisecond
	ledgerJob := job.NewFunctionJob(func(jobCtx context.Context) (int, error) {
		blocks := ledger.Blocks()
		if len(blocks) == 0 {
			return 0, nil
		}
		reqCtx, cancel := context.WithTimeout(jobCtx, time.Duration(cfg.Control.RequestTimeoutMillis)*time.Millisecond)
		defer cancel()
		if err := gateway.SyncLedger(reqCtx, blocks); err != nil {
			logger.Warn("ledger upload failed", zap.Int("blocks", len(blocks)), zap.Error(err))
			return 0, err
		}
		ledger.Drop(len(blocks))
		logger.Info("ledger uploaded", zap.Int("blocks", len(blocks)))
		return len(blocks), nil
	})
	err = sched.ScheduleJob(quartz.NewJobDetail(ledgerJob, quartz.NewJobKey("ledgerSync")),
		quartz.NewSimpleTrigger(syncInterval))
	if err != nil {
		return nil, err
	}

	// CSV log rotation on a cron expression
	if cfg.Control.LogRotateCron != "" {
		rotateTrigger, err := quartz.NewCronTrigger(cfg.Control.LogRotateCron)
		if err != nil {
			return nil, fmt.Errorf("invalid control.log_rotate_cron: %w", err)
		}
		rotateJob := job.NewFunctionJob(func(context.Context) (int, error) {
			if err := tickRecorder.Rotate(); err != nil {
				logger.Warn("csv rotation failed", zap.Error(err))
				return 0, err
			}
			return 0, nil
		})
		err = sched.ScheduleJob(quartz.NewJobDetail(rotateJob, quartz.NewJobKey("csvRotate")), rotateTrigger)
		if err != nil {
			return nil, err
		}
	}

	return sched, nil
}

func setConfigDefaults() {
	viper.SetDefault("log_level", "warn")
	viper.SetDefault("board.port", 502)
	viper.SetDefault("board.unit_id", 1)
	viper.SetDefault("mqtt.enable", false)
	viper.SetDefault("mqtt.ha_discovery_enable", false)
	viper.SetDefault("mqtt.base_topic", "aquaguard")
	viper.SetDefault("mqtt.ha_discovery_topic", "homeassistant")
	viper.SetDefault("control.read_interval_millis", 5000)
	viper.SetDefault("control.request_timeout_millis", 4000)
	viper.SetDefault("control.log_file", "pool_data_log.csv")
	viper.SetDefault("control.ledger_sync_interval_millis", 60000)
	viper.SetDefault("port", 8080)
}

func safePrintConfig(cfg config.Config) {
	cfg.MQTT.Username = "*redacted*"
	cfg.MQTT.Password = "*redacted*"
	cfg.Device.Password = "*redacted*"
	slog.Info("Using", "config", cfg)
}
