package util

import (
	"github.com/notanaas/aqua-guard-raspi-client/internal/config"
	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"

	"go.uber.org/zap"
)

func LoadTestConfig() config.Config {
	return config.Config{
		LogLevel: zap.DebugLevel,
		Board: config.BoardConfig{
			Host:   "-.-.-.-",
			Port:   502,
			UnitId: 1,
			Relays: map[string]uint{
				string(domain.ActuatorChlorinePump): 0,
				string(domain.ActuatorPoolFilter):   1,
				string(domain.ActuatorPoolHeater):   2,
				string(domain.ActuatorPoolCover):    3,
				string(domain.ActuatorLEDLights):    4,
			},
		},
		MQTT: config.MQTTConfig{
			Host:      "localhost",
			Port:      1883,
			BaseTopic: "aquaguard",
		},
		Sync: config.SyncConfig{
			PrimaryURL: "http://localhost:9990",
			BackupURL:  "http://localhost:9991",
		},
		Device: config.DeviceConfig{
			Serial:   "SN-TEST",
			Password: "secret",
		},
		Pool: domain.PoolConfig{
			MinWaterLevel:      30,
			MaxWaterLevel:      80,
			DesiredTemperature: 28,
		},
		Control: config.ControlConfig{
			ReadIntervalMillis:       5000,
			RequestTimeoutMillis:     4000,
			LogFile:                  "pool_data_log.csv",
			LedgerSyncIntervalMillis: 60000,
		},
		Port: 8080,
	}
}
