package config

import (
	"errors"
	"regexp"
	"strings"

	"github.com/notanaas/aqua-guard-raspi-client/internal/core/domain"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	LogLevel zapcore.Level
	Board    BoardConfig       `mapstructure:"board"`
	MQTT     MQTTConfig        `mapstructure:"mqtt"`
	Sync     SyncConfig        `mapstructure:"sync"`
	Device   DeviceConfig      `mapstructure:"device"`
	Pool     domain.PoolConfig `mapstructure:"pool"`
	Control  ControlConfig     `mapstructure:"control"`
	Port     uint              `mapstructure:"port"`
	HttpLog  bool              `mapstructure:"http_log"`
}

// BoardConfig addresses the pool I/O board over Modbus TCP. Relays maps an
// actuator id to its coil address; actuators missing from the map are not
// driven by this device.
type BoardConfig struct {
	Host              string
	Port              uint
	UnitId            uint            `mapstructure:"unit_id"`
	HasPHProbe        bool            `mapstructure:"has_ph_probe"`
	HasChlorineProbe  bool            `mapstructure:"has_chlorine_probe"`
	HasTurbidityProbe bool            `mapstructure:"has_turbidity_probe"`
	HasCurrentSensor  bool            `mapstructure:"has_current_sensor"`
	Relays            map[string]uint `mapstructure:"relays"`
}

// SyncConfig points at the coordination servers. The backup is tried only when
// the primary fails.
type SyncConfig struct {
	PrimaryURL string `mapstructure:"primary_url"`
	BackupURL  string `mapstructure:"backup_url"`
}

// DeviceConfig identifies this device to the server. The serial number doubles
// as the login identifier.
type DeviceConfig struct {
	Serial   string
	Password string
}

type ControlConfig struct {
	ReadIntervalMillis       uint32 `mapstructure:"read_interval_millis"`
	RequestTimeoutMillis     uint32 `mapstructure:"request_timeout_millis"`
	LogFile                  string `mapstructure:"log_file"`
	LogRotateCron            string `mapstructure:"log_rotate_cron"`
	LedgerSyncIntervalMillis uint32 `mapstructure:"ledger_sync_interval_millis"`
}

type MQTTConfig struct {
	Enable            bool
	Host              string
	Port              int
	Username          string
	Password          string
	BaseTopic         string `mapstructure:"base_topic"`
	HADiscoveryEnable bool   `mapstructure:"ha_discovery_enable"`
	HADiscoveryTopic  string `mapstructure:"ha_discovery_topic"`
}

func CheckMQTTTopic(baseTopic string) (string, error) {
	// check and fix base topic
	lowerBaseTopic := strings.ToLower(baseTopic)
	baseTopicRegexp := regexp.MustCompile("^[a-z0-9_]+$")
	matches := baseTopicRegexp.FindAllStringSubmatch(lowerBaseTopic, 1)
	if len(matches) <= 0 {
		return "", errors.New("invalid topic. can only contain letters, numbers and underscores")
	}
	return lowerBaseTopic, nil
}
