// Package config loads the process configuration with viper and the
// temperature point list with yaml.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"thermostab/internal/models"
	"thermostab/internal/protocol"
	"thermostab/internal/serialport"

	"github.com/spf13/viper"
)

const envPrefix = "THERMOSTAB"

type Config struct {
	Port       string                     `mapstructure:"port"`
	DB         DBConfig                   `mapstructure:"db"`
	Log        LogConfig                  `mapstructure:"log"`
	Auth       AuthConfig                 `mapstructure:"auth"`
	Relay      serialport.Config          `mapstructure:"relay"`
	Tempt      serialport.Config          `mapstructure:"tempt"`
	Thresholds models.ThresholdParameters `mapstructure:"thresholds"`
	PointsFile string                     `mapstructure:"points_file"`
	Worker     WorkerConfig               `mapstructure:"worker"`
	SelfCheck  time.Duration              `mapstructure:"self_check_pause"`
	Demo       bool                       `mapstructure:"demo"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
}

type AuthConfig struct {
	SigningKey  string        `mapstructure:"signing_key"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	AllowSignUp bool          `mapstructure:"allow_sign_up"`
}

type WorkerConfig struct {
	QueueSize int `mapstructure:"queue_size"`
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("db.path", "thermostab.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", 12*time.Hour)
	v.SetDefault("auth.allow_sign_up", false)

	v.SetDefault("relay.port", "")
	v.SetDefault("relay.baud", serialport.RelayBaudRate)
	v.SetDefault("relay.timeout", 200*time.Millisecond)
	v.SetDefault("relay.delay", protocol.InterCommandDelay)
	v.SetDefault("tempt.port", "")
	v.SetDefault("tempt.baud", serialport.TemptBaudRate)
	v.SetDefault("tempt.timeout", 250*time.Millisecond)
	v.SetDefault("tempt.delay", protocol.InterCommandDelay)

	th := models.DefaultThresholds()
	v.SetDefault("thresholds.tick_interval", th.TickInterval)
	v.SetDefault("thresholds.steady_time", th.SteadyTime)
	v.SetDefault("thresholds.bridge_time", th.BridgeTime)
	v.SetDefault("thresholds.fluc_thr", th.FlucThr)
	v.SetDefault("thresholds.control_temp_thr", th.ControlTempThr)
	v.SetDefault("thresholds.not_up_or_down_fault_time", th.NotUpOrDownTime)
	v.SetDefault("thresholds.not_up_or_down_fault_thr", th.NotUpOrDownThr)
	v.SetDefault("thresholds.fluc_fault_time", th.FlucFaultTime)
	v.SetDefault("thresholds.fluc_fault_thr", th.FlucFaultThr)
	v.SetDefault("thresholds.temp_bias_fault_thr", th.TempBiasFaultThr)
	v.SetDefault("thresholds.temp_max_value", th.TempMaxValue)
	v.SetDefault("thresholds.temp_min_value", th.TempMinValue)
	v.SetDefault("thresholds.shutdown_on_finish", th.ShutdownOnFinish)

	v.SetDefault("points_file", "configs/points.yml")
	v.SetDefault("worker.queue_size", 8)
	v.SetDefault("self_check_pause", time.Second)
	v.SetDefault("demo", false)
}

// Load reads file, or configs/config.yml when file is empty, on top of the
// defaults. A missing default file is not an error.
func Load(v *viper.Viper, file string) (*Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
	} else {
		v.AddConfigPath("configs")
		v.SetConfigName("config")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if file != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("config thresholds: %w", err)
	}
	return &cfg, nil
}
