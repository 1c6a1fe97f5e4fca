package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds every navd tunable. Values come from navd.yaml (or the file
// named by NAVD_CONFIG) with NAVD_* environment overrides; missing keys
// fall back to the defaults below.
type Config struct {
	GlobalFrame string `mapstructure:"global_frame"`
	RobotFrame  string `mapstructure:"robot_frame"`
	Scenario    string `mapstructure:"scenario"`
	LogFile     string `mapstructure:"log_file"`

	TickPeriodMs          int `mapstructure:"tick_period_ms"`
	ForceReplanIntervalMs int `mapstructure:"force_replan_interval_ms"`
	ReadyTimeoutMs        int `mapstructure:"ready_timeout_ms"`

	TargetSpeed       float64 `mapstructure:"target_speed"`
	PositionTolerance float64 `mapstructure:"position_tolerance"`

	GoalTolerance   float64 `mapstructure:"goal_tolerance"`
	WaypointSpacing float64 `mapstructure:"waypoint_spacing"`
	LocalHorizon    float64 `mapstructure:"local_horizon"`
	LocalWindow     float64 `mapstructure:"local_window"`
	FootprintRadius float64 `mapstructure:"footprint_radius"`
}

func (c *Config) TickPeriod() time.Duration {
	return time.Duration(c.TickPeriodMs) * time.Millisecond
}

func (c *Config) ForceReplanInterval() time.Duration {
	return time.Duration(c.ForceReplanIntervalMs) * time.Millisecond
}

func (c *Config) ReadyTimeout() time.Duration {
	return time.Duration(c.ReadyTimeoutMs) * time.Millisecond
}

// Load reads the configuration. path may be empty, in which case navd.yaml
// in the working directory is used when present.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("NAVD")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	} else {
		v.SetConfigName("navd")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("global_frame", "map")
	v.SetDefault("robot_frame", "base_link")
	v.SetDefault("scenario", "")
	v.SetDefault("log_file", "navd.log")
	v.SetDefault("tick_period_ms", 100)
	v.SetDefault("force_replan_interval_ms", 500)
	v.SetDefault("ready_timeout_ms", 1000)
	v.SetDefault("target_speed", 0.7)
	v.SetDefault("position_tolerance", 0.20)
	v.SetDefault("goal_tolerance", 0.25)
	v.SetDefault("waypoint_spacing", 2.0)
	v.SetDefault("local_horizon", 5.0)
	v.SetDefault("local_window", 8.0)
	v.SetDefault("footprint_radius", 0.3)
}
