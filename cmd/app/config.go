package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

const EnvPrefix = "HOUSEMOCKTAT_"

type Config struct {
	DeviceID string `koanf:"device_id" yaml:"device_id"`
	// Profile selects one entry of Profiles.
	Profile string `koanf:"profile" yaml:"profile"`

	Log        LogConfig        `koanf:"log" yaml:"log"`
	Simulation SimulationConfig `koanf:"simulation" yaml:"simulation"`

	Controllers ControllersConfig `koanf:"controllers" yaml:"controllers"`

	// Params is the parameter oracle of the area controller protocol.
	Params   map[string]ParamConfig   `koanf:"params" yaml:"params"`
	Profiles map[string]ProfileConfig `koanf:"profiles" yaml:"profiles"`
}

type LogConfig struct {
	Level  string `koanf:"level" yaml:"level"`   // logrus level name
	Format string `koanf:"format" yaml:"format"` // "text" | "json"
}

type SimulationConfig struct {
	// Interval is the wall-clock time between ticks.
	Interval time.Duration `koanf:"interval" yaml:"interval"`
	// Step is the simulated time advanced per tick.
	Step time.Duration `koanf:"step" yaml:"step"`
	// StartTime is the initial unix time; 0 means now.
	StartTime int64 `koanf:"start_time" yaml:"start_time"`
	// Seed makes runs reproducible; 0 means unseeded.
	Seed     uint64 `koanf:"seed" yaml:"seed"`
	Running  bool   `koanf:"running" yaml:"running"`
	Location string `koanf:"location" yaml:"location"`
}

type ControllersConfig struct {
	HTTP     HTTPConfig     `koanf:"http" yaml:"http"`
	MQTT     MQTTConfig     `koanf:"mqtt" yaml:"mqtt"`
	MODBUS   ModbusConfig   `koanf:"modbus" yaml:"modbus"`
	Kafka    KafkaConfig    `koanf:"kafka" yaml:"kafka"`
	AreaLink AreaLinkConfig `koanf:"arealink" yaml:"arealink"`
}

type HTTPConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" yaml:"addr"`
}

type MQTTConfig struct {
	Enabled         bool          `koanf:"enabled" yaml:"enabled"`
	BrokerURL       string        `koanf:"broker_url" yaml:"broker_url"`
	ClientID        string        `koanf:"client_id" yaml:"client_id"`
	BaseTopic       string        `koanf:"base_topic" yaml:"base_topic"`
	QoS             byte          `koanf:"qos" yaml:"qos"`
	RetainReading   bool          `koanf:"retain_reading" yaml:"retain_reading"`
	PublishInterval time.Duration `koanf:"publish_interval" yaml:"publish_interval"`
	Username        string        `koanf:"username" yaml:"username"`
	Password        string        `koanf:"password" yaml:"password"`
}

type ModbusConfig struct {
	Enabled bool   `koanf:"enabled" yaml:"enabled"`
	Addr    string `koanf:"addr" yaml:"addr"`
	UnitID  byte   `koanf:"unit_id" yaml:"unit_id"`
}

type KafkaConfig struct {
	Enabled bool     `koanf:"enabled" yaml:"enabled"`
	Brokers []string `koanf:"brokers" yaml:"brokers"`
	Topic   string   `koanf:"topic" yaml:"topic"`
}

type AreaLinkConfig struct {
	Enabled        bool   `koanf:"enabled" yaml:"enabled"`
	AreaController string `koanf:"area_controller" yaml:"area_controller"`
	ControlAddr    string `koanf:"control_addr" yaml:"control_addr"`
	StartStopAddr  string `koanf:"start_stop_addr" yaml:"start_stop_addr"`
}

type ParamConfig struct {
	ID   byte   `koanf:"id" yaml:"id"`
	Type string `koanf:"type" yaml:"type"` // "int" | "bool" | "float"
}

// ProfileConfig describes one house and its appliances.
type ProfileConfig struct {
	EnergyLabel          string            `koanf:"energy_label" yaml:"energy_label"`
	SquareMeters         float64           `koanf:"square_meters" yaml:"square_meters"`
	WallHeight           float64           `koanf:"wall_height" yaml:"wall_height"`
	StartTemperature     float64           `koanf:"start_temperature" yaml:"start_temperature"`
	ActiveDaysPerYear    int               `koanf:"active_days_per_year" yaml:"active_days_per_year"`
	RandomHeatLossChance float64           `koanf:"random_heat_loss_chance" yaml:"random_heat_loss_chance"`
	Background           BackgroundConfig  `koanf:"background" yaml:"background"`
	Appliances           []ApplianceConfig `koanf:"appliances" yaml:"appliances"`
}

type BackgroundConfig struct {
	Coefficients []float64 `koanf:"coefficients" yaml:"coefficients"`
	Fluctuation  float64   `koanf:"fluctuation" yaml:"fluctuation"`
}

// ApplianceConfig covers every appliance kind; fields that do not apply to a
// kind are ignored.
type ApplianceConfig struct {
	Kind             string  `koanf:"kind" yaml:"kind"`
	PowerUsage       float64 `koanf:"power_usage" yaml:"power_usage"`
	PowerFluctuation float64 `koanf:"power_fluctuation" yaml:"power_fluctuation"`

	// oven, dryer
	Controllable bool      `koanf:"controllable" yaml:"controllable,omitempty"`
	Coefficients []float64 `koanf:"coefficients" yaml:"coefficients,omitempty"`
	CyclesPerDay int       `koanf:"cycles_per_day" yaml:"cycles_per_day,omitempty"`
	CycleMin     int       `koanf:"cycle_min" yaml:"cycle_min,omitempty"`
	CycleMax     int       `koanf:"cycle_max" yaml:"cycle_max,omitempty"`

	// heatpump
	TargetTemperature  float64 `koanf:"target_temperature" yaml:"target_temperature,omitempty"`
	HeatingMultiplier  float64 `koanf:"heating_multiplier" yaml:"heating_multiplier,omitempty"`
	HeatingFluctuation float64 `koanf:"heating_fluctuation" yaml:"heating_fluctuation,omitempty"`
}

// LoadConfig layers defaults, the config file (if present) and HOUSEMOCKTAT_*
// environment variables, in that order.
func LoadConfig(path string) (Config, error) {
	return loadConfig(path, os.Environ)
}

func loadConfig(path string, environ func() []string) (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			parser, err := parserFor(path)
			if err != nil {
				return Config{}, err
			}
			if err := k.Load(file.Provider(path), parser); err != nil {
				return Config{}, fmt.Errorf("load config %s: %w", path, err)
			}
		} else if !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		// Config file missing → use defaults
	}

	envProvider := env.Provider(".", env.Opt{
		Prefix:      EnvPrefix,
		EnvironFunc: environ,
		TransformFunc: func(k, v string) (string, any) {
			key := envKeyTransform(strings.TrimPrefix(k, EnvPrefix))
			if key == "controllers.kafka.brokers" {
				return key, strings.Split(v, ",")
			}
			return key, v
		},
	})
	if err := k.Load(envProvider, nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	return cfg, nil
}

func parserFor(path string) (koanf.Parser, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		return yaml.Parser(), nil
	case ".json":
		return json.Parser(), nil
	default:
		return nil, fmt.Errorf("unsupported config extension %q", ext)
	}
}

// twoLevelSections hold named sub-sections: CONTROLLERS_HTTP_ADDR → controllers.http.addr.
var twoLevelSections = []string{"controllers", "profiles"}

// oneLevelSections hold plain keys: SIMULATION_START_TIME → simulation.start_time.
var oneLevelSections = []string{"simulation", "log"}

// envKeyTransform maps an environment key without prefix to a koanf path.
// Keys that match no section stay flat.
func envKeyTransform(k string) string {
	k = strings.ToLower(strings.TrimSpace(k))
	if k == "" {
		return ""
	}

	for _, s := range twoLevelSections {
		if !strings.HasPrefix(k, s+"_") {
			continue
		}
		parts := strings.SplitN(k, "_", 3)
		if len(parts) < 3 {
			return k
		}
		return parts[0] + "." + parts[1] + "." + parts[2]
	}

	for _, s := range oneLevelSections {
		if rest, ok := strings.CutPrefix(k, s+"_"); ok {
			return s + "." + rest
		}
	}
	return k
}

func applyDefaults(cfg *Config) {
	if cfg.DeviceID == "" {
		cfg.DeviceID = "default"
	}
	if cfg.Profile == "" {
		cfg.Profile = "small"
	}
	if cfg.Controllers.HTTP.Addr == "" {
		cfg.Controllers.HTTP.Addr = ":8080"
	}
	if !cfg.Controllers.HTTP.Enabled && !cfg.Controllers.MQTT.Enabled &&
		!cfg.Controllers.MODBUS.Enabled && !cfg.Controllers.AreaLink.Enabled &&
		!cfg.Controllers.Kafka.Enabled {
		cfg.Controllers.HTTP.Enabled = true
	}
	if cfg.Controllers.MQTT.PublishInterval == 0 {
		cfg.Controllers.MQTT.PublishInterval = 1 * time.Second
	}
	if cfg.Controllers.MODBUS.UnitID == 0 {
		cfg.Controllers.MODBUS.UnitID = 1
	}
	if cfg.Simulation.Interval <= 0 {
		cfg.Simulation.Interval = time.Second
	}
	if cfg.Simulation.Step < time.Second {
		cfg.Simulation.Step = time.Minute
	}
}

// Dump renders the effective config as YAML.
func (c Config) Dump() ([]byte, error) {
	return yamlv3.Marshal(c)
}
