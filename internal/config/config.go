// Package config loads the daemon configuration: which broker to talk to,
// how the rig is wired, where state lives. The tunable irrigation timings
// are not here; they live in the persisted parameter table.
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sweeney/hydro-controller/internal/dispatch"
	"github.com/sweeney/hydro-controller/internal/gpio"
	"github.com/sweeney/hydro-controller/internal/level"
	"github.com/sweeney/hydro-controller/internal/logic"
	"github.com/sweeney/hydro-controller/internal/mqtt"
)

// Config is the root configuration structure.
type Config struct {
	MQTT     MQTTConfig     `yaml:"mqtt"`
	GPIO     GPIOConfig     `yaml:"gpio"`
	Level    LevelConfig    `yaml:"level"`
	Database DatabaseConfig `yaml:"database"`
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
	HTTP     HTTPConfig     `yaml:"http"`
	Logging  LoggingConfig  `yaml:"logging"`
	Loop     LoopConfig     `yaml:"loop"`
	Control  ControlConfig  `yaml:"control"`
}

// MQTTConfig contains broker connection settings.
type MQTTConfig struct {
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	Username    string `yaml:"username"`
	Password    string `yaml:"password"`
	TopicPrefix string `yaml:"topic_prefix"`
	BufferSize  int    `yaml:"buffer_size"`
	// WSBroker is the websocket URL for the live status page.
	// "=broker" derives it from Broker, "off" disables.
	WSBroker string `yaml:"ws_broker"`
}

// GPIOConfig describes the button and relay wiring.
// Pin tables are keyed by command or relay name; unlisted entries keep the
// reference wiring.
type GPIOConfig struct {
	Chip      string         `yaml:"chip"`
	ActiveLow bool           `yaml:"active_low"`
	Buttons   map[string]int `yaml:"buttons"`
	Relays    map[string]int `yaml:"relays"`
}

// LevelConfig locates the analog level inputs.
type LevelConfig struct {
	Zone1    string  `yaml:"zone1"`
	Zone2    string  `yaml:"zone2"`
	CutoffHz float64 `yaml:"cutoff_hz"`
}

// DatabaseConfig contains the SQLite parameter store location.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// InfluxDBConfig contains level history settings.
type InfluxDBConfig struct {
	Enabled     bool   `yaml:"enabled"`
	URL         string `yaml:"url"`
	Token       string `yaml:"token"`
	Org         string `yaml:"org"`
	Bucket      string `yaml:"bucket"`
	Measurement string `yaml:"measurement"`
}

// HTTPConfig contains the status server settings. An empty Addr disables it.
type HTTPConfig struct {
	Addr string `yaml:"addr"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// LoopConfig sets the polling cadence of the control loop.
type LoopConfig struct {
	Poll time.Duration `yaml:"poll"`
}

// ControlConfig selects how local and remote commands share the rig.
type ControlConfig struct {
	ModePolicy string `yaml:"mode_policy"`
}

// Load builds the configuration.
//
// The loading order is:
//  1. Default values
//  2. YAML file at path, if path is non-empty
//  3. The .env file at envFile, if non-empty (never overrides the process environment)
//  4. HYDRO_* environment variables
func Load(path, envFile string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Default returns the configuration of the reference rig.
func Default() *Config {
	return &Config{
		MQTT: MQTTConfig{
			Broker:      "tcp://192.168.1.200:1883",
			ClientID:    "hydro-controller",
			TopicPrefix: mqtt.DefaultPrefix,
			BufferSize:  mqtt.DefaultBufferSize,
			WSBroker:    "=broker",
		},
		GPIO: GPIOConfig{
			Chip: "gpiochip0",
		},
		Level: LevelConfig{
			CutoffHz: level.DefaultCutoffHz,
		},
		Database: DatabaseConfig{
			Path: "/var/lib/hydro-controller/params.db",
		},
		InfluxDB: InfluxDBConfig{
			Measurement: "zone_level",
		},
		HTTP: HTTPConfig{
			Addr: ":80",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
		Loop: LoopConfig{
			Poll: 10 * time.Millisecond,
		},
		Control: ControlConfig{
			ModePolicy: "shared",
		},
	}
}

// applyEnvOverrides applies environment variable overrides.
// Variables follow the pattern HYDRO_SECTION_KEY.
func applyEnvOverrides(cfg *Config) {
	str := func(name string, dst *string) {
		if v := os.Getenv(name); v != "" {
			*dst = v
		}
	}

	str("HYDRO_MQTT_BROKER", &cfg.MQTT.Broker)
	str("HYDRO_MQTT_CLIENT_ID", &cfg.MQTT.ClientID)
	str("HYDRO_MQTT_USERNAME", &cfg.MQTT.Username)
	str("HYDRO_MQTT_PASSWORD", &cfg.MQTT.Password)
	str("HYDRO_MQTT_TOPIC_PREFIX", &cfg.MQTT.TopicPrefix)
	str("HYDRO_MQTT_WS_BROKER", &cfg.MQTT.WSBroker)
	str("HYDRO_GPIO_CHIP", &cfg.GPIO.Chip)
	str("HYDRO_DATABASE_PATH", &cfg.Database.Path)
	str("HYDRO_INFLUXDB_URL", &cfg.InfluxDB.URL)
	str("HYDRO_INFLUXDB_TOKEN", &cfg.InfluxDB.Token)
	str("HYDRO_INFLUXDB_ORG", &cfg.InfluxDB.Org)
	str("HYDRO_INFLUXDB_BUCKET", &cfg.InfluxDB.Bucket)
	str("HYDRO_HTTP_ADDR", &cfg.HTTP.Addr)
	str("HYDRO_LOG_LEVEL", &cfg.Logging.Level)
	str("HYDRO_LOG_FORMAT", &cfg.Logging.Format)
	str("HYDRO_CONTROL_POLICY", &cfg.Control.ModePolicy)

	if v := os.Getenv("HYDRO_INFLUXDB_ENABLED"); v != "" {
		cfg.InfluxDB.Enabled = v == "true" || v == "1"
	}
	if v := os.Getenv("HYDRO_LOOP_POLL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Loop.Poll = d
		}
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.MQTT.Broker == "" {
		errs = append(errs, "mqtt.broker is required")
	}
	if c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required")
	}
	if c.MQTT.BufferSize < 0 {
		errs = append(errs, "mqtt.buffer_size must not be negative")
	}
	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}
	if c.Loop.Poll <= 0 {
		errs = append(errs, "loop.poll must be positive")
	}
	if c.Level.CutoffHz <= 0 {
		errs = append(errs, "level.cutoff_hz must be positive")
	}
	if _, err := dispatch.ParsePolicy(c.Control.ModePolicy); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := c.Pins(); err != nil {
		errs = append(errs, err.Error())
	}
	if c.InfluxDB.Enabled {
		if c.InfluxDB.URL == "" {
			errs = append(errs, "influxdb.url is required when enabled")
		}
		if c.InfluxDB.Bucket == "" {
			errs = append(errs, "influxdb.bucket is required when enabled")
		}
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		errs = append(errs, fmt.Sprintf("logging.format %q must be text or json", c.Logging.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// Pins resolves the named pin tables over the reference wiring.
func (c *Config) Pins() (gpio.PinMap, error) {
	pins := gpio.DefaultPins
	for _, name := range sortedKeys(c.GPIO.Buttons) {
		cmd, ok := logic.ParseCommand(name)
		if !ok {
			return gpio.PinMap{}, fmt.Errorf("gpio.buttons: unknown command %q", name)
		}
		pins.Buttons[cmd] = c.GPIO.Buttons[name]
	}
	for _, name := range sortedKeys(c.GPIO.Relays) {
		r, ok := logic.ParseRelay(name)
		if !ok {
			return gpio.PinMap{}, fmt.Errorf("gpio.relays: unknown relay role %q", name)
		}
		pins.Relays[r] = c.GPIO.Relays[name]
	}
	if err := pins.Validate(); err != nil {
		return gpio.PinMap{}, err
	}
	return pins, nil
}

// LevelPaths returns the analog input file per zone.
func (c *Config) LevelPaths() [logic.NumZones]string {
	return [logic.NumZones]string{c.Level.Zone1, c.Level.Zone2}
}

// sortedKeys keeps error reporting deterministic.
func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
