package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sweeney/hydro-controller/internal/gpio"
	"github.com/sweeney/hydro-controller/internal/logic"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("", "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MQTT.TopicPrefix != "garden/hydro" {
		t.Errorf("TopicPrefix: got %q, want garden/hydro", cfg.MQTT.TopicPrefix)
	}
	if cfg.Loop.Poll != 10*time.Millisecond {
		t.Errorf("Poll: got %v, want 10ms", cfg.Loop.Poll)
	}
	if cfg.Control.ModePolicy != "shared" {
		t.Errorf("ModePolicy: got %q, want shared", cfg.Control.ModePolicy)
	}
	pins, err := cfg.Pins()
	if err != nil {
		t.Fatalf("Pins: %v", err)
	}
	if pins != gpio.DefaultPins {
		t.Error("expected reference wiring with no pin overrides")
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "hydro.yaml", `
mqtt:
  broker: tcp://broker.local:1883
  topic_prefix: greenhouse/bed
gpio:
  active_low: true
  buttons:
    abort: 10
  relays:
    lights: 9
level:
  zone1: /sys/bus/iio/devices/iio:device0/in_voltage0_raw
  cutoff_hz: 2.5
loop:
  poll: 20ms
control:
  mode_policy: exclusive
influxdb:
  enabled: true
  url: http://influx.local:8086
  bucket: hydro
`)
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://broker.local:1883" {
		t.Errorf("Broker: got %q", cfg.MQTT.Broker)
	}
	if cfg.MQTT.ClientID != "hydro-controller" {
		t.Errorf("ClientID should keep default, got %q", cfg.MQTT.ClientID)
	}
	if !cfg.GPIO.ActiveLow {
		t.Error("expected ActiveLow")
	}
	if cfg.Loop.Poll != 20*time.Millisecond {
		t.Errorf("Poll: got %v, want 20ms", cfg.Loop.Poll)
	}
	if cfg.Level.CutoffHz != 2.5 {
		t.Errorf("CutoffHz: got %v", cfg.Level.CutoffHz)
	}
	paths := cfg.LevelPaths()
	if paths[0] == "" || paths[1] != "" {
		t.Errorf("LevelPaths: got %v", paths)
	}

	pins, err := cfg.Pins()
	if err != nil {
		t.Fatalf("Pins: %v", err)
	}
	if pins.Buttons[logic.CommandAbort] != 10 {
		t.Errorf("abort pin: got %d, want 10", pins.Buttons[logic.CommandAbort])
	}
	if pins.Relays[logic.RelayLights] != 9 {
		t.Errorf("lights pin: got %d, want 9", pins.Relays[logic.RelayLights])
	}
	if pins.Relays[logic.RelayPump] != gpio.DefaultPins.Relays[logic.RelayPump] {
		t.Error("unlisted relay should keep the reference pin")
	}
}

func TestLoadYAMLPinCollision(t *testing.T) {
	// Line 21 already drives tank_pump_valve2 in the reference wiring.
	path := writeFile(t, "hydro.yaml", "gpio:\n  buttons:\n    abort: 21\n")
	_, err := Load(path, "")
	if err == nil {
		t.Fatal("expected error for a button on a relay line")
	}
	if !strings.Contains(err.Error(), "line 21 assigned to both") {
		t.Errorf("error %q does not name the shared line", err)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), ""); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestLoadBadYAML(t *testing.T) {
	path := writeFile(t, "bad.yaml", "mqtt: [unclosed")
	if _, err := Load(path, ""); err == nil {
		t.Error("expected parse error")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("HYDRO_MQTT_BROKER", "tcp://env.local:1883")
	t.Setenv("HYDRO_CONTROL_POLICY", "exclusive")
	t.Setenv("HYDRO_LOOP_POLL", "50ms")
	t.Setenv("HYDRO_INFLUXDB_ENABLED", "false")

	path := writeFile(t, "hydro.yaml", "mqtt:\n  broker: tcp://file.local:1883\n")
	cfg, err := Load(path, "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.MQTT.Broker != "tcp://env.local:1883" {
		t.Errorf("Broker: got %q, env should win over file", cfg.MQTT.Broker)
	}
	if cfg.Control.ModePolicy != "exclusive" {
		t.Errorf("ModePolicy: got %q", cfg.Control.ModePolicy)
	}
	if cfg.Loop.Poll != 50*time.Millisecond {
		t.Errorf("Poll: got %v", cfg.Loop.Poll)
	}
}

func TestEnvFile(t *testing.T) {
	const key = "HYDRO_HTTP_ADDR"
	t.Cleanup(func() { os.Unsetenv(key) })

	env := writeFile(t, ".env", key+"=:8081\n")
	cfg, err := Load("", env)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTP.Addr != ":8081" {
		t.Errorf("HTTP.Addr: got %q, want :8081", cfg.HTTP.Addr)
	}
}

func TestEnvFileMissing(t *testing.T) {
	if _, err := Load("", filepath.Join(t.TempDir(), ".env")); err == nil {
		t.Error("expected error for missing env file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"empty broker", func(c *Config) { c.MQTT.Broker = "" }, "mqtt.broker"},
		{"bad policy", func(c *Config) { c.Control.ModePolicy = "whoever" }, "control policy"},
		{"zero poll", func(c *Config) { c.Loop.Poll = 0 }, "loop.poll"},
		{"unknown relay", func(c *Config) { c.GPIO.Relays = map[string]int{"sprinkler": 3} }, "unknown relay role"},
		{"unknown button", func(c *Config) { c.GPIO.Buttons = map[string]int{"launch": 3} }, "unknown command"},
		{"duplicate line", func(c *Config) { c.GPIO.Relays = map[string]int{"lights": 17} }, "assigned to both"},
		{"influx without url", func(c *Config) { c.InfluxDB.Enabled = true; c.InfluxDB.Bucket = "b" }, "influxdb.url"},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Errorf("Default: %v", err)
	}
}
