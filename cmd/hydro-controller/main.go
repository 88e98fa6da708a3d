// Command hydro-controller runs the irrigation rig. Panel buttons and the
// remote MQTT link both drive one cycle state machine.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/hydro-controller/internal/config"
	"github.com/sweeney/hydro-controller/internal/dispatch"
	"github.com/sweeney/hydro-controller/internal/gpio"
	"github.com/sweeney/hydro-controller/internal/level"
	"github.com/sweeney/hydro-controller/internal/logging"
	"github.com/sweeney/hydro-controller/internal/mqtt"
	"github.com/sweeney/hydro-controller/internal/params"
	"github.com/sweeney/hydro-controller/internal/status"
	"github.com/sweeney/hydro-controller/internal/tsdb"
	"github.com/sweeney/hydro-controller/internal/web"
)

func main() {
	configPath := flag.String("config", "", "YAML config file (empty for built-in defaults)")
	envFile := flag.String("env", "", "Optional .env file with HYDRO_* overrides")
	printParams := flag.Bool("print-params", false, "Print the parameter table and exit")
	resetParams := flag.Bool("reset-params", false, "Restore default parameters and exit")

	flag.Parse()

	cfg, err := config.Load(*configPath, *envFile)
	if err != nil {
		log.Fatalf("fatal: %v", err)
	}
	logging.Setup(cfg.Logging)

	if err := run(cfg, *printParams, *resetParams); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(cfg *config.Config, printParams, resetParams bool) error {
	ctx := context.Background()

	store, err := params.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("open parameter store: %w", err)
	}
	defer store.Close()

	table := params.New(store)
	if err := table.Load(ctx); err != nil {
		return err
	}

	if resetParams {
		if err := table.Reset(ctx); err != nil {
			return fmt.Errorf("reset params: %w", err)
		}
		printParamTable(os.Stdout, table.Describe())
		return nil
	}
	if printParams {
		printParamTable(os.Stdout, table.Describe())
		return nil
	}

	pins, err := cfg.Pins()
	if err != nil {
		return err
	}
	policy, err := dispatch.ParsePolicy(cfg.Control.ModePolicy)
	if err != nil {
		return err
	}

	// Relays first, so every output is held de-energized before anything can press a button.
	relays, err := gpio.NewRealRelays(cfg.GPIO.Chip, pins, cfg.GPIO.ActiveLow)
	if err != nil {
		return fmt.Errorf("init relays: %w", err)
	}
	defer relays.Close()

	buttons, err := gpio.NewRealButtons(cfg.GPIO.Chip, pins)
	if err != nil {
		return fmt.Errorf("init buttons: %w", err)
	}
	defer buttons.Close()

	client, err := mqtt.NewRealClient(mqtt.Options{
		Broker:     cfg.MQTT.Broker,
		ClientID:   cfg.MQTT.ClientID,
		Username:   cfg.MQTT.Username,
		Password:   cfg.MQTT.Password,
		Prefix:     cfg.MQTT.TopicPrefix,
		BufferSize: cfg.MQTT.BufferSize,
	})
	if err != nil {
		return fmt.Errorf("init mqtt: %w", err)
	}
	defer client.Close()

	var history historyWriter
	if cfg.InfluxDB.Enabled {
		ts, err := tsdb.Connect(cfg.InfluxDB)
		if err != nil {
			log.Warnf("level history disabled: %v", err)
		} else {
			defer ts.Close()
			history = ts
		}
	}

	ws := resolveWSBroker(cfg.MQTT.WSBroker, cfg.MQTT.Broker)
	tracker := status.NewTracker(time.Now(), status.Config{
		PollMs:      cfg.Loop.Poll.Milliseconds(),
		Broker:      cfg.MQTT.Broker,
		TopicPrefix: cfg.MQTT.TopicPrefix,
		HTTPAddr:    cfg.HTTP.Addr,
		WSBroker:    ws,
		Policy:      policy.String(),
	})
	if net := readNetworkInfo(); net != nil {
		tracker.SetNetwork(net)
	}
	tracker.UpdateParams(table.Describe())
	tracker.SetMQTTConnected(client.IsConnected())

	// Publish startup event with full status snapshot
	snap := tracker.Snapshot()
	startupEvent := mqtt.SystemEvent{
		Timestamp:  snap.Now,
		Event:      "STARTUP",
		Retained:   true,
		RawPayload: status.FormatStatusEvent(snap, "STARTUP", ""),
	}
	if err := client.PublishSystem(startupEvent); err != nil {
		log.Warnf("failed to publish startup event: %v", err)
	} else {
		log.Printf("published startup event")
	}

	if cfg.HTTP.Addr != "" {
		srv := web.New(cfg.HTTP.Addr, tracker)
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Errorf("http server error: %v", err)
			}
		}()
		defer srv.Shutdown(context.Background())
		log.Printf("http status server listening on %s", cfg.HTTP.Addr)
	}

	log.Printf("started: poll=%v broker=%s prefix=%s policy=%s", cfg.Loop.Poll, cfg.MQTT.Broker, cfg.MQTT.TopicPrefix, policy)

	ticker := time.NewTicker(cfg.Loop.Poll)
	defer ticker.Stop()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	return runLoop(deps{
		buttons:  buttons,
		relays:   relays,
		params:   table,
		levels:   level.IIOReader{Paths: cfg.LevelPaths()},
		cutoffHz: cfg.Level.CutoffHz,
		pub:      client,
		sub:      client,
		conn:     client,
		tracker:  tracker,
		policy:   policy,
		history:  history,
	}, time.Now, ticker.C, sigCh)
}

func printParamTable(w io.Writer, ps []params.Param) {
	for _, p := range ps {
		fmt.Fprintf(w, "%d %-20s %d\n", p.Index, p.Name, p.Value)
	}
}

// runLoop owns every piece of control state. Button polling, scheduled
// actions, and remote commands all execute on this goroutine.
func runLoop(d deps, now func() time.Time, tick <-chan time.Time, sig <-chan os.Signal) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c := newController(d, now())
	c.link.Start(ctx)
	c.refresh()

	var inbound <-chan []byte
	if d.sub != nil {
		inbound = d.sub.Commands()
	}

	for {
		select {
		case s := <-sig:
			log.Printf("received %v, shutting down", s)
			signalName := "UNKNOWN"
			if s == syscall.SIGINT {
				signalName = "SIGINT"
			} else if s == syscall.SIGTERM {
				signalName = "SIGTERM"
			}
			c.shutdown(signalName, now())
			return nil

		case payload := <-inbound:
			c.link.Handle(ctx, payload, now())
			c.refresh()

		case <-tick:
			c.step(ctx, now())
		}
	}
}

// pi-helper env var names (written to /run/pi-helper.env).
const (
	envNetworkType       = "NETWORK_TYPE"
	envNetworkIP         = "NETWORK_IP"
	envNetworkStatus     = "NETWORK_STATUS"
	envNetworkGateway    = "NETWORK_GATEWAY"
	envNetworkWifiStatus = "NETWORK_WIFI_STATUS"
	envNetworkWifiSSID   = "NETWORK_WIFI_SSID"
)

func readNetworkInfo() *status.NetworkInfo {
	s := os.Getenv(envNetworkStatus)
	if s == "" {
		return nil
	}
	return &status.NetworkInfo{
		Type:       os.Getenv(envNetworkType),
		IP:         os.Getenv(envNetworkIP),
		Status:     s,
		Gateway:    os.Getenv(envNetworkGateway),
		WifiStatus: os.Getenv(envNetworkWifiStatus),
		SSID:       os.Getenv(envNetworkWifiSSID),
	}
}

// resolveWSBroker converts the ws_broker setting into a concrete URL.
// "=broker" derives ws://host:9001 from the TCP broker address; "off" disables.
func resolveWSBroker(ws, broker string) string {
	if ws == "off" {
		return ""
	}
	if ws != "=broker" {
		return ws
	}
	u, err := url.Parse(broker)
	if err != nil {
		log.Warnf("ws-broker: cannot parse broker %q: %v", broker, err)
		return ""
	}
	u.Scheme = "ws"
	u.Host = u.Hostname() + ":9001"
	return u.String()
}
