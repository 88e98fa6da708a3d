// Package tsdb records zone level history in InfluxDB.
//
// Writes are non-blocking and batched by the client library; the control
// loop never waits on the database. Async write failures are logged.
package tsdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	log "github.com/sirupsen/logrus"

	"github.com/sweeney/hydro-controller/internal/config"
	"github.com/sweeney/hydro-controller/internal/level"
)

const connectTimeout = 10 * time.Second

var (
	// ErrDisabled indicates level history is switched off in config.
	ErrDisabled = errors.New("tsdb: disabled in configuration")

	// ErrConnectionFailed indicates the initial ping failed.
	ErrConnectionFailed = errors.New("tsdb: connection failed")
)

// PointWriter accepts points for asynchronous delivery.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// Client writes zone levels as points of one measurement.
type Client struct {
	client      influxdb2.Client
	writer      PointWriter
	measurement string
	log         *log.Entry
}

// Connect pings the server and sets up a batching write API.
func Connect(cfg config.InfluxDBConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	healthy, err := client.Ping(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: ping: %w", ErrConnectionFailed, err)
	}
	if !healthy {
		client.Close()
		return nil, fmt.Errorf("%w: server not healthy", ErrConnectionFailed)
	}

	writeAPI := client.WriteAPI(cfg.Org, cfg.Bucket)
	c := NewClient(writeAPI, cfg.Measurement)
	c.client = client

	go func() {
		for err := range writeAPI.Errors() {
			c.log.Warnf("write: %v", err)
		}
	}()
	return c, nil
}

// NewClient creates a Client over an existing writer.
func NewClient(w PointWriter, measurement string) *Client {
	if measurement == "" {
		measurement = "zone_level"
	}
	return &Client{
		writer:      w,
		measurement: measurement,
		log:         log.WithField("component", "tsdb"),
	}
}

// WriteLevels queues one point per zone that has a reading.
func (c *Client) WriteLevels(ctx context.Context, now time.Time, readings []level.Reading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, r := range readings {
		if !r.Valid {
			continue
		}
		c.writer.WritePoint(write.NewPoint(
			c.measurement,
			map[string]string{"zone": r.Zone.String()},
			map[string]interface{}{
				"level":          r.Level,
				"above_setpoint": r.AboveSetpoint,
			},
			now,
		))
	}
	return nil
}

// Close flushes pending writes and closes the connection.
func (c *Client) Close() error {
	if c.client == nil {
		return nil
	}
	c.client.Close()
	return nil
}
