package bridge

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/sweeney/hydro-controller/internal/dispatch"
	"github.com/sweeney/hydro-controller/internal/mqtt"
	"github.com/sweeney/hydro-controller/internal/params"
	"github.com/sweeney/hydro-controller/internal/sched"
)

// Options are the optional collaborators of a Bridge.
type Options struct {
	// Status builds the status payload published with every keepalive.
	Status func(now time.Time) []byte

	// Record stores telemetry history on every keepalive.
	Record func(ctx context.Context, now time.Time) error
}

// Stats counts link traffic.
type Stats struct {
	Sent         uint64 // keepalives published
	Received     int    // keepalives received
	LastReceived time.Time
	Dropped      int // envelopes that failed to decode
}

// Bridge owns the remote link's side of the control loop. Like the
// scheduler it drives, it is not safe for concurrent use.
type Bridge struct {
	dispatcher *dispatch.Dispatcher
	pub        mqtt.Publisher
	sched      *sched.Scheduler
	params     *params.Params
	opts       Options
	log        *log.Entry

	ctx       context.Context
	keepalive sched.Handle
	period    time.Duration
	failing   bool
	stats     Stats
}

// New creates a Bridge. Call Start to begin sending keepalives.
func New(d *dispatch.Dispatcher, pub mqtt.Publisher, s *sched.Scheduler, p *params.Params, opts Options) *Bridge {
	return &Bridge{
		dispatcher: d,
		pub:        pub,
		sched:      s,
		params:     p,
		opts:       opts,
		log:        log.WithField("component", "bridge"),
		ctx:        context.Background(),
	}
}

// Start schedules the keepalive every keep_alive_interval. ctx bounds
// the work done from keepalive callbacks.
func (b *Bridge) Start(ctx context.Context) {
	b.ctx = ctx
	b.schedule()
}

// Stop cancels the keepalive.
func (b *Bridge) Stop() {
	b.sched.Cancel(b.keepalive)
	b.keepalive = 0
}

func (b *Bridge) schedule() {
	b.Stop()
	b.period = b.params.Interval(params.KeepAliveInterval)
	b.keepalive = b.sched.Every(b.period, b.sendKeepalive)
	b.log.Debugf("keepalive every %v", b.period)
}

func (b *Bridge) sendKeepalive(now time.Time) {
	b.stats.Sent++
	err := b.pub.PublishKeepalive(mqtt.Keepalive{Timestamp: now, Seq: b.stats.Sent})
	switch {
	case err != nil && !b.failing:
		b.log.Warnf("keepalive: %v", err)
		b.failing = true
	case err == nil && b.failing:
		b.log.Info("keepalive: link restored")
		b.failing = false
	}
	if b.opts.Status != nil {
		if err := b.pub.PublishStatus(b.opts.Status(now)); err != nil {
			b.log.Warnf("status: %v", err)
		}
	}
	if b.opts.Record != nil {
		if err := b.opts.Record(b.ctx, now); err != nil {
			b.log.Warnf("record levels: %v", err)
		}
	}
}

// Handle decodes and executes one inbound envelope. Malformed envelopes
// are logged and dropped; the returned error is informational only.
func (b *Bridge) Handle(ctx context.Context, payload []byte, now time.Time) error {
	req, err := Decode(payload)
	if err != nil {
		b.stats.Dropped++
		b.log.Warnf("dropping envelope: %v", err)
		return err
	}

	res, err := b.dispatcher.Dispatch(ctx, req)
	if res.Keepalive {
		b.stats.Received++
		b.stats.LastReceived = now
	}
	if res.Config != nil {
		report := mqtt.ConfigReport{Timestamp: now, Params: res.Config}
		if err != nil {
			report.Error = err.Error()
		}
		if perr := b.pub.PublishConfig(report); perr != nil {
			b.log.Warnf("config report: %v", perr)
		}
	}

	// A parameter write may have changed the heartbeat period.
	if b.keepalive != 0 && b.params.Interval(params.KeepAliveInterval) != b.period {
		b.schedule()
	}
	return err
}

// Stats returns the link counters.
func (b *Bridge) Stats() Stats {
	return b.stats
}
