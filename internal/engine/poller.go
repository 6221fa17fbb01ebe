package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/poolbridge/internal/device"
	"github.com/nerrad567/poolbridge/internal/poolapi"
)

// DefaultPollInterval matches the controller vendor's recommended rate.
const DefaultPollInterval = 60 * time.Second

// PollState is the scheduler's current phase.
type PollState int

// Poll states. A loop cycles Scheduled -> Fetching -> (Applying | Skipping)
// -> Scheduled until stopped.
const (
	PollIdle PollState = iota
	PollScheduled
	PollFetching
	PollApplying
	PollSkipping
)

func (s PollState) String() string {
	switch s {
	case PollIdle:
		return "idle"
	case PollScheduled:
		return "scheduled"
	case PollFetching:
		return "fetching"
	case PollApplying:
		return "applying"
	case PollSkipping:
		return "skipping"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name in JSON.
func (s PollState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// PollerStats is a snapshot of scheduler counters.
type PollerStats struct {
	State        PollState     `json:"state"`
	Interval     time.Duration `json:"interval"`
	Cycles       uint64        `json:"cycles"`
	Successes    uint64        `json:"successes"`
	Failures     uint64        `json:"failures"`
	DeviceErrors uint64        `json:"device_errors"`
	LastSuccess  time.Time     `json:"last_success,omitzero"`
	LastAttempt  time.Time     `json:"last_attempt,omitzero"`
	LastError    string        `json:"last_error,omitempty"`
}

// PollerOptions configures a Poller.
type PollerOptions struct {
	Source   StatusSource
	Registry *device.Registry

	// Sink is notified for every device after each successful fetch.
	Sink Sink

	// Interval defaults to DefaultPollInterval.
	Interval time.Duration

	Logger  Logger
	Metrics Metrics

	// Now overrides the clock (tests).
	Now func() time.Time
}

// Poller periodically fetches a status snapshot and fans it out to every
// registered device.
//
// At most one loop runs per Poller; Start cancels and waits for any
// previous loop. Fetch cycles are serialized, including manual PollNow
// calls, so the status source never sees concurrent fetches.
//
// A failed fetch changes nothing: view-models keep their last values and
// the next tick retries. There is no backoff.
type Poller struct {
	source   StatusSource
	registry *device.Registry
	sink     Sink
	interval time.Duration
	logger   Logger
	metrics  Metrics
	now      func() time.Time

	// lifecycleMu serializes Start and Stop.
	lifecycleMu sync.Mutex
	cancel      context.CancelFunc
	done        chan struct{}

	// cycleMu serializes fetch cycles.
	cycleMu sync.Mutex

	mu      sync.Mutex
	running bool
	stats   PollerStats
}

// NewPoller creates a poller. Call Start to begin polling.
func NewPoller(opts PollerOptions) (*Poller, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("%w: status source", ErrMissingDependency)
	}
	if opts.Registry == nil {
		return nil, fmt.Errorf("%w: registry", ErrMissingDependency)
	}

	p := &Poller{
		source:   opts.Source,
		registry: opts.Registry,
		sink:     opts.Sink,
		interval: opts.Interval,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
		now:      opts.Now,
	}
	if p.interval <= 0 {
		p.interval = DefaultPollInterval
	}
	if p.logger == nil {
		p.logger = noopLogger{}
	}
	if p.metrics == nil {
		p.metrics = noopMetrics{}
	}
	if p.now == nil {
		p.now = time.Now
	}
	p.stats.Interval = p.interval
	return p, nil
}

// Interval returns the polling period.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// Start begins polling on a fixed interval. Any loop already running is
// stopped first, so there is never more than one active timer.
func (p *Poller) Start(ctx context.Context) {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()

	p.stopLocked()

	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel = cancel
	p.done = done

	p.mu.Lock()
	p.running = true
	p.stats.State = PollScheduled
	p.mu.Unlock()

	go p.run(loopCtx, done)

	p.logger.Info("poller started", "interval", p.interval)
}

// Stop halts the loop and waits for it to exit. An in-flight cycle is
// cancelled through its context. Safe to call multiple times.
func (p *Poller) Stop() {
	p.lifecycleMu.Lock()
	defer p.lifecycleMu.Unlock()
	p.stopLocked()
}

func (p *Poller) stopLocked() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
	p.cancel = nil
	p.done = nil

	p.mu.Lock()
	p.running = false
	p.stats.State = PollIdle
	p.mu.Unlock()

	p.logger.Info("poller stopped")
}

// State returns the current phase.
func (p *Poller) State() PollState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats.State
}

// Stats returns a snapshot of the scheduler counters.
func (p *Poller) Stats() PollerStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// PollNow runs one fetch-and-apply cycle synchronously. It waits for any
// cycle already in progress.
func (p *Poller) PollNow(ctx context.Context) error {
	return p.cycle(ctx)
}

func (p *Poller) run(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			// Errors are logged and counted inside cycle.
			_ = p.cycle(ctx) //nolint:errcheck // Retried on the next tick
		}
	}
}

// cycle performs one poll. View-models are only touched on success.
func (p *Poller) cycle(ctx context.Context) error {
	p.cycleMu.Lock()
	defer p.cycleMu.Unlock()

	start := p.now()
	p.setState(PollFetching)
	p.mu.Lock()
	p.stats.Cycles++
	p.stats.LastAttempt = start
	p.mu.Unlock()

	status, err := p.source.FetchStatus(ctx)
	if err != nil {
		p.setState(PollSkipping)
		p.logger.Warn("status fetch failed, keeping last known state", "error", err)

		p.mu.Lock()
		p.stats.Failures++
		p.stats.LastError = err.Error()
		p.mu.Unlock()

		p.metrics.RecordPoll(PollMetric{Duration: p.now().Sub(start), OK: false})
		p.settle()
		return fmt.Errorf("fetching status: %w", err)
	}

	p.setState(PollApplying)
	devices := p.registry.All()
	failed := 0
	for _, dev := range devices {
		if err := p.apply(ctx, dev, status); err != nil {
			failed++
			p.logger.Error("device update failed", "device_id", dev.ID, "error", err)
		}
	}

	p.mu.Lock()
	p.stats.Successes++
	p.stats.DeviceErrors += uint64(failed)
	p.stats.LastSuccess = p.now()
	p.stats.LastError = ""
	p.mu.Unlock()

	p.metrics.RecordPoll(PollMetric{
		Duration:     p.now().Sub(start),
		OK:           true,
		Devices:      len(devices),
		DeviceErrors: failed,
	})
	p.logger.Debug("poll applied", "devices", len(devices), "failed", failed)
	p.settle()
	return nil
}

// apply merges and publishes one device. A panic is contained so that one
// bad device cannot stop the rest of the fan-out.
func (p *Poller) apply(ctx context.Context, dev device.Device, status *poolapi.PoolStatus) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic applying %s: %v", dev.ID, r)
		}
	}()

	vm := device.Merge(dev, status)
	vm.UpdatedAt = p.now()

	if err := p.registry.UpdateViewModel(dev.ID, vm); err != nil {
		return err
	}
	if p.sink != nil {
		if err := p.sink.Notify(ctx, dev, vm); err != nil {
			return err
		}
	}
	return nil
}

func (p *Poller) setState(s PollState) {
	p.mu.Lock()
	p.stats.State = s
	p.mu.Unlock()
}

// settle returns to Scheduled while a loop is running, otherwise Idle.
func (p *Poller) settle() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		p.stats.State = PollScheduled
	} else {
		p.stats.State = PollIdle
	}
}
