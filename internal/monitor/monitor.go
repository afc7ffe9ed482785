// Package monitor drives the polling loop: once per interval it snapshots
// the repository, probes every store concurrently under a worker cap, and
// applies the verdicts back in snapshot order.
package monitor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"storewatch/internal/config"
	"storewatch/internal/metrics"
	"storewatch/internal/notify"
	"storewatch/internal/probe"
	"storewatch/internal/repo"
)

// UnresolvedAddr is the display placeholder for stores with no explicit IP
// and no entry in the lookup table.
const UnresolvedAddr = "-"

// Resolver answers fallback-address lookups for stores without an explicit
// IP. Implementations are read-only after load.
type Resolver interface {
	Resolve(number string) (string, bool)
}

// Event is the per-store observation emitted to the sink every cycle,
// whether or not anything changed.
type Event struct {
	Number  string
	Addr    string
	Verdict probe.Verdict
}

// Sink consumes observation events. It runs on the monitor goroutine and
// must hand off quickly.
type Sink func(Event)

// Options wires a Monitor. Repo and Prober are required; everything else
// degrades to a no-op when nil.
type Options struct {
	Repo     *repo.Repository
	Prober   probe.Prober
	Resolver Resolver
	Config   config.Config
	Sink     Sink
	Refresh  func()
	Notifier *notify.Notifier
	Metrics  *metrics.Collector
	Logger   *zap.Logger
}

// Monitor owns the background polling loop.
type Monitor struct {
	repo     *repo.Repository
	agg      probe.Aggregator
	resolver Resolver
	interval time.Duration
	workers  int
	samples  int
	sink     Sink
	refresh  func()
	notifier *notify.Notifier
	metrics  *metrics.Collector
	logger   *zap.Logger

	// Store numbers observed last cycle; used to retire metric series for
	// stores deleted between cycles. Touched only from RunCycle.
	seen map[string]struct{}

	mu     sync.Mutex
	cancel context.CancelFunc
}

// New builds a monitor from options.
func New(opts Options) *Monitor {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	samples := opts.Config.Samples
	if samples < 1 {
		samples = 1
	}
	workers := opts.Config.MaxWorkers
	if workers < 1 {
		workers = 1
	}
	interval := opts.Config.Interval
	if interval <= 0 {
		interval = config.DefaultInterval
	}
	return &Monitor{
		repo: opts.Repo,
		agg: probe.Aggregator{
			Prober:  opts.Prober,
			Samples: samples,
			Quorum:  opts.Config.Quorum,
			Timeout: opts.Config.Timeout,
		},
		resolver: opts.Resolver,
		interval: interval,
		workers:  workers,
		samples:  samples,
		sink:     opts.Sink,
		refresh:  opts.Refresh,
		notifier: opts.Notifier,
		metrics:  opts.Metrics,
		logger:   logger,
		seen:     make(map[string]struct{}),
	}
}

// Run executes cycles until the context is cancelled or Stop is called. The
// in-flight cycle finishes applying its verdicts before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	m.mu.Lock()
	if m.cancel != nil {
		m.mu.Unlock()
		return errors.New("monitor already running")
	}
	runCtx, cancel := context.WithCancel(ctx)
	m.cancel = cancel
	m.mu.Unlock()
	defer func() {
		cancel()
		m.mu.Lock()
		m.cancel = nil
		m.mu.Unlock()
	}()

	m.logger.Info("monitor started",
		zap.Duration("interval", m.interval),
		zap.Int("samples", m.samples),
		zap.Int("quorum", m.agg.Quorum),
		zap.Int("max_workers", m.workers))

	for {
		m.RunCycle(runCtx)

		timer := time.NewTimer(m.interval)
		select {
		case <-runCtx.Done():
			timer.Stop()
			m.logger.Info("monitor stopped")
			return runCtx.Err()
		case <-timer.C:
		}
	}
}

// Stop signals the loop to exit. Cooperative: observed at the next
// run/sleep boundary.
func (m *Monitor) Stop() {
	m.mu.Lock()
	cancel := m.cancel
	m.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// cycleSlot holds one store's per-cycle working state. Each goroutine only
// touches its own index; wg.Wait orders the writes before the apply phase.
type cycleSlot struct {
	addr       string
	dispatched bool
	verdict    probe.Verdict
}

// RunCycle performs one full pass: snapshot, fan-out, ordered apply.
func (m *Monitor) RunCycle(ctx context.Context) {
	snap := m.repo.Snapshot()
	slots := make([]cycleSlot, len(snap.Stores))

	current := make(map[string]struct{}, len(snap.Stores))
	for _, store := range snap.Stores {
		current[store.Number] = struct{}{}
	}
	if m.metrics != nil {
		for number := range m.seen {
			if _, ok := current[number]; !ok {
				m.metrics.Drop(number)
			}
		}
	}
	m.seen = current

	sem := make(chan struct{}, m.workers)
	var wg sync.WaitGroup

	for i, store := range snap.Stores {
		addr := store.IP
		if addr == "" && m.resolver != nil {
			addr, _ = m.resolver.Resolve(store.Number)
		}
		if addr == "" {
			slots[i] = cycleSlot{addr: UnresolvedAddr, verdict: probe.Offline()}
			continue
		}
		slots[i].addr = addr
		slots[i].dispatched = true

		wg.Add(1)
		go func(i int, addr string) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slots[i].verdict = probe.Offline()
					m.logger.Error("probe dispatch panicked",
						zap.String("addr", addr), zap.Any("panic", r))
				}
			}()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				slots[i].verdict = probe.Offline()
				return
			}
			defer func() { <-sem }()

			slots[i].verdict = m.agg.Aggregate(ctx, addr)
		}(i, addr)
	}
	wg.Wait()

	// Verdicts apply in snapshot order, not completion order, so event and
	// log traces are reproducible.
	for i, store := range snap.Stores {
		m.applyVerdict(store.Number, slots[i])
	}

	if m.metrics != nil {
		m.metrics.CycleCompleted()
	}
}

// applyVerdict emits the observation and reconciles one store's status. Any
// fault here is contained to this store; the rest of the cycle proceeds.
func (m *Monitor) applyVerdict(number string, slot cycleSlot) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("verdict handling panicked",
				zap.String("store", number), zap.Any("panic", r))
		}
	}()

	if m.sink != nil {
		m.sink(Event{Number: number, Addr: slot.addr, Verdict: slot.verdict})
	}
	if m.metrics != nil {
		m.metrics.ObserveVerdict(number, slot.addr, slot.verdict)
		if slot.dispatched {
			m.metrics.ObserveFailures(m.samples - slot.verdict.SuccessCount)
		}
	}

	prev, ok := m.repo.SetStatus(number, slot.verdict.Online)
	if !ok {
		// Store was removed while this cycle ran; retire the series the
		// observation above just published.
		if m.metrics != nil {
			m.metrics.Drop(number)
		}
		return
	}

	if !prev.Known {
		m.signalRefresh()
		return
	}
	if prev.Online == slot.verdict.Online {
		return
	}

	m.logger.Info("status change",
		zap.String("store", number),
		zap.String("addr", slot.addr),
		zap.Bool("online", slot.verdict.Online),
		zap.Int("successes", slot.verdict.SuccessCount))
	if m.metrics != nil {
		m.metrics.Flip()
	}
	m.signalRefresh()
	if m.notifier != nil && notify.ShouldNotify(notify.StatusOf(prev.Known, prev.Online), slot.verdict.Online) {
		m.notifier.StatusChanged(number, slot.verdict.Online)
	}
}

func (m *Monitor) signalRefresh() {
	if m.refresh != nil {
		m.refresh()
	}
}
