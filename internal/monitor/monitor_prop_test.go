package monitor

import (
	"context"
	"encoding/binary"
	"fmt"
	"hash/fnv"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"storewatch/internal/config"
	"storewatch/internal/model"
	"storewatch/internal/probe"
	"storewatch/internal/repo"
)

// Property: whatever order probes complete in, the sink sees every store
// exactly once per cycle, in ascending store-number order.
func TestPropertySinkOrderIsDeterministic(t *testing.T) {
	params := gopter.DefaultTestParameters()
	params.MinSuccessfulTests = 30
	props := gopter.NewProperties(params)

	props.Property("events follow snapshot order", prop.ForAll(
		func(count int, workers int, seed int64) bool {
			stores := make([]model.Store, count)
			for i := range stores {
				stores[i] = model.Store{
					Number: fmt.Sprintf("%04d", i+1),
					IP:     fmt.Sprintf("192.0.2.%d", i+1),
				}
			}

			// Per-address jitter scrambles completion order; derived from the
			// seed without shared state so concurrent probes stay race-free.
			prober := proberFunc(func(ctx context.Context, addr string, timeout time.Duration) probe.Result {
				h := fnv.New64a()
				h.Write([]byte(addr))
				binary.Write(h, binary.LittleEndian, seed)
				v := h.Sum64()
				time.Sleep(time.Duration(v%3) * time.Millisecond)
				return probe.Result{Success: v%2 == 0, Elapsed: time.Millisecond}
			})

			cfg := config.Default()
			cfg.Interval = time.Millisecond
			cfg.Timeout = 50 * time.Millisecond
			cfg.MaxWorkers = workers

			rec := &eventRecorder{}
			m := New(Options{Repo: repo.New(stores), Prober: prober, Config: cfg, Sink: rec.sink})
			m.RunCycle(context.Background())

			events := rec.all()
			if len(events) != count {
				return false
			}
			for i, ev := range events {
				if ev.Number != fmt.Sprintf("%04d", i+1) {
					return false
				}
			}
			return true
		},
		gen.IntRange(1, 12),
		gen.IntRange(1, 4),
		gen.Int64(),
	))

	props.TestingRun(t)
}
