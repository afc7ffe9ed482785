package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"storewatch/internal/probe"
)

func scrape(t *testing.T, c *Collector) string {
	t.Helper()
	server := httptest.NewServer(c.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return string(body)
}

func TestCollectorExposesVerdicts(t *testing.T) {
	c := NewCollector()
	c.ObserveVerdict("0007", "10.0.0.9", probe.Verdict{Online: true, SuccessCount: 3, AvgLatency: 12 * time.Millisecond})
	c.ObserveFailures(1)
	c.ObserveVerdict("0099", "-", probe.Offline())
	c.CycleCompleted()
	c.Flip()

	body := scrape(t, c)
	for _, want := range []string{
		`storewatch_store_up{ip="10.0.0.9",store="0007"} 1`,
		`storewatch_store_up{ip="-",store="0099"} 0`,
		`storewatch_store_latency_seconds{ip="10.0.0.9",store="0007"} 0.012`,
		`storewatch_probes_total{result="success"} 3`,
		`storewatch_probes_total{result="failure"} 1`,
		`storewatch_cycles_total 1`,
		`storewatch_status_flips_total 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q\n%s", want, body)
		}
	}
}

func TestOfflineVerdictLeavesLatencyUntouched(t *testing.T) {
	c := NewCollector()
	c.ObserveVerdict("0099", "-", probe.Offline())

	body := scrape(t, c)
	if strings.Contains(body, `storewatch_store_latency_seconds{ip="-",store="0099"}`) {
		t.Fatalf("offline verdict must not publish a latency series:\n%s", body)
	}
}

func TestDropRemovesStoreSeries(t *testing.T) {
	c := NewCollector()
	c.ObserveVerdict("0007", "10.0.0.9", probe.Verdict{Online: true, SuccessCount: 1, AvgLatency: time.Millisecond})

	c.Drop("0007")
	body := scrape(t, c)
	if strings.Contains(body, `store="0007"`) {
		t.Fatalf("dropped store still exposed:\n%s", body)
	}
}
