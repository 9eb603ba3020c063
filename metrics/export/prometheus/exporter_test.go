package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"

	goIdentity "github.com/MrEthical07/goIdentity"
	"github.com/MrEthical07/goIdentity/metrics/export/internaldefs"
)

type fakeSource struct {
	snapshot goIdentity.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() goIdentity.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                        { return f.dropped }

func gather(t *testing.T, c *Collector) map[string]*dto.MetricFamily {
	t.Helper()
	reg := prometheus.NewPedanticRegistry()
	if err := reg.Register(c); err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, f := range families {
		out[f.GetName()] = f
	}
	return out
}

func TestCollectorExportsCountersAndHistograms(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goIdentity.MetricsSnapshot{
			Counters: map[goIdentity.MetricID]uint64{
				goIdentity.MetricLoginSuccess: 7,
				goIdentity.MetricOTPIssued:    3,
			},
			Histograms: map[goIdentity.MetricID][]uint64{
				goIdentity.MetricOTPVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	families := gather(t, c)

	if got := families["goidentity_login_success_total"].GetMetric()[0].GetCounter().GetValue(); got != 7 {
		t.Fatalf("login_success: got %v, want 7", got)
	}
	if got := families["goidentity_otp_issued_total"].GetMetric()[0].GetCounter().GetValue(); got != 3 {
		t.Fatalf("otp_issued: got %v, want 3", got)
	}
	if got := families[internaldefs.AuditDroppedName].GetMetric()[0].GetCounter().GetValue(); got != 2 {
		t.Fatalf("audit dropped: got %v, want 2", got)
	}

	h := families["goidentity_otp_verify_latency_seconds"].GetMetric()[0].GetHistogram()
	if h.GetSampleCount() != 36 {
		t.Fatalf("histogram count: got %d, want 36", h.GetSampleCount())
	}
	first := h.GetBucket()[0]
	if first.GetUpperBound() != 0.005 || first.GetCumulativeCount() != 1 {
		t.Fatalf("first bucket: got le=%v count=%d", first.GetUpperBound(), first.GetCumulativeCount())
	}
}

func TestCollectorDescribesEveryDefinition(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{})
	want := len(internaldefs.CounterDefs) + len(internaldefs.HistogramDefs) + 1
	if got := testutil.CollectAndCount(c); got != want {
		t.Fatalf("CollectAndCount: got %d, want %d", got, want)
	}
}

func TestHandlerServesExposition(t *testing.T) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goIdentity.MetricsSnapshot{
			Counters: map[goIdentity.MetricID]uint64{goIdentity.MetricRateLimitHit: 4},
		},
	})

	rec := httptest.NewRecorder()
	Handler(c).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "goidentity_rate_limit_hit_total 4") {
		t.Fatalf("expected rate limit counter in body, got:\n%s", rec.Body.String())
	}
}

func BenchmarkCollect(b *testing.B) {
	c := NewCollectorFromSource(fakeSource{
		snapshot: goIdentity.MetricsSnapshot{
			Counters: map[goIdentity.MetricID]uint64{
				goIdentity.MetricLoginSuccess: 1000,
				goIdentity.MetricLoginFailure: 40,
				goIdentity.MetricOTPIssued:    800,
			},
			Histograms: map[goIdentity.MetricID][]uint64{
				goIdentity.MetricTokenValidateLatency: {10, 20, 30, 40, 50, 60, 70, 80},
			},
		},
	})
	ch := make(chan prometheus.Metric, 64)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Collect(ch)
		for len(ch) > 0 {
			<-ch
		}
	}
}
