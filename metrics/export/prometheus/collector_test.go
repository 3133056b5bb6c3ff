package prometheus

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	authcore "github.com/ForwardAfrica/authcore"
	"github.com/ForwardAfrica/authcore/store"
)

type fakeSource struct {
	snapshot authcore.MetricsSnapshot
	dropped  uint64
}

func (f fakeSource) MetricsSnapshot() authcore.MetricsSnapshot { return f.snapshot }
func (f fakeSource) AuditDropped() uint64                      { return f.dropped }

func scrape(t *testing.T, source Source) string {
	t.Helper()
	srv := httptest.NewServer(Handler(source))
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	if err != nil {
		t.Fatalf("scrape: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(body)
}

func TestCollectorExportsCountersAndHistogram(t *testing.T) {
	out := scrape(t, fakeSource{
		snapshot: authcore.MetricsSnapshot{
			Counters: map[authcore.MetricID]uint64{
				authcore.MetricLoginSuccess:         7,
				authcore.MetricRefreshReuseDetected: 1,
			},
			Histograms: map[authcore.MetricID][]uint64{
				authcore.MetricVerifyLatency: {1, 2, 3, 4, 5, 6, 7, 8},
			},
		},
		dropped: 2,
	})

	for _, want := range []string{
		"authcore_login_success_total 7",
		"authcore_refresh_reuse_detected_total 1",
		`authcore_verify_latency_seconds_bucket{le="0.005"} 1`,
		`authcore_verify_latency_seconds_bucket{le="0.5"} 28`,
		"authcore_verify_latency_seconds_count 36",
		"authcore_audit_dropped_total 2",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in scrape output, got:\n%s", want, out)
		}
	}
}

func TestCollectorOverEngine(t *testing.T) {
	cfg := authcore.DefaultConfig()
	cfg.Token.SigningMethod = "hs256"
	cfg.Token.PrivateKey = []byte("0123456789abcdef0123456789abcdef")

	engine, err := authcore.New().
		WithConfig(cfg).
		WithAccountStore(store.NewMemoryStore()).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	defer engine.Close()

	engine.VerifyAccess(context.Background(), "not a token")

	out := scrape(t, engine)
	if !strings.Contains(out, "authcore_verify_failure_total 1") {
		t.Fatalf("expected live engine counter in output, got:\n%s", out)
	}
	if !strings.Contains(out, "authcore_audit_dropped_total 0") {
		t.Fatalf("expected dropped counter in output, got:\n%s", out)
	}
}
