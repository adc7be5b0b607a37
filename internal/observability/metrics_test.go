package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestMetrics_Record(t *testing.T) {
	m := NewMetrics()
	m.RecordSpin(false, "", 2*time.Second)
	m.RecordSpin(true, "purple", 3*time.Second)
	m.RecordSpin(true, "purple", 3*time.Second)
	m.RecordRejected("in_progress")
	m.RecordBalance(130000)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.spins.WithLabelValues("loss")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.spins.WithLabelValues("win")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.wins.WithLabelValues("purple")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rejected.WithLabelValues("in_progress")))
	assert.Equal(t, 130000.0, testutil.ToFloat64(m.balance))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RecordBalance(90000)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "slot_balance 90000")
}

func TestMetricsServer_StartStop(t *testing.T) {
	m := NewMetrics()
	m.RecordRejected("insufficient_balance")
	s := NewMetricsServer("127.0.0.1:0", "/metrics", m, zaptest.NewLogger(t))

	done := make(chan error, 1)
	go func() { done <- s.Start() }()
	require.Eventually(t, func() bool { return s.Addr() != nil }, 2*time.Second, 5*time.Millisecond)

	resp, err := http.Get("http://" + s.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Contains(t, string(body), `slot_spins_rejected_total{reason="insufficient_balance"} 1`)

	s.Stop()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("metrics server did not stop")
	}
}
