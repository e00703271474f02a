package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.CaseEvent("ADMITTED")
		m.SlotExhausted()
		m.SnapshotScore("IVI", "ENTRY", 3, 10)
		m.PublishError("redis")
		m.HTTPRequest("/x", 200, time.Millisecond)
	})
}

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := New()
	m.CaseEvent("ADMITTED")
	m.CaseEvent("ADMITTED")
	m.SlotExhausted()
	m.SnapshotScore("IVI", "ENTRY", 9, 20)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.caseEvents.WithLabelValues("ADMITTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.slotExhausted))

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()
	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `vaac_case_events_total{kind="ADMITTED"} 2`)
	assert.Contains(t, string(body), "vaac_snapshot_score_bucket")
}
