package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/everforgeworks/protocell/internal/game"
)

func newEngine(t *testing.T) *game.Engine {
	t.Helper()
	cfg, err := game.LoadConfig("../../protocell.yaml")
	require.NoError(t, err)
	e, err := game.NewEngine(cfg, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return e
}

func TestCollector_TracksNotifications(t *testing.T) {
	e := newEngine(t)
	c := New()
	e.SetObserver(c)

	for i := 0; i < 15; i++ {
		require.NoError(t, e.Synthesize("rna"))
	}
	require.NoError(t, e.PurchaseUpgrade("organelle"))
	require.True(t, e.Tick(time.Second))

	assert.Equal(t, 15.0, testutil.ToFloat64(c.notifications.WithLabelValues("click")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues("unlock")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.notifications.WithLabelValues("purchase")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.level.WithLabelValues("organelle")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.rate.WithLabelValues("rna")))
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.amount.WithLabelValues("rna")), 1e-9)
	assert.Equal(t, 100.0, testutil.ToFloat64(c.capacity.WithLabelValues("rna")))
}

func TestCollector_Handler(t *testing.T) {
	e := newEngine(t)
	c := New()
	e.SetObserver(c)
	require.NoError(t, e.Synthesize("rna"))

	rec := httptest.NewRecorder()
	c.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `protocell_notifications_total{reason="click"} 1`)
	assert.Contains(t, string(body), `protocell_resource_amount{resource="rna"} 1`)
}
