package metrics

import (
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Collector) float64 {
	t.Helper()
	ch := make(chan prometheus.Metric, 1)
	c.Collect(ch)
	var out dto.Metric
	require.NoError(t, (<-ch).Write(&out))
	if out.Counter != nil {
		return out.Counter.GetValue()
	}
	return out.Gauge.GetValue()
}

func TestEngineMetricsRecord(t *testing.T) {
	m := NewEngineMetrics(prometheus.NewRegistry())
	m.ObserveSwap("a_to_b")
	m.ObserveSwap("a_to_b")
	m.ObserveRefundFailures("positive", 2)
	m.ObserveRefundFailures("positive", 0)
	m.ObserveRejected("")
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
	m.ObserveAnchorRoll(new(big.Int).Mul(big.NewInt(3), unit))

	require.Equal(t, 2.0, counterValue(t, m.swaps.WithLabelValues("a_to_b")))
	require.Equal(t, 2.0, counterValue(t, m.refundFailures.WithLabelValues("positive")))
	require.Equal(t, 1.0, counterValue(t, m.rejected.WithLabelValues("unknown")))
	require.Equal(t, 1.0, counterValue(t, m.anchorRolls))
	require.Equal(t, 3.0, counterValue(t, m.anchorPrice))
}

func TestNilEngineMetricsIsSafe(t *testing.T) {
	var m *EngineMetrics
	m.ObserveSwap("a_to_b")
	m.SetReserves(big.NewInt(1), big.NewInt(2))
	m.ObserveAnchorRoll(nil)
}

func TestWhole(t *testing.T) {
	require.Equal(t, 0.0, Whole(nil))
	half := new(big.Int).Exp(big.NewInt(10), big.NewInt(17), nil)
	require.InDelta(t, 0.1, Whole(half), 1e-12)
}
