package metrics

import (
	"math/big"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics tracks settlement activity. A nil receiver is valid and records
// nothing.
type EngineMetrics struct {
	swaps          *prometheus.CounterVec
	auctions       *prometheus.CounterVec
	bids           *prometheus.CounterVec
	settlements    *prometheus.CounterVec
	refundFailures *prometheus.CounterVec
	rewardsClaimed prometheus.Counter
	anchorRolls    prometheus.Counter
	rejected       *prometheus.CounterVec
	poolReserve    *prometheus.GaugeVec
	anchorPrice    prometheus.Gauge
}

var (
	engineOnce     sync.Once
	engineRegistry *EngineMetrics
)

// Engine returns the process-wide metrics registered on the default registerer.
func Engine() *EngineMetrics {
	engineOnce.Do(func() {
		engineRegistry = NewEngineMetrics(prometheus.DefaultRegisterer)
	})
	return engineRegistry
}

// NewEngineMetrics builds and registers a fresh set of collectors.
func NewEngineMetrics(reg prometheus.Registerer) *EngineMetrics {
	m := &EngineMetrics{
		swaps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meltwater_swaps_total",
			Help: "Committed pool swaps by direction.",
		}, []string{"direction"}),
		auctions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meltwater_auctions_initiated_total",
			Help: "Auctions opened by kind.",
		}, []string{"kind"}),
		bids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meltwater_auction_bids_total",
			Help: "Accepted improving bids by kind.",
		}, []string{"kind"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meltwater_auctions_settled_total",
			Help: "Auctions settled by kind.",
		}, []string{"kind"}),
		refundFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meltwater_auction_refund_failures_total",
			Help: "Outbid refunds that could not be delivered, by kind.",
		}, []string{"kind"}),
		rewardsClaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meltwater_rewards_claimed_total",
			Help: "Successful reward claims.",
		}),
		anchorRolls: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "meltwater_anchor_rolls_total",
			Help: "Times the anchor price was re-sampled.",
		}),
		rejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "meltwater_rejected_operations_total",
			Help: "Operations that failed and were rolled back, by operation.",
		}, []string{"op"}),
		poolReserve: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "meltwater_pool_reserve",
			Help: "Pool reserves in whole units by asset.",
		}, []string{"asset"}),
		anchorPrice: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "meltwater_anchor_price",
			Help: "Current anchor price of ICE in H2O.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.swaps,
			m.auctions,
			m.bids,
			m.settlements,
			m.refundFailures,
			m.rewardsClaimed,
			m.anchorRolls,
			m.rejected,
			m.poolReserve,
			m.anchorPrice,
		)
	}
	return m
}

func label(v string) string {
	if v == "" {
		return "unknown"
	}
	return v
}

func (m *EngineMetrics) ObserveSwap(direction string) {
	if m == nil {
		return
	}
	m.swaps.WithLabelValues(label(direction)).Inc()
}

func (m *EngineMetrics) ObserveAuctionInitiated(kind string) {
	if m == nil {
		return
	}
	m.auctions.WithLabelValues(label(kind)).Inc()
}

func (m *EngineMetrics) ObserveBid(kind string) {
	if m == nil {
		return
	}
	m.bids.WithLabelValues(label(kind)).Inc()
}

func (m *EngineMetrics) ObserveSettlement(kind string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(label(kind)).Inc()
}

func (m *EngineMetrics) ObserveRefundFailures(kind string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.refundFailures.WithLabelValues(label(kind)).Add(float64(n))
}

func (m *EngineMetrics) ObserveRewardClaim() {
	if m == nil {
		return
	}
	m.rewardsClaimed.Inc()
}

func (m *EngineMetrics) ObserveAnchorRoll(price *big.Int) {
	if m == nil {
		return
	}
	m.anchorRolls.Inc()
	m.anchorPrice.Set(Whole(price))
}

func (m *EngineMetrics) ObserveRejected(op string) {
	if m == nil {
		return
	}
	m.rejected.WithLabelValues(label(op)).Inc()
}

// SetReserves records both pool reserves.
func (m *EngineMetrics) SetReserves(a, b *big.Int) {
	if m == nil {
		return
	}
	m.poolReserve.WithLabelValues("H2O").Set(Whole(a))
	m.poolReserve.WithLabelValues("ICE").Set(Whole(b))
}

var unit = new(big.Float).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

// Whole converts an 18-decimal fixed-point amount into a float of whole units.
func Whole(v *big.Int) float64 {
	if v == nil {
		return 0
	}
	out, _ := new(big.Float).Quo(new(big.Float).SetInt(v), unit).Float64()
	return out
}
