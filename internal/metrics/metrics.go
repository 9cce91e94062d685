package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type RaffleMetrics struct {
	operations       *prometheus.CounterVec
	ticketsSold      prometheus.Counter
	proceedsEscrowed prometheus.Counter
	proceedsSettled  prometheus.Counter
	openRaffles      prometheus.Gauge
}

var (
	raffleOnce     sync.Once
	raffleRegistry *RaffleMetrics
)

// Raffle returns the process-wide raffle collectors, registering them with
// the default registry on first use.
func Raffle() *RaffleMetrics {
	raffleOnce.Do(func() {
		raffleRegistry = newRaffleMetrics()
		prometheus.MustRegister(
			raffleRegistry.operations,
			raffleRegistry.ticketsSold,
			raffleRegistry.proceedsEscrowed,
			raffleRegistry.proceedsSettled,
			raffleRegistry.openRaffles,
		)
	})
	return raffleRegistry
}

func newRaffleMetrics() *RaffleMetrics {
	return &RaffleMetrics{
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "qraffle_operations_total",
			Help: "Count of raffle program operations by operation and result.",
		}, []string{"operation", "result"}),
		ticketsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qraffle_tickets_sold_total",
			Help: "Tickets appended to entrant ledgers.",
		}),
		proceedsEscrowed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qraffle_proceeds_escrowed_total",
			Help: "Asset units moved from buyers into raffle escrows.",
		}),
		proceedsSettled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "qraffle_proceeds_settled_total",
			Help: "Asset units moved from raffle escrows to the admin on close.",
		}),
		openRaffles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "qraffle_open_raffles",
			Help: "Raffles seen open by the last settler pass.",
		}),
	}
}

func (m *RaffleMetrics) ObserveOperation(operation, result string) {
	if m == nil {
		return
	}
	if result == "" {
		result = "unknown"
	}
	m.operations.WithLabelValues(operation, result).Inc()
}

func (m *RaffleMetrics) AddTicketsSold(tickets uint32) {
	if m == nil {
		return
	}
	m.ticketsSold.Add(float64(tickets))
}

func (m *RaffleMetrics) AddProceedsEscrowed(amount uint64) {
	if m == nil {
		return
	}
	m.proceedsEscrowed.Add(float64(amount))
}

func (m *RaffleMetrics) AddProceedsSettled(amount uint64) {
	if m == nil {
		return
	}
	m.proceedsSettled.Add(float64(amount))
}

func (m *RaffleMetrics) SetOpenRaffles(count int) {
	if m == nil {
		return
	}
	m.openRaffles.Set(float64(count))
}
