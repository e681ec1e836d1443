package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	slotWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_slot_writes_total",
			Help: "Slot rows created, updated or deleted by the pricing engine",
		},
		[]string{"op", "type"},
	)

	reservedSkips = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_slot_reserved_skips_total",
			Help: "Slot writes skipped because the slot is reserved",
		},
		[]string{"type"},
	)

	checkouts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_checkouts_total",
			Help: "Checkout attempts by result",
		},
		[]string{"result"},
	)

	gatewayFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "arena_gateway_failures_total",
			Help: "Payment gateway calls that failed and were swallowed",
		},
		[]string{"provider"},
	)

	latePayments = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "arena_late_payments_total",
			Help: "Payments received after their booking was released",
		},
	)

	checkoutDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "arena_checkout_duration_seconds",
			Help:    "Time spent inside the checkout transaction",
			Buckets: prometheus.ExponentialBuckets(0.005, 2, 12),
		},
	)
)

func SlotWrites(slotType string, created, updated, deleted int) {
	slotWrites.WithLabelValues("create", slotType).Add(float64(created))
	slotWrites.WithLabelValues("update", slotType).Add(float64(updated))
	slotWrites.WithLabelValues("delete", slotType).Add(float64(deleted))
}

func ReservedSkips(slotType string, n int) {
	if n > 0 {
		reservedSkips.WithLabelValues(slotType).Add(float64(n))
	}
}

func Checkout(result string, seconds float64) {
	checkouts.WithLabelValues(result).Inc()
	checkoutDuration.Observe(seconds)
}

func GatewayFailure(provider string) {
	gatewayFailures.WithLabelValues(provider).Inc()
}

func LatePayment() {
	latePayments.Inc()
}
