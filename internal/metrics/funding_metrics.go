package metrics

import (
	"github.com/heterodox-labs/funding-service/pkg/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// FundingMetrics интерфейс для метрик движения средств
type FundingMetrics interface {
	IncDonationSucceeded(labID string)
	IncDonationFailed(labID string)
	IncMembershipCreated(labID string)
	IncMembershipCanceled(labID string)
	IncWebhookEvent(eventType string)
	ObserveDonationAmount(amount float64)
}

type fundingMetrics struct {
	log                *logger.Logger
	donationsTotal     *prometheus.CounterVec
	membershipsTotal   *prometheus.CounterVec
	webhookEventsTotal *prometheus.CounterVec
	donationAmounts    prometheus.Histogram
}

// NewFundingMetrics создает и регистрирует метрики движения средств
func NewFundingMetrics(registry *prometheus.Registry, log *logger.Logger) FundingMetrics {
	donationsTotal := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "funding_donations_total",
			Help: "The total number of donation charges by outcome",
		},
		[]string{"lab_id", "status"},
	)

	membershipsTotal := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "funding_memberships_total",
			Help: "The total number of membership subscription operations",
		},
		[]string{"lab_id", "operation"},
	)

	webhookEventsTotal := promauto.With(registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "funding_webhook_events_total",
			Help: "The total number of processed webhook events by type",
		},
		[]string{"event_type"},
	)

	donationAmounts := promauto.With(registry).NewHistogram(
		prometheus.HistogramOpts{
			Name:    "funding_donation_amount",
			Help:    "Donation amounts distribution in major currency units",
			Buckets: prometheus.ExponentialBuckets(1, 10, 6), // 1, 10, 100, 1000, 10000, 100000
		},
	)

	return &fundingMetrics{
		log:                log,
		donationsTotal:     donationsTotal,
		membershipsTotal:   membershipsTotal,
		webhookEventsTotal: webhookEventsTotal,
		donationAmounts:    donationAmounts,
	}
}

func (m *fundingMetrics) IncDonationSucceeded(labID string) {
	m.donationsTotal.WithLabelValues(labID, "succeeded").Inc()
}

func (m *fundingMetrics) IncDonationFailed(labID string) {
	m.donationsTotal.WithLabelValues(labID, "failed").Inc()
}

func (m *fundingMetrics) IncMembershipCreated(labID string) {
	m.membershipsTotal.WithLabelValues(labID, "created").Inc()
}

func (m *fundingMetrics) IncMembershipCanceled(labID string) {
	m.membershipsTotal.WithLabelValues(labID, "canceled").Inc()
}

func (m *fundingMetrics) IncWebhookEvent(eventType string) {
	m.webhookEventsTotal.WithLabelValues(eventType).Inc()
}

func (m *fundingMetrics) ObserveDonationAmount(amount float64) {
	m.donationAmounts.Observe(amount)
}
