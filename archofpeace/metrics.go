package archofpeace

import (
	"github.com/monuverse/arch-of-peace-contract/types/episode"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	metricsNamespace = "monuverse"
	subsystem        = "arch_of_peace"
)

var (
	// Mint metrics
	mintAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "mint_attempts_total",
			Help:      "Total number of mint attempts",
		},
		[]string{"path", "status"}, // path: "open", "restricted"; status: "success", "rejected"
	)

	mintRejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "mint_rejections_total",
			Help:      "Total number of rejected mints by reason",
		},
		[]string{"reason"},
	)

	tokensMintedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "tokens_minted_total",
			Help:      "Total number of tokens minted",
		},
		[]string{"chapter"},
	)

	totalSupply = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "total_supply",
			Help:      "Number of tokens in existence",
		},
	)

	// Episode metrics
	transitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "chapter_transitions_total",
			Help:      "Total number of chapter transitions",
		},
		[]string{"event"},
	)

	// Reveal metrics
	revealRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "reveal_requests_total",
			Help:      "Total number of reveal requests",
		},
		[]string{"status"}, // status: "success", "error"
	)

	revealFulfillmentsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: subsystem,
			Name:      "reveal_fulfillments_total",
			Help:      "Total number of randomness fulfillments",
		},
		[]string{"status"}, // status: "success", "error"
	)
)

var rejectionReasons = []struct {
	err    error
	reason string
}{
	{episode.ErrNoMintChapter, "no_mint_chapter"},
	{episode.ErrSenderNotWhitelisted, "sender_not_whitelisted"},
	{episode.ErrQuantityNotAllowed, "quantity_not_allowed"},
	{episode.ErrGroupNotAllowed, "group_not_allowed"},
	{episode.ErrOfferUnmatched, "offer_unmatched"},
	{episode.ErrNotInstalled, "not_installed"},
}

func rejectionReason(err error) string {
	for _, r := range rejectionReasons {
		if errors.Is(err, r.err) {
			return r.reason
		}
	}
	return "other"
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
