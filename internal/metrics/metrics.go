package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Счётчики ключевых бизнес-событий. Регистрируются в дефолтном
// реестре и отдаются хендлером /metrics.
var (
	OffersAccepted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "jobmarket_offers_accepted_total",
		Help: "Количество принятых офферов по видам.",
	}, []string{"kind"})

	MilestonesApproved = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobmarket_milestones_approved_total",
		Help: "Количество одобренных этапов.",
	})

	FundsReleased = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobmarket_escrow_released_total",
		Help: "Количество выплат, переведённых в available.",
	})

	ReleaseSweepErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "jobmarket_release_sweep_errors_total",
		Help: "Количество сбоев свипа выплат.",
	})
)
