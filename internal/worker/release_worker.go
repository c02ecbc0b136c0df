package worker

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ignatzorin/jobmarket-backend/internal/metrics"
)

// PaymentReleaser выпускает созревшие выплаты.
type PaymentReleaser interface {
	ReleaseDuePayments(ctx context.Context, now time.Time) (int, error)
}

// ReleaseWorker периодически переводит выплаты с истёкшим периодом
// удержания в available. Свип идемпотентен, поэтому интервал и
// перезапуски безопасны: незавершённый проход доделает следующий.
type ReleaseWorker struct {
	payments PaymentReleaser
	interval time.Duration
	log      *logrus.Entry
}

// NewReleaseWorker создаёт воркер выплат.
func NewReleaseWorker(payments PaymentReleaser, interval time.Duration, log *logrus.Entry) *ReleaseWorker {
	return &ReleaseWorker{
		payments: payments,
		interval: interval,
		log:      log,
	}
}

// Run крутит свип до отмены контекста. Блокирует вызывающего.
func (w *ReleaseWorker) Run(ctx context.Context) {
	w.log.WithField("interval", w.interval.String()).Info("воркер выплат запущен")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Первый проход сразу после старта: выплаты могли созреть,
	// пока сервис не работал.
	w.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			w.log.Info("воркер выплат остановлен")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ReleaseWorker) sweep(ctx context.Context) {
	released, err := w.payments.ReleaseDuePayments(ctx, time.Now())
	if err != nil {
		metrics.ReleaseSweepErrors.Inc()
		w.log.WithError(err).Error("свип выплат завершился ошибкой")
		return
	}
	if released > 0 {
		w.log.WithField("released", released).Info("выплаты переведены в available")
	}
}
