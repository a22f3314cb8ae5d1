package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
	"github.com/ullaszensar/mealtrackpro/internal/report"
	"github.com/ullaszensar/mealtrackpro/internal/service"
)

// DigestWorker periodically logs the headcount summary of the most recent
// meal date that is closed for submission, for kitchen planning.
type DigestWorker struct {
	meals    *service.MealService
	reports  *service.ReportService
	logger   *zap.Logger
	interval time.Duration
}

// NewDigestWorker builds a worker. A non-positive interval disables Run.
func NewDigestWorker(meals *service.MealService, reports *service.ReportService, logger *zap.Logger, interval time.Duration) *DigestWorker {
	return &DigestWorker{meals: meals, reports: reports, logger: logger, interval: interval}
}

// ClosedDate is the latest meal date no longer open for submission.
func (w *DigestWorker) ClosedDate() time.Time {
	return w.meals.EarliestDate().AddDate(0, 0, -1)
}

// RunOnce builds and logs one digest.
func (w *DigestWorker) RunOnce(ctx context.Context) (time.Time, report.Report, error) {
	date := w.ClosedDate()
	rep, err := w.reports.Summary(ctx, date)
	if err != nil {
		w.logger.Error("digest failed", zap.String("meal_date", date.Format(domain.DateLayout)), zap.Error(err))
		return date, report.Report{}, err
	}
	w.logger.Info("meal digest",
		zap.String("meal_date", date.Format(domain.DateLayout)),
		zap.Int("submissions", rep.Submissions),
		zap.Int("adults", rep.Overall.Adults),
		zap.Int("children", rep.Overall.Children),
		zap.Int("total", rep.Overall.Total),
		zap.Int("pending", rep.StatusCounts[domain.SubmissionStatusPending]))
	return date, rep, nil
}

// Run emits a digest every interval until ctx is done.
func (w *DigestWorker) Run(ctx context.Context) {
	if w.interval <= 0 {
		return
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _, _ = w.RunOnce(ctx)
		}
	}
}
