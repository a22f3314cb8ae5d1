package service

import (
	"context"
	"time"

	"github.com/ullaszensar/mealtrackpro/internal/report"
)

// ReportService builds headcount reports over stored submissions.
type ReportService struct {
	meals *MealService
}

// RangeReport is the aggregate for an inclusive date range.
type RangeReport struct {
	Start time.Time
	End   time.Time
	report.Report
}

// NewReportService constructs the service on top of the meal workflow queries.
func NewReportService(meals *MealService) *ReportService {
	return &ReportService{meals: meals}
}

// Range aggregates every submission with start <= meal date <= end, grouped by date.
func (s *ReportService) Range(ctx context.Context, start, end time.Time) (*RangeReport, error) {
	subs, err := s.meals.ListByRange(ctx, start, end)
	if err != nil {
		return nil, err
	}
	return &RangeReport{
		Start:  start,
		End:    end,
		Report: report.Aggregate(subs, report.GroupByDate, s.meals.MealTypes()),
	}, nil
}

// Summary aggregates the submissions of a single meal date.
func (s *ReportService) Summary(ctx context.Context, date time.Time) (report.Report, error) {
	subs, err := s.meals.ListByDate(ctx, date)
	if err != nil {
		return report.Report{}, err
	}
	return report.Aggregate(subs, report.GroupNone, s.meals.MealTypes()), nil
}
