package dto

import (
	"time"

	"github.com/ullaszensar/mealtrackpro/internal/domain"
	"github.com/ullaszensar/mealtrackpro/internal/report"
)

// RangeReportResponse wraps a date-range aggregate.
type RangeReportResponse struct {
	Start string `json:"start"`
	End   string `json:"end"`
	report.Report
}

// SummaryResponse wraps a single-date aggregate.
type SummaryResponse struct {
	Date string `json:"date"`
	report.Report
}

// NewRangeReportResponse formats range bounds as date keys.
func NewRangeReportResponse(start, end time.Time, rep report.Report) RangeReportResponse {
	return RangeReportResponse{
		Start:  start.Format(domain.DateLayout),
		End:    end.Format(domain.DateLayout),
		Report: rep,
	}
}

// NewSummaryResponse formats the summary date.
func NewSummaryResponse(date time.Time, rep report.Report) SummaryResponse {
	return SummaryResponse{Date: date.Format(domain.DateLayout), Report: rep}
}
