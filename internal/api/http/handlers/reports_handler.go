package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ullaszensar/mealtrackpro/internal/api/dto"
	"github.com/ullaszensar/mealtrackpro/internal/service"
	apperrors "github.com/ullaszensar/mealtrackpro/pkg/util/errorutil"
)

// ReportsHandler serves headcount reports.
type ReportsHandler struct {
	reports *service.ReportService
	meals   *service.MealService
}

// NewReportsHandler constructs handler.
func NewReportsHandler(reports *service.ReportService, meals *service.MealService) *ReportsHandler {
	return &ReportsHandler{reports: reports, meals: meals}
}

// Range GET /api/reports/range?start=YYYY-MM-DD&end=YYYY-MM-DD.
func (h *ReportsHandler) Range(c *fiber.Ctx) error {
	startRaw, endRaw := c.Query("start"), c.Query("end")
	if startRaw == "" || endRaw == "" {
		return apperrors.NewValidationError("start and end are required", nil)
	}
	start, err := h.meals.ParseDate(startRaw)
	if err != nil {
		return err
	}
	end, err := h.meals.ParseDate(endRaw)
	if err != nil {
		return err
	}
	rep, err := h.reports.Range(c.UserContext(), start, end)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewRangeReportResponse(rep.Start, rep.End, rep.Report)})
}

// Summary GET /api/reports/summary?date=YYYY-MM-DD. Defaults to the earliest open date.
func (h *ReportsHandler) Summary(c *fiber.Ctx) error {
	date := h.meals.EarliestDate()
	if raw := c.Query("date"); raw != "" {
		parsed, err := h.meals.ParseDate(raw)
		if err != nil {
			return err
		}
		date = parsed
	}
	rep, err := h.reports.Summary(c.UserContext(), date)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSummaryResponse(date, rep)})
}
