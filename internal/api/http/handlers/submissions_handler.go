package handlers

import (
	"sort"

	"github.com/gofiber/fiber/v2"

	"github.com/ullaszensar/mealtrackpro/internal/api/dto"
	"github.com/ullaszensar/mealtrackpro/internal/auth"
	"github.com/ullaszensar/mealtrackpro/internal/domain"
	"github.com/ullaszensar/mealtrackpro/internal/service"
	apperrors "github.com/ullaszensar/mealtrackpro/pkg/util/errorutil"
)

// SubmissionsHandler manages meal submission endpoints.
type SubmissionsHandler struct {
	service *service.MealService
}

// NewSubmissionsHandler constructs handler.
func NewSubmissionsHandler(mealService *service.MealService) *SubmissionsHandler {
	return &SubmissionsHandler{service: mealService}
}

// Create POST /api/meal-submissions.
func (h *SubmissionsHandler) Create(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	req, err := dto.DecodeCreateSubmission(c.Body())
	if err != nil {
		return err
	}
	counts := make(map[domain.MealType]service.CountInput, len(req.Counts))
	for mt, v := range req.Counts {
		counts[mt] = service.CountInput{
			AdultCount:          v.AdultCount,
			ChildCount:          v.ChildCount,
			SpecialRequirements: v.SpecialRequirements,
		}
	}
	sub, err := h.service.Create(c.UserContext(), principal.User.ID, service.SubmissionCreateInput{
		MealDate: req.MealDate,
		Notes:    req.Notes,
		Counts:   counts,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"data": dto.NewSubmissionResponse(sub)})
}

// List GET /api/meal-submissions. Administrators see every submission, staff only their own.
func (h *SubmissionsHandler) List(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var (
		subs []domain.Submission
		err  error
	)
	if principal.User.Role.CanViewAllSubmissions() {
		subs, err = h.service.ListAll(c.UserContext())
	} else {
		subs, err = h.service.ListByUser(c.UserContext(), principal.User.ID)
	}
	if err != nil {
		return err
	}
	sortNewestFirst(subs)
	return c.JSON(fiber.Map{"data": dto.NewSubmissionList(subs)})
}

// ListByDate GET /api/meal-submissions/date/:date.
func (h *SubmissionsHandler) ListByDate(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	date, err := h.service.ParseDate(c.Params("date"))
	if err != nil {
		return err
	}
	subs, err := h.service.ListByDate(c.UserContext(), date)
	if err != nil {
		return err
	}
	if !principal.User.Role.CanViewAllSubmissions() {
		subs = ownedBy(subs, principal.User.ID)
	}
	sortNewestFirst(subs)
	return c.JSON(fiber.Map{"data": dto.NewSubmissionList(subs)})
}

// Window GET /api/meal-submissions/window.
func (h *SubmissionsHandler) Window(c *fiber.Ctx) error {
	v := h.service.Window()
	return c.JSON(fiber.Map{"data": dto.WindowResponse{
		Earliest:   h.service.EarliestDate().Format(domain.DateLayout),
		CutoffHour: v.CutoffHour,
		Timezone:   v.Location.String(),
		MealTypes:  h.service.MealTypes(),
	}})
}

// Get GET /api/meal-submissions/:id. Staff may only read their own submissions.
func (h *SubmissionsHandler) Get(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	sub, err := h.service.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	if !principal.User.Role.CanViewAllSubmissions() && sub.UserID != principal.User.ID {
		return apperrors.NewForbidden("submission belongs to another user")
	}
	return c.JSON(fiber.Map{"data": dto.NewSubmissionResponse(sub)})
}

// History GET /api/meal-submissions/:id/history.
func (h *SubmissionsHandler) History(c *fiber.Ctx) error {
	changes, err := h.service.History(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewStatusChangeList(changes)})
}

// UpdateStatus PATCH /api/meal-submissions/:id/status.
func (h *SubmissionsHandler) UpdateStatus(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	var req dto.UpdateStatusRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	sub, err := h.service.Transition(c.UserContext(), principal.User, c.Params("id"), req.Status)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewSubmissionResponse(sub)})
}

func ownedBy(subs []domain.Submission, userID string) []domain.Submission {
	owned := subs[:0]
	for _, s := range subs {
		if s.UserID == userID {
			owned = append(owned, s)
		}
	}
	return owned
}

// sortNewestFirst orders by meal date descending, then submission time descending.
func sortNewestFirst(subs []domain.Submission) {
	sort.SliceStable(subs, func(i, j int) bool {
		ki, kj := subs[i].MealDateKey(), subs[j].MealDateKey()
		if ki != kj {
			return ki > kj
		}
		return subs[i].SubmittedAt.After(subs[j].SubmittedAt)
	})
}
