package api

import (
	"net/http"
	"time"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/service"

	"github.com/gin-gonic/gin"
)

// defaultListDays is the window served when the query names no end date.
const defaultListDays = 28

// AssignmentHandler serves an athlete's daily assignments.
type AssignmentHandler struct {
	assignmentService service.AssignmentService
	planService       service.AnnualPlanService // player lookup and tenant checks
	now               func() time.Time
}

// NewAssignmentHandler creates a new AssignmentHandler.
func NewAssignmentHandler(assignmentService service.AssignmentService, planService service.AnnualPlanService) *AssignmentHandler {
	return &AssignmentHandler{assignmentService: assignmentService, planService: planService, now: time.Now}
}

// AssignmentListResponse wraps a window of assignments.
type AssignmentListResponse struct {
	From        string                           `json:"from"`
	To          string                           `json:"to"` // Exclusive
	Assignments []domain.DailyTrainingAssignment `json:"assignments"`
}

// ListAssignments handles GET /players/:playerId/assignments?from=&to=
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	athlete, ok := authorizePlayer(c, h.planService)
	if !ok {
		return
	}

	from := domain.DateOf(h.now())
	if s := c.Query("from"); s != "" {
		d, err := domain.ParseDate(s)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid from date, use YYYY-MM-DD")
			return
		}
		from = d
	}
	to := from.AddDate(0, 0, defaultListDays)
	if s := c.Query("to"); s != "" {
		d, err := domain.ParseDate(s)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid to date, use YYYY-MM-DD")
			return
		}
		to = d
	}

	rows, err := h.assignmentService.ListForPlayer(c.Request.Context(), athlete.ID, from, to)
	if err != nil {
		respondError(c, err)
		return
	}
	if rows == nil {
		rows = []domain.DailyTrainingAssignment{}
	}
	c.JSON(http.StatusOK, AssignmentListResponse{
		From:        from.Format(domain.DateLayout),
		To:          to.Format(domain.DateLayout),
		Assignments: rows,
	})
}
