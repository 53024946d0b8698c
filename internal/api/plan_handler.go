package api

import (
	"net/http"
	"time"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PlanHandler serves annual plan generation, revision and lookup.
type PlanHandler struct {
	planService service.AnnualPlanService
}

// NewPlanHandler creates a new PlanHandler.
func NewPlanHandler(planService service.AnnualPlanService) *PlanHandler {
	return &PlanHandler{planService: planService}
}

// --- DTOs ---

// PhaseShareRequest is one entry of a custom phase mix.
type PhaseShareRequest struct {
	Phase         string  `json:"phase" binding:"required"`
	Proportion    float64 `json:"proportion" binding:"gte=0"`
	WeeklyHours   float64 `json:"weeklyHours" binding:"gte=0"`
	LearningPhase string  `json:"learningPhase"`
}

// TournamentRequest places a competition in the generated season.
type TournamentRequest struct {
	Name       string `json:"name"`
	Date       string `json:"date" binding:"required"` // YYYY-MM-DD
	Importance string `json:"importance" binding:"required,oneof=A B C"`
}

// GeneratePlanRequest defines the expected JSON for generating a plan.
// All fields are optional: 52 weeks from this week's Monday with the
// standard mix and no tournaments.
type GeneratePlanRequest struct {
	Weeks       int                 `json:"weeks" binding:"omitempty,min=1,max=52"`
	SeasonStart string              `json:"seasonStart" binding:"omitempty"` // YYYY-MM-DD
	Mix         []PhaseShareRequest `json:"mix" binding:"omitempty,dive"`
	Tournaments []TournamentRequest `json:"tournaments" binding:"omitempty,dive"`
}

// ReviseWeeksRequest carries corrections to the current plan.
type ReviseWeeksRequest struct {
	Revisions []service.WeekRevision `json:"revisions" binding:"required,min=1,dive"`
}

// GenerateAnnualPlan handles POST /players/:playerId/annual-plans
func (h *PlanHandler) GenerateAnnualPlan(c *gin.Context) {
	athlete, ok := authorizePlayer(c, h.planService)
	if !ok {
		return
	}

	var req GeneratePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	in := service.GeneratePlanInput{PlayerID: athlete.ID, Weeks: req.Weeks}
	if in.Weeks == 0 {
		in.Weeks = service.MaxSeasonWeeks
	}
	if req.SeasonStart != "" {
		start, err := domain.ParseDate(req.SeasonStart)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid seasonStart format, use YYYY-MM-DD")
			return
		}
		in.SeasonStart = start
	}
	for _, share := range req.Mix {
		phase, known := domain.ParsePhaseType(share.Phase)
		if !known {
			abortWithError(c, http.StatusBadRequest, "Unknown phase: "+share.Phase)
			return
		}
		in.Mix = append(in.Mix, service.PhaseShare{
			Phase:         phase,
			Proportion:    share.Proportion,
			WeeklyHours:   share.WeeklyHours,
			LearningPhase: share.LearningPhase,
		})
	}
	for _, tr := range req.Tournaments {
		day, err := domain.ParseDate(tr.Date)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid tournament date, use YYYY-MM-DD: "+tr.Date)
			return
		}
		in.Tournaments = append(in.Tournaments, service.TournamentInput{
			Name:       tr.Name,
			Date:       day,
			Importance: domain.TournamentImportance(tr.Importance),
		})
	}

	outcome, err := h.planService.GeneratePlan(c.Request.Context(), in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, outcome)
}

// GetAnnualPlan handles GET /players/:playerId/annual-plan
func (h *PlanHandler) GetAnnualPlan(c *gin.Context) {
	athlete, ok := authorizePlayer(c, h.planService)
	if !ok {
		return
	}
	schedule, err := h.planService.CurrentSchedule(c.Request.Context(), athlete.ID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// ReviseWeeks handles POST /players/:playerId/periodization/revisions
func (h *PlanHandler) ReviseWeeks(c *gin.Context) {
	athlete, ok := authorizePlayer(c, h.planService)
	if !ok {
		return
	}

	var req ReviseWeeksRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	rows, err := h.planService.ReviseWeeks(c.Request.Context(), athlete.ID, req.Revisions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"revisions": rows, "revisedAt": time.Now().UTC()})
}

// authorizePlayer resolves :playerId and checks the caller may see it.
// Athletes of another tenant are reported as missing. Players may only
// reach their own records.
func authorizePlayer(c *gin.Context, plans service.AnnualPlanService) (*domain.Athlete, bool) {
	playerID, err := primitive.ObjectIDFromHex(c.Param("playerId"))
	if err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid player ID format")
		return nil, false
	}
	tenantID, err := getTenantFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	role, err := getUserRoleFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	if role == domain.RolePlayer {
		userID, err := getUserIDFromContext(c)
		if err != nil || userID != playerID.Hex() {
			abortWithError(c, http.StatusForbidden, "Players may only access their own plan")
			return nil, false
		}
	}

	athlete, err := plans.GetPlayer(c.Request.Context(), playerID)
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	if athlete.TenantID != tenantID {
		respondError(c, domain.NewNotFoundError(domain.ErrPlayerNotFound, playerID.Hex()))
		return nil, false
	}
	return athlete, true
}
