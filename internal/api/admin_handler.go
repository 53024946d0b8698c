package api

import (
	"context"
	"net/http"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/service"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AdminHandler triggers assignment refreshes and hands out archived reports.
type AdminHandler struct {
	refreshJob service.RefreshJob
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(refreshJob service.RefreshJob) *AdminHandler {
	return &AdminHandler{refreshJob: refreshJob}
}

// RefreshRequest defines the expected JSON for an on-demand refresh.
type RefreshRequest struct {
	Weeks        int      `json:"weeks" binding:"omitempty,min=1,max=52"`
	DryRun       bool     `json:"dryRun"`
	PlayerIDs    []string `json:"playerIds"`
	ExcludeDates []string `json:"excludeDates"` // YYYY-MM-DD
}

// RefreshAssignments handles POST /admin/assignments/refresh. The run is
// limited to the caller's tenant.
func (h *AdminHandler) RefreshAssignments(c *gin.Context) {
	tenantID, err := getTenantFromContext(c)
	if err != nil {
		abortWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	jobReq := service.RefreshJobRequest{Weeks: req.Weeks, DryRun: req.DryRun, TenantID: tenantID}
	for _, hex := range req.PlayerIDs {
		id, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid player ID format: "+hex)
			return
		}
		jobReq.PlayerIDs = append(jobReq.PlayerIDs, id)
	}
	for _, s := range req.ExcludeDates {
		d, err := domain.ParseDate(s)
		if err != nil {
			abortWithError(c, http.StatusBadRequest, "Invalid exclude date, use YYYY-MM-DD: "+s)
			return
		}
		jobReq.ExcludeDates = append(jobReq.ExcludeDates, d)
	}

	// A client disconnect must not defer the rest of the batch; the
	// scheduler's own run deadline still bounds it.
	report, err := h.refreshJob.Run(context.WithoutCancel(c.Request.Context()), jobReq)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// GetReportURL handles GET /admin/refresh-runs/:runId/report-url
func (h *AdminHandler) GetReportURL(c *gin.Context) {
	url, err := h.refreshJob.ReportURL(c.Request.Context(), c.Param("runId"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}
