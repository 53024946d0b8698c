package api

import (
	"net/http"

	"golfacademy/training-planner/internal/domain" // Needed for RoleMiddleware
	"golfacademy/training-planner/internal/logger"
	"golfacademy/training-planner/internal/service"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(
	router *gin.Engine,
	jwtSecret string,
	planService service.AnnualPlanService,
	assignmentService service.AssignmentService,
	refreshJob service.RefreshJob,
	log *logger.Logger,
) {
	planHandler := NewPlanHandler(planService)
	assignmentHandler := NewAssignmentHandler(assignmentService, planService)
	adminHandler := NewAdminHandler(refreshJob)

	router.Use(RequestLogger(log))

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})

	apiV1 := router.Group("/api/v1")
	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(jwtSecret))
	{
		protected.GET("/me", func(c *gin.Context) {
			userIDStr, err := getUserIDFromContext(c)
			if err != nil {
				abortWithError(c, http.StatusInternalServerError, "Failed to get user ID from token")
				return
			}
			role, _ := getUserRoleFromContext(c)
			tenantID, _ := getTenantFromContext(c)
			c.JSON(http.StatusOK, gin.H{"userId": userIDStr, "role": role, "tenantId": tenantID.Hex()})
		})

		// --- Player Routes ---
		// Players may read their own plan and assignments; coaches and admins
		// manage any athlete of their tenant.
		playerGroup := protected.Group("/players/:playerId")
		{
			staff := RoleMiddleware(domain.RoleCoach, domain.RoleAdmin)
			anyone := RoleMiddleware(domain.RoleCoach, domain.RoleAdmin, domain.RolePlayer)

			// POST /api/v1/players/{playerId}/annual-plans
			playerGroup.POST("/annual-plans", staff, planHandler.GenerateAnnualPlan)
			// GET /api/v1/players/{playerId}/annual-plan
			playerGroup.GET("/annual-plan", anyone, planHandler.GetAnnualPlan)
			// POST /api/v1/players/{playerId}/periodization/revisions
			playerGroup.POST("/periodization/revisions", staff, planHandler.ReviseWeeks)
			// GET /api/v1/players/{playerId}/assignments?from=YYYY-MM-DD&to=YYYY-MM-DD
			playerGroup.GET("/assignments", anyone, assignmentHandler.ListAssignments)
		}

		// --- Admin Routes ---
		adminGroup := protected.Group("/admin")
		adminGroup.Use(RoleMiddleware(domain.RoleAdmin))
		{
			adminGroup.POST("/assignments/refresh", adminHandler.RefreshAssignments)
			adminGroup.GET("/refresh-runs/:runId/report-url", adminHandler.GetReportURL)
		}
	}
}
