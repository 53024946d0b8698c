package api

import (
	"errors"
	"net/http"

	"golfacademy/training-planner/internal/domain"
	"golfacademy/training-planner/internal/service"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	var (
		cfgErr *domain.ConfigurationError
		nfErr  *domain.NotFoundError
	)
	switch {
	case errors.As(err, &cfgErr):
		abortWithError(c, http.StatusBadRequest, err.Error())
	case errors.As(err, &nfErr), errors.Is(err, service.ErrRunNotFound):
		abortWithError(c, http.StatusNotFound, err.Error())
	case errors.Is(err, service.ErrReportNotArchived):
		abortWithError(c, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrStorageUnavailable):
		_ = c.Error(err)
		abortWithError(c, http.StatusServiceUnavailable, "Storage is unavailable")
	default:
		_ = c.Error(err)
		abortWithError(c, http.StatusInternalServerError, "Internal server error")
	}
}
