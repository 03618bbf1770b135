package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	ratescheduledomain "github.com/smallbiznis/affilia/internal/rateschedule/domain"
)

func (s *Server) GetRateSchedule(c *gin.Context) {
	schedule, err := s.rateSvc.Current(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"levels": schedule}})
}

type replaceRateScheduleRequest struct {
	Levels []ratescheduledomain.LevelInput `json:"levels"`
}

func (s *Server) ReplaceRateSchedule(c *gin.Context) {
	var req replaceRateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	schedule, err := s.rateSvc.Replace(c.Request.Context(), req.Levels)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"levels": schedule}})
}
