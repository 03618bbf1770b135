package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	applicationdomain "github.com/smallbiznis/affilia/internal/application/domain"
)

type createApplicationRequest struct {
	ReferenceID   string `json:"reference_id"`
	FundingAmount string `json:"funding_amount"`
}

func (s *Server) CreateApplication(c *gin.Context) {
	var req createApplicationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.appSvc.Create(c.Request.Context(), applicationdomain.CreateRequest{
		ReferenceID:   strings.TrimSpace(req.ReferenceID),
		FundingAmount: strings.TrimSpace(req.FundingAmount),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetApplicationByID(c *gin.Context) {
	resp, err := s.appSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveApplication(c *gin.Context) {
	resp, err := s.appSvc.Approve(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListApplicationCommissions(c *gin.Context) {
	commissions, err := s.engineSvc.ListByApplication(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"commissions": commissions}})
}
