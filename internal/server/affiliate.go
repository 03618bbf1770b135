package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	affiliatedomain "github.com/smallbiznis/affilia/internal/affiliate/domain"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
)

type registerAffiliateRequest struct {
	Name           string         `json:"name"`
	Email          string         `json:"email"`
	Code           string         `json:"code"`
	Tier           string         `json:"tier"`
	SponsorID      string         `json:"sponsor_id"`
	PaymentMethod  string         `json:"payment_method"`
	PaymentDetails map[string]any `json:"payment_details"`
}

func (s *Server) RegisterAffiliate(c *gin.Context) {
	var req registerAffiliateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.affiliateSvc.Register(c.Request.Context(), affiliatedomain.RegisterRequest{
		Name:           strings.TrimSpace(req.Name),
		Email:          strings.TrimSpace(req.Email),
		Code:           strings.TrimSpace(req.Code),
		Tier:           strings.TrimSpace(req.Tier),
		SponsorID:      strings.TrimSpace(req.SponsorID),
		PaymentMethod:  strings.TrimSpace(req.PaymentMethod),
		PaymentDetails: req.PaymentDetails,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAffiliates(c *gin.Context) {
	var query struct {
		pagination.Pagination
		Status string `form:"status"`
		Tier   string `form:"tier"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.affiliateSvc.List(c.Request.Context(), affiliatedomain.ListRequest{
		PageToken: query.PageToken,
		PageSize:  int32(query.PageSize),
		Status:    strings.TrimSpace(query.Status),
		Tier:      strings.TrimSpace(query.Tier),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetAffiliateByID(c *gin.Context) {
	resp, err := s.affiliateSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ApproveAffiliate(c *gin.Context) {
	resp, err := s.affiliateSvc.Approve(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) SuspendAffiliate(c *gin.Context) {
	resp, err := s.affiliateSvc.Suspend(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListAffiliateCommissions(c *gin.Context) {
	var query struct {
		pagination.Pagination
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	commissions, err := s.engineSvc.ListByAffiliate(
		c.Request.Context(),
		strings.TrimSpace(c.Param("id")),
		query.PageToken,
		int32(query.PageSize),
	)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"commissions": commissions}})
}
