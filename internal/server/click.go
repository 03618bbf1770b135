package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	clickdomain "github.com/smallbiznis/affilia/internal/click/domain"
	"github.com/smallbiznis/affilia/pkg/db/pagination"
)

type recordClickRequest struct {
	Code        string `json:"code"`
	LandingPage string `json:"landing_page"`
}

func (s *Server) RecordClick(c *gin.Context) {
	var req recordClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.clickSvc.Record(c.Request.Context(), clickdomain.RecordRequest{
		Code:        strings.TrimSpace(req.Code),
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		LandingPage: strings.TrimSpace(req.LandingPage),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListClicks(c *gin.Context) {
	var query struct {
		pagination.Pagination
		AffiliateID string `form:"affiliate_id"`
		Code        string `form:"code"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.clickSvc.List(c.Request.Context(), clickdomain.ListRequest{
		PageToken:   query.PageToken,
		PageSize:    int32(query.PageSize),
		AffiliateID: strings.TrimSpace(query.AffiliateID),
		Code:        strings.TrimSpace(query.Code),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

type convertClickRequest struct {
	LeadID string `json:"lead_id"`
}

func (s *Server) ConvertClick(c *gin.Context) {
	var req convertClickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	err := s.clickSvc.MarkConverted(c.Request.Context(), strings.TrimSpace(c.Param("id")), strings.TrimSpace(req.LeadID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"converted": true}})
}
