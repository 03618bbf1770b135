package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	attributiondomain "github.com/smallbiznis/affilia/internal/attribution/domain"
)

type attributeRequest struct {
	ApplicationID string `json:"application_id"`
	ReferenceID   string `json:"reference_id"`
	ReferralCode  string `json:"referral_code"`
	FundingAmount string `json:"funding_amount"`
	ClickID       string `json:"click_id"`
}

// Attribute drives the conversion workflow. Terminal failures surface as
// HTTP errors; a deferred outcome is a 202 so the caller knows a retry
// record now exists.
func (s *Server) Attribute(c *gin.Context) {
	var req attributeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.FundingAmount))
	if err != nil {
		AbortWithError(c, newValidationError("funding_amount", "invalid_funding_amount", "invalid funding amount"))
		return
	}

	result, err := s.engineSvc.Attribute(c.Request.Context(), attributiondomain.AttributeRequest{
		ApplicationID: strings.TrimSpace(req.ApplicationID),
		ReferenceID:   strings.TrimSpace(req.ReferenceID),
		ReferralCode:  strings.TrimSpace(req.ReferralCode),
		FundingAmount: amount,
		ClickID:       strings.TrimSpace(req.ClickID),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	status := http.StatusOK
	if result.Outcome == attributiondomain.OutcomeDeferred {
		status = http.StatusAccepted
	}
	c.JSON(status, gin.H{"data": result})
}
