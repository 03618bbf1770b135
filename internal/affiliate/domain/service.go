package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/affilia/pkg/db/pagination"
)

type RegisterRequest struct {
	Name           string
	Email          string
	Code           string
	Tier           string
	SponsorID      string
	PaymentMethod  string
	PaymentDetails map[string]any
}

type ListRequest struct {
	PageToken string
	PageSize  int32
	Status    string
	Tier      string
}

type ListResponse struct {
	pagination.PageInfo
	Affiliates []Affiliate `json:"affiliates"`
}

// Service is the referral code registry plus the affiliate lifecycle the
// surrounding admin tooling drives.
type Service interface {
	Register(context.Context, RegisterRequest) (Affiliate, error)
	Approve(ctx context.Context, id string) (Affiliate, error)
	Suspend(ctx context.Context, id string) (Affiliate, error)

	// ResolveCode resolves a referral code to an approved affiliate.
	// Unknown codes yield ErrCodeNotFound; codes owned by pending or
	// suspended affiliates yield ErrAffiliateIneligible so callers can
	// log the two cases differently.
	ResolveCode(ctx context.Context, code string) (Affiliate, error)

	GetByID(ctx context.Context, id string) (Affiliate, error)
	List(context.Context, ListRequest) (ListResponse, error)
}

var (
	ErrInvalidName         = errors.New("invalid_name")
	ErrInvalidEmail        = errors.New("invalid_email")
	ErrInvalidTier         = errors.New("invalid_tier")
	ErrInvalidID           = errors.New("invalid_id")
	ErrInvalidCode         = errors.New("invalid_code")
	ErrNotFound            = errors.New("not_found")
	ErrCodeNotFound        = errors.New("code_not_found")
	ErrAffiliateIneligible = errors.New("affiliate_ineligible")
	ErrCodeTaken           = errors.New("code_taken")
	ErrSponsorNotFound     = errors.New("sponsor_not_found")
	ErrSelfSponsorship     = errors.New("self_sponsorship")
	ErrSponsorDepth        = errors.New("sponsor_depth_exceeded")
	ErrCycleDetected       = errors.New("cycle_detected")
	ErrInvalidTransition   = errors.New("invalid_status_transition")
)
