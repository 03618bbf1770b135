package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/affilia/pkg/db/pagination"
)

type RecordRequest struct {
	Code        string
	IPAddress   string
	UserAgent   string
	LandingPage string
}

type ListRequest struct {
	PageToken   string
	PageSize    int32
	AffiliateID string
	Code        string
}

type ListResponse struct {
	pagination.PageInfo
	Clicks []Click `json:"clicks"`
}

// Service is the append-only click ledger. Repeated clicks from the same
// visitor are all recorded; rate and fraud filtering live elsewhere.
type Service interface {
	Record(context.Context, RecordRequest) (Click, error)
	MarkConverted(ctx context.Context, clickID, leadID string) error
	List(context.Context, ListRequest) (ListResponse, error)
}

var (
	ErrInvalidID = errors.New("invalid_id")
	ErrNotFound  = errors.New("not_found")
)
