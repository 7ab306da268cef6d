package service

import (
	"github.com/kirinyoku/parkgo/internal/service/facility"
	"github.com/kirinyoku/parkgo/internal/service/query"
)

// Services is what the transport layer calls into: the facility service
// for every mutation and the query service for reads.
type Services struct {
	Facility *facility.Service
	Query    *query.Service
}

func NewServices(f *facility.Service, q *query.Service) *Services {
	return &Services{
		Facility: f,
		Query:    q,
	}
}
