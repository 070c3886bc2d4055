package service

import (
	"context"

	"github.com/example/urbanfix/backend/internal/models"
)

// CitizenPortal is the outbound contract to the participation system's
// report listing. The used-id set is passed explicitly so the client stays
// free of store dependencies.
type CitizenPortal interface {
	ListApprovedReports(ctx context.Context, usedReportIDs map[int64]struct{}) ([]models.CitizenReport, error)
}

// CitizenReportService lists approved citizen reports that are still
// unconverted, joining portal data with the local request store.
type CitizenReportService struct {
	store  RequestStore
	portal CitizenPortal
}

// NewCitizenReportService builds the service.
func NewCitizenReportService(store RequestStore, portal CitizenPortal) *CitizenReportService {
	return &CitizenReportService{store: store, portal: portal}
}

// ApprovedReports returns approved reports not yet tied to a request.
func (s *CitizenReportService) ApprovedReports(ctx context.Context) ([]models.CitizenReport, error) {
	all, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	used := make(map[int64]struct{}, len(all))
	for _, req := range all {
		if req.ExternalReportID != nil {
			used[*req.ExternalReportID] = struct{}{}
		}
	}
	return s.portal.ListApprovedReports(ctx, used)
}
