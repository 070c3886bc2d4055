package service

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/example/urbanfix/backend/internal/apperr"
	"github.com/example/urbanfix/backend/internal/models"
	"github.com/example/urbanfix/backend/internal/mq"
)

// ReconcileService pulls the current financing status from the finance portal
// and corrects local state.
type ReconcileService struct {
	store   RequestStore
	finance FinancePortal
	events  mq.Publisher
	log     *logrus.Logger
}

// NewReconcileService builds the reconciliation service.
func NewReconcileService(store RequestStore, finance FinancePortal, events mq.Publisher, log *logrus.Logger) *ReconcileService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReconcileService{store: store, finance: finance, events: events, log: log}
}

// Reconcile queries the portal for the request's linked financing transaction
// and writes the result through the narrow financial-status update. A full
// save is deliberately avoided here: a concurrent scheduling write must not
// be overwritten by stale fields read before the portal round-trip.
func (s *ReconcileService) Reconcile(ctx context.Context, id int64) (*models.MaintenanceRequest, error) {
	req, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FinancingID == nil {
		return nil, errors.Wrapf(apperr.ErrNoFinancingLinked, "request %d", id)
	}

	status, err := s.finance.QueryFinancingStatus(ctx, *req.FinancingID)
	if err != nil {
		return nil, err
	}
	if err := s.store.UpdateFinancialStatus(ctx, id, status, req.FinancingID); err != nil {
		return nil, err
	}
	req.FinancialStatus = status

	if s.events != nil {
		payload := map[string]any{
			"event":           "request.financing_synced",
			"requestId":       req.ID,
			"financialStatus": status,
		}
		if err := s.events.Publish(ctx, "request.financing_synced", payload); err != nil {
			s.log.WithError(err).Warn("publish sync event failed")
		}
	}
	return req, nil
}
