package service

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/example/urbanfix/backend/internal/apperr"
	"github.com/example/urbanfix/backend/internal/models"
	"github.com/example/urbanfix/backend/internal/mq"
)

// RequestStore is the persistence contract consumed by the services.
type RequestStore interface {
	Create(ctx context.Context, req *models.MaintenanceRequest) error
	Save(ctx context.Context, req *models.MaintenanceRequest) error
	FindByID(ctx context.Context, id int64) (*models.MaintenanceRequest, error)
	ListAll(ctx context.Context) ([]models.MaintenanceRequest, error)
	ListPending(ctx context.Context) ([]models.MaintenanceRequest, error)
	UpdateFinancialStatus(ctx context.Context, id int64, status models.FinancialStatus, financingID *int64) error
}

// FinancePortal is the outbound contract to the finance system.
type FinancePortal interface {
	SubmitFinancingRequest(ctx context.Context, fr models.FinancingRequest) (*models.FinancingResponse, error)
	QueryFinancingStatus(ctx context.Context, financingID int64) (models.FinancialStatus, error)
	ListRequests(ctx context.Context) ([]models.FinanceQueueItem, error)
}

// NotificationGateway pushes state-change notifications to the participation system.
type NotificationGateway interface {
	SendStatusNotification(ctx context.Context, n models.StatusNotification) error
}

// Statuses on either axis that warrant a notification to the citizen portal.
var (
	notifiableStatuses = map[models.Status]bool{
		models.StatusProgrammed: true,
		models.StatusCompleted:  true,
	}
	notifiableFinancial = map[models.FinancialStatus]bool{
		models.FinancialApproved: true,
		models.FinancialFunded:   true,
	}
)

// Operational statuses an administrator may set directly, bypassing the
// normal transition guards.
var manualTargets = map[models.Status]bool{
	models.StatusCancelled: true,
	models.StatusFinalized: true,
	models.StatusCompleted: true,
	models.StatusPending:   true,
}

// LifecycleService enforces the maintenance-request state machine.
type LifecycleService struct {
	store    RequestStore
	finance  FinancePortal
	notifier NotificationGateway
	events   mq.Publisher
	log      *logrus.Logger
}

// NewLifecycleService builds a service with dependencies. The event publisher
// may be nil, in which case no events are emitted.
func NewLifecycleService(store RequestStore, finance FinancePortal, notifier NotificationGateway, events mq.Publisher, log *logrus.Logger) *LifecycleService {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &LifecycleService{store: store, finance: finance, notifier: notifier, events: events, log: log}
}

// RegisterInput carries the fields of a new maintenance request.
type RegisterInput struct {
	Type             string
	Description      string
	Location         string
	Priority         string
	Source           string
	ExternalReportID *int64
}

// Register creates a request in its initial state. No external calls happen here.
func (s *LifecycleService) Register(ctx context.Context, in RegisterInput) (*models.MaintenanceRequest, error) {
	for _, f := range []struct{ name, value string }{
		{"type", in.Type},
		{"description", in.Description},
		{"location", in.Location},
		{"source", in.Source},
	} {
		if strings.TrimSpace(f.value) == "" {
			return nil, errors.Wrap(apperr.ErrMissingField, f.name)
		}
	}
	priority, ok := models.ParsePriority(strings.ToUpper(in.Priority))
	if !ok {
		return nil, errors.Wrap(apperr.ErrInvalidPriority, in.Priority)
	}

	req := &models.MaintenanceRequest{
		Type:             in.Type,
		Description:      in.Description,
		Location:         in.Location,
		Priority:         priority,
		Status:           models.StatusPending,
		FinancialStatus:  models.FinancialPending,
		Source:           in.Source,
		ExternalReportID: in.ExternalReportID,
		RegisteredAt:     time.Now().UTC(),
	}
	if err := s.store.Create(ctx, req); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, "request.registered", req)
	return req, nil
}

// ScheduleInput carries the operational planning data for a request.
type ScheduleInput struct {
	StartDate time.Time
	Crew      string
	Resources []string
}

// Schedule programs a funded, pending request. Scheduling fields are set once
// and stay fixed; there is no reschedule operation.
func (s *LifecycleService) Schedule(ctx context.Context, id int64, in ScheduleInput) (*models.MaintenanceRequest, error) {
	req, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.FinancialStatus != models.FinancialFunded {
		return nil, errors.Wrapf(apperr.ErrNotFunded, "request %d is %s", id, req.FinancialStatus)
	}
	if req.Status != models.StatusPending {
		return nil, errors.Wrapf(apperr.ErrAlreadyScheduled, "request %d", id)
	}
	if dateOnly(in.StartDate).Before(dateOnly(time.Now())) {
		return nil, errors.Wrapf(apperr.ErrInvalidDate, "start %s", in.StartDate.Format("2006-01-02"))
	}
	if strings.TrimSpace(in.Crew) == "" {
		return nil, errors.WithStack(apperr.ErrMissingCrew)
	}

	start := in.StartDate
	req.Status = models.StatusProgrammed
	req.ScheduledStart = &start
	req.AssignedCrew = in.Crew
	req.Resources = models.NewResources(in.Resources)
	if err := s.store.Save(ctx, req); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, "request.scheduled", req)
	return req, nil
}

// RequestFinancing submits a funding application for a scheduled request and
// records the portal's decision.
func (s *LifecycleService) RequestFinancing(ctx context.Context, id int64, details models.FinancingRequest) (*models.MaintenanceRequest, *models.FinancingResponse, error) {
	req, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if req.Status != models.StatusProgrammed {
		return nil, nil, errors.Wrapf(apperr.ErrNotScheduled, "request %d is %s", id, req.Status)
	}

	resp, err := s.finance.SubmitFinancingRequest(ctx, details)
	if err != nil {
		return nil, nil, err
	}
	if resp == nil {
		return nil, nil, errors.Wrap(apperr.ErrIntegration, "finance portal returned no response")
	}

	if resp.Status == models.FinancialApproved {
		req.FinancialStatus = models.FinancialFunded
	} else {
		req.FinancialStatus = models.FinancialAwaiting
	}
	if fid := parseFinancingID(resp.TransactionID); fid != nil {
		req.FinancingID = fid
	} else {
		s.log.WithField("transactionId", resp.TransactionID).Warn("finance transaction id is not numeric, financing linkage not stored")
	}
	if err := s.store.Save(ctx, req); err != nil {
		return nil, nil, err
	}
	s.publishEvent(ctx, "request.financing_requested", req)
	return req, resp, nil
}

// ConfirmFinancing applies an asynchronous funding decision pushed by the
// finance system. It sets the financial status exactly to the event's status,
// independent of the request's operational state, through the narrow
// field-level write so concurrent scheduling saves are never clobbered.
func (s *LifecycleService) ConfirmFinancing(ctx context.Context, event models.FinanceConfirmation) (*models.MaintenanceRequest, error) {
	if _, ok := models.ParseFinancialStatus(string(event.Status)); !ok {
		return nil, errors.Wrap(apperr.ErrInvalidStatus, string(event.Status))
	}
	req, err := s.store.FindByID(ctx, event.RequestID)
	if err != nil {
		return nil, err
	}

	financingID := parseFinancingID(event.TransactionID)
	if err := s.store.UpdateFinancialStatus(ctx, event.RequestID, event.Status, financingID); err != nil {
		return nil, err
	}
	req.FinancialStatus = event.Status
	if financingID != nil {
		req.FinancingID = financingID
	}
	s.publishEvent(ctx, "request.financing_confirmed", req)
	return req, nil
}

// ChangeStatusManually sets the operational status directly. This is an
// administrative override for exception handling outside the automated flow;
// only a fixed set of target statuses is allowed.
func (s *LifecycleService) ChangeStatusManually(ctx context.Context, id int64, target models.Status) (*models.MaintenanceRequest, error) {
	req, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !manualTargets[target] {
		return nil, errors.Wrapf(apperr.ErrForbiddenStatus, "target %s", target)
	}
	req.Status = target
	if err := s.store.Save(ctx, req); err != nil {
		return nil, err
	}
	s.publishEvent(ctx, "request.status_changed", req)
	return req, nil
}

// NotifyIfApplicable pushes a state-change notification when the request is
// in a notifiable operational or financial state. It never mutates the request.
func (s *LifecycleService) NotifyIfApplicable(ctx context.Context, req *models.MaintenanceRequest) error {
	if req == nil {
		return nil
	}
	if !notifiableStatuses[req.Status] && !notifiableFinancial[req.FinancialStatus] {
		return nil
	}
	return s.notifier.SendStatusNotification(ctx, models.StatusNotification{
		RequestID:  req.ID,
		Status:     req.Status,
		ModifiedAt: time.Now().UTC(),
	})
}

// ListPending returns pending requests in dispatch order.
func (s *LifecycleService) ListPending(ctx context.Context) ([]models.MaintenanceRequest, error) {
	return s.store.ListPending(ctx)
}

// ListAll returns every request in dispatch order.
func (s *LifecycleService) ListAll(ctx context.Context) ([]models.MaintenanceRequest, error) {
	return s.store.ListAll(ctx)
}

// ListFinancingRequests proxies the finance portal's funding request queue.
func (s *LifecycleService) ListFinancingRequests(ctx context.Context) ([]models.FinanceQueueItem, error) {
	return s.finance.ListRequests(ctx)
}

func (s *LifecycleService) publishEvent(ctx context.Context, event string, req *models.MaintenanceRequest) {
	if s.events == nil {
		return
	}
	payload := map[string]any{
		"eventId":         uuid.New().String(),
		"event":           event,
		"requestId":       req.ID,
		"status":          req.Status,
		"financialStatus": req.FinancialStatus,
		"priority":        req.Priority,
		"occurredAt":      time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.events.Publish(ctx, event, payload); err != nil {
		s.log.WithError(err).WithField("event", event).Warn("publish event failed")
	}
}

func parseFinancingID(transactionID string) *int64 {
	if transactionID == "" {
		return nil
	}
	id, err := strconv.ParseInt(transactionID, 10, 64)
	if err != nil {
		return nil
	}
	return &id
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
