package service

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/example/urbanfix/backend/internal/apperr"
	"github.com/example/urbanfix/backend/internal/models"
)

// fakeStore is an in-memory RequestStore that records write traffic so tests
// can assert which persistence path an operation used.
type fakeStore struct {
	mu       sync.Mutex
	requests map[int64]models.MaintenanceRequest
	nextID   int64

	saves       int
	narrowCalls []narrowCall
}

type narrowCall struct {
	id          int64
	status      models.FinancialStatus
	financingID *int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{requests: map[int64]models.MaintenanceRequest{}}
}

func (f *fakeStore) put(req models.MaintenanceRequest) models.MaintenanceRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	if req.ID == 0 {
		f.nextID++
		req.ID = f.nextID
	} else if req.ID > f.nextID {
		f.nextID = req.ID
	}
	f.requests[req.ID] = req
	return req
}

func (f *fakeStore) Create(_ context.Context, req *models.MaintenanceRequest) error {
	*req = f.put(*req)
	return nil
}

func (f *fakeStore) Save(_ context.Context, req *models.MaintenanceRequest) error {
	f.mu.Lock()
	f.saves++
	f.mu.Unlock()
	*req = f.put(*req)
	return nil
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (*models.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return nil, errors.Wrapf(apperr.ErrNotFound, "request %d", id)
	}
	copied := req
	return &copied, nil
}

func (f *fakeStore) ListAll(_ context.Context) ([]models.MaintenanceRequest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.MaintenanceRequest, 0, len(f.requests))
	for _, req := range f.requests {
		out = append(out, req)
	}
	return out, nil
}

func (f *fakeStore) ListPending(ctx context.Context) ([]models.MaintenanceRequest, error) {
	all, _ := f.ListAll(ctx)
	out := all[:0]
	for _, req := range all {
		if req.Status == models.StatusPending {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeStore) ListAwaitingFunding(ctx context.Context) ([]models.MaintenanceRequest, error) {
	all, _ := f.ListAll(ctx)
	out := all[:0]
	for _, req := range all {
		if req.FinancialStatus == models.FinancialAwaiting && req.FinancingID != nil {
			out = append(out, req)
		}
	}
	return out, nil
}

func (f *fakeStore) UpdateFinancialStatus(_ context.Context, id int64, status models.FinancialStatus, financingID *int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	req, ok := f.requests[id]
	if !ok {
		return errors.Wrapf(apperr.ErrNotFound, "request %d", id)
	}
	f.narrowCalls = append(f.narrowCalls, narrowCall{id: id, status: status, financingID: financingID})
	req.FinancialStatus = status
	if financingID != nil {
		req.FinancingID = financingID
	}
	f.requests[id] = req
	return nil
}

// fakeFinance stubs the finance portal.
type fakeFinance struct {
	submitResp *models.FinancingResponse
	submitErr  error
	submitted  []models.FinancingRequest

	queryStatus models.FinancialStatus
	queryErr    error
	queried     []int64

	queue []models.FinanceQueueItem
}

func (f *fakeFinance) SubmitFinancingRequest(_ context.Context, fr models.FinancingRequest) (*models.FinancingResponse, error) {
	f.submitted = append(f.submitted, fr)
	return f.submitResp, f.submitErr
}

func (f *fakeFinance) QueryFinancingStatus(_ context.Context, financingID int64) (models.FinancialStatus, error) {
	f.queried = append(f.queried, financingID)
	return f.queryStatus, f.queryErr
}

func (f *fakeFinance) ListRequests(_ context.Context) ([]models.FinanceQueueItem, error) {
	return f.queue, nil
}

// fakeGateway counts dispatched notifications.
type fakeGateway struct {
	sent []models.StatusNotification
	err  error
}

func (f *fakeGateway) SendStatusNotification(_ context.Context, n models.StatusNotification) error {
	f.sent = append(f.sent, n)
	return f.err
}

// fakePublisher records lifecycle events.
type fakePublisher struct {
	events []string
}

func (f *fakePublisher) Publish(_ context.Context, routingKey string, _ any) error {
	f.events = append(f.events, routingKey)
	return nil
}

// fakeCitizenPortal records the used-id set it was handed.
type fakeCitizenPortal struct {
	reports  []models.CitizenReport
	usedSeen map[int64]struct{}
}

func (f *fakeCitizenPortal) ListApprovedReports(_ context.Context, used map[int64]struct{}) ([]models.CitizenReport, error) {
	f.usedSeen = used
	return f.reports, nil
}
