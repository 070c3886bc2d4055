package repository

import (
	"context"
	"sort"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/example/urbanfix/backend/internal/apperr"
	"github.com/example/urbanfix/backend/internal/models"
)

// RequestRepository provides persistence access for MaintenanceRequest entities.
type RequestRepository struct {
	db *gorm.DB
}

// NewRequestRepository constructs a repository using the provided gorm DB.
func NewRequestRepository(db *gorm.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create persists a new request and assigns its id.
func (r *RequestRepository) Create(ctx context.Context, req *models.MaintenanceRequest) error {
	return errors.WithStack(r.db.WithContext(ctx).Create(req).Error)
}

// Save persists the full entity, replacing the resource side table so its
// order matches the in-memory list. Last write wins for full saves.
func (r *RequestRepository) Save(ctx context.Context, req *models.MaintenanceRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Resources").Save(req).Error; err != nil {
			return errors.WithStack(err)
		}
		if err := tx.Where("request_id = ?", req.ID).Delete(&models.RequestResource{}).Error; err != nil {
			return errors.WithStack(err)
		}
		if len(req.Resources) == 0 {
			return nil
		}
		for i := range req.Resources {
			req.Resources[i].ID = 0
			req.Resources[i].RequestID = req.ID
			req.Resources[i].Position = i
		}
		return errors.WithStack(tx.Create(&req.Resources).Error)
	})
}

// FindByID returns the request with its ordered resources.
func (r *RequestRepository) FindByID(ctx context.Context, id int64) (*models.MaintenanceRequest, error) {
	var req models.MaintenanceRequest
	err := r.preloaded(ctx).First(&req, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrapf(apperr.ErrNotFound, "request %d", id)
	}
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &req, nil
}

// ListAll returns every request, highest priority first, ties broken by
// earliest registration.
func (r *RequestRepository) ListAll(ctx context.Context) ([]models.MaintenanceRequest, error) {
	var reqs []models.MaintenanceRequest
	if err := r.preloaded(ctx).Find(&reqs).Error; err != nil {
		return nil, errors.WithStack(err)
	}
	sortForDispatch(reqs)
	return reqs, nil
}

// ListPending returns pending requests in the same dispatch order as ListAll.
func (r *RequestRepository) ListPending(ctx context.Context) ([]models.MaintenanceRequest, error) {
	var reqs []models.MaintenanceRequest
	err := r.preloaded(ctx).Where("status = ?", models.StatusPending).Find(&reqs).Error
	if err != nil {
		return nil, errors.WithStack(err)
	}
	sortForDispatch(reqs)
	return reqs, nil
}

// ListAwaitingFunding returns requests whose funding decision is still open
// and that already carry a financing linkage, for reconciliation sweeps.
func (r *RequestRepository) ListAwaitingFunding(ctx context.Context) ([]models.MaintenanceRequest, error) {
	var reqs []models.MaintenanceRequest
	err := r.db.WithContext(ctx).
		Where("financial_status = ? AND financing_id IS NOT NULL", models.FinancialAwaiting).
		Find(&reqs).Error
	return reqs, errors.WithStack(err)
}

// UpdateFinancialStatus writes only the financial columns of a request. The
// confirmation and reconciliation paths must use this instead of Save so a
// concurrent scheduling write is never overwritten.
func (r *RequestRepository) UpdateFinancialStatus(ctx context.Context, id int64, status models.FinancialStatus, financingID *int64) error {
	updates := map[string]any{"financial_status": status}
	if financingID != nil {
		updates["financing_id"] = *financingID
	}
	res := r.db.WithContext(ctx).
		Model(&models.MaintenanceRequest{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return errors.WithStack(res.Error)
	}
	if res.RowsAffected == 0 {
		return errors.Wrapf(apperr.ErrNotFound, "request %d", id)
	}
	return nil
}

func (r *RequestRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Resources", func(db *gorm.DB) *gorm.DB {
		return db.Order("position asc")
	})
}

func sortForDispatch(reqs []models.MaintenanceRequest) {
	sort.SliceStable(reqs, func(i, j int) bool {
		if a, b := reqs[i].Priority.Rank(), reqs[j].Priority.Rank(); a != b {
			return a > b
		}
		return reqs[i].RegisteredAt.Before(reqs[j].RegisteredAt)
	})
}
