package worker

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/example/urbanfix/backend/internal/models"
)

// PendingLister exposes the requests a sweep should look at.
type PendingLister interface {
	ListAwaitingFunding(ctx context.Context) ([]models.MaintenanceRequest, error)
}

// Reconciler applies a financing sync for one request.
type Reconciler interface {
	Reconcile(ctx context.Context, id int64) (*models.MaintenanceRequest, error)
}

// ReconcileWorker periodically sweeps requests that are awaiting a funding
// decision and have a linked financing transaction, pulling their current
// status from the finance portal.
type ReconcileWorker struct {
	id         string
	store      PendingLister
	reconciler Reconciler
	interval   time.Duration
	log        *logrus.Logger
}

// NewReconcileWorker creates the worker with a random identifier.
func NewReconcileWorker(store PendingLister, reconciler Reconciler, interval time.Duration, log *logrus.Logger) *ReconcileWorker {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &ReconcileWorker{
		id:         uuid.New().String(),
		store:      store,
		reconciler: reconciler,
		interval:   interval,
		log:        log,
	}
}

// Run starts the polling loop and should be launched in its own goroutine.
func (w *ReconcileWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.WithField("worker", w.id).Info("reconcile worker shutting down")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

func (w *ReconcileWorker) sweep(ctx context.Context) {
	reqs, err := w.store.ListAwaitingFunding(ctx)
	if err != nil {
		w.log.WithError(err).Error("list awaiting-funding requests failed")
		return
	}
	for _, req := range reqs {
		if _, err := w.reconciler.Reconcile(ctx, req.ID); err != nil {
			// Failures are logged and retried on the next tick, never within one.
			w.log.WithError(err).WithField("requestId", req.ID).Warn("reconcile failed")
			continue
		}
		w.log.WithField("requestId", req.ID).Debug("financing status reconciled")
	}
}
