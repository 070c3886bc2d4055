package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/example/urbanfix/backend/internal/apperr"
	"github.com/example/urbanfix/backend/internal/models"
	"github.com/example/urbanfix/backend/internal/service"
)

const dateLayout = "2006-01-02"

// Server wraps the gin engine and collaborators needed to handle API requests.
type Server struct {
	Engine    *gin.Engine
	lifecycle *service.LifecycleService
	reconcile *service.ReconcileService
	citizen   *service.CitizenReportService
	log       *logrus.Logger
}

// NewServer constructs a new API server and registers routes.
func NewServer(lifecycle *service.LifecycleService, reconcile *service.ReconcileService, citizen *service.CitizenReportService, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	router := gin.Default()
	srv := &Server{Engine: router, lifecycle: lifecycle, reconcile: reconcile, citizen: citizen, log: log}
	srv.registerRoutes()
	return srv
}

func (s *Server) registerRoutes() {
	s.Engine.POST("/requests", s.registerRequest)
	s.Engine.GET("/requests", s.listRequests)
	s.Engine.GET("/requests/pending", s.listPending)
	s.Engine.PUT("/requests/:id/status", s.changeStatus)
	s.Engine.POST("/requests/:id/schedule", s.scheduleRequest)
	s.Engine.POST("/requests/:id/financing", s.requestFinancing)
	s.Engine.PUT("/requests/:id/financing/sync", s.syncFinancing)
	s.Engine.POST("/finance/events/confirmation", s.financeConfirmation)
	s.Engine.GET("/finance/requests", s.listFinanceRequests)
	s.Engine.GET("/participation/approved-reports", s.approvedReports)
}

func (s *Server) registerRequest(c *gin.Context) {
	var payload struct {
		Type             string `json:"type"`
		Description      string `json:"description"`
		Location         string `json:"location"`
		Priority         string `json:"priority"`
		Source           string `json:"source"`
		ExternalReportID *int64 `json:"externalReportId"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, err := s.lifecycle.Register(c.Request.Context(), service.RegisterInput{
		Type:             payload.Type,
		Description:      payload.Description,
		Location:         payload.Location,
		Priority:         payload.Priority,
		Source:           payload.Source,
		ExternalReportID: payload.ExternalReportID,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, req)
}

func (s *Server) listRequests(c *gin.Context) {
	reqs, err := s.lifecycle.ListAll(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

func (s *Server) listPending(c *gin.Context) {
	reqs, err := s.lifecycle.ListPending(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reqs)
}

func (s *Server) changeStatus(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	target, ok := models.ParseStatus(c.Query("status"))
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status value"})
		return
	}
	req, err := s.lifecycle.ChangeStatusManually(c.Request.Context(), id, target)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.notify(c, req)
	c.Status(http.StatusOK)
}

func (s *Server) scheduleRequest(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	var payload struct {
		StartDate string   `json:"startDate" binding:"required"`
		Crew      string   `json:"crew"`
		Resources []string `json:"resources"`
	}
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	start, err := time.Parse(dateLayout, payload.StartDate)
	if err != nil {
		if start, err = time.Parse(time.RFC3339, payload.StartDate); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "startDate must be YYYY-MM-DD"})
			return
		}
	}

	req, err := s.lifecycle.Schedule(c.Request.Context(), id, service.ScheduleInput{
		StartDate: start,
		Crew:      payload.Crew,
		Resources: payload.Resources,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.notify(c, req)
	c.Status(http.StatusOK)
}

func (s *Server) requestFinancing(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	var details models.FinancingRequest
	if err := c.ShouldBindJSON(&details); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	req, resp, err := s.lifecycle.RequestFinancing(c.Request.Context(), id, details)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.notify(c, req)
	c.JSON(http.StatusOK, resp)
}

func (s *Server) syncFinancing(c *gin.Context) {
	id, ok := s.pathID(c)
	if !ok {
		return
	}
	req, err := s.reconcile.Reconcile(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.notify(c, req)
	c.Status(http.StatusNoContent)
}

func (s *Server) financeConfirmation(c *gin.Context) {
	var event models.FinanceConfirmation
	if err := c.ShouldBindJSON(&event); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	req, err := s.lifecycle.ConfirmFinancing(c.Request.Context(), event)
	if err != nil {
		s.writeError(c, err)
		return
	}
	s.notify(c, req)
	c.Status(http.StatusOK)
}

func (s *Server) listFinanceRequests(c *gin.Context) {
	items, err := s.lifecycle.ListFinancingRequests(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, items)
}

func (s *Server) approvedReports(c *gin.Context) {
	reports, err := s.citizen.ApprovedReports(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (s *Server) pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// notify pushes a state-change notification after a successful mutation.
// Notification failures are logged, never surfaced to the API caller.
func (s *Server) notify(c *gin.Context, req *models.MaintenanceRequest) {
	if err := s.lifecycle.NotifyIfApplicable(c.Request.Context(), req); err != nil {
		s.log.WithError(err).WithField("requestId", req.ID).Warn("state-change notification failed")
	}
}

func (s *Server) writeError(c *gin.Context, err error) {
	switch {
	case apperr.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case apperr.IsInvalidInput(err):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case apperr.IsForbidden(err):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case apperr.IsIntegration(err):
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	default:
		s.log.WithError(err).Error("unhandled error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
