package models

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// Priority orders maintenance requests for dispatch. Higher rank wins.
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

// ParsePriority maps an input string to a known priority.
func ParsePriority(s string) (Priority, bool) {
	switch Priority(s) {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return Priority(s), true
	}
	return "", false
}

// Rank returns the total ordering used for list sorting: LOW < MEDIUM < HIGH.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Status is the operational life-cycle stage of the physical work.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProgrammed Status = "PROGRAMMED"
	StatusCompleted  Status = "COMPLETED"
	StatusFinalized  Status = "FINALIZED"
	StatusCancelled  Status = "CANCELLED"
)

// ParseStatus maps an input string to a known operational status.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusPending, StatusProgrammed, StatusCompleted, StatusFinalized, StatusCancelled:
		return Status(s), true
	}
	return "", false
}

// FinancialStatus is the funding stage, an axis independent of Status.
type FinancialStatus string

const (
	FinancialPending  FinancialStatus = "PENDING"
	FinancialAwaiting FinancialStatus = "AWAITING_FUNDING"
	FinancialFunded   FinancialStatus = "FUNDED"
	FinancialApproved FinancialStatus = "APPROVED"
	FinancialRejected FinancialStatus = "REJECTED"
)

// ParseFinancialStatus maps an input string to a known financial status.
func ParseFinancialStatus(s string) (FinancialStatus, bool) {
	switch FinancialStatus(s) {
	case FinancialPending, FinancialAwaiting, FinancialFunded, FinancialApproved, FinancialRejected:
		return FinancialStatus(s), true
	}
	return "", false
}

// MaintenanceRequest is a municipal maintenance case tracked from citizen
// report through scheduling, financing and completion.
type MaintenanceRequest struct {
	ID               int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Type             string          `json:"type"`
	Description      string          `json:"description"`
	Location         string          `json:"location"`
	Priority         Priority        `json:"priority"`
	Status           Status          `json:"status"`
	FinancialStatus  FinancialStatus `json:"financialStatus"`
	Source           string          `json:"source"`
	ExternalReportID *int64          `json:"externalReportId,omitempty"`
	FinancingID      *int64          `json:"financingId,omitempty"`
	RegisteredAt     time.Time       `json:"registeredAt"`

	// Scheduling data, unset until the request is programmed.
	ScheduledStart *time.Time        `json:"scheduledStart,omitempty"`
	AssignedCrew   string            `json:"assignedCrew,omitempty"`
	Resources      []RequestResource `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"resources"`
}

// BeforeCreate is a GORM hook that fills initial state.
func (m *MaintenanceRequest) BeforeCreate(tx *gorm.DB) error {
	if m.Status == "" {
		m.Status = StatusPending
	}
	if m.FinancialStatus == "" {
		m.FinancialStatus = FinancialPending
	}
	if m.RegisteredAt.IsZero() {
		m.RegisteredAt = time.Now().UTC()
	}
	return nil
}

// ResourceNames flattens the side table rows into the assigned resource list.
func (m *MaintenanceRequest) ResourceNames() []string {
	names := make([]string, 0, len(m.Resources))
	for _, r := range m.Resources {
		names = append(names, r.Name)
	}
	return names
}

// RequestResource is one assigned resource of a request. Rows keep their
// insertion order through Position.
type RequestResource struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"-"`
	RequestID int64  `gorm:"index" json:"-"`
	Position  int    `json:"-"`
	Name      string `json:"name"`
}

// MarshalJSON renders a resource as its plain name so the API exposes the
// resource list as an array of strings.
func (r RequestResource) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Name)
}

// NewResources builds ordered side-table rows from plain names.
func NewResources(names []string) []RequestResource {
	out := make([]RequestResource, 0, len(names))
	for i, n := range names {
		out = append(out, RequestResource{Position: i, Name: n})
	}
	return out
}
