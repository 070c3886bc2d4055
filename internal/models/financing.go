package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// FinancingRequest carries the funding application forwarded to the finance
// portal. Field names follow the portal's wire contract.
type FinancingRequest struct {
	OriginID      int64           `json:"originId"`
	RequestAmount decimal.Decimal `json:"requestAmount"`
	Name          string          `json:"name"`
	Reason        string          `json:"reason"`
	RequestDate   string          `json:"requestDate"`
	Email         string          `json:"email"`
	PriorityID    int             `json:"priorityId"`
}

// FinancingResponse is the finance portal's answer to a funding application.
type FinancingResponse struct {
	TransactionID    string          `json:"transactionId"`
	Status           FinancialStatus `json:"status"`
	AuthorizedAmount decimal.Decimal `json:"authorizedAmount"`
	Reason           string          `json:"reason,omitempty"`
	RequestDate      *time.Time      `json:"requestDate,omitempty"`
	DecisionDate     *time.Time      `json:"decisionDate,omitempty"`
}

// FinanceConfirmation is the inbound webhook event the finance system sends
// once a funding decision is made.
type FinanceConfirmation struct {
	TransactionID    string          `json:"transactionId"`
	RequestID        int64           `json:"requestId"`
	Status           FinancialStatus `json:"financialStatus"`
	AuthorizedAmount decimal.Decimal `json:"authorizedAmount"`
	Reason           string          `json:"reason,omitempty"`
	DecisionDate     string          `json:"decisionDate,omitempty"`
}

// FinanceQueueItem is one entry of the finance portal's request queue.
type FinanceQueueItem struct {
	ID            int64           `json:"id"`
	Name          string          `json:"name"`
	Reason        string          `json:"reason"`
	RequestAmount decimal.Decimal `json:"requestAmount"`
	ApprovedDate  string          `json:"approvedDate,omitempty"`
	Email         string          `json:"email"`
	StatusID      int             `json:"requestStatusId"`
	StatusName    string          `json:"requestStatusName,omitempty"`
	PriorityName  string          `json:"priorityName,omitempty"`
	OriginName    string          `json:"originName,omitempty"`
}

// CitizenReport is an approved citizen-participation report that has not yet
// been converted into a maintenance request.
type CitizenReport struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Location    string `json:"location"`
	Type        string `json:"type"`
	Status      string `json:"status"`
	ReportedBy  string `json:"reportedBy"`
}

// StatusNotification is the payload pushed to the citizen-participation
// system on notifiable state changes.
type StatusNotification struct {
	RequestID  int64     `json:"requestId"`
	Status     Status    `json:"status"`
	ModifiedAt time.Time `json:"modifiedAt"`
}
