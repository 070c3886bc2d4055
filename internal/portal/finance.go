package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/example/urbanfix/backend/internal/apperr"
	"github.com/example/urbanfix/backend/internal/models"
)

// The finance portal renders dates as day/month/year.
const financeDateLayout = "02/01/2006"

// FinanceClient talks to the external finance portal. It logs in with the
// injected credentials and attaches the bearer token per call.
type FinanceClient struct {
	loginURL string
	baseURL  string
	email    string
	password string
	client   *http.Client
}

// NewFinanceClient constructs a client for the finance portal.
func NewFinanceClient(loginURL, baseURL, email, password string, timeout time.Duration) *FinanceClient {
	return &FinanceClient{
		loginURL: loginURL,
		baseURL:  baseURL,
		email:    email,
		password: password,
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *FinanceClient) token(ctx context.Context) (string, error) {
	body, _ := json.Marshal(map[string]string{
		"email":    c.email,
		"password": c.password,
	})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.loginURL, bytes.NewReader(body))
	if err != nil {
		return "", errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(apperr.ErrIntegration, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", errors.Wrapf(apperr.ErrIntegration, "finance login failed: %s", resp.Status)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", errors.Wrap(apperr.ErrIntegration, err.Error())
	}
	if result.Token == "" {
		return "", errors.Wrap(apperr.ErrIntegration, "finance login returned no token")
	}
	return result.Token, nil
}

// financeEnvelope is the portal's response wrapper.
type financeEnvelope struct {
	Data *financeRecord `json:"data"`
}

type financeRecord struct {
	ID               int64   `json:"id"`
	RequestStatusID  int     `json:"requestStatusId"`
	AuthorizedReason *string `json:"authorizedReason"`
	RejectionReason  *string `json:"rejectionReason"`
	RequestDate      *string `json:"requestDate"`
	ApprovedDate     *string `json:"approvedDate"`
}

// SubmitFinancingRequest forwards a funding application and translates the
// portal's reply. Status code 2 means the application was approved outright;
// anything else leaves it awaiting a decision.
func (c *FinanceClient) SubmitFinancingRequest(ctx context.Context, fr models.FinancingRequest) (*models.FinancingResponse, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	body, _ := json.Marshal(fr)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s/Request", c.baseURL), bytes.NewReader(body))
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(apperr.ErrIntegration, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, errors.Wrapf(apperr.ErrIntegration, "finance submit failed: %s", resp.Status)
	}

	var envelope financeEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, errors.Wrap(apperr.ErrIntegration, err.Error())
	}
	if envelope.Data == nil {
		return nil, errors.Wrap(apperr.ErrIntegration, "finance submit returned no data")
	}

	raw := envelope.Data
	status := models.FinancialAwaiting
	if raw.RequestStatusID == 2 {
		status = models.FinancialApproved
	}
	return &models.FinancingResponse{
		TransactionID:    fmt.Sprintf("%d", raw.ID),
		Status:           status,
		AuthorizedAmount: fr.RequestAmount,
		Reason:           pickReason(raw),
		RequestDate:      parseFinanceDate(raw.RequestDate),
		DecisionDate:     parseFinanceDate(raw.ApprovedDate),
	}, nil
}

// QueryFinancingStatus returns the portal's current status for a financing
// transaction, mapped to the internal enumeration.
func (c *FinanceClient) QueryFinancingStatus(ctx context.Context, financingID int64) (models.FinancialStatus, error) {
	token, err := c.token(ctx)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/Request/%d", c.baseURL, financingID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", errors.Wrap(apperr.ErrIntegration, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return "", errors.Wrapf(apperr.ErrIntegration, "finance query failed: %s", resp.Status)
	}

	var envelope financeEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return "", errors.Wrap(apperr.ErrIntegration, err.Error())
	}
	if envelope.Data == nil {
		return "", errors.Wrap(apperr.ErrIntegration, "finance query returned no data")
	}

	switch envelope.Data.RequestStatusID {
	case 1:
		return models.FinancialAwaiting, nil
	case 2:
		return models.FinancialFunded, nil
	case 3:
		return models.FinancialRejected, nil
	default:
		return "", errors.Wrapf(apperr.ErrIntegration, "unknown finance status code %d", envelope.Data.RequestStatusID)
	}
}

// ListRequests fetches the portal's funding request queue.
func (c *FinanceClient) ListRequests(ctx context.Context) ([]models.FinanceQueueItem, error) {
	token, err := c.token(ctx)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/Request?Include=requestStatus,origin,priority&PageNumber=1&PageSize=30&IncludeTotal=false", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(apperr.ErrIntegration, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, errors.Wrapf(apperr.ErrIntegration, "finance list failed: %s", resp.Status)
	}

	var result struct {
		Data []struct {
			ID            int64           `json:"id"`
			Name          string          `json:"name"`
			Reason        string          `json:"reason"`
			RequestAmount decimal.Decimal `json:"requestAmount"`
			ApprovedDate  *string         `json:"approvedDate"`
			Email         string          `json:"email"`
			StatusID      int             `json:"requestStatusId"`
			RequestStatus *struct {
				Name string `json:"name"`
			} `json:"requestStatus"`
			Priority *struct {
				Name string `json:"name"`
			} `json:"priority"`
			Origin *struct {
				Name string `json:"name"`
			} `json:"origin"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(apperr.ErrIntegration, err.Error())
	}

	items := make([]models.FinanceQueueItem, 0, len(result.Data))
	for _, d := range result.Data {
		item := models.FinanceQueueItem{
			ID:            d.ID,
			Name:          d.Name,
			Reason:        d.Reason,
			RequestAmount: d.RequestAmount,
			Email:         d.Email,
			StatusID:      d.StatusID,
		}
		if d.ApprovedDate != nil {
			item.ApprovedDate = *d.ApprovedDate
		}
		if d.RequestStatus != nil {
			item.StatusName = d.RequestStatus.Name
		}
		if d.Priority != nil {
			item.PriorityName = d.Priority.Name
		}
		if d.Origin != nil {
			item.OriginName = d.Origin.Name
		}
		items = append(items, item)
	}
	return items, nil
}

func pickReason(r *financeRecord) string {
	if r.AuthorizedReason != nil {
		return *r.AuthorizedReason
	}
	if r.RejectionReason != nil {
		return *r.RejectionReason
	}
	return ""
}

func parseFinanceDate(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t, err := time.Parse(financeDateLayout, *s)
	if err != nil {
		return nil
	}
	return &t
}
