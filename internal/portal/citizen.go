package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/example/urbanfix/backend/internal/apperr"
	"github.com/example/urbanfix/backend/internal/models"
)

// Reports carrying this status id have been approved by the participation
// portal's moderators.
const approvedReportStatusID = 3

// CitizenClient reads citizen reports from the participation portal.
type CitizenClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewCitizenClient constructs a client with an injected bearer token.
func NewCitizenClient(baseURL, token string, timeout time.Duration) *CitizenClient {
	return &CitizenClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

// ListApprovedReports fetches all reports and keeps only approved ones that
// have not yet been converted into a maintenance request. The caller supplies
// the set of report ids already used, read from the request store.
func (c *CitizenClient) ListApprovedReports(ctx context.Context, usedReportIDs map[int64]struct{}) ([]models.CitizenReport, error) {
	url := fmt.Sprintf("%s/reports?all=true", c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, errors.Wrap(apperr.ErrIntegration, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return nil, errors.Wrapf(apperr.ErrIntegration, "citizen portal failed: %s", resp.Status)
	}

	var result struct {
		Items []struct {
			ID          int64  `json:"id"`
			Title       string `json:"title"`
			Description string `json:"description"`
			Location    string `json:"location"`
			Status      *struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			} `json:"status"`
			Type *struct {
				Name string `json:"name"`
			} `json:"type"`
			UserCreate *struct {
				Name string `json:"name"`
			} `json:"userCreate"`
		} `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, errors.Wrap(apperr.ErrIntegration, err.Error())
	}
	if result.Items == nil {
		return nil, errors.Wrap(apperr.ErrIntegration, "citizen portal returned no items")
	}

	reports := make([]models.CitizenReport, 0, len(result.Items))
	for _, item := range result.Items {
		if item.Status == nil || item.Status.ID != approvedReportStatusID {
			continue
		}
		if _, used := usedReportIDs[item.ID]; used {
			continue
		}
		report := models.CitizenReport{
			ID:          item.ID,
			Title:       item.Title,
			Description: item.Description,
			Location:    item.Location,
			Status:      item.Status.Name,
			Type:        "unknown",
			ReportedBy:  "anonymous",
		}
		if item.Type != nil {
			report.Type = item.Type.Name
		}
		if item.UserCreate != nil {
			report.ReportedBy = item.UserCreate.Name
		}
		reports = append(reports, report)
	}
	return reports, nil
}
