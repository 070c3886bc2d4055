package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"github.com/example/urbanfix/backend/internal/apperr"
	"github.com/example/urbanfix/backend/internal/models"
)

// NotifyClient pushes state-change notifications to the participation system.
type NotifyClient struct {
	url    string
	client *http.Client
}

// NewNotifyClient constructs a notification gateway targeting the given URL.
func NewNotifyClient(url string, timeout time.Duration) *NotifyClient {
	return &NotifyClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

// SendStatusNotification posts a notification payload. A non-2xx reply is an
// integration error; the caller decides whether to surface it.
func (c *NotifyClient) SendStatusNotification(ctx context.Context, n models.StatusNotification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return errors.WithStack(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return errors.WithStack(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(apperr.ErrIntegration, err.Error())
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return errors.Wrapf(apperr.ErrIntegration, "notification rejected: %s", resp.Status)
	}
	return nil
}
