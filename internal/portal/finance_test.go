package portal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/urbanfix/backend/internal/apperr"
	"github.com/example/urbanfix/backend/internal/models"
)

// financePortalStub mimics the external finance system: a login endpoint and
// a /Request resource guarded by the issued bearer token.
func financePortalStub(t *testing.T, statusID int, record map[string]any) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		var creds map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Equal(t, "city@example.com", creds["email"])
		assert.Equal(t, "secret", creds["password"])
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	})
	mux.HandleFunc("/api/Request", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		if r.Method == http.MethodGet {
			json.NewEncoder(w).Encode(map[string]any{"data": []map[string]any{record}})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"data": record})
	})
	mux.HandleFunc("/api/Request/", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		json.NewEncoder(w).Encode(map[string]any{"data": map[string]any{
			"id":              record["id"],
			"requestStatusId": statusID,
		}})
	})
	return httptest.NewServer(mux)
}

func newTestFinanceClient(srvURL string) *FinanceClient {
	return NewFinanceClient(srvURL+"/auth", srvURL+"/api", "city@example.com", "secret", 5*time.Second)
}

func TestSubmitFinancingRequestApproved(t *testing.T) {
	srv := financePortalStub(t, 2, map[string]any{
		"id":               310,
		"requestStatusId":  2,
		"authorizedReason": "budget available",
		"requestDate":      "01/09/2026",
		"approvedDate":     "02/09/2026",
	})
	defer srv.Close()
	client := newTestFinanceClient(srv.URL)

	resp, err := client.SubmitFinancingRequest(context.Background(), models.FinancingRequest{Reason: "road repair"})
	require.NoError(t, err)
	assert.Equal(t, "310", resp.TransactionID)
	assert.Equal(t, models.FinancialApproved, resp.Status)
	assert.Equal(t, "budget available", resp.Reason)
	require.NotNil(t, resp.RequestDate)
	assert.Equal(t, time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC), *resp.RequestDate)
	require.NotNil(t, resp.DecisionDate)
}

func TestSubmitFinancingRequestPendingDecision(t *testing.T) {
	srv := financePortalStub(t, 1, map[string]any{
		"id":              311,
		"requestStatusId": 1,
		"rejectionReason": nil,
	})
	defer srv.Close()
	client := newTestFinanceClient(srv.URL)

	resp, err := client.SubmitFinancingRequest(context.Background(), models.FinancingRequest{})
	require.NoError(t, err)
	assert.Equal(t, models.FinancialAwaiting, resp.Status)
}

func TestSubmitFinancingRequestNoData(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"token": "tok-123"})
	})
	mux.HandleFunc("/api/Request", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"data": nil})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestFinanceClient(srv.URL).SubmitFinancingRequest(context.Background(), models.FinancingRequest{})
	require.Error(t, err)
	assert.True(t, apperr.IsIntegration(err))
}

func TestQueryFinancingStatusMapping(t *testing.T) {
	cases := []struct {
		code int
		want models.FinancialStatus
	}{
		{1, models.FinancialAwaiting},
		{2, models.FinancialFunded},
		{3, models.FinancialRejected},
	}
	for _, tc := range cases {
		srv := financePortalStub(t, tc.code, map[string]any{"id": 88})
		client := newTestFinanceClient(srv.URL)
		status, err := client.QueryFinancingStatus(context.Background(), 88)
		srv.Close()
		require.NoError(t, err)
		assert.Equal(t, tc.want, status, "code %d", tc.code)
	}
}

func TestQueryFinancingStatusUnknownCode(t *testing.T) {
	srv := financePortalStub(t, 9, map[string]any{"id": 88})
	defer srv.Close()

	_, err := newTestFinanceClient(srv.URL).QueryFinancingStatus(context.Background(), 88)
	require.Error(t, err)
	assert.True(t, apperr.IsIntegration(err))
}

func TestLoginWithoutTokenFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/auth", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"error": "bad credentials"})
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	_, err := newTestFinanceClient(srv.URL).QueryFinancingStatus(context.Background(), 1)
	require.Error(t, err)
	assert.True(t, apperr.IsIntegration(err))
}

func TestListRequestsParsesQueue(t *testing.T) {
	srv := financePortalStub(t, 2, map[string]any{
		"id":              12,
		"name":            "roadworks",
		"reason":          "potholes",
		"requestAmount":   1500.50,
		"email":           "city@example.com",
		"requestStatusId": 2,
		"requestStatus":   map[string]any{"name": "Approved"},
		"priority":        map[string]any{"name": "High"},
		"origin":          map[string]any{"name": "Urban Maintenance"},
	})
	defer srv.Close()

	items, err := newTestFinanceClient(srv.URL).ListRequests(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.EqualValues(t, 12, items[0].ID)
	assert.Equal(t, "roadworks", items[0].Name)
	assert.Equal(t, "Approved", items[0].StatusName)
	assert.Equal(t, "High", items[0].PriorityName)
	assert.Equal(t, "Urban Maintenance", items[0].OriginName)
	assert.Equal(t, "1500.5", items[0].RequestAmount.String())
}
