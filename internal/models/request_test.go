package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePriority(t *testing.T) {
	for _, valid := range []string{"LOW", "MEDIUM", "HIGH"} {
		p, ok := ParsePriority(valid)
		require.True(t, ok, valid)
		assert.Equal(t, Priority(valid), p)
	}
	for _, invalid := range []string{"", "URGENT", "low", "High"} {
		_, ok := ParsePriority(invalid)
		assert.False(t, ok, invalid)
	}
}

func TestPriorityRankOrdering(t *testing.T) {
	assert.Greater(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	assert.Greater(t, PriorityMedium.Rank(), PriorityLow.Rank())
	assert.Greater(t, PriorityLow.Rank(), Priority("").Rank())
}

func TestParseStatus(t *testing.T) {
	s, ok := ParseStatus("PROGRAMMED")
	require.True(t, ok)
	assert.Equal(t, StatusProgrammed, s)

	_, ok = ParseStatus("SCHEDULED")
	assert.False(t, ok)
}

func TestParseFinancialStatus(t *testing.T) {
	s, ok := ParseFinancialStatus("AWAITING_FUNDING")
	require.True(t, ok)
	assert.Equal(t, FinancialAwaiting, s)

	_, ok = ParseFinancialStatus("PAID")
	assert.False(t, ok)
}

func TestResourcesMarshalAsPlainStrings(t *testing.T) {
	req := MaintenanceRequest{
		ID:        1,
		Resources: NewResources([]string{"excavator", "asphalt"}),
	}
	out, err := json.Marshal(req.Resources)
	require.NoError(t, err)
	assert.JSONEq(t, `["excavator","asphalt"]`, string(out))
}

func TestNewResourcesKeepsOrder(t *testing.T) {
	res := NewResources([]string{"a", "b", "c"})
	require.Len(t, res, 3)
	for i, want := range []string{"a", "b", "c"} {
		assert.Equal(t, want, res[i].Name)
		assert.Equal(t, i, res[i].Position)
	}
}

func TestResourceNames(t *testing.T) {
	req := MaintenanceRequest{Resources: NewResources([]string{"truck"})}
	assert.Equal(t, []string{"truck"}, req.ResourceNames())
	assert.Empty(t, (&MaintenanceRequest{}).ResourceNames())
}
