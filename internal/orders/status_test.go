package orders

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseStatus(t *testing.T) {
	for _, s := range allStatuses {
		got, err := ParseStatus(string(s))
		require.NoError(t, err)
		assert.Equal(t, s, got)
	}
	_, err := ParseStatus("Approved")
	assert.Error(t, err)
	_, err = ParseStatus("")
	assert.Error(t, err)
}

func TestEnterpriseTransitions(t *testing.T) {
	for _, from := range allStatuses {
		for _, to := range allStatuses {
			want := from == StatusPending && (to == StatusApproved || to == StatusRejected)
			assert.Equal(t, want, CanEnterpriseTransition(from, to), "%s -> %s", from, to)
		}
	}
}

func TestTargetsByRole(t *testing.T) {
	cases := []struct {
		to         Status
		enterprise bool
		admin      bool
	}{
		{StatusPending, false, false},
		{StatusApproved, true, false},
		{StatusRejected, true, false},
		{StatusShipped, false, true},
		{StatusDelivered, false, true},
		{StatusCancelled, false, true},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.enterprise, IsEnterpriseTarget(tc.to), tc.to)
		assert.Equal(t, tc.admin, IsAdminTarget(tc.to), tc.to)
	}
}
