package roles

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestResolveCoversAllFlagCombinations(t *testing.T) {
	cases := []struct {
		elevated  bool
		superuser bool
		want      Role
	}{
		{false, false, Requester},
		{true, false, Manager},
		{true, true, Administrator},
		// superuser wins even without the elevated flag
		{false, true, Administrator},
	}

	for _, tc := range cases {
		got := Resolve(tc.elevated, tc.superuser)
		require.Equal(t, tc.want, got, "elevated=%v superuser=%v", tc.elevated, tc.superuser)
	}
}

func TestIsStaff(t *testing.T) {
	require.True(t, IsStaff(Administrator))
	require.True(t, IsStaff(Manager))
	require.False(t, IsStaff(Requester))
}
