package accesscontrol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefaultPolicies(t *testing.T) {
	e, err := NewEnforcer(DefaultPolicies)
	require.NoError(t, err)

	cases := []struct {
		role, path, method string
		allowed            bool
	}{
		{"ADMIN", "/api/credits/adjust", "POST", true},
		{"ADMIN", "/api/orders/:id/status", "PUT", true},
		{"CUSTOMER", "/api/credits/my-history", "GET", true},
		{"CUSTOMER", "/api/orders", "POST", true},
		{"CUSTOMER", "/api/orders", "GET", false},
		{"CUSTOMER", "/api/orders/:id", "GET", true},
		{"CUSTOMER", "/api/orders/:id/status", "PUT", false},
		{"CUSTOMER", "/api/orders/statistics", "GET", false},
		{"CUSTOMER", "/api/credits/customer/:customerId/history", "GET", false},
		{"CUSTOMER", "/api/dashboard", "GET", false},
		{"CUSTOMER", "/api/credits/adjust", "POST", false},
		{"CUSTOMER", "/api/addresses/:id", "DELETE", true},
		{"GUEST", "/api/orders", "POST", false},
	}

	for _, tc := range cases {
		ok, err := e.Enforce(tc.role, tc.path, tc.method)
		require.NoError(t, err)
		require.Equal(t, tc.allowed, ok, "%s %s %s", tc.role, tc.method, tc.path)
	}
}
