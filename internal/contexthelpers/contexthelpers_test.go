package contexthelpers_test

import (
	"net/http/httptest"
	"testing"

	"github.com/myrjola/billeffect/internal/contexthelpers"
	"github.com/stretchr/testify/require"
)

func TestSettersAndGetters(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	ctx := r.Context()
	require.Empty(t, contexthelpers.WorkspaceID(ctx))
	require.Empty(t, contexthelpers.CurrentPath(ctx))
	require.Empty(t, contexthelpers.CSRFToken(ctx))
	require.Empty(t, contexthelpers.CSPNonce(ctx))

	r = contexthelpers.SetWorkspaceID(r, "ws")
	r = contexthelpers.SetCurrentPath(r, "/bill")
	r = contexthelpers.SetCSRFToken(r, "csrf")
	r = contexthelpers.SetCSPNonce(r, "nonce")
	ctx = r.Context()
	require.Equal(t, "ws", contexthelpers.WorkspaceID(ctx))
	require.Equal(t, "/bill", contexthelpers.CurrentPath(ctx))
	require.Equal(t, "csrf", contexthelpers.CSRFToken(ctx))
	require.Equal(t, "nonce", contexthelpers.CSPNonce(ctx))
}
