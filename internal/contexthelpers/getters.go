package contexthelpers

import (
	"context"
)

// WorkspaceID identifies the simulation workspace of the browser session.
func WorkspaceID(ctx context.Context) string {
	workspaceID, ok := ctx.Value(workspaceIDContextKey).(string)
	if !ok {
		return ""
	}

	return workspaceID
}

func CurrentPath(ctx context.Context) string {
	currentPath, ok := ctx.Value(currentPathContextKey).(string)
	if !ok {
		return ""
	}

	return currentPath
}

func CSRFToken(ctx context.Context) string {
	csrfToken, ok := ctx.Value(csrfTokenContextKey).(string)
	if !ok {
		return ""
	}

	return csrfToken
}

func CSPNonce(ctx context.Context) string {
	cspNonce, ok := ctx.Value(cspNonceContextKey).(string)
	if !ok {
		return ""
	}

	return cspNonce
}
