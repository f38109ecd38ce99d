package contexthelpers

type contextKey string

const workspaceIDContextKey = contextKey("workspaceID")
const currentPathContextKey = contextKey("currentPath")
const csrfTokenContextKey = contextKey("csrfToken")
const cspNonceContextKey = contextKey("cspNonce")
