// Package directory mirrors local user lifecycle events into the external identity
// provider's user directory.
//
// Every call returns a Result instead of failing hard. Only a create conflict is meant to
// stop the local operation; an unreachable directory is logged and the local store carries on.
//
// The Keycloak implementation acquires a fresh service account token with a
// client-credentials exchange before every administrative call. Tokens are never cached
// and never shared with end-user requests.
package directory
