// Package login provides the local authentication endpoints.
//
// The routes exist only when the local provider is wired.
package login

import "errors"

// ErrLocalAuthDisabled is returned by Init when the external provider is wired.
var ErrLocalAuthDisabled = errors.New("local authentication is disabled")
