package directory

import (
	"context"
	"errors"
)

var (
	// ErrConflict is returned when the remote directory already holds the username or email.
	ErrConflict = errors.New("identity already exists in the remote directory")

	// ErrUnavailable is returned when the remote directory could not be reached or refused the service account.
	ErrUnavailable = errors.New("remote directory unavailable")
)

// Status is the outcome of a directory call.
type Status int

const (
	// StatusSkipped means no remote directory is configured.
	StatusSkipped Status = iota
	// StatusSynced means the remote directory applied the change.
	StatusSynced
	// StatusConflict means the remote directory rejected a create as duplicate.
	StatusConflict
	// StatusUnavailable means the call failed for any other reason.
	StatusUnavailable
)

// String implements fmt.Stringer, the value is also used as metrics label and in API responses.
func (s Status) String() string {
	switch s {
	case StatusSynced:
		return "synced"
	case StatusConflict:
		return "conflict"
	case StatusUnavailable:
		return "unavailable"
	default:
		return "skipped"
	}
}

// MarshalText renders the status by name in JSON.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Result of a directory call. RemoteID is only set by a synced create.
type Result struct {
	Status   Status
	RemoteID string
	Err      error
}

// Conflict reports whether the local operation must be aborted.
func (r Result) Conflict() bool {
	return r.Status == StatusConflict
}

// RemoteUser is the account pushed to the remote directory.
type RemoteUser struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Password  string
}

// Synchronizer mirrors user lifecycle events into a remote directory.
type Synchronizer interface {
	CreateUser(ctx context.Context, user RemoteUser) Result
	DeleteUser(ctx context.Context, remoteID string) Result
	ResetPassword(ctx context.Context, remoteID, password string) Result
}

// Noop is the Synchronizer used when users live only in the local store.
type Noop struct{}

var _ Synchronizer = Noop{}

// CreateUser implements Synchronizer.
func (Noop) CreateUser(context.Context, RemoteUser) Result { return Result{Status: StatusSkipped} }

// DeleteUser implements Synchronizer.
func (Noop) DeleteUser(context.Context, string) Result { return Result{Status: StatusSkipped} }

// ResetPassword implements Synchronizer.
func (Noop) ResetPassword(context.Context, string, string) Result { return Result{Status: StatusSkipped} }
