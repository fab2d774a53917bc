package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/assetdesk/assetdesk/internal/db/controller/identity"
	"github.com/assetdesk/assetdesk/internal/directory"
)

var (
	// ErrUnauthenticated is returned when a request carries no valid credential or token.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrTokenExpired is returned when a bearer token expired and could not be refreshed.
	// Clients should re-run the login flow instead of retrying.
	ErrTokenExpired = errors.New("token expired")

	// ErrInvalidCredentials is returned by the local verifier for any unknown user or wrong password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrForbidden is returned when an authenticated principal lacks the required role or membership.
	ErrForbidden = errors.New("forbidden")

	// ErrNoTenant is returned when the principal has no tenant membership at all.
	ErrNoTenant = errors.New("no tenant")

	// ErrTenantExists is returned by workspace setup for a principal that already has a tenant.
	ErrTenantExists = errors.New("principal already belongs to a tenant")

	// ErrInvariantViolation is returned when a role change or deletion would leave no platform-admin,
	// or a platform-admin would demote themselves.
	ErrInvariantViolation = errors.New("role invariant violation")

	// ErrInvalidRole is returned for a role name that does not exist.
	ErrInvalidRole = errors.New("invalid role")

	// ErrInvalidOldPassword is returned when the provided old password does not match the user's current password.
	ErrInvalidOldPassword = errors.New("invalid old password")

	// ErrNotLocalAccount is returned when a password operation targets an externally managed user.
	ErrNotLocalAccount = errors.New("account is managed by the external identity provider")

	// ErrRemoteConflict is returned when the remote directory already holds the identity.
	ErrRemoteConflict = directory.ErrConflict

	// ErrRemoteUnavailable is logged when the remote directory can not be reached. It never fails a request.
	ErrRemoteUnavailable = directory.ErrUnavailable
)

// Error codes sent in the "error" field of JSON error responses.
const (
	CodeUnauthenticated    = "unauthenticated"
	CodeTokenExpired       = "token_expired"
	CodeInvalidCredentials = "invalid_credentials"
	CodeForbidden          = "forbidden"
	CodeNoTenant           = "no_tenant"
	CodeInvariantViolation = "invariant_violation"
	CodeInvalidRole        = "invalid_role"
	CodeInvalidPassword    = "invalid_old_password"
	CodeNotLocalAccount    = "not_local_account"
	CodeConflict           = "conflict"
	CodeRemoteConflict     = "remote_conflict"
	CodeRemoteUnavailable  = "remote_unavailable"
	CodeNotFound           = "not_found"
	CodeInternal           = "internal"
)

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// StatusFor maps an error to the HTTP status and error code answered to the client.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return fiber.StatusUnauthorized, CodeTokenExpired
	case errors.Is(err, ErrInvalidCredentials):
		return fiber.StatusUnauthorized, CodeInvalidCredentials
	case errors.Is(err, ErrUnauthenticated):
		return fiber.StatusUnauthorized, CodeUnauthenticated
	case errors.Is(err, ErrForbidden):
		return fiber.StatusForbidden, CodeForbidden
	case errors.Is(err, ErrNoTenant):
		return fiber.StatusNotFound, CodeNoTenant
	case errors.Is(err, ErrInvariantViolation):
		return fiber.StatusBadRequest, CodeInvariantViolation
	case errors.Is(err, ErrInvalidRole):
		return fiber.StatusBadRequest, CodeInvalidRole
	case errors.Is(err, ErrInvalidOldPassword):
		return fiber.StatusBadRequest, CodeInvalidPassword
	case errors.Is(err, ErrNotLocalAccount):
		return fiber.StatusBadRequest, CodeNotLocalAccount
	case errors.Is(err, ErrRemoteConflict):
		return fiber.StatusConflict, CodeRemoteConflict
	case errors.Is(err, ErrTenantExists),
		errors.Is(err, identity.ErrUserExists),
		errors.Is(err, identity.ErrMembershipExists):
		return fiber.StatusConflict, CodeConflict
	case errors.Is(err, ErrRemoteUnavailable):
		return fiber.StatusBadGateway, CodeRemoteUnavailable
	case errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrTenantNotFound),
		errors.Is(err, identity.ErrMembershipNotFound):
		return fiber.StatusNotFound, CodeNotFound
	}

	var fe *fiber.Error
	if errors.As(err, &fe) {
		return fe.Code, fe.Message
	}

	return fiber.StatusInternalServerError, CodeInternal
}

// WriteError answers err as JSON. Internal errors are not echoed to the client.
func WriteError(c *fiber.Ctx, err error) error {
	status, code := StatusFor(err)

	body := ErrorResponse{Error: code}
	if status == fiber.StatusBadRequest || status == fiber.StatusConflict {
		body.Message = err.Error()
	}

	return c.Status(status).JSON(body)
}
