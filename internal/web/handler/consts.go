package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// RouterRootPath is the path of a route relative to its group.
	RouterRootPath = ""

	// AuthPath groups the authentication endpoints.
	AuthPath = RootPath + "auth"

	// AdminPath groups the platform-admin endpoints.
	AdminPath = RootPath + "admin"

	// ErrNilDepsMsg is used if the router or a required dependency is nil.
	ErrNilDepsMsg = "router or handler dependencies are nil"

	// DefaultPageSize for pagination.
	DefaultPageSize = 25

	// MaxPageSize caps the page size a client may ask for.
	MaxPageSize = 100
)
