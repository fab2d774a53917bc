// Package main provides the entry point of assetdesk, a multi-tenant inventory service.
// It runs the identity and access control API on the Fiber framework: local password
// or external OpenID Connect authentication, platform and tenant roles, workspace
// setup and the administrative user lifecycle mirrored into the remote directory.
// The application uses gorm for persistence against MySQL, PostgreSQL or SQLite.
package main
