// Package auth authenticates requests and enforces the role model.
//
// # Providers
//
// Exactly one Provider is wired at boot by NewProvider:
//   - LocalProvider verifies usernames and passwords against the identity store and keeps
//     a server side session with an absolute lifetime.
//   - ExternalProvider validates bearer tokens of the external OpenID Connect provider,
//     refreshes tokens that expired within the grace window and upserts the user on every
//     successful validation.
//
// Both produce the same Principal. Handlers read it with PrincipalFrom and never look at
// the provider.
//
// # Middleware
//
// The chain is composed in this order:
//
//	app.Use(auth.Resolve(provider))
//	admin := app.Group("/admin", auth.RequirePlatformAdmin(store))
//	app.Get("/auth/whoami", auth.RequireTenant(resolver), whoami)
//
// Failures answer JSON {"error": code} with the status from StatusFor.
//
// # Invariants
//
// RoleGuard refuses to demote or delete the last platform-admin and refuses
// self-demotion. UserManager adds the remote directory to the user lifecycle.
package auth
