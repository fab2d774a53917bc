// Package uniuri generates cryptographically secure random strings for identifiers,
// session keys and temporary passwords.
package uniuri
