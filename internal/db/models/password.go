package models

import (
	"strings"

	"github.com/alexedwards/argon2id"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"
)

// MinBcryptCost is the lowest bcrypt cost accepted for imported password hashes.
const MinBcryptCost = 10

// dummyHash is compared against when no user exists, so the lookup miss costs as much as a real check.
var dummyHash = HashPassword("assetdesk-timing-equalizer") //nolint:gochecknoglobals

// HashPassword hashes a plaintext password using the Argon2id algorithm.
func HashPassword(password string) string {
	hashedPassword, err := argon2id.CreateHash(password, argon2id.DefaultParams)
	if err != nil {
		log.Fatal().Msgf("failed to hash password: %v", err)
	}

	return hashedPassword
}

// VerifyPassword verifies a plaintext password against the user's stored hash.
// Argon2id hashes are the default; bcrypt hashes with a cost of at least MinBcryptCost are
// accepted for accounts imported from older installations.
func (u *User) VerifyPassword(password string) bool {
	return comparePassword(password, u.Password)
}

// BurnPasswordCheck performs a throw-away comparison with the same cost as a real one.
func BurnPasswordCheck(password string) {
	_ = comparePassword(password, dummyHash)
}

func comparePassword(password, hash string) bool {
	if hash == "" {
		return false
	}

	if isBcrypt(hash) {
		cost, err := bcrypt.Cost([]byte(hash))
		if err != nil || cost < MinBcryptCost {
			log.Warn().Int("cost", cost).Msg("rejecting bcrypt hash below minimum cost")
			return false
		}

		return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
	}

	match, err := argon2id.ComparePasswordAndHash(password, hash)
	if err != nil {
		log.Error().Msgf("failed to verify password: %v", err)
		return false
	}

	return match
}

func isBcrypt(hash string) bool {
	return strings.HasPrefix(hash, "$2a$") || strings.HasPrefix(hash, "$2b$") || strings.HasPrefix(hash, "$2y$")
}
