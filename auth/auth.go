// Package auth is responsible for user registration, login and the cookie-backed
// sessions that identify a logged-in user on later requests.
//
// The package is split the way the rest of the service is: DTOs, a service holding the
// business rules, HTTP handlers, a user repository with PostgreSQL and SQLite
// implementations, and a session store with in-memory and BadgerDB implementations.
package auth

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Helper functions

// hashPassword returns a salted bcrypt hash of password. Passwords over
// MaxPasswordBytes fail with bcrypt.ErrPasswordTooLong.
func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// checkPassword reports whether password matches hash. A malformed hash is an error,
// a wrong password is not.
func checkPassword(hash, password string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, err
	}
}

// newDummyHash hashes a throwaway password at cost. Login compares against it when the
// username is unknown, so that path runs a bcrypt comparison at the configured cost too.
func newDummyHash(cost int) []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("cropadvisor-dummy-password"), cost)
	if err != nil {
		// Only an out of range cost fails; fall back to bcrypt's default.
		hash, _ = bcrypt.GenerateFromPassword([]byte("cropadvisor-dummy-password"), bcrypt.DefaultCost)
	}
	return hash
}
