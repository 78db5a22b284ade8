// Package token generates the opaque bearer credentials and numeric one-time
// codes used by sessions, OTP challenges and password resets.
package token

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"math/big"
)

const (
	// SessionTokenPrefix marks a value as a session access token.
	SessionTokenPrefix = "st_"

	sessionTokenBytes = 32

	challengeMin = 100000
	challengeMax = 999999
)

var challengeSpan = big.NewInt(challengeMax - challengeMin + 1)

// NewSessionToken returns an unguessable bearer token.
// It panics if the system random source fails.
func NewSessionToken() string {
	buf := make([]byte, sessionTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("token: system random source failed: %v", err))
	}
	return SessionTokenPrefix + base64.RawURLEncoding.EncodeToString(buf)
}

// NewNumericChallenge returns a six digit code drawn uniformly from 100000-999999.
// It panics if the system random source fails.
func NewNumericChallenge() string {
	n, err := rand.Int(rand.Reader, challengeSpan)
	if err != nil {
		panic(fmt.Sprintf("token: system random source failed: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64()+challengeMin)
}

// Equal compares a stored and a submitted value in constant time.
func Equal(stored, submitted string) bool {
	return subtle.ConstantTimeCompare([]byte(stored), []byte(submitted)) == 1
}

// Generator produces tokens. Services take one so tests can pin values.
type Generator interface {
	SessionToken() string
	NumericChallenge() string
}

// Random is the production Generator.
type Random struct{}

func (Random) SessionToken() string     { return NewSessionToken() }
func (Random) NumericChallenge() string { return NewNumericChallenge() }
