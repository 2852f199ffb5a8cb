// Package identity turns bearer tokens into internal user ids.
package identity

import (
	"context"
	"errors"
)

// Claims is the verified identity carried by a token.
type Claims struct {
	Provider string
	Subject  string
	Email    string
	Name     string
}

// ExternalID is the stable key a user row is found by.
func (c *Claims) ExternalID() string {
	return c.Provider + ":" + c.Subject
}

// TokenVerifier validates a raw token and returns its claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*Claims, error)
}

// ErrInvalidToken is returned by verifiers for any token they reject.
var ErrInvalidToken = errors.New("invalid token")
