package identity

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/auth"
)

// FirebaseProvider is the provider recorded for Firebase identities.
const FirebaseProvider = "firebase"

// IDTokenVerifier is the part of the Firebase auth client the verifier uses.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// FirebaseVerifier validates Firebase ID tokens.
type FirebaseVerifier struct {
	client IDTokenVerifier
}

// NewFirebaseVerifier wraps a Firebase auth client, normally from
// (*firebase.App).Auth.
func NewFirebaseVerifier(client IDTokenVerifier) *FirebaseVerifier {
	return &FirebaseVerifier{client: client}
}

func (v *FirebaseVerifier) Verify(ctx context.Context, idToken string) (*Claims, error) {
	tok, err := v.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if tok.UID == "" {
		return nil, fmt.Errorf("%w: missing uid", ErrInvalidToken)
	}

	c := &Claims{Provider: FirebaseProvider, Subject: tok.UID}
	if email, ok := tok.Claims["email"].(string); ok {
		c.Email = email
	}
	if name, ok := tok.Claims["name"].(string); ok {
		c.Name = name
	}
	return c, nil
}
