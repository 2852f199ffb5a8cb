package identity

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultProvider is used for HS256 tokens that carry no provider claim.
const DefaultProvider = "opc"

// JWTVerifier validates HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

// NewJWTVerifier returns a verifier for tokens from issuer to audience.
func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

func (v *JWTVerifier) Verify(_ context.Context, tokenString string) (*Claims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil || !token.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected claims type", ErrInvalidToken)
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}

	out := &Claims{
		Provider: stringClaim(claims, "provider"),
		Subject:  sub,
		Email:    stringClaim(claims, "email"),
		Name:     stringClaim(claims, "name"),
	}
	if out.Provider == "" {
		out.Provider = DefaultProvider
	}
	return out, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	s, _ := claims[key].(string)
	return s
}

// TokenIssuer mints HS256 tokens the JWTVerifier accepts. It backs local
// development, tests and the admin CLI.
type TokenIssuer struct {
	secret   []byte
	issuer   string
	audience string
}

// NewTokenIssuer returns an issuer matching NewJWTVerifier's parameters.
func NewTokenIssuer(secret, issuer, audience string) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), issuer: issuer, audience: audience}
}

// Issue signs a token for c that expires after ttl.
func (i *TokenIssuer) Issue(c Claims, ttl time.Duration) (string, error) {
	if len(i.secret) == 0 {
		return "", fmt.Errorf("JWT secret not configured")
	}
	if c.Subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if c.Provider == "" {
		c.Provider = DefaultProvider
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":      c.Subject,
		"provider": c.Provider,
		"iss":      i.issuer,
		"aud":      i.audience,
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
		"nbf":      now.Unix(),
		"jti":      uuid.NewString(),
	}
	if c.Email != "" {
		claims["email"] = c.Email
	}
	if c.Name != "" {
		claims["name"] = c.Name
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}
