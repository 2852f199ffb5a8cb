package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
	"github.com/yogull/yogull-social-platform-sub001/internal/testutil"

	"firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTVerifier(t *testing.T) {
	t.Parallel()

	issuer := NewTokenIssuer(testSecret, "opc", "opc-community")
	verifier := NewJWTVerifier(testSecret, "opc", "opc-community")

	valid, err := issuer.Issue(Claims{Subject: "u-1", Email: "sam@example.com", Name: "Sam"}, time.Hour)
	require.NoError(t, err)
	expired, err := issuer.Issue(Claims{Subject: "u-1"}, -time.Hour)
	require.NoError(t, err)
	wrongSecret, err := NewTokenIssuer("another-secret-another-secret-xx", "opc", "opc-community").Issue(Claims{Subject: "u-1"}, time.Hour)
	require.NoError(t, err)
	wrongAudience, err := NewTokenIssuer(testSecret, "opc", "elsewhere").Issue(Claims{Subject: "u-1"}, time.Hour)
	require.NoError(t, err)
	noExpiry, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "u-1", "iss": "opc", "aud": "opc-community",
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{
		"sub": "u-1", "iss": "opc", "aud": "opc-community", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	claims, err := verifier.Verify(context.Background(), valid)
	require.NoError(t, err)
	assert.Equal(t, &Claims{Provider: DefaultProvider, Subject: "u-1", Email: "sam@example.com", Name: "Sam"}, claims)
	assert.Equal(t, "opc:u-1", claims.ExternalID())

	for name, token := range map[string]string{
		"Expired":        expired,
		"Wrong Secret":   wrongSecret,
		"Wrong Audience": wrongAudience,
		"No Expiry":      noExpiry,
		"Wrong Method":   hs512,
		"Garbage":        "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := verifier.Verify(context.Background(), token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestTokenIssuer_RequiresSecretAndSubject(t *testing.T) {
	t.Parallel()

	_, err := NewTokenIssuer("", "opc", "opc-community").Issue(Claims{Subject: "x"}, time.Hour)
	assert.Error(t, err)
	_, err = NewTokenIssuer(testSecret, "opc", "opc-community").Issue(Claims{}, time.Hour)
	assert.Error(t, err)
}

type firebaseStub struct {
	token *auth.Token
	err   error
}

func (f firebaseStub) VerifyIDToken(context.Context, string) (*auth.Token, error) {
	return f.token, f.err
}

func TestFirebaseVerifier(t *testing.T) {
	t.Parallel()

	v := NewFirebaseVerifier(firebaseStub{token: &auth.Token{
		UID:    "fb-123",
		Claims: map[string]interface{}{"email": "kim@example.com", "name": "Kim"},
	}})
	claims, err := v.Verify(context.Background(), "id-token")
	require.NoError(t, err)
	assert.Equal(t, "firebase:fb-123", claims.ExternalID())
	assert.Equal(t, "Kim", claims.Name)

	_, err = NewFirebaseVerifier(firebaseStub{err: errors.New("expired")}).Verify(context.Background(), "x")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func newTestResolver(t *testing.T) (*Resolver, *TokenIssuer, repository.UserRepository) {
	t.Helper()
	db := testutil.NewTestDB(t)
	users := repository.NewUserRepository(db)
	return NewResolver(NewJWTVerifier(testSecret, "opc", "opc-community"), users),
		NewTokenIssuer(testSecret, "opc", "opc-community"),
		users
}

func TestResolver_CreatesUserOnce(t *testing.T) {
	resolver, issuer, users := newTestResolver(t)
	ctx := context.Background()

	token, err := issuer.Issue(Claims{Subject: "new-user", Email: "river@example.com"}, time.Hour)
	require.NoError(t, err)

	var wg sync.WaitGroup
	ids := make([]uint, 6)
	errs := make([]error, 6)
	for i := range ids {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			ids[i], errs[i] = resolver.Resolve(ctx, token)
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		assert.Equal(t, ids[0], ids[i])
	}

	user, err := users.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "opc:new-user", user.ExternalID)
	assert.Equal(t, "river", user.DisplayName)
	assert.NotNil(t, user.LastSeenAt)
}

func TestResolver_Rejections(t *testing.T) {
	resolver, issuer, users := newTestResolver(t)
	ctx := context.Background()

	_, err := resolver.Resolve(ctx, "")
	assert.True(t, models.IsCode(err, models.CodeUnauthenticated))

	_, err = resolver.Resolve(ctx, "forged")
	assert.True(t, models.IsCode(err, models.CodeUnauthenticated))

	token, err := issuer.Issue(Claims{Subject: "troll"}, time.Hour)
	require.NoError(t, err)
	id, err := resolver.Resolve(ctx, token)
	require.NoError(t, err)

	_, err = users.SetBlocked(ctx, id, true, "abuse")
	require.NoError(t, err)

	_, err = resolver.Resolve(ctx, token)
	require.Error(t, err)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, models.CodeForbidden, appErr.Code)
	assert.Equal(t, "user_blocked", appErr.Reason)
}
