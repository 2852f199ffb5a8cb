package identity

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/observability"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// Resolver maps a bearer token to an internal user, creating the user on
// first sight.
type Resolver struct {
	verifier TokenVerifier
	users    repository.UserRepository

	// external id -> internal id; the mapping never changes once assigned.
	ids sync.Map
}

// NewResolver returns a resolver backed by verifier and users.
func NewResolver(verifier TokenVerifier, users repository.UserRepository) *Resolver {
	return &Resolver{verifier: verifier, users: users}
}

// Resolve returns the internal id for token. It satisfies
// middleware.IdentityResolver.
func (r *Resolver) Resolve(ctx context.Context, token string) (uint, error) {
	user, err := r.ResolveUser(ctx, token)
	if err != nil {
		return 0, err
	}
	return user.ID, nil
}

// ResolveUser verifies token and returns the user it names. Blocked users are
// rejected with FORBIDDEN.
func (r *Resolver) ResolveUser(ctx context.Context, token string) (user *models.User, err error) {
	span, ctx := observability.NewSpan(ctx, "identity.Resolve")
	defer func() { span.Finish(err) }()

	if strings.TrimSpace(token) == "" {
		return nil, models.NewUnauthenticatedError("Missing bearer token")
	}
	claims, err := r.verifier.Verify(ctx, token)
	if err != nil {
		return nil, models.NewUnauthenticatedError("Invalid or expired token")
	}

	externalID := claims.ExternalID()
	span.AddAttributes(attribute.String("identity.provider", claims.Provider))

	if id, ok := r.ids.Load(externalID); ok {
		user, err = r.users.GetByID(ctx, id.(uint))
	} else {
		user, err = r.lookupOrCreate(ctx, claims)
	}
	if err != nil {
		return nil, err
	}
	r.ids.Store(externalID, user.ID)

	if user.IsBlocked {
		return nil, models.NewForbiddenError("user_blocked", "Account is blocked")
	}

	if err := r.users.TouchLastSeen(ctx, user.ID); err != nil {
		middleware.Logger.WarnContext(ctx, "failed to touch last_seen_at",
			slog.Uint64("user_id", uint64(user.ID)), slog.String("error", err.Error()))
	}
	return user, nil
}

func (r *Resolver) lookupOrCreate(ctx context.Context, claims *Claims) (*models.User, error) {
	user, err := r.users.GetByExternalID(ctx, claims.ExternalID())
	if err == nil {
		return user, nil
	}
	if !models.IsCode(err, models.CodeNotFound) {
		return nil, err
	}

	name := claims.Name
	if name == "" {
		name, _, _ = strings.Cut(claims.Email, "@")
	}
	return r.users.CreateIfAbsent(ctx, &models.User{
		ExternalID:  claims.ExternalID(),
		Provider:    claims.Provider,
		DisplayName: name,
		Email:       claims.Email,
	})
}
