// Package service implements the community's operations on top of the
// repositories: it loads the acting user, asks the policy, validates input,
// runs the write and emits events after commit.
package service

import (
	"context"
	"log/slog"

	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/notifications"
	"github.com/yogull/yogull-social-platform-sub001/internal/observability"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
)

// ActorLoader fetches the acting user. repository.UserRepository satisfies it.
type ActorLoader interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// loadActor resolves userID into a policy actor. An unknown user is treated
// as unauthenticated.
func loadActor(ctx context.Context, users ActorLoader, userID uint) (policy.Actor, error) {
	if userID == 0 {
		return policy.Actor{}, models.NewUnauthenticatedError("Authentication required")
	}
	u, err := users.GetByID(ctx, userID)
	if err != nil {
		if models.IsCode(err, models.CodeNotFound) {
			return policy.Actor{}, models.NewUnauthenticatedError("Unknown user")
		}
		return policy.Actor{}, err
	}
	return policy.ActorFromUser(u), nil
}

func authorize(p *policy.Policy, actor policy.Actor, op policy.Operation, target policy.Resource) error {
	return p.CanPerform(actor, op, target).Err()
}

func validationErr(err error) error {
	if err == nil {
		return nil
	}
	return models.NewValidationError(err.Error())
}

func publisherOrDiscard(p notifications.Publisher) notifications.Publisher {
	if p == nil {
		return notifications.Discard{}
	}
	return p
}

func countMutation(target, action string) {
	observability.ContentMutations.WithLabelValues(target, action).Inc()
}

// authorSummaries loads summaries for ids, tolerating failure: content is
// still returned without author metadata.
func authorSummaries(ctx context.Context, users repository.UserRepository, ids []uint) map[uint]*models.UserSummary {
	if len(ids) == 0 {
		return nil
	}
	summaries, err := users.Summaries(ctx, ids)
	if err != nil {
		middleware.Logger.WarnContext(ctx, "failed to load author summaries", slog.String("error", err.Error()))
		return nil
	}
	return summaries
}

