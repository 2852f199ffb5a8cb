package service

import (
	"context"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
	"github.com/yogull/yogull-social-platform-sub001/internal/validation"
)

type UserService struct {
	users  repository.UserRepository
	policy *policy.Policy
}

type UpdateProfileInput struct {
	ActorID uint
	UserID  uint
	Fields  map[string]any
}

func NewUserService(users repository.UserRepository, pol *policy.Policy) *UserService {
	return &UserService{users: users, policy: pol}
}

func (s *UserService) GetProfile(ctx context.Context, id uint) (*models.User, error) {
	return s.users.GetByID(ctx, id)
}

var profileLimits = map[string]int{
	"display_name": validation.MaxDisplayNameLen,
	"bio":          validation.MaxBioLen,
	"location":     validation.MaxLocationLen,
}

// UpdateProfile changes display name, bio or location. Only the profile owner
// may do so.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	actor, err := loadActor(ctx, s.users, in.ActorID)
	if err != nil {
		return nil, err
	}
	target := in.UserID
	if target == 0 {
		target = in.ActorID
	}
	keys, err := validation.CheckMutableFields(in.Fields, "display_name", "bio", "location")
	if err != nil {
		return nil, validationErr(err)
	}
	if err := authorize(s.policy, actor, policy.OpUpdate, policy.Resource{
		Type: policy.ResourceProfile, AuthorID: target, Fields: keys,
	}); err != nil {
		return nil, err
	}

	updates := make(map[string]any, len(keys))
	for _, k := range keys {
		str, ok := in.Fields[k].(string)
		if !ok {
			return nil, models.NewValidationError(k + " must be a string")
		}
		var v string
		if k == "display_name" {
			v, err = validation.Text(k, str, profileLimits[k])
		} else {
			v, err = validation.OptionalText(k, str, profileLimits[k])
		}
		if err != nil {
			return nil, validationErr(err)
		}
		updates[k] = v
	}

	user, err := s.users.UpdateProfile(ctx, target, updates)
	if err != nil {
		return nil, err
	}
	countMutation(policy.ResourceProfile, "update")
	return user, nil
}

// SetBlocked blocks or unblocks a user. Administrators only, and never
// themselves.
func (s *UserService) SetBlocked(ctx context.Context, actorID, userID uint, blocked bool, reason string) (*models.User, error) {
	if err := s.moderate(ctx, actorID, userID); err != nil {
		return nil, err
	}
	reason, err := validation.OptionalText("reason", reason, 500)
	if err != nil {
		return nil, validationErr(err)
	}
	return s.users.SetBlocked(ctx, userID, blocked, reason)
}

// SetAdmin grants or revokes administrator rights. Administrators only, and
// never on themselves.
func (s *UserService) SetAdmin(ctx context.Context, actorID, userID uint, admin bool) (*models.User, error) {
	if err := s.moderate(ctx, actorID, userID); err != nil {
		return nil, err
	}
	return s.users.SetAdmin(ctx, userID, admin)
}

func (s *UserService) ListAdmins(ctx context.Context, actorID uint) ([]models.User, error) {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpModerate, policy.Resource{Type: policy.ResourceUser}); err != nil {
		return nil, err
	}
	return s.users.ListAdmins(ctx)
}

func (s *UserService) moderate(ctx context.Context, actorID, userID uint) error {
	actor, err := loadActor(ctx, s.users, actorID)
	if err != nil {
		return err
	}
	if err := authorize(s.policy, actor, policy.OpModerate, policy.Resource{
		Type: policy.ResourceUser, AuthorID: userID,
	}); err != nil {
		return err
	}
	if actorID == userID {
		return models.NewValidationError("administrators cannot moderate themselves")
	}
	return nil
}
