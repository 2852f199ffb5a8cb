package service

import (
	"context"
	"strings"
	"testing"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRepoStub struct {
	users         map[uint]*models.User
	updateFn      func(context.Context, uint, map[string]any) (*models.User, error)
	setBlockedFn  func(context.Context, uint, bool, string) (*models.User, error)
	setAdminFn    func(context.Context, uint, bool) (*models.User, error)
	listAdminsFn  func(context.Context) ([]models.User, error)
	updateCalls   int
	moderateCalls int
}

func (s *userRepoStub) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, models.NewNotFoundError("User", id)
}
func (s *userRepoStub) GetByExternalID(context.Context, string) (*models.User, error) {
	return nil, models.NewNotFoundError("User", nil)
}
func (s *userRepoStub) CreateIfAbsent(_ context.Context, u *models.User) (*models.User, error) {
	return u, nil
}
func (s *userRepoStub) TouchLastSeen(context.Context, uint) error { return nil }
func (s *userRepoStub) UpdateProfile(ctx context.Context, id uint, fields map[string]any) (*models.User, error) {
	s.updateCalls++
	return s.updateFn(ctx, id, fields)
}
func (s *userRepoStub) SetBlocked(ctx context.Context, id uint, blocked bool, reason string) (*models.User, error) {
	s.moderateCalls++
	return s.setBlockedFn(ctx, id, blocked, reason)
}
func (s *userRepoStub) SetAdmin(ctx context.Context, id uint, admin bool) (*models.User, error) {
	s.moderateCalls++
	return s.setAdminFn(ctx, id, admin)
}
func (s *userRepoStub) ListAdmins(ctx context.Context) ([]models.User, error) {
	return s.listAdminsFn(ctx)
}
func (s *userRepoStub) Summaries(_ context.Context, ids []uint) (map[uint]*models.UserSummary, error) {
	out := make(map[uint]*models.UserSummary, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u.Summary()
		}
	}
	return out, nil
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		users: map[uint]*models.User{
			1: {ID: 1, DisplayName: "member"},
			2: {ID: 2, DisplayName: "other"},
			3: {ID: 3, DisplayName: "admin", IsAdmin: true},
			4: {ID: 4, DisplayName: "blocked", IsBlocked: true},
		},
		updateFn: func(_ context.Context, id uint, fields map[string]any) (*models.User, error) {
			u := &models.User{ID: id}
			if v, ok := fields["display_name"].(string); ok {
				u.DisplayName = v
			}
			if v, ok := fields["bio"].(string); ok {
				u.Bio = v
			}
			return u, nil
		},
		setBlockedFn: func(_ context.Context, id uint, blocked bool, reason string) (*models.User, error) {
			return &models.User{ID: id, IsBlocked: blocked, BlockedReason: reason}, nil
		},
		setAdminFn: func(_ context.Context, id uint, admin bool) (*models.User, error) {
			return &models.User{ID: id, IsAdmin: admin}, nil
		},
		listAdminsFn: func(context.Context) ([]models.User, error) {
			return []models.User{{ID: 3, IsAdmin: true}}, nil
		},
	}
}

func TestUserService_UpdateProfile(t *testing.T) {
	ctx := context.Background()

	t.Run("Self Update", func(t *testing.T) {
		repo := noopUserRepo()
		svc := NewUserService(repo, policy.New(policy.DefaultRules()))
		u, err := svc.UpdateProfile(ctx, UpdateProfileInput{ActorID: 1, Fields: map[string]any{
			"display_name": "  Neighbour  ",
			"bio":          "",
		}})
		require.NoError(t, err)
		assert.Equal(t, uint(1), u.ID)
		assert.Equal(t, "Neighbour", u.DisplayName)
		assert.Empty(t, u.Bio)
	})

	tests := []struct {
		name   string
		in     UpdateProfileInput
		code   string
		reason string
	}{
		{"Other Profile", UpdateProfileInput{ActorID: 1, UserID: 2, Fields: map[string]any{"bio": "hi"}}, models.CodeForbidden, policy.ReasonNotProfileOwner},
		{"Admin Edits Bio", UpdateProfileInput{ActorID: 3, UserID: 2, Fields: map[string]any{"bio": "hi"}}, models.CodeForbidden, policy.ReasonAdminModerationOnly},
		{"Immutable Field", UpdateProfileInput{ActorID: 1, Fields: map[string]any{"is_admin": true}}, models.CodeValidation, ""},
		{"Empty Display Name", UpdateProfileInput{ActorID: 1, Fields: map[string]any{"display_name": " "}}, models.CodeValidation, ""},
		{"Bio Too Long", UpdateProfileInput{ActorID: 1, Fields: map[string]any{"bio": strings.Repeat("b", 2001)}}, models.CodeValidation, ""},
		{"Wrong Type", UpdateProfileInput{ActorID: 1, Fields: map[string]any{"location": 12}}, models.CodeValidation, ""},
		{"Blocked Actor", UpdateProfileInput{ActorID: 4, Fields: map[string]any{"bio": "hi"}}, models.CodeForbidden, policy.ReasonActorBlocked},
		{"Anonymous", UpdateProfileInput{Fields: map[string]any{"bio": "hi"}}, models.CodeUnauthenticated, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := noopUserRepo()
			svc := NewUserService(repo, policy.New(policy.DefaultRules()))
			_, err := svc.UpdateProfile(ctx, tt.in)
			if tt.reason != "" {
				assertForbidden(t, err, tt.reason)
			} else {
				assertCode(t, err, tt.code)
			}
			assert.Zero(t, repo.updateCalls)
		})
	}
}

func TestUserService_Moderation(t *testing.T) {
	ctx := context.Background()
	repo := noopUserRepo()
	svc := NewUserService(repo, policy.New(policy.DefaultRules()))

	_, err := svc.SetBlocked(ctx, 1, 2, true, "spam")
	assertForbidden(t, err, policy.ReasonAdminRequired)
	_, err = svc.SetAdmin(ctx, 3, 3, false)
	assertCode(t, err, models.CodeValidation)
	_, err = svc.ListAdmins(ctx, 1)
	assertForbidden(t, err, policy.ReasonAdminRequired)
	assert.Zero(t, repo.moderateCalls)

	u, err := svc.SetBlocked(ctx, 3, 2, true, "  spam  ")
	require.NoError(t, err)
	assert.True(t, u.IsBlocked)
	assert.Equal(t, "spam", u.BlockedReason)

	u, err = svc.SetAdmin(ctx, 3, 1, true)
	require.NoError(t, err)
	assert.True(t, u.IsAdmin)

	admins, err := svc.ListAdmins(ctx, 3)
	require.NoError(t, err)
	assert.Len(t, admins, 1)
	assert.Equal(t, 2, repo.moderateCalls)
}
