package policy

import (
	"errors"
	"testing"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	alice   = Actor{ID: 1}
	bob     = Actor{ID: 2}
	admin   = Actor{ID: 9, IsAdmin: true}
	blocked = Actor{ID: 3, IsBlocked: true}
)

func TestCanPerform(t *testing.T) {
	t.Parallel()

	defaults := New(DefaultRules())
	strict := New(Rules{AllowCrossPosting: false, ContextOwnerMayDelete: false})

	tests := []struct {
		name   string
		policy *Policy
		actor  Actor
		op     Operation
		target Resource
		allow  bool
		reason string
	}{
		{"unknown actor", defaults, Actor{}, OpCreate, Resource{Type: models.TargetPost}, false, ReasonUnauthenticated},
		{"blocked actor cannot create", defaults, blocked, OpCreate, Resource{Type: models.TargetPost, AuthorID: 3, ContextOwnerID: 3}, false, ReasonActorBlocked},
		{"blocked actor cannot read", defaults, blocked, OpRead, Resource{Type: models.TargetPost}, false, ReasonActorBlocked},

		{"own wall post", defaults, alice, OpCreate, Resource{Type: models.TargetPost, AuthorID: 1, ContextOwnerID: 1}, true, ""},
		{"impersonated author", defaults, alice, OpCreate, Resource{Type: models.TargetPost, AuthorID: 2, ContextOwnerID: 2}, false, ReasonNotSelfAttributed},
		{"cross post allowed by default", defaults, alice, OpCreate, Resource{Type: models.TargetPost, AuthorID: 1, ContextOwnerID: 2}, true, ""},
		{"cross post disabled", strict, alice, OpCreate, Resource{Type: models.TargetPost, AuthorID: 1, ContextOwnerID: 2}, false, ReasonCrossPostingDisabled},
		{"comment on others post", strict, alice, OpCreate, Resource{Type: models.TargetComment, AuthorID: 1, ContextOwnerID: 2}, true, ""},
		{"category needs admin", defaults, alice, OpCreate, Resource{Type: ResourceCategory, AuthorID: 1}, false, ReasonAdminRequired},
		{"admin creates category", defaults, admin, OpCreate, Resource{Type: ResourceCategory, AuthorID: 9}, true, ""},

		{"public post readable", defaults, bob, OpRead, Resource{Type: models.TargetPost, AuthorID: 1, ContextOwnerID: 1, Visibility: models.VisibilityPublic}, true, ""},
		{"private post hidden", defaults, bob, OpRead, Resource{Type: models.TargetPost, AuthorID: 1, ContextOwnerID: 1, Visibility: models.VisibilityPrivate}, false, ReasonNotVisible},
		{"friends post hidden without graph", defaults, bob, OpRead, Resource{Type: models.TargetPost, AuthorID: 1, ContextOwnerID: 1, Visibility: models.VisibilityFriends}, false, ReasonNotVisible},
		{"wall owner sees private post", defaults, bob, OpRead, Resource{Type: models.TargetPost, AuthorID: 1, ContextOwnerID: 2, Visibility: models.VisibilityPrivate}, true, ""},
		{"admin sees private post", defaults, admin, OpRead, Resource{Type: models.TargetPost, AuthorID: 1, ContextOwnerID: 1, Visibility: models.VisibilityPrivate}, true, ""},

		{"author updates content", defaults, alice, OpUpdate, Resource{Type: models.TargetPost, AuthorID: 1, Fields: []string{"content"}}, true, ""},
		{"non author update", defaults, bob, OpUpdate, Resource{Type: models.TargetPost, AuthorID: 1, Fields: []string{"content"}}, false, ReasonNotAuthor},
		{"wall owner cannot edit", defaults, bob, OpUpdate, Resource{Type: models.TargetPost, AuthorID: 1, ContextOwnerID: 2, Fields: []string{"content"}}, false, ReasonNotAuthor},
		{"admin cannot edit content", defaults, admin, OpUpdate, Resource{Type: models.TargetPost, AuthorID: 1, Fields: []string{"content"}}, false, ReasonAdminModerationOnly},
		{"admin deactivates discussion", defaults, admin, OpUpdate, Resource{Type: models.TargetDiscussion, AuthorID: 1, Fields: []string{"is_active"}}, true, ""},
		{"author deactivates discussion", defaults, alice, OpUpdate, Resource{Type: models.TargetDiscussion, AuthorID: 1, Fields: []string{"is_active", "title"}}, true, ""},
		{"admin mixed fields", defaults, admin, OpUpdate, Resource{Type: models.TargetDiscussion, AuthorID: 1, Fields: []string{"is_active", "title"}}, false, ReasonAdminModerationOnly},

		{"owner edits profile", defaults, alice, OpUpdate, Resource{Type: ResourceProfile, AuthorID: 1, Fields: []string{"bio"}}, true, ""},
		{"other edits profile", defaults, bob, OpUpdate, Resource{Type: ResourceProfile, AuthorID: 1, Fields: []string{"bio"}}, false, ReasonNotProfileOwner},
		{"user promotes self", defaults, alice, OpUpdate, Resource{Type: ResourceProfile, AuthorID: 1, Fields: []string{"is_admin"}}, false, ReasonAdminRequired},
		{"admin blocks user", defaults, admin, OpUpdate, Resource{Type: ResourceProfile, AuthorID: 1, Fields: []string{"is_blocked", "blocked_reason"}}, true, ""},
		{"admin edits bio", defaults, admin, OpUpdate, Resource{Type: ResourceProfile, AuthorID: 1, Fields: []string{"bio"}}, false, ReasonAdminModerationOnly},

		{"author deletes", defaults, alice, OpDelete, Resource{Type: models.TargetComment, AuthorID: 1, ContextOwnerID: 2}, true, ""},
		{"context owner deletes", defaults, bob, OpDelete, Resource{Type: models.TargetComment, AuthorID: 1, ContextOwnerID: 2}, true, ""},
		{"context owner delete disabled", strict, bob, OpDelete, Resource{Type: models.TargetComment, AuthorID: 1, ContextOwnerID: 2}, false, ReasonNotOwner},
		{"stranger deletes", defaults, bob, OpDelete, Resource{Type: models.TargetComment, AuthorID: 1, ContextOwnerID: 1}, false, ReasonNotOwner},
		{"admin deletes", strict, admin, OpDelete, Resource{Type: models.TargetPost, AuthorID: 1}, true, ""},

		{"participant sends", defaults, alice, OpChatSend, Resource{Type: ResourceChatRoom, IsParticipant: true}, true, ""},
		{"non participant sends", defaults, alice, OpChatSend, Resource{Type: ResourceChatRoom}, false, ReasonNotRoomParticipant},
		{"admin non participant reads", defaults, admin, OpChatRead, Resource{Type: ResourceChatRoom}, false, ReasonNotRoomParticipant},

		{"user moderates", defaults, alice, OpModerate, Resource{Type: ResourceUser, AuthorID: 2}, false, ReasonAdminRequired},
		{"admin moderates", defaults, admin, OpModerate, Resource{Type: ResourceUser, AuthorID: 2}, true, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			d := tt.policy.CanPerform(tt.actor, tt.op, tt.target)
			assert.Equal(t, tt.allow, d.Allowed)
			assert.Equal(t, tt.reason, d.Reason)
		})
	}
}

func TestDecisionErr(t *testing.T) {
	t.Parallel()

	assert.NoError(t, Decision{Allowed: true}.Err())

	err := deny(ReasonNotOwner).Err()
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, models.CodeForbidden, appErr.Code)
	assert.Equal(t, ReasonNotOwner, appErr.Reason)
	assert.NotEmpty(t, appErr.Message)

	assert.True(t, models.IsCode(deny(ReasonUnauthenticated).Err(), models.CodeUnauthenticated))
}

func TestActorFromUser(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Actor{}, ActorFromUser(nil))
	u := &models.User{ID: 5, IsAdmin: true, IsBlocked: true}
	assert.Equal(t, Actor{ID: 5, IsAdmin: true, IsBlocked: true}, ActorFromUser(u))
}
