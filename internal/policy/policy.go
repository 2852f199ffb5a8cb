// Package policy is the single authorization contract for every content
// mutation and restricted read. CanPerform is pure: callers load the actor
// and describe the target, the policy only decides.
package policy

import (
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
)

// Operation is an action an actor attempts on a resource.
type Operation string

const (
	OpCreate   Operation = "create"
	OpRead     Operation = "read"
	OpUpdate   Operation = "update"
	OpDelete   Operation = "delete"
	OpChatSend Operation = "chat_send"
	OpChatRead Operation = "chat_read"
	OpModerate Operation = "moderate"
)

// Resource types beyond the content target types in models.
const (
	ResourceProfile  = "profile"
	ResourceChatRoom = "chat_room"
	ResourceCategory = "discussion_category"
	ResourceGallery  = "gallery"
	ResourceFile     = "media_file"
	ResourceUser     = "user"
)

// Stable denial reasons.
const (
	ReasonUnauthenticated      = "unauthenticated"
	ReasonActorBlocked         = "actor_blocked"
	ReasonNotSelfAttributed    = "not_self_attributed"
	ReasonCrossPostingDisabled = "cross_posting_disabled"
	ReasonNotAuthor            = "not_author"
	ReasonAdminModerationOnly  = "admin_moderation_only"
	ReasonNotProfileOwner      = "not_profile_owner"
	ReasonNotOwner             = "not_owner"
	ReasonNotRoomParticipant   = "not_room_participant"
	ReasonAdminRequired        = "admin_required"
	ReasonNotVisible           = "not_visible"
)

// moderationFields may be changed by administrators on content they do not own.
var moderationFields = map[string]bool{
	"is_blocked":     true,
	"blocked_reason": true,
	"is_admin":       true,
	"is_active":      true,
}

// adminOnlyFields may only ever be changed by administrators.
var adminOnlyFields = map[string]bool{
	"is_blocked":     true,
	"blocked_reason": true,
	"is_admin":       true,
}

// Actor is the authenticated user attempting an operation. The zero value is
// an unknown actor.
type Actor struct {
	ID        uint
	IsAdmin   bool
	IsBlocked bool
}

// ActorFromUser builds an Actor from a loaded user row.
func ActorFromUser(u *models.User) Actor {
	if u == nil {
		return Actor{}
	}
	return Actor{ID: u.ID, IsAdmin: u.IsAdmin, IsBlocked: u.IsBlocked}
}

// Resource describes the target of an operation.
type Resource struct {
	Type string
	// AuthorID is the attributed author or owner of the target (for creates,
	// the author the new row will carry).
	AuthorID uint
	// ContextOwnerID owns the surrounding context: the wall owner for posts,
	// the wall owner for comments, the gallery owner for items.
	ContextOwnerID uint
	// Visibility applies to OpRead on wall posts.
	Visibility string
	// Fields lists the columns an update touches.
	Fields []string
	// IsParticipant reports chat room membership for chat operations.
	IsParticipant bool
}

// Rules are the configurable knobs of the policy.
type Rules struct {
	AllowCrossPosting     bool
	ContextOwnerMayDelete bool
}

// DefaultRules allows cross-posting and lets context owners delete.
func DefaultRules() Rules {
	return Rules{AllowCrossPosting: true, ContextOwnerMayDelete: true}
}

// Decision is the outcome of CanPerform.
type Decision struct {
	Allowed bool
	Reason  string
}

var allow = Decision{Allowed: true}

func deny(reason string) Decision {
	return Decision{Reason: reason}
}

// Err returns nil for allowed decisions and the matching AppError otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Reason == ReasonUnauthenticated {
		return models.NewUnauthenticatedError("Authentication required")
	}
	return models.NewForbiddenError(d.Reason, reasonMessages[d.Reason])
}

var reasonMessages = map[string]string{
	ReasonActorBlocked:         "Account is blocked",
	ReasonNotSelfAttributed:    "Content must be attributed to the acting user",
	ReasonCrossPostingDisabled: "Posting on another user's wall is disabled",
	ReasonNotAuthor:            "Only the author can edit this content",
	ReasonAdminModerationOnly:  "Administrators may only change moderation fields",
	ReasonNotProfileOwner:      "Only the profile owner can edit this profile",
	ReasonNotOwner:             "You do not have permission to delete this content",
	ReasonNotRoomParticipant:   "You are not a participant of this chat room",
	ReasonAdminRequired:        "Administrator privileges required",
	ReasonNotVisible:           "Content is not visible to you",
}

// Policy evaluates authorization decisions under a set of rules.
type Policy struct {
	rules Rules
}

// New returns a policy using rules.
func New(rules Rules) *Policy {
	return &Policy{rules: rules}
}

// Rules returns the policy's configuration.
func (p *Policy) Rules() Rules {
	return p.rules
}

// CanPerform decides whether actor may perform op on target.
func (p *Policy) CanPerform(actor Actor, op Operation, target Resource) Decision {
	if actor.ID == 0 {
		return deny(ReasonUnauthenticated)
	}
	if actor.IsBlocked {
		return deny(ReasonActorBlocked)
	}

	switch op {
	case OpCreate:
		return p.canCreate(actor, target)
	case OpRead:
		return p.canRead(actor, target)
	case OpUpdate:
		return p.canUpdate(actor, target)
	case OpDelete:
		return p.canDelete(actor, target)
	case OpChatSend, OpChatRead:
		if !target.IsParticipant {
			return deny(ReasonNotRoomParticipant)
		}
		return allow
	case OpModerate:
		if !actor.IsAdmin {
			return deny(ReasonAdminRequired)
		}
		return allow
	}
	return deny(ReasonNotOwner)
}

func (p *Policy) canCreate(actor Actor, target Resource) Decision {
	if target.Type == ResourceCategory && !actor.IsAdmin {
		return deny(ReasonAdminRequired)
	}
	if target.AuthorID != actor.ID {
		return deny(ReasonNotSelfAttributed)
	}
	if target.Type == models.TargetPost && target.ContextOwnerID != 0 &&
		target.ContextOwnerID != actor.ID && !p.rules.AllowCrossPosting {
		return deny(ReasonCrossPostingDisabled)
	}
	return allow
}

func (p *Policy) canRead(actor Actor, target Resource) Decision {
	if target.Visibility == "" || target.Visibility == models.VisibilityPublic {
		return allow
	}
	// No friendship graph exists, so "friends" narrows to the same audience as "private".
	if actor.IsAdmin || actor.ID == target.AuthorID || actor.ID == target.ContextOwnerID {
		return allow
	}
	return deny(ReasonNotVisible)
}

func (p *Policy) canUpdate(actor Actor, target Resource) Decision {
	touchesAdminOnly := false
	onlyModeration := len(target.Fields) > 0
	for _, f := range target.Fields {
		if adminOnlyFields[f] {
			touchesAdminOnly = true
		}
		if !moderationFields[f] {
			onlyModeration = false
		}
	}

	if touchesAdminOnly && !actor.IsAdmin {
		return deny(ReasonAdminRequired)
	}

	isAuthor := actor.ID == target.AuthorID
	if target.Type == ResourceProfile {
		if isAuthor && !touchesAdminOnly {
			return allow
		}
		if actor.IsAdmin && onlyModeration {
			return allow
		}
		if actor.IsAdmin {
			return deny(ReasonAdminModerationOnly)
		}
		return deny(ReasonNotProfileOwner)
	}

	if isAuthor && !touchesAdminOnly {
		return allow
	}
	if actor.IsAdmin {
		if onlyModeration {
			return allow
		}
		return deny(ReasonAdminModerationOnly)
	}
	return deny(ReasonNotAuthor)
}

func (p *Policy) canDelete(actor Actor, target Resource) Decision {
	if actor.ID == target.AuthorID || actor.IsAdmin {
		return allow
	}
	if p.rules.ContextOwnerMayDelete && target.ContextOwnerID != 0 && actor.ID == target.ContextOwnerID {
		return allow
	}
	return deny(ReasonNotOwner)
}
