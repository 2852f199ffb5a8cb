package service

import (
	"context"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/observability"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// ContentService exposes the target-type-generic operations: toggling a like
// and deleting any piece of content.
type ContentService struct {
	store       *repository.Store
	policy      *policy.Policy
	wall        *WallService
	discussions *DiscussionService
	chat        *ChatService
	galleries   *GalleryService
}

func NewContentService(
	store *repository.Store,
	pol *policy.Policy,
	wall *WallService,
	discussions *DiscussionService,
	chat *ChatService,
	galleries *GalleryService,
) *ContentService {
	return &ContentService{
		store:       store,
		policy:      pol,
		wall:        wall,
		discussions: discussions,
		chat:        chat,
		galleries:   galleries,
	}
}

// ToggleLike flips the actor's like on a post, comment or gallery item and
// returns the resulting state.
func (s *ContentService) ToggleLike(ctx context.Context, userID, targetID uint, targetType string) (state *models.LikeState, err error) {
	span, ctx := observability.NewSpan(ctx, "ContentService.ToggleLike",
		attribute.String("target.type", targetType),
		attribute.Int64("target.id", int64(targetID)))
	defer func() { span.Finish(err) }()

	actor, err := loadActor(ctx, s.store.Users, userID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: "like", AuthorID: userID,
	}); err != nil {
		return nil, err
	}

	switch targetType {
	case models.TargetPost:
		if _, err := s.wall.visiblePost(ctx, actor, targetID); err != nil {
			return nil, err
		}
	case models.TargetComment:
		comment, err := s.store.Comments.GetByID(ctx, targetID)
		if err != nil {
			return nil, err
		}
		if _, err := s.wall.visiblePost(ctx, actor, comment.PostID); err != nil {
			return nil, err
		}
	case models.TargetGalleryItem:
		// Toggle checks the item is live.
	default:
		return nil, models.NewValidationError("target_type must be post, comment or gallery_item")
	}

	state, err = s.store.Reactions.Toggle(ctx, targetType, targetID, userID)
	if err != nil {
		return nil, err
	}
	action := "unlike"
	if state.Liked {
		action = "like"
	}
	countMutation(targetType, action)
	return state, nil
}

// DeleteContent deletes any content type on behalf of the actor, applying the
// same ownership rules as the type-specific operations.
func (s *ContentService) DeleteContent(ctx context.Context, actingUserID, targetID uint, targetType string) (*models.CascadeSummary, error) {
	switch targetType {
	case models.TargetPost:
		return s.wall.DeletePost(ctx, actingUserID, targetID)
	case models.TargetComment:
		return s.wall.DeleteComment(ctx, actingUserID, targetID)
	case models.TargetDiscussion:
		return s.discussions.DeleteDiscussion(ctx, actingUserID, targetID)
	case models.TargetDiscussionMessage:
		return s.discussions.DeleteMessage(ctx, actingUserID, targetID)
	case models.TargetChatMessage:
		return s.chat.DeleteMessage(ctx, actingUserID, targetID)
	case models.TargetGalleryItem:
		return s.galleries.DeleteItem(ctx, actingUserID, targetID)
	}
	return nil, models.NewValidationError("unknown target_type " + targetType)
}
