package service

import (
	"context"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/notifications"
	"github.com/yogull/yogull-social-platform-sub001/internal/observability"
	"github.com/yogull/yogull-social-platform-sub001/internal/policy"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
	"github.com/yogull/yogull-social-platform-sub001/internal/validation"

	"go.opentelemetry.io/otel/attribute"
)

// WallService owns profile wall posts and their comments.
type WallService struct {
	store  *repository.Store
	policy *policy.Policy
	events notifications.Publisher
}

type CreatePostInput struct {
	ActorID uint
	// WallUserID is the profile the post appears on; zero means the actor's own.
	WallUserID  uint
	Content     string
	Visibility  string
	MediaFileID *uint
}

type ListFeedInput struct {
	ViewerID uint
	// WallUserID restricts the feed to one profile wall when non-zero.
	WallUserID uint
	Cursor     string
	Limit      int
}

// FeedPage is one page of the feed. NextCursor is empty on the last page.
type FeedPage struct {
	Posts      []models.Post `json:"posts"`
	NextCursor string        `json:"next_cursor,omitempty"`
}

type UpdatePostInput struct {
	ActorID uint
	PostID  uint
	Fields  map[string]any
}

type CreateCommentInput struct {
	ActorID  uint
	PostID   uint
	ParentID *uint
	Content  string
}

type UpdateCommentInput struct {
	ActorID   uint
	CommentID uint
	Fields    map[string]any
}

func NewWallService(store *repository.Store, pol *policy.Policy, events notifications.Publisher) *WallService {
	return &WallService{store: store, policy: pol, events: publisherOrDiscard(events)}
}

func (s *WallService) CreatePost(ctx context.Context, in CreatePostInput) (post *models.Post, err error) {
	span, ctx := observability.NewSpan(ctx, "WallService.CreatePost")
	defer func() { span.Finish(err) }()

	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	wallID := in.WallUserID
	if wallID == 0 {
		wallID = in.ActorID
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: models.TargetPost, AuthorID: in.ActorID, ContextOwnerID: wallID,
	}); err != nil {
		return nil, err
	}

	content, err := validation.Text("content", in.Content, validation.MaxPostLen)
	if err != nil {
		return nil, validationErr(err)
	}
	visibility := in.Visibility
	if visibility == "" {
		visibility = models.VisibilityPublic
	}
	if !models.ValidVisibility(visibility) {
		return nil, models.NewValidationError("visibility must be public, friends or private")
	}
	if wallID != in.ActorID {
		if _, err := s.store.Users.GetByID(ctx, wallID); err != nil {
			return nil, err
		}
	}

	post = &models.Post{
		ProfileUserID: wallID,
		AuthorID:      in.ActorID,
		Content:       content,
		Visibility:    visibility,
		MediaFileID:   in.MediaFileID,
	}
	err = s.store.Transaction(ctx, func(tx *repository.Store) error {
		if err := tx.Posts.Create(ctx, post); err != nil {
			return err
		}
		if in.MediaFileID == nil {
			return nil
		}
		return tx.Media.AttachExclusive(ctx, &models.MediaAttachment{
			FileID:      *in.MediaFileID,
			OwnerID:     in.ActorID,
			Role:        models.RolePostMedia,
			ContextType: models.TargetPost,
			ContextID:   post.ID,
		})
	})
	if err != nil {
		return nil, err
	}
	span.AddAttributes(attribute.Int64("post.id", int64(post.ID)))
	countMutation(models.TargetPost, "create")

	s.events.Publish(ctx, notifications.Event{
		Kind:        notifications.WallPostCreated,
		ActorID:     in.ActorID,
		PostID:      post.ID,
		WallOwnerID: wallID,
	})

	s.enrichPosts(ctx, in.ActorID, []*models.Post{post})
	return post, nil
}

// GetPost returns a post visible to the viewer. Posts the viewer may not see
// are reported as missing.
func (s *WallService) GetPost(ctx context.Context, viewerID, postID uint) (*models.Post, error) {
	actor, err := loadActor(ctx, s.store.Users, viewerID)
	if err != nil {
		return nil, err
	}
	post, err := s.visiblePost(ctx, actor, postID)
	if err != nil {
		return nil, err
	}
	s.enrichPosts(ctx, viewerID, []*models.Post{post})
	return post, nil
}

func (s *WallService) visiblePost(ctx context.Context, actor policy.Actor, postID uint) (*models.Post, error) {
	post, err := s.store.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	d := s.policy.CanPerform(actor, policy.OpRead, policy.Resource{
		Type:           models.TargetPost,
		AuthorID:       post.AuthorID,
		ContextOwnerID: post.ProfileUserID,
		Visibility:     post.Visibility,
	})
	if !d.Allowed {
		if d.Reason == policy.ReasonNotVisible {
			return nil, models.NewNotFoundError("Post", postID)
		}
		return nil, d.Err()
	}
	return post, nil
}

// ListFeed returns posts newest first using an opaque keyset cursor.
func (s *WallService) ListFeed(ctx context.Context, in ListFeedInput) (page *FeedPage, err error) {
	span, ctx := observability.NewSpan(ctx, "WallService.ListFeed")
	defer func() { span.Finish(err) }()

	viewer, err := loadActor(ctx, s.store.Users, in.ViewerID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, viewer, policy.OpRead, policy.Resource{Type: models.TargetPost}); err != nil {
		return nil, err
	}
	cursor, err := repository.DecodeCursor(in.Cursor)
	if err != nil {
		return nil, err
	}
	if in.WallUserID != 0 {
		if _, err := s.store.Users.GetByID(ctx, in.WallUserID); err != nil {
			return nil, err
		}
	}

	posts, next, err := s.store.Posts.Feed(ctx, repository.FeedQuery{
		ViewerID:      viewer.ID,
		ViewerIsAdmin: viewer.IsAdmin,
		WallUserID:    in.WallUserID,
		Cursor:        cursor,
		Limit:         in.Limit,
	})
	if err != nil {
		return nil, err
	}

	ptrs := make([]*models.Post, len(posts))
	for i := range posts {
		ptrs[i] = &posts[i]
	}
	s.enrichPosts(ctx, viewer.ID, ptrs)
	span.AddAttributes(attribute.Int("feed.size", len(posts)))
	return &FeedPage{Posts: posts, NextCursor: next}, nil
}

// ListWall is ListFeed restricted to one profile wall.
func (s *WallService) ListWall(ctx context.Context, viewerID, wallUserID uint, cursor string, limit int) (*FeedPage, error) {
	if wallUserID == 0 {
		return nil, models.NewValidationError("wall user is required")
	}
	return s.ListFeed(ctx, ListFeedInput{ViewerID: viewerID, WallUserID: wallUserID, Cursor: cursor, Limit: limit})
}

func (s *WallService) UpdatePost(ctx context.Context, in UpdatePostInput) (*models.Post, error) {
	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	keys, err := validation.CheckMutableFields(in.Fields, "content", "visibility")
	if err != nil {
		return nil, validationErr(err)
	}
	post, err := s.store.Posts.GetByID(ctx, in.PostID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpUpdate, policy.Resource{
		Type: models.TargetPost, AuthorID: post.AuthorID, ContextOwnerID: post.ProfileUserID, Fields: keys,
	}); err != nil {
		return nil, err
	}

	updates := make(map[string]any, len(keys))
	if v, ok := in.Fields["content"]; ok {
		str, _ := v.(string)
		content, err := validation.Text("content", str, validation.MaxPostLen)
		if err != nil {
			return nil, validationErr(err)
		}
		updates["content"] = content
	}
	if v, ok := in.Fields["visibility"]; ok {
		str, _ := v.(string)
		if !models.ValidVisibility(str) {
			return nil, models.NewValidationError("visibility must be public, friends or private")
		}
		updates["visibility"] = str
	}

	updated, err := s.store.Posts.Update(ctx, in.PostID, updates)
	if err != nil {
		return nil, err
	}
	countMutation(models.TargetPost, "update")
	s.enrichPosts(ctx, in.ActorID, []*models.Post{updated})
	return updated, nil
}

// DeletePost tombstones the post and everything hanging off it.
func (s *WallService) DeletePost(ctx context.Context, actorID, postID uint) (summary *models.CascadeSummary, err error) {
	span, ctx := observability.NewSpan(ctx, "WallService.DeletePost",
		attribute.Int64("post.id", int64(postID)))
	defer func() { span.Finish(err) }()

	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return nil, err
	}
	post, err := s.store.Posts.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpDelete, policy.Resource{
		Type: models.TargetPost, AuthorID: post.AuthorID, ContextOwnerID: post.ProfileUserID,
	}); err != nil {
		return nil, err
	}
	summary, err = s.store.Posts.Delete(ctx, postID)
	if err != nil {
		return nil, err
	}
	countMutation(models.TargetPost, "delete")
	return summary, nil
}

func (s *WallService) CreateComment(ctx context.Context, in CreateCommentInput) (comment *models.Comment, err error) {
	span, ctx := observability.NewSpan(ctx, "WallService.CreateComment",
		attribute.Int64("post.id", int64(in.PostID)))
	defer func() { span.Finish(err) }()

	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: models.TargetComment, AuthorID: in.ActorID,
	}); err != nil {
		return nil, err
	}
	content, err := validation.Text("content", in.Content, validation.MaxCommentLen)
	if err != nil {
		return nil, validationErr(err)
	}
	post, err := s.visiblePost(ctx, actor, in.PostID)
	if err != nil {
		return nil, err
	}

	var parentAuthorID uint
	if in.ParentID != nil {
		parent, err := s.store.Comments.GetByID(ctx, *in.ParentID)
		if err != nil {
			return nil, err
		}
		parentAuthorID = parent.AuthorID
	}

	comment = &models.Comment{
		PostID:   in.PostID,
		AuthorID: in.ActorID,
		ParentID: in.ParentID,
		Content:  content,
	}
	if err := s.store.Comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	countMutation(models.TargetComment, "create")

	s.events.Publish(ctx, notifications.Event{
		Kind:           notifications.CommentCreated,
		ActorID:        in.ActorID,
		PostID:         post.ID,
		PostAuthorID:   post.AuthorID,
		CommentID:      comment.ID,
		ParentAuthorID: parentAuthorID,
	})

	s.enrichComments(ctx, []*models.Comment{comment})
	return comment, nil
}

func (s *WallService) ListComments(ctx context.Context, viewerID, postID uint, limit, offset int) ([]models.Comment, error) {
	actor, err := loadActor(ctx, s.store.Users, viewerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.visiblePost(ctx, actor, postID); err != nil {
		return nil, err
	}
	comments, err := s.store.Comments.ListByPost(ctx, postID, limit, offset)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*models.Comment, len(comments))
	for i := range comments {
		ptrs[i] = &comments[i]
	}
	s.enrichComments(ctx, ptrs)
	return comments, nil
}

func (s *WallService) UpdateComment(ctx context.Context, in UpdateCommentInput) (*models.Comment, error) {
	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	keys, err := validation.CheckMutableFields(in.Fields, "content")
	if err != nil {
		return nil, validationErr(err)
	}
	comment, err := s.store.Comments.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpUpdate, policy.Resource{
		Type: models.TargetComment, AuthorID: comment.AuthorID, Fields: keys,
	}); err != nil {
		return nil, err
	}
	str, _ := in.Fields["content"].(string)
	content, err := validation.Text("content", str, validation.MaxCommentLen)
	if err != nil {
		return nil, validationErr(err)
	}
	updated, err := s.store.Comments.Update(ctx, in.CommentID, map[string]any{"content": content})
	if err != nil {
		return nil, err
	}
	countMutation(models.TargetComment, "update")
	s.enrichComments(ctx, []*models.Comment{updated})
	return updated, nil
}

// DeleteComment tombstones the comment and its replies. The wall owner may
// delete comments on their wall when the policy allows it.
func (s *WallService) DeleteComment(ctx context.Context, actorID, commentID uint) (*models.CascadeSummary, error) {
	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return nil, err
	}
	comment, err := s.store.Comments.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	post, err := s.store.Posts.GetByID(ctx, comment.PostID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpDelete, policy.Resource{
		Type: models.TargetComment, AuthorID: comment.AuthorID, ContextOwnerID: post.ProfileUserID,
	}); err != nil {
		return nil, err
	}
	summary, err := s.store.Comments.Delete(ctx, commentID)
	if err != nil {
		return nil, err
	}
	countMutation(models.TargetComment, "delete")
	return summary, nil
}

// SharePost records a share by the actor. It reports whether a new share was
// created; sharing twice is a no-op.
func (s *WallService) SharePost(ctx context.Context, actorID, postID uint) (bool, error) {
	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return false, err
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: "share", AuthorID: actorID,
	}); err != nil {
		return false, err
	}
	if _, err := s.visiblePost(ctx, actor, postID); err != nil {
		return false, err
	}
	changed, err := s.store.Reactions.Share(ctx, models.TargetPost, postID, actorID)
	if err == nil && changed {
		countMutation(models.TargetPost, "share")
	}
	return changed, err
}

func (s *WallService) UnsharePost(ctx context.Context, actorID, postID uint) (bool, error) {
	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return false, err
	}
	if err := authorize(s.policy, actor, policy.OpDelete, policy.Resource{
		Type: "share", AuthorID: actorID,
	}); err != nil {
		return false, err
	}
	return s.store.Reactions.Unshare(ctx, models.TargetPost, postID, actorID)
}

func (s *WallService) enrichPosts(ctx context.Context, viewerID uint, posts []*models.Post) {
	if len(posts) == 0 {
		return
	}
	ids := make([]uint, 0, len(posts))
	authors := make([]uint, 0, len(posts))
	for _, p := range posts {
		ids = append(ids, p.ID)
		authors = append(authors, p.AuthorID)
	}
	summaries := authorSummaries(ctx, s.store.Users, authors)
	liked, _ := s.store.Reactions.LikedBy(ctx, models.TargetPost, viewerID, ids)
	for _, p := range posts {
		p.Author = summaries[p.AuthorID]
		p.Liked = liked[p.ID]
	}
}

func (s *WallService) enrichComments(ctx context.Context, comments []*models.Comment) {
	authors := make([]uint, 0, len(comments))
	for _, c := range comments {
		authors = append(authors, c.AuthorID)
	}
	summaries := authorSummaries(ctx, s.store.Users, authors)
	for _, c := range comments {
		c.Author = summaries[c.AuthorID]
	}
}
