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

// DiscussionService owns community discussions, their categories and messages.
type DiscussionService struct {
	store  *repository.Store
	policy *policy.Policy
	events notifications.Publisher
}

type CreateCategoryInput struct {
	ActorID     uint
	Name        string
	Slug        string
	Description string
}

type CreateDiscussionInput struct {
	ActorID    uint
	CategoryID uint
	Title      string
	Content    string
}

type UpdateDiscussionInput struct {
	ActorID      uint
	DiscussionID uint
	Fields       map[string]any
}

type PostMessageInput struct {
	ActorID      uint
	DiscussionID uint
	ParentID     *uint
	Content      string
}

type UpdateMessageInput struct {
	ActorID   uint
	MessageID uint
	Fields    map[string]any
}

func NewDiscussionService(store *repository.Store, pol *policy.Policy, events notifications.Publisher) *DiscussionService {
	return &DiscussionService{store: store, policy: pol, events: publisherOrDiscard(events)}
}

func (s *DiscussionService) ListCategories(ctx context.Context) ([]models.DiscussionCategory, error) {
	return s.store.Discussions.ListCategories(ctx)
}

// CreateCategory adds a category. Administrators only.
func (s *DiscussionService) CreateCategory(ctx context.Context, in CreateCategoryInput) (*models.DiscussionCategory, error) {
	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: policy.ResourceCategory, AuthorID: in.ActorID,
	}); err != nil {
		return nil, err
	}

	name, err := validation.Text("name", in.Name, 80)
	if err != nil {
		return nil, validationErr(err)
	}
	slug := in.Slug
	if slug == "" {
		slug = validation.Slugify(name)
	}
	if err := validation.ValidateCategorySlug(slug); err != nil {
		return nil, validationErr(err)
	}
	description, err := validation.OptionalText("description", in.Description, validation.MaxBioLen)
	if err != nil {
		return nil, validationErr(err)
	}

	category := &models.DiscussionCategory{Name: name, Slug: slug, Description: description}
	if err := s.store.Discussions.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	countMutation(policy.ResourceCategory, "create")
	return category, nil
}

func (s *DiscussionService) CreateDiscussion(ctx context.Context, in CreateDiscussionInput) (discussion *models.Discussion, err error) {
	span, ctx := observability.NewSpan(ctx, "DiscussionService.CreateDiscussion")
	defer func() { span.Finish(err) }()

	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: models.TargetDiscussion, AuthorID: in.ActorID,
	}); err != nil {
		return nil, err
	}
	title, err := validation.Text("title", in.Title, validation.MaxTitleLen)
	if err != nil {
		return nil, validationErr(err)
	}
	content, err := validation.OptionalText("content", in.Content, validation.MaxPostLen)
	if err != nil {
		return nil, validationErr(err)
	}

	discussion = &models.Discussion{
		CategoryID: in.CategoryID,
		AuthorID:   in.ActorID,
		Title:      title,
		Content:    content,
	}
	if err := s.store.Discussions.Create(ctx, discussion); err != nil {
		return nil, err
	}
	countMutation(models.TargetDiscussion, "create")
	s.enrichDiscussions(ctx, []*models.Discussion{discussion})
	return discussion, nil
}

func (s *DiscussionService) GetDiscussion(ctx context.Context, id uint) (*models.Discussion, error) {
	d, err := s.store.Discussions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	s.enrichDiscussions(ctx, []*models.Discussion{d})
	return d, nil
}

// ListDiscussions lists discussions newest first, optionally within one category.
func (s *DiscussionService) ListDiscussions(ctx context.Context, categoryID uint, limit, offset int) ([]models.Discussion, error) {
	list, err := s.store.Discussions.List(ctx, categoryID, limit, offset)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*models.Discussion, len(list))
	for i := range list {
		ptrs[i] = &list[i]
	}
	s.enrichDiscussions(ctx, ptrs)
	return list, nil
}

// UpdateDiscussion edits title and content (author) or is_active (author or
// administrator, as a moderation field).
func (s *DiscussionService) UpdateDiscussion(ctx context.Context, in UpdateDiscussionInput) (*models.Discussion, error) {
	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	keys, err := validation.CheckMutableFields(in.Fields, "title", "content", "is_active")
	if err != nil {
		return nil, validationErr(err)
	}
	d, err := s.store.Discussions.GetByID(ctx, in.DiscussionID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpUpdate, policy.Resource{
		Type: models.TargetDiscussion, AuthorID: d.AuthorID, Fields: keys,
	}); err != nil {
		return nil, err
	}

	updates := make(map[string]any, len(keys))
	if v, ok := in.Fields["title"]; ok {
		str, _ := v.(string)
		title, err := validation.Text("title", str, validation.MaxTitleLen)
		if err != nil {
			return nil, validationErr(err)
		}
		updates["title"] = title
	}
	if v, ok := in.Fields["content"]; ok {
		str, _ := v.(string)
		content, err := validation.OptionalText("content", str, validation.MaxPostLen)
		if err != nil {
			return nil, validationErr(err)
		}
		updates["content"] = content
	}
	if v, ok := in.Fields["is_active"]; ok {
		active, isBool := v.(bool)
		if !isBool {
			return nil, models.NewValidationError("is_active must be a boolean")
		}
		updates["is_active"] = active
	}

	updated, err := s.store.Discussions.Update(ctx, in.DiscussionID, updates)
	if err != nil {
		return nil, err
	}
	countMutation(models.TargetDiscussion, "update")
	s.enrichDiscussions(ctx, []*models.Discussion{updated})
	return updated, nil
}

func (s *DiscussionService) DeleteDiscussion(ctx context.Context, actorID, id uint) (*models.CascadeSummary, error) {
	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return nil, err
	}
	d, err := s.store.Discussions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpDelete, policy.Resource{
		Type: models.TargetDiscussion, AuthorID: d.AuthorID,
	}); err != nil {
		return nil, err
	}
	summary, err := s.store.Discussions.Delete(ctx, id)
	if err != nil {
		return nil, err
	}
	countMutation(models.TargetDiscussion, "delete")
	return summary, nil
}

// PostMessage adds a message, joining the actor to the discussion, and
// notifies the other participants.
func (s *DiscussionService) PostMessage(ctx context.Context, in PostMessageInput) (msg *models.DiscussionMessage, err error) {
	span, ctx := observability.NewSpan(ctx, "DiscussionService.PostMessage",
		attribute.Int64("discussion.id", int64(in.DiscussionID)))
	defer func() { span.Finish(err) }()

	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpCreate, policy.Resource{
		Type: models.TargetDiscussionMessage, AuthorID: in.ActorID,
	}); err != nil {
		return nil, err
	}
	content, err := validation.Text("content", in.Content, validation.MaxMessageLen)
	if err != nil {
		return nil, validationErr(err)
	}
	d, err := s.store.Discussions.GetByID(ctx, in.DiscussionID)
	if err != nil {
		return nil, err
	}

	msg = &models.DiscussionMessage{
		DiscussionID: in.DiscussionID,
		AuthorID:     in.ActorID,
		ParentID:     in.ParentID,
		Content:      content,
	}
	joined, err := s.store.Discussions.AddMessage(ctx, msg)
	if err != nil {
		return nil, err
	}
	span.AddAttributes(attribute.Bool("discussion.joined", joined))
	countMutation(models.TargetDiscussionMessage, "create")

	s.events.Publish(ctx, notifications.Event{
		Kind:         notifications.DiscussionMessageCreated,
		ActorID:      in.ActorID,
		DiscussionID: d.ID,
		MessageID:    msg.ID,
		CategoryID:   d.CategoryID,
	})

	s.enrichMessages(ctx, []*models.DiscussionMessage{msg})
	return msg, nil
}

func (s *DiscussionService) ListMessages(ctx context.Context, discussionID uint, limit, offset int) ([]models.DiscussionMessage, error) {
	if _, err := s.store.Discussions.GetByID(ctx, discussionID); err != nil {
		return nil, err
	}
	list, err := s.store.Discussions.ListMessages(ctx, discussionID, limit, offset)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*models.DiscussionMessage, len(list))
	for i := range list {
		ptrs[i] = &list[i]
	}
	s.enrichMessages(ctx, ptrs)
	return list, nil
}

func (s *DiscussionService) UpdateMessage(ctx context.Context, in UpdateMessageInput) (*models.DiscussionMessage, error) {
	actor, err := loadActor(ctx, s.store.Users, in.ActorID)
	if err != nil {
		return nil, err
	}
	keys, err := validation.CheckMutableFields(in.Fields, "content")
	if err != nil {
		return nil, validationErr(err)
	}
	msg, err := s.store.Discussions.GetMessage(ctx, in.MessageID)
	if err != nil {
		return nil, err
	}
	if err := authorize(s.policy, actor, policy.OpUpdate, policy.Resource{
		Type: models.TargetDiscussionMessage, AuthorID: msg.AuthorID, Fields: keys,
	}); err != nil {
		return nil, err
	}
	str, _ := in.Fields["content"].(string)
	content, err := validation.Text("content", str, validation.MaxMessageLen)
	if err != nil {
		return nil, validationErr(err)
	}
	updated, err := s.store.Discussions.UpdateMessage(ctx, in.MessageID, map[string]any{"content": content})
	if err != nil {
		return nil, err
	}
	countMutation(models.TargetDiscussionMessage, "update")
	s.enrichMessages(ctx, []*models.DiscussionMessage{updated})
	return updated, nil
}

// DeleteMessage tombstones a message. The discussion's author may remove
// messages in their discussion when the policy allows context owners to.
func (s *DiscussionService) DeleteMessage(ctx context.Context, actorID, messageID uint) (*models.CascadeSummary, error) {
	actor, err := loadActor(ctx, s.store.Users, actorID)
	if err != nil {
		return nil, err
	}
	msg, err := s.store.Discussions.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	var contextOwner uint
	if d, err := s.store.Discussions.GetByID(ctx, msg.DiscussionID); err == nil {
		contextOwner = d.AuthorID
	}
	if err := authorize(s.policy, actor, policy.OpDelete, policy.Resource{
		Type: models.TargetDiscussionMessage, AuthorID: msg.AuthorID, ContextOwnerID: contextOwner,
	}); err != nil {
		return nil, err
	}
	if err := s.store.Discussions.DeleteMessage(ctx, messageID); err != nil {
		return nil, err
	}
	countMutation(models.TargetDiscussionMessage, "delete")
	return &models.CascadeSummary{TargetType: models.TargetDiscussionMessage, TargetID: messageID, Messages: 1}, nil
}

func (s *DiscussionService) enrichDiscussions(ctx context.Context, list []*models.Discussion) {
	if len(list) == 0 {
		return
	}
	authors := make([]uint, 0, len(list))
	for _, d := range list {
		authors = append(authors, d.AuthorID)
	}
	summaries := authorSummaries(ctx, s.store.Users, authors)

	categories := make(map[uint]*models.DiscussionCategory)
	if all, err := s.store.Discussions.ListCategories(ctx); err == nil {
		for i := range all {
			categories[all[i].ID] = &all[i]
		}
	}
	for _, d := range list {
		d.Author = summaries[d.AuthorID]
		d.Category = categories[d.CategoryID]
	}
}

func (s *DiscussionService) enrichMessages(ctx context.Context, list []*models.DiscussionMessage) {
	authors := make([]uint, 0, len(list))
	for _, m := range list {
		authors = append(authors, m.AuthorID)
	}
	summaries := authorSummaries(ctx, s.store.Users, authors)
	for _, m := range list {
		m.Author = summaries[m.AuthorID]
	}
}
