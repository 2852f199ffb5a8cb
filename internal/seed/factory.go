// Package seed creates demo data for development databases and tests.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"
	"github.com/yogull/yogull-social-platform-sub001/internal/validation"

	"github.com/brianvoe/gofakeit/v6"
)

// SeedProvider marks users created by the seeder.
const SeedProvider = "seed"

// Factory builds domain rows with fake content and persists them through the
// repository store, so counters and participant rows stay consistent.
type Factory struct {
	store *repository.Store
	faker *gofakeit.Faker
}

// NewFactory returns a factory. A zero seed picks a random one.
func NewFactory(store *repository.Store, seed int64) *Factory {
	return &Factory{store: store, faker: gofakeit.New(seed)}
}

func (f *Factory) CreateUser(ctx context.Context, overrides ...func(*models.User)) (*models.User, error) {
	first, last := f.faker.FirstName(), f.faker.LastName()
	user := &models.User{
		ExternalID:  SeedProvider + ":" + f.faker.UUID(),
		Provider:    SeedProvider,
		DisplayName: first + " " + last,
		Email:       strings.ToLower(fmt.Sprintf("%s.%s%d@example.com", first, last, f.faker.Number(10, 999))),
		Bio:         f.faker.Sentence(10),
		Location:    f.faker.City(),
	}
	for _, override := range overrides {
		override(user)
	}
	return f.store.Users.CreateIfAbsent(ctx, user)
}

// CreatePost writes a post by author on profile's wall with a created_at
// spread over the last maxDays days.
func (f *Factory) CreatePost(ctx context.Context, author, profile *models.User, maxDays int, overrides ...func(*models.Post)) (*models.Post, error) {
	visibility := models.VisibilityPublic
	if author.ID == profile.ID && f.faker.Number(1, 10) == 1 {
		visibility = models.VisibilityPrivate
	}
	post := &models.Post{
		ProfileUserID: profile.ID,
		AuthorID:      author.ID,
		Content:       f.faker.Paragraph(1, 3, 8, "\n"),
		Visibility:    visibility,
		CreatedAt:     f.pastTime(maxDays),
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.store.Posts.Create(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (f *Factory) CreateComment(ctx context.Context, author *models.User, post *models.Post, parentID *uint) (*models.Comment, error) {
	comment := &models.Comment{
		PostID:   post.ID,
		AuthorID: author.ID,
		ParentID: parentID,
		Content:  f.faker.Sentence(8),
	}
	if err := f.store.Comments.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// CreateCategory returns the category named name, creating it when absent.
func (f *Factory) CreateCategory(ctx context.Context, name string) (*models.DiscussionCategory, error) {
	slug := validation.Slugify(name)
	existing, err := f.store.Discussions.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	for i := range existing {
		if existing[i].Slug == slug {
			return &existing[i], nil
		}
	}
	category := &models.DiscussionCategory{
		Name:        name,
		Slug:        slug,
		Description: f.faker.Sentence(12),
	}
	if err := f.store.Discussions.CreateCategory(ctx, category); err != nil {
		return nil, err
	}
	return category, nil
}

func (f *Factory) CreateDiscussion(ctx context.Context, author *models.User, category *models.DiscussionCategory) (*models.Discussion, error) {
	discussion := &models.Discussion{
		CategoryID: category.ID,
		AuthorID:   author.ID,
		Title:      strings.TrimSuffix(f.faker.Sentence(6), "."),
		Content:    f.faker.Paragraph(1, 2, 10, "\n"),
	}
	if err := f.store.Discussions.Create(ctx, discussion); err != nil {
		return nil, err
	}
	return discussion, nil
}

func (f *Factory) CreateDiscussionMessage(ctx context.Context, author *models.User, discussion *models.Discussion) (*models.DiscussionMessage, error) {
	msg := &models.DiscussionMessage{
		DiscussionID: discussion.ID,
		AuthorID:     author.ID,
		Content:      f.faker.Sentence(12),
	}
	if _, err := f.store.Discussions.AddMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateChatRoom opens a room created by creator with the given members.
// Rooms with more than one other member are group rooms.
func (f *Factory) CreateChatRoom(ctx context.Context, creator *models.User, members []*models.User) (*models.ChatRoom, error) {
	ids := make([]uint, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ID)
	}
	room := &models.ChatRoom{
		Name:      f.faker.Hobby(),
		IsGroup:   len(ids) > 1,
		CreatedBy: creator.ID,
	}
	if err := f.store.Chat.CreateRoom(ctx, room, ids); err != nil {
		return nil, err
	}
	return room, nil
}

func (f *Factory) SendChatMessage(ctx context.Context, sender *models.User, room *models.ChatRoom) (*models.ChatMessage, error) {
	msg := &models.ChatMessage{
		RoomID:   room.ID,
		SenderID: sender.ID,
		Content:  f.faker.Sentence(10),
	}
	if err := f.store.Chat.SendMessage(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// CreateMediaFile records an image owned by owner. No blob is written.
func (f *Factory) CreateMediaFile(ctx context.Context, owner *models.User) (*models.MediaFile, error) {
	file := &models.MediaFile{
		OwnerID:     owner.ID,
		StorageKey:  "seed/" + f.faker.UUID() + ".jpg",
		ContentType: "image/jpeg",
		SizeBytes:   int64(f.faker.Number(20_000, 2_000_000)),
	}
	if err := f.store.Media.CreateFile(ctx, file); err != nil {
		return nil, err
	}
	return file, nil
}

// CreateGallery writes a gallery for owner holding items fresh images.
func (f *Factory) CreateGallery(ctx context.Context, owner *models.User, items int) (*models.Gallery, []models.GalleryItem, error) {
	gallery := &models.Gallery{
		OwnerID:     owner.ID,
		Title:       strings.TrimSuffix(f.faker.Sentence(3), "."),
		Description: f.faker.Sentence(10),
	}
	if err := f.store.Galleries.Create(ctx, gallery); err != nil {
		return nil, nil, err
	}

	created := make([]models.GalleryItem, 0, items)
	for i := 0; i < items; i++ {
		file, err := f.CreateMediaFile(ctx, owner)
		if err != nil {
			return nil, nil, err
		}
		item := models.GalleryItem{GalleryID: gallery.ID, FileID: file.ID, Caption: f.faker.Sentence(5)}
		err = f.store.Transaction(ctx, func(tx *repository.Store) error {
			if err := tx.Galleries.AddItem(ctx, &item); err != nil {
				return err
			}
			return tx.Media.AttachExclusive(ctx, &models.MediaAttachment{
				FileID:      file.ID,
				OwnerID:     owner.ID,
				Role:        models.RoleGalleryItem,
				ContextType: models.TargetGalleryItem,
				ContextID:   item.ID,
			})
		})
		if err != nil {
			return nil, nil, err
		}
		created = append(created, item)
	}
	return gallery, created, nil
}

// Pick returns a random element of users other than skip.
func (f *Factory) Pick(users []*models.User, skip *models.User) *models.User {
	if len(users) == 1 {
		return users[0]
	}
	for {
		u := users[f.faker.Number(0, len(users)-1)]
		if skip == nil || u.ID != skip.ID {
			return u
		}
	}
}

func (f *Factory) Chance(percent int) bool {
	return f.faker.Number(1, 100) <= percent
}

func (f *Factory) pastTime(maxDays int) time.Time {
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute
	return time.Now().Add(-back)
}
