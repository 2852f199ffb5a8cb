package seed

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/yogull/yogull-social-platform-sub001/internal/database"
	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/repository"

	"gorm.io/gorm"
)

// Options sizes a seed run.
type Options struct {
	Users           int
	PostsPerUser    int
	CommentsPerPost int
	Discussions     int
	ChatRooms       int
	GalleryItems    int
	MaxDays         int
	Clean           bool
	// Seed fixes the fake data generator. Zero picks a random seed.
	Seed int64
}

// DefaultOptions is a small but complete community.
func DefaultOptions() Options {
	return Options{
		Users:           12,
		PostsPerUser:    4,
		CommentsPerPost: 3,
		Discussions:     6,
		ChatRooms:       4,
		GalleryItems:    3,
		MaxDays:         60,
	}
}

// Summary counts what a run created.
type Summary struct {
	Users              int
	Posts              int
	Comments           int
	Likes              int
	Discussions        int
	DiscussionMessages int
	ChatRooms          int
	ChatMessages       int
	Galleries          int
	GalleryItems       int
}

var categoryNames = []string{
	"Local Events", "Gardening", "Parenting", "Books", "Cooking", "Volunteering", "Lost and Found",
}

// Seed fills db with a connected community: users posting on their own and
// each other's walls, comment threads, likes, discussions, chat rooms and
// galleries.
func Seed(ctx context.Context, db *gorm.DB, opts Options) (*Summary, error) {
	if opts.Users < 2 {
		return nil, fmt.Errorf("seed needs at least 2 users, got %d", opts.Users)
	}
	middleware.Logger.Info("seeding database",
		slog.Int("users", opts.Users),
		slog.Int("posts_per_user", opts.PostsPerUser),
		slog.Bool("clean", opts.Clean))

	if opts.Clean {
		if err := Clear(ctx, db); err != nil {
			return nil, fmt.Errorf("failed to clear data: %w", err)
		}
	}

	store := repository.NewStore(db)
	f := NewFactory(store, opts.Seed)
	sum := &Summary{}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		u, err := f.CreateUser(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create user: %w", err)
		}
		users = append(users, u)
	}
	sum.Users = len(users)

	if err := seedPosts(ctx, f, store, users, opts, sum); err != nil {
		return nil, err
	}
	if err := seedDiscussions(ctx, f, users, opts, sum); err != nil {
		return nil, err
	}
	if err := seedChat(ctx, f, users, opts, sum); err != nil {
		return nil, err
	}
	if opts.GalleryItems > 0 {
		for _, u := range users {
			if !f.Chance(50) {
				continue
			}
			_, items, err := f.CreateGallery(ctx, u, opts.GalleryItems)
			if err != nil {
				return nil, fmt.Errorf("failed to create gallery: %w", err)
			}
			sum.Galleries++
			sum.GalleryItems += len(items)
		}
	}

	middleware.Logger.Info("seeding complete",
		slog.Int("users", sum.Users),
		slog.Int("posts", sum.Posts),
		slog.Int("comments", sum.Comments),
		slog.Int("discussions", sum.Discussions),
		slog.Int("chat_rooms", sum.ChatRooms),
		slog.Int("galleries", sum.Galleries))
	return sum, nil
}

func seedPosts(ctx context.Context, f *Factory, store *repository.Store, users []*models.User, opts Options, sum *Summary) error {
	for _, author := range users {
		for i := 0; i < opts.PostsPerUser; i++ {
			profile := author
			if f.Chance(20) {
				profile = f.Pick(users, author)
			}
			post, err := f.CreatePost(ctx, author, profile, opts.MaxDays)
			if err != nil {
				return fmt.Errorf("failed to create post: %w", err)
			}
			sum.Posts++

			var previous *models.Comment
			for j := 0; j < opts.CommentsPerPost; j++ {
				var parentID *uint
				if previous != nil && f.Chance(30) {
					parentID = &previous.ID
				}
				comment, err := f.CreateComment(ctx, f.Pick(users, nil), post, parentID)
				if err != nil {
					return fmt.Errorf("failed to create comment: %w", err)
				}
				previous = comment
				sum.Comments++
			}

			for _, u := range users {
				if u.ID == author.ID || !f.Chance(25) {
					continue
				}
				liked, err := store.Reactions.Like(ctx, models.TargetPost, post.ID, u.ID)
				if err != nil {
					return fmt.Errorf("failed to like post: %w", err)
				}
				if liked {
					sum.Likes++
				}
			}
		}
	}
	return nil
}

func seedDiscussions(ctx context.Context, f *Factory, users []*models.User, opts Options, sum *Summary) error {
	if opts.Discussions <= 0 {
		return nil
	}
	categories := make([]*models.DiscussionCategory, 0, len(categoryNames))
	for _, name := range categoryNames {
		c, err := f.CreateCategory(ctx, name)
		if err != nil {
			return fmt.Errorf("failed to create category: %w", err)
		}
		categories = append(categories, c)
	}

	for i := 0; i < opts.Discussions; i++ {
		author := f.Pick(users, nil)
		d, err := f.CreateDiscussion(ctx, author, categories[i%len(categories)])
		if err != nil {
			return fmt.Errorf("failed to create discussion: %w", err)
		}
		sum.Discussions++
		for j := 0; j < opts.CommentsPerPost; j++ {
			if _, err := f.CreateDiscussionMessage(ctx, f.Pick(users, nil), d); err != nil {
				return fmt.Errorf("failed to add discussion message: %w", err)
			}
			sum.DiscussionMessages++
		}
	}
	return nil
}

func seedChat(ctx context.Context, f *Factory, users []*models.User, opts Options, sum *Summary) error {
	for i := 0; i < opts.ChatRooms; i++ {
		creator := f.Pick(users, nil)
		members := []*models.User{f.Pick(users, creator)}
		if i%2 == 1 && len(users) > 2 {
			for _, u := range users {
				if u.ID != creator.ID && u.ID != members[0].ID && f.Chance(40) {
					members = append(members, u)
				}
			}
		}
		room, err := f.CreateChatRoom(ctx, creator, members)
		if err != nil {
			return fmt.Errorf("failed to create chat room: %w", err)
		}
		sum.ChatRooms++

		speakers := append([]*models.User{creator}, members...)
		for j := 0; j < opts.CommentsPerPost*2; j++ {
			if _, err := f.SendChatMessage(ctx, speakers[j%len(speakers)], room); err != nil {
				return fmt.Errorf("failed to send chat message: %w", err)
			}
			sum.ChatMessages++
		}
	}
	return nil
}

// Clear removes every row from the schema-managed tables, children first.
func Clear(ctx context.Context, db *gorm.DB) error {
	middleware.Logger.Warn("clearing existing data")
	tables := database.PersistentModels()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Reply chains reference their own table.
		for _, table := range []string{"comments", "discussion_messages"} {
			if err := tx.Exec("UPDATE " + table + " SET parent_id = NULL").Error; err != nil {
				return err
			}
		}
		for i := len(tables) - 1; i >= 0; i-- {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Unscoped().Delete(tables[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
