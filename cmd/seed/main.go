// Command seed populates a development database with a demo community.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/yogull/yogull-social-platform-sub001/internal/config"
	"github.com/yogull/yogull-social-platform-sub001/internal/database"
	"github.com/yogull/yogull-social-platform-sub001/internal/seed"

	"github.com/spf13/cobra"
)

func main() {
	opts := seed.DefaultOptions()
	root := &cobra.Command{
		Use:          "seed",
		Short:        "Seed the database with demo users and content",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return err
			}
			if cfg.IsProduction() {
				return fmt.Errorf("refusing to seed a production database")
			}
			db, err := database.Connect(cfg)
			if err != nil {
				return err
			}
			defer func() { _ = database.Close(db) }()
			if err := database.Migrate(cmd.Context(), db); err != nil {
				return err
			}

			sum, err := seed.Seed(cmd.Context(), db, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(),
				"Seeded %d users, %d posts, %d comments, %d discussions, %d chat rooms, %d galleries\n",
				sum.Users, sum.Posts, sum.Comments, sum.Discussions, sum.ChatRooms, sum.Galleries)
			return nil
		},
	}

	f := root.Flags()
	f.IntVar(&opts.Users, "users", opts.Users, "Number of users to create")
	f.IntVar(&opts.PostsPerUser, "posts", opts.PostsPerUser, "Posts per user")
	f.IntVar(&opts.CommentsPerPost, "comments", opts.CommentsPerPost, "Comments per post and messages per discussion")
	f.IntVar(&opts.Discussions, "discussions", opts.Discussions, "Number of discussions")
	f.IntVar(&opts.ChatRooms, "chat-rooms", opts.ChatRooms, "Number of chat rooms")
	f.IntVar(&opts.GalleryItems, "gallery-items", opts.GalleryItems, "Items per gallery; zero skips galleries")
	f.IntVar(&opts.MaxDays, "max-days", opts.MaxDays, "Spread post dates over this many days")
	f.BoolVar(&opts.Clean, "clean", false, "Delete existing data first")
	f.Int64Var(&opts.Seed, "seed", 0, "Fixed random seed for reproducible data")

	if err := root.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
