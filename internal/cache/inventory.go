package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	UserSummaryKeyPrefix = "user:%d:summary"
	CategoryKeyPrefix    = "discussion_category:%d"
	CategoryListKey      = "discussion_categories"
)

const (
	UserTTL     = 5 * time.Minute
	CategoryTTL = 30 * time.Minute
)

func UserSummaryKey(userID uint) string {
	return fmt.Sprintf(UserSummaryKeyPrefix, userID)
}

func CategoryKey(categoryID uint) string {
	return fmt.Sprintf(CategoryKeyPrefix, categoryID)
}

// Invalidate removes key. It is a no-op without a client.
func Invalidate(ctx context.Context, keys ...string) {
	if client != nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// InvalidateUser drops cached author metadata after a profile, avatar or block change.
func InvalidateUser(ctx context.Context, userID uint) {
	Invalidate(ctx, UserSummaryKey(userID))
}

// InvalidateCategories drops the category list and one category entry.
func InvalidateCategories(ctx context.Context, categoryID uint) {
	Invalidate(ctx, CategoryListKey, CategoryKey(categoryID))
}
