// Package counters maintains the denormalized aggregate columns (like, share,
// comment, message, participant and view counts).
//
// Adjust runs inside the caller's transaction so a counter moves exactly when
// the row it summarizes commits. Recount, RecountAll and Scan recompute the
// stored values from their source rows and are safe to run at any time.
package counters

import (
	"context"
	"fmt"

	"gorm.io/gorm"
)

// Counter names one denormalized column and the query that derives it.
type Counter struct {
	Table  string
	Column string
	// Source is a correlated COUNT(*) subquery over the child rows; it refers
	// to the parent row as <Table>.id.
	Source string
}

// Name is the "table.column" label used in logs and metrics.
func (c Counter) Name() string {
	return c.Table + "." + c.Column
}

var (
	PostLikes = Counter{"posts", "like_count",
		"SELECT COUNT(*) FROM likes WHERE likes.target_type = 'post' AND likes.target_id = posts.id"}
	PostShares = Counter{"posts", "share_count",
		"SELECT COUNT(*) FROM shares WHERE shares.target_type = 'post' AND shares.target_id = posts.id"}
	PostComments = Counter{"posts", "comment_count",
		"SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id AND comments.deleted_at IS NULL"}
	CommentLikes = Counter{"comments", "like_count",
		"SELECT COUNT(*) FROM likes WHERE likes.target_type = 'comment' AND likes.target_id = comments.id"}
	DiscussionMessages = Counter{"discussions", "message_count",
		"SELECT COUNT(*) FROM discussion_messages WHERE discussion_messages.discussion_id = discussions.id AND discussion_messages.deleted_at IS NULL"}
	DiscussionParticipants = Counter{"discussions", "participant_count",
		"SELECT COUNT(*) FROM discussion_participants WHERE discussion_participants.discussion_id = discussions.id"}
	GalleryItemLikes = Counter{"gallery_items", "like_count",
		"SELECT COUNT(*) FROM likes WHERE likes.target_type = 'gallery_item' AND likes.target_id = gallery_items.id"}
	GalleryItemShares = Counter{"gallery_items", "share_count",
		"SELECT COUNT(*) FROM shares WHERE shares.target_type = 'gallery_item' AND shares.target_id = gallery_items.id"}
	GalleryItemViews = Counter{"gallery_items", "view_count",
		"SELECT COUNT(*) FROM gallery_item_views WHERE gallery_item_views.item_id = gallery_items.id"}
)

// Registry lists every maintained counter.
var Registry = []Counter{
	PostLikes,
	PostShares,
	PostComments,
	CommentLikes,
	DiscussionMessages,
	DiscussionParticipants,
	GalleryItemLikes,
	GalleryItemShares,
	GalleryItemViews,
}

// Drift is one row whose stored counter disagrees with its source rows.
type Drift struct {
	Counter string `json:"counter"`
	ID      uint   `json:"id"`
	Stored  int64  `json:"stored"`
	Actual  int64  `json:"actual"`
}

// Adjust adds delta to the counter on row id, flooring at zero.
func Adjust(tx *gorm.DB, c Counter, id uint, delta int64) error {
	if delta == 0 {
		return nil
	}
	expr := fmt.Sprintf("CASE WHEN %[1]s + ? < 0 THEN 0 ELSE %[1]s + ? END", c.Column)
	err := tx.Table(c.Table).
		Where("id = ?", id).
		UpdateColumn(c.Column, gorm.Expr(expr, delta, delta)).Error
	if err != nil {
		return fmt.Errorf("adjust %s: %w", c.Name(), err)
	}
	return nil
}

// Reset sets the counter on row id to zero.
func Reset(tx *gorm.DB, c Counter, id uint) error {
	if err := tx.Table(c.Table).Where("id = ?", id).UpdateColumn(c.Column, 0).Error; err != nil {
		return fmt.Errorf("reset %s: %w", c.Name(), err)
	}
	return nil
}

// Recount recomputes the counter on row id from its source rows.
func Recount(ctx context.Context, db *gorm.DB, c Counter, id uint) error {
	stmt := fmt.Sprintf("UPDATE %[1]s SET %[2]s = (%[3]s) WHERE %[1]s.id = ?", c.Table, c.Column, c.Source)
	if err := db.WithContext(ctx).Exec(stmt, id).Error; err != nil {
		return fmt.Errorf("recount %s: %w", c.Name(), err)
	}
	return nil
}

// Scan reports every row of c whose stored value has drifted, without writing.
// Tombstoned parents are skipped: their counters are zeroed on delete.
func Scan(ctx context.Context, db *gorm.DB, c Counter) ([]Drift, error) {
	type row struct {
		ID     uint
		Stored int64
		Actual int64
	}

	query := fmt.Sprintf(
		"SELECT %[1]s.id AS id, %[1]s.%[2]s AS stored, (%[3]s) AS actual FROM %[1]s WHERE %[1]s.deleted_at IS NULL AND %[1]s.%[2]s <> (%[3]s) ORDER BY %[1]s.id",
		c.Table, c.Column, c.Source,
	)

	var rows []row
	if err := db.WithContext(ctx).Raw(query).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("scan %s: %w", c.Name(), err)
	}

	out := make([]Drift, 0, len(rows))
	for _, r := range rows {
		out = append(out, Drift{Counter: c.Name(), ID: r.ID, Stored: r.Stored, Actual: r.Actual})
	}
	return out, nil
}

// RecountAll repairs every drifted row of c and returns what it fixed.
func RecountAll(ctx context.Context, db *gorm.DB, c Counter) ([]Drift, error) {
	drift, err := Scan(ctx, db, c)
	if err != nil {
		return nil, err
	}
	for _, d := range drift {
		if err := Recount(ctx, db, c, d.ID); err != nil {
			return nil, err
		}
	}
	return drift, nil
}
