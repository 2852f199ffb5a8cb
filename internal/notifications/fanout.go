package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/yogull/yogull-social-platform-sub001/internal/featureflags"
	"github.com/yogull/yogull-social-platform-sub001/internal/middleware"
	"github.com/yogull/yogull-social-platform-sub001/internal/models"
	"github.com/yogull/yogull-social-platform-sub001/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// EventKind names a content event that may notify someone.
type EventKind string

const (
	CommentCreated           EventKind = "comment_created"
	DiscussionMessageCreated EventKind = "discussion_message_created"
	WallPostCreated          EventKind = "wall_post_created"
)

// Event is emitted by services after a write commits. Only the fields of its
// kind are set.
type Event struct {
	Kind    EventKind
	ActorID uint

	// CommentCreated
	PostID         uint
	PostAuthorID   uint
	CommentID      uint
	ParentAuthorID uint

	// DiscussionMessageCreated
	DiscussionID uint
	MessageID    uint
	CategoryID   uint

	// WallPostCreated
	WallOwnerID uint
}

// Publisher accepts events after commit. Implementations must not fail the caller.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Handler turns one event into notifications.
type Handler interface {
	Handle(ctx context.Context, ev Event) error
}

// ParticipantSource lists the members of a discussion.
type ParticipantSource interface {
	ParticipantIDs(ctx context.Context, discussionID uint) ([]uint, error)
}

// NotificationWriter persists notification rows.
type NotificationWriter interface {
	CreateBatch(ctx context.Context, notifications []models.Notification) error
}

// UserPublisher pushes a realtime frame to one user.
type UserPublisher interface {
	PublishUserEvent(ctx context.Context, userID uint, frameType string, payload any) error
}

// FanoutConfig wires a Fanout.
type FanoutConfig struct {
	Participants ParticipantSource
	Writer       NotificationWriter
	Realtime     UserPublisher
	Flags        *featureflags.Manager
	MaxAttempts  int
	Backoff      time.Duration
}

// Fanout resolves recipients for an event, writes their notifications and
// pushes them to connected users.
type Fanout struct {
	participants ParticipantSource
	writer       NotificationWriter
	realtime     UserPublisher
	flags        *featureflags.Manager
	maxAttempts  int
	backoff      time.Duration
}

// NewFanout builds a Fanout. MaxAttempts defaults to 3 and Backoff to 100ms.
func NewFanout(cfg FanoutConfig) *Fanout {
	f := &Fanout{
		participants: cfg.Participants,
		writer:       cfg.Writer,
		realtime:     cfg.Realtime,
		flags:        cfg.Flags,
		maxAttempts:  cfg.MaxAttempts,
		backoff:      cfg.Backoff,
	}
	if f.maxAttempts < 1 {
		f.maxAttempts = 3
	}
	if f.backoff <= 0 {
		f.backoff = 100 * time.Millisecond
	}
	return f
}

// Recipients builds the notification rows for ev without writing them.
func (f *Fanout) Recipients(ctx context.Context, ev Event) ([]models.Notification, error) {
	switch ev.Kind {
	case CommentCreated:
		// A reply notifies the parent author instead of the post author when
		// they are the same person, so nobody gets two rows for one comment.
		var out []models.Notification
		if ev.ParentAuthorID != 0 && ev.ParentAuthorID != ev.ActorID {
			out = append(out, models.Notification{
				RecipientID: ev.ParentAuthorID,
				ActorID:     ev.ActorID,
				Type:        models.NotificationCommentReply,
				TargetType:  models.TargetComment,
				TargetID:    ev.CommentID,
			})
		}
		if ev.PostAuthorID != 0 && ev.PostAuthorID != ev.ActorID && ev.PostAuthorID != ev.ParentAuthorID {
			out = append(out, models.Notification{
				RecipientID: ev.PostAuthorID,
				ActorID:     ev.ActorID,
				Type:        models.NotificationPostComment,
				TargetType:  models.TargetComment,
				TargetID:    ev.CommentID,
			})
		}
		return out, nil

	case DiscussionMessageCreated:
		ids, err := f.participants.ParticipantIDs(ctx, ev.DiscussionID)
		if err != nil {
			return nil, err
		}
		var category *uint
		if ev.CategoryID != 0 {
			c := ev.CategoryID
			category = &c
		}
		out := make([]models.Notification, 0, len(ids))
		for _, id := range ids {
			if id == ev.ActorID {
				continue
			}
			out = append(out, models.Notification{
				RecipientID: id,
				ActorID:     ev.ActorID,
				Type:        models.NotificationDiscussionMessage,
				TargetType:  models.TargetDiscussionMessage,
				TargetID:    ev.MessageID,
				CategoryID:  category,
			})
		}
		return out, nil

	case WallPostCreated:
		if ev.WallOwnerID == 0 || ev.WallOwnerID == ev.ActorID {
			return nil, nil
		}
		return []models.Notification{{
			RecipientID: ev.WallOwnerID,
			ActorID:     ev.ActorID,
			Type:        models.NotificationWallPost,
			TargetType:  models.TargetPost,
			TargetID:    ev.PostID,
		}}, nil
	}
	return nil, fmt.Errorf("unknown event kind %q", ev.Kind)
}

// Handle writes the notifications for ev, retrying the insert with backoff.
// Errors are logged and counted here as well as returned.
func (f *Fanout) Handle(ctx context.Context, ev Event) (err error) {
	span, ctx := observability.NewSpan(ctx, "notifications.Fanout",
		attribute.String("event.kind", string(ev.Kind)))
	defer func() { span.Finish(err) }()

	defer func() {
		if err != nil {
			observability.NotificationFailures.WithLabelValues(string(ev.Kind)).Inc()
			middleware.Logger.ErrorContext(ctx, "notification fan-out failed",
				slog.String("event", string(ev.Kind)),
				slog.Uint64("actor_id", uint64(ev.ActorID)),
				slog.String("error", err.Error()))
		}
	}()

	rows, err := f.Recipients(ctx, ev)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		return nil
	}
	span.AddAttributes(attribute.Int("notifications.count", len(rows)))

	if err := f.insert(ctx, rows); err != nil {
		return err
	}
	for _, n := range rows {
		observability.NotificationsCreated.WithLabelValues(n.Type).Inc()
	}

	f.push(ctx, rows)
	return nil
}

func (f *Fanout) insert(ctx context.Context, rows []models.Notification) error {
	wait := f.backoff
	var err error
	for attempt := 1; attempt <= f.maxAttempts; attempt++ {
		if err = f.writer.CreateBatch(ctx, rows); err == nil {
			return nil
		}
		if attempt == f.maxAttempts {
			break
		}
		middleware.Logger.WarnContext(ctx, "notification insert failed, retrying",
			slog.Int("attempt", attempt), slog.String("error", err.Error()))
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
		wait *= 2
	}
	return fmt.Errorf("insert notifications after %d attempts: %w", f.maxAttempts, err)
}

func (f *Fanout) push(ctx context.Context, rows []models.Notification) {
	if f.realtime == nil {
		return
	}
	for i := range rows {
		n := &rows[i]
		if !f.flags.Enabled(featureflags.RealtimeNotifications, n.RecipientID) {
			continue
		}
		if err := f.realtime.PublishUserEvent(ctx, n.RecipientID, FrameNotification, n); err != nil {
			middleware.Logger.WarnContext(ctx, "realtime notification publish failed",
				slog.Uint64("recipient_id", uint64(n.RecipientID)),
				slog.String("error", err.Error()))
		}
	}
}
