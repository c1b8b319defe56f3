package worker

import (
	"context"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"reunion_archive/internal/model"
	"reunion_archive/internal/queue"
)

// CommentProvider loads comments by id.
type CommentProvider interface {
	GetByID(ctx context.Context, id string) (*model.Comment, error)
}

// StoryProvider loads live stories by id.
type StoryProvider interface {
	GetByID(ctx context.Context, id string) (*model.Story, error)
}

// UserProvider loads users by id; used for the actor's display name.
type UserProvider interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// TokenStore lists and prunes device tokens.
type TokenStore interface {
	GetByUserID(ctx context.Context, userID string) ([]model.DeviceToken, error)
	Delete(ctx context.Context, userID, token string) error
}

// Pusher delivers one message to a set of device tokens. It returns the
// tokens the push provider reported as no longer registered.
type Pusher interface {
	Send(ctx context.Context, tokens []string, msg model.PushMessage) (stale []string, err error)
}

const previewLength = 80

// Handler turns comment activity into push notifications.
type Handler struct {
	comments CommentProvider
	stories  StoryProvider
	users    UserProvider
	tokens   TokenStore
	pusher   Pusher // nil when push is not configured
	log      *zap.Logger
}

// NewHandler creates a new event handler. pusher may be nil, in which case
// events are resolved and logged but nothing is sent.
func NewHandler(comments CommentProvider, stories StoryProvider, users UserProvider, tokens TokenStore, pusher Pusher) *Handler {
	return &Handler{
		comments: comments,
		stories:  stories,
		users:    users,
		tokens:   tokens,
		pusher:   pusher,
		log:      zap.L().Named("worker.handler"),
	}
}

// HandleEvent routes an event by type.
func (h *Handler) HandleEvent(ctx context.Context, event queue.Event) error {
	start := time.Now()

	var msg *model.PushMessage
	var err error
	switch event.Type {
	case queue.EventCommentCreated:
		msg, err = h.commentCreated(ctx, event)
	case queue.EventCommentLiked:
		msg, err = h.commentLiked(ctx, event)
	default:
		return fmt.Errorf("unknown event type: %s", event.Type)
	}
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}

	if err := h.deliver(ctx, *msg); err != nil {
		return err
	}
	h.log.Debug("event handled",
		zap.String("type", event.Type),
		zap.String("comment_id", event.CommentID),
		zap.String("recipient", msg.RecipientID),
		zap.Duration("duration", time.Since(start)))
	return nil
}

// commentCreated notifies the parent comment's author for a reply and the
// story author for a top-level comment.
func (h *Handler) commentCreated(ctx context.Context, event queue.Event) (*model.PushMessage, error) {
	c, err := h.comments.GetByID(ctx, event.CommentID)
	if errors.Is(err, model.ErrCommentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load comment: %w", err)
	}

	actor := h.actorName(ctx, event.ActorID)
	msg := &model.PushMessage{Data: eventData(event)}

	if c.IsRoot() {
		story, err := h.stories.GetByID(ctx, event.StoryID)
		if errors.Is(err, model.ErrStoryNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load story: %w", err)
		}
		msg.RecipientID = story.AuthorID
		msg.Type = model.NotificationTypeComment
		msg.Title = fmt.Sprintf("%s commented on %q", actor, story.Title)
	} else {
		parent, err := h.comments.GetByID(ctx, c.ParentID)
		if errors.Is(err, model.ErrCommentNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("load parent comment: %w", err)
		}
		msg.RecipientID = parent.AuthorID
		msg.Type = model.NotificationTypeReply
		msg.Title = actor + " replied to your comment"
	}
	msg.Body = preview(c)
	msg.Data["type"] = msg.Type

	if msg.RecipientID == event.ActorID {
		return nil, nil
	}
	return msg, nil
}

func (h *Handler) commentLiked(ctx context.Context, event queue.Event) (*model.PushMessage, error) {
	c, err := h.comments.GetByID(ctx, event.CommentID)
	if errors.Is(err, model.ErrCommentNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load comment: %w", err)
	}
	if c.AuthorID == event.ActorID {
		return nil, nil
	}

	data := eventData(event)
	data["type"] = model.NotificationTypeLike
	return &model.PushMessage{
		RecipientID: c.AuthorID,
		Type:        model.NotificationTypeLike,
		Title:       h.actorName(ctx, event.ActorID) + " liked your comment",
		Body:        preview(c),
		Data:        data,
	}, nil
}

func (h *Handler) deliver(ctx context.Context, msg model.PushMessage) error {
	if h.pusher == nil {
		h.log.Debug("push disabled, dropping", zap.String("recipient", msg.RecipientID), zap.String("type", msg.Type))
		return nil
	}

	devices, err := h.tokens.GetByUserID(ctx, msg.RecipientID)
	if err != nil {
		return fmt.Errorf("load device tokens: %w", err)
	}
	if len(devices) == 0 {
		return nil
	}

	tokens := make([]string, len(devices))
	for i, d := range devices {
		tokens[i] = d.Token
	}

	stale, err := h.pusher.Send(ctx, tokens, msg)
	if err != nil {
		return fmt.Errorf("send push: %w", err)
	}
	for _, t := range stale {
		if err := h.tokens.Delete(ctx, msg.RecipientID, t); err != nil {
			h.log.Warn("prune token failed", zap.String("user_id", msg.RecipientID), zap.Error(err))
		}
	}
	return nil
}

func (h *Handler) actorName(ctx context.Context, userID string) string {
	u, err := h.users.GetByID(ctx, userID)
	if err != nil {
		return "Someone"
	}
	if u.DisplayName != nil && *u.DisplayName != "" {
		return *u.DisplayName
	}
	return u.Username
}

func eventData(event queue.Event) map[string]string {
	return map[string]string{
		"group_id":   event.GroupID,
		"story_id":   event.StoryID,
		"comment_id": event.CommentID,
	}
}

func preview(c *model.Comment) string {
	if c.Content == "" && c.AudioURL != nil {
		return "Voice comment"
	}
	if utf8.RuneCountInString(c.Content) <= previewLength {
		return c.Content
	}
	runes := []rune(c.Content)
	return string(runes[:previewLength]) + "…"
}
