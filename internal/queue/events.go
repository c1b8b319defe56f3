package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event types on the reunion stream
const (
	EventCommentCreated = "comment_created"
	EventCommentLiked   = "comment_liked"
)

// StreamReunion carries comment activity to the push workers.
const StreamReunion = "stream:reunion"

// ConsumerGroupReunion is the consumer group shared by all push workers.
const ConsumerGroupReunion = "reunion_workers"

// Event is a comment activity record. Recipients are resolved by the worker
// when the event is handled, not when it is published.
type Event struct {
	Type      string `json:"type"`
	Timestamp int64  `json:"timestamp"`

	GroupID   string `json:"group_id"`
	StoryID   string `json:"story_id"`
	CommentID string `json:"comment_id"`
	ActorID   string `json:"actor_id"`

	// ParentID is the sentinel for top-level comments (comment_created only).
	ParentID string `json:"parent_id,omitempty"`
}

// NewCommentCreatedEvent is published after a comment is committed.
func NewCommentCreatedEvent(groupID, storyID, commentID, parentID, actorID string) Event {
	return Event{
		Type:      EventCommentCreated,
		Timestamp: time.Now().Unix(),
		GroupID:   groupID,
		StoryID:   storyID,
		CommentID: commentID,
		ParentID:  parentID,
		ActorID:   actorID,
	}
}

// NewCommentLikedEvent is published when a like is added (not when removed).
func NewCommentLikedEvent(groupID, storyID, commentID, actorID string) Event {
	return Event{
		Type:      EventCommentLiked,
		Timestamp: time.Now().Unix(),
		GroupID:   groupID,
		StoryID:   storyID,
		CommentID: commentID,
		ActorID:   actorID,
	}
}

// ToMap converts the event to XADD field-value pairs. The payload travels as
// JSON in the "data" field.
func (e Event) ToMap() (map[string]interface{}, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return map[string]interface{}{
		"type": e.Type,
		"data": string(data),
	}, nil
}

// ParseEvent parses an Event from stream message values.
func ParseEvent(values map[string]interface{}) (Event, error) {
	data, ok := values["data"].(string)
	if !ok {
		return Event{}, errors.New("missing or invalid 'data' field")
	}

	var event Event
	if err := json.Unmarshal([]byte(data), &event); err != nil {
		return Event{}, fmt.Errorf("unmarshal event: %w", err)
	}
	return event, nil
}
