package model

// Push notification types
const (
	NotificationTypeReply   = "reply"
	NotificationTypeComment = "comment"
	NotificationTypeLike    = "like"
)

// PushMessage is what the worker hands to the push client for one recipient.
type PushMessage struct {
	RecipientID string
	Type        string
	Title       string
	Body        string
	Data        map[string]string
}
