package service

import (
	"context"
	"fmt"
	"strings"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"reunion_archive/internal/model"
)

// fcmMaxTokens is the multicast limit of a single FCM request.
const fcmMaxTokens = 500

// FCMClient sends reply, comment and like pushes through Firebase Cloud Messaging.
type FCMClient struct {
	client *messaging.Client
	log    *zap.Logger
}

// NewFCMClient creates a client from service account fields. The private key
// may carry escaped "\n" sequences as found in .env files.
func NewFCMClient(ctx context.Context, projectID, clientEmail, privateKey string) (*FCMClient, error) {
	privateKey = strings.ReplaceAll(privateKey, "\\n", "\n")

	credsJSON := fmt.Sprintf(`{
		"type": "service_account",
		"project_id": %q,
		"private_key": %q,
		"client_email": %q,
		"token_uri": "https://oauth2.googleapis.com/token"
	}`, projectID, privateKey, clientEmail)

	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsJSON([]byte(credsJSON)))
	if err != nil {
		return nil, fmt.Errorf("initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("get messaging client: %w", err)
	}

	log := zap.L().Named("fcm")
	log.Info("push client initialized", zap.String("project_id", projectID))
	return &FCMClient{client: client, log: log}, nil
}

// Send delivers msg to every token and returns the tokens FCM no longer
// recognizes so the caller can prune them.
func (c *FCMClient) Send(ctx context.Context, tokens []string, msg model.PushMessage) ([]string, error) {
	var stale []string
	for start := 0; start < len(tokens); start += fcmMaxTokens {
		batch := tokens[start:min(start+fcmMaxTokens, len(tokens))]

		resp, err := c.client.SendEachForMulticast(ctx, buildMulticast(batch, msg))
		if err != nil {
			return stale, fmt.Errorf("send multicast: %w", err)
		}

		for i, r := range resp.Responses {
			if r.Success {
				continue
			}
			if messaging.IsRegistrationTokenNotRegistered(r.Error) || messaging.IsInvalidArgument(r.Error) {
				stale = append(stale, batch[i])
				continue
			}
			c.log.Warn("push failed", zap.String("recipient_id", msg.RecipientID), zap.Error(r.Error))
		}

		c.log.Debug("push sent",
			zap.String("type", msg.Type),
			zap.Int("tokens", len(batch)),
			zap.Int("success", resp.SuccessCount),
			zap.Int("failure", resp.FailureCount))
	}
	return stale, nil
}

func buildMulticast(tokens []string, msg model.PushMessage) *messaging.MulticastMessage {
	return &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: msg.Title,
			Body:  msg.Body,
		},
		Data: msg.Data,
		Android: &messaging.AndroidConfig{
			Priority: "high",
			Notification: &messaging.AndroidNotification{
				Sound: "default",
				Tag:   msg.Data["story_id"],
			},
		},
		APNS: &messaging.APNSConfig{
			Payload: &messaging.APNSPayload{
				Aps: &messaging.Aps{
					Sound:    "default",
					ThreadID: msg.Data["story_id"],
				},
			},
		},
	}
}
