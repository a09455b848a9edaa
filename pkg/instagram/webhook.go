package instagram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
)

// SourceInstagram tags events normalized from Instagram webhooks.
const SourceInstagram = "instagram"

const (
	modeSubscribe   = "subscribe"
	signaturePrefix = "sha256="
)

// WebhookPayload is the body Meta posts to the webhook endpoint.
type WebhookPayload struct {
	Object string  `json:"object"`
	Entry  []Entry `json:"entry"`
}

type Entry struct {
	ID        string      `json:"id"`
	Time      int64       `json:"time"`
	Messaging []Messaging `json:"messaging,omitempty"`
	Changes   []Change    `json:"changes,omitempty"`
}

type Party struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

type Messaging struct {
	Sender    Party    `json:"sender"`
	Recipient Party    `json:"recipient"`
	Timestamp int64    `json:"timestamp"`
	Message   *Message `json:"message,omitempty"`
}

type Message struct {
	MID     string   `json:"mid"`
	Text    string   `json:"text,omitempty"`
	IsEcho  bool     `json:"is_echo,omitempty"`
	ReplyTo *ReplyTo `json:"reply_to,omitempty"`
}

type ReplyTo struct {
	MID   string `json:"mid,omitempty"`
	Story *struct {
		ID  string `json:"id"`
		URL string `json:"url,omitempty"`
	} `json:"story,omitempty"`
}

type Change struct {
	Field string      `json:"field"`
	Value ChangeValue `json:"value"`
}

// ChangeValue covers the fields used by comment, mention, follow and like
// notifications.
type ChangeValue struct {
	ID        string `json:"id,omitempty"`
	Text      string `json:"text,omitempty"`
	From      *Party `json:"from,omitempty"`
	Media     *Party `json:"media,omitempty"`
	MediaID   string `json:"media_id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
}

// changeEventTypes maps webhook change fields to inbound event types.
var changeEventTypes = map[string]string{
	"comments":      models.EventTypeComment,
	"live_comments": models.EventTypeComment,
	"mentions":      models.EventTypeMention,
	"follows":       models.EventTypeFollow,
	"followers":     models.EventTypeFollow,
	"likes":         models.EventTypeLike,
}

// VerifyChallenge answers the subscription handshake. It returns the
// challenge to echo and whether the request carried the expected token.
func VerifyChallenge(mode, token, challenge, expectedToken string) (string, bool) {
	if mode != modeSubscribe || expectedToken == "" || !hmac.Equal([]byte(token), []byte(expectedToken)) {
		return "", false
	}

	return challenge, true
}

// VerifySignature checks the X-Hub-Signature-256 header against the app secret.
func VerifySignature(body []byte, header, appSecret string) bool {
	if !strings.HasPrefix(header, signaturePrefix) {
		return false
	}

	got, err := hex.DecodeString(strings.TrimPrefix(header, signaturePrefix))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(body)

	return hmac.Equal(got, mac.Sum(nil))
}

// Normalize converts a webhook delivery into inbound events. Echoes of the
// account's own messages and unsupported notifications are dropped.
func Normalize(payload *WebhookPayload, receivedAt time.Time) []*models.InboundEvent {
	var out []*models.InboundEvent

	for _, entry := range payload.Entry {
		for _, m := range entry.Messaging {
			if event := fromMessaging(entry, m, receivedAt); event != nil {
				out = append(out, event)
			}
		}

		for _, change := range entry.Changes {
			if event := fromChange(entry, change, receivedAt); event != nil {
				out = append(out, event)
			}
		}
	}

	return out
}

func fromMessaging(entry Entry, m Messaging, receivedAt time.Time) *models.InboundEvent {
	if m.Message == nil || m.Message.IsEcho || m.Sender.ID == "" {
		return nil
	}

	payload := map[string]any{
		models.PayloadKeyText:      m.Message.Text,
		models.PayloadKeyMessageID: m.Message.MID,
		"recipient_id":             m.Recipient.ID,
		"account_id":               entry.ID,
	}

	eventType := models.EventTypeDirectMessage

	if m.Message.ReplyTo != nil && m.Message.ReplyTo.Story != nil {
		eventType = models.EventTypeStoryReply
		payload["story_id"] = m.Message.ReplyTo.Story.ID
	}

	return &models.InboundEvent{
		EventType:  eventType,
		SenderID:   m.Sender.ID,
		Payload:    payload,
		Source:     SourceInstagram,
		ReceivedAt: receivedAt,
	}
}

func fromChange(entry Entry, change Change, receivedAt time.Time) *models.InboundEvent {
	eventType, ok := changeEventTypes[change.Field]
	if !ok {
		return nil
	}

	value := change.Value
	payload := map[string]any{"account_id": entry.ID}

	var senderID string

	if value.From != nil {
		senderID = value.From.ID

		if value.From.Username != "" {
			payload["username"] = value.From.Username
		}
	}

	if value.Text != "" {
		payload[models.PayloadKeyText] = value.Text
	}

	mediaID := value.MediaID
	if value.Media != nil && value.Media.ID != "" {
		mediaID = value.Media.ID
	}

	if mediaID != "" {
		payload[models.PayloadKeyMediaID] = mediaID
	}

	switch eventType {
	case models.EventTypeComment:
		payload[models.PayloadKeyCommentID] = value.ID
	case models.EventTypeMention:
		if value.CommentID != "" {
			payload[models.PayloadKeyCommentID] = value.CommentID
		}
	}

	return &models.InboundEvent{
		EventType:  eventType,
		SenderID:   senderID,
		Payload:    payload,
		Source:     SourceInstagram,
		ReceivedAt: receivedAt,
	}
}
