package instagram

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"testing"
	"time"

	"github.com/autoflowhq/autoflow/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVerifyChallenge(t *testing.T) {
	challenge, ok := VerifyChallenge("subscribe", "verify-me", "12345", "verify-me")
	assert.True(t, ok)
	assert.Equal(t, "12345", challenge)

	_, ok = VerifyChallenge("subscribe", "wrong", "12345", "verify-me")
	assert.False(t, ok)

	_, ok = VerifyChallenge("unsubscribe", "verify-me", "12345", "verify-me")
	assert.False(t, ok)

	_, ok = VerifyChallenge("subscribe", "", "12345", "")
	assert.False(t, ok)
}

func TestVerifySignature(t *testing.T) {
	body := []byte(`{"object":"instagram"}`)
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write(body)
	header := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	assert.True(t, VerifySignature(body, header, "app-secret"))
	assert.False(t, VerifySignature(body, header, "other-secret"))
	assert.False(t, VerifySignature(body, "sha1=abc", "app-secret"))
	assert.False(t, VerifySignature(body, "sha256=zz", "app-secret"))
}

const webhookBody = `{
  "object": "instagram",
  "entry": [
    {
      "id": "1784",
      "time": 1700000000,
      "messaging": [
        {"sender": {"id": "user-1"}, "recipient": {"id": "1784"}, "timestamp": 1700000000000,
         "message": {"mid": "m1", "text": "Hello there"}},
        {"sender": {"id": "1784"}, "recipient": {"id": "user-1"}, "timestamp": 1700000000001,
         "message": {"mid": "m2", "text": "auto reply", "is_echo": true}},
        {"sender": {"id": "user-2"}, "recipient": {"id": "1784"}, "timestamp": 1700000000002,
         "message": {"mid": "m3", "text": "nice story", "reply_to": {"story": {"id": "story-9"}}}},
        {"sender": {"id": "user-3"}, "recipient": {"id": "1784"}, "timestamp": 1700000000003}
      ],
      "changes": [
        {"field": "comments", "value": {"id": "c-1", "text": "PRICE?", "from": {"id": "user-4", "username": "buyer"}, "media": {"id": "media-1"}}},
        {"field": "mentions", "value": {"media_id": "media-2", "comment_id": "c-2"}},
        {"field": "follows", "value": {"from": {"id": "user-5"}}},
        {"field": "story_insights", "value": {"media_id": "media-3"}}
      ]
    }
  ]
}`

func TestNormalize(t *testing.T) {
	var payload WebhookPayload
	require.NoError(t, json.Unmarshal([]byte(webhookBody), &payload))

	now := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	events := Normalize(&payload, now)
	require.Len(t, events, 5)

	dm := events[0]
	assert.Equal(t, models.EventTypeDirectMessage, dm.EventType)
	assert.Equal(t, "user-1", dm.SenderID)
	assert.Equal(t, "Hello there", dm.Text())
	assert.Equal(t, "m1", dm.Payload[models.PayloadKeyMessageID])
	assert.Equal(t, SourceInstagram, dm.Source)
	assert.Equal(t, now, dm.ReceivedAt)

	story := events[1]
	assert.Equal(t, models.EventTypeStoryReply, story.EventType)
	assert.Equal(t, "story-9", story.Payload["story_id"])

	comment := events[2]
	assert.Equal(t, models.EventTypeComment, comment.EventType)
	assert.Equal(t, "user-4", comment.SenderID)
	assert.Equal(t, "c-1", comment.Payload[models.PayloadKeyCommentID])
	assert.Equal(t, "media-1", comment.Payload[models.PayloadKeyMediaID])
	assert.Equal(t, "buyer", comment.Payload["username"])
	assert.Equal(t, "PRICE?", comment.Text())

	mention := events[3]
	assert.Equal(t, models.EventTypeMention, mention.EventType)
	assert.Empty(t, mention.SenderID)
	assert.Equal(t, "c-2", mention.Payload[models.PayloadKeyCommentID])
	assert.Equal(t, "media-2", mention.Payload[models.PayloadKeyMediaID])

	follow := events[4]
	assert.Equal(t, models.EventTypeFollow, follow.EventType)
	assert.Equal(t, "user-5", follow.SenderID)
}

func TestNormalize_Empty(t *testing.T) {
	assert.Empty(t, Normalize(&WebhookPayload{Object: "instagram"}, time.Now()))
}
