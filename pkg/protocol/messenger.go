package protocol

import "context"

// Messenger delivers outbound text to a platform.
type Messenger interface {
	// Send delivers a direct message to the recipient
	Send(ctx context.Context, recipientID string, text string) error

	// ReplyToComment answers a comment privately
	ReplyToComment(ctx context.Context, commentID string, text string) error
}
