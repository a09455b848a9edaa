package message

import (
	"github.com/autoflowhq/autoflow/pkg/protocol"
)

type DirectMessageActionFactory struct {
	messenger protocol.Messenger
}

func NewDirectMessageActionFactory(messenger protocol.Messenger) *DirectMessageActionFactory {
	return &DirectMessageActionFactory{messenger: messenger}
}

// nolint:ireturn
func (f *DirectMessageActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewDirectMessageAction(f.messenger, config)
}

func (f *DirectMessageActionFactory) ID() string {
	return "direct-message"
}

func (f *DirectMessageActionFactory) Name() string {
	return "Send Direct Message"
}

func (f *DirectMessageActionFactory) Description() string {
	return "Sends a direct message to the user who triggered the workflow"
}

func (f *DirectMessageActionFactory) Schema() map[string]any {
	return protocol.ReflectSchema(&Config{})
}

type ReplyCommentActionFactory struct {
	messenger protocol.Messenger
}

func NewReplyCommentActionFactory(messenger protocol.Messenger) *ReplyCommentActionFactory {
	return &ReplyCommentActionFactory{messenger: messenger}
}

// nolint:ireturn
func (f *ReplyCommentActionFactory) Create(config map[string]any) (protocol.Action, error) {
	return NewReplyCommentAction(f.messenger, config)
}

func (f *ReplyCommentActionFactory) ID() string {
	return "reply-comment"
}

func (f *ReplyCommentActionFactory) Name() string {
	return "Reply to Comment"
}

func (f *ReplyCommentActionFactory) Description() string {
	return "Privately replies to the comment that triggered the workflow"
}

func (f *ReplyCommentActionFactory) Schema() map[string]any {
	return protocol.ReflectSchema(&Config{})
}
