package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockMessenger is a mock implementation of protocol.Messenger interface.
type MockMessenger struct {
	mock.Mock
}

func (m *MockMessenger) Send(ctx context.Context, recipientID, text string) error {
	args := m.Called(ctx, recipientID, text)

	return args.Error(0)
}

func (m *MockMessenger) ReplyToComment(ctx context.Context, commentID, text string) error {
	args := m.Called(ctx, commentID, text)

	return args.Error(0)
}
