// Package instagram integrates the Instagram Graph API: outbound messages and
// inbound webhook normalization.
package instagram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/autoflowhq/autoflow/pkg/credentials"
)

const (
	DefaultBaseURL = "https://graph.instagram.com/v23.0"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 * 1024
)

var ErrAccountIDRequired = errors.New("instagram account id is required")

// APIError is an error document returned by the Graph API.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message"`
	Type       string `json:"type"`
	Code       int    `json:"code"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("instagram api returned status %d", e.StatusCode)
	}

	return fmt.Sprintf("instagram api returned status %d: %s (type=%s, code=%d)", e.StatusCode, e.Message, e.Type, e.Code)
}

// invalidator is implemented by token stores that cache tokens.
type invalidator interface {
	Invalidate(integration string)
}

// Messenger sends direct messages and private comment replies as the
// configured Instagram professional account.
type Messenger struct {
	client    *http.Client
	baseURL   string
	accountID string
	tokens    credentials.TokenStore
	logger    *slog.Logger
}

type Option func(*Messenger)

func WithBaseURL(url string) Option {
	return func(m *Messenger) {
		m.baseURL = strings.TrimRight(url, "/")
	}
}

func WithHTTPClient(client *http.Client) Option {
	return func(m *Messenger) {
		m.client = client
	}
}

func NewMessenger(accountID string, tokens credentials.TokenStore, logger *slog.Logger, opts ...Option) *Messenger {
	m := &Messenger{
		client:    &http.Client{Timeout: defaultTimeout},
		baseURL:   DefaultBaseURL,
		accountID: accountID,
		tokens:    tokens,
		logger:    logger.With("module", "instagram"),
	}

	for _, opt := range opts {
		opt(m)
	}

	return m
}

type recipient struct {
	ID        string `json:"id,omitempty"`
	CommentID string `json:"comment_id,omitempty"`
}

type messageRequest struct {
	Recipient recipient `json:"recipient"`
	Message   struct {
		Text string `json:"text"`
	} `json:"message"`
}

// Send delivers a direct message to an Instagram-scoped user id.
func (m *Messenger) Send(ctx context.Context, recipientID string, text string) error {
	return m.post(ctx, recipient{ID: recipientID}, text)
}

// ReplyToComment sends a private reply to the author of a comment.
func (m *Messenger) ReplyToComment(ctx context.Context, commentID string, text string) error {
	return m.post(ctx, recipient{CommentID: commentID}, text)
}

func (m *Messenger) post(ctx context.Context, to recipient, text string) error {
	if m.accountID == "" {
		return ErrAccountIDRequired
	}

	token, err := m.tokens.AccessToken(ctx, credentials.IntegrationInstagram)
	if err != nil {
		return err
	}

	body := messageRequest{Recipient: to}
	body.Message.Text = text

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/messages", m.baseURL, m.accountID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)

		m.logger.InfoContext(ctx, "Message sent", "recipient_id", to.ID, "comment_id", to.CommentID)

		return nil
	}

	apiErr := decodeError(resp)

	if resp.StatusCode == http.StatusUnauthorized {
		if inv, ok := m.tokens.(invalidator); ok {
			inv.Invalidate(credentials.IntegrationInstagram)
		}
	}

	m.logger.ErrorContext(ctx, "Instagram API rejected message", "status", resp.StatusCode, "error", apiErr)

	return apiErr
}

func decodeError(resp *http.Response) *APIError {
	apiErr := &APIError{StatusCode: resp.StatusCode}

	var envelope struct {
		Error *APIError `json:"error"`
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil || json.Unmarshal(raw, &envelope) != nil || envelope.Error == nil {
		return apiErr
	}

	envelope.Error.StatusCode = resp.StatusCode

	return envelope.Error
}
