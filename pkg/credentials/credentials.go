// Package credentials looks up integration access tokens for outbound calls.
package credentials

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// IntegrationInstagram is the integration type of the Instagram messenger.
const IntegrationInstagram = "INSTAGRAM"

// ErrNoAccessToken is returned when no token is stored for an integration.
var ErrNoAccessToken = errors.New("no access token")

// TokenStore returns the access token of an integration type.
type TokenStore interface {
	AccessToken(ctx context.Context, integration string) (string, error)
}

// StaticStore serves tokens fixed at startup, usually read from the environment.
type StaticStore struct {
	tokens map[string]string
}

// NewStaticStore builds a store from integration type to token. Empty tokens
// are dropped.
func NewStaticStore(tokens map[string]string) *StaticStore {
	store := &StaticStore{tokens: make(map[string]string, len(tokens))}

	for integration, token := range tokens {
		if token = strings.TrimSpace(token); token != "" {
			store.tokens[normalize(integration)] = token
		}
	}

	return store
}

func (s *StaticStore) AccessToken(_ context.Context, integration string) (string, error) {
	token, ok := s.tokens[normalize(integration)]
	if !ok {
		return "", fmt.Errorf("%w for %s", ErrNoAccessToken, normalize(integration))
	}

	return token, nil
}

// ChainStore asks each store in turn and returns the first token found.
type ChainStore []TokenStore

func (c ChainStore) AccessToken(ctx context.Context, integration string) (string, error) {
	for _, store := range c {
		token, err := store.AccessToken(ctx, integration)
		if err == nil {
			return token, nil
		}

		if !errors.Is(err, ErrNoAccessToken) {
			return "", err
		}
	}

	return "", fmt.Errorf("%w for %s", ErrNoAccessToken, normalize(integration))
}

func normalize(integration string) string {
	return strings.ToUpper(strings.TrimSpace(integration))
}
