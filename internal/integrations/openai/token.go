package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
)

const tokenParameterSuffix = "/open-ai-token"

// tokenPayload is the JSON document stored in the token parameter.
type tokenPayload struct {
	Token string `json:"token"`
}

// keyCache loads the API key once it succeeds. A failed load is retried on
// the next call instead of being remembered.
type keyCache struct {
	mu  sync.Mutex
	key string
}

func (k *keyCache) get(ctx context.Context, load func(context.Context) (string, error)) (string, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.key != "" {
		return k.key, nil
	}
	key, err := load(ctx)
	if err != nil {
		return "", err
	}
	k.key = key
	return key, nil
}

func parseTokenParameter(raw string) (string, error) {
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("openai: token parameter is not JSON: %w", err)
	}
	token := strings.TrimSpace(tp.Token)
	if token == "" {
		return "", errors.New("openai: API token is empty")
	}
	return token, nil
}

func loadAPIKey(ctx context.Context, getter Getter, name string) (string, error) {
	raw, err := getter.GetParameter(ctx, name)
	if err != nil {
		return "", fmt.Errorf("openai: load token %s: %w", name, err)
	}
	return parseTokenParameter(raw)
}
