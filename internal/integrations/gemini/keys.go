package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// tokenPayload is the JSON shape stored in SSM for the API token.
type tokenPayload struct {
	Token string `json:"token"`
}

type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// ParamStoreKey reads the API key from "<prefix>/gemini-token".
type ParamStoreKey struct {
	getter Getter
	name   string
}

func NewParamStoreKey(getter Getter, paramPrefix string) (*ParamStoreKey, error) {
	if getter == nil {
		return nil, errors.New("gemini: paramstore getter must not be nil")
	}
	paramPrefix = strings.TrimRight(strings.TrimSpace(paramPrefix), "/")
	if paramPrefix == "" {
		return nil, errors.New("gemini: parameter prefix must not be empty")
	}
	return &ParamStoreKey{getter: getter, name: paramPrefix + "/gemini-token"}, nil
}

func (k *ParamStoreKey) Name() string {
	return k.name
}

func (k *ParamStoreKey) APIKey(ctx context.Context) (string, error) {
	raw, err := k.getter.GetParameter(ctx, k.name)
	if err != nil {
		return "", fmt.Errorf("gemini: fetch token from paramstore: %w", err)
	}
	var tp tokenPayload
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		return "", fmt.Errorf("gemini: unmarshal paramstore token value as JSON: %w", err)
	}
	if strings.TrimSpace(tp.Token) == "" {
		return "", errors.New("gemini: API token is empty")
	}
	return tp.Token, nil
}
