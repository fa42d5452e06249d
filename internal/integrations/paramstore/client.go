// Package paramstore reads deployment secrets and documents from AWS SSM
// Parameter Store.
package paramstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ErrNotFound is wrapped when the parameter does not exist.
var ErrNotFound = errors.New("paramstore: parameter not found")

// ssmAPI is satisfied by *ssm.Client.
type ssmAPI interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter returns a parameter's decrypted value by full name.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

type Client struct {
	api ssmAPI
}

func New(api ssmAPI) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: api must not be nil")
	}
	return &Client{api: api}, nil
}

// GetParameter reads a String or SecureString parameter. SecureString values
// are decrypted.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.New("paramstore: name is required")
	}

	out, err := c.api.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		var missing *types.ParameterNotFound
		if errors.As(err, &missing) {
			return "", fmt.Errorf("%w: %q", ErrNotFound, name)
		}
		return "", fmt.Errorf("paramstore: get parameter %q: %w", name, err)
	}
	if out == nil || out.Parameter == nil || out.Parameter.Value == nil {
		return "", fmt.Errorf("paramstore: parameter %q has no value", name)
	}
	slog.DebugContext(ctx, "parameter loaded", "name", name, "version", out.Parameter.Version)
	return aws.ToString(out.Parameter.Value), nil
}
