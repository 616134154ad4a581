package paramstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"
)

// ErrNotFound is returned when the named parameter does not exist.
var ErrNotFound = errors.New("paramstore: parameter not found")

// parameterReader is the slice of *ssm.Client used here.
type parameterReader interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// Getter resolves a parameter name to its value. The OpenAI client and the
// sentence service take this instead of *Client.
type Getter interface {
	GetParameter(ctx context.Context, name string) (string, error)
}

// Client reads SecureString and String parameters, decrypting as needed.
type Client struct {
	ssm parameterReader
}

func New(api parameterReader) (*Client, error) {
	if api == nil {
		return nil, errors.New("paramstore: ssm client is required")
	}
	return &Client{ssm: api}, nil
}

// GetParameter returns the trimmed value of name. A missing parameter
// yields an error wrapping ErrNotFound.
func (c *Client) GetParameter(ctx context.Context, name string) (string, error) {
	if c == nil || c.ssm == nil {
		return "", errors.New("paramstore: nil client")
	}
	key := strings.TrimSpace(name)
	if key == "" {
		return "", errors.New("paramstore: empty parameter name")
	}

	out, err := c.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(key),
		WithDecryption: aws.Bool(true),
	})
	var notFound *types.ParameterNotFound
	switch {
	case errors.As(err, &notFound):
		return "", fmt.Errorf("%w: %q", ErrNotFound, key)
	case err != nil:
		return "", fmt.Errorf("paramstore: read %q: %w", key, err)
	}
	if out == nil || out.Parameter == nil {
		return "", fmt.Errorf("paramstore: %q returned no parameter", key)
	}
	return strings.TrimSpace(aws.ToString(out.Parameter.Value)), nil
}

// GetParameterOr returns def when name does not exist or is blank. Other
// failures are returned unchanged.
func GetParameterOr(ctx context.Context, g Getter, name, def string) (string, error) {
	v, err := g.GetParameter(ctx, name)
	switch {
	case errors.Is(err, ErrNotFound):
		return def, nil
	case err != nil:
		return "", err
	case v == "":
		return def, nil
	}
	return v, nil
}
